package log

// Config is the configuration struct for the log package.
//
// Can be deserialized from YAML.
type Config struct {
	// Level is the log level. Empty means NopLevel, since the engine is
	// usually embedded into a host process that owns its own logging.
	Level Level `yaml:"level"`

	// JSON switches the encoding from console to JSON.
	JSON bool `yaml:"json"`

	// Errors of the HTTP middlewares are reported to Sentry when configured.
	Sentry SentryConfig `yaml:"sentry"`
}

// InitFromConfig initializes the global logger using the given Config.
func InitFromConfig(cfg Config) {
	if cfg.Level == "" {
		cfg.Level = NopLevel
	}
	if cfg.JSON {
		InitLoggerJSON(cfg.Level)
		return
	}
	InitLogger(cfg.Level)
}
