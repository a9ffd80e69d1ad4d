package crossprocess

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/reddit/crossprocess.go/cat"
	"github.com/reddit/crossprocess.go/configbp"
	"github.com/reddit/crossprocess.go/httpbp"
	"github.com/reddit/crossprocess.go/log"
	"github.com/reddit/crossprocess.go/txn"
)

// Config errors are returned by Config.Validate.
var (
	ErrConfigMissingEncodingKey    = errors.New("connectReply.encodingKey cannot be empty when crossApplicationTracer or synthetics is enabled")
	ErrConfigMissingCrossProcessID = errors.New("connectReply.crossProcessID cannot be empty when crossApplicationTracer or distributedTracing is enabled")
	ErrConfigInvalidCrossProcessID = errors.New("connectReply.crossProcessID must be in the format <account>#<app>")
	ErrConfigInvalidLogLevel       = errors.New("log.level is not a known level")
	ErrConfigInvalidBreaker        = errors.New("client.circuitBreaker.failureThreshold must be in [0, 1]")
)

// Config is the configuration of an Agent.
//
// Can be deserialized from YAML.
type Config struct {
	// The name of the local application, used in CAT path hashes.
	AppName string `yaml:"appName"`

	Log log.Config `yaml:"log"`

	CrossApplicationTracer struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"crossApplicationTracer"`

	DistributedTracing struct {
		Enabled bool `yaml:"enabled"`

		// Do not send the proprietary newrelic header, only the W3C ones.
		ExcludeNewRelicHeader bool `yaml:"excludeNewRelicHeader"`
	} `yaml:"distributedTracing"`

	Synthetics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"synthetics"`

	ConnectReply ConnectReplyConfig `yaml:"connectReply"`

	Client ClientConfig `yaml:"client"`
}

// ClientConfig configures the HTTP clients returned by Agent.Client.
type ClientConfig struct {
	// Total tries of a request failing with a transport error or a 5xx
	// response. 0 and 1 disable retries.
	RetryAttempts uint `yaml:"retryAttempts"`

	// Nil disables the per host circuit breaker.
	CircuitBreaker *httpbp.BreakerConfig `yaml:"circuitBreaker"`
}

// ConnectReplyConfig is the part of the configuration usually sent by the
// collector on connect.
type ConnectReplyConfig struct {
	EncodingKey    string `yaml:"encodingKey"`
	CrossProcessID string `yaml:"crossProcessID"`

	// Either a list or a comma separated string.
	TrustedAccountIDs configbp.Int64Set `yaml:"trustedAccountIDs"`

	// Defaults to the account of CrossProcessID.
	TrustedAccountKey string `yaml:"trustedAccountKey"`
}

// Validate checks the configuration for inconsistencies.
//
// All problems found are returned, combined with go.uber.org/multierr.
func (cfg Config) Validate() error {
	var err error

	if !cfg.Log.Level.IsValid() {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrConfigInvalidLogLevel, cfg.Log.Level))
	}

	if b := cfg.Client.CircuitBreaker; b != nil && (b.FailureThreshold < 0 || b.FailureThreshold > 1) {
		err = multierr.Append(err, fmt.Errorf("%w: %v", ErrConfigInvalidBreaker, b.FailureThreshold))
	}

	reply := cfg.ConnectReply
	if reply.EncodingKey == "" && (cfg.CrossApplicationTracer.Enabled || cfg.Synthetics.Enabled) {
		err = multierr.Append(err, ErrConfigMissingEncodingKey)
	}
	if reply.CrossProcessID == "" {
		if cfg.CrossApplicationTracer.Enabled || cfg.DistributedTracing.Enabled {
			err = multierr.Append(err, ErrConfigMissingCrossProcessID)
		}
	} else if cat.AccountIDFromCrossProcessID(reply.CrossProcessID) < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrConfigInvalidCrossProcessID, reply.CrossProcessID))
	}
	return err
}

// Options returns the transaction feature flags of the configuration.
func (cfg Config) Options() txn.Options {
	return txn.Options{
		CrossProcessEnabled:                     cfg.CrossApplicationTracer.Enabled,
		DistributedTracingEnabled:               cfg.DistributedTracing.Enabled,
		DistributedTracingExcludeNewRelicHeader: cfg.DistributedTracing.ExcludeNewRelicHeader,
		SyntheticsEnabled:                       cfg.Synthetics.Enabled,
	}
}

// ToConnectReply returns the transaction connect reply of the configuration.
func (cfg ConnectReplyConfig) ToConnectReply() *txn.ConnectReply {
	return &txn.ConnectReply{
		EncodingKey:       cfg.EncodingKey,
		CrossProcessID:    cfg.CrossProcessID,
		TrustedAccountIDs: cfg.TrustedAccountIDs.ToSet(),
	}
}

// ParseConfig parses and validates the YAML config file at the given path.
//
// Environment variables in the file are substituted. When path is empty,
// configbp.ConfigPath is used.
func ParseConfig(path string) (Config, error) {
	if path == "" {
		path = configbp.ConfigPath
	}
	if path == "" {
		return Config{}, errors.New("crossprocess.ParseConfig: no config path given")
	}
	var cfg Config
	if err := configbp.ParseStrictFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeConfigYAML parses and validates the YAML config read from reader.
func DecodeConfigYAML(reader io.Reader) (Config, error) {
	var cfg Config
	if err := configbp.ParseStrictYAML(reader, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
