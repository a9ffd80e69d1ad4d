// Package configbp parses strict YAML configurations with environment
// variable substitution.
package configbp

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/reddit/crossprocess.go/internal/limitopen"
	"github.com/reddit/crossprocess.go/log"
)

// ConfigPath points to the default config file.
var ConfigPath = os.Getenv("CROSSPROCESS_CONFIG_PATH")

// Size limits of config files opened by ParseStrictFile.
const (
	SoftLimit = 64 << 10 // 64 KiB
	HardLimit = 1 << 20  // 1 MiB
)

// ParseStrictFile parses configuration from the file at the given path.
//
// Environment variables (e.g. $FOO and ${FOO}) are substituted from the
// environment before parsing. Files larger than HardLimit are rejected.
func ParseStrictFile(path string, ptr interface{}) error {
	switch ext := filepath.Ext(path); strings.ToLower(ext) {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}

	f, err := limitopen.OpenWithLimit(path, SoftLimit, HardLimit)
	if err != nil {
		return err // contains filename
	}
	defer f.Close()

	return ParseStrictYAML(f, ptr)
}

// ParseStrictYAML parses YAML read from the given Reader into ptr.
//
// Environment variables (e.g. $FOO and ${FOO}) are substituted from the
// environment before parsing. Unknown keys are errors.
func ParseStrictYAML(reader io.Reader, ptr interface{}) error {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("reading config for %T: %w", ptr, err)
	}
	expanded := os.ExpandEnv(string(raw))
	if log.With().Desugar().Core().Enabled(zap.DebugLevel) {
		defer log.Debugw("Read configuration", "type", fmt.Sprintf("%T", ptr), "yaml", expanded)
	}

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.SetStrict(true)
	if err := dec.Decode(ptr); err != nil {
		return fmt.Errorf("parsing YAML into %T: %w", ptr, err)
	}
	return nil
}
