package crossprocess_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	crossprocess "github.com/reddit/crossprocess.go"
	"github.com/reddit/crossprocess.go/configbp"
	"github.com/reddit/crossprocess.go/httpbp"
	"github.com/reddit/crossprocess.go/log"
	"github.com/reddit/crossprocess.go/set"
	"github.com/reddit/crossprocess.go/txn"
)

const encodingKey = "d67afc830dab717fd163bfcb0b8b88423e9a1a3b"

const validYAML = `
appName: app
crossApplicationTracer:
  enabled: true
distributedTracing:
  enabled: true
  excludeNewRelicHeader: true
synthetics:
  enabled: true
connectReply:
  encodingKey: d67afc830dab717fd163bfcb0b8b88423e9a1a3b
  crossProcessID: "12345#2"
  trustedAccountIDs: [1, 12345]
  trustedAccountKey: "1"
client:
  retryAttempts: 3
  circuitBreaker:
    minRequestsToTrip: 10
    failureThreshold: 0.5
    timeout: 30s
`

func TestConfigValidate(t *testing.T) {
	for _, c := range []struct {
		label string
		setup func(cfg *crossprocess.Config)
		want  []error
	}{
		{
			label: "all-disabled",
			setup: func(*crossprocess.Config) {},
		},
		{
			label: "cat-complete",
			setup: func(cfg *crossprocess.Config) {
				cfg.CrossApplicationTracer.Enabled = true
				cfg.ConnectReply.EncodingKey = encodingKey
				cfg.ConnectReply.CrossProcessID = "1#1"
			},
		},
		{
			label: "cat-empty",
			setup: func(cfg *crossprocess.Config) {
				cfg.CrossApplicationTracer.Enabled = true
			},
			want: []error{
				crossprocess.ErrConfigMissingEncodingKey,
				crossprocess.ErrConfigMissingCrossProcessID,
			},
		},
		{
			label: "synthetics-no-key",
			setup: func(cfg *crossprocess.Config) {
				cfg.Synthetics.Enabled = true
			},
			want: []error{crossprocess.ErrConfigMissingEncodingKey},
		},
		{
			label: "dt-no-id",
			setup: func(cfg *crossprocess.Config) {
				cfg.DistributedTracing.Enabled = true
			},
			want: []error{crossprocess.ErrConfigMissingCrossProcessID},
		},
		{
			label: "invalid-id",
			setup: func(cfg *crossprocess.Config) {
				cfg.ConnectReply.CrossProcessID = "foo"
			},
			want: []error{crossprocess.ErrConfigInvalidCrossProcessID},
		},
		{
			label: "invalid-level",
			setup: func(cfg *crossprocess.Config) {
				cfg.Log.Level = "verbose"
			},
			want: []error{crossprocess.ErrConfigInvalidLogLevel},
		},
		{
			label: "invalid-breaker",
			setup: func(cfg *crossprocess.Config) {
				cfg.Client.CircuitBreaker = &httpbp.BreakerConfig{FailureThreshold: 1.5}
			},
			want: []error{crossprocess.ErrConfigInvalidBreaker},
		},
	} {
		t.Run(c.label, func(t *testing.T) {
			var cfg crossprocess.Config
			c.setup(&cfg)
			errs := multierr.Errors(cfg.Validate())
			if len(errs) != len(c.want) {
				t.Fatalf("Expected %d errors, got %v", len(c.want), errs)
			}
			for i, err := range errs {
				if !errors.Is(err, c.want[i]) {
					t.Errorf("Error #%d: expected %v, got %v", i, c.want[i], err)
				}
			}
		})
	}
}

func TestDecodeConfigYAML(t *testing.T) {
	cfg, err := crossprocess.DecodeConfigYAML(strings.NewReader(validYAML))
	if err != nil {
		t.Fatal(err)
	}

	wantOptions := txn.Options{
		CrossProcessEnabled:                     true,
		DistributedTracingEnabled:               true,
		DistributedTracingExcludeNewRelicHeader: true,
		SyntheticsEnabled:                       true,
	}
	if diff := cmp.Diff(wantOptions, cfg.Options()); diff != "" {
		t.Errorf("Options mismatch (-want +got):\n%s", diff)
	}

	wantReply := &txn.ConnectReply{
		EncodingKey:       encodingKey,
		CrossProcessID:    "12345#2",
		TrustedAccountIDs: set.Int64SliceToSet([]int64{1, 12345}),
	}
	if diff := cmp.Diff(wantReply, cfg.ConnectReply.ToConnectReply()); diff != "" {
		t.Errorf("ConnectReply mismatch (-want +got):\n%s", diff)
	}
	if cfg.ConnectReply.TrustedAccountKey != "1" {
		t.Errorf("TrustedAccountKey got %q", cfg.ConnectReply.TrustedAccountKey)
	}
	wantClient := crossprocess.ClientConfig{
		RetryAttempts: 3,
		CircuitBreaker: &httpbp.BreakerConfig{
			MinRequestsToTrip: 10,
			FailureThreshold:  0.5,
			Timeout:           30 * time.Second,
		},
	}
	if diff := cmp.Diff(wantClient, cfg.Client); diff != "" {
		t.Errorf("ClientConfig mismatch (-want +got):\n%s", diff)
	}
	if cfg.Log.Level != "" {
		t.Errorf("Expected an empty log level, got %q", cfg.Log.Level)
	}

	t.Run("invalid", func(t *testing.T) {
		_, err := crossprocess.DecodeConfigYAML(strings.NewReader("crossApplicationTracer:\n  enabled: true\n"))
		errs := multierr.Errors(err)
		if len(errs) != 2 || !errors.Is(errs[0], crossprocess.ErrConfigMissingEncodingKey) {
			t.Errorf("Expected ErrConfigMissingEncodingKey first, got %v", err)
		}
	})

	t.Run("unknown-key", func(t *testing.T) {
		if _, err := crossprocess.DecodeConfigYAML(strings.NewReader("appname: app\n")); err == nil {
			t.Error("Expected error on unknown key")
		}
	})
}

func TestParseConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "crossprocess.yaml")
	if err := os.WriteFile(filename, []byte(validYAML+"log:\n  level: warn\n"), 0600); err != nil {
		t.Fatalf("SETUP: failed to write file: %s", err)
	}

	cfg, err := crossprocess.ParseConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AppName != "app" || cfg.Log.Level != log.WarnLevel {
		t.Errorf("Unexpected config %+v", cfg)
	}

	t.Run("default-path", func(t *testing.T) {
		orig := configbp.ConfigPath
		t.Cleanup(func() { configbp.ConfigPath = orig })

		configbp.ConfigPath = filename
		if _, err := crossprocess.ParseConfig(""); err != nil {
			t.Errorf("Expected config from ConfigPath, got %v", err)
		}

		configbp.ConfigPath = ""
		if _, err := crossprocess.ParseConfig(""); err == nil {
			t.Error("Expected error without any path")
		}
	})
}
