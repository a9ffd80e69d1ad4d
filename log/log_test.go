package log

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	InitLoggerJSON(DebugLevel)
	defer InitLogger(NopLevel)
	Debugw("This is a log", "int64", 123)
}

func TestToZapLevel(t *testing.T) {
	for _, c := range []struct {
		level Level
		want  zapcore.Level
	}{
		{DebugLevel, zapcore.DebugLevel},
		{InfoLevel, zapcore.InfoLevel},
		{WarnLevel, zapcore.WarnLevel},
		{ErrorLevel, zapcore.ErrorLevel},
		{NopLevel, ZapNopLevel},
		{"", ZapNopLevel},
	} {
		t.Run(string(c.level), func(t *testing.T) {
			if got := c.level.ToZapLevel(); got != c.want {
				t.Errorf("ToZapLevel() got %v, want %v", got, c.want)
			}
		})
	}
}

func TestLevelIsValid(t *testing.T) {
	for _, l := range []Level{"", NopLevel, DebugLevel, InfoLevel, WarnLevel, ErrorLevel} {
		if !l.IsValid() {
			t.Errorf("Expected %q to be valid", l)
		}
	}
	for _, l := range []Level{"verbose", "DEBUG", "fatal"} {
		if l.IsValid() {
			t.Errorf("Expected %q to be invalid", l)
		}
	}
}

func TestInitNop(t *testing.T) {
	InitLogger(DebugLevel)
	if !With().Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level to be enabled")
	}
	InitLogger(NopLevel)
	if With().Desugar().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("Expected nop logger")
	}
}

func TestAttach(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := ReplaceLogger(zap.New(core))
	defer restore()

	ctx := Attach(context.Background(), AttachArgs{
		GUID:            "0123456789abcdef",
		TransactionName: "WebTransaction/Go/index",
		AdditionalPairs: map[string]interface{}{
			"foo": "bar",
		},
	})
	C(ctx).Debugw("hello")

	entries := logs.AllUntimed()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	for k, want := range map[string]string{
		guidKey:    "0123456789abcdef",
		txnNameKey: "WebTransaction/Go/index",
		"foo":      "bar",
	} {
		if got := fields[k]; got != want {
			t.Errorf("field %q got %v, want %q", k, got, want)
		}
	}
	if _, ok := fields[crossProcessID]; ok {
		t.Errorf("Expected empty %q to be omitted, got %v", crossProcessID, fields)
	}
}

func TestCFallback(t *testing.T) {
	if C(context.Background()) != logger {
		t.Error("Expected C to fall back to the global logger")
	}
}
