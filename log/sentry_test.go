package log

import (
	"context"
	"errors"
	"testing"

	sentry "github.com/getsentry/sentry-go"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSentryTags(t *testing.T) {
	for _, c := range []struct {
		label    string
		kv       []interface{}
		want     map[string]string
		dangling bool
	}{
		{
			label: "empty",
			want:  map[string]string{},
		},
		{
			label: "normal",
			kv: []interface{}{
				"txn_guid", "0123456789abcdef",
				"status", 2,
				"elapsed", 3.14,
			},
			want: map[string]string{
				"txn_guid": "0123456789abcdef",
				"status":   "2",
				"elapsed":  "3.14",
			},
		},
		{
			label: "ignore-zap-field",
			kv: []interface{}{
				"key1", "value1",
				zap.Field{},
				zapcore.Field{},
			},
			want: map[string]string{"key1": "value1"},
		},
		{
			label: "dangling",
			kv: []interface{}{
				"key1", "value1",
				zap.String("a", "b"),
				"dangling",
			},
			want:     map[string]string{"key1": "value1"},
			dangling: true,
		},
	} {
		t.Run(c.label, func(t *testing.T) {
			got, dangling := sentryTags(c.kv)
			if dangling != c.dangling {
				t.Errorf("Expected dangling to return %v, got %v", c.dangling, dangling)
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("tags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrorWithSentry(t *testing.T) {
	var events []*sentry.Event
	closer, err := InitSentry(SentryConfig{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			events = append(events, event)
			return event
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := closer.Close(); err != nil {
			t.Error(err)
		}
	})

	ctx := Attach(context.Background(), AttachArgs{GUID: "0123456789abcdef"})
	ErrorWithSentry(ctx, "test", errors.New("boom"), "endpoint", "hello")

	if len(events) != 1 {
		t.Fatalf("Expected one event, got %d", len(events))
	}
	e := events[0]
	if len(e.Exception) == 0 || e.Exception[len(e.Exception)-1].Value != "boom" {
		t.Errorf("Unexpected exception %+v", e.Exception)
	}
	for k, want := range map[string]string{
		"endpoint": "hello",
		guidKey:    "0123456789abcdef",
	} {
		if got := e.Tags[k]; got != want {
			t.Errorf("tag %q got %q, want %q", k, got, want)
		}
	}
}
