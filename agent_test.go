package crossprocess_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/multierr"

	crossprocess "github.com/reddit/crossprocess.go"
	"github.com/reddit/crossprocess.go/cat"
	"github.com/reddit/crossprocess.go/configbp"
	"github.com/reddit/crossprocess.go/httpbp"
	"github.com/reddit/crossprocess.go/outbound"
	"github.com/reddit/crossprocess.go/prometheusbp"
	"github.com/reddit/crossprocess.go/prometheusbp/promtest"
	"github.com/reddit/crossprocess.go/set"
	"github.com/reddit/crossprocess.go/txn"
)

func newAgent(t *testing.T, appName, crossProcessID string, configure ...func(*crossprocess.Config)) *crossprocess.Agent {
	t.Helper()
	var cfg crossprocess.Config
	cfg.AppName = appName
	cfg.CrossApplicationTracer.Enabled = true
	cfg.Synthetics.Enabled = true
	cfg.ConnectReply = crossprocess.ConnectReplyConfig{
		EncodingKey:       encodingKey,
		CrossProcessID:    crossProcessID,
		TrustedAccountIDs: configbp.Int64Set(set.Int64SliceToSet([]int64{1, 12345})),
	}
	for _, f := range configure {
		f(&cfg)
	}
	agent, err := crossprocess.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := agent.Close(); err != nil {
			t.Error(err)
		}
	})
	return agent
}

func TestNewInvalid(t *testing.T) {
	var cfg crossprocess.Config
	cfg.DistributedTracing.Enabled = true
	_, err := crossprocess.New(cfg)
	errs := multierr.Errors(err)
	if len(errs) != 1 || !errors.Is(errs[0], crossprocess.ErrConfigMissingCrossProcessID) {
		t.Errorf("Expected ErrConfigMissingCrossProcessID, got %v", err)
	}
}

func TestAgentNewTransaction(t *testing.T) {
	agent := newAgent(t, "app", "1#1")
	queueStart := time.Now().Add(-time.Second)
	tx := agent.NewTransaction("WebTransaction/Go/hello", queueStart)

	if tx.AppName() != "app" || tx.Name() != "WebTransaction/Go/hello" {
		t.Errorf("Unexpected transaction names %q %q", tx.AppName(), tx.Name())
	}
	if tx.ConnectReply().CrossProcessID != "1#1" {
		t.Errorf("Unexpected connect reply %+v", tx.ConnectReply())
	}
	if !tx.Options().CrossProcessEnabled || tx.Options().DistributedTracingEnabled {
		t.Errorf("Unexpected options %+v", tx.Options())
	}
	if tx.QueueTime() < time.Second {
		t.Errorf("Expected queue time of at least 1s, got %v", tx.QueueTime())
	}

	headers := agent.OutboundHeaders(tx)
	for _, name := range []string{cat.IDHeader, cat.TransactionHeader} {
		if headers[name] == "" {
			t.Errorf("Expected %s in %v", name, headers)
		}
	}
	if _, ok := headers[outbound.TraceParentHeader]; ok {
		t.Errorf("Expected no distributed tracing header in %v", headers)
	}
}

func TestAgentRoundTrip(t *testing.T) {
	server := newAgent(t, "external", "12345#2")
	client := newAgent(t, "app", "1#1")

	ts := httptest.NewServer(server.NewHandler(
		"WebTransaction/Go/external",
		func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, ok := httpbp.TransactionFromContext(ctx); !ok {
				return errors.New("no transaction in context")
			}
			_, err := io.WriteString(w, "ok")
			return err
		},
	))
	t.Cleanup(ts.Close)
	host := strings.TrimPrefix(ts.URL, "http://")

	serverMetric := promtest.NewPrometheusMetricTest(
		t,
		"client application",
		prometheusbp.MetricDuration(),
		"ClientApplication/1#1/all",
	)
	clientMetric := promtest.NewPrometheusMetricTest(
		t,
		"external app",
		prometheusbp.MetricDuration(),
		"ExternalApp/"+host+"/12345#2/all",
	)

	tx := client.NewTransaction("WebTransaction/Go/client", time.Time{})
	ctx := httpbp.ContextWithTransaction(context.Background(), tx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(crossprocess.RequestStartHeader, "t=1600000000")
	resp, err := client.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if _, err := io.ReadAll(resp.Body); err != nil {
		t.Fatal(err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Unexpected status %d", resp.StatusCode)
	}
	appData, err := cat.DecodeAppData(
		resp.Header.Get(cat.AppDataHeader),
		encodingKey,
		set.Int64SliceToSet([]int64{12345}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if appData.TransactionName != "WebTransaction/Go/external" {
		t.Errorf("TransactionName got %q", appData.TransactionName)
	}
	if appData.QueueTime <= 0 {
		t.Errorf("Expected the queue time from %s, got %v", crossprocess.RequestStartHeader, appData.QueueTime)
	}
	if !tx.Flags().Has(txn.FlagCATOutbound) {
		t.Error("Expected FlagCATOutbound on the client transaction")
	}
	serverMetric.CheckDelta(1)
	clientMetric.CheckDelta(1)
}

func TestAgentClientRetries(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	t.Cleanup(ts.Close)

	agent := newAgent(t, "app", "1#1", func(cfg *crossprocess.Config) {
		cfg.Client.RetryAttempts = 2
		cfg.Client.CircuitBreaker = &httpbp.BreakerConfig{
			MinRequestsToTrip: 10,
			FailureThreshold:  0.5,
			Timeout:           time.Minute,
		}
	})
	resp, err := agent.Client().Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected the retry to succeed, got %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("Expected 2 hits, got %d", got)
	}
}
