package httpbp_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/reddit/crossprocess.go/cat"
	"github.com/reddit/crossprocess.go/dt"
	"github.com/reddit/crossprocess.go/httpbp"
	"github.com/reddit/crossprocess.go/outbound"
	"github.com/reddit/crossprocess.go/txn"
)

func newServer(t *testing.T, servers chan<- *txn.Transaction) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(httpbp.NewHandler(
		"WebTransaction/Go/external",
		writeBody,
		httpbp.InjectCrossProcess(func(*http.Request) *txn.Transaction {
			tx := newTxn("12345#2", catOptions(), nil)
			servers <- tx
			return tx
		}),
	))
	t.Cleanup(ts.Close)
	return ts
}

func get(ctx context.Context, t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if _, err := io.ReadAll(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCrossProcessRoundTrip(t *testing.T) {
	servers := make(chan *txn.Transaction, 1)
	ts := newServer(t, servers)

	rec := &fakeRecorder{}
	client := newTxn("1#1", catOptions(), rec)
	ctx := httpbp.ContextWithTransaction(context.Background(), client)

	resp := get(ctx, t, httpbp.NewClient(nil), ts.URL)
	server := <-servers

	if got := server.CAT().InboundID; got != "1#1" {
		t.Errorf("server InboundID got %q", got)
	}
	if got := server.CAT().InboundGUID; got != client.GUID() {
		t.Errorf("server InboundGUID got %q, want %q", got, client.GUID())
	}
	if resp.Header.Get(cat.AppDataHeader) == "" {
		t.Error("Expected the app data header in the response")
	}
	if !client.Flags().Has(txn.FlagCATOutbound) {
		t.Error("Expected FlagCATOutbound on the client")
	}

	names := rec.get()
	if len(names) != 1 {
		t.Fatalf("Expected exactly one metric, got %v", names)
	}
	host := strings.TrimPrefix(ts.URL, "http://")
	if want := "ExternalApp/" + host + "/12345#2/all"; names[0] != want {
		t.Errorf("metric got %q, want %q", names[0], want)
	}
}

func TestCrossProcessConcurrentCalls(t *testing.T) {
	const calls = 8
	servers := make(chan *txn.Transaction, calls)
	ts := newServer(t, servers)

	rec := &fakeRecorder{}
	client := newTxn("1#1", catOptions(), rec)
	ctx := httpbp.ContextWithTransaction(context.Background(), client)
	httpClient := httpbp.NewClient(nil)

	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
			if err != nil {
				t.Error(err)
				return
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				t.Error(err)
				return
			}
			defer resp.Body.Close()
			if _, err := io.ReadAll(resp.Body); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if !client.Flags().Has(txn.FlagCATOutbound) {
		t.Error("Expected FlagCATOutbound on the client")
	}
	if got := len(rec.get()); got != calls {
		t.Errorf("Expected %d external metrics, got %d", calls, got)
	}
	for i := 0; i < calls; i++ {
		if got := (<-servers).CAT().InboundGUID; got != client.GUID() {
			t.Errorf("server InboundGUID got %q, want %q", got, client.GUID())
		}
	}
}

func TestCrossProcessDistributedTracing(t *testing.T) {
	headers := make(chan http.Header, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
	}))
	t.Cleanup(ts.Close)

	client := newTxn("1#1", txn.Options{CrossProcessEnabled: true, DistributedTracingEnabled: true}, nil)
	ctx := httpbp.ContextWithTransaction(context.Background(), client)
	get(ctx, t, httpbp.NewClient(dt.Tracer{Sampled: true}), ts.URL)

	h := <-headers
	for _, name := range []string{outbound.NewRelicHeader, outbound.TraceParentHeader, outbound.TraceStateHeader} {
		if h.Get(name) == "" {
			t.Errorf("Expected header %q, got %v", name, h)
		}
	}
	if h.Get(cat.IDHeader) != "" || h.Get(cat.TransactionHeader) != "" {
		t.Errorf("Expected no CAT headers with distributed tracing, got %v", h)
	}
}

func TestCrossProcessNoTransaction(t *testing.T) {
	headers := make(chan http.Header, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
	}))
	t.Cleanup(ts.Close)

	get(context.Background(), t, httpbp.NewClient(nil), ts.URL)
	h := <-headers
	if h.Get(cat.IDHeader) != "" {
		t.Errorf("Expected no CAT headers, got %v", h)
	}
}

func TestWrapTransportOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpbp.ClientMiddleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return roundTripper(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}
	base := roundTripper(func(*http.Request) (*http.Response, error) {
		order = append(order, "base")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})
	rt := httpbp.WrapTransport(base, mw("a"), mw("b"))
	if _, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "/", nil)); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ","); got != "a,b,base" {
		t.Errorf("order got %s", got)
	}
}

type roundTripper func(*http.Request) (*http.Response, error)

func (f roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
