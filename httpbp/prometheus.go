package httpbp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reddit/crossprocess.go/internal/prometheusbpint"
)

const (
	endpointLabel = "http_endpoint"
	emittedLabel  = "app_data_emitted"
	protocolLabel = "protocol"
	answeredLabel = "app_data_received"
	hostLabel     = "host"
)

var (
	serverAppDataTotal = promauto.With(prometheusbpint.GlobalRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "crossprocess_http_server_responses_total",
		Help: "Total responses written by InjectCrossProcess, by whether the CAT response header was added",
	}, []string{
		endpointLabel,
		emittedLabel,
	})

	clientRequestsTotal = promauto.With(prometheusbpint.GlobalRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "crossprocess_http_client_requests_total",
		Help: "Total requests sent through the CrossProcess client middleware, by header family and whether a valid CAT response header came back",
	}, []string{
		protocolLabel,
		answeredLabel,
	})

	breakerClosed = promauto.With(prometheusbpint.GlobalRegistry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "crossprocess_http_client_breaker_closed",
		Help: "0 means the circuit breaker of the host is currently tripped, 1 otherwise (closed)",
	}, []string{
		hostLabel,
	})
)
