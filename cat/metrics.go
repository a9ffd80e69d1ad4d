package cat

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reddit/crossprocess.go/internal/prometheusbpint"
)

const (
	headerLabel  = "header"
	outcomeLabel = "outcome"
)

// Values of outcomeLabel.
const (
	outcomeOK        = "ok"
	outcomeMalformed = "malformed"
	outcomeUntrusted = "untrusted"
	outcomeRejected  = "rejected"
)

var headersDecodedTotal = promauto.With(prometheusbpint.GlobalRegistry).NewCounterVec(prometheus.CounterOpts{
	Name: "crossprocess_headers_decoded_total",
	Help: "Total number of inbound cross process headers decoded, by outcome",
}, []string{
	headerLabel,
	outcomeLabel,
})

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrUntrustedAccount):
		return outcomeUntrusted
	case errors.Is(err, ErrDisabled), errors.Is(err, ErrAlreadySet):
		return outcomeRejected
	default:
		return outcomeMalformed
	}
}

func observeDecode(header string, err error) {
	headersDecodedTotal.WithLabelValues(header, outcome(err)).Inc()
}
