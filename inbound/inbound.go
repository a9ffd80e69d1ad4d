// Package inbound consumes the CAT response header returned by the peer of
// an outbound request.
package inbound

import (
	"time"

	"github.com/reddit/crossprocess.go/cat"
	"github.com/reddit/crossprocess.go/log"
	"github.com/reddit/crossprocess.go/txn"
)

// ExternalAppMetricPrefix prefixes the metric recorded for an answered
// outbound CAT request. The full name is "ExternalApp/<host>/<peer id>/all".
const ExternalAppMetricPrefix = "ExternalApp/"

// Getter is the read side of a header collection.
//
// http.Header implements it.
type Getter interface {
	Get(key string) string
}

// ProcessResponse decodes the X-NewRelic-App-Data header of the response to
// an outbound request made by t to host, which took d.
//
// It does nothing and returns false when CAT is disabled, when t did not send
// CAT headers, or when the header is missing, malformed or comes from an
// untrusted account. Otherwise it records the ExternalApp metric, and keeps
// the transaction trace of t when the peer asked for it.
func ProcessResponse(t *txn.Transaction, headers Getter, host string, d time.Duration) (*cat.AppData, bool) {
	if !t.Options().CrossProcessEnabled || !t.Flags().Has(txn.FlagCATOutbound) {
		return nil, false
	}
	value := headers.Get(cat.AppDataHeader)
	if value == "" {
		return nil, false
	}
	reply := t.ConnectReply()
	appData, err := cat.DecodeAppData(value, reply.EncodingKey, reply.TrustedAccountIDs)
	if err != nil {
		log.Debugw("Dropping CAT response header", "header", cat.AppDataHeader, "host", host, "err", err)
		return nil, false
	}
	t.RecordMetric(ExternalAppMetricPrefix+host+"/"+appData.CrossProcessID+"/all", d)
	if appData.RecordTT {
		t.SetRecordTT()
	}
	return appData, true
}
