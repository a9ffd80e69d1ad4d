// Package prometheusbpint holds the prometheus registry shared by the
// packages of this module.
package prometheusbpint

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GlobalRegistry is the registerer every metric in this module is registered
// with.
//
// It defaults to prometheus.DefaultRegisterer so the metrics show up on the
// host process' default /metrics handler.
var GlobalRegistry prometheus.Registerer = prometheus.DefaultRegisterer
