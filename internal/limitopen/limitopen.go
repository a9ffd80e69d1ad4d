// Package limitopen opens files for reading with size limits.
package limitopen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reddit/crossprocess.go/internal/prometheusbpint"
	"github.com/reddit/crossprocess.go/log"
)

const pathLabel = "path"

var (
	sizeGauge = promauto.With(prometheusbpint.GlobalRegistry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "crossprocess_config_file_size_bytes",
		Help: "The size of the file opened by limitopen.OpenWithLimit",
	}, []string{pathLabel})

	softLimitCounter = promauto.With(prometheusbpint.GlobalRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "crossprocess_config_softlimit_violation_total",
		Help: "The total number of files opened by limitopen.OpenWithLimit larger than the soft limit",
	}, []string{pathLabel})
)

// Open opens a path for read.
//
// Unlike os.Open, the returned reader never reads beyond the size the system
// reported when opening the file, and that size is returned as well.
//
// It never returns both non-nil r and err.
// When err is nil it's the caller's responsibility to close r.
func Open(path string) (r io.ReadCloser, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("limitopen.Open: %w", err)
	}
	stats, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("limitopen.Open: failed to get the size of %q: %w", path, err)
	}
	size = stats.Size()
	return readCloser{
		Reader: io.LimitReader(f, size),
		Closer: f,
	}, size, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// OpenWithLimit calls Open with limit checks.
//
// The size of the file is always reported to the
// crossprocess_config_file_size_bytes gauge, labelled by file name.
// When softLimit > 0 and the file is larger, it's logged at warning level and
// counted. When hardLimit > 0 and the file is larger, the file is closed and
// an error is returned.
func OpenWithLimit(path string, softLimit, hardLimit int64) (io.ReadCloser, error) {
	r, size, err := Open(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	sizeGauge.WithLabelValues(name).Set(float64(size))

	if softLimit > 0 && size > softLimit {
		log.Warnw(
			"limitopen.OpenWithLimit: file size > soft limit",
			"path", path,
			"size", size,
			"limit", softLimit,
		)
		softLimitCounter.WithLabelValues(name).Inc()
	}

	if hardLimit > 0 && size > hardLimit {
		r.Close()
		return nil, fmt.Errorf(
			"limitopen.OpenWithLimit: file size %d > hard limit %d for path %q",
			size,
			hardLimit,
			path,
		)
	}
	return r, nil
}
