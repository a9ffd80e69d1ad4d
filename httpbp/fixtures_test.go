package httpbp_test

import (
	"sync"
	"time"

	"github.com/reddit/crossprocess.go/set"
	"github.com/reddit/crossprocess.go/txn"
)

const encodingKey = "d67afc830dab717fd163bfcb0b8b88423e9a1a3b"

type fakeRecorder struct {
	lock  sync.Mutex
	names []string
}

func (r *fakeRecorder) RecordDuration(name string, _ time.Duration) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.names = append(r.names, name)
}

func (r *fakeRecorder) get() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.names...)
}

func newTxn(crossProcessID string, opts txn.Options, rec txn.MetricRecorder) *txn.Transaction {
	return txn.New(txn.Args{
		Reply: &txn.ConnectReply{
			EncodingKey:       encodingKey,
			CrossProcessID:    crossProcessID,
			TrustedAccountIDs: set.Int64SliceToSet([]int64{1, 12345}),
		},
		Options: opts,
		AppName: "app",
		Metrics: rec,
	})
}

func catOptions() txn.Options {
	return txn.Options{CrossProcessEnabled: true, SyntheticsEnabled: true}
}
