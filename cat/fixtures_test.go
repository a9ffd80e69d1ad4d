package cat_test

import (
	"testing"
	"time"

	"github.com/reddit/crossprocess.go/obfuscate"
	"github.com/reddit/crossprocess.go/set"
	"github.com/reddit/crossprocess.go/txn"
)

const encodingKey = "d67afc830dab717fd163bfcb0b8b88423e9a1a3b"

type recorded struct {
	name string
	d    time.Duration
}

type fakeRecorder struct {
	metrics []recorded
}

func (r *fakeRecorder) RecordDuration(name string, d time.Duration) {
	r.metrics = append(r.metrics, recorded{name: name, d: d})
}

type txnArgs struct {
	crossProcessID string
	name           string
	options        *txn.Options
	metrics        txn.MetricRecorder
	now            func() time.Time
	start          time.Time
	queueStart     time.Time
}

func allEnabled() *txn.Options {
	return &txn.Options{
		CrossProcessEnabled: true,
		SyntheticsEnabled:   true,
	}
}

func newTxn(args txnArgs) *txn.Transaction {
	opts := args.options
	if opts == nil {
		opts = allEnabled()
	}
	return txn.New(txn.Args{
		Reply: &txn.ConnectReply{
			EncodingKey:       encodingKey,
			CrossProcessID:    args.crossProcessID,
			TrustedAccountIDs: set.Int64SliceToSet([]int64{12345}),
		},
		Options:    *opts,
		AppName:    "app",
		Name:       args.name,
		Metrics:    args.metrics,
		Now:        args.now,
		Start:      args.start,
		QueueStart: args.queueStart,
	})
}

func mustObfuscate(t *testing.T, plain string) string {
	t.Helper()
	s, err := obfuscate.Obfuscate(plain, encodingKey)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustDeobfuscate(t *testing.T, encoded string) string {
	t.Helper()
	s, err := obfuscate.Deobfuscate(encoded, encodingKey)
	if err != nil {
		t.Fatal(err)
	}
	return s
}
