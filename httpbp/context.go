package httpbp

import (
	"context"

	"github.com/reddit/crossprocess.go/txn"
)

type contextKeyType struct{}

var transactionKey contextKeyType

// ContextWithTransaction returns a copy of ctx carrying t.
func ContextWithTransaction(ctx context.Context, t *txn.Transaction) context.Context {
	return context.WithValue(ctx, transactionKey, t)
}

// TransactionFromContext returns the transaction attached to ctx by
// ContextWithTransaction or InjectCrossProcess.
func TransactionFromContext(ctx context.Context) (*txn.Transaction, bool) {
	t, ok := ctx.Value(transactionKey).(*txn.Transaction)
	return t, ok && t != nil
}
