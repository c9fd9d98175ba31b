package postgres

import (
	"context"

	"github.com/inkpress/inkpress/internal/types"
)

// IClient is the transaction surface services depend on. The concrete
// Client implements it against postgres; tests substitute an in-process
// double with the same locking semantics.
type IClient interface {
	// WithTx runs fn inside a transaction carried on the context; nested
	// calls join the enclosing transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// LockKey acquires a transaction-scoped advisory lock. Must be called
	// inside WithTx.
	LockKey(ctx context.Context, req types.LockRequest) error
}

var _ IClient = (*Client)(nil)
