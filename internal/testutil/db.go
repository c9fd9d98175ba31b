package testutil

import (
	"context"
	"sync"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/postgres"
	"github.com/inkpress/inkpress/internal/types"
)

type fakeTxKey struct{}

// fakeTxState tracks the advisory locks the current fake transaction holds.
type fakeTxState struct {
	mu   sync.Mutex
	held map[string]*sync.Mutex
}

// FakeClient implements postgres.IClient in process. Transactions have no
// rollback, but advisory locks serialize for real: two goroutines locking
// the same key inside WithTx run their bodies one after the other, which
// is the property the inventory and fulfillment tests depend on.
type FakeClient struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFakeClient() *FakeClient {
	return &FakeClient{locks: make(map[string]*sync.Mutex)}
}

var _ postgres.IClient = (*FakeClient)(nil)

func (c *FakeClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		// Nested call joins the enclosing transaction.
		return fn(ctx)
	}
	state := &fakeTxState{held: make(map[string]*sync.Mutex)}
	err := fn(context.WithValue(ctx, fakeTxKey{}, state))
	state.mu.Lock()
	for _, m := range state.held {
		m.Unlock()
	}
	state.held = make(map[string]*sync.Mutex)
	state.mu.Unlock()
	return err
}

func (c *FakeClient) LockKey(ctx context.Context, req types.LockRequest) error {
	state, ok := ctx.Value(fakeTxKey{}).(*fakeTxState)
	if !ok {
		return ierr.NewError("advisory lock requires a transaction").
			WithHint("Lock acquisition outside a transaction").
			Mark(ierr.ErrInternal)
	}

	key := req.Key()
	state.mu.Lock()
	if _, held := state.held[key]; held {
		// Advisory locks are reentrant within one transaction.
		state.mu.Unlock()
		return nil
	}
	state.mu.Unlock()

	c.mu.Lock()
	m, ok := c.locks[key]
	if !ok {
		m = &sync.Mutex{}
		c.locks[key] = m
	}
	c.mu.Unlock()

	m.Lock()
	state.mu.Lock()
	state.held[key] = m
	state.mu.Unlock()
	return nil
}
