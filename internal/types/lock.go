package types

import (
	"fmt"
	"time"
)

const DefaultLockTimeout = 30 * time.Second

// LockScope namespaces advisory lock keys per contention domain.
type LockScope string

const (
	// LockScopeInventory serializes stock adjustments per variant.
	LockScopeInventory LockScope = "inventory"
	// LockScopeSubscription serializes webhook handlers racing on the same
	// provider subscription.
	LockScopeSubscription LockScope = "subscription"
	// LockScopeOrder serializes settlement of one order across concurrent
	// webhook deliveries.
	LockScopeOrder LockScope = "order"
)

// LockRequest asks for a transaction-scoped advisory lock. The lock is
// released automatically on commit or rollback.
type LockRequest struct {
	Scope LockScope
	ID    string
	// Timeout bounds the wait for the lock. Nil means DefaultLockTimeout;
	// zero or negative means fail fast.
	Timeout *time.Duration
}

// Key returns the string hashed into the postgres advisory lock key space.
func (r LockRequest) Key() string {
	return fmt.Sprintf("%s:%s", r.Scope, r.ID)
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return DefaultLockTimeout
	}
	return *r.Timeout
}
