// Package catalog is the read-only collaborator contract for content works.
// The content side of the platform owns the implementation; commerce only
// needs to resolve which works a product grant covers.
package catalog

import "context"

// Work is the catalog's view of one content work.
type Work struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Published bool   `json:"published"`
}

// Repository is the read-only lookup used by entitlement derivation.
type Repository interface {
	GetWork(ctx context.Context, id string) (*Work, error)
	// ListPublishedByType returns every published work of the given type.
	// Backs all_published grant scopes.
	ListPublishedByType(ctx context.Context, workType string) ([]*Work, error)
}
