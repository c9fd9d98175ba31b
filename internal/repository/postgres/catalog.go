package postgres

import (
	"context"
	"database/sql"

	"github.com/inkpress/inkpress/internal/domain/catalog"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/postgres"
)

type catalogRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

// NewCatalogRepository reads the works table the content side maintains.
// Commerce never writes it.
func NewCatalogRepository(client *postgres.Client, log *logger.Logger) catalog.Repository {
	return &catalogRepository{client: client, logger: log}
}

func (r *catalogRepository) GetWork(ctx context.Context, id string) (*catalog.Work, error) {
	q := r.client.Querier(ctx)
	var w catalog.Work
	err := q.QueryRowContext(ctx, `
		SELECT id, title, type, published FROM works WHERE id = $1
	`, id).Scan(&w.ID, &w.Title, &w.Type, &w.Published)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("work %s not found", id).
				WithHint("Work not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load work").
			Mark(ierr.ErrDatabase)
	}
	return &w, nil
}

func (r *catalogRepository) ListPublishedByType(ctx context.Context, workType string) ([]*catalog.Work, error) {
	q := r.client.Querier(ctx)
	rows, err := q.QueryContext(ctx, `
		SELECT id, title, type, published FROM works
		WHERE type = $1 AND published = TRUE
		ORDER BY id
	`, workType)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list works").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var works []*catalog.Work
	for rows.Next() {
		var w catalog.Work
		if err := rows.Scan(&w.ID, &w.Title, &w.Type, &w.Published); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan work").
				Mark(ierr.ErrDatabase)
		}
		works = append(works, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list works").
			Mark(ierr.ErrDatabase)
	}
	return works, nil
}
