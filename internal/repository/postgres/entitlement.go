package postgres

import (
	"context"
	"database/sql"

	"github.com/inkpress/inkpress/internal/domain/entitlement"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/postgres"
	"github.com/inkpress/inkpress/internal/types"
)

type entitlementRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

func NewEntitlementRepository(client *postgres.Client, log *logger.Logger) entitlement.Repository {
	return &entitlementRepository{client: client, logger: log}
}

const entitlementColumns = `id, user_id, work_id, source_type, source_id, expires_at,
	status, created_at, updated_at, created_by, updated_by`

// Upsert relies on the unique (user_id, work_id) constraint: the insert
// either lands a new grant or refreshes source and expiry of the existing
// row. Re-granting from the same source is therefore a no-op by row count.
func (r *entitlementRepository) Upsert(ctx context.Context, e *entitlement.Entitlement) error {
	_, err := r.client.Querier(ctx).ExecContext(ctx, `
		INSERT INTO entitlements (`+entitlementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, work_id) DO UPDATE
		SET source_type = EXCLUDED.source_type,
			source_id = EXCLUDED.source_id,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`,
		e.ID, e.UserID, e.WorkID, e.SourceType, e.SourceID, e.ExpiresAt,
		e.Status, e.CreatedAt, e.UpdatedAt, e.CreatedBy, e.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to upsert entitlement").
			WithReportableDetails(map[string]any{
				"user_id": e.UserID,
				"work_id": e.WorkID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *entitlementRepository) GetByUserWork(ctx context.Context, userID, workID string) (*entitlement.Entitlement, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+entitlementColumns+` FROM entitlements WHERE user_id = $1 AND work_id = $2
	`, userID, workID)

	e, err := scanEntitlement(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("entitlement not found").
			WithHint("Entitlement not found").
			WithReportableDetails(map[string]any{
				"user_id": userID,
				"work_id": workID,
			}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get entitlement").
			Mark(ierr.ErrDatabase)
	}
	return e, nil
}

func (r *entitlementRepository) ListByUser(ctx context.Context, userID string) ([]*entitlement.Entitlement, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT `+entitlementColumns+` FROM entitlements WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list entitlements").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()
	return collectEntitlements(rows)
}

func (r *entitlementRepository) ListBySource(ctx context.Context, sourceType types.EntitlementSource, sourceID string) ([]*entitlement.Entitlement, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT `+entitlementColumns+` FROM entitlements
		WHERE source_type = $1 AND source_id = $2 ORDER BY created_at
	`, sourceType, sourceID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list entitlements by source").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()
	return collectEntitlements(rows)
}

// DeleteByUserWork is idempotent: deleting a missing row succeeds.
func (r *entitlementRepository) DeleteByUserWork(ctx context.Context, userID, workID string) error {
	_, err := r.client.Querier(ctx).ExecContext(ctx, `
		DELETE FROM entitlements WHERE user_id = $1 AND work_id = $2
	`, userID, workID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to revoke entitlement").
			WithReportableDetails(map[string]any{
				"user_id": userID,
				"work_id": workID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func collectEntitlements(rows *sql.Rows) ([]*entitlement.Entitlement, error) {
	var out []*entitlement.Entitlement
	for rows.Next() {
		e, err := scanEntitlement(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan entitlement").
				Mark(ierr.ErrDatabase)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list entitlements").
			Mark(ierr.ErrDatabase)
	}
	return out, nil
}

func scanEntitlement(row rowScanner) (*entitlement.Entitlement, error) {
	var (
		e         entitlement.Entitlement
		expiresAt sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.WorkID, &e.SourceType, &e.SourceID, &expiresAt,
		&e.Status, &e.CreatedAt, &e.UpdatedAt, &e.CreatedBy, &e.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		e.ExpiresAt = &t
	}
	return &e, nil
}
