package postgres

import (
	"context"
	"database/sql"

	"github.com/inkpress/inkpress/internal/domain/inventory"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/postgres"
	"github.com/inkpress/inkpress/internal/types"
)

type inventoryRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

func NewInventoryRepository(client *postgres.Client, log *logger.Logger) inventory.Repository {
	return &inventoryRepository{client: client, logger: log}
}

const movementColumns = `id, price_id, before_qty, delta, after_qty, reason, reference_id,
	status, created_at, updated_at, created_by, updated_by`

func (r *inventoryRepository) CreateMovement(ctx context.Context, m *inventory.Movement) error {
	_, err := r.client.Querier(ctx).ExecContext(ctx, `
		INSERT INTO inventory_movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		m.ID, m.PriceID, m.BeforeQty, m.Delta, m.AfterQty, m.Reason, nullString(m.ReferenceID),
		m.Status, m.CreatedAt, m.UpdatedAt, m.CreatedBy, m.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record inventory movement").
			WithReportableDetails(map[string]any{
				"price_id": m.PriceID,
				"delta":    m.Delta,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *inventoryRepository) Balance(ctx context.Context, priceID string) (int64, error) {
	var balance int64
	err := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(delta), 0) FROM inventory_movements WHERE price_id = $1
	`, priceID).Scan(&balance)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to read inventory balance").
			WithReportableDetails(map[string]any{"price_id": priceID}).
			Mark(ierr.ErrDatabase)
	}
	return balance, nil
}

func (r *inventoryRepository) ListByReference(ctx context.Context, reason types.MovementReason, referenceID string) ([]*inventory.Movement, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT `+movementColumns+` FROM inventory_movements
		WHERE reason = $1 AND reference_id = $2 ORDER BY created_at, id
	`, reason, referenceID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list inventory movements").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()
	return collectMovements(rows)
}

func (r *inventoryRepository) ListByPrice(ctx context.Context, priceID string) ([]*inventory.Movement, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT `+movementColumns+` FROM inventory_movements
		WHERE price_id = $1 ORDER BY created_at, id
	`, priceID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list inventory movements").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()
	return collectMovements(rows)
}

func collectMovements(rows *sql.Rows) ([]*inventory.Movement, error) {
	var out []*inventory.Movement
	for rows.Next() {
		var (
			m           inventory.Movement
			referenceID sql.NullString
		)
		err := rows.Scan(
			&m.ID, &m.PriceID, &m.BeforeQty, &m.Delta, &m.AfterQty, &m.Reason, &referenceID,
			&m.Status, &m.CreatedAt, &m.UpdatedAt, &m.CreatedBy, &m.UpdatedBy,
		)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan inventory movement").
				Mark(ierr.ErrDatabase)
		}
		m.ReferenceID = referenceID.String
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list inventory movements").
			Mark(ierr.ErrDatabase)
	}
	return out, nil
}
