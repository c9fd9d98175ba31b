package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/inkpress/inkpress/internal/domain/price"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/postgres"
	"github.com/inkpress/inkpress/internal/types"
)

type priceRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

func NewPriceRepository(client *postgres.Client, log *logger.Logger) price.Repository {
	return &priceRepository{client: client, logger: log}
}

const priceColumns = `id, product_id, currency, amount, type, billing_period, billing_period_count,
	trial_days, is_default, inventory_policy, provider_price_id, metadata,
	status, created_at, updated_at, created_by, updated_by`

func (r *priceRepository) Create(ctx context.Context, p *price.Price) error {
	metadataJSON, err := marshalMetadata(p.Metadata)
	if err != nil {
		return ierr.WithError(err).WithHint("Invalid metadata").Mark(ierr.ErrValidation)
	}

	_, err = r.client.Querier(ctx).ExecContext(ctx, `
		INSERT INTO prices (`+priceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		p.ID, p.ProductID, p.Currency, p.Amount.String(), p.Type,
		nullString(string(p.BillingPeriod)), p.BillingPeriodCount,
		p.TrialDays, p.IsDefault, p.InventoryPolicy, nullString(p.ProviderPriceID), metadataJSON,
		p.Status, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return ierr.WithError(err).
				WithHint("Price already exists").
				WithReportableDetails(map[string]any{"id": p.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create price").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *priceRepository) Get(ctx context.Context, id string) (*price.Price, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+priceColumns+` FROM prices WHERE id = $1 AND status != $2
	`, id, types.StatusDeleted)
	return r.scanOne(row, map[string]any{"id": id})
}

func (r *priceRepository) GetByProviderPriceID(ctx context.Context, providerPriceID string) (*price.Price, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+priceColumns+` FROM prices WHERE provider_price_id = $1 AND status != $2
	`, providerPriceID, types.StatusDeleted)
	return r.scanOne(row, map[string]any{"provider_price_id": providerPriceID})
}

func (r *priceRepository) GetDefaultByProduct(ctx context.Context, productID string) (*price.Price, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+priceColumns+` FROM prices
		WHERE product_id = $1 AND is_default = TRUE AND status = $2
	`, productID, types.StatusPublished)
	return r.scanOne(row, map[string]any{"product_id": productID})
}

func (r *priceRepository) ClearDefaultForProduct(ctx context.Context, productID string) error {
	_, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE prices SET is_default = FALSE, updated_at = $2
		WHERE product_id = $1 AND is_default = TRUE
	`, productID, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to clear default price").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *priceRepository) Update(ctx context.Context, p *price.Price) error {
	metadataJSON, err := marshalMetadata(p.Metadata)
	if err != nil {
		return ierr.WithError(err).WithHint("Invalid metadata").Mark(ierr.ErrValidation)
	}

	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE prices
		SET currency = $2, amount = $3, type = $4, billing_period = $5, billing_period_count = $6,
			trial_days = $7, is_default = $8, inventory_policy = $9, provider_price_id = $10,
			metadata = $11, status = $12, updated_at = $13, updated_by = $14
		WHERE id = $1
	`,
		p.ID, p.Currency, p.Amount.String(), p.Type,
		nullString(string(p.BillingPeriod)), p.BillingPeriodCount,
		p.TrialDays, p.IsDefault, p.InventoryPolicy, nullString(p.ProviderPriceID),
		metadataJSON, p.Status, time.Now().UTC(), p.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update price").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(res, "price", p.ID)
}

func (r *priceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE prices SET status = $2, is_default = FALSE, updated_at = $3
		WHERE id = $1 AND status != $2
	`, id, types.StatusArchived, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to archive price").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(res, "price", id)
}

func (r *priceRepository) List(ctx context.Context, filter *price.Filter) ([]*price.Price, error) {
	if filter == nil {
		filter = price.NewFilter()
	}

	var (
		conds = []string{"status != '" + string(types.StatusDeleted) + "'"}
		args  []any
	)
	if len(filter.PriceIDs) > 0 {
		args = append(args, pq.Array(filter.PriceIDs))
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if len(filter.ProductIDs) > 0 {
		args = append(args, pq.Array(filter.ProductIDs))
		conds = append(conds, fmt.Sprintf("product_id = ANY($%d)", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}

	query := `SELECT ` + priceColumns + ` FROM prices WHERE ` + strings.Join(conds, " AND ")
	query += orderAndPaginate(filter.GetSort(), filter.GetOrder(), filter.GetLimit(), filter.GetOffset())

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list prices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var out []*price.Price
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan price").
				Mark(ierr.ErrDatabase)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list prices").
			Mark(ierr.ErrDatabase)
	}
	return out, nil
}

func (r *priceRepository) scanOne(row *sql.Row, details map[string]any) (*price.Price, error) {
	p, err := scanPrice(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("price not found").
			WithHint("Price not found").
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get price").
			Mark(ierr.ErrDatabase)
	}
	return p, nil
}

func scanPrice(row rowScanner) (*price.Price, error) {
	var (
		p               price.Price
		amountStr       string
		billingPeriod   sql.NullString
		providerPriceID sql.NullString
		metadataJSON    []byte
	)
	err := row.Scan(
		&p.ID, &p.ProductID, &p.Currency, &amountStr, &p.Type, &billingPeriod, &p.BillingPeriodCount,
		&p.TrialDays, &p.IsDefault, &p.InventoryPolicy, &providerPriceID, &metadataJSON,
		&p.Status, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	p.Amount = amount
	p.BillingPeriod = types.BillingPeriod(billingPeriod.String)
	p.ProviderPriceID = providerPriceID.String
	if err := unmarshalMetadata(metadataJSON, &p.Metadata); err != nil {
		return nil, err
	}
	return &p, nil
}
