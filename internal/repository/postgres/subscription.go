package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/inkpress/inkpress/internal/domain/subscription"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/postgres"
	"github.com/inkpress/inkpress/internal/types"
)

type subscriptionRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

func NewSubscriptionRepository(client *postgres.Client, log *logger.Logger) subscription.Repository {
	return &subscriptionRepository{client: client, logger: log}
}

const subscriptionColumns = `id, user_id, product_id, price_id, provider, provider_subscription_id,
	provider_customer_id, subscription_status, current_period_start, current_period_end,
	cancel_at_period_end, metadata, status, created_at, updated_at, created_by, updated_by`

func (r *subscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	metadataJSON, err := marshalMetadata(s.Metadata)
	if err != nil {
		return ierr.WithError(err).WithHint("Invalid metadata").Mark(ierr.ErrValidation)
	}

	_, err = r.client.Querier(ctx).ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		s.ID, s.UserID, s.ProductID, s.PriceID, s.Provider, s.ProviderSubscriptionID,
		nullString(s.ProviderCustomerID), s.SubscriptionStatus, s.CurrentPeriodStart, s.CurrentPeriodEnd,
		s.CancelAtPeriodEnd, metadataJSON, s.Status, s.CreatedAt, s.UpdatedAt, s.CreatedBy, s.UpdatedBy,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return ierr.WithError(err).
				WithHint("Subscription already exists").
				WithReportableDetails(map[string]any{
					"provider_subscription_id": s.ProviderSubscriptionID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1
	`, id)
	return r.scanOne(row, map[string]any{"id": id})
}

func (r *subscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, provider types.PaymentProvider, providerSubscriptionID string) (*subscription.Subscription, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE provider = $1 AND provider_subscription_id = $2
	`, provider, providerSubscriptionID)
	return r.scanOne(row, map[string]any{
		"provider":                 provider,
		"provider_subscription_id": providerSubscriptionID,
	})
}

func (r *subscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	metadataJSON, err := marshalMetadata(s.Metadata)
	if err != nil {
		return ierr.WithError(err).WithHint("Invalid metadata").Mark(ierr.ErrValidation)
	}

	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE subscriptions
		SET subscription_status = $2, current_period_start = $3, current_period_end = $4,
			cancel_at_period_end = $5, provider_customer_id = $6, metadata = $7,
			updated_at = $8, updated_by = $9
		WHERE id = $1
	`,
		s.ID, s.SubscriptionStatus, s.CurrentPeriodStart, s.CurrentPeriodEnd,
		s.CancelAtPeriodEnd, nullString(s.ProviderCustomerID), metadataJSON,
		time.Now().UTC(), s.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(res, "subscription", s.ID)
}

func (r *subscriptionRepository) ListEntitlingByUserProduct(ctx context.Context, userID, productID string) ([]*subscription.Subscription, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = $1 AND product_id = $2 AND subscription_status = ANY($3)
		ORDER BY created_at DESC
	`, userID, productID, pq.Array([]string{
		string(types.SubscriptionStatusActive),
		string(types.SubscriptionStatusTrialing),
		string(types.SubscriptionStatusPastDue),
	}))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func (r *subscriptionRepository) List(ctx context.Context, filter *subscription.Filter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = subscription.NewFilter()
	}

	var (
		conds = []string{"1=1"}
		args  []any
	)
	if len(filter.SubscriptionIDs) > 0 {
		args = append(args, pq.Array(filter.SubscriptionIDs))
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.SubscriptionStatus != "" {
		args = append(args, filter.SubscriptionStatus)
		conds = append(conds, fmt.Sprintf("subscription_status = $%d", len(args)))
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE ` + strings.Join(conds, " AND ")
	query += orderAndPaginate(filter.GetSort(), filter.GetOrder(), filter.GetLimit(), filter.GetOffset())

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func (r *subscriptionRepository) scanOne(row *sql.Row, details map[string]any) (*subscription.Subscription, error) {
	s, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return s, nil
}

func collectSubscriptions(rows *sql.Rows) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan subscription").
				Mark(ierr.ErrDatabase)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return out, nil
}

func scanSubscription(row rowScanner) (*subscription.Subscription, error) {
	var (
		s            subscription.Subscription
		customerID   sql.NullString
		metadataJSON []byte
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.ProductID, &s.PriceID, &s.Provider, &s.ProviderSubscriptionID,
		&customerID, &s.SubscriptionStatus, &s.CurrentPeriodStart, &s.CurrentPeriodEnd,
		&s.CancelAtPeriodEnd, &metadataJSON, &s.Status, &s.CreatedAt, &s.UpdatedAt, &s.CreatedBy, &s.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	s.ProviderCustomerID = customerID.String
	if err := unmarshalMetadata(metadataJSON, &s.Metadata); err != nil {
		return nil, err
	}
	return &s, nil
}
