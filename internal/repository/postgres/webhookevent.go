package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/inkpress/inkpress/internal/domain/webhookevent"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/postgres"
	"github.com/inkpress/inkpress/internal/types"
)

type webhookEventRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

func NewWebhookEventRepository(client *postgres.Client, log *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{client: client, logger: log}
}

const webhookEventColumns = `id, provider, provider_event_id, event_type, payload, event_status,
	provider_created_at, processed_at, error_detail, status, created_at, updated_at, created_by, updated_by`

func (r *webhookEventRepository) Create(ctx context.Context, e *webhookevent.WebhookEvent) error {
	_, err := r.client.Querier(ctx).ExecContext(ctx, `
		INSERT INTO webhook_events (`+webhookEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		e.ID, e.Provider, e.ProviderEventID, e.EventType, []byte(e.Payload), e.EventStatus,
		e.ProviderCreatedAt, e.ProcessedAt, nullString(e.ErrorDetail),
		e.Status, e.CreatedAt, e.UpdatedAt, e.CreatedBy, e.UpdatedBy,
	)
	if err != nil {
		// The (provider, provider_event_id) unique constraint is the
		// idempotency mechanism; the reconciler handles this error.
		if postgres.IsUniqueViolation(err, "") {
			return ierr.WithError(err).
				WithHint("Webhook event already recorded").
				WithReportableDetails(map[string]any{
					"provider":          e.Provider,
					"provider_event_id": e.ProviderEventID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record webhook event").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *webhookEventRepository) Get(ctx context.Context, id string) (*webhookevent.WebhookEvent, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+webhookEventColumns+` FROM webhook_events WHERE id = $1
	`, id)
	return r.scanOne(row, map[string]any{"id": id})
}

func (r *webhookEventRepository) GetByProviderEventID(ctx context.Context, provider types.PaymentProvider, providerEventID string) (*webhookevent.WebhookEvent, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+webhookEventColumns+` FROM webhook_events
		WHERE provider = $1 AND provider_event_id = $2
	`, provider, providerEventID)
	return r.scanOne(row, map[string]any{
		"provider":          provider,
		"provider_event_id": providerEventID,
	})
}

func (r *webhookEventRepository) UpdateStatus(ctx context.Context, id string, status types.WebhookEventStatus, errorDetail string) error {
	var processedAt *time.Time
	if status == types.WebhookEventStatusProcessed {
		now := time.Now().UTC()
		processedAt = &now
	}

	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE webhook_events
		SET event_status = $2, processed_at = $3, error_detail = $4, updated_at = $5
		WHERE id = $1
	`, id, status, processedAt, nullString(errorDetail), time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update webhook event status").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(res, "webhook event", id)
}

func (r *webhookEventRepository) ListStuck(ctx context.Context, olderThan, maxAge time.Duration, limit int) ([]*webhookevent.WebhookEvent, error) {
	now := time.Now().UTC()
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT `+webhookEventColumns+` FROM webhook_events
		WHERE event_status = ANY($1) AND created_at < $2 AND created_at > $3
		ORDER BY created_at
		LIMIT $4
	`, pq.Array([]string{
		string(types.WebhookEventStatusReceived),
		string(types.WebhookEventStatusFailed),
	}), now.Add(-olderThan), now.Add(-maxAge), limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list stuck webhook events").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var out []*webhookevent.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan webhook event").
				Mark(ierr.ErrDatabase)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list stuck webhook events").
			Mark(ierr.ErrDatabase)
	}
	return out, nil
}

func (r *webhookEventRepository) scanOne(row *sql.Row, details map[string]any) (*webhookevent.WebhookEvent, error) {
	e, err := scanWebhookEvent(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("webhook event not found").
			WithHint("Webhook event not found").
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get webhook event").
			Mark(ierr.ErrDatabase)
	}
	return e, nil
}

func scanWebhookEvent(row rowScanner) (*webhookevent.WebhookEvent, error) {
	var (
		e           webhookevent.WebhookEvent
		payload     []byte
		processedAt sql.NullTime
		errorDetail sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.Provider, &e.ProviderEventID, &e.EventType, &payload, &e.EventStatus,
		&e.ProviderCreatedAt, &processedAt, &errorDetail,
		&e.Status, &e.CreatedAt, &e.UpdatedAt, &e.CreatedBy, &e.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	e.Payload = payload
	if processedAt.Valid {
		t := processedAt.Time.UTC()
		e.ProcessedAt = &t
	}
	e.ErrorDetail = errorDetail.String
	return &e, nil
}
