package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/inkpress/inkpress/internal/domain/order"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/postgres"
	"github.com/inkpress/inkpress/internal/types"
)

type orderRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

func NewOrderRepository(client *postgres.Client, log *logger.Logger) order.Repository {
	return &orderRepository{client: client, logger: log}
}

const orderColumns = `id, user_id, customer_email, provider, provider_session_id,
	provider_payment_intent_id, order_status, currency, total, metadata,
	status, created_at, updated_at, created_by, updated_by`

func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	metadataJSON, err := marshalMetadata(o.Metadata)
	if err != nil {
		return ierr.WithError(err).WithHint("Invalid metadata").Mark(ierr.ErrValidation)
	}

	return r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)
		_, err := q.ExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`,
			o.ID, nullString(o.UserID), nullString(o.CustomerEmail), o.Provider,
			nullString(o.ProviderSessionID), nullString(o.ProviderPaymentIntentID),
			o.OrderStatus, o.Currency, o.Total.String(), metadataJSON,
			o.Status, o.CreatedAt, o.UpdatedAt, o.CreatedBy, o.UpdatedBy,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err, "") {
				return ierr.WithError(err).
					WithHint("Order already exists").
					WithReportableDetails(map[string]any{"id": o.ID}).
					Mark(ierr.ErrAlreadyExists)
			}
			return ierr.WithError(err).
				WithHint("Failed to create order").
				Mark(ierr.ErrDatabase)
		}

		for _, li := range o.LineItems {
			_, err := q.ExecContext(ctx, `
				INSERT INTO order_line_items (id, order_id, price_id, product_id, quantity, amount)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, li.ID, o.ID, li.PriceID, li.ProductID, li.Quantity, li.Amount.String())
			if err != nil {
				return ierr.WithError(err).
					WithHint("Failed to create order line item").
					Mark(ierr.ErrDatabase)
			}
		}
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1
	`, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("order not found").
			WithHint("Order not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get order").
			Mark(ierr.ErrDatabase)
	}
	if err := r.loadLineItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) GetByProviderSessionID(ctx context.Context, provider types.PaymentProvider, sessionID string) (*order.Order, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE provider = $1 AND provider_session_id = $2
	`, provider, sessionID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("order not found for provider session").
			WithHint("Order not found").
			WithReportableDetails(map[string]any{
				"provider":   provider,
				"session_id": sessionID,
			}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get order").
			Mark(ierr.ErrDatabase)
	}
	if err := r.loadLineItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) Update(ctx context.Context, o *order.Order) error {
	metadataJSON, err := marshalMetadata(o.Metadata)
	if err != nil {
		return ierr.WithError(err).WithHint("Invalid metadata").Mark(ierr.ErrValidation)
	}

	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE orders
		SET user_id = $2, customer_email = $3, provider_session_id = $4,
			provider_payment_intent_id = $5, order_status = $6, metadata = $7,
			updated_at = $8, updated_by = $9
		WHERE id = $1
	`,
		o.ID, nullString(o.UserID), nullString(o.CustomerEmail), nullString(o.ProviderSessionID),
		nullString(o.ProviderPaymentIntentID), o.OrderStatus, metadataJSON,
		time.Now().UTC(), o.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update order").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(res, "order", o.ID)
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	return r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)
		if _, err := q.ExecContext(ctx, `DELETE FROM order_line_items WHERE order_id = $1`, id); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to delete order line items").
				Mark(ierr.ErrDatabase)
		}
		res, err := q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1 AND order_status = $2`, id, types.OrderStatusPending)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to delete order").
				Mark(ierr.ErrDatabase)
		}
		return requireRowAffected(res, "order", id)
	})
}

func (r *orderRepository) List(ctx context.Context, filter *order.Filter) ([]*order.Order, error) {
	if filter == nil {
		filter = order.NewFilter()
	}

	var (
		conds = []string{"1=1"}
		args  []any
	)
	if len(filter.OrderIDs) > 0 {
		args = append(args, pq.Array(filter.OrderIDs))
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.OrderStatus != "" {
		args = append(args, filter.OrderStatus)
		conds = append(conds, fmt.Sprintf("order_status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + strings.Join(conds, " AND ")
	query += orderAndPaginate(filter.GetSort(), filter.GetOrder(), filter.GetLimit(), filter.GetOffset())

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list orders").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan order").
				Mark(ierr.ErrDatabase)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list orders").
			Mark(ierr.ErrDatabase)
	}

	for _, o := range out {
		if err := r.loadLineItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *orderRepository) loadLineItems(ctx context.Context, o *order.Order) error {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT id, order_id, price_id, product_id, quantity, amount
		FROM order_line_items WHERE order_id = $1 ORDER BY id
	`, o.ID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to load order line items").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	o.LineItems = nil
	for rows.Next() {
		var (
			li        order.LineItem
			amountStr string
		)
		if err := rows.Scan(&li.ID, &li.OrderID, &li.PriceID, &li.ProductID, &li.Quantity, &amountStr); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to scan order line item").
				Mark(ierr.ErrDatabase)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Invalid line item amount").
				Mark(ierr.ErrDatabase)
		}
		li.Amount = amount
		o.LineItems = append(o.LineItems, &li)
	}
	return rows.Err()
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o               order.Order
		userID          sql.NullString
		email           sql.NullString
		sessionID       sql.NullString
		paymentIntentID sql.NullString
		totalStr        string
		metadataJSON    []byte
	)
	err := row.Scan(
		&o.ID, &userID, &email, &o.Provider, &sessionID,
		&paymentIntentID, &o.OrderStatus, &o.Currency, &totalStr, &metadataJSON,
		&o.Status, &o.CreatedAt, &o.UpdatedAt, &o.CreatedBy, &o.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	o.UserID = userID.String
	o.CustomerEmail = email.String
	o.ProviderSessionID = sessionID.String
	o.ProviderPaymentIntentID = paymentIntentID.String
	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return nil, err
	}
	o.Total = total
	if err := unmarshalMetadata(metadataJSON, &o.Metadata); err != nil {
		return nil, err
	}
	return &o, nil
}
