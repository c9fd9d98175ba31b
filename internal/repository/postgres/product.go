package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/inkpress/inkpress/internal/domain/product"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/postgres"
	"github.com/inkpress/inkpress/internal/types"
	"github.com/lib/pq"
)

type productRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

func NewProductRepository(client *postgres.Client, log *logger.Logger) product.Repository {
	return &productRepository{client: client, logger: log}
}

const productColumns = `id, name, description, type, work_id, grant_descriptor, metadata, status, created_at, updated_at, created_by, updated_by`

func (r *productRepository) Create(ctx context.Context, p *product.Product) error {
	grantJSON, err := marshalNullable(p.Grant)
	if err != nil {
		return ierr.WithError(err).WithHint("Invalid grant descriptor").Mark(ierr.ErrValidation)
	}
	metadataJSON, err := marshalMetadata(p.Metadata)
	if err != nil {
		return ierr.WithError(err).WithHint("Invalid metadata").Mark(ierr.ErrValidation)
	}

	q := r.client.Querier(ctx)
	_, err = q.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		p.ID, p.Name, p.Description, p.Type, nullString(p.WorkID), grantJSON, metadataJSON,
		p.Status, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return ierr.WithError(err).
				WithHint("Product already exists").
				WithReportableDetails(map[string]any{"id": p.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create product").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = $1 AND status != $2
	`, id, types.StatusDeleted)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("product not found").
			WithHint("Product not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get product").
			Mark(ierr.ErrDatabase)
	}
	return p, nil
}

func (r *productRepository) Update(ctx context.Context, p *product.Product) error {
	grantJSON, err := marshalNullable(p.Grant)
	if err != nil {
		return ierr.WithError(err).WithHint("Invalid grant descriptor").Mark(ierr.ErrValidation)
	}
	metadataJSON, err := marshalMetadata(p.Metadata)
	if err != nil {
		return ierr.WithError(err).WithHint("Invalid metadata").Mark(ierr.ErrValidation)
	}

	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, type = $4, work_id = $5, grant_descriptor = $6,
			metadata = $7, status = $8, updated_at = $9, updated_by = $10
		WHERE id = $1
	`,
		p.ID, p.Name, p.Description, p.Type, nullString(p.WorkID), grantJSON, metadataJSON,
		p.Status, time.Now().UTC(), p.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update product").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(res, "product", p.ID)
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE products SET status = $2, updated_at = $3 WHERE id = $1 AND status != $2
	`, id, types.StatusArchived, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to archive product").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(res, "product", id)
}

func (r *productRepository) List(ctx context.Context, filter *product.Filter) ([]*product.Product, error) {
	if filter == nil {
		filter = product.NewFilter()
	}

	var (
		conds = []string{"status != '" + string(types.StatusDeleted) + "'"}
		args  []any
	)
	if len(filter.ProductIDs) > 0 {
		args = append(args, pq.Array(filter.ProductIDs))
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.WorkID != "" {
		args = append(args, filter.WorkID)
		conds = append(conds, fmt.Sprintf("work_id = $%d", len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE ` + strings.Join(conds, " AND ")
	query += orderAndPaginate(filter.GetSort(), filter.GetOrder(), filter.GetLimit(), filter.GetOffset())

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list products").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var out []*product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan product").
				Mark(ierr.ErrDatabase)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list products").
			Mark(ierr.ErrDatabase)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*product.Product, error) {
	var (
		p            product.Product
		description  sql.NullString
		workID       sql.NullString
		grantJSON    []byte
		metadataJSON []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &description, &p.Type, &workID, &grantJSON, &metadataJSON,
		&p.Status, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.WorkID = workID.String
	if len(grantJSON) > 0 {
		var g product.GrantDescriptor
		if err := json.Unmarshal(grantJSON, &g); err != nil {
			return nil, err
		}
		p.Grant = &g
	}
	if err := unmarshalMetadata(metadataJSON, &p.Metadata); err != nil {
		return nil, err
	}
	return &p, nil
}
