package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// allowedSortColumns guards ORDER BY against identifier injection; sort
// expressions cannot be bound as parameters.
var allowedSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"id":         true,
}

func orderAndPaginate(sort, order string, limit, offset int) string {
	if !allowedSortColumns[sort] {
		sort = types.FilterDefaultSort
	}
	if order != "asc" && order != "desc" {
		order = types.FilterDefaultOrder
	}
	clause := fmt.Sprintf(" ORDER BY %s %s", sort, strings.ToUpper(order))
	if limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}
	return clause
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func marshalMetadata(m types.Metadata) ([]byte, error) {
	if m == nil {
		m = types.Metadata{}
	}
	return json.Marshal(m)
}

func unmarshalMetadata(data []byte, m *types.Metadata) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, m)
}

// marshalNullable marshals v to JSON, mapping a nil pointer to SQL NULL.
func marshalNullable(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		if string(data) == "null" {
			return nil, nil
		}
		return data, nil
	}
}

// requireRowAffected converts a zero-row UPDATE into a not-found error.
func requireRowAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to read affected rows").
			Mark(ierr.ErrDatabase)
	}
	if n == 0 {
		return ierr.NewErrorf("%s not found", entity).
			WithHintf("No matching %s to update", entity).
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
