package sqlutil

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between Go types and nullable column types

// ToSqlString converts a Go string to sql.NullString; the empty string is NULL
func ToSqlString(val string) sql.NullString {
	if val == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: val, Valid: true}
}

// NullRawMessage returns a NULL jsonb value
func NullRawMessage() pqtype.NullRawMessage {
	return pqtype.NullRawMessage{Valid: false}
}

// ToNullRawMessage marshals val into a jsonb value
func ToNullRawMessage(val interface{}) (pqtype.NullRawMessage, error) {
	data, err := json.Marshal(val)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("marshal jsonb value: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: len(data) > 0}, nil
}
