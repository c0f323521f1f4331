package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/textgraph/enricher/helper"
)

// Metadata holds the free-form part of an annotation or index row,
// stored as JSONB in PostgreSQL (entity relations, extra index fields).
type Metadata map[string]interface{}

// Value implements driver.Valuer for database storage.
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner. It accepts JSONB bytes, nil or another
// Metadata value.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	if s, ok := value.(Metadata); ok {
		*m = Metadata(s)
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}
