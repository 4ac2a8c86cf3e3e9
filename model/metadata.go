package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/siherrmann/triage/helper"
)

// Metadata is string keyed, string valued source metadata stored as JSONB
type Metadata map[string]string

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return helper.NewError("metadata scan", errors.New("type assertion to []byte failed"))
	}
}

// Copy returns a non-nil copy of m
func (m Metadata) Copy() Metadata {
	c := make(Metadata, len(m)+2)
	for k, v := range m {
		c[k] = v
	}
	return c
}
