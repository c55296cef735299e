package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ChangeRecord is one field-level difference between two task states.
// Values are compared and stored in their string form.
type ChangeRecord struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// ChangeSet is stored as a JSONB array.
type ChangeSet []ChangeRecord

func (c ChangeSet) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *ChangeSet) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported change set type %T", src)
	}
	return json.Unmarshal(raw, (*[]ChangeRecord)(c))
}

// Has reports whether the set contains a change for field.
func (c ChangeSet) Has(field string) bool {
	for _, ch := range c {
		if ch.Field == field {
			return true
		}
	}
	return false
}

// ActivityLog is an immutable audit entry; it is never updated or deleted,
// and survives the soft delete of its task.
type ActivityLog struct {
	ID        int64     `json:"id" db:"id"`
	TaskID    int64     `json:"task_id" db:"task_id"`
	UpdatedBy int64     `json:"updated_by" db:"updated_by"`
	Changes   ChangeSet `json:"changes" db:"changes"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// joined for listings
	TaskTitle     string `json:"task_title,omitempty" db:"task_title"`
	UpdatedByName string `json:"updated_by_name,omitempty" db:"updated_by_name"`
}

type ActivityFilter struct {
	TaskID *int64
	Limit  int
	Offset int
}
