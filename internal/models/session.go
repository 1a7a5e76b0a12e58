// Package models holds the persisted entities.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SlotCount is the number of inputs a session stores
const SlotCount = 9

// SlotInputs holds the nine raw inputs of a board in slot order
type SlotInputs [SlotCount]string

// Value implements driver.Valuer, storing the inputs as a JSON array
func (s SlotInputs) Value() (driver.Value, error) {
	data, err := json.Marshal([SlotCount]string(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode slot inputs: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (s *SlotInputs) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case nil:
		*s = SlotInputs{}
		return nil
	default:
		return fmt.Errorf("unsupported slot inputs type %T", value)
	}

	var inputs []string
	if err := json.Unmarshal(data, &inputs); err != nil {
		return fmt.Errorf("failed to decode slot inputs: %w", err)
	}
	if len(inputs) > SlotCount {
		return errors.New("stored slot inputs exceed slot count")
	}

	*s = SlotInputs{}
	copy(s[:], inputs)
	return nil
}

// Session is the session-scoped cache of a board's raw inputs
type Session struct {
	ID        uuid.UUID  `json:"id" gorm:"type:text;primaryKey;column:id"`
	Inputs    SlotInputs `json:"inputs" gorm:"type:text;not null;column:inputs"`
	CreatedAt time.Time  `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// TableName overrides the table name used by GORM
func (Session) TableName() string {
	return "sessions"
}

// NewSession creates a new Session with generated UUID and timestamps
func NewSession(inputs SlotInputs) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New(),
		Inputs:    inputs,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
