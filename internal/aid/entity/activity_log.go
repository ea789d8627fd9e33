package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB stores unstructured metadata in a jsonb column
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("jsonb: unsupported scan source")
	}
	return json.Unmarshal(b, j)
}

// ActivityLog records state transitions and ledger commits per entity.
type ActivityLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_activity_entity"` // relief_request/package/inventory/lock
	EntityID   string `json:"entity_id" gorm:"size:32;not null;index:idx_activity_entity"`

	Action     string `json:"action" gorm:"size:50;not null"`
	FromStatus string `json:"from_status" gorm:"size:30"`
	ToStatus   string `json:"to_status" gorm:"size:30"`

	Content  string `json:"content" gorm:"type:text"`
	Metadata JSONB  `json:"metadata" gorm:"type:jsonb"`

	OperatorID   string    `json:"operator_id" gorm:"size:64"`
	OperatorName string    `json:"operator_name" gorm:"size:100"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
