package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item statuses
const (
	ItemActive   = "ACTIVE"
	ItemInactive = "INACTIVE"
)

// Item is a relief item type (water, tarpaulin, ...).
type Item struct {
	ID             string          `json:"id" gorm:"primaryKey;size:32"`
	Name           string          `json:"name" gorm:"size:120;not null;uniqueIndex"`
	SKUCode        string          `json:"sku_code" gorm:"size:30;not null;uniqueIndex"`
	Category       string          `json:"category" gorm:"size:30"`
	Description    string          `json:"description" gorm:"type:text"`
	UomCode        string          `json:"uom_code" gorm:"size:25;not null;default:pcs"`
	ReorderQty     decimal.Decimal `json:"reorder_qty" gorm:"type:decimal(12,4);not null;default:0"`
	ExpirationFlag bool            `json:"expiration_flag" gorm:"not null;default:false"`
	Status         string          `json:"status" gorm:"size:20;not null;default:ACTIVE"`
	CreatedBy      string          `json:"created_by" gorm:"size:64"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedBy      string          `json:"updated_by" gorm:"size:64"`
	UpdatedAt      time.Time       `json:"updated_at"`
	VersionNbr     int             `json:"version_nbr" gorm:"not null;default:1"`
}

func (Item) TableName() string {
	return "items"
}
