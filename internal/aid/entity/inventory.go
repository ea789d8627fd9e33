package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inventory statuses
const (
	InventoryStatusActive   = "ACTIVE"
	InventoryStatusInactive = "INACTIVE"
)

// Inventory is one on-hand batch of an item at a warehouse. Quantities are
// split into buckets; reserved_qty is the sum of live draft-package
// allocations against the batch and must never exceed usable_qty.
// version_nbr guards every quantity write (compare-and-swap).
type Inventory struct {
	ID           string          `json:"id" gorm:"primaryKey;size:32"`
	WarehouseID  string          `json:"warehouse_id" gorm:"size:32;not null;uniqueIndex:idx_inventory_batch;index"`
	ItemID       string          `json:"item_id" gorm:"size:32;not null;uniqueIndex:idx_inventory_batch;index"`
	BatchNo      string          `json:"batch_no" gorm:"size:50;not null;uniqueIndex:idx_inventory_batch"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
	ReceivedAt   time.Time       `json:"received_at" gorm:"not null"`
	UsableQty    decimal.Decimal `json:"usable_qty" gorm:"type:decimal(12,4);not null;default:0"`
	ReservedQty  decimal.Decimal `json:"reserved_qty" gorm:"type:decimal(12,4);not null;default:0"`
	DefectiveQty decimal.Decimal `json:"defective_qty" gorm:"type:decimal(12,4);not null;default:0"`
	ExpiredQty   decimal.Decimal `json:"expired_qty" gorm:"type:decimal(12,4);not null;default:0"`
	UomCode      string          `json:"uom_code" gorm:"size:25;not null;default:pcs"`
	Status       string          `json:"status" gorm:"size:20;not null;default:ACTIVE"`
	CreatedBy    string          `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedBy    string          `json:"updated_by" gorm:"size:64"`
	UpdatedAt    time.Time       `json:"updated_at"`
	VersionNbr   int             `json:"version_nbr" gorm:"not null;default:1"`

	Warehouse *Warehouse `json:"warehouse,omitempty" gorm:"foreignKey:WarehouseID"`
	Item      *Item      `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (Inventory) TableName() string {
	return "inventory"
}

// AvailableQty is the quantity a new reservation may still draw from the batch.
func (i *Inventory) AvailableQty() decimal.Decimal {
	return i.UsableQty.Sub(i.ReservedQty)
}
