package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReliefPackage is the draft container a preparer fills against a request.
// At most one non-terminal package exists per request; its items are removed
// wholesale on cancellation, and it becomes immutable (FINAL) on approval.
type ReliefPackage struct {
	ID              string     `json:"id" gorm:"primaryKey;size:32"`
	ReliefRequestID string     `json:"relief_request_id" gorm:"size:32;not null;index"`
	WarehouseID     string     `json:"warehouse_id" gorm:"size:32;not null"`
	Status          string     `json:"status" gorm:"size:20;not null;default:DRAFT;index"`
	TransportMode   string     `json:"transport_mode" gorm:"size:100"`
	Comments        string     `json:"comments" gorm:"size:255"`
	DispatchAt      *time.Time `json:"dispatch_at"`
	CreatedBy       string     `json:"created_by" gorm:"size:64"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedBy       string     `json:"updated_by" gorm:"size:64"`
	UpdatedAt       time.Time  `json:"updated_at"`
	VersionNbr      int        `json:"version_nbr" gorm:"not null;default:1"`

	Items []ReliefPackageItem `json:"items,omitempty" gorm:"foreignKey:PackageID"`
}

func (ReliefPackage) TableName() string {
	return "relief_packages"
}

// ReliefPackageItem is one allocation line: a quantity drawn from a specific
// inventory batch. While the package is a draft, the line is backed by an
// equal reservation on the batch.
type ReliefPackageItem struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	PackageID   string          `json:"package_id" gorm:"size:32;not null;uniqueIndex:idx_package_batch;index"`
	InventoryID string          `json:"inventory_id" gorm:"size:32;not null;uniqueIndex:idx_package_batch;index"`
	ItemID      string          `json:"item_id" gorm:"size:32;not null;index"`
	Qty         decimal.Decimal `json:"qty" gorm:"type:decimal(12,4);not null"`
	UomCode     string          `json:"uom_code" gorm:"size:25;not null;default:pcs"`
	CreatedBy   string          `json:"created_by" gorm:"size:64"`
	CreatedAt   time.Time       `json:"created_at"`

	Inventory *Inventory `json:"inventory,omitempty" gorm:"foreignKey:InventoryID"`
}

func (ReliefPackageItem) TableName() string {
	return "relief_package_items"
}
