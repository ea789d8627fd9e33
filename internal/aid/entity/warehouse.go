package entity

import "time"

// Warehouse statuses
const (
	WarehouseStatusActive   = "ACTIVE"
	WarehouseStatusInactive = "INACTIVE"
)

// Warehouse is a storage location holding batch inventory.
type Warehouse struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Code        string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name        string    `json:"name" gorm:"size:120;not null"`
	Address     string    `json:"address" gorm:"size:500"`
	ParishCode  string    `json:"parish_code" gorm:"size:2"`
	ContactName string    `json:"contact_name" gorm:"size:100"`
	PhoneNo     string    `json:"phone_no" gorm:"size:20"`
	Status      string    `json:"status" gorm:"size:20;not null;default:ACTIVE"`
	CreatedBy   string    `json:"created_by" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedBy   string    `json:"updated_by" gorm:"size:64"`
	UpdatedAt   time.Time `json:"updated_at"`
	VersionNbr  int       `json:"version_nbr" gorm:"not null;default:1"`
}

func (Warehouse) TableName() string {
	return "warehouses"
}

// Agency is a requesting organization. Agencies file relief requests but do
// not hold inventory.
type Agency struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Name        string    `json:"name" gorm:"size:120;not null;uniqueIndex"`
	Address     string    `json:"address" gorm:"size:500"`
	ParishCode  string    `json:"parish_code" gorm:"size:2"`
	ContactName string    `json:"contact_name" gorm:"size:100"`
	PhoneNo     string    `json:"phone_no" gorm:"size:20"`
	Email       string    `json:"email" gorm:"size:100"`
	CreatedBy   string    `json:"created_by" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedBy   string    `json:"updated_by" gorm:"size:64"`
	UpdatedAt   time.Time `json:"updated_at"`
	VersionNbr  int       `json:"version_nbr" gorm:"not null;default:1"`
}

func (Agency) TableName() string {
	return "agencies"
}
