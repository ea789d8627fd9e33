package repository

import (
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Repositories bundles every repository over one gorm handle.
type Repositories struct {
	Warehouse   *WarehouseRepository
	Agency      *AgencyRepository
	Item        *ItemRepository
	Inventory   *InventoryRepository
	Request     *ReliefRequestRepository
	Package     *ReliefPackageRepository
	Lock        *FulfillmentLockRepository
	ActivityLog *ActivityLogRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Warehouse:   NewWarehouseRepository(db),
		Agency:      NewAgencyRepository(db),
		Item:        NewItemRepository(db),
		Inventory:   NewInventoryRepository(db),
		Request:     NewReliefRequestRepository(db),
		Package:     NewReliefPackageRepository(db),
		Lock:        NewFulfillmentLockRepository(db),
		ActivityLog: NewActivityLogRepository(db),
	}
}

// notFound maps gorm's sentinel to ours so services compare one error.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
