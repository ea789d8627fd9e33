package service

import (
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services bundles the aid domain's service layer for handler wiring.
type Services struct {
	Request     *RequestService
	Fulfillment *FulfillmentService
	Lock        *LockService
	Ledger      *ReservationLedger
	Inventory   *InventoryService
	Cache       *AvailabilityCache
}

func NewServices(db *gorm.DB, rdb *redis.Client, repos *repository.Repositories) *Services {
	cache := NewAvailabilityCache(rdb)
	locks := NewLockService(repos.Lock, repos.ActivityLog)
	ledger := NewReservationLedger(db, repos.Inventory, repos.Package, repos.ActivityLog)
	return &Services{
		Request:     NewRequestService(db, repos),
		Fulfillment: NewFulfillmentService(db, repos, locks, ledger, cache),
		Lock:        locks,
		Ledger:      ledger,
		Inventory:   NewInventoryService(db, repos.Inventory, cache),
		Cache:       cache,
	}
}
