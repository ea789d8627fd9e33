package repository

import (
	"context"
	"time"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FulfillmentLockRepository struct {
	db *gorm.DB
}

func NewFulfillmentLockRepository(db *gorm.DB) *FulfillmentLockRepository {
	return &FulfillmentLockRepository{db: db}
}

func (r *FulfillmentLockRepository) DB() *gorm.DB {
	return r.db
}

// TryInsert attempts to take the lock row. The primary key on
// relief_request_id serializes racing acquirers at the store: exactly one
// insert lands, the loser sees inserted == false.
func (r *FulfillmentLockRepository) TryInsert(ctx context.Context, lock *entity.FulfillmentLock) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(lock)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *FulfillmentLockRepository) Find(ctx context.Context, requestID string) (*entity.FulfillmentLock, error) {
	var lock entity.FulfillmentLock
	err := r.db.WithContext(ctx).First(&lock, "relief_request_id = ?", requestID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &lock, nil
}

// Touch re-affirms the acquisition timestamp on an idempotent re-acquire.
func (r *FulfillmentLockRepository) Touch(ctx context.Context, requestID, holderID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.FulfillmentLock{}).
		Where("relief_request_id = ? AND holder_id = ?", requestID, holderID).
		Update("acquired_at", at).Error
}

// DeleteHeldBy removes the lock only if holderID still holds it.
func (r *FulfillmentLockRepository) DeleteHeldBy(tx *gorm.DB, requestID, holderID string) (int64, error) {
	res := tx.Where("relief_request_id = ? AND holder_id = ?", requestID, holderID).
		Delete(&entity.FulfillmentLock{})
	return res.RowsAffected, res.Error
}

// Delete removes the lock regardless of holder (admin override).
func (r *FulfillmentLockRepository) Delete(ctx context.Context, requestID string) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&entity.FulfillmentLock{}, "relief_request_id = ?", requestID)
	return res.RowsAffected, res.Error
}
