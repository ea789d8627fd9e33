package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/sse"
	"gorm.io/gorm"
)

// LockService manages the durable per-request fulfillment lock. The lock is a
// row keyed by request id; the store's uniqueness constraint, not an
// application check, decides races between concurrent acquirers.
type LockService struct {
	lockRepo *repository.FulfillmentLockRepository
	logRepo  *repository.ActivityLogRepository
}

func NewLockService(lockRepo *repository.FulfillmentLockRepository, logRepo *repository.ActivityLogRepository) *LockService {
	return &LockService{lockRepo: lockRepo, logRepo: logRepo}
}

// Acquire takes the lock for userID. Re-acquiring a lock already held by the
// same user succeeds and re-affirms the timestamp. A live lock held by
// someone else yields ErrAlreadyLocked with the holder attached.
func (s *LockService) Acquire(ctx context.Context, requestID, userID, userName string) (*entity.FulfillmentLock, error) {
	lock := &entity.FulfillmentLock{
		ReliefRequestID: requestID,
		HolderID:        userID,
		HolderName:      userName,
		AcquiredAt:      time.Now(),
	}

	inserted, err := s.lockRepo.TryInsert(ctx, lock)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if inserted {
		s.logRepo.LogActivity(ctx, "lock", requestID, "acquire", "", "", "", userID, userName)
		sse.PublishLockUpdate(requestID, userID, "acquired")
		return lock, nil
	}

	existing, err := s.lockRepo.Find(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The competing lock vanished between insert and read; one retry
			// keeps acquire race-free without looping forever.
			inserted, err = s.lockRepo.TryInsert(ctx, lock)
			if err != nil {
				return nil, fmt.Errorf("acquire lock: %w", err)
			}
			if inserted {
				return lock, nil
			}
			return nil, ErrAlreadyLocked
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	if existing.HolderID == userID {
		if err := s.lockRepo.Touch(ctx, requestID, userID, time.Now()); err != nil {
			return nil, fmt.Errorf("refresh lock: %w", err)
		}
		existing.AcquiredAt = time.Now()
		return existing, nil
	}
	return existing, fmt.Errorf("%w: held by %s since %s", ErrAlreadyLocked, existing.HolderName, existing.AcquiredAt.Format(time.RFC3339))
}

// Release drops the lock if userID holds it; ErrNotHolder otherwise.
func (s *LockService) Release(ctx context.Context, requestID, userID string) error {
	return s.releaseTx(ctx, s.lockRepo.DB().WithContext(ctx), requestID, userID)
}

// releaseTx is the transactional variant used by the state machine so the
// unlock commits in the same unit as the status change.
func (s *LockService) releaseTx(ctx context.Context, tx *gorm.DB, requestID, userID string) error {
	affected, err := s.lockRepo.DeleteHeldBy(tx, requestID, userID)
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if affected == 0 {
		lock, ferr := s.lockRepo.Find(ctx, requestID)
		if ferr != nil && errors.Is(ferr, repository.ErrNotFound) {
			return fmt.Errorf("%w: no live lock for request %s", ErrNotHolder, requestID)
		}
		if ferr != nil {
			return fmt.Errorf("release lock: %w", ferr)
		}
		return fmt.Errorf("%w: held by %s", ErrNotHolder, lock.HolderName)
	}
	sse.PublishLockUpdate(requestID, userID, "released")
	return nil
}

// ForceRelease is the privileged admin override. It removes the lock without
// touching reservations; the next preparer cancels or continues the draft.
func (s *LockService) ForceRelease(ctx context.Context, requestID, adminID, adminName string) error {
	affected, err := s.lockRepo.Delete(ctx, requestID)
	if err != nil {
		return fmt.Errorf("force release lock: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	s.logRepo.LogActivity(ctx, "lock", requestID, "force_release", "", "", "administrative override", adminID, adminName)
	sse.PublishLockUpdate(requestID, adminID, "force_released")
	return nil
}

// IsHeldBy reports whether userID currently holds the request's lock.
func (s *LockService) IsHeldBy(ctx context.Context, requestID, userID string) (bool, error) {
	lock, err := s.lockRepo.Find(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return lock.HolderID == userID, nil
}

// Holder returns the live lock for a request, or ErrNotFound.
func (s *LockService) Holder(ctx context.Context, requestID string) (*entity.FulfillmentLock, error) {
	return s.lockRepo.Find(ctx, requestID)
}
