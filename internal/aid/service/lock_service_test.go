package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/testutil"
)

func setupLockTest(t *testing.T) *LockService {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewLockService(repos.Lock, repos.ActivityLog)
}

func TestLockAcquireAndRelease(t *testing.T) {
	locks := setupLockTest(t)
	ctx := context.Background()

	lock, err := locks.Acquire(ctx, "req-1", "user-a", "Alice")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if lock.HolderID != "user-a" {
		t.Errorf("Expected holder user-a, got %s", lock.HolderID)
	}

	// A second preparer is turned away with the holder's identity.
	_, err = locks.Acquire(ctx, "req-1", "user-b", "Bob")
	if !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("Expected ErrAlreadyLocked for second preparer, got %v", err)
	}

	// The holder re-acquires without error (page reload).
	again, err := locks.Acquire(ctx, "req-1", "user-a", "Alice")
	if err != nil {
		t.Fatalf("Holder re-acquire: %v", err)
	}
	if again.HolderID != "user-a" {
		t.Errorf("Re-acquire must keep the holder, got %s", again.HolderID)
	}

	// Only the holder may release.
	if err := locks.Release(ctx, "req-1", "user-b"); !errors.Is(err, ErrNotHolder) {
		t.Fatalf("Expected ErrNotHolder for non-holder release, got %v", err)
	}
	if err := locks.Release(ctx, "req-1", "user-a"); err != nil {
		t.Fatalf("Holder release: %v", err)
	}

	// Lock gone, anyone may take it.
	if _, err := locks.Acquire(ctx, "req-1", "user-b", "Bob"); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestLockAcquireRace(t *testing.T) {
	locks := setupLockTest(t)
	ctx := context.Background()

	const contenders = 8
	var wg sync.WaitGroup
	errs := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = locks.Acquire(ctx, "req-race", string(rune('a'+n)), "Contender")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrAlreadyLocked):
		default:
			t.Fatalf("Unexpected acquire error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("Exactly one contender must win the lock, got %d", winners)
	}
}

func TestLockForceRelease(t *testing.T) {
	locks := setupLockTest(t)
	ctx := context.Background()

	if _, err := locks.Acquire(ctx, "req-1", "user-a", "Alice"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := locks.ForceRelease(ctx, "req-1", "admin-1", "Root"); err != nil {
		t.Fatalf("ForceRelease: %v", err)
	}
	if _, err := locks.Acquire(ctx, "req-1", "user-b", "Bob"); err != nil {
		t.Fatalf("Acquire after force release: %v", err)
	}

	// Force-releasing a request with no lock reports not found.
	if err := locks.ForceRelease(ctx, "req-none", "admin-1", "Root"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
