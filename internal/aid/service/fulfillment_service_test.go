package service

import (
	"context"
	"errors"
	"testing"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupFulfillmentTest(t *testing.T) (*gorm.DB, *repository.Repositories, *FulfillmentService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	locks := NewLockService(repos.Lock, repos.ActivityLog)
	ledger := NewReservationLedger(db, repos.Inventory, repos.Package, repos.ActivityLog)
	svc := NewFulfillmentService(db, repos, locks, ledger, NewAvailabilityCache(nil))
	return db, repos, svc
}

func seedFulfillmentScenario(t *testing.T, db *gorm.DB) {
	t.Helper()
	testutil.SeedWarehouse(t, db, "wh-1", "KIN")
	testutil.SeedItem(t, db, "item-water", "WTR-001")
	testutil.SeedItem(t, db, "item-tarp", "TRP-001")
	testutil.SeedAgency(t, db, "agn-1", "Parish Council")
	testutil.SeedBatch(t, db, "inv-w1", "wh-1", "item-water", "W1", 100, nil)
	testutil.SeedBatch(t, db, "inv-w2", "wh-1", "item-water", "W2", 50, nil)
}

func requestStatus(t *testing.T, db *gorm.DB, id string) string {
	t.Helper()
	var req entity.ReliefRequest
	if err := db.First(&req, "id = ?", id).Error; err != nil {
		t.Fatalf("Failed to reload request %s: %v", id, err)
	}
	return req.Status
}

func requestLine(t *testing.T, db *gorm.DB, requestID, itemID string) *entity.ReliefRequestItem {
	t.Helper()
	var line entity.ReliefRequestItem
	err := db.First(&line, "relief_request_id = ? AND item_id = ?", requestID, itemID).Error
	if err != nil {
		t.Fatalf("Failed to reload line %s/%s: %v", requestID, itemID, err)
	}
	return &line
}

func TestFulfillmentHappyPath(t *testing.T) {
	db, _, svc := setupFulfillmentTest(t)
	ctx := context.Background()

	seedFulfillmentScenario(t, db)
	testutil.SeedRequest(t, db, "req-1", "agn-1", map[string]int64{"item-water": 120})

	pkg, err := svc.BeginPreparation(ctx, "req-1", "wh-1", "prep-1", "Paula")
	if err != nil {
		t.Fatalf("BeginPreparation: %v", err)
	}
	if got := requestStatus(t, db, "req-1"); got != entity.RequestStatusBeingPrepared {
		t.Fatalf("Expected BEING_PREPARED, got %s", got)
	}

	plan, status, err := svc.AllocateItem(ctx, "req-1", "item-water", "prep-1")
	if err != nil {
		t.Fatalf("AllocateItem: %v", err)
	}
	if !plan.Allocated.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected 120 allocated across batches, got %s", plan.Allocated)
	}
	if len(plan.Lines) != 2 {
		t.Errorf("120 must split across both batches, got %d lines", len(plan.Lines))
	}
	if status != entity.ItemStatusFilled {
		t.Errorf("Expected FILLED, got %s", status)
	}

	if err := svc.SubmitForApproval(ctx, "req-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("SubmitForApproval: %v", err)
	}
	if got := requestStatus(t, db, "req-1"); got != entity.RequestStatusAwaitingApproval {
		t.Fatalf("Expected AWAITING_APPROVAL, got %s", got)
	}

	// Lock is released on submit; reservations are still held.
	var lockCount int64
	db.Model(&entity.FulfillmentLock{}).Where("relief_request_id = ?", "req-1").Count(&lockCount)
	if lockCount != 0 {
		t.Errorf("Submit must release the fulfillment lock")
	}
	var inv entity.Inventory
	db.First(&inv, "id = ?", "inv-w1")
	if !inv.ReservedQty.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Reservations must survive submission, got %s", inv.ReservedQty)
	}

	if err := svc.Approve(ctx, "req-1", "appr-1", "Andre"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got := requestStatus(t, db, "req-1"); got != entity.RequestStatusApproved {
		t.Fatalf("Expected APPROVED, got %s", got)
	}

	line := requestLine(t, db, "req-1", "item-water")
	if !line.IssueQty.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Approval must advance issue_qty to 120, got %s", line.IssueQty)
	}
	if line.Status != entity.ItemStatusFilled {
		t.Errorf("Expected FILLED after approval, got %s", line.Status)
	}

	db.First(&inv, "id = ?", "inv-w1")
	if !inv.UsableQty.IsZero() || !inv.ReservedQty.IsZero() {
		t.Errorf("Batch W1 must be fully consumed, usable %s reserved %s", inv.UsableQty, inv.ReservedQty)
	}

	var pkgRow entity.ReliefPackage
	db.First(&pkgRow, "id = ?", pkg.ID)
	if pkgRow.Status != entity.PackageStatusFinal {
		t.Errorf("Approved package must be FINAL, got %s", pkgRow.Status)
	}

	// FINAL package can be dispatched.
	dispatched, err := svc.DispatchPackage(ctx, pkg.ID, "truck", "disp-1", "Devon")
	if err != nil {
		t.Fatalf("DispatchPackage: %v", err)
	}
	if dispatched.Status != entity.PackageStatusDispatched || dispatched.DispatchAt == nil {
		t.Errorf("Dispatch must set status and timestamp, got %s", dispatched.Status)
	}
}

func TestFulfillmentAllocateRequiresLock(t *testing.T) {
	db, _, svc := setupFulfillmentTest(t)
	ctx := context.Background()

	seedFulfillmentScenario(t, db)
	testutil.SeedRequest(t, db, "req-1", "agn-1", map[string]int64{"item-water": 10})

	if _, err := svc.BeginPreparation(ctx, "req-1", "wh-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("BeginPreparation: %v", err)
	}

	_, _, err := svc.AllocateItem(ctx, "req-1", "item-water", "intruder")
	if !errors.Is(err, ErrNotHolder) {
		t.Fatalf("Non-holder allocation must fail with ErrNotHolder, got %v", err)
	}
}

func TestFulfillmentSubmitBlocksUnresolvedLines(t *testing.T) {
	db, _, svc := setupFulfillmentTest(t)
	ctx := context.Background()

	seedFulfillmentScenario(t, db)
	testutil.SeedRequest(t, db, "req-1", "agn-1", map[string]int64{"item-water": 10, "item-tarp": 5})

	if _, err := svc.BeginPreparation(ctx, "req-1", "wh-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("BeginPreparation: %v", err)
	}
	if _, _, err := svc.AllocateItem(ctx, "req-1", "item-water", "prep-1"); err != nil {
		t.Fatalf("AllocateItem: %v", err)
	}

	// item-tarp is still PENDING, so submission must be refused.
	err := svc.SubmitForApproval(ctx, "req-1", "prep-1", "Paula")
	if !errors.Is(err, ErrIncompleteAllocation) {
		t.Fatalf("Expected ErrIncompleteAllocation, got %v", err)
	}

	// Recording an explained unavailability for the line unblocks it.
	if err := svc.MarkItemUnavailable(ctx, "req-1", "item-tarp", entity.ItemStatusUnavailable, "no tarpaulins in region", "prep-1"); err != nil {
		t.Fatalf("MarkItemUnavailable: %v", err)
	}
	if err := svc.SubmitForApproval(ctx, "req-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("SubmitForApproval after resolving lines: %v", err)
	}
}

func TestFulfillmentAllUnavailableApprovesWithoutConsumption(t *testing.T) {
	db, _, svc := setupFulfillmentTest(t)
	ctx := context.Background()

	seedFulfillmentScenario(t, db)
	testutil.SeedRequest(t, db, "req-1", "agn-1", map[string]int64{"item-tarp": 5})

	if _, err := svc.BeginPreparation(ctx, "req-1", "wh-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("BeginPreparation: %v", err)
	}
	if err := svc.MarkItemUnavailable(ctx, "req-1", "item-tarp", entity.ItemStatusAwaitingAvailability, "restock expected next week", "prep-1"); err != nil {
		t.Fatalf("MarkItemUnavailable: %v", err)
	}
	if err := svc.SubmitForApproval(ctx, "req-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("SubmitForApproval: %v", err)
	}
	if err := svc.Approve(ctx, "req-1", "appr-1", "Andre"); err != nil {
		t.Fatalf("Approve with zero allocation: %v", err)
	}

	if got := requestStatus(t, db, "req-1"); got != entity.RequestStatusApproved {
		t.Fatalf("Expected APPROVED, got %s", got)
	}
	line := requestLine(t, db, "req-1", "item-tarp")
	if !line.IssueQty.IsZero() {
		t.Errorf("Zero-allocation approval must not issue anything, got %s", line.IssueQty)
	}
	if line.Status != entity.ItemStatusAwaitingAvailability {
		t.Errorf("Unavailability status must survive approval, got %s", line.Status)
	}
}

func TestFulfillmentCancelRestoresEverything(t *testing.T) {
	db, _, svc := setupFulfillmentTest(t)
	ctx := context.Background()

	seedFulfillmentScenario(t, db)
	testutil.SeedRequest(t, db, "req-1", "agn-1", map[string]int64{"item-water": 60})

	if _, err := svc.BeginPreparation(ctx, "req-1", "wh-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("BeginPreparation: %v", err)
	}
	if _, _, err := svc.AllocateItem(ctx, "req-1", "item-water", "prep-1"); err != nil {
		t.Fatalf("AllocateItem: %v", err)
	}

	if err := svc.CancelPreparation(ctx, "req-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("CancelPreparation: %v", err)
	}

	if got := requestStatus(t, db, "req-1"); got != entity.RequestStatusAwaitingFulfillment {
		t.Errorf("Cancel must revert to AWAITING_FULFILLMENT, got %s", got)
	}
	line := requestLine(t, db, "req-1", "item-water")
	if line.Status != entity.ItemStatusPending {
		t.Errorf("Cancel must reset line status to PENDING, got %s", line.Status)
	}

	var inv entity.Inventory
	db.First(&inv, "id = ?", "inv-w1")
	if !inv.ReservedQty.IsZero() {
		t.Errorf("Cancel must release reservations, got %s", inv.ReservedQty)
	}

	var lockCount int64
	db.Model(&entity.FulfillmentLock{}).Where("relief_request_id = ?", "req-1").Count(&lockCount)
	if lockCount != 0 {
		t.Errorf("Cancel must drop the fulfillment lock")
	}
	var pkgCount int64
	db.Model(&entity.ReliefPackage{}).Where("relief_request_id = ?", "req-1").Count(&pkgCount)
	if pkgCount != 0 {
		t.Errorf("Cancel must delete the draft package")
	}
}

func TestFulfillmentDenyKeepsPackageForAudit(t *testing.T) {
	db, _, svc := setupFulfillmentTest(t)
	ctx := context.Background()

	seedFulfillmentScenario(t, db)
	testutil.SeedRequest(t, db, "req-1", "agn-1", map[string]int64{"item-water": 30})

	pkg, err := svc.BeginPreparation(ctx, "req-1", "wh-1", "prep-1", "Paula")
	if err != nil {
		t.Fatalf("BeginPreparation: %v", err)
	}
	if _, _, err := svc.AllocateItem(ctx, "req-1", "item-water", "prep-1"); err != nil {
		t.Fatalf("AllocateItem: %v", err)
	}
	if err := svc.SubmitForApproval(ctx, "req-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("SubmitForApproval: %v", err)
	}

	if err := svc.Deny(ctx, "req-1", "appr-1", "Andre", "duplicate request"); err != nil {
		t.Fatalf("Deny: %v", err)
	}

	if got := requestStatus(t, db, "req-1"); got != entity.RequestStatusDenied {
		t.Errorf("Expected DENIED, got %s", got)
	}
	var inv entity.Inventory
	db.First(&inv, "id = ?", "inv-w1")
	if !inv.ReservedQty.IsZero() {
		t.Errorf("Deny must release reservations, got %s", inv.ReservedQty)
	}
	var pkgRow entity.ReliefPackage
	if err := db.First(&pkgRow, "id = ?", pkg.ID).Error; err != nil {
		t.Fatalf("Denied package must be kept for audit: %v", err)
	}
	if pkgRow.Status != entity.PackageStatusDenied {
		t.Errorf("Expected package DENIED, got %s", pkgRow.Status)
	}
}

func TestFulfillmentInvalidTransitions(t *testing.T) {
	db, _, svc := setupFulfillmentTest(t)
	ctx := context.Background()

	seedFulfillmentScenario(t, db)
	testutil.SeedRequest(t, db, "req-1", "agn-1", map[string]int64{"item-water": 10})

	// Approve straight from AWAITING_FULFILLMENT.
	if err := svc.Approve(ctx, "req-1", "appr-1", "Andre"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition, got %v", err)
	}
	// Submit without ever beginning.
	if err := svc.SubmitForApproval(ctx, "req-1", "prep-1", "Paula"); !errors.Is(err, ErrNotHolder) {
		t.Fatalf("Expected ErrNotHolder, got %v", err)
	}
	// Dispatch a package that is still a draft.
	if _, err := svc.BeginPreparation(ctx, "req-1", "wh-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("BeginPreparation: %v", err)
	}
	var pkgRow entity.ReliefPackage
	db.First(&pkgRow, "relief_request_id = ?", "req-1")
	if _, err := svc.DispatchPackage(ctx, pkgRow.ID, "truck", "disp-1", "Devon"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition for draft dispatch, got %v", err)
	}
}

func TestFulfillmentSecondPreparerBlocked(t *testing.T) {
	db, _, svc := setupFulfillmentTest(t)
	ctx := context.Background()

	seedFulfillmentScenario(t, db)
	testutil.SeedRequest(t, db, "req-1", "agn-1", map[string]int64{"item-water": 10})

	if _, err := svc.BeginPreparation(ctx, "req-1", "wh-1", "prep-1", "Paula"); err != nil {
		t.Fatalf("BeginPreparation: %v", err)
	}
	_, err := svc.BeginPreparation(ctx, "req-1", "wh-1", "prep-2", "Quentin")
	if !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("Second preparer must be refused with ErrAlreadyLocked, got %v", err)
	}

	// The holder re-entering resumes the same draft.
	again, err := svc.BeginPreparation(ctx, "req-1", "wh-1", "prep-1", "Paula")
	if err != nil {
		t.Fatalf("Holder resume: %v", err)
	}
	var pkgCount int64
	db.Model(&entity.ReliefPackage{}).Where("relief_request_id = ?", "req-1").Count(&pkgCount)
	if pkgCount != 1 {
		t.Errorf("Resume must not create a second draft, got %d", pkgCount)
	}
	if again.Status != entity.PackageStatusDraft {
		t.Errorf("Resumed package must still be DRAFT, got %s", again.Status)
	}
}

func TestFindItemsSharesTransactionSnapshot(t *testing.T) {
	db, repos, _ := setupFulfillmentTest(t)

	seedFulfillmentScenario(t, db)
	testutil.SeedRequest(t, db, "req-1", "agn-1", map[string]int64{"item-water": 10})

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.ReliefRequestItem{}).
			Where("relief_request_id = ? AND item_id = ?", "req-1", "item-water").
			Update("status", entity.ItemStatusFilled).Error; err != nil {
			return err
		}
		items, err := repos.Request.FindItems(tx, "req-1")
		if err != nil {
			return err
		}
		if len(items) != 1 {
			t.Fatalf("Expected 1 line, got %d", len(items))
		}
		if items[0].Status != entity.ItemStatusFilled {
			t.Errorf("In-transaction read must see the transaction's own write, got %s", items[0].Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
}
