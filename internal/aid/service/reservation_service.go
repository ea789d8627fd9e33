package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReservationLedger applies allocation plans as reservations against the
// inventory store and reverses them. Every operation runs in one transaction:
// touched inventory rows are locked FOR UPDATE, quantity writes carry a
// version_nbr compare-and-swap, and package-item writes commit in the same
// unit — the store never shows a reservation without its package line.
type ReservationLedger struct {
	db      *gorm.DB
	invRepo *repository.InventoryRepository
	pkgRepo *repository.ReliefPackageRepository
	logRepo *repository.ActivityLogRepository
}

func NewReservationLedger(db *gorm.DB, invRepo *repository.InventoryRepository, pkgRepo *repository.ReliefPackageRepository, logRepo *repository.ActivityLogRepository) *ReservationLedger {
	return &ReservationLedger{db: db, invRepo: invRepo, pkgRepo: pkgRepo, logRepo: logRepo}
}

// Reserve replaces the package's allocation lines for the plan's item with
// the plan. The previous reservation for that item (if any) is released and
// the new one applied atomically, so re-planning is how a preparer edits a
// line. Fails with ErrInsufficientInventory when concurrent consumption has
// invalidated the plan between planning and commit; the caller re-plans.
func (l *ReservationLedger) Reserve(ctx context.Context, pkg *entity.ReliefPackage, plan *AllocationPlan, userID string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.reserveTx(tx, pkg, plan, userID)
	})
}

func (l *ReservationLedger) reserveTx(tx *gorm.DB, pkg *entity.ReliefPackage, plan *AllocationPlan, userID string) error {
	oldLines, err := l.pkgRepo.ItemsByPackageAndItem(tx, pkg.ID, plan.ItemID)
	if err != nil {
		return fmt.Errorf("load package lines: %w", err)
	}

	// One ordered lock pass over every touched batch, old and new.
	idSet := make(map[string]bool)
	for _, line := range oldLines {
		idSet[line.InventoryID] = true
	}
	for _, line := range plan.Lines {
		idSet[line.InventoryID] = true
	}
	if len(idSet) == 0 {
		// Empty plan replacing an empty reservation: nothing to do.
		return nil
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	rows, err := l.invRepo.LockForUpdate(tx, ids)
	if err != nil {
		return fmt.Errorf("lock inventory rows: %w", err)
	}
	byID := make(map[string]*entity.Inventory, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	for _, line := range oldLines {
		inv, ok := byID[line.InventoryID]
		if !ok {
			return &IntegrityError{Entity: "inventory", ID: line.InventoryID, Detail: "package line references missing batch"}
		}
		inv.ReservedQty = inv.ReservedQty.Sub(line.Qty)
		if inv.ReservedQty.IsNegative() {
			return &IntegrityError{Entity: "inventory", ID: inv.ID, Detail: "release would drive reserved_qty negative"}
		}
	}
	if err := l.pkgRepo.DeleteItemsByItem(tx, pkg.ID, plan.ItemID); err != nil {
		return fmt.Errorf("delete package lines: %w", err)
	}

	for _, line := range plan.Lines {
		inv, ok := byID[line.InventoryID]
		if !ok {
			return fmt.Errorf("%w: batch %s no longer exists", ErrInsufficientInventory, line.BatchNo)
		}
		if inv.AvailableQty().LessThan(line.Qty) {
			return fmt.Errorf("%w: batch %s has %s available, plan wants %s",
				ErrInsufficientInventory, line.BatchNo, inv.AvailableQty(), line.Qty)
		}
		inv.ReservedQty = inv.ReservedQty.Add(line.Qty)
		if err := l.pkgRepo.CreateItem(tx, &entity.ReliefPackageItem{
			ID:          uuid.New().String()[:32],
			PackageID:   pkg.ID,
			InventoryID: line.InventoryID,
			ItemID:      plan.ItemID,
			Qty:         line.Qty,
			UomCode:     inv.UomCode,
			CreatedBy:   userID,
			CreatedAt:   time.Now(),
		}); err != nil {
			return fmt.Errorf("create package line: %w", err)
		}
	}

	if err := l.flushQuantities(tx, byID, userID); err != nil {
		return err
	}
	l.logRepo.LogActivity(tx.Statement.Context, "relief_package", pkg.ID, "reserve", "", "",
		fmt.Sprintf("item %s: reserved %s across %d batches", plan.ItemID, plan.Allocated, len(plan.Lines)), userID, "")
	return nil
}

// ReleaseAll reverses every reservation held by the request's draft package,
// deletes its lines, and removes the package. Calling it when no draft
// package exists is a no-op, so a repeated cancel converges instead of
// failing.
func (l *ReservationLedger) ReleaseAll(ctx context.Context, requestID, userID string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.releaseAllTx(tx, requestID, userID, "")
	})
}

// releaseAllTx releases the draft package's reservations. When denyStatus is
// empty the package row is deleted (cancellation); otherwise the emptied
// package is kept with that status for the audit trail (denial).
func (l *ReservationLedger) releaseAllTx(tx *gorm.DB, requestID, userID, denyStatus string) error {
	var pkg entity.ReliefPackage
	err := tx.Where("relief_request_id = ? AND status = ?", requestID, entity.PackageStatusDraft).
		First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load draft package: %w", err)
	}

	lines, err := l.pkgRepo.ItemsByPackage(tx, pkg.ID)
	if err != nil {
		return fmt.Errorf("load package lines: %w", err)
	}

	if len(lines) > 0 {
		ids := make([]string, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.InventoryID)
		}
		rows, err := l.invRepo.LockForUpdate(tx, ids)
		if err != nil {
			return fmt.Errorf("lock inventory rows: %w", err)
		}
		byID := make(map[string]*entity.Inventory, len(rows))
		for i := range rows {
			byID[rows[i].ID] = &rows[i]
		}
		for _, line := range lines {
			inv, ok := byID[line.InventoryID]
			if !ok {
				return &IntegrityError{Entity: "inventory", ID: line.InventoryID, Detail: "package line references missing batch"}
			}
			inv.ReservedQty = inv.ReservedQty.Sub(line.Qty)
			if inv.ReservedQty.IsNegative() {
				return &IntegrityError{Entity: "inventory", ID: inv.ID, Detail: "release would drive reserved_qty negative"}
			}
		}
		if err := l.flushQuantities(tx, byID, userID); err != nil {
			return err
		}
	}

	if err := l.pkgRepo.DeleteItems(tx, pkg.ID); err != nil {
		return fmt.Errorf("delete package lines: %w", err)
	}
	if denyStatus == "" {
		if err := l.pkgRepo.Delete(tx, pkg.ID); err != nil {
			return fmt.Errorf("delete package: %w", err)
		}
	} else {
		affected, err := l.pkgRepo.UpdateStatus(tx, pkg.ID, entity.PackageStatusDraft, denyStatus, userID)
		if err != nil {
			return fmt.Errorf("update package status: %w", err)
		}
		if affected == 0 {
			return ErrStaleVersion
		}
	}
	l.logRepo.LogActivity(tx.Statement.Context, "relief_package", pkg.ID, "release", "", denyStatus,
		fmt.Sprintf("released %d reservation lines", len(lines)), userID, "")
	return nil
}

// commitConsumptionTx converts the package's reservations into permanent
// deductions from usable stock and finalizes the package. Returns the
// consumed quantity per request item for issue_qty bookkeeping.
func (l *ReservationLedger) commitConsumptionTx(tx *gorm.DB, packageID, userID string) (map[string]decimal.Decimal, error) {
	lines, err := l.pkgRepo.ItemsByPackage(tx, packageID)
	if err != nil {
		return nil, fmt.Errorf("load package lines: %w", err)
	}

	consumed := make(map[string]decimal.Decimal)
	if len(lines) > 0 {
		ids := make([]string, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.InventoryID)
		}
		rows, err := l.invRepo.LockForUpdate(tx, ids)
		if err != nil {
			return nil, fmt.Errorf("lock inventory rows: %w", err)
		}
		byID := make(map[string]*entity.Inventory, len(rows))
		for i := range rows {
			byID[rows[i].ID] = &rows[i]
		}
		for _, line := range lines {
			inv, ok := byID[line.InventoryID]
			if !ok {
				return nil, &IntegrityError{Entity: "inventory", ID: line.InventoryID, Detail: "package line references missing batch"}
			}
			inv.ReservedQty = inv.ReservedQty.Sub(line.Qty)
			inv.UsableQty = inv.UsableQty.Sub(line.Qty)
			if inv.ReservedQty.IsNegative() || inv.UsableQty.IsNegative() {
				return nil, &IntegrityError{Entity: "inventory", ID: inv.ID, Detail: "consumption exceeds reserved or usable quantity"}
			}
			consumed[line.ItemID] = consumed[line.ItemID].Add(line.Qty)
		}
		if err := l.flushQuantities(tx, byID, userID); err != nil {
			return nil, err
		}
	}

	affected, err := l.pkgRepo.UpdateStatus(tx, packageID, entity.PackageStatusDraft, entity.PackageStatusFinal, userID)
	if err != nil {
		return nil, fmt.Errorf("finalize package: %w", err)
	}
	if affected == 0 {
		return nil, ErrStaleVersion
	}
	l.logRepo.LogActivity(tx.Statement.Context, "relief_package", packageID, "consume",
		entity.PackageStatusDraft, entity.PackageStatusFinal,
		fmt.Sprintf("consumed %d reservation lines", len(lines)), userID, "")
	return consumed, nil
}

// allocatedByItem sums the package's live allocation lines per request item.
func (l *ReservationLedger) allocatedByItem(tx *gorm.DB, packageID string) (map[string]decimal.Decimal, error) {
	lines, err := l.pkgRepo.ItemsByPackage(tx, packageID)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]decimal.Decimal)
	for _, line := range lines {
		totals[line.ItemID] = totals[line.ItemID].Add(line.Qty)
	}
	return totals, nil
}

// flushQuantities writes every locked row back under its version guard.
// The rows are locked in this transaction, so a failed guard means a bug in
// our own bookkeeping, not a user race; it still aborts the unit of work.
func (l *ReservationLedger) flushQuantities(tx *gorm.DB, byID map[string]*entity.Inventory, userID string) error {
	for _, inv := range byID {
		affected, err := l.invRepo.UpdateQuantities(tx, inv, userID)
		if err != nil {
			return fmt.Errorf("update inventory %s: %w", inv.ID, err)
		}
		if affected == 0 {
			return fmt.Errorf("update inventory %s: %w", inv.ID, ErrStaleVersion)
		}
	}
	return nil
}
