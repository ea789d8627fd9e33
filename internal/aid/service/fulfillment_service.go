package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/sse"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// transition names, as recorded in the activity log
const (
	actionBegin    = "begin_preparation"
	actionCancel   = "cancel_preparation"
	actionSubmit   = "submit_for_approval"
	actionApprove  = "approve"
	actionDeny     = "deny"
	actionDispatch = "dispatch"
)

// FulfillmentService drives a relief request through preparation and
// approval, consuming the lock and the reservation ledger as it moves.
type FulfillmentService struct {
	db      *gorm.DB
	reqRepo *repository.ReliefRequestRepository
	pkgRepo *repository.ReliefPackageRepository
	invRepo *repository.InventoryRepository
	logRepo *repository.ActivityLogRepository
	locks   *LockService
	ledger  *ReservationLedger
	cache   *AvailabilityCache
}

func NewFulfillmentService(db *gorm.DB, repos *repository.Repositories, locks *LockService, ledger *ReservationLedger, cache *AvailabilityCache) *FulfillmentService {
	return &FulfillmentService{
		db:      db,
		reqRepo: repos.Request,
		pkgRepo: repos.Package,
		invRepo: repos.Inventory,
		logRepo: repos.ActivityLog,
		locks:   locks,
		ledger:  ledger,
		cache:   cache,
	}
}

// BeginPreparation acquires the fulfillment lock and opens (or resumes) the
// draft package, advancing AWAITING_FULFILLMENT -> BEING_PREPARED. If the
// request is already BEING_PREPARED and the caller holds the lock — or an
// admin override orphaned the draft — the existing draft is resumed.
func (s *FulfillmentService) BeginPreparation(ctx context.Context, requestID, warehouseID, userID, userName string) (*entity.ReliefPackage, error) {
	req, err := s.reqRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case entity.RequestStatusAwaitingFulfillment, entity.RequestStatusBeingPrepared:
	default:
		return nil, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, actionBegin, req.Status)
	}

	if _, err := s.locks.Acquire(ctx, requestID, userID, userName); err != nil {
		return nil, err
	}

	if req.Status == entity.RequestStatusBeingPrepared {
		pkg, err := s.pkgRepo.FindDraftByRequest(ctx, requestID)
		if err != nil {
			return nil, fmt.Errorf("resume draft package: %w", err)
		}
		return pkg, nil
	}

	var pkg *entity.ReliefPackage
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.reqRepo.TransitionStatus(tx, requestID,
			entity.RequestStatusAwaitingFulfillment, entity.RequestStatusBeingPrepared, userID)
		if err != nil {
			return fmt.Errorf("transition status: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, actionBegin, req.Status)
		}
		pkg = &entity.ReliefPackage{
			ID:              uuid.New().String()[:32],
			ReliefRequestID: requestID,
			WarehouseID:     warehouseID,
			Status:          entity.PackageStatusDraft,
			CreatedBy:       userID,
			UpdatedBy:       userID,
			VersionNbr:      1,
		}
		return tx.Create(pkg).Error
	})
	if err != nil {
		// The lock was taken but the transition lost a race; hand it back.
		_ = s.locks.Release(ctx, requestID, userID)
		return nil, err
	}

	s.logRepo.LogActivity(ctx, "relief_request", requestID, actionBegin,
		entity.RequestStatusAwaitingFulfillment, entity.RequestStatusBeingPrepared, "", userID, userName)
	sse.PublishFulfillmentUpdate(requestID, entity.RequestStatusAwaitingFulfillment, entity.RequestStatusBeingPrepared)
	return pkg, nil
}

// AllocateItem re-plans one request line against the package warehouse's
// available batches and commits the plan through the ledger, replacing any
// prior reservation for the line. The resulting plan and resolved status are
// returned so the presentation layer can show the split.
func (s *FulfillmentService) AllocateItem(ctx context.Context, requestID, itemID, userID string) (*AllocationPlan, string, error) {
	if err := s.requireHolder(ctx, requestID, userID); err != nil {
		return nil, "", err
	}
	line, err := s.reqRepo.FindItem(ctx, requestID, itemID)
	if err != nil {
		return nil, "", err
	}
	pkg, err := s.pkgRepo.FindDraftByRequest(ctx, requestID)
	if err != nil {
		return nil, "", fmt.Errorf("load draft package: %w", err)
	}

	batches, err := s.invRepo.FindAvailableBatches(ctx, pkg.WarehouseID, itemID)
	if err != nil {
		return nil, "", fmt.Errorf("load batches: %w", err)
	}
	remaining := line.RequestQty.Sub(line.IssueQty)
	if remaining.LessThanOrEqual(decimal.Zero) {
		return nil, "", fmt.Errorf("%w: nothing left to issue for item %s", ErrValidation, itemID)
	}
	plan, err := PlanAllocation(itemID, remaining, line.AllowedQty, batches)
	if err != nil {
		return nil, "", err
	}

	status := ResolveItemStatus(plan.Requested, line.AllowedQty, plan.Allocated)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.reserveTx(tx, pkg, plan, userID); err != nil {
			return err
		}
		line.Status = status
		if status != entity.ItemStatusPending {
			line.StatusReason = ""
		}
		affected, err := s.reqRepo.UpdateItem(tx, line)
		if err != nil {
			return fmt.Errorf("update request item: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("request item %s: %w", itemID, ErrStaleVersion)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.cache.Invalidate(ctx, pkg.WarehouseID, itemID)
	return plan, status, nil
}

// MarkItemUnavailable records an explicit zero-allocation outcome on a line
// (Unavailable / Denied / Awaiting Availability), releasing any reservation
// the line held. A reason is mandatory — it is what lets the approval gate
// pass the line.
func (s *FulfillmentService) MarkItemUnavailable(ctx context.Context, requestID, itemID, status, reason, userID string) error {
	if !entity.IsUnavailabilityStatus(status) {
		return fmt.Errorf("%w: %s is not an unavailability status", ErrValidation, status)
	}
	if reason == "" {
		return fmt.Errorf("%w: a reason is required for %s", ErrValidation, status)
	}
	if err := s.requireHolder(ctx, requestID, userID); err != nil {
		return err
	}
	line, err := s.reqRepo.FindItem(ctx, requestID, itemID)
	if err != nil {
		return err
	}
	pkg, err := s.pkgRepo.FindDraftByRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load draft package: %w", err)
	}

	empty := &AllocationPlan{ItemID: itemID, Requested: line.RequestQty, Target: line.RequestQty}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.reserveTx(tx, pkg, empty, userID); err != nil {
			return err
		}
		line.Status = status
		line.StatusReason = reason
		affected, err := s.reqRepo.UpdateItem(tx, line)
		if err != nil {
			return fmt.Errorf("update request item: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("request item %s: %w", itemID, ErrStaleVersion)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, pkg.WarehouseID, itemID)
	return nil
}

// CancelPreparation abandons the draft: reservations are released, package
// items and the package removed, line statuses reset, the status reverted,
// and the lock dropped — one atomic unit, never partially observable.
func (s *FulfillmentService) CancelPreparation(ctx context.Context, requestID, userID, userName string) error {
	if err := s.requireHolder(ctx, requestID, userID); err != nil {
		return err
	}

	pkg, err := s.pkgRepo.FindDraftByRequest(ctx, requestID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load draft package: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.releaseAllTx(tx, requestID, userID, ""); err != nil {
			return err
		}
		if err := tx.Model(&entity.ReliefRequestItem{}).
			Where("relief_request_id = ? AND status <> ?", requestID, entity.ItemStatusPending).
			Updates(map[string]interface{}{
				"status":        entity.ItemStatusPending,
				"status_reason": "",
				"version_nbr":   gorm.Expr("version_nbr + 1"),
			}).Error; err != nil {
			return fmt.Errorf("reset item statuses: %w", err)
		}
		affected, err := s.reqRepo.TransitionStatus(tx, requestID,
			entity.RequestStatusBeingPrepared, entity.RequestStatusAwaitingFulfillment, userID)
		if err != nil {
			return fmt.Errorf("transition status: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, actionCancel)
		}
		return s.locks.releaseTx(ctx, tx, requestID, userID)
	})
	if err != nil {
		return err
	}

	if pkg != nil {
		s.invalidateItems(ctx, pkg)
	}
	s.logRepo.LogActivity(ctx, "relief_request", requestID, actionCancel,
		entity.RequestStatusBeingPrepared, entity.RequestStatusAwaitingFulfillment, "", userID, userName)
	sse.PublishFulfillmentUpdate(requestID, entity.RequestStatusBeingPrepared, entity.RequestStatusAwaitingFulfillment)
	return nil
}

// SubmitForApproval hands the draft to an approver. Reservations stay held;
// the lock is released in the same unit as the status change. Every line must
// be resolved: allocated, or carrying an unavailability status with a reason.
func (s *FulfillmentService) SubmitForApproval(ctx context.Context, requestID, userID, userName string) error {
	if err := s.requireHolder(ctx, requestID, userID); err != nil {
		return err
	}
	pkg, err := s.pkgRepo.FindDraftByRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load draft package: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := s.reqRepo.FindItems(tx, requestID)
		if err != nil {
			return fmt.Errorf("load request items: %w", err)
		}
		allocated, err := s.ledger.allocatedByItem(tx, pkg.ID)
		if err != nil {
			return fmt.Errorf("sum allocations: %w", err)
		}
		for i := range items {
			if !itemApprovable(&items[i], allocated[items[i].ItemID]) {
				return fmt.Errorf("%w: item %s is unresolved", ErrIncompleteAllocation, items[i].ItemID)
			}
		}
		affected, err := s.reqRepo.TransitionStatus(tx, requestID,
			entity.RequestStatusBeingPrepared, entity.RequestStatusAwaitingApproval, userID)
		if err != nil {
			return fmt.Errorf("transition status: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, actionSubmit)
		}
		return s.locks.releaseTx(ctx, tx, requestID, userID)
	})
	if err != nil {
		return err
	}

	s.logRepo.LogActivity(ctx, "relief_request", requestID, actionSubmit,
		entity.RequestStatusBeingPrepared, entity.RequestStatusAwaitingApproval, "", userID, userName)
	sse.PublishFulfillmentUpdate(requestID, entity.RequestStatusBeingPrepared, entity.RequestStatusAwaitingApproval)
	return nil
}

// Approve finalizes the package: reservations become consumption, issue
// quantities advance, line statuses settle, and the request reaches APPROVED.
// The gate: every line either has allocation or an explained unavailability —
// a request where all lines are explained-unavailable approves with zero
// consumption and untouched inventory.
func (s *FulfillmentService) Approve(ctx context.Context, requestID, approverID, approverName string) error {
	req, err := s.reqRepo.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != entity.RequestStatusAwaitingApproval {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, actionApprove, req.Status)
	}
	pkg, err := s.pkgRepo.FindDraftByRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load draft package: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocated, err := s.ledger.allocatedByItem(tx, pkg.ID)
		if err != nil {
			return fmt.Errorf("sum allocations: %w", err)
		}
		items, err := s.reqRepo.FindItems(tx, requestID)
		if err != nil {
			return fmt.Errorf("load request items: %w", err)
		}
		for i := range items {
			if !itemApprovable(&items[i], allocated[items[i].ItemID]) {
				return fmt.Errorf("%w: item %s", ErrNoFulfillableItems, items[i].ItemID)
			}
		}

		consumed, err := s.ledger.commitConsumptionTx(tx, pkg.ID, approverID)
		if err != nil {
			return err
		}
		for i := range items {
			qty, ok := consumed[items[i].ItemID]
			if !ok {
				continue
			}
			items[i].IssueQty = items[i].IssueQty.Add(qty)
			items[i].Status = ResolveItemStatus(items[i].RequestQty, items[i].AllowedQty, items[i].IssueQty)
			affected, err := s.reqRepo.UpdateItem(tx, &items[i])
			if err != nil {
				return fmt.Errorf("update request item: %w", err)
			}
			if affected == 0 {
				return fmt.Errorf("request item %s: %w", items[i].ItemID, ErrStaleVersion)
			}
		}

		affected, err := s.reqRepo.TransitionStatus(tx, requestID,
			entity.RequestStatusAwaitingApproval, entity.RequestStatusApproved, approverID)
		if err != nil {
			return fmt.Errorf("transition status: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, actionApprove)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateItems(ctx, pkg)
	s.logRepo.LogActivity(ctx, "relief_request", requestID, actionApprove,
		entity.RequestStatusAwaitingApproval, entity.RequestStatusApproved, "", approverID, approverName)
	sse.PublishFulfillmentUpdate(requestID, entity.RequestStatusAwaitingApproval, entity.RequestStatusApproved)
	return nil
}

// Deny releases the held reservations (the ledger's release path), keeps the
// emptied package for the audit trail, and parks the request at DENIED.
func (s *FulfillmentService) Deny(ctx context.Context, requestID, approverID, approverName, reason string) error {
	req, err := s.reqRepo.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != entity.RequestStatusAwaitingApproval {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, actionDeny, req.Status)
	}
	pkg, err := s.pkgRepo.FindDraftByRequest(ctx, requestID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load draft package: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.releaseAllTx(tx, requestID, approverID, entity.PackageStatusDenied); err != nil {
			return err
		}
		affected, err := s.reqRepo.TransitionStatus(tx, requestID,
			entity.RequestStatusAwaitingApproval, entity.RequestStatusDenied, approverID)
		if err != nil {
			return fmt.Errorf("transition status: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, actionDeny)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if pkg != nil {
		s.invalidateItems(ctx, pkg)
	}
	s.logRepo.LogActivity(ctx, "relief_request", requestID, actionDeny,
		entity.RequestStatusAwaitingApproval, entity.RequestStatusDenied, reason, approverID, approverName)
	sse.PublishFulfillmentUpdate(requestID, entity.RequestStatusAwaitingApproval, entity.RequestStatusDenied)
	return nil
}

func (s *FulfillmentService) GetPackage(ctx context.Context, packageID string) (*entity.ReliefPackage, error) {
	return s.pkgRepo.FindByID(ctx, packageID)
}

// DispatchPackage marks an approved (FINAL) package as on its way.
func (s *FulfillmentService) DispatchPackage(ctx context.Context, packageID, transportMode, userID, userName string) (*entity.ReliefPackage, error) {
	pkg, err := s.pkgRepo.FindByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg.Status != entity.PackageStatusFinal {
		return nil, fmt.Errorf("%w: %s from package status %s", ErrInvalidTransition, actionDispatch, pkg.Status)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.pkgRepo.UpdateStatus(tx, packageID, entity.PackageStatusFinal, entity.PackageStatusDispatched, userID)
		if err != nil {
			return fmt.Errorf("dispatch package: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, actionDispatch)
		}
		return tx.Model(&entity.ReliefPackage{}).
			Where("id = ?", packageID).
			Updates(map[string]interface{}{"dispatch_at": now, "transport_mode": transportMode}).Error
	})
	if err != nil {
		return nil, err
	}

	pkg.Status = entity.PackageStatusDispatched
	pkg.DispatchAt = &now
	pkg.TransportMode = transportMode
	s.logRepo.LogActivity(ctx, "package", packageID, actionDispatch,
		entity.PackageStatusFinal, entity.PackageStatusDispatched, transportMode, userID, userName)
	return pkg, nil
}

func (s *FulfillmentService) requireHolder(ctx context.Context, requestID, userID string) error {
	held, err := s.locks.IsHeldBy(ctx, requestID, userID)
	if err != nil {
		return fmt.Errorf("check lock: %w", err)
	}
	if !held {
		return fmt.Errorf("%w: request %s", ErrNotHolder, requestID)
	}
	return nil
}

func (s *FulfillmentService) invalidateItems(ctx context.Context, pkg *entity.ReliefPackage) {
	seen := make(map[string]bool)
	for _, line := range pkg.Items {
		if !seen[line.ItemID] {
			seen[line.ItemID] = true
			s.cache.Invalidate(ctx, pkg.WarehouseID, line.ItemID)
		}
	}
}
