package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestService handles the intake side: agencies filing needs lists and
// reviewers setting per-line policy ceilings before preparation starts.
type RequestService struct {
	db      *gorm.DB
	repo    *repository.ReliefRequestRepository
	agnRepo *repository.AgencyRepository
	logRepo *repository.ActivityLogRepository
}

func NewRequestService(db *gorm.DB, repos *repository.Repositories) *RequestService {
	return &RequestService{
		db:      db,
		repo:    repos.Request,
		agnRepo: repos.Agency,
		logRepo: repos.ActivityLog,
	}
}

type CreateRequestItem struct {
	ItemID         string          `json:"item_id" binding:"required"`
	RequestQty     decimal.Decimal `json:"request_qty" binding:"required"`
	UrgencyInd     string          `json:"urgency_ind"`
	RequiredByDate *time.Time      `json:"required_by_date"`
}

type CreateRequestInput struct {
	AgencyID    string              `json:"agency_id" binding:"required"`
	RequestDate *time.Time          `json:"request_date"`
	UrgencyInd  string              `json:"urgency_ind"`
	Items       []CreateRequestItem `json:"items" binding:"required,min=1,dive"`
}

// Create files a new request with its lines, all AWAITING_FULFILLMENT /
// PENDING. Duplicate item lines and non-positive quantities are rejected.
func (s *RequestService) Create(ctx context.Context, in *CreateRequestInput, userID, userName string) (*entity.ReliefRequest, error) {
	if _, err := s.agnRepo.FindByID(ctx, in.AgencyID); err != nil {
		return nil, fmt.Errorf("agency %s: %w", in.AgencyID, err)
	}

	seen := make(map[string]bool, len(in.Items))
	for _, line := range in.Items {
		if seen[line.ItemID] {
			return nil, fmt.Errorf("%w: duplicate item %s", ErrValidation, line.ItemID)
		}
		seen[line.ItemID] = true
		if line.RequestQty.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: request_qty must be positive for item %s", ErrValidation, line.ItemID)
		}
	}

	reqDate := time.Now()
	if in.RequestDate != nil {
		reqDate = *in.RequestDate
	}
	urgency := in.UrgencyInd
	if urgency == "" {
		urgency = entity.UrgencyNormal
	}

	req := &entity.ReliefRequest{
		ID:          uuid.New().String()[:32],
		AgencyID:    in.AgencyID,
		RequestDate: reqDate,
		UrgencyInd:  urgency,
		Status:      entity.RequestStatusAwaitingFulfillment,
		CreatedBy:   userID,
		UpdatedBy:   userID,
		VersionNbr:  1,
	}
	for _, line := range in.Items {
		lineUrgency := line.UrgencyInd
		if lineUrgency == "" {
			lineUrgency = urgency
		}
		req.Items = append(req.Items, entity.ReliefRequestItem{
			ID:              uuid.New().String()[:32],
			ReliefRequestID: req.ID,
			ItemID:          line.ItemID,
			RequestQty:      line.RequestQty,
			UrgencyInd:      lineUrgency,
			RequiredByDate:  line.RequiredByDate,
			Status:          entity.ItemStatusPending,
			VersionNbr:      1,
		})
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create relief request: %w", err)
	}
	s.logRepo.LogActivity(ctx, "relief_request", req.ID, "create",
		"", entity.RequestStatusAwaitingFulfillment, "", userID, userName)
	return req, nil
}

func (s *RequestService) Get(ctx context.Context, id string) (*entity.ReliefRequest, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *RequestService) List(ctx context.Context, status string, page, size int) ([]entity.ReliefRequest, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return s.repo.List(ctx, status, page, size)
}

type ReviewItemInput struct {
	AllowedQty *decimal.Decimal `json:"allowed_qty"`
	UrgencyInd string           `json:"urgency_ind"`
	Version    int              `json:"version_nbr" binding:"required"`
}

// ReviewItem sets the policy ceiling (and urgency) on a line before or during
// fulfillment. The caller's version must match the stored one; a concurrent
// edit surfaces as ErrStaleVersion instead of silently clobbering.
func (s *RequestService) ReviewItem(ctx context.Context, requestID, itemID string, in *ReviewItemInput, userID string) (*entity.ReliefRequestItem, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	switch req.Status {
	case entity.RequestStatusApproved, entity.RequestStatusDenied:
		return nil, fmt.Errorf("%w: request %s is %s", ErrInvalidTransition, requestID, req.Status)
	}

	line, err := s.repo.FindItem(ctx, requestID, itemID)
	if err != nil {
		return nil, err
	}
	if line.VersionNbr != in.Version {
		return nil, fmt.Errorf("request item %s: %w", itemID, ErrStaleVersion)
	}
	if in.AllowedQty != nil {
		if in.AllowedQty.IsNegative() {
			return nil, fmt.Errorf("%w: allowed_qty cannot be negative", ErrValidation)
		}
		line.AllowedQty = *in.AllowedQty
	}
	if in.UrgencyInd != "" {
		line.UrgencyInd = in.UrgencyInd
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateItem(tx, line)
		if err != nil {
			return fmt.Errorf("update request item: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("request item %s: %w", itemID, ErrStaleVersion)
		}
		now := time.Now()
		return tx.Model(&entity.ReliefRequest{}).
			Where("id = ?", requestID).
			Updates(map[string]interface{}{"review_by": userID, "review_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	line.VersionNbr++
	return line, nil
}
