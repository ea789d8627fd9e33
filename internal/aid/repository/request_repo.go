package repository

import (
	"context"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"gorm.io/gorm"
)

type ReliefRequestRepository struct {
	db *gorm.DB
}

func NewReliefRequestRepository(db *gorm.DB) *ReliefRequestRepository {
	return &ReliefRequestRepository{db: db}
}

func (r *ReliefRequestRepository) DB() *gorm.DB {
	return r.db
}

func (r *ReliefRequestRepository) Create(ctx context.Context, req *entity.ReliefRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *ReliefRequestRepository) FindByID(ctx context.Context, id string) (*entity.ReliefRequest, error) {
	var req entity.ReliefRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Agency").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *ReliefRequestRepository) List(ctx context.Context, status string, page, size int) ([]entity.ReliefRequest, int64, error) {
	var reqs []entity.ReliefRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ReliefRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	err := query.
		Preload("Agency").
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&reqs).Error
	return reqs, total, err
}

// TransitionStatus flips the request status inside tx, guarded by both the
// expected source status and the version counter. Zero rows affected means
// either a concurrent transition or a stale caller.
func (r *ReliefRequestRepository) TransitionStatus(tx *gorm.DB, id, from, to, actionBy string) (int64, error) {
	res := tx.Model(&entity.ReliefRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"action_by":   actionBy,
			"action_at":   tx.NowFunc(),
			"updated_by":  actionBy,
			"version_nbr": gorm.Expr("version_nbr + 1"),
		})
	return res.RowsAffected, res.Error
}

func (r *ReliefRequestRepository) FindItem(ctx context.Context, requestID, itemID string) (*entity.ReliefRequestItem, error) {
	var item entity.ReliefRequestItem
	err := r.db.WithContext(ctx).
		Where("relief_request_id = ? AND item_id = ?", requestID, itemID).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// FindItems reads the request's lines through tx so a caller inside a
// transaction shares its snapshot.
func (r *ReliefRequestRepository) FindItems(tx *gorm.DB, requestID string) ([]entity.ReliefRequestItem, error) {
	var items []entity.ReliefRequestItem
	err := tx.
		Where("relief_request_id = ?", requestID).
		Order("item_id").
		Find(&items).Error
	return items, err
}

// UpdateItem writes a request line guarded by its version counter.
func (r *ReliefRequestRepository) UpdateItem(tx *gorm.DB, item *entity.ReliefRequestItem) (int64, error) {
	res := tx.Model(&entity.ReliefRequestItem{}).
		Where("id = ? AND version_nbr = ?", item.ID, item.VersionNbr).
		Updates(map[string]interface{}{
			"allowed_qty":   item.AllowedQty,
			"issue_qty":     item.IssueQty,
			"urgency_ind":   item.UrgencyInd,
			"status":        item.Status,
			"status_reason": item.StatusReason,
			"version_nbr":   gorm.Expr("version_nbr + 1"),
		})
	return res.RowsAffected, res.Error
}
