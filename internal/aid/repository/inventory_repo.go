package repository

import (
	"context"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

type InventoryListParams struct {
	WarehouseID string
	ItemID      string
	BatchNo     string
	Page        int
	Size        int
}

func (r *InventoryRepository) List(ctx context.Context, params InventoryListParams) ([]entity.Inventory, int64, error) {
	var items []entity.Inventory
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Inventory{}).
		Where("status = ?", entity.InventoryStatusActive)
	if params.WarehouseID != "" {
		query = query.Where("warehouse_id = ?", params.WarehouseID)
	}
	if params.ItemID != "" {
		query = query.Where("item_id = ?", params.ItemID)
	}
	if params.BatchNo != "" {
		query = query.Where("batch_no = ?", params.BatchNo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	size := params.Size
	if size < 1 {
		size = 20
	}
	err := query.
		Order("warehouse_id, item_id, batch_no").
		Offset((page - 1) * size).
		Limit(size).
		Find(&items).Error
	return items, total, err
}

func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*entity.Inventory, error) {
	var inv entity.Inventory
	if err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

func (r *InventoryRepository) FindByBatch(ctx context.Context, warehouseID, itemID, batchNo string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND item_id = ? AND batch_no = ?", warehouseID, itemID, batchNo).
		First(&inv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

// FindAvailableBatches returns the active batches of an item at a warehouse
// with available (usable minus reserved) quantity, in FEFO order: earliest
// expiry first, batches without expiry last, then oldest receipt, then batch
// number for a stable tie-break.
func (r *InventoryRepository) FindAvailableBatches(ctx context.Context, warehouseID, itemID string) ([]entity.Inventory, error) {
	var batches []entity.Inventory
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND item_id = ? AND status = ? AND usable_qty - reserved_qty > 0",
			warehouseID, itemID, entity.InventoryStatusActive).
		Order("COALESCE(expiry_date, '9999-12-31'::timestamp) ASC, received_at ASC, batch_no ASC").
		Find(&batches).Error
	return batches, err
}

// LockForUpdate loads the given inventory rows inside tx with a row-level
// write lock, ordered by id so concurrent reservations lock in one order.
func (r *InventoryRepository) LockForUpdate(tx *gorm.DB, ids []string) ([]entity.Inventory, error) {
	var rows []entity.Inventory
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&rows).Error
	return rows, err
}

// UpdateQuantities writes the quantity buckets of inv guarded by its version
// counter. Returns the affected row count; zero means the caller raced a
// concurrent writer.
func (r *InventoryRepository) UpdateQuantities(tx *gorm.DB, inv *entity.Inventory, updatedBy string) (int64, error) {
	res := tx.Model(&entity.Inventory{}).
		Where("id = ? AND version_nbr = ?", inv.ID, inv.VersionNbr).
		Updates(map[string]interface{}{
			"usable_qty":    inv.UsableQty,
			"reserved_qty":  inv.ReservedQty,
			"defective_qty": inv.DefectiveQty,
			"expired_qty":   inv.ExpiredQty,
			"updated_by":    updatedBy,
			"version_nbr":   gorm.Expr("version_nbr + 1"),
		})
	return res.RowsAffected, res.Error
}

func (r *InventoryRepository) Create(ctx context.Context, inv *entity.Inventory) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *InventoryRepository) Update(ctx context.Context, inv *entity.Inventory) error {
	return r.db.WithContext(ctx).Save(inv).Error
}
