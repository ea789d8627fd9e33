package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const availabilityCacheTTL = 60 * time.Second

// AvailabilityCache caches per-(warehouse, item) availability summaries in
// redis. Ledger mutations invalidate the touched pairs.
type AvailabilityCache struct {
	rdb *redis.Client
}

func NewAvailabilityCache(rdb *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{rdb: rdb}
}

func (c *AvailabilityCache) key(warehouseID, itemID string) string {
	return fmt.Sprintf("avail:%s:%s", warehouseID, itemID)
}

func (c *AvailabilityCache) Get(ctx context.Context, warehouseID, itemID string, out interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	cached, err := c.rdb.Get(ctx, c.key(warehouseID, itemID)).Result()
	if err != nil || cached == "" {
		return false
	}
	return json.Unmarshal([]byte(cached), out) == nil
}

func (c *AvailabilityCache) Set(ctx context.Context, warehouseID, itemID string, v interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, c.key(warehouseID, itemID), b, availabilityCacheTTL)
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, warehouseID, itemID string) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, c.key(warehouseID, itemID))
}

// InventoryService covers the intake side of the store: inbound batches,
// adjustments, and availability lookups feeding the allocation planner.
type InventoryService struct {
	db    *gorm.DB
	repo  *repository.InventoryRepository
	cache *AvailabilityCache
}

func NewInventoryService(db *gorm.DB, repo *repository.InventoryRepository, cache *AvailabilityCache) *InventoryService {
	return &InventoryService{db: db, repo: repo, cache: cache}
}

func (s *InventoryService) List(ctx context.Context, params repository.InventoryListParams) ([]entity.Inventory, int64, error) {
	return s.repo.List(ctx, params)
}

type InboundRequest struct {
	WarehouseID string          `json:"warehouse_id" binding:"required"`
	ItemID      string          `json:"item_id" binding:"required"`
	BatchNo     string          `json:"batch_no"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UomCode     string          `json:"uom_code"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
	Comments    string          `json:"comments"`
}

// Inbound books a received batch into usable stock. A missing batch number
// gets a date-derived one, as intake clerks rarely have the supplier's.
func (s *InventoryService) Inbound(ctx context.Context, req InboundRequest, userID string) (*entity.Inventory, error) {
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: inbound quantity must be positive", ErrValidation)
	}

	now := time.Now()
	batchNo := req.BatchNo
	if batchNo == "" {
		batchNo = fmt.Sprintf("%s%03d", now.Format("20060102"), now.UnixNano()%1000)
	}
	uom := req.UomCode
	if uom == "" {
		uom = "pcs"
	}

	existing, err := s.repo.FindByBatch(ctx, req.WarehouseID, req.ItemID, batchNo)
	if err == nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			rows, lerr := s.repo.LockForUpdate(tx, []string{existing.ID})
			if lerr != nil {
				return lerr
			}
			if len(rows) == 0 {
				return repository.ErrNotFound
			}
			inv := &rows[0]
			inv.UsableQty = inv.UsableQty.Add(req.Quantity)
			affected, uerr := s.repo.UpdateQuantities(tx, inv, userID)
			if uerr != nil {
				return uerr
			}
			if affected == 0 {
				return ErrStaleVersion
			}
			*existing = *inv
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("inbound to batch %s: %w", batchNo, err)
		}
		s.cache.Invalidate(ctx, req.WarehouseID, req.ItemID)
		return existing, nil
	}

	inv := &entity.Inventory{
		ID:          uuid.New().String()[:32],
		WarehouseID: req.WarehouseID,
		ItemID:      req.ItemID,
		BatchNo:     batchNo,
		ExpiryDate:  req.ExpiryDate,
		ReceivedAt:  now,
		UsableQty:   req.Quantity,
		UomCode:     uom,
		Status:      entity.InventoryStatusActive,
		CreatedBy:   userID,
		UpdatedBy:   userID,
		VersionNbr:  1,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create inventory batch: %w", err)
	}
	s.cache.Invalidate(ctx, req.WarehouseID, req.ItemID)
	return inv, nil
}

type AdjustRequest struct {
	InventoryID  string          `json:"inventory_id" binding:"required"`
	UsableDelta  decimal.Decimal `json:"usable_delta"`
	DefectiveQty decimal.Decimal `json:"defective_qty"`
	ExpiredQty   decimal.Decimal `json:"expired_qty"`
	Reason       string          `json:"reason" binding:"required"`
	Version      int             `json:"version_nbr" binding:"required"`
}

// Adjust corrects a batch after a stock count. The caller supplies the
// version it read; a concurrent edit surfaces as ErrStaleVersion rather than
// being overwritten.
func (s *InventoryService) Adjust(ctx context.Context, req AdjustRequest, userID string) (*entity.Inventory, error) {
	var result *entity.Inventory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.LockForUpdate(tx, []string{req.InventoryID})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return repository.ErrNotFound
		}
		inv := &rows[0]
		if inv.VersionNbr != req.Version {
			return ErrStaleVersion
		}

		inv.UsableQty = inv.UsableQty.Add(req.UsableDelta)
		if req.DefectiveQty.GreaterThan(decimal.Zero) {
			inv.DefectiveQty = req.DefectiveQty
		}
		if req.ExpiredQty.GreaterThan(decimal.Zero) {
			inv.ExpiredQty = req.ExpiredQty
		}
		if inv.UsableQty.IsNegative() {
			return fmt.Errorf("%w: adjustment would drive usable_qty negative", ErrValidation)
		}
		if inv.ReservedQty.GreaterThan(inv.UsableQty) {
			return fmt.Errorf("%w: %s reserved exceeds adjusted usable %s", ErrInsufficientInventory, inv.ReservedQty, inv.UsableQty)
		}

		affected, err := s.repo.UpdateQuantities(tx, inv, userID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrStaleVersion
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, result.WarehouseID, result.ItemID)
	return result, nil
}

// Availability summarizes what the planner would see for an item at a
// warehouse. Served from redis when fresh.
type Availability struct {
	WarehouseID string          `json:"warehouse_id"`
	ItemID      string          `json:"item_id"`
	Total       decimal.Decimal `json:"total_available"`
	BatchCount  int             `json:"batch_count"`
}

func (s *InventoryService) Availability(ctx context.Context, warehouseID, itemID string) (*Availability, error) {
	var avail Availability
	if s.cache.Get(ctx, warehouseID, itemID, &avail) {
		return &avail, nil
	}

	batches, err := s.repo.FindAvailableBatches(ctx, warehouseID, itemID)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	avail = Availability{WarehouseID: warehouseID, ItemID: itemID, BatchCount: len(batches)}
	for i := range batches {
		avail.Total = avail.Total.Add(batches[i].AvailableQty())
	}
	s.cache.Set(ctx, warehouseID, itemID, &avail)
	return &avail, nil
}
