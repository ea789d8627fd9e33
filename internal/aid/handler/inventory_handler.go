package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/service"
)

type InventoryHandler struct {
	svc     *service.InventoryService
	whsRepo *repository.WarehouseRepository
	itmRepo *repository.ItemRepository
}

func NewInventoryHandler(svc *service.InventoryService, repos *repository.Repositories) *InventoryHandler {
	return &InventoryHandler{svc: svc, whsRepo: repos.Warehouse, itmRepo: repos.Item}
}

// List pages batch rows, filterable by warehouse, item and batch number.
// GET /api/v1/inventory?warehouse_id=&item_id=&batch_no=
func (h *InventoryHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	rows, total, err := h.svc.List(c.Request.Context(), repository.InventoryListParams{
		WarehouseID: c.Query("warehouse_id"),
		ItemID:      c.Query("item_id"),
		BatchNo:     c.Query("batch_no"),
		Page:        page,
		Size:        pageSize,
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items: rows,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: (int(total) + pageSize - 1) / pageSize,
		},
	})
}

// Inbound books a received batch into usable stock.
// POST /api/v1/inventory/inbound
func (h *InventoryHandler) Inbound(c *gin.Context) {
	var in service.InboundRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	inv, err := h.svc.Inbound(c.Request.Context(), in, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, inv)
}

// Adjust corrects a batch after a stock count.
// POST /api/v1/inventory/adjust
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var in service.AdjustRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	inv, err := h.svc.Adjust(c.Request.Context(), in, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, inv)
}

// Availability summarizes what a warehouse can promise for an item.
// GET /api/v1/inventory/availability?warehouse_id=&item_id=
func (h *InventoryHandler) Availability(c *gin.Context) {
	warehouseID := c.Query("warehouse_id")
	itemID := c.Query("item_id")
	if warehouseID == "" || itemID == "" {
		BadRequest(c, "warehouse_id and item_id are required")
		return
	}
	avail, err := h.svc.Availability(c.Request.Context(), warehouseID, itemID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, avail)
}

// ListWarehouses returns the active warehouses.
// GET /api/v1/warehouses
func (h *InventoryHandler) ListWarehouses(c *gin.Context) {
	ws, err := h.whsRepo.ListActive(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": ws})
}

// ListItems returns the relief item catalogue.
// GET /api/v1/items
func (h *InventoryHandler) ListItems(c *gin.Context) {
	items, err := h.itmRepo.ListActive(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}
