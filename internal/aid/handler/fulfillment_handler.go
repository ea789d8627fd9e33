package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/service"
)

type FulfillmentHandler struct {
	svc   *service.FulfillmentService
	locks *service.LockService
}

func NewFulfillmentHandler(svc *service.FulfillmentService, locks *service.LockService) *FulfillmentHandler {
	return &FulfillmentHandler{svc: svc, locks: locks}
}

// Begin acquires the fulfillment lock and opens a draft package.
// POST /api/v1/relief-requests/:id/fulfillment/begin
func (h *FulfillmentHandler) Begin(c *gin.Context) {
	var in struct {
		WarehouseID string `json:"warehouse_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	pkg, err := h.svc.BeginPreparation(c.Request.Context(), c.Param("id"), in.WarehouseID, GetUserID(c), GetUserName(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, pkg)
}

// AllocateItem plans and reserves one line from available batches.
// POST /api/v1/relief-requests/:id/items/:itemId/allocate
func (h *FulfillmentHandler) AllocateItem(c *gin.Context) {
	plan, status, err := h.svc.AllocateItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"plan": plan, "item_status": status})
}

// MarkItemUnavailable records an explicit zero-allocation outcome on a line.
// POST /api/v1/relief-requests/:id/items/:itemId/unavailable
func (h *FulfillmentHandler) MarkItemUnavailable(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	err := h.svc.MarkItemUnavailable(c.Request.Context(), c.Param("id"), c.Param("itemId"), in.Status, in.Reason, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"item_status": in.Status})
}

// Cancel abandons preparation, releasing reservations and the lock.
// POST /api/v1/relief-requests/:id/fulfillment/cancel
func (h *FulfillmentHandler) Cancel(c *gin.Context) {
	if err := h.svc.CancelPreparation(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserName(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"status": "AWAITING_FULFILLMENT"})
}

// Submit hands the prepared draft to an approver.
// POST /api/v1/relief-requests/:id/fulfillment/submit
func (h *FulfillmentHandler) Submit(c *gin.Context) {
	if err := h.svc.SubmitForApproval(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserName(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"status": "AWAITING_APPROVAL"})
}

// Approve consumes the reservations and finalizes the package.
// POST /api/v1/relief-requests/:id/fulfillment/approve
func (h *FulfillmentHandler) Approve(c *gin.Context) {
	if err := h.svc.Approve(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserName(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"status": "APPROVED"})
}

// Deny releases the reservations and parks the request at DENIED.
// POST /api/v1/relief-requests/:id/fulfillment/deny
func (h *FulfillmentHandler) Deny(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in)
	if err := h.svc.Deny(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserName(c), in.Reason); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"status": "DENIED"})
}

// LockHolder reports who currently holds the fulfillment lock, if anyone.
// GET /api/v1/relief-requests/:id/lock
func (h *FulfillmentHandler) LockHolder(c *gin.Context) {
	lock, err := h.locks.Holder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Success(c, gin.H{"held": false})
			return
		}
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"held": true, "lock": lock})
}

// ForceReleaseLock is the admin override for an abandoned preparation.
// DELETE /api/v1/admin/locks/:requestId
func (h *FulfillmentHandler) ForceReleaseLock(c *gin.Context) {
	if err := h.locks.ForceRelease(c.Request.Context(), c.Param("requestId"), GetUserID(c), GetUserName(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"released": true})
}

// GetPackage returns one relief package with its allocation lines.
// GET /api/v1/relief-packages/:id
func (h *FulfillmentHandler) GetPackage(c *gin.Context) {
	pkg, err := h.svc.GetPackage(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, pkg)
}

// Dispatch marks an approved package as on its way.
// POST /api/v1/relief-packages/:id/dispatch
func (h *FulfillmentHandler) Dispatch(c *gin.Context) {
	var in struct {
		TransportMode string `json:"transport_mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	pkg, err := h.svc.DispatchPackage(c.Request.Context(), c.Param("id"), in.TransportMode, GetUserID(c), GetUserName(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, pkg)
}
