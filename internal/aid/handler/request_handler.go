package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/service"
)

type RequestHandler struct {
	svc     *service.RequestService
	agnRepo *repository.AgencyRepository
	logRepo *repository.ActivityLogRepository
}

func NewRequestHandler(svc *service.RequestService, repos *repository.Repositories) *RequestHandler {
	return &RequestHandler{svc: svc, agnRepo: repos.Agency, logRepo: repos.ActivityLog}
}

// Create files a relief request.
// POST /api/v1/relief-requests
func (h *RequestHandler) Create(c *gin.Context) {
	var in service.CreateRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	req, err := h.svc.Create(c.Request.Context(), &in, GetUserID(c), GetUserName(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, req)
}

// Get returns one request with its lines.
// GET /api/v1/relief-requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, req)
}

// List pages requests, optionally filtered by status.
// GET /api/v1/relief-requests?status=AWAITING_FULFILLMENT
func (h *RequestHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	reqs, total, err := h.svc.List(c.Request.Context(), c.Query("status"), page, pageSize)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items: reqs,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: (int(total) + pageSize - 1) / pageSize,
		},
	})
}

// ReviewItem sets the policy ceiling on one line.
// PUT /api/v1/relief-requests/:id/items/:itemId/review
func (h *RequestHandler) ReviewItem(c *gin.Context) {
	var in service.ReviewItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	line, err := h.svc.ReviewItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), &in, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, line)
}

// Activity pages a request's audit trail.
// GET /api/v1/relief-requests/:id/activity
func (h *RequestHandler) Activity(c *gin.Context) {
	page, pageSize := GetPagination(c)
	logs, total, err := h.logRepo.FindByEntity(c.Request.Context(), "relief_request", c.Param("id"), page, pageSize)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items: logs,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: (int(total) + pageSize - 1) / pageSize,
		},
	})
}

// ListAgencies returns the requesting agencies.
// GET /api/v1/agencies
func (h *RequestHandler) ListAgencies(c *gin.Context) {
	agencies, err := h.agnRepo.List(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": agencies})
}
