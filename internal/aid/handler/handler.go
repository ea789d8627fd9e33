package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/repository"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/service"
	"github.com/marcdm/DrimsNewBuildv2/internal/middleware"
)

// Handlers is the aid domain's handler set.
type Handlers struct {
	Request     *RequestHandler
	Fulfillment *FulfillmentHandler
	Inventory   *InventoryHandler
	SSE         *SSEHandler
}

func NewHandlers(svc *service.Services, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Request:     NewRequestHandler(svc.Request, repos),
		Fulfillment: NewFulfillmentHandler(svc.Fulfillment, svc.Lock),
		Inventory:   NewInventoryHandler(svc.Inventory, repos),
		SSE:         NewSSEHandler(),
	}
}

// RegisterRoutes mounts the authenticated API surface.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	requests := api.Group("/relief-requests")
	{
		requests.POST("", h.Request.Create)
		requests.GET("", h.Request.List)
		requests.GET("/:id", h.Request.Get)
		requests.GET("/:id/activity", h.Request.Activity)
		requests.PUT("/:id/items/:itemId/review", h.Request.ReviewItem)

		requests.POST("/:id/fulfillment/begin", h.Fulfillment.Begin)
		requests.POST("/:id/fulfillment/cancel", h.Fulfillment.Cancel)
		requests.POST("/:id/fulfillment/submit", h.Fulfillment.Submit)
		requests.POST("/:id/fulfillment/approve", middleware.RequireRole("approver"), h.Fulfillment.Approve)
		requests.POST("/:id/fulfillment/deny", middleware.RequireRole("approver"), h.Fulfillment.Deny)
		requests.POST("/:id/items/:itemId/allocate", h.Fulfillment.AllocateItem)
		requests.POST("/:id/items/:itemId/unavailable", h.Fulfillment.MarkItemUnavailable)
		requests.GET("/:id/lock", h.Fulfillment.LockHolder)
	}

	packages := api.Group("/relief-packages")
	{
		packages.GET("/:id", h.Fulfillment.GetPackage)
		packages.POST("/:id/dispatch", h.Fulfillment.Dispatch)
	}

	inventory := api.Group("/inventory")
	{
		inventory.GET("", h.Inventory.List)
		inventory.POST("/inbound", h.Inventory.Inbound)
		inventory.POST("/adjust", h.Inventory.Adjust)
		inventory.GET("/availability", h.Inventory.Availability)
	}

	api.GET("/warehouses", h.Inventory.ListWarehouses)
	api.GET("/agencies", h.Request.ListAgencies)
	api.GET("/items", h.Inventory.ListItems)

	api.GET("/events", h.SSE.Stream)

	admin := api.Group("/admin", middleware.RequireRole("admin"))
	{
		admin.DELETE("/locks/:requestId", h.Fulfillment.ForceReleaseLock)
	}
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{Code: 0, Message: "success", Data: data})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{Code: code, Message: message})
}

func BadRequest(c *gin.Context, message string)    { Error(c, 40000, message) }
func NotFound(c *gin.Context, message string)      { Error(c, 40400, message) }
func Conflict(c *gin.Context, message string)      { Error(c, 40900, message) }
func InternalError(c *gin.Context, message string) { Error(c, 50000, message) }

// ServiceError maps the service layer's sentinels onto the envelope. Conflict
// sentinels carry their detail back to the caller; integrity faults do not.
func ServiceError(c *gin.Context, err error) {
	var integrity *service.IntegrityError
	switch {
	case errors.Is(err, service.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrAlreadyLocked),
		errors.Is(err, service.ErrNotHolder),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInsufficientInventory),
		errors.Is(err, service.ErrStaleVersion),
		errors.Is(err, service.ErrNoFulfillableItems),
		errors.Is(err, service.ErrIncompleteAllocation):
		Conflict(c, err.Error())
	case errors.As(err, &integrity):
		InternalError(c, "internal inconsistency detected")
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetUserName(c *gin.Context) string {
	name, _ := c.Get("user_name")
	if n, ok := name.(string); ok {
		return n
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}
