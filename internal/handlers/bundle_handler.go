package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"buy-together-service/internal/middleware"
	"buy-together-service/internal/models"
	"buy-together-service/internal/services"
)

// BundleServiceInterface is the bundle API served over HTTP.
type BundleServiceInterface interface {
	Mount(ctx context.Context, tenantID string, req services.MountRequest) (*models.BundleState, error)
	Get(ctx context.Context, tenantID, instanceID string) (*models.BundleState, error)
	SetActiveIndex(ctx context.Context, tenantID, instanceID string, index int) (*models.BundleState, error)
	ChangeProduct(ctx context.Context, tenantID, instanceID, productID string, wait bool) (*models.BundleState, error)
	SetTotalPrice(ctx context.Context, tenantID, instanceID string, total decimal.Decimal) (*models.BundleState, error)
	ClearTotalPrice(ctx context.Context, tenantID, instanceID string) (*models.BundleState, error)
	Unmount(ctx context.Context, tenantID, instanceID string) error
	GroupItems(ctx context.Context, tenantID, groupID string) ([]models.GroupItem, error)
	Quote(ctx context.Context, tenantID string, req services.QuoteRequest) (*models.BundleState, error)
}

// BundleHandler handles storefront bundle requests
type BundleHandler struct {
	service BundleServiceInterface
}

// NewBundleHandler creates a new bundle handler
func NewBundleHandler(service BundleServiceInterface) *BundleHandler {
	return &BundleHandler{service: service}
}

// SetActiveIndexRequest moves the carousel of a bundle
type SetActiveIndexRequest struct {
	ActiveIndex *int `json:"activeIndex" binding:"required,min=0"`
}

// ChangeProductRequest rebuilds a bundle around another product
type ChangeProductRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Wait      bool   `json:"wait"`
}

// SetTotalPriceRequest overrides the displayed bundle total
type SetTotalPriceRequest struct {
	TotalPrice *decimal.Decimal `json:"totalPrice"`
}

// RegisterRoutes mounts the bundle routes on a storefront group
func (h *BundleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bundles := rg.Group("/bundles")
	{
		bundles.POST("", h.Mount)
		bundles.POST("/quote", h.Quote)
		bundles.GET("/groups/:groupId/items", h.GroupItems)
		bundles.GET("/:id", h.Get)
		bundles.PUT("/:id/active-index", h.SetActiveIndex)
		bundles.PUT("/:id/product", h.ChangeProduct)
		bundles.PUT("/:id/total-price", h.SetTotalPrice)
		bundles.DELETE("/:id/total-price", h.ClearTotalPrice)
		bundles.DELETE("/:id", h.Unmount)
	}
}

// Mount mounts a bundle for a product page
// @Summary Mount bundle
// @Description Create a buy-together bundle for a product. A suppressed state means nothing should be rendered.
// @Tags Bundles
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param bundle body services.MountRequest true "Mount request"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/bundles [post]
func (h *BundleHandler) Mount(c *gin.Context) {
	var req services.MountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "")
		return
	}

	state, err := h.service.Mount(c.Request.Context(), middleware.GetTenantID(c), req)
	if err != nil {
		respondError(c, err, "MOUNT_FAILED", "Failed to mount bundle")
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    state,
	})
}

// Get returns the current state of a bundle
// @Summary Get bundle
// @Tags Bundles
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Bundle instance ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/bundles/{id} [get]
func (h *BundleHandler) Get(c *gin.Context) {
	state, err := h.service.Get(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "FETCH_FAILED", "Failed to get bundle")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: state})
}

// SetActiveIndex moves the carousel of a bundle
// @Summary Set active index
// @Tags Bundles
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Bundle instance ID"
// @Param request body SetActiveIndexRequest true "Active index"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/bundles/{id}/active-index [put]
func (h *BundleHandler) SetActiveIndex(c *gin.Context) {
	var req SetActiveIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "activeIndex")
		return
	}

	state, err := h.service.SetActiveIndex(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"), *req.ActiveIndex)
	if err != nil {
		respondError(c, err, "UPDATE_FAILED", "Failed to update bundle")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: state})
}

// ChangeProduct rebuilds a bundle around another product
// @Summary Change base product
// @Tags Bundles
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Bundle instance ID"
// @Param request body ChangeProductRequest true "Product"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/bundles/{id}/product [put]
func (h *BundleHandler) ChangeProduct(c *gin.Context) {
	var req ChangeProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "productId")
		return
	}

	state, err := h.service.ChangeProduct(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"), req.ProductID, req.Wait)
	if err != nil {
		respondError(c, err, "UPDATE_FAILED", "Failed to update bundle")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: state})
}

// SetTotalPrice overrides the displayed bundle total
// @Summary Set total price
// @Description Override the computed total, e.g. with a checkout simulation result. The override is dropped when the cart changes.
// @Tags Bundles
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Bundle instance ID"
// @Param request body SetTotalPriceRequest true "Total price"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/bundles/{id}/total-price [put]
func (h *BundleHandler) SetTotalPrice(c *gin.Context) {
	var req SetTotalPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "totalPrice")
		return
	}
	if req.TotalPrice == nil {
		validationError(c, "totalPrice is required", "totalPrice")
		return
	}

	state, err := h.service.SetTotalPrice(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"), *req.TotalPrice)
	if err != nil {
		respondError(c, err, "UPDATE_FAILED", "Failed to update bundle")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: state})
}

// ClearTotalPrice removes a total price override
// @Summary Clear total price
// @Tags Bundles
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Bundle instance ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/bundles/{id}/total-price [delete]
func (h *BundleHandler) ClearTotalPrice(c *gin.Context) {
	state, err := h.service.ClearTotalPrice(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "UPDATE_FAILED", "Failed to update bundle")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: state})
}

// Unmount removes a bundle
// @Summary Unmount bundle
// @Tags Bundles
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Bundle instance ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/bundles/{id} [delete]
func (h *BundleHandler) Unmount(c *gin.Context) {
	if err := h.service.Unmount(c.Request.Context(), middleware.GetTenantID(c), c.Param("id")); err != nil {
		respondError(c, err, "DELETE_FAILED", "Failed to unmount bundle")
		return
	}

	message := "Bundle unmounted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// GroupItems lists the selections shared within a page group
// @Summary List group selections
// @Tags Bundles
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param groupId path string true "Group ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /storefront/bundles/groups/{groupId}/items [get]
func (h *BundleHandler) GroupItems(c *gin.Context) {
	items, err := h.service.GroupItems(c.Request.Context(), middleware.GetTenantID(c), c.Param("groupId"))
	if err != nil {
		respondError(c, err, "FETCH_FAILED", "Failed to list group selections")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: items})
}

// Quote prices a bundle without mounting it
// @Summary Quote bundle
// @Tags Bundles
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param request body services.QuoteRequest true "Quote request"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/bundles/quote [post]
func (h *BundleHandler) Quote(c *gin.Context) {
	var req services.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "")
		return
	}

	state, err := h.service.Quote(c.Request.Context(), middleware.GetTenantID(c), req)
	if err != nil {
		respondError(c, err, "QUOTE_FAILED", "Failed to quote bundle")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: state})
}

func validationError(c *gin.Context, message, field string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "VALIDATION_ERROR",
			Message: message,
			Field:   field,
		},
	})
}

// respondError maps service errors to the error envelope. Unknown errors get
// code with a 500.
func respondError(c *gin.Context, err error, code, message string) {
	switch {
	case errors.Is(err, services.ErrBundleNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "BUNDLE_NOT_FOUND", Message: "Bundle not found"},
		})
	case errors.Is(err, services.ErrProductNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "PRODUCT_NOT_FOUND", Message: "Product not found"},
		})
	case errors.Is(err, services.ErrInvalidActiveIndex):
		validationError(c, err.Error(), "activeIndex")
	case errors.Is(err, services.ErrInvalidTotalPrice):
		validationError(c, err.Error(), "totalPrice")
	case errors.Is(err, services.ErrProductIDRequired):
		validationError(c, err.Error(), "productId")
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: code, Message: message},
		})
	}
}
