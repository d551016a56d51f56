package purchases

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/synard1/ximopet-sub010/pkg/auditlog"
	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
	"github.com/synard1/ximopet-sub010/pkg/security"
)

type PurchaseHandler struct {
	Service  *PurchaseService
	AuditLog *auditlog.Auditlog
}

func NewHandler(s *PurchaseService, a *auditlog.Auditlog) *PurchaseHandler {
	return &PurchaseHandler{Service: s, AuditLog: a}
}

func (h *PurchaseHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/purchase-batches", h.CreateBatch)
	router.GET("/purchase-batches", h.GetBatches)
	router.GET("/purchase-batches/:id", h.GetBatch)
	router.PATCH("/purchase-batches/:id/status", h.UpdateBatchStatus)
	router.POST("/purchases", h.RecordPurchase)
	router.PATCH("/purchases/:id/quantity", h.CorrectQuantity)
	router.DELETE("/purchases/:id", h.DeletePurchase)
}

func (h *PurchaseHandler) CreateBatch(c *gin.Context) {
	var req struct {
		Supplier  string    `json:"supplier" binding:"required"`
		BatchDate time.Time `json:"batch_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	batch, err := h.Service.CreateBatch(security.ActorID(c), req.Supplier, req.BatchDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create purchase batch"})
		return
	}

	go h.AuditLog.Log(
		"create",
		map[string]interface{}{
			"supplier": batch.Supplier,
			"msg":      "Open purchase batch",
		},
		batch,
	)

	c.JSON(http.StatusCreated, batch)
}

func (h *PurchaseHandler) GetBatches(c *gin.Context) {
	batches, err := h.Service.GetBatches()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch purchase batches"})
		return
	}
	c.JSON(http.StatusOK, batches)
}

func (h *PurchaseHandler) GetBatch(c *gin.Context) {
	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid batch ID parameter, must be an integer"})
		return
	}

	batch, err := h.Service.GetBatch(batchID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Purchase batch not found"})
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *PurchaseHandler) UpdateBatchStatus(c *gin.Context) {
	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid batch ID parameter, must be an integer"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := models.NewBatchStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid batch status", "details": err.Error()})
		return
	}

	if err := h.Service.UpdateBatchStatus(batchID, status); err != nil {
		var transition *custom_error.InvalidStatusTransitionError
		var locked *custom_error.StockLockedError
		switch {
		case errors.As(err, &transition):
			c.JSON(http.StatusConflict, gin.H{"error": "Status transition not allowed", "details": err.Error()})
		case errors.As(err, &locked):
			c.JSON(http.StatusConflict, gin.H{"error": "Batch has consumed stock and cannot be cancelled"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update batch status"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Batch status updated successfully",
		"batch_id": batchID,
		"status":   status,
	})
}

func (h *PurchaseHandler) RecordPurchase(c *gin.Context) {
	var req struct {
		BatchID          int64   `json:"batch_id" binding:"required"`
		CommodityID      int64   `json:"commodity_id" binding:"required"`
		ProductionUnitID int64   `json:"production_unit_id" binding:"required"`
		Unit             string  `json:"unit" binding:"required"`
		Quantity         float64 `json:"quantity" binding:"required"`
		PricePerUnit     float64 `json:"price_per_unit" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	purchase, err := h.Service.RecordPurchase(security.ActorID(c), req.BatchID, req.CommodityID, req.ProductionUnitID, req.Unit, req.Quantity, req.PricePerUnit)
	if err != nil {
		var unresolved *custom_error.ConversionUnresolvedError
		var transition *custom_error.InvalidStatusTransitionError
		var conflict *custom_error.ConflictError
		switch {
		case errors.As(err, &unresolved):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "Unit cannot be converted for this commodity", "details": err.Error()})
		case errors.As(err, &transition):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Batch no longer accepts purchase lines", "details": err.Error()})
		case errors.As(err, &conflict):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Concurrent edit detected, retry the request"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to record purchase"})
		}
		return
	}

	go h.AuditLog.Log(
		"create",
		map[string]interface{}{
			"batch_id":           purchase.BatchID,
			"commodity_id":       purchase.CommodityID,
			"production_unit_id": purchase.ProductionUnitID,
			"quantity":           purchase.Quantity,
			"converted_quantity": purchase.ConvertedQuantity,
			"msg":                "Record purchase line with stock lot",
		},
		purchase,
	)

	c.JSON(http.StatusCreated, purchase)
}

func (h *PurchaseHandler) CorrectQuantity(c *gin.Context) {
	purchaseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid purchase ID parameter, must be an integer"})
		return
	}

	var req struct {
		Quantity float64 `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	purchase, err := h.Service.CorrectPurchaseQuantity(purchaseID, req.Quantity)
	if err != nil {
		var below *custom_error.BelowAllocatedError
		var conflict *custom_error.ConflictError
		switch {
		case errors.As(err, &below):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "New quantity is below already allocated stock", "details": err.Error()})
		case errors.As(err, &conflict):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Concurrent edit detected, retry the request"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to correct purchase quantity"})
		}
		return
	}

	go h.AuditLog.Log(
		"correct",
		map[string]interface{}{
			"quantity":           purchase.Quantity,
			"converted_quantity": purchase.ConvertedQuantity,
			"msg":                "Correct purchase quantity",
		},
		purchase,
	)

	c.JSON(http.StatusOK, purchase)
}

func (h *PurchaseHandler) DeletePurchase(c *gin.Context) {
	purchaseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid purchase ID parameter, must be an integer"})
		return
	}

	if err := h.Service.DeletePurchase(purchaseID); err != nil {
		var locked *custom_error.StockLockedError
		if errors.As(err, &locked) {
			c.JSON(http.StatusConflict, gin.H{"error": "Purchase has consumed stock and cannot be removed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete purchase"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Purchase removed", "purchase_id": purchaseID})
}
