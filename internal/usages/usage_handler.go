package usages

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/synard1/ximopet-sub010/internal/repository"
	"github.com/synard1/ximopet-sub010/internal/stocklots"
	"github.com/synard1/ximopet-sub010/pkg/auditlog"
	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/security"
)

type UsageHandler struct {
	Service  *UsageService
	AuditLog *auditlog.Auditlog
}

func NewHandler(s *UsageService, a *auditlog.Auditlog) *UsageHandler {
	return &UsageHandler{Service: s, AuditLog: a}
}

func (h *UsageHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/usages", h.RecordUsage)
	router.GET("/usages", h.GetUsages)
	router.GET("/usages/:id", h.GetUsage)
	router.DELETE("/usages/:id", h.DeleteUsage)
}

func (h *UsageHandler) RecordUsage(c *gin.Context) {
	var req struct {
		ProductionUnitID int64                  `json:"production_unit_id" binding:"required"`
		CommodityID      int64                  `json:"commodity_id" binding:"required"`
		UsageDate        time.Time              `json:"usage_date" binding:"required"`
		Quantity         float64                `json:"quantity" binding:"required"`
		LotSelection     stocklots.LotSelection `json:"lot_selection"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	usage, err := h.Service.RecordUsage(security.ActorID(c), req.ProductionUnitID, req.CommodityID, req.UsageDate, req.Quantity, req.LotSelection)
	if err != nil {
		var insufficient *custom_error.InsufficientStockError
		var conflict *custom_error.ConflictError
		switch {
		case errors.As(err, &insufficient):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "Insufficient stock across candidate lots", "details": err.Error()})
		case errors.As(err, &conflict):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Concurrent edit detected, retry the request"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to record usage"})
		}
		return
	}

	go h.AuditLog.Log(
		"create",
		map[string]interface{}{
			"production_unit_id": usage.ProductionUnitID,
			"commodity_id":       usage.CommodityID,
			"quantity":           req.Quantity,
			"lots":               len(usage.Details),
			"msg":                "Record stock usage",
		},
		usage,
	)

	c.JSON(http.StatusCreated, usage)
}

func (h *UsageHandler) GetUsages(c *gin.Context) {
	var query struct {
		ProductionUnitID *int64 `form:"production_unit_id"`
		CommodityID      *int64 `form:"commodity_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	conditions := repository.NewQueryBuilder()
	if query.ProductionUnitID != nil {
		conditions.AddCondition("production_unit_id", *query.ProductionUnitID)
	}
	if query.CommodityID != nil {
		conditions.AddCondition("commodity_id", *query.CommodityID)
	}

	usages, err := h.Service.GetUsages(conditions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch usages"})
		return
	}

	c.JSON(http.StatusOK, usages)
}

func (h *UsageHandler) GetUsage(c *gin.Context) {
	usageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid usage ID parameter, must be an integer"})
		return
	}

	usage, err := h.Service.GetUsage(usageID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usage not found"})
		return
	}

	c.JSON(http.StatusOK, usage)
}

func (h *UsageHandler) DeleteUsage(c *gin.Context) {
	usageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid usage ID parameter, must be an integer"})
		return
	}

	if err := h.Service.DeleteUsage(usageID); err != nil {
		var conflict *custom_error.ConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Concurrent edit detected, retry the request"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete usage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Usage removed", "usage_id": usageID})
}
