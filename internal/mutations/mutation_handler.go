package mutations

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

type MutationHandler struct {
	Service  *MutationService
	AuditLog *auditlog.Auditlog
}

func NewHandler(s *MutationService, a *auditlog.Auditlog) *MutationHandler {
	return &MutationHandler{Service: s, AuditLog: a}
}

func (h *MutationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/mutations", h.RecordMutation)
	router.GET("/mutations", h.GetMutations)
	router.GET("/mutations/:id", h.GetMutation)
	router.POST("/mutations/:id/reverse", h.ReverseMutation)
}

func (h *MutationHandler) RecordMutation(c *gin.Context) {
	var req struct {
		SourceUnitID int64                  `json:"source_unit_id" binding:"required"`
		DestUnitID   int64                  `json:"dest_unit_id" binding:"required"`
		CommodityID  int64                  `json:"commodity_id" binding:"required"`
		MutationDate time.Time              `json:"mutation_date" binding:"required"`
		Quantity     float64                `json:"quantity" binding:"required"`
		Type         string                 `json:"type"`
		DisplayUnit  string                 `json:"display_unit"`
		LotSelection stocklots.LotSelection `json:"lot_selection"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	mutation, err := h.Service.RecordMutation(security.ActorID(c), MutationRequest{
		SourceUnitID: req.SourceUnitID,
		DestUnitID:   req.DestUnitID,
		CommodityID:  req.CommodityID,
		MutationDate: req.MutationDate,
		Quantity:     req.Quantity,
		Type:         req.Type,
		DisplayUnit:  req.DisplayUnit,
		Selection:    req.LotSelection,
	})
	if err != nil {
		var insufficient *custom_error.InsufficientStockError
		var unresolved *custom_error.ConversionUnresolvedError
		var conflict *custom_error.ConflictError
		switch {
		case errors.As(err, &insufficient):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "Insufficient stock across candidate lots", "details": err.Error()})
		case errors.As(err, &unresolved):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "Unit cannot be converted for this commodity", "details": err.Error()})
		case errors.As(err, &conflict):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Concurrent edit detected, retry the request"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to record mutation"})
		}
		return
	}

	go h.AuditLog.Log(
		"create",
		map[string]interface{}{
			"source_unit_id": mutation.SourceUnitID,
			"dest_unit_id":   mutation.DestUnitID,
			"commodity_id":   mutation.CommodityID,
			"quantity":       req.Quantity,
			"items":          len(mutation.Items),
			"msg":            "Transfer stock between production units",
		},
		mutation,
	)

	c.JSON(http.StatusCreated, mutation)
}

func (h *MutationHandler) GetMutations(c *gin.Context) {
	var query struct {
		SourceUnitID *int64 `form:"source_unit_id"`
		DestUnitID   *int64 `form:"dest_unit_id"`
		CommodityID  *int64 `form:"commodity_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	conditions := repository.NewQueryBuilder()
	if query.SourceUnitID != nil {
		conditions.AddCondition("source_unit_id", *query.SourceUnitID)
	}
	if query.DestUnitID != nil {
		conditions.AddCondition("dest_unit_id", *query.DestUnitID)
	}
	if query.CommodityID != nil {
		conditions.AddCondition("commodity_id", *query.CommodityID)
	}

	mutations, err := h.Service.GetMutations(conditions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch mutations"})
		return
	}

	c.JSON(http.StatusOK, mutations)
}

func (h *MutationHandler) GetMutation(c *gin.Context) {
	mutationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mutation ID parameter, must be an integer"})
		return
	}

	mutation, err := h.Service.GetMutation(mutationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mutation not found"})
		return
	}

	c.JSON(http.StatusOK, mutation)
}

func (h *MutationHandler) ReverseMutation(c *gin.Context) {
	mutationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mutation ID parameter, must be an integer"})
		return
	}

	if err := h.Service.ReverseMutation(mutationID); err != nil {
		var locked *custom_error.MutationLockedError
		var conflict *custom_error.ConflictError
		switch {
		case errors.As(err, &locked):
			c.JSON(http.StatusConflict, gin.H{"error": "Mutation output already consumed downstream", "details": err.Error()})
		case errors.As(err, &conflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Concurrent edit detected, retry the request"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reverse mutation"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Mutation reversed", "mutation_id": mutationID})
}
