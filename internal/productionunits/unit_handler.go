package productionunits

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type UnitHandler struct {
	Repository *UnitRepository
}

func NewUnitHandler(r *UnitRepository) *UnitHandler {
	return &UnitHandler{Repository: r}
}

func (h *UnitHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/production-units", h.CreateUnit)
	router.GET("/production-units", h.GetUnits)
	router.GET("/production-units/:id", h.GetUnit)
	router.GET("/production-units/:id/stock", h.GetUnitStock)
	router.PATCH("/production-units/:id", h.UpdateUnit)
	router.DELETE("/production-units/:id", h.RemoveUnit)
}

func (h *UnitHandler) GetUnits(c *gin.Context) {
	units, err := h.Repository.GetUnits()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not list production units", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, units)
}

func (h *UnitHandler) GetUnit(c *gin.Context) {
	unitID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid production unit ID parameter, must be an integer"})
		return
	}

	unit, err := h.Repository.GetUnit(unitID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Production unit not found"})
		return
	}

	c.JSON(http.StatusOK, unit)
}

func (h *UnitHandler) CreateUnit(c *gin.Context) {
	var unit models.ProductionUnit
	if err := c.BindJSON(&unit); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	err := h.Repository.PersistUnit(&unit)
	var unique *custom_error.UniqueViolationError
	if errors.As(err, &unique) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Could not insert production unit, name not unique", "details": err.Error()})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not insert production unit"})
		return
	}

	c.JSON(http.StatusCreated, unit)
}

func (h *UnitHandler) UpdateUnit(c *gin.Context) {
	unitID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid production unit ID parameter, must be an integer"})
		return
	}

	var req UpdateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	unit, err := h.Repository.UpdateUnit(unitID, req)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not update production unit", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, unit)
}

func (h *UnitHandler) GetUnitStock(c *gin.Context) {
	unitID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid production unit ID parameter, must be an integer"})
		return
	}

	stock, err := h.Repository.GetUnitStock(unitID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not get production unit stock", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stock)
}

func (h *UnitHandler) RemoveUnit(c *gin.Context) {
	unitID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid production unit ID parameter, must be an integer"})
		return
	}

	err = h.Repository.RemoveUnit(unitID)
	var fk *custom_error.ForeignKeyViolationError
	if errors.As(err, &fk) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Could not delete production unit", "details": err.Error()})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not delete production unit", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Production unit deleted successfully"})
}
