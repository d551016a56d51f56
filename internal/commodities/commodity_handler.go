package commodities

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/synard1/ximopet-sub010/internal/repository"
	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type CommodityHandler struct {
	CommodityRepository CommodityRepository
}

func NewCommodityHandler(cr CommodityRepository) *CommodityHandler {
	return &CommodityHandler{CommodityRepository: cr}
}

func (h *CommodityHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/commodities", h.CreateCommodity)
	router.GET("/commodities", h.GetCommodities)
	router.GET("/commodities/:id", h.GetCommodity)
}

type commodityRequest struct {
	Code         string  `json:"code" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Kind         string  `json:"kind" binding:"required"`
	ScalarFactor float64 `json:"conversion_factor"`
	Units        []struct {
		Unit       string  `json:"unit" binding:"required"`
		Value      float64 `json:"value" binding:"required"`
		IsSmallest bool    `json:"is_smallest"`
	} `json:"units"`
}

func (h *CommodityHandler) CreateCommodity(c *gin.Context) {
	var req commodityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	kind, err := models.NewCommodityKind(req.Kind)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid commodity kind", "details": err.Error()})
		return
	}

	commodity := models.Commodity{
		Code:         req.Code,
		Name:         req.Name,
		Kind:         kind,
		ScalarFactor: req.ScalarFactor,
	}

	if len(req.Units) > 0 {
		commodity.Mode = models.ConversionModeTable
		smallestCount := 0
		for _, u := range req.Units {
			if u.IsSmallest {
				smallestCount++
			}
			commodity.Units = append(commodity.Units, models.UnitConversionEntry{
				Unit:       u.Unit,
				Value:      u.Value,
				IsSmallest: u.IsSmallest,
			})
		}
		if smallestCount != 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Conversion table must mark exactly one smallest unit"})
			return
		}
	} else {
		commodity.Mode = models.ConversionModeScalar
		if req.ScalarFactor <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Commodity without a conversion table requires a positive conversion factor"})
			return
		}
	}

	created, err := h.CommodityRepository.PersistCommodity(&commodity)
	if err != nil {
		switch err.(type) {
		case *custom_error.UniqueViolationError:
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Commodity with same code already registered"})
			return
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create commodity"})
			return
		}
	}

	c.JSON(http.StatusCreated, created)
}

func (h *CommodityHandler) GetCommodity(c *gin.Context) {
	commodityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid commodity ID parameter, must be an integer"})
		return
	}

	commodity, err := h.CommodityRepository.GetCommodity(commodityID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commodity not found"})
		return
	}

	c.JSON(http.StatusOK, commodity)
}

func (h *CommodityHandler) GetCommodities(c *gin.Context) {
	var query struct {
		Kind string `form:"kind"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	conditions := repository.NewQueryBuilder()
	if query.Kind != "" {
		conditions.AddCondition("kind", query.Kind)
	}

	commodities, err := h.CommodityRepository.GetCommodities(conditions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch commodities"})
		return
	}

	c.JSON(http.StatusOK, commodities)
}
