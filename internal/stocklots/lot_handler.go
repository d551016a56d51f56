package stocklots

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/synard1/ximopet-sub010/internal/conversion"
)

type LotHandler struct {
	LotRepository LotRepository
}

func NewLotHandler(lr LotRepository) *LotHandler {
	return &LotHandler{LotRepository: lr}
}

func (h *LotHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stock-lots/:id", h.GetLot)
	router.GET("/stock-lots/:id/available", h.GetAvailable)
}

func (h *LotHandler) GetLot(c *gin.Context) {
	lotID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lot ID parameter, must be an integer"})
		return
	}

	lot, err := h.LotRepository.GetLot(lotID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stock lot not found"})
		return
	}

	c.JSON(http.StatusOK, lot)
}

func (h *LotHandler) GetAvailable(c *gin.Context) {
	lotID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lot ID parameter, must be an integer"})
		return
	}

	lot, err := h.LotRepository.GetLot(lotID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stock lot not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lot_id":    lot.ID,
		"available": conversion.Round2(lot.Available()),
	})
}
