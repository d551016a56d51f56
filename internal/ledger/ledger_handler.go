package ledger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/synard1/ximopet-sub010/pkg/models"
)

type LedgerHandler struct {
	Service *LedgerService
}

func NewHandler(s *LedgerService) *LedgerHandler {
	return &LedgerHandler{Service: s}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ledger", h.GetLedger)
}

// GetLedger rebuilds the movement timeline for one commodity on one
// production unit. Nothing is persisted; the response is recomputed from
// the event rows on every call.
func (h *LedgerHandler) GetLedger(c *gin.Context) {
	var query struct {
		CommodityID      int64  `form:"commodity_id" binding:"required"`
		ProductionUnitID int64  `form:"production_unit_id" binding:"required"`
		From             string `form:"from"`
		To               string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters, commodity_id and production_unit_id are required"})
		return
	}

	var dateRange DateRange
	if query.From != "" {
		from, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date, expected YYYY-MM-DD"})
			return
		}
		dateRange.From = &from
	}
	if query.To != "" {
		to, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date, expected YYYY-MM-DD"})
			return
		}
		// inclusive upper bound
		to = to.Add(24*time.Hour - time.Nanosecond)
		dateRange.To = &to
	}

	sequence, err := h.Service.Reconstruct(query.CommodityID, query.ProductionUnitID, dateRange)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconstruct ledger"})
		return
	}

	entries := make([]models.LedgerEntry, 0, sequence.Len())
	it := sequence.Iterate()
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		entries = append(entries, *entry)
	}

	response := gin.H{
		"commodity_id":       query.CommodityID,
		"production_unit_id": query.ProductionUnitID,
		"entries":            entries,
	}
	if len(sequence.Inconsistencies) > 0 {
		response["inconsistencies"] = sequence.Inconsistencies
	}

	c.JSON(http.StatusOK, response)
}
