package httpapi

import (
	"log"
	"net/http"
	"time"

	chipApp "stock-radar/internal/application/chip"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleChipDaily(c *gin.Context) {
	var body struct {
		TradeDate string   `json:"trade_date"`
		Symbols   []string `json:"symbols"`
		Lookback  int      `json:"lookback"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	tradeDate, err := time.Parse(dateLayout, body.TradeDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid trade_date", "error_code": errCodeBadRequest})
		return
	}
	if len(body.Symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "symbols required", "error_code": errCodeBadRequest})
		return
	}

	res, err := s.chipUC.Execute(c.Request.Context(), chipApp.IngestInput{
		Date:     tradeDate,
		Symbols:  body.Symbols,
		Lookback: body.Lookback,
	})
	if err != nil {
		log.Printf("[Chip] daily run failed for %s: %v", body.TradeDate, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	switches := make([]gin.H, 0, len(res.Switches))
	for _, ev := range res.Switches {
		switches = append(switches, switchEventView(ev))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": gin.H{
			"trade_date": body.TradeDate,
			"success":    res.SuccessCount,
			"failure":    res.FailedCount,
			"switches":   res.SwitchCount,
			"failures":   res.Failures,
		},
		"switch_events": switches,
	})
}

func (s *Server) handleChipEvents(c *gin.Context) {
	symbol := c.Param("symbol")

	events, err := s.chipUC.History(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	items := make([]gin.H, 0, len(events))
	for _, ev := range events {
		items = append(items, switchEventView(ev))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"symbol":  symbol,
		"events":  items,
	})
}

func switchEventView(ev chipApp.SwitchEvent) gin.H {
	return gin.H{
		"symbol":   ev.Symbol,
		"date":     ev.Date.Format(dateLayout),
		"kind":     string(ev.Kind),
		"prev_net": ev.Prev,
		"last_net": ev.Last,
	}
}
