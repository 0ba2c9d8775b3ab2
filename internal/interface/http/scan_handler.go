package httpapi

import (
	"log"
	"net/http"
	"time"

	"stock-radar/internal/application/scan"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleScanRun(c *gin.Context) {
	var body struct {
		Date        string   `json:"date"`
		Symbols     []string `json:"symbols"`
		Lookback    int      `json:"lookback"`
		Concurrency int      `json:"concurrency"`
		WatchOnly   bool     `json:"watch_only"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	date, err := time.Parse(dateLayout, body.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid date", "error_code": errCodeBadRequest})
		return
	}

	result, err := s.scanUC.Execute(c.Request.Context(), scan.Input{
		Date:        date,
		Symbols:     body.Symbols,
		Lookback:    body.Lookback,
		Concurrency: body.Concurrency,
		WatchOnly:   body.WatchOnly,
	})
	if err != nil {
		log.Printf("[Scan] run failed for %s: %v", body.Date, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	matches := make([]gin.H, 0, len(result.Matches))
	for _, m := range result.Matches {
		matches = append(matches, gin.H{
			"symbol":          m.Symbol,
			"industry":        m.Industry,
			"close":           m.Close,
			"regime":          string(m.Decision.Regime),
			"mode":            string(m.Decision.Mode),
			"signal":          m.Decision.Signal(),
			"confidence":      m.Decision.Confidence,
			"composite_score": m.CompositeScore,
			"reasons":         m.Reasons,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": gin.H{
			"scan_date":   result.ScanDate.Format(dateLayout),
			"scanned":     result.Scanned,
			"skipped":     result.Skipped,
			"buy_count":   result.BuyCount,
			"watch_count": result.WatchCount,
			"elapsed_ms":  result.Elapsed.Milliseconds(),
		},
		"matches": matches,
	})
}

func (s *Server) handleScanCrossover(c *gin.Context) {
	date, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	hits, err := s.scanUC.QuickCrossover(c.Request.Context(), scan.Input{
		Date:     date,
		Symbols:  splitCSV(c.Query("symbols")),
		Lookback: parseIntDefault(c.Query("lookback"), 0),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	items := make([]gin.H, 0, len(hits))
	for _, h := range hits {
		items = append(items, gin.H{
			"symbol": h.Symbol,
			"close":  h.Close,
			"ma5":    h.MA5,
			"ma10":   h.MA10,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"scan_date": date.Format(dateLayout),
		"items":     items,
	})
}
