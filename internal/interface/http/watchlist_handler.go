package httpapi

import (
	"net/http"
	"time"

	"stock-radar/internal/application/scan"
	watchlistApp "stock-radar/internal/application/watchlist"
	"stock-radar/internal/domain/watchlist"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleWatchlistList(c *gin.Context) {
	userID := currentUserID(c)
	date, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	entries, err := s.watchlistUC.List(c.Request.Context(), userID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	items := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		item := gin.H{
			"symbol":       e.Item.Symbol,
			"note":         e.Item.Note,
			"target_price": e.Item.TargetPrice,
			"source":       string(e.Item.Source),
			"added_at":     e.Item.AddedAt.Format(time.RFC3339),
		}
		if e.Analysis != nil {
			item["analysis"] = resultView(*e.Analysis)
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

func (s *Server) handleWatchlistAdd(c *gin.Context) {
	var body struct {
		Symbol      string   `json:"symbol"`
		Note        string   `json:"note"`
		TargetPrice *float64 `json:"target_price"`
		Source      string   `json:"source"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	item, err := s.watchlistUC.Add(c.Request.Context(), watchlistApp.AddInput{
		UserID:      currentUserID(c),
		Symbol:      body.Symbol,
		Note:        body.Note,
		TargetPrice: body.TargetPrice,
		Source:      watchlist.Source(body.Source),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"item": gin.H{
			"symbol":       item.Symbol,
			"note":         item.Note,
			"target_price": item.TargetPrice,
			"source":       string(item.Source),
		},
	})
}

func (s *Server) handleWatchlistDelete(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := s.watchlistUC.Remove(c.Request.Context(), currentUserID(c), symbol); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleWatchlistImportScan 跑一次全市場掃描並把命中結果加入自選股。
func (s *Server) handleWatchlistImportScan(c *gin.Context) {
	var body struct {
		Date      string `json:"date"`
		WatchOnly bool   `json:"watch_only"`
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
		Date:      date,
		WatchOnly: body.WatchOnly,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	added, err := s.watchlistUC.ImportScanMatches(c.Request.Context(), currentUserID(c), result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"scanned": result.Scanned,
		"matched": len(result.Matches),
		"added":   added,
	})
}
