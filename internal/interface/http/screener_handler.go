package httpapi

import (
	"log"
	"net/http"
	"time"

	"stock-radar/internal/application/analysis"

	"github.com/gin-gonic/gin"
)

type screenerRequest struct {
	TradeDate  string               `json:"trade_date"`
	Logic      string               `json:"logic"`
	Conditions []analysis.Condition `json:"conditions"`
	Sort       string               `json:"sort"`
	Asc        bool                 `json:"asc"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
}

func (s *Server) handleScreenerRun(c *gin.Context) {
	var body screenerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	tradeDate, err := time.Parse(dateLayout, body.TradeDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid trade_date", "error_code": errCodeBadRequest})
		return
	}

	logic := analysis.BoolLogic(body.Logic)
	if logic == "" {
		logic = analysis.LogicAND
	}

	sortOpt := analysis.SortOption{Field: analysis.SortCompositeScore, Desc: !body.Asc}
	if body.Sort != "" {
		sortOpt.Field = analysis.SortField(body.Sort)
	}

	out, err := s.screenerUC.Run(c.Request.Context(), analysis.ScreenerInput{
		Date:       tradeDate,
		Logic:      logic,
		Conditions: body.Conditions,
		Sort:       sortOpt,
		Pagination: analysis.Pagination{Offset: body.Offset, Limit: body.Limit},
	})
	if err != nil {
		log.Printf("[Screener] run failed for %s: %v", body.TradeDate, err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"trade_date":  body.TradeDate,
		"total_count": out.Total,
		"has_more":    out.HasMore,
		"items":       resultViews(out.Results),
	})
}

func (s *Server) handleScreenerPresets(c *gin.Context) {
	tradeDate, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	templates := analysis.PresetTemplates(tradeDate)
	items := make([]gin.H, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, gin.H{
			"id":          tpl.ID,
			"name":        tpl.Name,
			"description": tpl.Description,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "presets": items})
}

func (s *Server) handleScreenerPresetRun(c *gin.Context) {
	tradeDate, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	id := c.Param("id")
	tpl, ok := analysis.PresetByID(id, tradeDate)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "unknown preset", "error_code": errCodeNotFound})
		return
	}

	input := tpl.Input
	if limit := parseIntDefault(c.Query("limit"), 0); limit > 0 {
		input.Pagination.Limit = limit
	}

	out, err := s.screenerUC.Run(c.Request.Context(), input)
	if err != nil {
		log.Printf("[Screener] preset %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"preset":      id,
		"trade_date":  tradeDate.Format(dateLayout),
		"total_count": out.Total,
		"items":       resultViews(out.Results),
	})
}
