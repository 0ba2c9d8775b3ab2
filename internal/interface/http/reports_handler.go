package httpapi

import (
	"net/http"

	reportsDomain "stock-radar/internal/domain/reports"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleReportMarket(c *gin.Context) {
	date, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	overview, err := s.reportsUC.BuildMarketOverview(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report": gin.H{
			"date":              overview.Date.Format(dateLayout),
			"total_count":       overview.TotalCount,
			"buy_count":         overview.BuyCount,
			"watch_count":       overview.WatchCount,
			"regime_counters":   overview.RegimeCounters,
			"average_composite": overview.AverageComposite,
			"score_histogram":   overview.ScoreHistogram,
			"tag_counters":      overview.TagCounters,
			"top_industries":    industryStatViews(overview.TopIndustries),
			"strongest_stocks":  stockBriefViews(overview.StrongestStocks),
		},
	})
}

func (s *Server) handleReportIndustry(c *gin.Context) {
	industry := c.Query("industry")
	if industry == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "industry required", "error_code": errCodeBadRequest})
		return
	}
	date, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	dash, err := s.reportsUC.BuildIndustryDashboard(c.Request.Context(), date, industry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report": gin.H{
			"date":              dash.Date.Format(dateLayout),
			"industry":          dash.Industry,
			"total_count":       dash.TotalCount,
			"buy_count":         dash.BuyCount,
			"average_composite": dash.AverageComposite,
			"top_stocks":        stockBriefViews(dash.TopStocks),
		},
	})
}

func (s *Server) handleReportStock(c *gin.Context) {
	symbol := c.Param("symbol")
	start, end, err := s.parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	dash, err := s.reportsUC.BuildStockDashboard(c.Request.Context(), symbol, &start, &end)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error(), "error_code": errCodeNotFound})
		return
	}

	timeline := make([]gin.H, 0, len(dash.TagsTimeline))
	for _, entry := range dash.TagsTimeline {
		timeline = append(timeline, gin.H{
			"date": entry.Date.Format(dateLayout),
			"tags": entry.Tags,
		})
	}

	report := gin.H{
		"symbol":        dash.Symbol,
		"market":        string(dash.Market),
		"industry":      dash.Industry,
		"history":       resultViews(dash.History),
		"tags_timeline": timeline,
	}
	if dash.LastResult != nil {
		report["last_result"] = resultView(*dash.LastResult)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

func (s *Server) handleReportExecutive(c *gin.Context) {
	symbol := c.Param("symbol")
	date, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	summary, err := s.reportsUC.BuildExecutiveSummary(c.Request.Context(), symbol, date)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error(), "error_code": errCodeAnalysisNotReady})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report": gin.H{
			"symbol":        summary.Symbol,
			"date":          summary.Date.Format(dateLayout),
			"chip_message":  summary.ChipMessage,
			"holder_advice": summary.HolderAdvice,
			"buyer_advice":  summary.BuyerAdvice,
		},
	})
}

func (s *Server) handleReportHealth(c *gin.Context) {
	date, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	dash, err := s.reportsUC.BuildSystemHealth(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	metrics := make([]gin.H, 0, len(dash.Metrics))
	for _, m := range dash.Metrics {
		metrics = append(metrics, gin.H{
			"metric": m.Metric,
			"value":  m.Value,
			"detail": m.Detail,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"date":    dash.Date.Format(dateLayout),
		"metrics": metrics,
	})
}

func (s *Server) handleReportExport(c *gin.Context) {
	date, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	csvBody, err := s.reportsUC.ExportDailyMarketReport(c.Request.Context(), date, parseIntDefault(c.Query("limit"), 0))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="market_`+date.Format(dateLayout)+`.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csvBody))
}

func industryStatViews(stats []reportsDomain.IndustryStat) []gin.H {
	out := make([]gin.H, 0, len(stats))
	for _, st := range stats {
		out = append(out, gin.H{
			"industry":          st.Industry,
			"count":             st.Count,
			"average_composite": st.AverageComposite,
			"buy_count":         st.BuyCount,
		})
	}
	return out
}

func stockBriefViews(briefs []reportsDomain.StockBrief) []gin.H {
	out := make([]gin.H, 0, len(briefs))
	for _, b := range briefs {
		out = append(out, gin.H{
			"symbol":          b.Symbol,
			"composite_score": b.CompositeScore,
			"signal":          b.Signal,
			"confidence":      b.Confidence,
			"tags":            b.Tags,
		})
	}
	return out
}
