package httpapi

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"stock-radar/internal/application/analysis"
	dataDomain "stock-radar/internal/domain/dataingestion"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleAnalysisDaily(c *gin.Context) {
	var body struct {
		TradeDate   string   `json:"trade_date"`
		Symbols     []string `json:"symbols"`
		Lookback    int      `json:"lookback_days"`
		Concurrency int      `json:"concurrency"`
		Version     string   `json:"version"`
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

	lookback := body.Lookback
	if lookback <= 0 {
		lookback = s.lookbackDays
	}

	res, err := s.analyzeUC.Execute(c.Request.Context(), analysis.AnalyzeInput{
		TradeDate:    tradeDate,
		Symbols:      body.Symbols,
		LookbackDays: lookback,
		Concurrency:  body.Concurrency,
		Version:      body.Version,
	})
	if err != nil {
		log.Printf("[Analysis] daily run failed for %s: %v", body.TradeDate, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": gin.H{
			"trade_date": body.TradeDate,
			"total":      res.SuccessCount + res.FailedCount,
			"success":    res.SuccessCount,
			"failure":    res.FailedCount,
			"failures":   res.Failures,
		},
	})
}

// buildQueryFilter 從 query string 組出過濾條件，列表與匯出共用。
func buildQueryFilter(c *gin.Context) analysis.QueryFilter {
	filter := analysis.QueryFilter{
		Industries:  splitCSV(c.Query("industry")),
		Symbols:     splitCSV(c.Query("symbols")),
		Regimes:     splitCSV(c.Query("regime")),
		Modes:       splitCSV(c.Query("mode")),
		Signals:     splitCSV(c.Query("signal")),
		OnlySuccess: parseBoolDefault(c.Query("only_success"), true),
	}
	for _, m := range splitCSV(c.Query("market")) {
		filter.Markets = append(filter.Markets, dataDomain.Market(m))
	}
	if v := c.Query("score_min"); v != "" {
		f := float64(parseIntDefault(v, 0))
		filter.CompositeScoreMin = &f
	}
	if v := c.Query("score_max"); v != "" {
		f := float64(parseIntDefault(v, 100))
		filter.CompositeScoreMax = &f
	}
	if v := c.Query("confidence_min"); v != "" {
		n := parseIntDefault(v, 0)
		filter.ConfidenceMin = &n
	}
	return filter
}

func buildSortOption(c *gin.Context) analysis.SortOption {
	sortOpt := analysis.SortOption{Field: analysis.SortCompositeScore, Desc: true}
	if f := c.Query("sort"); f != "" {
		sortOpt.Field = analysis.SortField(f)
	}
	if v := c.Query("asc"); v != "" {
		sortOpt.Desc = !parseBoolDefault(v, false)
	}
	return sortOpt
}

func (s *Server) handleAnalysisQuery(c *gin.Context) {
	tradeDate, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	limit := parseIntDefault(c.Query("limit"), 100)
	offset := parseIntDefault(c.Query("offset"), 0)

	out, err := s.queryUC.QueryByDate(c.Request.Context(), analysis.QueryByDateInput{
		Date:       tradeDate,
		Filter:     buildQueryFilter(c),
		Sort:       buildSortOption(c),
		Pagination: analysis.Pagination{Offset: offset, Limit: limit},
	})
	if err != nil {
		log.Printf("[Analysis] query failed for %s: %v", tradeDate.Format(dateLayout), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "query failed", "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"trade_date":  tradeDate.Format(dateLayout),
		"total_count": out.Total,
		"has_more":    out.HasMore,
		"items":       resultViews(out.Results),
	})
}

func (s *Server) handleAnalysisHistory(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "symbol required", "error_code": errCodeBadRequest})
		return
	}
	start, end, err := s.parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	limit := parseIntDefault(c.Query("limit"), 120)

	results, err := s.queryUC.QueryHistory(c.Request.Context(), analysis.QueryHistoryInput{
		Symbol:      symbol,
		From:        &start,
		To:          &end,
		Limit:       limit,
		OnlySuccess: parseBoolDefault(c.Query("only_success"), true),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"symbol":  symbol,
		"items":   resultViews(results),
	})
}

func (s *Server) handleAnalysisDetail(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "symbol required", "error_code": errCodeBadRequest})
		return
	}
	tradeDate, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	res, err := s.queryUC.QueryDetail(c.Request.Context(), analysis.QueryDetailInput{Symbol: symbol, Date: tradeDate})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "analysis not found", "error_code": errCodeNotFound})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "analysis not found", "error_code": errCodeAnalysisNotReady})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"item":    resultView(res),
	})
}

func (s *Server) handleAnalysisExport(c *gin.Context) {
	tradeDate, err := s.parseTradeDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	csvBody, err := s.queryUC.ExportDailySignals(c.Request.Context(), analysis.ExportDailySignalsInput{
		Date:   tradeDate,
		Filter: buildQueryFilter(c),
		Sort:   buildSortOption(c),
		Limit:  parseIntDefault(c.Query("limit"), 0),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="signals_`+tradeDate.Format(dateLayout)+`.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csvBody))
}
