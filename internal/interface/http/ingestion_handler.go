package httpapi

import (
	"log"
	"net/http"
	"time"

	ingestApp "stock-radar/internal/application/dataingestion"
	dataDomain "stock-radar/internal/domain/dataingestion"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleIngestionDaily(c *gin.Context) {
	var body struct {
		TradeDate string   `json:"trade_date"`
		Symbols   []string `json:"symbols"`
		Market    string   `json:"market"`
		Replace   bool     `json:"replace"`
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

	var market *dataDomain.Market
	if body.Market != "" {
		m := dataDomain.Market(body.Market)
		if m != dataDomain.MarketTWSE && m != dataDomain.MarketTPEx {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unsupported market", "error_code": errCodeBadRequest})
			return
		}
		market = &m
	}

	mode := ingestApp.IngestModeDaily
	if body.Replace {
		mode = ingestApp.IngestModeRecovery
	}

	res, err := s.ingestUC.Execute(c.Request.Context(), ingestApp.IngestInput{
		Date:         tradeDate,
		Mode:         mode,
		Replace:      body.Replace,
		Symbols:      body.Symbols,
		MarketFilter: market,
	})
	if err != nil {
		log.Printf("[Ingestion] daily run failed for %s: %v", body.TradeDate, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": gin.H{
			"trade_date": body.TradeDate,
			"mode":       string(mode),
			"skipped":    res.Skipped,
			"success":    res.SuccessCount,
			"failure":    res.FailedCount,
			"failures":   res.Failures,
			"by_market":  res.MarketCounts,
		},
	})
}

// handleIngestionBackfill 先同步股票基本資料，再逐日回補指定區間。
func (s *Server) handleIngestionBackfill(c *gin.Context) {
	var body struct {
		StartDate string   `json:"start_date"`
		EndDate   string   `json:"end_date"`
		Symbols   []string `json:"symbols"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	start, err := time.Parse(dateLayout, body.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid start_date", "error_code": errCodeBadRequest})
		return
	}
	end := time.Now()
	if body.EndDate != "" {
		end, err = time.Parse(dateLayout, body.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid end_date", "error_code": errCodeBadRequest})
			return
		}
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "end_date before start_date", "error_code": errCodeBadRequest})
		return
	}

	ctx := c.Request.Context()
	if infos, err := s.basicInfo.ListBasicInfo(ctx, body.Symbols, end); err == nil {
		for _, info := range infos {
			if err := s.dataRepo.UpsertStock(ctx, info.Symbol, "", info.Market, info.Industry); err != nil {
				log.Printf("[Ingestion] upsert stock %s failed: %v", info.Symbol, err)
			}
		}
	}

	var days, success, failure int
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		// 週末沒有交易資料，直接跳過。
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		res, err := s.ingestUC.Execute(ctx, ingestApp.IngestInput{
			Date:    d,
			Mode:    ingestApp.IngestModeBackfill,
			Symbols: body.Symbols,
		})
		if err != nil {
			log.Printf("[Ingestion] backfill failed for %s: %v", d.Format(dateLayout), err)
			failure++
			continue
		}
		days++
		success += res.SuccessCount
		failure += res.FailedCount
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": gin.H{
			"start_date": start.Format(dateLayout),
			"end_date":   end.Format(dateLayout),
			"days":       days,
			"rows":       success,
			"failures":   failure,
		},
	})
}
