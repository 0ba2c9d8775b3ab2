package httpapi

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	analysisDomain "stock-radar/internal/domain/analysis"
	dataDomain "stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/strategy"
)

func seedResult(t *testing.T, s *Server, symbol, industry string, buy bool, score float64, date time.Time) {
	t.Helper()
	ma5 := 100.0
	res := analysisDomain.DailyAnalysisResult{
		Symbol:     symbol,
		Market:     dataDomain.MarketTWSE,
		Industry:   industry,
		TradeDate:  date,
		Version:    "v1",
		Close:      105,
		Change:     2,
		ChangeRate: 0.019,
		Volume:     12_000_000,
		MA5:        &ma5,
		Decision: strategy.Decision{
			Regime:     strategy.RegimeBull,
			Mode:       strategy.ModeTrend,
			Watch:      true,
			Buy:        buy,
			Confidence: 80,
			Reason:     "突破觸發",
		},
		CompositeScore:   score,
		CompositeReasons: []string{"均線多頭"},
		Tags:             []analysisDomain.Tag{analysisDomain.TagBreakHigh60},
		Success:          true,
	}
	if err := s.store.SaveDailyResult(context.Background(), res); err != nil {
		t.Fatalf("seed result %s: %v", symbol, err)
	}
}

func TestAnalysisQuery(t *testing.T) {
	server := newTestServer(t)
	token := tokenFor(t, server, "analyst@example.com")
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	seedResult(t, server, "2330", "半導體", true, 85, date)
	seedResult(t, server, "2317", "電子零組件", false, 60, date)
	seedResult(t, server, "2603", "航運", true, 72, date)

	w := doRequest(t, server, "GET", "/api/analysis/daily?trade_date=2025-06-30", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["total_count"].(float64) != 3 {
		t.Errorf("expected 3 results, got %v", body["total_count"])
	}
	items := body["items"].([]interface{})
	first := items[0].(map[string]interface{})
	// 預設依綜合評分排序
	if first["symbol"] != "2330" {
		t.Errorf("expected 2330 first, got %v", first["symbol"])
	}
	if first["signal"] != "buy" {
		t.Errorf("expected buy signal, got %v", first["signal"])
	}
	if first["mode_legacy"] != "B" {
		t.Errorf("expected legacy mode B, got %v", first["mode_legacy"])
	}
}

func TestAnalysisQuery_SignalFilter(t *testing.T) {
	server := newTestServer(t)
	token := tokenFor(t, server, "analyst@example.com")
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	seedResult(t, server, "2330", "半導體", true, 85, date)
	seedResult(t, server, "2317", "電子零組件", false, 60, date)

	w := doRequest(t, server, "GET", "/api/analysis/daily?trade_date=2025-06-30&signal=buy", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["total_count"].(float64) != 1 {
		t.Errorf("expected 1 buy result, got %v", body["total_count"])
	}
}

func TestAnalysisDetailAndHistory(t *testing.T) {
	server := newTestServer(t)
	token := tokenFor(t, server, "analyst@example.com")
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	seedResult(t, server, "2330", "半導體", true, 85, date)

	w := doRequest(t, server, "GET", "/api/analysis/detail?symbol=2330&trade_date=2025-06-30", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("detail: expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	item := body["item"].(map[string]interface{})
	if item["composite_score"].(float64) != 85 {
		t.Errorf("expected score 85, got %v", item["composite_score"])
	}

	w = doRequest(t, server, "GET", "/api/analysis/detail?symbol=9999&trade_date=2025-06-30", token, nil)
	if w.Code == http.StatusOK {
		t.Error("detail for unknown symbol should not be 200")
	}

	w = doRequest(t, server, "GET", "/api/analysis/history?symbol=2330&start_date=2025-06-01&end_date=2025-07-01", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", w.Code)
	}
	body = decodeBody(t, w)
	if len(body["items"].([]interface{})) != 1 {
		t.Errorf("expected 1 history row, got %v", body["items"])
	}
}

func TestAnalysisExportCSV(t *testing.T) {
	server := newTestServer(t)
	token := tokenFor(t, server, "analyst@example.com")
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	seedResult(t, server, "2330", "半導體", true, 85, date)

	w := doRequest(t, server, "GET", "/api/analysis/export?trade_date=2025-06-30", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected csv content type, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "2330") {
		t.Error("csv should contain 2330")
	}
}

func TestAnalysisDailyRun(t *testing.T) {
	server := newTestServer(t)
	token := tokenFor(t, server, "admin@example.com")

	// 先回補 60 個交易日，再跑分析批次
	w := doRequest(t, server, "POST", "/api/admin/ingestion/backfill", token, map[string]interface{}{
		"start_date": "2025-04-01",
		"end_date":   "2025-06-30",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("backfill: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doRequest(t, server, "POST", "/api/admin/analysis/daily", token, map[string]interface{}{
		"trade_date":    "2025-06-30",
		"lookback_days": 50,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("analysis run: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	summary := body["summary"].(map[string]interface{})
	if summary["success"].(float64) == 0 {
		t.Errorf("expected some successful analyses, got %v", summary)
	}
}
