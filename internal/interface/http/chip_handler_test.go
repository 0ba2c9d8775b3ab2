package httpapi

import (
	"net/http"
	"testing"
)

func TestChipDailyAndEvents(t *testing.T) {
	server := newTestServer(t)
	token := tokenFor(t, server, "admin@example.com")
	backfillRange(t, server, token, "2025-05-01", "2025-06-30")

	w := doRequest(t, server, "POST", "/api/admin/chip/daily", token, map[string]interface{}{
		"trade_date": "2025-06-30",
		"symbols":    []string{"2330", "2603"},
		"lookback":   30,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("chip daily: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	summary := body["summary"].(map[string]interface{})
	if summary["success"].(float64) != 2 {
		t.Errorf("expected 2 successes, got %v", summary)
	}

	w = doRequest(t, server, "GET", "/api/chip/2330/events", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("events: expected 200, got %d", w.Code)
	}
	body = decodeBody(t, w)
	if body["symbol"] != "2330" {
		t.Errorf("expected symbol 2330, got %v", body["symbol"])
	}
}

func TestChipDaily_RequiresSymbols(t *testing.T) {
	server := newTestServer(t)
	token := tokenFor(t, server, "admin@example.com")

	w := doRequest(t, server, "POST", "/api/admin/chip/daily", token, map[string]interface{}{
		"trade_date": "2025-06-30",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
