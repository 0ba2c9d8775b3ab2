package httpapi

import (
	"net/http"
	"testing"
)

func TestSubscriptionCRUD(t *testing.T) {
	server := newTestServer(t)
	token := tokenFor(t, server, "analyst@example.com")

	w := doRequest(t, server, "POST", "/api/subscriptions", token, map[string]interface{}{
		"id":       "sub-1",
		"name":     "強勢股通知",
		"type":     "screener",
		"channels": []string{"telegram"},
		"conditions": []map[string]interface{}{
			{
				"type":    "numeric",
				"numeric": map[string]interface{}{"field": "composite_score", "op": ">=", "value": 70},
			},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doRequest(t, server, "GET", "/api/subscriptions", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	items := body["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(items))
	}
	if items[0].(map[string]interface{})["name"] != "強勢股通知" {
		t.Errorf("unexpected subscription: %v", items[0])
	}

	w = doRequest(t, server, "DELETE", "/api/subscriptions/sub-1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}

	w = doRequest(t, server, "GET", "/api/subscriptions", token, nil)
	body = decodeBody(t, w)
	if len(body["items"].([]interface{})) != 0 {
		t.Error("expected empty list after delete")
	}
}

func TestSubscriptionCreate_Invalid(t *testing.T) {
	server := newTestServer(t)
	token := tokenFor(t, server, "analyst@example.com")

	// stock 訂閱缺 symbol
	w := doRequest(t, server, "POST", "/api/subscriptions", token, map[string]interface{}{
		"name":     "單股通知",
		"type":     "stock",
		"channels": []string{"telegram"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAlertsRun_NoSubscriptions(t *testing.T) {
	server := newTestServer(t)
	token := tokenFor(t, server, "admin@example.com")

	w := doRequest(t, server, "POST", "/api/admin/alerts/run", token, map[string]string{"date": "2025-06-30"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
}
