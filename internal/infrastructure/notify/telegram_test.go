package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramSendMessage(t *testing.T) {
	t.Run("nil_client", func(t *testing.T) {
		var c *TelegramClient
		err := c.SendMessage(context.Background(), "msg")
		if err == nil || err.Error() != "telegram client is nil" {
			t.Errorf("expected nil client error, got %v", err)
		}
	})

	t.Run("missing_config", func(t *testing.T) {
		c := NewTelegramClient("", 0, "")
		err := c.SendMessage(context.Background(), "msg")
		if err == nil || err.Error() != "telegram token or chat_id missing" {
			t.Error("expected missing config error")
		}
	})

	t.Run("success_with_prefix", func(t *testing.T) {
		var got struct {
			ChatID  int64  `json:"chat_id"`
			Text    string `json:"text"`
			NoPrevw bool   `json:"disable_web_page_preview"`
		}
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer ts.Close()

		c := NewTelegramClient("tok", 123, "選股雷達")
		c.baseURL = ts.URL
		if err := c.SendMessage(context.Background(), "2330 出現買點"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ChatID != 123 || got.Text != "[選股雷達] 2330 出現買點" {
			t.Errorf("unexpected payload: %+v", got)
		}
		if !got.NoPrevw {
			t.Error("expected link previews disabled")
		}
	})

	t.Run("server_error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad"}`))
		}))
		defer ts.Close()

		c := NewTelegramClient("tok", 123, "")
		c.baseURL = ts.URL
		if err := c.SendMessage(context.Background(), "hello"); err == nil {
			t.Error("expected error for 400 status")
		}
	})

	t.Run("long_message_split", func(t *testing.T) {
		var texts []string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Text string `json:"text"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			texts = append(texts, body.Text)
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		// 超過單則上限的多行掃描摘要
		lines := make([]string, 0, 200)
		for i := 0; i < 200; i++ {
			lines = append(lines, strings.Repeat("x", 40))
		}
		msg := strings.Join(lines, "\n")

		c := NewTelegramClient("tok", 123, "")
		c.baseURL = ts.URL
		if err := c.SendMessage(context.Background(), msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(texts) < 2 {
			t.Fatalf("expected message split into multiple sends, got %d", len(texts))
		}
		for i, part := range texts {
			if len(part) > telegramMaxLen {
				t.Errorf("chunk %d exceeds limit: %d", i, len(part))
			}
		}
		if strings.Join(texts, "\n") != msg {
			t.Error("rejoined chunks must equal original message")
		}
	})
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short message must stay whole, got %v", got)
	}

	// 單行超長時按字元硬切
	got := splitMessage(strings.Repeat("a", 25), 10)
	if len(got) != 3 || got[0] != strings.Repeat("a", 10) || got[2] != strings.Repeat("a", 5) {
		t.Fatalf("unexpected hard split: %v", got)
	}

	// 多行依換行切，行不被截斷
	got = splitMessage("aaaa\nbbbb\ncccc", 9)
	if len(got) != 2 || got[0] != "aaaa\nbbbb" || got[1] != "cccc" {
		t.Fatalf("unexpected line split: %v", got)
	}
}
