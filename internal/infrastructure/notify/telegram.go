package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Telegram 單則訊息上限。每日掃描摘要列出多檔標的時可能超過，
// 超過就依行切成多則送出。
const telegramMaxLen = 4096

// TelegramClient 提供 sendMessage API 封裝，
// 作為掃描結果與訂閱警示的推播通道。
type TelegramClient struct {
	token      string
	chatID     int64
	prefix     string
	baseURL    string
	httpClient *http.Client
}

func NewTelegramClient(token string, chatID int64, prefix string) *TelegramClient {
	return &TelegramClient{
		token:   token,
		chatID:  chatID,
		prefix:  prefix,
		baseURL: "https://api.telegram.org",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendMessage 將文字訊息推送到指定 chat，過長時自動分段。
func (c *TelegramClient) SendMessage(ctx context.Context, text string) error {
	if c == nil {
		return fmt.Errorf("telegram client is nil")
	}
	if c.token == "" || c.chatID == 0 {
		return fmt.Errorf("telegram token or chat_id missing")
	}

	fullText := text
	if c.prefix != "" {
		fullText = fmt.Sprintf("[%s] %s", c.prefix, text)
	}

	for _, chunk := range splitMessage(fullText, telegramMaxLen) {
		if err := c.post(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *TelegramClient) post(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram send failed status=%d body=%s", resp.StatusCode, string(raw))
	}
	return nil
}

// splitMessage 以換行為界把長訊息切成不超過 limit 的片段。
// 單行就超過 limit 時按字元硬切。
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		need := len(line)
		if cur.Len() > 0 {
			need++ // 換行符
		}
		if cur.Len()+need > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
