package notify

import (
	"context"
	"fmt"
	"strings"

	"stock-radar/internal/application/scan"
	"stock-radar/internal/domain/alert"
)

// Dispatcher 將應用層通知排版成 Telegram 文字訊息。
// 實作 alert 引擎與掃描 worker 的 Notifier 介面。
type Dispatcher struct {
	client *TelegramClient
}

func NewDispatcher(client *TelegramClient) *Dispatcher {
	return &Dispatcher{client: client}
}

// Send 送出訂閱觸發通知。
func (d *Dispatcher) Send(ctx context.Context, n alert.Notification) error {
	var b strings.Builder
	fmt.Fprintf(&b, "【%s】%s\n", n.SubscriptionName, n.Date.Format("2006-01-02"))
	if n.Message != "" {
		b.WriteString(n.Message)
		b.WriteString("\n")
	}
	for _, s := range n.Stocks {
		fmt.Fprintf(&b, "%s %s 收盤 %.2f 訊號 %s 信心 %d 綜合分 %.0f\n",
			s.Symbol, s.Market, s.Close, signalLabel(s.Signal), s.Confidence, s.CompositeScore)
		if s.Reason != "" {
			fmt.Fprintf(&b, "  %s\n", s.Reason)
		}
	}
	if n.SystemMetric != nil {
		fmt.Fprintf(&b, "%s=%.2f %s\n", n.SystemMetric.Metric, n.SystemMetric.Value, n.SystemMetric.Detail)
	}
	return d.client.SendMessage(ctx, strings.TrimRight(b.String(), "\n"))
}

// NotifyScan 送出每日掃描摘要。
func (d *Dispatcher) NotifyScan(ctx context.Context, result scan.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "每日掃描 %s：掃描 %d 檔，買點 %d、觀察 %d\n",
		result.ScanDate.Format("2006-01-02"), result.Scanned, result.BuyCount, result.WatchCount)
	for i, m := range result.Matches {
		if i >= 10 {
			fmt.Fprintf(&b, "... 其餘 %d 檔省略\n", len(result.Matches)-i)
			break
		}
		fmt.Fprintf(&b, "%s（%s）收盤 %.2f %s 信心 %d\n",
			m.Symbol, m.Industry, m.Close, signalLabel(m.Decision.Signal()), m.Decision.Confidence)
	}
	return d.client.SendMessage(ctx, strings.TrimRight(b.String(), "\n"))
}

func signalLabel(signal string) string {
	switch signal {
	case "buy":
		return "買點"
	case "watch":
		return "觀察"
	default:
		return "無訊號"
	}
}
