package alert

import (
	"time"

	analysisDomain "stock-radar/internal/domain/analysis"
)

// Notification 封裝通知內容摘要。
type Notification struct {
	SubscriptionID   string
	SubscriptionName string
	Type             SubscriptionType
	Date             time.Time
	Message          string
	Stocks           []StockSummary
	SystemMetric     *SystemMetric
	Channel          Channel
}

// StockSummary 提供通知中顯示的股票摘要。
type StockSummary struct {
	Symbol         string
	Market         string
	Close          float64
	Signal         string
	Confidence     int
	CompositeScore float64
	Reason         string
	Tags           []analysisDomain.Tag
}

// SystemMetric 用於系統警報通知。
type SystemMetric struct {
	Metric string
	Value  float64
	Detail string
}
