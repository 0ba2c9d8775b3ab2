package reports

import (
	"time"

	alertDomain "stock-radar/internal/domain/alert"
	"stock-radar/internal/domain/analysis"
	"stock-radar/internal/domain/dataingestion"
)

// MarketOverview 聚合市場當日摘要。
type MarketOverview struct {
	Date             time.Time
	TotalCount       int
	BuyCount         int
	WatchCount       int
	RegimeCounters   map[string]int
	AverageComposite float64
	ScoreHistogram   map[string]int
	TagCounters      map[analysis.Tag]int
	TopIndustries    []IndustryStat
	StrongestStocks  []StockBrief
}

// IndustryStat 描述產業表現。
type IndustryStat struct {
	Industry         string
	Count            int
	AverageComposite float64
	BuyCount         int
}

// StockBrief 提供簡短個股資料。
type StockBrief struct {
	Symbol         string
	CompositeScore float64
	Signal         string
	Confidence     int
	Tags           []analysis.Tag
}

// IndustryDashboard 針對單一產業的摘要。
type IndustryDashboard struct {
	Date             time.Time
	Industry         string
	AverageComposite float64
	BuyCount         int
	TopStocks        []StockBrief
	TotalCount       int
}

// StockDashboard 個股歷史摘要。
type StockDashboard struct {
	Symbol       string
	Market       dataingestion.Market
	Industry     string
	History      []analysis.DailyAnalysisResult
	TagsTimeline []TagTimelineEntry
	LastResult   *analysis.DailyAnalysisResult
}

// TagTimelineEntry 記錄某日出現的標籤。
type TagTimelineEntry struct {
	Date time.Time
	Tags []analysis.Tag
}

// ExecutiveSummary 為單股「持有者 vs 空手者」的總結建議。
type ExecutiveSummary struct {
	Symbol       string
	Date         time.Time
	ChipMessage  string // 外資動向摘要
	HolderAdvice string
	BuyerAdvice  string
}

// SystemHealthDashboard 系統健康摘要。
type SystemHealthDashboard struct {
	Date    time.Time
	Metrics []alertDomain.SystemMetric
}
