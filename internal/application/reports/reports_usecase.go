package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"stock-radar/internal/application/analysis"
	alertDomain "stock-radar/internal/domain/alert"
	analysisDomain "stock-radar/internal/domain/analysis"
	"stock-radar/internal/domain/chip"
	"stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/indicator"
	reportsDomain "stock-radar/internal/domain/reports"
	"stock-radar/internal/domain/strategy"
)

// AnalysisReader 提供分析結果查詢。
type AnalysisReader interface {
	QueryByDate(ctx context.Context, input analysis.QueryByDateInput) (analysis.QueryByDateOutput, error)
	QueryHistory(ctx context.Context, input analysis.QueryHistoryInput) ([]analysisDomain.DailyAnalysisResult, error)
}

// HealthReader 讀取系統健康度資料。
type HealthReader interface {
	Check(ctx context.Context, date time.Time) ([]alertDomain.SystemMetric, error)
}

// UseCase 聚合儀表板與報表邏輯。
type UseCase struct {
	reader  AnalysisReader
	history analysis.PriceHistoryProvider
	chips   analysis.ChipFlowProvider
	health  HealthReader
	now     func() time.Time
}

// NewUseCase 建立報表與儀表板用例，匯總分析、價格、籌碼與健康度資料。
// history/chips 供總結建議使用，health 可為 nil。
func NewUseCase(reader AnalysisReader, history analysis.PriceHistoryProvider, chips analysis.ChipFlowProvider, health HealthReader) *UseCase {
	return &UseCase{
		reader:  reader,
		history: history,
		chips:   chips,
		health:  health,
		now:     time.Now,
	}
}

// BuildMarketOverview 產出市場總覽。
func (u *UseCase) BuildMarketOverview(ctx context.Context, date time.Time) (reportsDomain.MarketOverview, error) {
	out := reportsDomain.MarketOverview{Date: date}
	resp, err := u.reader.QueryByDate(ctx, analysis.QueryByDateInput{
		Date: date,
		Filter: analysis.QueryFilter{
			OnlySuccess: true,
		},
		Pagination: analysis.Pagination{Offset: 0, Limit: 10000},
	})
	if err != nil {
		return out, err
	}
	out.TotalCount = len(resp.Results)
	if out.TotalCount == 0 {
		return out, nil
	}

	tagCount := make(map[analysisDomain.Tag]int)
	regimeCount := make(map[string]int)
	scoreSum := 0.0
	for _, r := range resp.Results {
		scoreSum += r.CompositeScore
		regimeCount[string(r.Decision.Regime)]++
		if r.Decision.Buy {
			out.BuyCount++
		}
		if r.Decision.Watch {
			out.WatchCount++
		}
		for _, t := range r.Tags {
			tagCount[t]++
		}
	}
	out.AverageComposite = scoreSum / float64(out.TotalCount)
	out.TagCounters = tagCount
	out.RegimeCounters = regimeCount
	out.ScoreHistogram = buildScoreHistogram(resp.Results)
	out.TopIndustries = topIndustries(resp.Results, 3)
	out.StrongestStocks = topStocks(resp.Results, 5)

	return out, nil
}

// BuildIndustryDashboard 產出單一產業摘要。
func (u *UseCase) BuildIndustryDashboard(ctx context.Context, date time.Time, industry string) (reportsDomain.IndustryDashboard, error) {
	out := reportsDomain.IndustryDashboard{Date: date, Industry: industry}
	resp, err := u.reader.QueryByDate(ctx, analysis.QueryByDateInput{
		Date: date,
		Filter: analysis.QueryFilter{
			OnlySuccess: true,
			Industries:  []string{industry},
		},
		Pagination: analysis.Pagination{Offset: 0, Limit: 5000},
	})
	if err != nil {
		return out, err
	}
	if len(resp.Results) == 0 {
		return out, nil
	}

	out.TotalCount = len(resp.Results)
	sumScore := 0.0
	for _, r := range resp.Results {
		sumScore += r.CompositeScore
		if r.Decision.Buy {
			out.BuyCount++
		}
	}
	out.AverageComposite = sumScore / float64(out.TotalCount)
	out.TopStocks = topStocks(resp.Results, 10)
	return out, nil
}

// BuildStockDashboard 產出個股摘要。
func (u *UseCase) BuildStockDashboard(ctx context.Context, symbol string, from, to *time.Time) (reportsDomain.StockDashboard, error) {
	out := reportsDomain.StockDashboard{Symbol: symbol}
	if symbol == "" {
		return out, fmt.Errorf("symbol is required")
	}
	resp, err := u.reader.QueryHistory(ctx, analysis.QueryHistoryInput{
		Symbol: symbol,
		From:   from,
		To:     to,
		Limit:  365,
	})
	if err != nil {
		return out, err
	}
	if len(resp) == 0 {
		return out, nil
	}
	out.History = resp
	last := resp[len(resp)-1]
	out.LastResult = &last
	out.Market = last.Market
	out.Industry = last.Industry
	out.TagsTimeline = buildTagTimeline(resp)
	return out, nil
}

// BuildExecutiveSummary 產出「持有者 vs 空手者」總結建議。
func (u *UseCase) BuildExecutiveSummary(ctx context.Context, symbol string, date time.Time) (reportsDomain.ExecutiveSummary, error) {
	out := reportsDomain.ExecutiveSummary{Symbol: symbol, Date: date}
	if symbol == "" {
		return out, fmt.Errorf("symbol is required")
	}
	if u.history == nil {
		return out, fmt.Errorf("price history provider not configured")
	}

	prices, err := u.history.GetHistory(ctx, symbol, date, 120)
	if err != nil {
		return out, fmt.Errorf("price history: %w", err)
	}
	series, err := indicator.Enrich(prices)
	if err != nil {
		return out, fmt.Errorf("enrich %s: %w", symbol, err)
	}

	out.ChipMessage = u.chipMessage(ctx, symbol, date, prices)
	gate := strategy.MarketRegimeGate(series)
	out.HolderAdvice = holderAdvice(series)
	out.BuyerAdvice = buyerAdvice(series, gate.AllowLong, out.ChipMessage)
	return out, nil
}

// chipMessage 以近 5 個交易日的外資淨買賣超總和給出方向摘要。
func (u *UseCase) chipMessage(ctx context.Context, symbol string, date time.Time, prices []dataingestion.DailyPrice) string {
	const unknown = "外資動向不明"
	if u.chips == nil {
		return unknown
	}
	rows, err := u.chips.GetFlows(ctx, symbol, date, 30)
	if err != nil || len(rows) == 0 {
		return unknown
	}

	dates := make([]time.Time, len(prices))
	for i, p := range prices {
		dates[i] = p.TradeDate
	}
	aligned := chip.AlignTo(chip.Normalize(rows), dates)

	sum := 0.0
	counted := 0
	for i := len(aligned) - 1; i >= 0 && counted < 5; i-- {
		if aligned[i].NetBuy != nil {
			sum += *aligned[i].NetBuy
		}
		counted++
	}
	switch {
	case sum > 0:
		return "外資近期偏多"
	case sum < 0:
		return "外資近期調節"
	default:
		return unknown
	}
}

func holderAdvice(s indicator.Series) string {
	curr, _ := s.Last()
	switch {
	case curr.MA60 != nil && curr.Close < *curr.MA60:
		return "建議「停損/減碼」。股價已跌破生命線（季線），趨勢轉空，不宜戀戰。"
	case curr.MA20 != nil && curr.Close < *curr.MA20:
		return fmt.Sprintf("建議「續抱但提高警覺」。大趨勢仍多頭（守季線 %.0f），但短線轉弱（破月線）。若有效跌破季線則應離場。", deref(curr.MA60))
	case curr.K != nil && *curr.K > 80:
		return "建議「續抱並設移動停利」。目前強勢但指標過熱，隨時留意獲利了結訊號（如跌破 5 日線）。"
	default:
		return "建議「續抱」。股價在均線之上，趨勢健康。"
	}
}

func buyerAdvice(s indicator.Series, trendOK bool, chipMsg string) string {
	if !trendOK {
		return "建議「觀望」。目前趨勢偏空（均線排列不佳或股價在季線下），此時進場像是接刀，風險極大。"
	}

	curr, _ := s.Last()
	prev, _ := s.Prev()
	goldCross := curr.K != nil && curr.D != nil && prev.K != nil && prev.D != nil &&
		*curr.K > *curr.D && *prev.K <= *prev.D

	switch {
	case goldCross && curr.D != nil && *curr.D <= 50:
		return fmt.Sprintf("建議「分批佈局」。KDJ 低檔黃金交叉，且趨勢偏多。可嘗試進場，停損設在月線 %.0f。", deref(curr.MA20))
	case curr.K != nil && *curr.K > 80:
		return fmt.Sprintf("建議「觀望」。指標已至高檔（K>80），現在追高風險較大。穩健者建議等待回測月線 %.0f 或季線 %.0f 不破再進場。", deref(curr.MA20), deref(curr.MA60))
	default:
		return fmt.Sprintf("建議「區間操作」。目前%s。若回檔至支撐位 %.0f 附近可考慮承接。", chipMsg, deref(curr.MA20))
	}
}

// BuildSystemHealth 產出系統健康摘要。
func (u *UseCase) BuildSystemHealth(ctx context.Context, date time.Time) (reportsDomain.SystemHealthDashboard, error) {
	out := reportsDomain.SystemHealthDashboard{Date: date}
	if u.health == nil {
		return out, nil
	}
	metrics, err := u.health.Check(ctx, date)
	if err != nil {
		return out, err
	}
	out.Metrics = metrics
	return out, nil
}

// ExportDailyMarketReport 匯出當日市場報告 CSV。
func (u *UseCase) ExportDailyMarketReport(ctx context.Context, date time.Time, limit int) (string, error) {
	if limit <= 0 {
		limit = 200
	}
	resp, err := u.reader.QueryByDate(ctx, analysis.QueryByDateInput{
		Date: date,
		Filter: analysis.QueryFilter{
			OnlySuccess: true,
		},
		Sort:       analysis.SortOption{Field: analysis.SortCompositeScore, Desc: true},
		Pagination: analysis.Pagination{Offset: 0, Limit: limit},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	header := []string{"date", "symbol", "market", "industry", "close", "regime", "signal", "confidence", "composite_score", "tags"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, r := range resp.Results {
		record := []string{
			r.TradeDate.Format("2006-01-02"),
			r.Symbol,
			string(r.Market),
			r.Industry,
			formatFloat(r.Close),
			string(r.Decision.Regime),
			r.Decision.Signal(),
			strconv.Itoa(r.Decision.Confidence),
			formatFloat(r.CompositeScore),
			strings.Join(tagStrings(r.Tags), "|"),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// helpers
func buildScoreHistogram(results []analysisDomain.DailyAnalysisResult) map[string]int {
	buckets := map[string]int{
		"0-20":   0,
		"20-40":  0,
		"40-60":  0,
		"60-80":  0,
		"80-100": 0,
	}
	for _, r := range results {
		switch {
		case r.CompositeScore < 20:
			buckets["0-20"]++
		case r.CompositeScore < 40:
			buckets["20-40"]++
		case r.CompositeScore < 60:
			buckets["40-60"]++
		case r.CompositeScore < 80:
			buckets["60-80"]++
		default:
			buckets["80-100"]++
		}
	}
	return buckets
}

func topIndustries(results []analysisDomain.DailyAnalysisResult, n int) []reportsDomain.IndustryStat {
	type agg struct {
		count int
		score float64
		buys  int
	}
	stats := make(map[string]*agg)
	for _, r := range results {
		key := r.Industry
		if key == "" {
			key = "UNKNOWN"
		}
		a := stats[key]
		if a == nil {
			a = &agg{}
			stats[key] = a
		}
		a.count++
		a.score += r.CompositeScore
		if r.Decision.Buy {
			a.buys++
		}
	}

	var list []reportsDomain.IndustryStat
	for ind, a := range stats {
		list = append(list, reportsDomain.IndustryStat{
			Industry:         ind,
			Count:            a.count,
			AverageComposite: a.score / float64(a.count),
			BuyCount:         a.buys,
		})
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].AverageComposite > list[j].AverageComposite
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

func topStocks(results []analysisDomain.DailyAnalysisResult, n int) []reportsDomain.StockBrief {
	sorted := make([]analysisDomain.DailyAnalysisResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CompositeScore > sorted[j].CompositeScore
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]reportsDomain.StockBrief, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, reportsDomain.StockBrief{
			Symbol:         r.Symbol,
			CompositeScore: r.CompositeScore,
			Signal:         r.Decision.Signal(),
			Confidence:     r.Decision.Confidence,
			Tags:           r.Tags,
		})
	}
	return out
}

func buildTagTimeline(history []analysisDomain.DailyAnalysisResult) []reportsDomain.TagTimelineEntry {
	timeline := make([]reportsDomain.TagTimelineEntry, 0, len(history))
	for _, r := range history {
		if len(r.Tags) == 0 {
			continue
		}
		timeline = append(timeline, reportsDomain.TagTimelineEntry{
			Date: r.TradeDate,
			Tags: r.Tags,
		})
	}
	return timeline
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func tagStrings(tags []analysisDomain.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	sort.Strings(out)
	return out
}
