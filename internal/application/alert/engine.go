package alert

import (
	"context"
	"fmt"
	"time"

	"stock-radar/internal/application/analysis"
	chipApp "stock-radar/internal/application/chip"
	alertDomain "stock-radar/internal/domain/alert"
	analysisDomain "stock-radar/internal/domain/analysis"
)

// SubscriptionRepository 管理訂閱存取。
type SubscriptionRepository interface {
	ListActive(ctx context.Context) ([]alertDomain.Subscription, error)
}

// ScreenerExecutor 封裝選股器執行。
type ScreenerExecutor interface {
	Run(ctx context.Context, input analysis.ScreenerInput) (analysis.ScreenerOutput, error)
}

// AnalysisQuery 封裝單股查詢。
type AnalysisQuery interface {
	QueryDetail(ctx context.Context, input analysis.QueryDetailInput) (analysisDomain.DailyAnalysisResult, error)
}

// ChipHistoryQuery 取得法人轉向事件歷史（新在前）。
type ChipHistoryQuery interface {
	History(ctx context.Context, symbol string) ([]chipApp.SwitchEvent, error)
}

// SystemHealthChecker 回傳系統健康度檢查結果。
type SystemHealthChecker interface {
	Check(ctx context.Context, date time.Time) ([]alertDomain.SystemMetric, error)
}

// Notifier 寄送通知。
type Notifier interface {
	Send(ctx context.Context, notification alertDomain.Notification) error
}

// Engine 執行所有訂閱，產生並送出通知。
type Engine struct {
	subsRepo   SubscriptionRepository
	screener   ScreenerExecutor
	analysis   AnalysisQuery
	chip       ChipHistoryQuery
	health     SystemHealthChecker
	notifier   Notifier
	now        func() time.Time
	resultSize int
}

// NewEngine 建立通知引擎。chip 與 health 可為 nil（對應訂閱直接跳過）。
func NewEngine(subs SubscriptionRepository, screener ScreenerExecutor, analysis AnalysisQuery, chip ChipHistoryQuery, health SystemHealthChecker, notifier Notifier) *Engine {
	return &Engine{
		subsRepo:   subs,
		screener:   screener,
		analysis:   analysis,
		chip:       chip,
		health:     health,
		notifier:   notifier,
		now:        time.Now,
		resultSize: 10,
	}
}

// Run 執行當日所有訂閱與通知。
func (e *Engine) Run(ctx context.Context, date time.Time) error {
	subs, err := e.subsRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	for _, sub := range subs {
		if err := sub.Validate(); err != nil {
			continue // 跳過無效訂閱，避免中斷
		}

		switch sub.Type {
		case alertDomain.SubscriptionScreener:
			if err := e.handleScreener(ctx, sub, date); err != nil {
				continue
			}
		case alertDomain.SubscriptionStock:
			if err := e.handleStock(ctx, sub, date); err != nil {
				continue
			}
		case alertDomain.SubscriptionChip:
			if err := e.handleChip(ctx, sub, date); err != nil {
				continue
			}
		case alertDomain.SubscriptionSystem:
			if err := e.handleSystem(ctx, sub, date); err != nil {
				continue
			}
		default:
			continue
		}
	}
	return nil
}

func (e *Engine) handleScreener(ctx context.Context, sub alertDomain.Subscription, date time.Time) error {
	out, err := e.screener.Run(ctx, analysis.ScreenerInput{
		Date:       date,
		Logic:      sub.Logic,
		Conditions: sub.Conditions,
		Pagination: analysis.Pagination{Offset: 0, Limit: e.resultSize},
	})
	if err != nil || out.Total == 0 || out.Total < sub.Threshold {
		return err
	}

	notification := alertDomain.Notification{
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Name,
		Type:             sub.Type,
		Date:             date,
		Message:          fmt.Sprintf("%s 命中 %d 檔", sub.Name, out.Total),
		Stocks:           mapStocks(out.Results),
	}

	return e.sendAll(ctx, sub, notification)
}

func (e *Engine) handleStock(ctx context.Context, sub alertDomain.Subscription, date time.Time) error {
	if sub.Symbol == "" {
		return fmt.Errorf("symbol required")
	}
	result, err := e.analysis.QueryDetail(ctx, analysis.QueryDetailInput{
		Symbol: sub.Symbol,
		Date:   date,
	})
	if err != nil {
		return err
	}
	if !matchConditions(result, sub.Conditions, sub.Logic) {
		return nil
	}

	notification := alertDomain.Notification{
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Name,
		Type:             sub.Type,
		Date:             date,
		Message:          fmt.Sprintf("%s 命中條件", sub.Symbol),
		Stocks:           mapStocks([]analysisDomain.DailyAnalysisResult{result}),
	}
	return e.sendAll(ctx, sub, notification)
}

// handleChip 在訂閱股票「當日」出現法人轉向事件時通知。
func (e *Engine) handleChip(ctx context.Context, sub alertDomain.Subscription, date time.Time) error {
	if e.chip == nil {
		return nil
	}
	events, err := e.chip.History(ctx, sub.Symbol)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	latest := events[0]
	if !sameDate(latest.Date, date) {
		return nil
	}

	notification := alertDomain.Notification{
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Name,
		Type:             sub.Type,
		Date:             date,
		Message:          fmt.Sprintf("%s 法人%s（%.0f → %.0f 張）", sub.Symbol, latest.Kind, latest.Prev, latest.Last),
	}
	return e.sendAll(ctx, sub, notification)
}

func (e *Engine) handleSystem(ctx context.Context, sub alertDomain.Subscription, date time.Time) error {
	if e.health == nil {
		return nil
	}
	metrics, err := e.health.Check(ctx, date)
	if err != nil {
		return err
	}
	if len(metrics) == 0 {
		return nil
	}

	for _, m := range metrics {
		m := m
		notification := alertDomain.Notification{
			SubscriptionID:   sub.ID,
			SubscriptionName: sub.Name,
			Type:             sub.Type,
			Date:             date,
			Message:          fmt.Sprintf("系統警報: %s %.2f", m.Metric, m.Value),
			SystemMetric:     &m,
		}
		if err := e.sendAll(ctx, sub, notification); err != nil {
			continue
		}
	}
	return nil
}

func (e *Engine) sendAll(ctx context.Context, sub alertDomain.Subscription, notif alertDomain.Notification) error {
	for _, ch := range sub.Channels {
		n := notif
		n.Channel = ch
		if err := e.notifier.Send(ctx, n); err != nil {
			continue
		}
	}
	return nil
}

func matchConditions(r analysisDomain.DailyAnalysisResult, conditions []analysis.Condition, logic analysis.BoolLogic) bool {
	if len(conditions) == 0 {
		return true
	}
	return analysis.MatchConditions(r, conditions, logic)
}

func mapStocks(results []analysisDomain.DailyAnalysisResult) []alertDomain.StockSummary {
	max := 10
	if len(results) < max {
		max = len(results)
	}
	out := make([]alertDomain.StockSummary, 0, max)
	for i := 0; i < max; i++ {
		r := results[i]
		out = append(out, alertDomain.StockSummary{
			Symbol:         r.Symbol,
			Market:         string(r.Market),
			Close:          r.Close,
			Signal:         r.Decision.Signal(),
			Confidence:     r.Decision.Confidence,
			CompositeScore: r.CompositeScore,
			Reason:         r.Decision.Reason,
			Tags:           r.Tags,
		})
	}
	return out
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
