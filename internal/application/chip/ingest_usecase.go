package chip

import (
	"context"
	"fmt"
	"time"

	"stock-radar/internal/application/analysis"
	"stock-radar/internal/domain/chip"
	"stock-radar/internal/domain/dataingestion"
)

// maxSwitchHistory 為每檔股票保留的轉向事件上限，舊事件直接淘汰。
const maxSwitchHistory = 50

// FlowSource 抽象化法人買賣超資料來源。
type FlowSource interface {
	FetchFlows(ctx context.Context, symbol string, endDate time.Time, lookback int) ([]chip.FlowRow, error)
}

// SwitchEvent 為一次法人方向轉折的歷史紀錄。
type SwitchEvent struct {
	Symbol string
	Date   time.Time
	Kind   chip.SwitchKind
	Prev   float64
	Last   float64
}

// FlowRepository 儲存彙總後的淨流量與轉向事件歷史。
type FlowRepository interface {
	SaveNetFlows(ctx context.Context, symbol string, flows []chip.NetFlow) error
	SwitchEvents(ctx context.Context, symbol string) ([]SwitchEvent, error)
	SaveSwitchEvents(ctx context.Context, symbol string, events []SwitchEvent) error
}

// IngestUseCase 抓取法人買賣超、彙總並偵測方向轉折。
type IngestUseCase struct {
	source  FlowSource
	history analysis.PriceHistoryProvider
	repo    FlowRepository
}

func NewIngestUseCase(source FlowSource, history analysis.PriceHistoryProvider, repo FlowRepository) *IngestUseCase {
	return &IngestUseCase{source: source, history: history, repo: repo}
}

type IngestInput struct {
	Date     time.Time
	Symbols  []string
	Lookback int // 預設 30 個交易日
}

type Failure struct {
	Symbol string
	Reason string
}

type IngestResult struct {
	SuccessCount int
	FailedCount  int
	SwitchCount  int
	Failures     []Failure
	Switches     []SwitchEvent
}

// Execute 對每檔股票執行：抓原始列 → 彙總 → 對齊交易日 → 偵測轉折 → 寫入。
func (u *IngestUseCase) Execute(ctx context.Context, input IngestInput) (IngestResult, error) {
	var result IngestResult

	if input.Date.IsZero() {
		return result, fmt.Errorf("date is required")
	}
	if len(input.Symbols) == 0 {
		return result, fmt.Errorf("at least one symbol is required")
	}
	if input.Lookback <= 0 {
		input.Lookback = 30
	}

	for _, symbol := range input.Symbols {
		ev, err := u.ingestOne(ctx, symbol, input.Date, input.Lookback)
		if err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, Failure{Symbol: symbol, Reason: err.Error()})
			continue
		}
		result.SuccessCount++
		if ev != nil {
			result.SwitchCount++
			result.Switches = append(result.Switches, *ev)
		}
	}
	return result, nil
}

func (u *IngestUseCase) ingestOne(ctx context.Context, symbol string, date time.Time, lookback int) (*SwitchEvent, error) {
	rows, err := u.source.FetchFlows(ctx, symbol, date, lookback)
	if err != nil {
		return nil, fmt.Errorf("fetch flows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no flow data")
	}

	flows := chip.Normalize(rows)
	if err := u.repo.SaveNetFlows(ctx, symbol, flows); err != nil {
		return nil, fmt.Errorf("save flows: %w", err)
	}

	// 對齊價格序列的交易日，補休市缺口後才能和當日訊號併看。
	prices, err := u.history.GetHistory(ctx, symbol, date, lookback)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	aligned := chip.AlignTo(flows, priceDates(prices))

	sw := chip.DetectSwitch(aligned)
	if sw == nil {
		return nil, nil
	}

	ev := SwitchEvent{
		Symbol: symbol,
		Date:   date,
		Kind:   sw.Kind,
		Prev:   sw.Prev,
		Last:   sw.Last,
	}
	if err := u.appendSwitchEvent(ctx, ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// appendSwitchEvent 追加事件並維持每檔最多 maxSwitchHistory 筆（新在前）。
func (u *IngestUseCase) appendSwitchEvent(ctx context.Context, ev SwitchEvent) error {
	events, err := u.repo.SwitchEvents(ctx, ev.Symbol)
	if err != nil {
		return fmt.Errorf("load switch history: %w", err)
	}

	// 同日重跑不重複記錄。
	if len(events) > 0 && sameDate(events[0].Date, ev.Date) && events[0].Kind == ev.Kind {
		return nil
	}

	events = append([]SwitchEvent{ev}, events...)
	if len(events) > maxSwitchHistory {
		events = events[:maxSwitchHistory]
	}
	if err := u.repo.SaveSwitchEvents(ctx, ev.Symbol, events); err != nil {
		return fmt.Errorf("save switch history: %w", err)
	}
	return nil
}

// History 取得單檔股票的轉向事件歷史（新在前）。
func (u *IngestUseCase) History(ctx context.Context, symbol string) ([]SwitchEvent, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	return u.repo.SwitchEvents(ctx, symbol)
}

func priceDates(prices []dataingestion.DailyPrice) []time.Time {
	dates := make([]time.Time, len(prices))
	for i, p := range prices {
		dates[i] = p.TradeDate
	}
	return dates
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
