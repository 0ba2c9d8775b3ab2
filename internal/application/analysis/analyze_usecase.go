package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	domain "stock-radar/internal/domain/analysis"
	"stock-radar/internal/domain/chip"
	"stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/indicator"
	"stock-radar/internal/domain/scoring"
	"stock-radar/internal/domain/strategy"
)

// PriceHistoryProvider 取得股票歷史日 K。
type PriceHistoryProvider interface {
	GetHistory(ctx context.Context, symbol string, endDate time.Time, lookback int) ([]dataingestion.DailyPrice, error)
}

// BasicInfoProvider 取得股票基本資料。
type BasicInfoProvider interface {
	ListBasicInfo(ctx context.Context, symbols []string, date time.Time) ([]BasicInfo, error)
}

// FundamentalsProvider 取得估值面資料。缺資料時回傳零值 Fundamentals 即可，
// 對應檢查不給分。
type FundamentalsProvider interface {
	GetFundamentals(ctx context.Context, symbol string) (scoring.Fundamentals, error)
}

// ChipFlowProvider 取得法人買賣超原始列。
type ChipFlowProvider interface {
	GetFlows(ctx context.Context, symbol string, endDate time.Time, lookback int) ([]chip.FlowRow, error)
}

// AnalysisRepository 儲存分析結果。
type AnalysisRepository interface {
	SaveDailyResult(ctx context.Context, result domain.DailyAnalysisResult) error
}

// BasicInfo 提供分析所需的最低限度基本資料。
type BasicInfo struct {
	Symbol   string
	Market   dataingestion.Market
	Industry string
}

type AnalyzeInput struct {
	TradeDate    time.Time
	Symbols      []string // 若為空則由 BasicInfoProvider 回傳預設清單
	LookbackDays int      // 不含當日，預設 120
	Concurrency  int      // 併發分析檔數，預設 8
	Version      string   // 分析版本，可追蹤算法
}

type Failure struct {
	Symbol string
	Reason string
}

type AnalyzeResult struct {
	SuccessCount int
	FailedCount  int
	Failures     []Failure
}

type AnalyzeUseCase struct {
	basicProvider   BasicInfoProvider
	historyProvider PriceHistoryProvider
	fundamentals    FundamentalsProvider
	chipProvider    ChipFlowProvider
	repo            AnalysisRepository
}

// NewAnalyzeUseCase 建立日批次分析用例，串接基本資料、歷史價格、
// 估值、籌碼與儲存介面。fundamentals 與 chipProvider 可為 nil（跳過該面向）。
func NewAnalyzeUseCase(
	basicProvider BasicInfoProvider,
	historyProvider PriceHistoryProvider,
	fundamentals FundamentalsProvider,
	chipProvider ChipFlowProvider,
	repo AnalysisRepository,
) *AnalyzeUseCase {
	return &AnalyzeUseCase{
		basicProvider:   basicProvider,
		historyProvider: historyProvider,
		fundamentals:    fundamentals,
		chipProvider:    chipProvider,
		repo:            repo,
	}
}

func (u *AnalyzeUseCase) Execute(ctx context.Context, input AnalyzeInput) (AnalyzeResult, error) {
	var result AnalyzeResult

	if input.TradeDate.IsZero() {
		return result, fmt.Errorf("trade date is required")
	}
	if input.LookbackDays <= 0 {
		input.LookbackDays = 120
	}
	if input.Concurrency <= 0 {
		input.Concurrency = 8
	}

	basicList, err := u.basicProvider.ListBasicInfo(ctx, input.Symbols, input.TradeDate)
	if err != nil {
		return result, fmt.Errorf("list basic info: %w", err)
	}

	var mu sync.Mutex
	fail := func(symbol, reason string) {
		mu.Lock()
		defer mu.Unlock()
		result.FailedCount++
		result.Failures = append(result.Failures, Failure{Symbol: symbol, Reason: reason})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(input.Concurrency)

	for _, info := range basicList {
		if info.Symbol == "" {
			fail("", "missing symbol")
			continue
		}
		info := info
		g.Go(func() error {
			history, err := u.historyProvider.GetHistory(gctx, info.Symbol, input.TradeDate, input.LookbackDays)
			if err != nil {
				fail(info.Symbol, fmt.Sprintf("history error: %v", err))
				return nil
			}

			analysisRes, err := u.analyzeOne(gctx, info, input.TradeDate, history, input.Version)
			if err != nil {
				fail(info.Symbol, err.Error())
				return nil
			}

			if err := u.repo.SaveDailyResult(gctx, analysisRes); err != nil {
				fail(info.Symbol, fmt.Sprintf("store failed: %v", err))
				return nil
			}

			mu.Lock()
			result.SuccessCount++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	// 失敗清單依代號排序，批次重跑時 diff 穩定。
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Symbol < result.Failures[j].Symbol
	})
	return result, nil
}

func (u *AnalyzeUseCase) analyzeOne(ctx context.Context, info BasicInfo, tradeDate time.Time, history []dataingestion.DailyPrice, version string) (domain.DailyAnalysisResult, error) {
	var res domain.DailyAnalysisResult

	if len(history) == 0 {
		return res, fmt.Errorf("no history data")
	}
	if !dataingestion.SortedByDate(history) {
		return res, fmt.Errorf("history not sorted by trade date")
	}

	latest := history[len(history)-1]
	if !sameDate(latest.TradeDate, tradeDate) {
		return res, fmt.Errorf("latest trade date mismatch")
	}

	res = domain.DailyAnalysisResult{
		Symbol:   info.Symbol,
		Market:   info.Market,
		Industry: info.Industry,
		Version:  version,
		Success:  true,
	}

	series, err := indicator.Enrich(history)
	if err != nil {
		return res, fmt.Errorf("enrich %s: %w", info.Symbol, err)
	}

	domain.Snapshot(&res, series)
	res.Decision = strategy.Run(series)

	// 估值資料拿不到就以零值評分，不讓單檔失敗。
	var funds scoring.Fundamentals
	if u.fundamentals != nil {
		if f, err := u.fundamentals.GetFundamentals(ctx, info.Symbol); err == nil {
			funds = f
		}
	}
	composite := scoring.Score(funds, series)
	res.CompositeScore = composite.Score
	res.CompositeReasons = composite.Reasons

	var sw *chip.Switch
	if u.chipProvider != nil {
		if rows, err := u.chipProvider.GetFlows(ctx, info.Symbol, tradeDate, 30); err == nil && len(rows) > 0 {
			flows := chip.Normalize(rows)
			aligned := chip.AlignTo(flows, tradeDates(history))
			if last := lastAligned(aligned); last != nil && last.NetBuy != nil {
				res.ChipNetBuy = last.NetBuy
			}
			sw = chip.DetectSwitch(aligned)
			if sw != nil {
				res.ChipSwitch = string(sw.Kind)
			}
		}
	}

	res.Tags = domain.DeriveTags(series, sw)

	if err := res.Validate(); err != nil {
		res.Success = false
		res.ErrorReason = err.Error()
		return res, err
	}
	return res, nil
}

func tradeDates(history []dataingestion.DailyPrice) []time.Time {
	dates := make([]time.Time, len(history))
	for i, p := range history {
		dates[i] = p.TradeDate
	}
	return dates
}

func lastAligned(aligned []chip.AlignedFlow) *chip.AlignedFlow {
	if len(aligned) == 0 {
		return nil
	}
	return &aligned[len(aligned)-1]
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
