package scan

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"stock-radar/internal/application/analysis"
	"stock-radar/internal/domain/indicator"
	"stock-radar/internal/domain/scoring"
	"stock-radar/internal/domain/strategy"
)

// minLiquidityShares 為全市場掃描的流動性門檻：20 日均量需達一百萬股。
const minLiquidityShares = 1_000_000

// Match 為掃描命中的單檔結果。
type Match struct {
	Symbol         string
	Industry       string
	Close          float64
	Decision       strategy.Decision
	CompositeScore float64
	Reasons        []string
}

// Result 為一次掃描的彙總輸出。
type Result struct {
	ScanDate   time.Time
	Scanned    int
	Skipped    int // 資料不足或流動性不足
	BuyCount   int
	WatchCount int
	Matches    []Match
	Elapsed    time.Duration
}

// Input 控制一次掃描。
type Input struct {
	Date        time.Time
	Symbols     []string // 空值時掃描 BasicInfoProvider 的全部清單
	Lookback    int      // 預設 120
	Concurrency int      // 預設 8
	WatchOnly   bool     // false 時僅回傳買進訊號
	OnProgress  func(done, total int)
}

// UseCase 對全市場執行三層策略掃描。
type UseCase struct {
	basic        analysis.BasicInfoProvider
	history      analysis.PriceHistoryProvider
	fundamentals analysis.FundamentalsProvider
}

func NewUseCase(basic analysis.BasicInfoProvider, history analysis.PriceHistoryProvider, fundamentals analysis.FundamentalsProvider) *UseCase {
	return &UseCase{basic: basic, history: history, fundamentals: fundamentals}
}

// Execute 掃描全市場並回傳命中清單，依信心與綜合評分排序。
func (u *UseCase) Execute(ctx context.Context, input Input) (Result, error) {
	start := time.Now()
	var out Result

	if input.Date.IsZero() {
		return out, fmt.Errorf("scan date is required")
	}
	if input.Lookback <= 0 {
		input.Lookback = 120
	}
	if input.Concurrency <= 0 {
		input.Concurrency = 8
	}
	out.ScanDate = input.Date

	infos, err := u.basic.ListBasicInfo(ctx, input.Symbols, input.Date)
	if err != nil {
		return out, fmt.Errorf("list symbols: %w", err)
	}
	infos = lo.Filter(infos, func(b analysis.BasicInfo, _ int) bool { return b.Symbol != "" })
	out.Scanned = len(infos)

	var mu sync.Mutex
	var matches []Match
	skipped := 0
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(input.Concurrency)

	for _, info := range infos {
		info := info
		g.Go(func() error {
			m, ok := u.scanOne(gctx, info, input)
			mu.Lock()
			defer mu.Unlock()
			done++
			if input.OnProgress != nil {
				input.OnProgress(done, len(infos))
			}
			if !ok {
				skipped++
				return nil
			}
			if m != nil {
				matches = append(matches, *m)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Decision.Confidence != matches[j].Decision.Confidence {
			return matches[i].Decision.Confidence > matches[j].Decision.Confidence
		}
		return matches[i].CompositeScore > matches[j].CompositeScore
	})

	out.Skipped = skipped
	out.Matches = matches
	out.BuyCount = lo.CountBy(matches, func(m Match) bool { return m.Decision.Buy })
	out.WatchCount = lo.CountBy(matches, func(m Match) bool { return m.Decision.Watch })
	out.Elapsed = time.Since(start)
	return out, nil
}

// scanOne 回傳 (命中, 是否納入統計)。ok=false 表示跳過（資料或流動性不足）。
func (u *UseCase) scanOne(ctx context.Context, info analysis.BasicInfo, input Input) (*Match, bool) {
	history, err := u.history.GetHistory(ctx, info.Symbol, input.Date, input.Lookback)
	if err != nil {
		return nil, false
	}
	series, err := indicator.Enrich(history)
	if err != nil {
		return nil, false
	}

	// 全市場掃描先用流動性門檻砍掉冷門股，避免浪費估值查詢。
	curr, _ := series.Last()
	if curr.VolMA20 == nil || *curr.VolMA20 < minLiquidityShares {
		return nil, false
	}

	decision := strategy.Run(series)
	if !decision.Watch {
		return nil, true
	}
	if !input.WatchOnly && !decision.Buy {
		return nil, true
	}

	var funds scoring.Fundamentals
	if u.fundamentals != nil {
		if f, err := u.fundamentals.GetFundamentals(ctx, info.Symbol); err == nil {
			funds = f
		}
	}
	composite := scoring.Score(funds, series)

	return &Match{
		Symbol:         info.Symbol,
		Industry:       info.Industry,
		Close:          curr.Close,
		Decision:       decision,
		CompositeScore: composite.Score,
		Reasons:        composite.Reasons,
	}, true
}

// CrossoverHit 為均線交叉快掃的單筆輸出。
type CrossoverHit struct {
	Symbol string
	Close  float64
	MA5    float64
	MA10   float64
}

// QuickCrossover 掃描「收盤站上 MA5 且 MA5 向上穿越 MA10」的個股。
// 不跑完整策略引擎，適合盤後快速產生觀察清單。
func (u *UseCase) QuickCrossover(ctx context.Context, input Input) ([]CrossoverHit, error) {
	if input.Date.IsZero() {
		return nil, fmt.Errorf("scan date is required")
	}
	if input.Lookback <= 0 {
		input.Lookback = 60
	}
	if input.Concurrency <= 0 {
		input.Concurrency = 8
	}

	infos, err := u.basic.ListBasicInfo(ctx, input.Symbols, input.Date)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}

	var mu sync.Mutex
	var hits []CrossoverHit

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(input.Concurrency)

	for _, info := range infos {
		info := info
		g.Go(func() error {
			history, err := u.history.GetHistory(gctx, info.Symbol, input.Date, input.Lookback)
			if err != nil {
				return nil
			}
			series, err := indicator.Enrich(history)
			if err != nil {
				return nil
			}
			if !indicator.MA5BreakoutMA10(series) {
				return nil
			}
			curr, _ := series.Last()
			mu.Lock()
			hits = append(hits, CrossoverHit{
				Symbol: info.Symbol,
				Close:  curr.Close,
				MA5:    *curr.MA5,
				MA10:   *curr.MA10,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Symbol < hits[j].Symbol })
	return hits, nil
}
