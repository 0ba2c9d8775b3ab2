package dataingestion

import (
	"context"
	"fmt"
	"time"

	"stock-radar/internal/domain/dataingestion"
)

// PriceSource 抽象化外部日線來源（FinMind、合成資料等）。
type PriceSource interface {
	FetchDaily(ctx context.Context, date time.Time, symbols []string, market *dataingestion.Market) ([]dataingestion.DailyPrice, error)
}

// PriceRepository 定義日線寫入介面。
type PriceRepository interface {
	UpsertDailyPrice(ctx context.Context, price dataingestion.DailyPrice, replace bool) error
}

// IngestUseCase 負責把上市/上櫃日線抓回來落地，
// 供每日例行、歷史回補與資料重抓共用。
type IngestUseCase struct {
	source PriceSource
	repo   PriceRepository
}

func NewIngestUseCase(source PriceSource, repo PriceRepository) *IngestUseCase {
	return &IngestUseCase{
		source: source,
		repo:   repo,
	}
}

type IngestMode string

const (
	// IngestModeDaily 每日收盤後的例行抓取，遇週末直接略過。
	IngestModeDaily IngestMode = "daily"
	// IngestModeBackfill 歷史區間回補，由呼叫端逐日驅動。
	IngestModeBackfill IngestMode = "backfill"
	// IngestModeRecovery 重抓疑似異常的資料，一律覆寫既有列。
	IngestModeRecovery IngestMode = "recovery"
)

// IngestInput 控制一次資料抓取行為。
type IngestInput struct {
	Date         time.Time
	Mode         IngestMode
	Replace      bool
	Symbols      []string
	MarketFilter *dataingestion.Market
}

type Failure struct {
	Symbol string
	Reason string
}

// IngestResult 彙整一次抓取的結果。MarketCounts 按市場別統計成功筆數。
type IngestResult struct {
	SuccessCount int
	FailedCount  int
	Skipped      bool
	Failures     []Failure
	MarketCounts map[dataingestion.Market]int
}

// Execute 執行一次資料抓取與寫入。
func (u *IngestUseCase) Execute(ctx context.Context, input IngestInput) (IngestResult, error) {
	result := IngestResult{}

	if input.Date.IsZero() {
		return result, fmt.Errorf("date is required")
	}

	if input.Mode == "" {
		input.Mode = IngestModeDaily
	}
	// recovery 的目的就是蓋掉壞資料，不看呼叫端的 Replace。
	replace := input.Replace || input.Mode == IngestModeRecovery

	// 台股週六日不開盤，例行模式直接視為無事可做。
	// 回補/重抓仍放行，補非交易日會拿到空集合，無害。
	if input.Mode == IngestModeDaily && isWeekend(input.Date) {
		result.Skipped = true
		return result, nil
	}

	rawPrices, err := u.source.FetchDaily(ctx, input.Date, input.Symbols, input.MarketFilter)
	if err != nil {
		return result, fmt.Errorf("fetch daily prices: %w", err)
	}

	result.MarketCounts = make(map[dataingestion.Market]int)
	for _, p := range rawPrices {
		if err := p.Validate(); err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, Failure{
				Symbol: p.Symbol,
				Reason: err.Error(),
			})
			continue
		}

		if err := u.repo.UpsertDailyPrice(ctx, p, replace); err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, Failure{
				Symbol: p.Symbol,
				Reason: fmt.Sprintf("store failed: %v", err),
			})
			continue
		}

		result.SuccessCount++
		result.MarketCounts[p.Market]++
	}

	return result, nil
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
