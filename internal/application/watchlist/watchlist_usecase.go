package watchlist

import (
	"context"
	"fmt"
	"time"

	"stock-radar/internal/application/analysis"
	"stock-radar/internal/application/scan"
	analysisDomain "stock-radar/internal/domain/analysis"
	"stock-radar/internal/domain/watchlist"
)

// Repository 管理自選股存取。
type Repository interface {
	List(ctx context.Context, userID string) ([]watchlist.Item, error)
	Save(ctx context.Context, item watchlist.Item) error
	Delete(ctx context.Context, userID, symbol string) error
}

// AnalysisQuery 取得自選股的最新分析結果。
type AnalysisQuery interface {
	QueryDetail(ctx context.Context, input analysis.QueryDetailInput) (analysisDomain.DailyAnalysisResult, error)
}

// UseCase 提供自選股的增刪查與掃描匯入。
type UseCase struct {
	repo     Repository
	analysis AnalysisQuery
	now      func() time.Time
}

// NewUseCase 建立自選股用例。analysis 可為 nil（查詢時不附帶決策）。
func NewUseCase(repo Repository, analysis AnalysisQuery) *UseCase {
	return &UseCase{repo: repo, analysis: analysis, now: time.Now}
}

type AddInput struct {
	UserID      string
	Symbol      string
	Note        string
	TargetPrice *float64
	Source      watchlist.Source
}

// Add 新增一筆自選股；同股票重複新增視為更新備註與目標價。
func (u *UseCase) Add(ctx context.Context, input AddInput) (watchlist.Item, error) {
	if input.Source == "" {
		input.Source = watchlist.SourceManual
	}
	item := watchlist.Item{
		UserID:      input.UserID,
		Symbol:      input.Symbol,
		Note:        input.Note,
		TargetPrice: input.TargetPrice,
		Source:      input.Source,
		AddedAt:     u.now(),
	}
	if err := item.Validate(); err != nil {
		return watchlist.Item{}, err
	}
	if err := u.repo.Save(ctx, item); err != nil {
		return watchlist.Item{}, fmt.Errorf("save watchlist item: %w", err)
	}
	return item, nil
}

// Remove 自清單移除一檔股票。
func (u *UseCase) Remove(ctx context.Context, userID, symbol string) error {
	if userID == "" || symbol == "" {
		return fmt.Errorf("user id and symbol are required")
	}
	return u.repo.Delete(ctx, userID, symbol)
}

// Entry 為查詢輸出：自選股加上當日分析結果（可能缺）。
type Entry struct {
	Item     watchlist.Item
	Analysis *analysisDomain.DailyAnalysisResult
}

// List 取得使用者自選股，並盡力附上指定日期的分析結果。
func (u *UseCase) List(ctx context.Context, userID string, date time.Time) ([]Entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	items, err := u.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entry := Entry{Item: item}
		if u.analysis != nil && !date.IsZero() {
			if res, err := u.analysis.QueryDetail(ctx, analysis.QueryDetailInput{Symbol: item.Symbol, Date: date}); err == nil && res.Symbol != "" {
				entry.Analysis = &res
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ImportScanMatches 把一次掃描的命中結果批次加入自選股。
// 回傳實際新增的檔數。
func (u *UseCase) ImportScanMatches(ctx context.Context, userID string, result scan.Result) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user id is required")
	}

	existing, err := u.repo.List(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list watchlist: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[item.Symbol] = true
	}

	added := 0
	for _, m := range result.Matches {
		if seen[m.Symbol] {
			continue
		}
		item := watchlist.Item{
			UserID:  userID,
			Symbol:  m.Symbol,
			Note:    m.Decision.Reason,
			Source:  watchlist.SourceScan,
			AddedAt: u.now(),
		}
		if err := item.Validate(); err != nil {
			continue
		}
		if err := u.repo.Save(ctx, item); err != nil {
			return added, fmt.Errorf("save %s: %w", m.Symbol, err)
		}
		seen[m.Symbol] = true
		added++
	}
	return added, nil
}
