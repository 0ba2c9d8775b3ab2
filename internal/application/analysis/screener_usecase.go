package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	domain "stock-radar/internal/domain/analysis"
	"stock-radar/internal/domain/dataingestion"
)

// ScreenerUseCase 提供依條件組合的選股篩選。
type ScreenerUseCase struct {
	repo AnalysisQueryRepository
}

func NewScreenerUseCase(repo AnalysisQueryRepository) *ScreenerUseCase {
	return &ScreenerUseCase{repo: repo}
}

type ScreenerInput struct {
	Date       time.Time
	Logic      BoolLogic
	Conditions []Condition
	Sort       SortOption
	Pagination Pagination
}

type ScreenerOutput struct {
	Results []domain.DailyAnalysisResult
	Total   int
	HasMore bool
}

// PresetTemplate 提供預設的選股組合，便於前端或排程使用。
type PresetTemplate struct {
	ID          string
	Name        string
	Description string
	Input       ScreenerInput
}

// PresetTemplates 回傳內建模板集合。
func PresetTemplates(date time.Time) []PresetTemplate {
	return []PresetTemplate{
		{
			ID:          "buy_signals",
			Name:        "今日買點",
			Description: "策略引擎給出買進訊號的個股，依信心分數排序",
			Input: ScreenerInput{
				Date:  date,
				Logic: LogicAND,
				Conditions: []Condition{
					categoryCond("signal", "buy"),
				},
				Sort: SortOption{Field: SortConfidence, Desc: true},
			},
		},
		{
			ID:          "watch_candidates",
			Name:        "觀察名單",
			Description: "進入觀察名單（含買點）的個股",
			Input: ScreenerInput{
				Date:  date,
				Logic: LogicAND,
				Conditions: []Condition{
					categoryCond("signal", "watch", "buy"),
				},
				Sort: SortOption{Field: SortCompositeScore, Desc: true},
			},
		},
		{
			ID:          "high_composite",
			Name:        "高綜合評分",
			Description: "綜合評分 70 分以上且非空頭",
			Input: ScreenerInput{
				Date:  date,
				Logic: LogicAND,
				Conditions: []Condition{
					numericCond(FieldCompositeScore, OpGTE, 70),
					categoryCond("regime", "BULL", "NEUTRAL"),
				},
				Sort: SortOption{Field: SortCompositeScore, Desc: true},
			},
		},
		{
			ID:          "chip_inflow",
			Name:        "法人買超",
			Description: "法人淨買超百張以上或剛出現賣轉買",
			Input: ScreenerInput{
				Date:  date,
				Logic: LogicOR,
				Conditions: []Condition{
					numericCond(FieldChipNetBuy, OpGTE, 100),
					{Type: ConditionTags, Tags: &TagsCondition{Include: []string{string(domain.TagChipSwitch)}}},
				},
				Sort: SortOption{Field: SortChipNetBuy, Desc: true},
			},
		},
		{
			ID:          "golden_cross",
			Name:        "均線黃金交叉",
			Description: "MA5 向上穿越 MA10 且收盤站上 MA5",
			Input: ScreenerInput{
				Date:  date,
				Logic: LogicAND,
				Conditions: []Condition{
					{Type: ConditionTags, Tags: &TagsCondition{Include: []string{string(domain.TagMACrossover)}}},
				},
				Sort: SortOption{Field: SortCompositeScore, Desc: true},
			},
		},
	}
}

// PresetByID 依 ID 取得內建模板。
func PresetByID(id string, date time.Time) (PresetTemplate, bool) {
	for _, p := range PresetTemplates(date) {
		if p.ID == id {
			return p, true
		}
	}
	return PresetTemplate{}, false
}

// Run 執行選股，依條件組合過濾當日分析結果。
func (u *ScreenerUseCase) Run(ctx context.Context, input ScreenerInput) (ScreenerOutput, error) {
	var out ScreenerOutput

	if input.Date.IsZero() {
		return out, fmt.Errorf("date is required")
	}
	if len(input.Conditions) == 0 {
		return out, fmt.Errorf("at least one condition is required")
	}
	if input.Logic == "" {
		input.Logic = LogicAND
	}

	filter := QueryFilter{OnlySuccess: true}
	// AND 組合時可把部分條件下推到儲存層縮小掃描範圍；
	// OR 組合不可下推，否則會漏掉只滿足其他條件的列。
	if input.Logic == LogicAND {
		pushDownConditions(input.Conditions, &filter)
	}

	baseResults, _, err := u.repo.FindByDate(ctx, input.Date, filter, input.Sort, Pagination{Limit: maxLimit})
	if err != nil {
		return out, err
	}

	filtered := make([]domain.DailyAnalysisResult, 0, len(baseResults))
	for _, r := range baseResults {
		if MatchConditions(r, input.Conditions, input.Logic) {
			filtered = append(filtered, r)
		}
	}

	applySort(filtered, input.Sort)

	offset := input.Pagination.Offset
	limit := input.Pagination.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(filtered) {
		offset = len(filtered)
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	out.Total = len(filtered)
	out.HasMore = end < len(filtered)
	out.Results = filtered[offset:end]
	return out, nil
}

func pushDownConditions(conditions []Condition, filter *QueryFilter) {
	for _, c := range conditions {
		switch c.Type {
		case ConditionCategory:
			if c.Category == nil {
				continue
			}
			switch c.Category.Field {
			case "market":
				for _, v := range c.Category.Values {
					filter.Markets = append(filter.Markets, dataingestion.Market(v))
				}
			case "industry":
				filter.Industries = append(filter.Industries, c.Category.Values...)
			case "regime":
				filter.Regimes = append(filter.Regimes, c.Category.Values...)
			case "mode":
				filter.Modes = append(filter.Modes, c.Category.Values...)
			case "signal":
				filter.Signals = append(filter.Signals, c.Category.Values...)
			}
		case ConditionNumeric:
			if c.Numeric == nil {
				continue
			}
			switch c.Numeric.Field {
			case FieldCompositeScore:
				if c.Numeric.Op == OpGTE {
					v := c.Numeric.Value
					filter.CompositeScoreMin = &v
				} else if c.Numeric.Op == OpLTE {
					v := c.Numeric.Value
					filter.CompositeScoreMax = &v
				}
			case FieldChipNetBuy:
				if c.Numeric.Op == OpGTE {
					v := c.Numeric.Value
					filter.ChipNetBuyMin = &v
				}
			}
		case ConditionTags:
			if c.Tags == nil {
				continue
			}
			for _, tag := range c.Tags.Include {
				filter.TagsAny = append(filter.TagsAny, domain.Tag(tag))
			}
		case ConditionSymbols:
			if c.Symbols != nil {
				filter.Symbols = append(filter.Symbols, c.Symbols.Include...)
			}
		}
	}
}

func applySort(results []domain.DailyAnalysisResult, sortOpt SortOption) {
	if sortOpt.Field == "" {
		return
	}
	value := func(r domain.DailyAnalysisResult) float64 {
		switch sortOpt.Field {
		case SortCompositeScore:
			return r.CompositeScore
		case SortConfidence:
			return float64(r.Decision.Confidence)
		case SortChangeRate:
			return r.ChangeRate
		case SortChipNetBuy:
			return deref(r.ChipNetBuy)
		}
		return 0
	}
	sort.SliceStable(results, func(i, j int) bool {
		vi, vj := value(results[i]), value(results[j])
		if sortOpt.Desc {
			return vi > vj
		}
		return vi < vj
	})
}

func deref(ptr *float64) float64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}

func numericCond(field FieldName, op Op, value float64) Condition {
	return Condition{
		Type:    ConditionNumeric,
		Numeric: &NumericCondition{Field: field, Op: op, Value: value},
	}
}

func categoryCond(field string, values ...string) Condition {
	return Condition{
		Type:     ConditionCategory,
		Category: &CategoryCondition{Field: field, Values: values},
	}
}
