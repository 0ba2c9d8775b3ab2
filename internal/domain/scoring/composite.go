package scoring

import (
	"stock-radar/internal/domain/indicator"
)

// Fundamentals 為估值面輸入；欄位缺值（來源未提供）以 nil 表示，對應檢查不給分。
type Fundamentals struct {
	PE             *float64
	PEG            *float64
	EPS            *float64
	EarningsGrowth *float64 // 年增率，0.1 = 10%
	RevenueGrowth  *float64
}

// Result 為綜合評分輸出：0~100 分與命中的理由標籤。
type Result struct {
	Score   float64
	Reasons []string
}

// maxWeight 為十項檢查的滿分權重。
const maxWeight = 10.0

// compositeCheck 為單項檢查：回傳得分（0~1）與命中時的標籤（空字串表示不留標籤）。
type compositeCheck struct {
	name string
	eval func(f Fundamentals, curr, prev indicator.EnrichedBar) (float64, string)
}

// compositeChecks 依估值 → 趨勢 → 動能 → 價量的固定順序評估。
var compositeChecks = []compositeCheck{
	{"pe", func(f Fundamentals, _, _ indicator.EnrichedBar) (float64, string) {
		if f.PE != nil && *f.PE < 25 {
			return 1, "PE<25"
		}
		return 0, ""
	}},
	{"peg", func(f Fundamentals, _, _ indicator.EnrichedBar) (float64, string) {
		if f.PEG != nil && *f.PEG <= 1.2 {
			return 1, "PEG優"
		}
		return 0, ""
	}},
	{"eps_growth", func(f Fundamentals, _, _ indicator.EnrichedBar) (float64, string) {
		if f.EarningsGrowth != nil && *f.EarningsGrowth > 0.1 {
			return 1, "EPS成長>10%"
		}
		// EPS 為正但成長不明：給半分、不留標籤。
		if f.EPS != nil && *f.EPS > 0 {
			return 0.5, ""
		}
		return 0, ""
	}},
	{"revenue_growth", func(f Fundamentals, _, _ indicator.EnrichedBar) (float64, string) {
		if f.RevenueGrowth != nil && *f.RevenueGrowth > 0.1 {
			return 1, "營收雙位數成長"
		}
		return 0, ""
	}},
	{"ma_alignment", func(_ Fundamentals, curr, _ indicator.EnrichedBar) (float64, string) {
		if curr.MA20 != nil && curr.MA60 != nil && *curr.MA20 >= *curr.MA60 {
			return 1, "均線多頭"
		}
		return 0, ""
	}},
	{"above_ma60", func(_ Fundamentals, curr, _ indicator.EnrichedBar) (float64, string) {
		if curr.MA60 != nil && curr.Close >= *curr.MA60 {
			return 1, "站上季線"
		}
		return 0, ""
	}},
	{"ma60_rising", func(_ Fundamentals, curr, _ indicator.EnrichedBar) (float64, string) {
		if curr.MA60Rising {
			return 1, "季線上彎"
		}
		return 0, ""
	}},
	{"rsi_cross_40", func(_ Fundamentals, curr, prev indicator.EnrichedBar) (float64, string) {
		if curr.RSI != nil && prev.RSI != nil && *prev.RSI < 40 && *curr.RSI >= 40 {
			return 1, "RSI翻揚"
		}
		return 0, ""
	}},
	{"macd_turning_up", func(_ Fundamentals, curr, prev indicator.EnrichedBar) (float64, string) {
		if curr.MACDHist != nil && prev.MACDHist != nil && *curr.MACDHist > 0 && *curr.MACDHist > *prev.MACDHist {
			return 1, "MACD轉強"
		}
		return 0, ""
	}},
	{"break_high_60", func(_ Fundamentals, curr, _ indicator.EnrichedBar) (float64, string) {
		if curr.High60 != nil && curr.Close > *curr.High60 {
			return 1, "突破前高"
		}
		return 0, ""
	}},
	{"volume_surge", func(_ Fundamentals, curr, _ indicator.EnrichedBar) (float64, string) {
		if curr.VolMA20 != nil && *curr.VolMA20 > 0 && float64(curr.Volume) >= *curr.VolMA20*1.3 {
			return 1, "爆量"
		}
		return 0, ""
	}},
}

// Score 對最新一列計算 10 權重綜合評分，正規化為 0~100。
// 與策略引擎完全獨立：不讀取任何決策結果。
func Score(f Fundamentals, s indicator.Series) Result {
	curr, ok := s.Last()
	if !ok {
		return Result{}
	}
	prev, ok := s.Prev()
	if !ok {
		return Result{}
	}

	var total float64
	var reasons []string
	for _, c := range compositeChecks {
		credit, tag := c.eval(f, curr, prev)
		total += credit
		if tag != "" {
			reasons = append(reasons, tag)
		}
	}

	return Result{
		Score:   total / maxWeight * 100,
		Reasons: reasons,
	}
}
