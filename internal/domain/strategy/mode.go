package strategy

import (
	"math"

	"stock-radar/internal/domain/indicator"
)

// ModeResult 為 Layer 2 策略模式選擇的輸出。
type ModeResult struct {
	Mode   Mode
	Reason string
}

const (
	// 低檔盤整下緣：收盤價在 MA60 的 0.9 倍與 MA60 之間視為低檔盤整。
	lowConsolidationFloor = 0.9
	// 價格「接近」均線的容許乖離。
	nearMABand = 0.05

	reasonModeInsufficient = "資料不足"
	reasonModeBear         = "空頭市場，不進行交易"
	reasonModeTrend        = "Mode B（趨勢型）：價格站上 MA20/MA60，MA60 上彎，非低檔盤整"
	reasonModePullback     = "Mode A（回檔型）：價格接近 MA20/MA60，未破前低，MA60 未下彎"
	reasonModeNoMatch      = "不符合 Mode A 或 Mode B 的結構條件"
	reasonModeNeutralNote  = "（盤整市場）"
)

// SelectMode 只決定「用哪種邏輯找股票」，不決定買不買。
// 「前 N 日」統計一律排除當日，避免個股以當日走勢滿足自己的「未破前低」測試。
func SelectMode(s indicator.Series, regime Regime) ModeResult {
	if len(s) < indicator.MinRows {
		return ModeResult{Mode: ModeNoTrade, Reason: reasonModeInsufficient}
	}
	if regime == RegimeBear {
		return ModeResult{Mode: ModeNoTrade, Reason: reasonModeBear}
	}

	curr := s[len(s)-1]
	close := curr.Close

	// Mode B（趨勢型）：價格站上 MA20/MA60，MA60 明確上彎，非低檔盤整。
	aboveMA20 := curr.MA20 != nil && close > *curr.MA20
	aboveMA60 := curr.MA60 != nil && close >= *curr.MA60
	ma20AboveMA60 := curr.MA20 != nil && curr.MA60 != nil && *curr.MA20 >= *curr.MA60
	slopeUp := curr.MA60Slope5 != nil && *curr.MA60Slope5 > 0
	lowConsolidation := curr.MA60 != nil && close < *curr.MA60 && close > *curr.MA60*lowConsolidationFloor

	if aboveMA20 && aboveMA60 && ma20AboveMA60 && slopeUp && !lowConsolidation {
		return ModeResult{Mode: ModeTrend, Reason: reasonModeTrend}
	}

	// Mode A（回檔型）：價格接近 MA20/MA60，未破前低，MA60 方向不可下彎。
	nearMA20 := curr.MA20 != nil && *curr.MA20 > 0 && math.Abs(close-*curr.MA20)/(*curr.MA20) <= nearMABand
	nearMA60 := curr.MA60 != nil && *curr.MA60 > 0 && math.Abs(close-*curr.MA60)/(*curr.MA60) <= nearMABand

	noNewLow := true
	if prevLow, ok := s.PrevLowestLow(10); ok {
		noNewLow = close >= prevLow
	}
	slopeNotFalling := curr.MA60Slope5 != nil && *curr.MA60Slope5 >= 0

	if (nearMA20 || nearMA60) && noNewLow && slopeNotFalling {
		return ModeResult{Mode: ModePullback, Reason: reasonModePullback}
	}

	reason := reasonModeNoMatch
	if regime == RegimeNeutral {
		reason += reasonModeNeutralNote
	}
	return ModeResult{Mode: ModeNoTrade, Reason: reason}
}
