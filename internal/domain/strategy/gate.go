package strategy

import (
	"stock-radar/internal/domain/indicator"
)

// GateResult 為 Layer 1 市場開關的輸出。
type GateResult struct {
	AllowLong bool
	Regime    Regime
	Reason    string
}

const (
	reasonGateUnknown = "資料不足，無法判斷市場狀態"
	reasonGateBull    = "多頭市場：指數 > MA60，MA20 > MA60，MA60 上揚"
	reasonGateNeutral = "盤整市場：指數在 MA60 上方，但趨勢不明"
	reasonGateBear    = "空頭市場：指數跌破 MA60，多頭方向關閉"
)

// MarketRegimeGate 只回答一個問題：「現在能不能做多？」。
// 僅讀取最後一列的收盤、MA20/MA60 與 MA60 的 5 日平均斜率；
// 任何尚未定義的欄位一律視為條件不成立。
func MarketRegimeGate(s indicator.Series) GateResult {
	if len(s) < indicator.MinRows {
		return GateResult{AllowLong: false, Regime: RegimeUnknown, Reason: reasonGateUnknown}
	}

	curr := s[len(s)-1]
	close := curr.Close

	aboveMA60 := curr.MA60 != nil && close >= *curr.MA60
	ma20AboveMA60 := curr.MA20 != nil && curr.MA60 != nil && *curr.MA20 >= *curr.MA60
	slopeUp := curr.MA60Slope5 != nil && *curr.MA60Slope5 > 0

	switch {
	case aboveMA60 && ma20AboveMA60 && slopeUp:
		return GateResult{AllowLong: true, Regime: RegimeBull, Reason: reasonGateBull}
	case aboveMA60:
		// 盤整市場仍允許做多，但後續策略模式會受限。
		return GateResult{AllowLong: true, Regime: RegimeNeutral, Reason: reasonGateNeutral}
	default:
		return GateResult{AllowLong: false, Regime: RegimeBear, Reason: reasonGateBear}
	}
}
