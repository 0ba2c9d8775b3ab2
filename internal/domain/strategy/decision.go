package strategy

// Regime 為市場多空狀態（Layer 1 輸出）。
type Regime string

const (
	RegimeBull    Regime = "BULL"
	RegimeNeutral Regime = "NEUTRAL"
	RegimeBear    Regime = "BEAR"
	RegimeUnknown Regime = "UNKNOWN"
)

// Mode 為個股結構分類（Layer 2 輸出）。
type Mode string

const (
	ModeTrend    Mode = "Trend"    // Mode B（趨勢型）
	ModePullback Mode = "Pullback" // Mode A（回檔型）
	ModeNoTrade  Mode = "NoTrade"
)

// Legacy 回傳舊版儀表板使用的 A/B 顯示名稱。
func (m Mode) Legacy() string {
	switch m {
	case ModeTrend:
		return "B"
	case ModePullback:
		return "A"
	default:
		return string(ModeNoTrade)
	}
}

// Decision 為策略引擎的單一輸出紀錄。
// 不變量：Buy ⇒ Watch；Mode=NoTrade ⇒ !Watch ∧ !Buy；Regime=BEAR ⇒ !Watch ∧ !Buy。
type Decision struct {
	Regime     Regime
	Mode       Mode
	Watch      bool
	Buy        bool
	Confidence int // 0~100
	Reason     string
}

// Signal 導出舊版相容的訊號字串，僅供顯示層使用。
func (d Decision) Signal() string {
	switch {
	case d.Buy:
		return "buy"
	case d.Watch:
		return "watch"
	default:
		return "none"
	}
}

// Valid 檢查決策紀錄是否滿足結構不變量。
func (d Decision) Valid() bool {
	if d.Buy && !d.Watch {
		return false
	}
	if d.Mode == ModeNoTrade && (d.Watch || d.Buy) {
		return false
	}
	if d.Regime == RegimeBear && (d.Watch || d.Buy) {
		return false
	}
	if d.Confidence < 0 || d.Confidence > 100 {
		return false
	}
	return true
}
