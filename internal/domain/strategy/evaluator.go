package strategy

import (
	"log"
	"math"
	"strings"

	"stock-radar/internal/domain/indicator"
)

// EvalResult 為 Layer 3 個股評估的輸出。
type EvalResult struct {
	Watch      bool
	Buy        bool
	Confidence int
	Reason     string
}

const (
	// 高檔乖離上限：close/MA60 超過 1.25 時，本次評估的 Buy 永久關閉。
	maxMA60Extension = 1.25
	// 回測均線的容許乖離。
	pullbackBand = 0.02
	// 突破觸發的量能門檻與量縮門檻（相對 20 日均量）。
	breakoutVolMultiple = 1.5
	shrinkVolMultiple   = 0.8

	reasonEvalInsufficient  = "資料不足，無法評估"
	reasonEvalNoLiquidity   = "流動性不足（Vol_MA20 為 0 或過低）"
	reasonEvalBear          = "市場狀態：BEAR，多頭方向關閉"
	reasonEvalNoStructure   = "不符合 Mode A 或 Mode B 的結構條件"
	reasonWatchTrendHot     = "Mode B 趨勢股，但高檔整理中（等待回測或放量突破）"
	reasonWatchTrend        = "Mode B 趨勢股，結構完整，等待進場觸發"
	reasonWatchPullback     = "Mode A 回檔型，結構完整，等待止跌訊號"
	reasonBuyBreakout       = "Mode B 突破觸發：收盤價創近10日新高且量能放大 ≥ 1.5×20日均量"
	reasonBuyPullbackHold   = "Mode B 回測觸發：回測 MA20/MA10 不破，量縮，出現止跌訊號"
	reasonBuyReversal       = "Mode A 止跌觸發：價格 ≥ 前10日低點，出現止跌訊號，未破 MA60"
	reasonOverextendedWatch = "（高檔乖離 > 25%，僅可觀察，不可買進）"
	reasonEvalNoMatch       = "不符合任何條件"

	reasonDelimiter = "；"
)

// EvaluateStock 根據選定的 Mode 評估單一股票的 Watch/Buy 狀態。
// Watch 是 Buy 的必要前置狀態：結構成立（Watch）與事件觸發（Buy）嚴格分離。
func EvaluateStock(s indicator.Series, regime Regime, mode Mode) EvalResult {
	if len(s) < indicator.MinRows {
		return EvalResult{Reason: reasonEvalInsufficient}
	}

	curr := s[len(s)-1]
	prev := s[len(s)-2]
	close := curr.Close

	// 基本過濾：流動性
	if curr.VolMA20 == nil || *curr.VolMA20 <= 0 {
		return EvalResult{Reason: reasonEvalNoLiquidity}
	}
	volMA20 := *curr.VolMA20
	vol := float64(curr.Volume)

	// 高檔乖離（用於 Buy 保護）
	extensionRatio := 1.0
	if curr.MA60 != nil && *curr.MA60 > 0 {
		extensionRatio = close / *curr.MA60
	}
	overextended := extensionRatio > maxMA60Extension

	if regime == RegimeBear {
		return EvalResult{Reason: reasonEvalBear}
	}
	if mode == ModeNoTrade {
		return EvalResult{Reason: reasonEvalNoStructure}
	}

	watch := false
	buy := false
	var watchReasons, buyReasons []string

	// ===== Watch 判定：結構成立，但尚未出現低風險進場點 =====
	if regime == RegimeBull {
		switch mode {
		case ModeTrend:
			aboveMA20 := curr.MA20 != nil && close > *curr.MA20
			aboveMA60 := curr.MA60 != nil && close >= *curr.MA60
			ma20AboveMA60 := curr.MA20 != nil && curr.MA60 != nil && *curr.MA20 >= *curr.MA60
			slopeUp := curr.MA60Slope5 != nil && *curr.MA60Slope5 > 0

			if aboveMA20 && aboveMA60 && ma20AboveMA60 && slopeUp {
				watch = true
				if overextended {
					watchReasons = append(watchReasons, reasonWatchTrendHot)
				} else {
					watchReasons = append(watchReasons, reasonWatchTrend)
				}
			}

		case ModePullback:
			aboveMA60 := curr.MA60 != nil && close >= *curr.MA60
			noNewLow := true
			if prevLow, ok := s.PrevLowestClose(10); ok {
				noNewLow = close >= prevLow
			}

			if aboveMA60 && noNewLow {
				watch = true
				watchReasons = append(watchReasons, reasonWatchPullback)
			}
		}
	}

	// ===== Buy 判定：嚴格的事件觸發，只在 Watch 成立且無高檔乖離時評估 =====
	if watch && !overextended {
		switch mode {
		case ModeTrend:
			// 突破型觸發：創前 10 日新高（不含今日）且量能放大
			breakout := false
			if prevHigh, ok := s.PrevHighestHigh(10); ok {
				breakout = close > prevHigh && vol >= volMA20*breakoutVolMultiple
			}

			// 回測型觸發：回測 MA20/MA10 不破、量縮、紅K 或長下影線
			nearMA20 := curr.MA20 != nil && *curr.MA20 > 0 && math.Abs(close-*curr.MA20)/(*curr.MA20) <= pullbackBand
			nearMA10 := curr.MA10 != nil && *curr.MA10 > 0 && math.Abs(close-*curr.MA10)/(*curr.MA10) <= pullbackBand
			volumeShrink := vol < volMA20*shrinkVolMultiple
			bullishCandle := close > curr.Open
			longLowerShadow := curr.High > curr.Low && (close-curr.Low)/(curr.High-curr.Low) > 0.5

			pullbackHold := (nearMA20 || nearMA10) && volumeShrink && (bullishCandle || longLowerShadow)

			if breakout {
				buy = true
				buyReasons = append(buyReasons, reasonBuyBreakout)
			} else if pullbackHold {
				buy = true
				buyReasons = append(buyReasons, reasonBuyPullbackHold)
			}

		case ModePullback:
			aboveRecentLow := true
			if prevLow, ok := s.PrevLowestClose(10); ok {
				aboveRecentLow = close >= prevLow
			}

			bullishCandle := close > curr.Open
			volumeShrink := vol < volMA20*shrinkVolMultiple
			kdReversal := curr.K != nil && curr.D != nil && prev.K != nil && prev.D != nil &&
				*curr.K > *curr.D && *prev.K <= *prev.D
			rsiRebound := curr.RSI != nil && *curr.RSI > 40 && *curr.RSI < 60

			hasReversal := bullishCandle || volumeShrink || kdReversal || rsiRebound
			aboveMA60 := curr.MA60 != nil && close >= *curr.MA60

			if aboveRecentLow && hasReversal && aboveMA60 {
				buy = true
				buyReasons = append(buyReasons, reasonBuyReversal)
			}
		}
	}

	// 高檔乖離保護：補充 Watch 理由
	if overextended && watch {
		watchReasons = append(watchReasons, reasonOverextendedWatch)
	}

	// 強制邏輯約束：絕不允許 Buy=true 而 Watch=false。
	// 依結構應不可達，僅作為安全網。
	if buy && !watch {
		log.Printf("[Strategy] 邏輯錯誤偵測: Buy=true 但 Watch=false，已強制修正 (rows=%d)", len(s))
		buy = false
		buyReasons = nil
	}

	confidence := 0
	if watch {
		confidence += 40
	}
	if buy {
		confidence += 40
	}
	switch regime {
	case RegimeBull:
		confidence += 20
	case RegimeNeutral:
		confidence += 10
	}
	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}

	var parts []string
	if watch {
		parts = append(parts, watchReasons...)
	}
	if buy {
		parts = append(parts, buyReasons...)
	}
	reason := reasonEvalNoMatch
	if len(parts) > 0 {
		reason = strings.Join(parts, reasonDelimiter)
	}

	return EvalResult{Watch: watch, Buy: buy, Confidence: confidence, Reason: reason}
}
