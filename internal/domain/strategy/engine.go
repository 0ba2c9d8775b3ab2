package strategy

import (
	"stock-radar/internal/domain/indicator"
)

const reasonEngineInsufficient = "資料不足，無法判斷"

// Run 串接三層式策略架構，對單一技術序列產出一筆決策紀錄：
//
//	Layer 1 市場開關（Gate）→ Layer 2 策略模式選擇 → Layer 3 個股評估。
//
// Gate 關閉做多或 Mode 為 NoTrade 時立即短路，回傳全 false、信心 0 的紀錄。
func Run(s indicator.Series) Decision {
	if len(s) < indicator.MinRows {
		return Decision{
			Regime: RegimeUnknown,
			Mode:   ModeNoTrade,
			Reason: reasonEngineInsufficient,
		}
	}

	gate := MarketRegimeGate(s)
	if !gate.AllowLong {
		return Decision{
			Regime: gate.Regime,
			Mode:   ModeNoTrade,
			Reason: gate.Reason,
		}
	}

	modeResult := SelectMode(s, gate.Regime)
	if modeResult.Mode == ModeNoTrade {
		return Decision{
			Regime: gate.Regime,
			Mode:   ModeNoTrade,
			Reason: modeResult.Reason,
		}
	}

	eval := EvaluateStock(s, gate.Regime, modeResult.Mode)
	return Decision{
		Regime:     gate.Regime,
		Mode:       modeResult.Mode,
		Watch:      eval.Watch,
		Buy:        eval.Buy,
		Confidence: eval.Confidence,
		Reason:     eval.Reason,
	}
}
