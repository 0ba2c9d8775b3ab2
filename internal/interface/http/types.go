package httpapi

import (
	analysisDomain "stock-radar/internal/domain/analysis"

	"github.com/gin-gonic/gin"
)

// resultView 攤平單筆分析結果供前端使用，並附上舊版相容欄位。
func resultView(r analysisDomain.DailyAnalysisResult) gin.H {
	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, string(t))
	}
	return gin.H{
		"symbol":      r.Symbol,
		"market":      string(r.Market),
		"industry":    r.Industry,
		"trade_date":  r.TradeDate.Format(dateLayout),
		"version":     r.Version,
		"close":       r.Close,
		"change":      r.Change,
		"change_rate": r.ChangeRate,
		"volume":      r.Volume,
		"indicators": gin.H{
			"ma5":       r.MA5,
			"ma10":      r.MA10,
			"ma20":      r.MA20,
			"ma60":      r.MA60,
			"vol_ma20":  r.VolMA20,
			"high60":    r.High60,
			"low60":     r.Low60,
			"rsi":       r.RSI,
			"kd_k":      r.K,
			"kd_d":      r.D,
			"macd_hist": r.MACDHist,
		},
		"regime":            string(r.Decision.Regime),
		"mode":              string(r.Decision.Mode),
		"mode_legacy":       r.Decision.Mode.Legacy(),
		"watch":             r.Decision.Watch,
		"buy":               r.Decision.Buy,
		"signal":            r.Decision.Signal(),
		"confidence":        r.Decision.Confidence,
		"reason":            r.Decision.Reason,
		"composite_score":   r.CompositeScore,
		"composite_reasons": r.CompositeReasons,
		"chip_net_buy":      r.ChipNetBuy,
		"chip_switch":       r.ChipSwitch,
		"tags":              tags,
		"success":           r.Success,
		"error_reason":      r.ErrorReason,
	}
}

func resultViews(results []analysisDomain.DailyAnalysisResult) []gin.H {
	out := make([]gin.H, 0, len(results))
	for _, r := range results {
		out = append(out, resultView(r))
	}
	return out
}
