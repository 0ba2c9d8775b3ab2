package indicator

import (
	"errors"

	cinar "github.com/cinar/indicator"

	"stock-radar/internal/domain/dataingestion"
)

// ErrInsufficientData 表示輸入序列不足以計算指標（少於 MinRows 列）。
var ErrInsufficientData = errors.New("insufficient data: need at least 30 rows")

// MinRows 為指標管線可運作的最小資料列數。
const MinRows = 30

// epsilon 墊在 RSI 與 KDJ 的分母，避免除以零（以加法取代分支判斷）。
const epsilon = 1e-10

const (
	rsiWindow     = 14
	kdjWindow     = 9
	macdSlowSpan  = 26
	macdTotalSpan = 34 // 慢線 26 + 訊號 9 - 1
)

// Enrich 將原始日 K 序列轉換為技術序列。純函數：不修改輸入、無副作用，
// 相同輸入必得到相同輸出。各欄位依固定順序計算：均線/斜率 → 量能 → 震盪指標 → 訊號旗標。
func Enrich(bars []dataingestion.DailyPrice) (Series, error) {
	if len(bars) < MinRows {
		return nil, ErrInsufficientData
	}

	n := len(bars)
	out := make(Series, n)
	for i, b := range bars {
		out[i] = EnrichedBar{DailyPrice: b}
	}

	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	// --- 均線 ---
	applyRolling(out, closes, 5, func(b *EnrichedBar, v float64) { b.MA5 = &v })
	applyRolling(out, closes, 10, func(b *EnrichedBar, v float64) { b.MA10 = &v })
	applyRolling(out, closes, 20, func(b *EnrichedBar, v float64) { b.MA20 = &v })
	applyRolling(out, closes, 60, func(b *EnrichedBar, v float64) { b.MA60 = &v })

	// MA60 單日差分、5 日平均斜率與上彎旗標
	for i := 1; i < n; i++ {
		if out[i].MA60 != nil && out[i-1].MA60 != nil {
			d := *out[i].MA60 - *out[i-1].MA60
			out[i].MA60Slope = &d
		}
	}
	// MA60Slope5 取近 5 日斜率中「已定義」者的平均，部分視窗也算：
	// 序列剛滿 60 根時只有一筆斜率，仍然要給值，不能等到湊滿 5 筆。
	for i := 0; i < n; i++ {
		sum, count := 0.0, 0
		for j := i - 4; j <= i; j++ {
			if j >= 0 && out[j].MA60Slope != nil {
				sum += *out[j].MA60Slope
				count++
			}
		}
		if count > 0 {
			mean := sum / float64(count)
			out[i].MA60Slope5 = &mean
		}

		rising := true
		for j := i - 2; j <= i; j++ {
			if j < 0 || out[j].MA60Slope == nil || *out[j].MA60Slope <= 0 {
				rising = false
				break
			}
		}
		out[i].MA60Rising = rising
	}

	// --- 成交量 ---
	applyRolling(out, volumes, 5, func(b *EnrichedBar, v float64) { b.VolMA5 = &v })
	applyRolling(out, volumes, 20, func(b *EnrichedBar, v float64) { b.VolMA20 = &v })
	applyRolling(out, volumes, 60, func(b *EnrichedBar, v float64) { b.VolMA60 = &v })
	for i := range out {
		out[i].VolUp = out[i].VolMA5 != nil && volumes[i] > *out[i].VolMA5
	}

	// --- 關鍵位置：含當日的 60 日滾動高低 ---
	for i := 59; i < n; i++ {
		high, low := bars[i].High, bars[i].Low
		for j := i - 59; j < i; j++ {
			if bars[j].High > high {
				high = bars[j].High
			}
			if bars[j].Low < low {
				low = bars[j].Low
			}
		}
		h, l := high, low
		out[i].High60 = &h
		out[i].Low60 = &l
	}

	// --- RSI(14)：漲跌幅滾動平均，分母加 epsilon ---
	for i := rsiWindow; i < n; i++ {
		var gain, loss float64
		for j := i - rsiWindow + 1; j <= i; j++ {
			delta := closes[j] - closes[j-1]
			if delta > 0 {
				gain += delta
			} else {
				loss -= delta
			}
		}
		gain /= rsiWindow
		loss /= rsiWindow
		rs := gain / (loss + epsilon)
		rsi := 100 - 100/(1+rs)
		out[i].RSI = &rsi
	}

	// --- MACD：EMA(12)−EMA(26)=DIF，DIF 的 EMA(9)=DEA，柱狀=DIF−DEA ---
	// 遞迴 EMA 交由 cinar/indicator；僅在視窗填滿後才視為已定義。
	macdLine, signalLine := cinar.Macd(closes)
	for i := macdSlowSpan - 1; i < n; i++ {
		dif := macdLine[i]
		out[i].DIF = &dif
		if i >= macdTotalSpan-1 {
			dea := signalLine[i]
			hist := dif - dea
			out[i].DEA = &dea
			out[i].MACDHist = &hist
		}
	}

	// --- KDJ(9,3,3)：RSV 以 1/3 平滑因子遞迴平滑 ---
	var prevK, prevD float64
	started := false
	for i := kdjWindow - 1; i < n; i++ {
		low9, high9 := bars[i].Low, bars[i].High
		for j := i - kdjWindow + 1; j < i; j++ {
			if bars[j].Low < low9 {
				low9 = bars[j].Low
			}
			if bars[j].High > high9 {
				high9 = bars[j].High
			}
		}
		rsv := (closes[i] - low9) / (high9 - low9 + epsilon) * 100

		var k, d float64
		if !started {
			k, d = rsv, rsv
			started = true
		} else {
			k = (prevK*2 + rsv) / 3
			d = (prevD*2 + k) / 3
		}
		prevK, prevD = k, d

		kv, dv := k, d
		jv := 3*k - 2*d
		out[i].K = &kv
		out[i].D = &dv
		out[i].J = &jv
	}

	// --- 短線突破旗標（讀取前面已算好的均線） ---
	for i := 1; i < n; i++ {
		curr, prev := &out[i], out[i-1]

		if curr.MA5 != nil && prev.MA5 != nil {
			curr.BreakPriceMA5 = prev.Close <= *prev.MA5 && curr.Close > *curr.MA5
			curr.MA5Up = *curr.MA5 > *prev.MA5
		}
		if curr.MA5 != nil && prev.MA5 != nil && curr.MA10 != nil && prev.MA10 != nil {
			curr.MA5BreakMA10 = *prev.MA5 <= *prev.MA10 && *curr.MA5 > *curr.MA10
		}
	}

	return out, nil
}

func applyRolling(out Series, values []float64, window int, set func(*EnrichedBar, float64)) {
	if len(values) < window {
		return
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			set(&out[i], sum/float64(window))
		}
	}
}
