package indicator

import (
	"stock-radar/internal/domain/dataingestion"
)

// EnrichedBar 為單一交易日的日 K 加上衍生技術欄位。
// 所有滾動/EMA 欄位在歷史不足時為 nil（視為「資料不足」，絕不當成 0）。
type EnrichedBar struct {
	dataingestion.DailyPrice

	// 均線
	MA5  *float64
	MA10 *float64
	MA20 *float64
	MA60 *float64

	// MA60 斜率：單日差分、近 5 日差分平均、以及近 3 日差分皆為正的上彎旗標。
	MA60Slope  *float64
	MA60Slope5 *float64
	MA60Rising bool

	// 短線多頭啟動訊號
	BreakPriceMA5 bool // 收盤價由下往上突破 MA5
	MA5BreakMA10  bool // MA5 由下往上突破 MA10
	MA5Up         bool // MA5 較前一日上揚

	// 成交量
	VolMA5  *float64
	VolMA20 *float64
	VolMA60 *float64
	VolUp   bool // 當日量 > 5 日均量

	// 關鍵位置（含當日的 60 日滾動高低點）
	High60 *float64
	Low60  *float64

	// 動能指標
	RSI *float64

	// MACD 三元組。DIF/DEA 為台股慣用命名，MACD/MACDSignal 為等價別名。
	DIF      *float64
	DEA      *float64
	MACDHist *float64

	// KDJ(9,3,3)
	K *float64
	D *float64
	J *float64
}

// MACD 為 DIF 的向後相容別名，兩者恆等。
func (b EnrichedBar) MACD() *float64 { return b.DIF }

// MACDSignal 為 DEA 的向後相容別名，兩者恆等。
func (b EnrichedBar) MACDSignal() *float64 { return b.DEA }

// Series 為依日期遞增排序的技術序列。
type Series []EnrichedBar

// Last 回傳最後一列；序列為空時回傳 false。
func (s Series) Last() (EnrichedBar, bool) {
	if len(s) == 0 {
		return EnrichedBar{}, false
	}
	return s[len(s)-1], true
}

// Prev 回傳倒數第二列；不足兩列時回傳 false。
func (s Series) Prev() (EnrichedBar, bool) {
	if len(s) < 2 {
		return EnrichedBar{}, false
	}
	return s[len(s)-2], true
}

// prevWindow 回傳「昨天以前」連續 n 日的索引範圍 [from, to)，嚴格排除最後一列。
// 資料不足 n+1 列時回傳 ok=false（空視窗）。
func (s Series) prevWindow(n int) (from, to int, ok bool) {
	if n <= 0 || len(s) < n+1 {
		return 0, 0, false
	}
	return len(s) - n - 1, len(s) - 1, true
}

// PrevLowestLow 回傳不含當日的前 n 日最低 Low。
func (s Series) PrevLowestLow(n int) (float64, bool) {
	from, to, ok := s.prevWindow(n)
	if !ok {
		return 0, false
	}
	lowest := s[from].Low
	for i := from + 1; i < to; i++ {
		if s[i].Low < lowest {
			lowest = s[i].Low
		}
	}
	return lowest, true
}

// PrevHighestHigh 回傳不含當日的前 n 日最高 High。
func (s Series) PrevHighestHigh(n int) (float64, bool) {
	from, to, ok := s.prevWindow(n)
	if !ok {
		return 0, false
	}
	highest := s[from].High
	for i := from + 1; i < to; i++ {
		if s[i].High > highest {
			highest = s[i].High
		}
	}
	return highest, true
}

// PrevLowestClose 回傳不含當日的前 n 日最低收盤價。
func (s Series) PrevLowestClose(n int) (float64, bool) {
	from, to, ok := s.prevWindow(n)
	if !ok {
		return 0, false
	}
	lowest := s[from].Close
	for i := from + 1; i < to; i++ {
		if s[i].Close < lowest {
			lowest = s[i].Close
		}
	}
	return lowest, true
}
