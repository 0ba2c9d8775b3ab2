package indicator

// MA5BreakoutMA10 檢查最近兩列是否滿足短均線突破條件：
//  1. 當日收盤價站上 MA5；
//  2. MA5 由下往上穿越 MA10（前一日 MA5 ≤ MA10，當日 MA5 > MA10）。
//
// 任一所需欄位尚未定義（歷史不足）即視為不符合，不做任何推測。
func MA5BreakoutMA10(s Series) bool {
	curr, ok := s.Last()
	if !ok {
		return false
	}
	prev, ok := s.Prev()
	if !ok {
		return false
	}

	if curr.MA5 == nil || prev.MA5 == nil || curr.MA10 == nil || prev.MA10 == nil {
		return false
	}

	priceAboveMA5 := curr.Close > *curr.MA5
	crossUp := *prev.MA5 <= *prev.MA10 && *curr.MA5 > *curr.MA10
	return priceAboveMA5 && crossUp
}
