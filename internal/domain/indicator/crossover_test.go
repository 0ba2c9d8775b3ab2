package indicator

import "testing"

func fptr(v float64) *float64 { return &v }

func crossoverSeries(prevMA5, prevMA10, currMA5, currMA10, close float64) Series {
	s := Series{
		{MA5: fptr(prevMA5), MA10: fptr(prevMA10)},
		{MA5: fptr(currMA5), MA10: fptr(currMA10)},
	}
	s[1].Close = close
	return s
}

func TestMA5BreakoutMA10Match(t *testing.T) {
	// 昨日 MA5=9.8 ≤ MA10=10.0，今日 MA5=10.2 > MA10=10.1，收盤 10.3 > MA5。
	s := crossoverSeries(9.8, 10.0, 10.2, 10.1, 10.3)
	if !MA5BreakoutMA10(s) {
		t.Fatalf("expected crossover match")
	}
}

func TestMA5BreakoutMA10NoCross(t *testing.T) {
	// 昨日 MA5 已在 MA10 之上：非穿越。
	s := crossoverSeries(10.2, 10.0, 10.3, 10.1, 10.5)
	if MA5BreakoutMA10(s) {
		t.Fatalf("already above is not a crossover")
	}
}

func TestMA5BreakoutMA10PriceBelowMA5(t *testing.T) {
	s := crossoverSeries(9.8, 10.0, 10.2, 10.1, 10.1)
	if MA5BreakoutMA10(s) {
		t.Fatalf("close below MA5 must not match")
	}
}

func TestMA5BreakoutMA10FailsClosedOnUndefined(t *testing.T) {
	s := crossoverSeries(9.8, 10.0, 10.2, 10.1, 10.3)
	s[0].MA10 = nil
	if MA5BreakoutMA10(s) {
		t.Fatalf("undefined input must fail closed")
	}

	single := Series{{MA5: fptr(9), MA10: fptr(8)}}
	single[0].Close = 10
	if MA5BreakoutMA10(single) {
		t.Fatalf("single row must fail closed")
	}
	if MA5BreakoutMA10(nil) {
		t.Fatalf("empty series must fail closed")
	}
}
