package indicator

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"stock-radar/internal/domain/dataingestion"
)

func buildBars(closes []float64) []dataingestion.DailyPrice {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]dataingestion.DailyPrice, len(closes))
	for i, c := range closes {
		bars[i] = dataingestion.DailyPrice{
			Symbol:    "2330",
			Market:    dataingestion.MarketTWSE,
			TradeDate: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func flatCloses(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEnrichInsufficientData(t *testing.T) {
	_, err := Enrich(buildBars(flatCloses(29, 100)))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}

	if _, err := Enrich(buildBars(flatCloses(30, 100))); err != nil {
		t.Fatalf("30 rows should be enough, got %v", err)
	}
}

func TestEnrichColumnDefinedness(t *testing.T) {
	series, err := Enrich(buildBars(flatCloses(70, 100)))
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	cases := []struct {
		name    string
		get     func(EnrichedBar) *float64
		firstAt int
	}{
		{"MA5", func(b EnrichedBar) *float64 { return b.MA5 }, 4},
		{"MA10", func(b EnrichedBar) *float64 { return b.MA10 }, 9},
		{"MA20", func(b EnrichedBar) *float64 { return b.MA20 }, 19},
		{"MA60", func(b EnrichedBar) *float64 { return b.MA60 }, 59},
		{"VolMA20", func(b EnrichedBar) *float64 { return b.VolMA20 }, 19},
		{"High60", func(b EnrichedBar) *float64 { return b.High60 }, 59},
		{"RSI", func(b EnrichedBar) *float64 { return b.RSI }, 14},
		{"K", func(b EnrichedBar) *float64 { return b.K }, 8},
		{"DIF", func(b EnrichedBar) *float64 { return b.DIF }, 25},
		{"DEA", func(b EnrichedBar) *float64 { return b.DEA }, 33},
	}

	for _, tc := range cases {
		if got := tc.get(series[tc.firstAt-1]); got != nil {
			t.Errorf("%s should be undefined at row %d, got %v", tc.name, tc.firstAt-1, *got)
		}
		if got := tc.get(series[tc.firstAt]); got == nil {
			t.Errorf("%s should be defined from row %d", tc.name, tc.firstAt)
		}
	}
}

func TestEnrichMovingAverages(t *testing.T) {
	closes := flatCloses(60, 100)
	// 最後 5 日收盤 102，MA5 應為 102，MA10 應為 101。
	for i := 55; i < 60; i++ {
		closes[i] = 102
	}
	series, err := Enrich(buildBars(closes))
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	last := series[len(series)-1]
	if last.MA5 == nil || math.Abs(*last.MA5-102) > 1e-9 {
		t.Fatalf("MA5 = %v, want 102", last.MA5)
	}
	if last.MA10 == nil || math.Abs(*last.MA10-101) > 1e-9 {
		t.Fatalf("MA10 = %v, want 101", last.MA10)
	}
}

func TestEnrichMA60SlopePartialWindow(t *testing.T) {
	// 收盤價增量不固定，讓各日斜率互異。
	closes := make([]float64, 63)
	for i := range closes {
		closes[i] = 100 + float64(i) + 0.3*float64(i%7)
	}
	series, err := Enrich(buildBars(closes))
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	// MA60 從第 59 列起才有值，第 60 列是第一筆斜率。
	if series[59].MA60Slope != nil {
		t.Fatalf("MA60Slope should be undefined at row 59")
	}
	if series[60].MA60Slope == nil {
		t.Fatalf("MA60Slope should be defined at row 60")
	}

	// 第 60 列只有一筆斜率可用，5 日均斜率仍要有值且等於該筆。
	if series[60].MA60Slope5 == nil {
		t.Fatalf("MA60Slope5 should be defined as soon as one slope exists")
	}
	if math.Abs(*series[60].MA60Slope5-*series[60].MA60Slope) > 1e-9 {
		t.Fatalf("MA60Slope5 at row 60 = %v, want single slope %v", *series[60].MA60Slope5, *series[60].MA60Slope)
	}

	// 第 62 列有三筆斜率，取其平均而非等滿 5 筆。
	want := (*series[60].MA60Slope + *series[61].MA60Slope + *series[62].MA60Slope) / 3
	if series[62].MA60Slope5 == nil || math.Abs(*series[62].MA60Slope5-want) > 1e-9 {
		t.Fatalf("MA60Slope5 at row 62 = %v, want %v", series[62].MA60Slope5, want)
	}

	// 尚無任何斜率前不給值。
	if series[59].MA60Slope5 != nil {
		t.Fatalf("MA60Slope5 should be undefined before the first slope")
	}
}

func TestEnrichRSIRange(t *testing.T) {
	// 連續上漲：RSI 應貼近 100；連續下跌：貼近 0。
	up := make([]float64, 40)
	down := make([]float64, 40)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 200 - float64(i)
	}

	upSeries, err := Enrich(buildBars(up))
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	last := upSeries[len(upSeries)-1]
	if last.RSI == nil || *last.RSI < 99 {
		t.Fatalf("all-gain RSI = %v, want near 100", last.RSI)
	}

	downSeries, err := Enrich(buildBars(down))
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	last = downSeries[len(downSeries)-1]
	if last.RSI == nil || *last.RSI > 1 {
		t.Fatalf("all-loss RSI = %v, want near 0", last.RSI)
	}
}

func TestEnrichKDJIdentity(t *testing.T) {
	closes := flatCloses(45, 100)
	for i := range closes {
		closes[i] += float64(i%7) * 2
	}
	series, err := Enrich(buildBars(closes))
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	for i, b := range series {
		if b.K == nil {
			continue
		}
		want := 3**b.K - 2**b.D
		if math.Abs(*b.J-want) > 1e-9 {
			t.Fatalf("row %d: J = %v, want 3K-2D = %v", i, *b.J, want)
		}
	}
}

func TestEnrichMACDAliases(t *testing.T) {
	series, err := Enrich(buildBars(flatCloses(40, 100)))
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	last := series[len(series)-1]
	if last.MACD() != last.DIF || last.MACDSignal() != last.DEA {
		t.Fatalf("MACD aliases must point at the identical values")
	}
	if last.MACDHist == nil || math.Abs(*last.MACDHist-(*last.DIF-*last.DEA)) > 1e-12 {
		t.Fatalf("hist = DIF - DEA violated")
	}
}

func TestEnrichIdempotent(t *testing.T) {
	closes := flatCloses(80, 100)
	for i := range closes {
		closes[i] += math.Sin(float64(i)) * 5
	}
	bars := buildBars(closes)

	first, err := Enrich(bars)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	second, err := Enrich(bars)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two runs over the same bars must be identical")
	}
}

func TestPrevWindowExcludesToday(t *testing.T) {
	closes := flatCloses(40, 100)
	bars := buildBars(closes)
	series, err := Enrich(bars)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	base, ok := series.PrevHighestHigh(10)
	if !ok {
		t.Fatalf("expected prior window to exist")
	}

	// 改動「今日」高點不得影響前 10 日視窗。
	altered := append([]dataingestion.DailyPrice(nil), bars...)
	altered[len(altered)-1].High = 999
	alteredSeries, err := Enrich(altered)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	got, _ := alteredSeries.PrevHighestHigh(10)
	if got != base {
		t.Fatalf("altering today's high changed the prior window: %v != %v", got, base)
	}

	// 改動「昨日」高點則必須反映。
	altered = append([]dataingestion.DailyPrice(nil), bars...)
	altered[len(altered)-2].High = 999
	alteredSeries, err = Enrich(altered)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	got, _ = alteredSeries.PrevHighestHigh(10)
	if got != 999 {
		t.Fatalf("altering yesterday's high must change the prior window, got %v", got)
	}
}

func TestPrevWindowTooShort(t *testing.T) {
	series := Series{{}, {}}
	if _, ok := series.PrevLowestClose(10); ok {
		t.Fatalf("window larger than history must report ok=false")
	}
}
