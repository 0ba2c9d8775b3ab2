package strategy

import (
	"strings"
	"testing"
)

func TestSelectModeInsufficientData(t *testing.T) {
	got := SelectMode(buildSeries(20), RegimeBull)
	if got.Mode != ModeNoTrade {
		t.Fatalf("mode=%s, want NoTrade", got.Mode)
	}
}

func TestSelectModeBearForcesNoTrade(t *testing.T) {
	// 結構完全符合趨勢型，但市場為 BEAR：必須 NoTrade。
	got := SelectMode(buildSeries(60), RegimeBear)
	if got.Mode != ModeNoTrade {
		t.Fatalf("mode=%s, want NoTrade in BEAR", got.Mode)
	}
}

func TestSelectModeTrend(t *testing.T) {
	// close=100 > MA20=98，≥ MA60=95，MA20 ≥ MA60，斜率 +0.5，且非低檔盤整。
	got := SelectMode(buildSeries(60), RegimeBull)
	if got.Mode != ModeTrend {
		t.Fatalf("mode=%s (%s), want Trend", got.Mode, got.Reason)
	}
}

func TestSelectModeBearOverridesStructure(t *testing.T) {
	// close=60 < 0.9×MA60=63：非低檔盤整；但市場 BEAR（close < MA60）
	// → 無論結構如何一律 NoTrade。
	s := buildSeries(60)
	last := lastRow(s)
	last.Close = 60
	last.MA20 = fp(63)
	last.MA60 = fp(70)
	got := SelectMode(s, RegimeBear)
	if got.Mode != ModeNoTrade {
		t.Fatalf("mode=%s, want NoTrade in BEAR", got.Mode)
	}
}

func TestSelectModePullback(t *testing.T) {
	// 價格接近 MA20（5% 內），前 10 日未破低（最低 Low=99），斜率非負。
	s := buildSeries(60)
	last := lastRow(s)
	last.Close = 99.5
	last.MA20 = fp(101)
	last.MA60 = fp(103) // close < MA60：趨勢條件不成立
	last.MA60Slope5 = fp(0)
	got := SelectMode(s, RegimeBull)
	if got.Mode != ModePullback {
		t.Fatalf("mode=%s (%s), want Pullback", got.Mode, got.Reason)
	}
}

func TestSelectModePullbackBrokenLow(t *testing.T) {
	// 跌破前 10 日最低 Low（99）→ 回檔條件不成立。
	s := buildSeries(60)
	last := lastRow(s)
	last.Close = 94
	last.MA20 = fp(96)
	last.MA60 = fp(110)
	got := SelectMode(s, RegimeBull)
	if got.Mode != ModeNoTrade {
		t.Fatalf("mode=%s, want NoTrade after breaking prior low", got.Mode)
	}
}

func TestSelectModeNoMatchNeutralNote(t *testing.T) {
	s := buildSeries(60)
	last := lastRow(s)
	last.Close = 80 // 遠離所有均線且破前低
	last.MA20 = fp(98)
	last.MA60 = fp(95)
	got := SelectMode(s, RegimeNeutral)
	if got.Mode != ModeNoTrade {
		t.Fatalf("mode=%s, want NoTrade", got.Mode)
	}
	if !strings.Contains(got.Reason, "盤整市場") {
		t.Fatalf("NEUTRAL no-match reason should note the sideways market, got %q", got.Reason)
	}
}

func TestSelectModeWindowExcludesToday(t *testing.T) {
	// 當日殺低但前 10 日最低 Low 仍為 99：close=99 未破前低。
	// 若視窗誤含今日（Low=90），同樣的 close 會因 99 ≥ 90 而誤差出不同邊界。
	s := buildSeries(60)
	last := lastRow(s)
	last.Low = 90
	last.Close = 98.5
	last.MA20 = fp(98) // 距 MA20 0.5%，接近
	last.MA60 = fp(110)
	got := SelectMode(s, RegimeBull)
	if got.Mode != ModeNoTrade {
		t.Fatalf("close below prior-10-day low must fail pullback, got %s", got.Mode)
	}

	// close 拉回前低之上則成立，證明視窗讀的是前 10 日而非今日的 90。
	last.Close = 99.5
	last.MA20 = fp(99)
	got = SelectMode(s, RegimeBull)
	if got.Mode != ModePullback {
		t.Fatalf("mode=%s (%s), want Pullback", got.Mode, got.Reason)
	}
}
