package analysis

import (
	"testing"
	"time"

	"stock-radar/internal/domain/chip"
	"stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/indicator"
	"stock-radar/internal/domain/strategy"
)

func fp(v float64) *float64 { return &v }

func TestDailyAnalysisResult_Validate(t *testing.T) {
	tests := []struct {
		name    string
		res     DailyAnalysisResult
		wantErr bool
	}{
		{
			name: "Valid TWSE",
			res: DailyAnalysisResult{
				Symbol:    "2330",
				TradeDate: time.Now(),
				Market:    dataingestion.MarketTWSE,
			},
			wantErr: false,
		},
		{
			name: "Missing Symbol",
			res: DailyAnalysisResult{
				TradeDate: time.Now(),
				Market:    dataingestion.MarketTWSE,
			},
			wantErr: true,
		},
		{
			name: "Missing Date",
			res: DailyAnalysisResult{
				Symbol: "2330",
				Market: dataingestion.MarketTWSE,
			},
			wantErr: true,
		},
		{
			name: "Invalid Market",
			res: DailyAnalysisResult{
				Symbol:    "2330",
				TradeDate: time.Now(),
				Market:    "invalid",
			},
			wantErr: true,
		},
		{
			name: "Inconsistent Decision",
			res: DailyAnalysisResult{
				Symbol:    "2330",
				TradeDate: time.Now(),
				Market:    dataingestion.MarketTWSE,
				Decision:  strategy.Decision{Buy: true}, // Buy 未伴隨 Watch
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.res.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	s := make(indicator.Series, 2)
	s[0].TradeDate = day.AddDate(0, 0, -1)
	s[0].Close = 100
	s[1].TradeDate = day
	s[1].Close = 102
	s[1].Volume = 5000
	s[1].MA20 = fp(99)
	s[1].RSI = fp(55)

	var r DailyAnalysisResult
	Snapshot(&r, s)

	if !r.TradeDate.Equal(day) {
		t.Fatalf("TradeDate = %v, want %v", r.TradeDate, day)
	}
	if r.Close != 102 || r.Volume != 5000 {
		t.Fatalf("price fields not copied: %+v", r)
	}
	if r.Change != 2 {
		t.Fatalf("Change = %v, want 2", r.Change)
	}
	if r.ChangeRate != 0.02 {
		t.Fatalf("ChangeRate = %v, want 0.02", r.ChangeRate)
	}
	if r.MA20 == nil || *r.MA20 != 99 {
		t.Fatalf("MA20 snapshot missing")
	}
	if r.MA60 != nil {
		t.Fatalf("undefined column must stay nil")
	}
}

func TestSnapshotEmptySeries(t *testing.T) {
	var r DailyAnalysisResult
	Snapshot(&r, nil)
	if !r.TradeDate.IsZero() || r.Close != 0 {
		t.Fatalf("empty series must not mutate result: %+v", r)
	}
}

func hasTag(tags []Tag, want Tag) bool {
	for _, tg := range tags {
		if tg == want {
			return true
		}
	}
	return false
}

func TestDeriveTags(t *testing.T) {
	s := make(indicator.Series, 61)
	for i := range s {
		s[i].Close = 100
		s[i].High = 101
		s[i].Low = 99
		s[i].Volume = 1000
	}
	curr := &s[60]
	curr.Close = 110 // 超越前 60 日高點
	curr.VolMA20 = fp(600)
	curr.Volume = 1000 // ≥ 1.5 倍均量

	tags := DeriveTags(s, &chip.Switch{Kind: chip.SwitchSellToBuy})
	if !hasTag(tags, TagBreakHigh60) {
		t.Fatalf("expected break-high tag, got %v", tags)
	}
	if !hasTag(tags, TagVolumeSurge) {
		t.Fatalf("expected volume tag, got %v", tags)
	}
	if !hasTag(tags, TagChipSwitch) {
		t.Fatalf("expected chip tag, got %v", tags)
	}
}

func TestDeriveTagsOverextension(t *testing.T) {
	s := make(indicator.Series, 2)
	s[1].Close = 130
	s[1].MA60 = fp(100)
	tags := DeriveTags(s, nil)
	if !hasTag(tags, TagOverextended) {
		t.Fatalf("expected overextension tag, got %v", tags)
	}
	if hasTag(tags, TagChipSwitch) {
		t.Fatalf("nil switch must not yield chip tag")
	}
}

func TestDeriveTagsEmpty(t *testing.T) {
	if got := DeriveTags(nil, nil); got != nil {
		t.Fatalf("empty series must yield no tags, got %v", got)
	}
}
