package analysis

import (
	"context"
	"testing"

	domain "stock-radar/internal/domain/analysis"
	"stock-radar/internal/domain/strategy"
)

func screenerRecords() []domain.DailyAnalysisResult {
	buy := domain.DailyAnalysisResult{
		Symbol: "2330",
		Decision: strategy.Decision{
			Regime: strategy.RegimeBull, Mode: strategy.ModeTrend,
			Watch: true, Buy: true, Confidence: 100,
		},
		CompositeScore: 80,
		Success:        true,
	}
	watch := domain.DailyAnalysisResult{
		Symbol: "2454",
		Decision: strategy.Decision{
			Regime: strategy.RegimeBull, Mode: strategy.ModePullback,
			Watch: true, Confidence: 60,
		},
		CompositeScore: 55,
		Success:        true,
	}
	none := domain.DailyAnalysisResult{
		Symbol:         "2603",
		Decision:       strategy.Decision{Regime: strategy.RegimeBear, Mode: strategy.ModeNoTrade, Confidence: 0},
		CompositeScore: 20,
		Success:        true,
	}
	return []domain.DailyAnalysisResult{buy, watch, none}
}

func TestScreenerRequiresDateAndConditions(t *testing.T) {
	uc := NewScreenerUseCase(&fakeQueryRepo{})
	if _, err := uc.Run(context.Background(), ScreenerInput{}); err == nil {
		t.Fatalf("expected error for missing date")
	}
	if _, err := uc.Run(context.Background(), ScreenerInput{Date: queryDay()}); err == nil {
		t.Fatalf("expected error for empty conditions")
	}
}

func TestScreenerFiltersBySignal(t *testing.T) {
	repo := &fakeQueryRepo{results: screenerRecords()}
	uc := NewScreenerUseCase(repo)

	out, err := uc.Run(context.Background(), ScreenerInput{
		Date:       queryDay(),
		Conditions: []Condition{categoryCond("signal", "buy")},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Total != 1 || out.Results[0].Symbol != "2330" {
		t.Fatalf("out = %+v", out)
	}
	// AND 組合下條件會下推到儲存層。
	if len(repo.gotFilter.Signals) != 1 || repo.gotFilter.Signals[0] != "buy" {
		t.Fatalf("filter not pushed down: %+v", repo.gotFilter)
	}
}

func TestScreenerORDoesNotPushDown(t *testing.T) {
	repo := &fakeQueryRepo{results: screenerRecords()}
	uc := NewScreenerUseCase(repo)

	out, err := uc.Run(context.Background(), ScreenerInput{
		Date:  queryDay(),
		Logic: LogicOR,
		Conditions: []Condition{
			categoryCond("signal", "buy"),
			numericCond(FieldCompositeScore, OpGTE, 50),
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Total != 2 {
		t.Fatalf("OR should keep buy + high-score rows, got %+v", out)
	}
	if len(repo.gotFilter.Signals) != 0 || repo.gotFilter.CompositeScoreMin != nil {
		t.Fatalf("OR must not push down filters: %+v", repo.gotFilter)
	}
}

func TestScreenerSortAndPagination(t *testing.T) {
	repo := &fakeQueryRepo{results: screenerRecords()}
	uc := NewScreenerUseCase(repo)

	out, err := uc.Run(context.Background(), ScreenerInput{
		Date:       queryDay(),
		Conditions: []Condition{numericCond(FieldCompositeScore, OpGTE, 0)},
		Sort:       SortOption{Field: SortCompositeScore, Desc: true},
		Pagination: Pagination{Limit: 2},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Total != 3 || len(out.Results) != 2 || !out.HasMore {
		t.Fatalf("out = %+v", out)
	}
	if out.Results[0].Symbol != "2330" || out.Results[1].Symbol != "2454" {
		t.Fatalf("sort order wrong: %v, %v", out.Results[0].Symbol, out.Results[1].Symbol)
	}
}

func TestPresetTemplates(t *testing.T) {
	presets := PresetTemplates(queryDay())
	if len(presets) == 0 {
		t.Fatalf("expected built-in presets")
	}
	seen := map[string]bool{}
	for _, p := range presets {
		if p.ID == "" || p.Name == "" || len(p.Input.Conditions) == 0 {
			t.Fatalf("incomplete preset: %+v", p)
		}
		if seen[p.ID] {
			t.Fatalf("duplicate preset id %s", p.ID)
		}
		seen[p.ID] = true
		if !p.Input.Date.Equal(queryDay()) {
			t.Fatalf("preset %s date not bound", p.ID)
		}
	}

	if _, ok := PresetByID("buy_signals", queryDay()); !ok {
		t.Fatalf("buy_signals preset missing")
	}
	if _, ok := PresetByID("nope", queryDay()); ok {
		t.Fatalf("unknown preset must not resolve")
	}
}

func TestPresetBuySignalsMatchesEngineOutput(t *testing.T) {
	repo := &fakeQueryRepo{results: screenerRecords()}
	uc := NewScreenerUseCase(repo)

	preset, _ := PresetByID("buy_signals", queryDay())
	out, err := uc.Run(context.Background(), preset.Input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Total != 1 || out.Results[0].Symbol != "2330" {
		t.Fatalf("out = %+v", out)
	}
}
