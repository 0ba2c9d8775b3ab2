package analysis

import (
	"testing"

	domain "stock-radar/internal/domain/analysis"
	"stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/strategy"
)

func sampleRecord() domain.DailyAnalysisResult {
	netBuy := 350.0
	return domain.DailyAnalysisResult{
		Symbol:   "2330",
		Market:   dataingestion.MarketTWSE,
		Industry: "半導體",
		Close:    600,
		Decision: strategy.Decision{
			Regime:     strategy.RegimeBull,
			Mode:       strategy.ModeTrend,
			Watch:      true,
			Buy:        true,
			Confidence: 100,
		},
		CompositeScore: 70,
		ChipNetBuy:     &netBuy,
		Tags:           []domain.Tag{domain.TagVolumeSurge, domain.TagMACrossover},
	}
}

func TestMatchConditionsEmpty(t *testing.T) {
	if MatchConditions(sampleRecord(), nil, LogicAND) {
		t.Fatalf("no conditions must not match")
	}
}

func TestMatchNumericFields(t *testing.T) {
	r := sampleRecord()
	tests := []struct {
		name string
		cond NumericCondition
		want bool
	}{
		{"score gte hit", NumericCondition{Field: FieldCompositeScore, Op: OpGTE, Value: 60}, true},
		{"score gte miss", NumericCondition{Field: FieldCompositeScore, Op: OpGTE, Value: 80}, false},
		{"confidence lte", NumericCondition{Field: FieldConfidence, Op: OpLTE, Value: 100}, true},
		{"chip net buy", NumericCondition{Field: FieldChipNetBuy, Op: OpGTE, Value: 300}, true},
		{"unknown field", NumericCondition{Field: "mystery", Op: OpGTE, Value: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := Condition{Type: ConditionNumeric, Numeric: &tt.cond}
			if got := MatchConditions(r, []Condition{cond}, LogicAND); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchNumericNilChipFails(t *testing.T) {
	r := sampleRecord()
	r.ChipNetBuy = nil
	cond := Condition{Type: ConditionNumeric, Numeric: &NumericCondition{Field: FieldChipNetBuy, Op: OpGTE, Value: -999}}
	if MatchConditions(r, []Condition{cond}, LogicAND) {
		t.Fatalf("missing chip data must fail closed")
	}
}

func TestMatchCategory(t *testing.T) {
	r := sampleRecord()
	tests := []struct {
		name string
		cond CategoryCondition
		want bool
	}{
		{"market", CategoryCondition{Field: "market", Values: []string{"TWSE"}}, true},
		{"regime", CategoryCondition{Field: "regime", Values: []string{"BULL", "NEUTRAL"}}, true},
		{"mode miss", CategoryCondition{Field: "mode", Values: []string{"Pullback"}}, false},
		{"signal", CategoryCondition{Field: "signal", Values: []string{"buy"}}, true},
		{"empty values", CategoryCondition{Field: "market"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := Condition{Type: ConditionCategory, Category: &tt.cond}
			if got := MatchConditions(r, []Condition{cond}, LogicAND); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchTags(t *testing.T) {
	r := sampleRecord()

	include := Condition{Type: ConditionTags, Tags: &TagsCondition{Include: []string{string(domain.TagVolumeSurge)}}}
	if !MatchConditions(r, []Condition{include}, LogicAND) {
		t.Fatalf("include tag should match")
	}

	exclude := Condition{Type: ConditionTags, Tags: &TagsCondition{Exclude: []string{string(domain.TagMACrossover)}}}
	if MatchConditions(r, []Condition{exclude}, LogicAND) {
		t.Fatalf("excluded tag should reject")
	}
}

func TestMatchSymbols(t *testing.T) {
	r := sampleRecord()

	include := Condition{Type: ConditionSymbols, Symbols: &SymbolsCondition{Include: []string{"2330", "2454"}}}
	if !MatchConditions(r, []Condition{include}, LogicAND) {
		t.Fatalf("include list should match")
	}

	exclude := Condition{Type: ConditionSymbols, Symbols: &SymbolsCondition{Include: []string{"2330"}, Exclude: []string{"2330"}}}
	if MatchConditions(r, []Condition{exclude}, LogicAND) {
		t.Fatalf("exclude wins over include")
	}
}

func TestMatchConditionsLogic(t *testing.T) {
	r := sampleRecord()
	hit := Condition{Type: ConditionNumeric, Numeric: &NumericCondition{Field: FieldCompositeScore, Op: OpGTE, Value: 60}}
	miss := Condition{Type: ConditionNumeric, Numeric: &NumericCondition{Field: FieldCompositeScore, Op: OpGTE, Value: 99}}

	if MatchConditions(r, []Condition{hit, miss}, LogicAND) {
		t.Fatalf("AND with one miss must fail")
	}
	if !MatchConditions(r, []Condition{hit, miss}, LogicOR) {
		t.Fatalf("OR with one hit must pass")
	}
}
