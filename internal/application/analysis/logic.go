package analysis

import (
	"slices"

	domain "stock-radar/internal/domain/analysis"
)

// BoolLogic defines the logical operator for combining conditions.
type BoolLogic string

const (
	LogicAND BoolLogic = "AND"
	LogicOR  BoolLogic = "OR"
)

// ConditionType defines the supported types of conditions.
type ConditionType string

const (
	ConditionNumeric  ConditionType = "numeric"
	ConditionCategory ConditionType = "category"
	ConditionTags     ConditionType = "tags"
	ConditionSymbols  ConditionType = "symbols"
)

// FieldName represents common field names used in conditions.
type FieldName string

const (
	FieldCompositeScore FieldName = "composite_score"
	FieldConfidence     FieldName = "confidence"
	FieldClose          FieldName = "close"
	FieldChangeRate     FieldName = "change_rate"
	FieldChipNetBuy     FieldName = "chip_net_buy"
)

// Op represents operators used in conditions.
type Op string

const (
	OpGTE Op = ">="
	OpLTE Op = "<="
)

// NumericCondition defines a numeric comparison rule.
type NumericCondition struct {
	Field FieldName `json:"field"`
	Op    Op        `json:"op"`
	Value float64   `json:"value"`
}

// CategoryCondition defines a categorical membership rule.
// Field 支援 market、industry、regime、mode、signal。
type CategoryCondition struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// TagsCondition defines a tag-based screening rule.
type TagsCondition struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// SymbolsCondition defines a symbol-based filtering rule.
type SymbolsCondition struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// Condition represents a single criteria in a ConditionSet.
type Condition struct {
	Type     ConditionType      `json:"type"`
	Numeric  *NumericCondition  `json:"numeric,omitempty"`
	Category *CategoryCondition `json:"category,omitempty"`
	Tags     *TagsCondition     `json:"tags,omitempty"`
	Symbols  *SymbolsCondition  `json:"symbols,omitempty"`
}

// MatchConditions checks if a record satisfies the given conditions and logic.
func MatchConditions(r domain.DailyAnalysisResult, conditions []Condition, logic BoolLogic) bool {
	if len(conditions) == 0 {
		return false
	}

	if logic == LogicOR {
		for _, c := range conditions {
			if matchOne(r, c) {
				return true
			}
		}
		return false
	}

	// Default to AND
	for _, c := range conditions {
		if !matchOne(r, c) {
			return false
		}
	}
	return true
}

func matchOne(r domain.DailyAnalysisResult, c Condition) bool {
	switch c.Type {
	case ConditionNumeric:
		return matchNumeric(r, c.Numeric)
	case ConditionCategory:
		return matchCategory(r, c.Category)
	case ConditionTags:
		return matchTags(r, c.Tags)
	case ConditionSymbols:
		return matchSymbols(r, c.Symbols)
	}
	return false
}

func matchNumeric(r domain.DailyAnalysisResult, nc *NumericCondition) bool {
	if nc == nil {
		return false
	}
	var val float64
	switch nc.Field {
	case FieldCompositeScore:
		val = r.CompositeScore
	case FieldConfidence:
		val = float64(r.Decision.Confidence)
	case FieldClose:
		val = r.Close
	case FieldChangeRate:
		val = r.ChangeRate
	case FieldChipNetBuy:
		if r.ChipNetBuy == nil {
			return false
		}
		val = *r.ChipNetBuy
	default:
		return false
	}

	switch nc.Op {
	case OpGTE:
		return val >= nc.Value
	case OpLTE:
		return val <= nc.Value
	}
	return false
}

func matchCategory(r domain.DailyAnalysisResult, cc *CategoryCondition) bool {
	if cc == nil || len(cc.Values) == 0 {
		return false
	}
	var got string
	switch cc.Field {
	case "market":
		got = string(r.Market)
	case "industry":
		got = r.Industry
	case "regime":
		got = string(r.Decision.Regime)
	case "mode":
		got = string(r.Decision.Mode)
	case "signal":
		got = r.Decision.Signal()
	default:
		return false
	}
	return slices.Contains(cc.Values, got)
}

func matchTags(r domain.DailyAnalysisResult, tc *TagsCondition) bool {
	if tc == nil {
		return false
	}
	has := func(tag string) bool {
		return slices.Contains(r.Tags, domain.Tag(tag))
	}
	for _, tag := range tc.Exclude {
		if has(tag) {
			return false
		}
	}
	if len(tc.Include) == 0 {
		return true
	}
	for _, tag := range tc.Include {
		if has(tag) {
			return true
		}
	}
	return false
}

func matchSymbols(r domain.DailyAnalysisResult, sc *SymbolsCondition) bool {
	if sc == nil {
		return false
	}
	if slices.Contains(sc.Exclude, r.Symbol) {
		return false
	}
	if len(sc.Include) == 0 {
		return true
	}
	return slices.Contains(sc.Include, r.Symbol)
}
