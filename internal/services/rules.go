package services

import (
	"strings"

	"metamigrate/internal/common"
)

// RuleSet holds the classification lookup tables. Both lists come from
// configuration so that extending them is a config edit, not a code change.
type RuleSet struct {
	unsupportedTypes map[string]struct{}
	legacyFunctions  []string
}

// NewRuleSet builds a rule set from configuration. Matching is
// case-insensitive on both tables.
func NewRuleSet(config *common.RulesConfig) *RuleSet {
	rs := &RuleSet{
		unsupportedTypes: make(map[string]struct{}, len(config.UnsupportedTransformationTypes)),
	}
	for _, t := range config.UnsupportedTransformationTypes {
		rs.unsupportedTypes[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	for _, f := range config.LegacyExpressionFunctions {
		if f = strings.TrimSpace(f); f != "" {
			rs.legacyFunctions = append(rs.legacyFunctions, strings.ToUpper(f))
		}
	}
	return rs
}

// IsUnsupportedTransformation reports whether the transformation subtype has
// no automated migration path.
func (rs *RuleSet) IsUnsupportedTransformation(subtype string) bool {
	_, ok := rs.unsupportedTypes[strings.ToLower(strings.TrimSpace(subtype))]
	return ok
}

// FindLegacyFunction returns the first legacy-only function referenced by the
// expression, or "" when the expression migrates cleanly.
func (rs *RuleSet) FindLegacyFunction(expression string) string {
	if expression == "" {
		return ""
	}
	upper := strings.ToUpper(expression)
	for _, fn := range rs.legacyFunctions {
		if strings.Contains(upper, fn) {
			return fn
		}
	}
	return ""
}
