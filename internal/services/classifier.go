package services

import (
	"fmt"

	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"
)

// classificationRule is one row of the classifier table. Rules are evaluated
// in order; the first match wins.
type classificationRule struct {
	name          string
	matches       func(kind models.ObjectKind, record interfaces.RawRecord, rules *RuleSet) bool
	status        models.MigrationStatus
	coverage      int
	lowConfidence bool
}

// classificationRules encodes the per-kind heuristics as data so the
// status/coverage bands can be verified mechanically. FULLY_AUTO rows must
// carry coverage >= 80 and MANUAL_REDESIGN rows <= 30.
var classificationRules = []classificationRule{
	{
		name: "unsupported transformation subtype",
		matches: func(kind models.ObjectKind, record interfaces.RawRecord, rules *RuleSet) bool {
			return kind == models.KindTransformation &&
				rules.IsUnsupportedTransformation(recordSubtype(record))
		},
		status:   models.StatusManualRedesign,
		coverage: 20,
	},
	{
		name: "transformation",
		matches: func(kind models.ObjectKind, record interfaces.RawRecord, rules *RuleSet) bool {
			return kind == models.KindTransformation
		},
		status:   models.StatusPartial,
		coverage: 75,
	},
	{
		name: "workflow",
		matches: func(kind models.ObjectKind, record interfaces.RawRecord, rules *RuleSet) bool {
			return kind == models.KindWorkflow
		},
		status:   models.StatusFullyAuto,
		coverage: 85,
	},
	{
		name: "mapping",
		matches: func(kind models.ObjectKind, record interfaces.RawRecord, rules *RuleSet) bool {
			return kind == models.KindMapping
		},
		status:   models.StatusFullyAuto,
		coverage: 90,
	},
	{
		name: "session, source or target",
		matches: func(kind models.ObjectKind, record interfaces.RawRecord, rules *RuleSet) bool {
			return kind == models.KindSession || kind == models.KindSource || kind == models.KindTarget
		},
		status:   models.StatusFullyAuto,
		coverage: 95,
	},
}

// Classify assigns migration status and automation coverage to one raw
// record. It is a pure function: the same record always classifies the same
// way, and it never fails. An unrecognized kind falls through to a
// low-confidence PARTIAL/50 default.
func Classify(kind models.ObjectKind, record interfaces.RawRecord, rules *RuleSet) (models.MigrationStatus, int, bool) {
	for _, rule := range classificationRules {
		if rule.matches(kind, record, rules) {
			return rule.status, rule.coverage, rule.lowConfidence
		}
	}
	return models.StatusPartial, 50, true
}

// CheckCoverageBands verifies that every rule keeps coverage consistent with
// status. Called from tests so rule additions cannot silently break the
// invariant.
func CheckCoverageBands() error {
	for _, rule := range classificationRules {
		if rule.status == models.StatusFullyAuto && rule.coverage < 80 {
			return fmt.Errorf("rule %q: FULLY_AUTO with coverage %d (<80)", rule.name, rule.coverage)
		}
		if rule.status == models.StatusManualRedesign && rule.coverage > 30 {
			return fmt.Errorf("rule %q: MANUAL_REDESIGN with coverage %d (>30)", rule.name, rule.coverage)
		}
		if rule.coverage < 0 || rule.coverage > 100 {
			return fmt.Errorf("rule %q: coverage %d out of range", rule.name, rule.coverage)
		}
	}
	return nil
}
