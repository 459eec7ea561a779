package models

import "time"

// AssessmentKind identifies the assessment algorithm that produced a result.
type AssessmentKind string

const AssessmentComplexity AssessmentKind = "COMPLEXITY"

// AssessmentResult is one project-level assessment run. Results accumulate
// as a history and are never mutated.
type AssessmentResult struct {
	ID                   string         `json:"id"`
	ProjectID            string         `json:"project_id"`
	Kind                 AssessmentKind `json:"kind"`
	OverallTier          ComplexityTier `json:"overall_tier"`
	AutomationCoverage   int            `json:"automation_coverage"`
	Confidence           int            `json:"confidence"`
	Recommendations      []string       `json:"recommendations"`
	Issues               []string       `json:"issues"`
	EstimatedEffortHours int            `json:"estimated_effort_hours"`
	Created              time.Time      `json:"created"`
}

// Issue is one migration blocker surfaced by an assessment run.
type Issue struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Resolved  bool      `json:"resolved"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}
