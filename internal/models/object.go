package models

import "time"

// ObjectKind is one of the six canonical object kinds produced by
// normalization.
type ObjectKind string

const (
	KindWorkflow       ObjectKind = "WORKFLOW"
	KindMapping        ObjectKind = "MAPPING"
	KindSession        ObjectKind = "SESSION"
	KindTransformation ObjectKind = "TRANSFORMATION"
	KindSource         ObjectKind = "SOURCE"
	KindTarget         ObjectKind = "TARGET"
)

// ComplexityTier is the structural complexity bucket of an object or project.
type ComplexityTier string

const (
	TierSimple  ComplexityTier = "SIMPLE"
	TierMedium  ComplexityTier = "MEDIUM"
	TierComplex ComplexityTier = "COMPLEX"
)

// MigrationStatus is the automation feasibility classification.
type MigrationStatus string

const (
	StatusFullyAuto      MigrationStatus = "FULLY_AUTO"
	StatusPartial        MigrationStatus = "PARTIAL"
	StatusManualRedesign MigrationStatus = "MANUAL_REDESIGN"
)

// DiscoveredObject is the canonical form of one repository object. Objects
// are created in bulk by a discovery run and are immutable afterwards; a
// later run supersedes the project's whole object set.
//
// Invariant: FULLY_AUTO objects carry coverage >= 80 and MANUAL_REDESIGN
// objects carry coverage <= 30.
type DiscoveredObject struct {
	ID                 string                 `json:"id"`
	ProjectID          string                 `json:"project_id"`
	Name               string                 `json:"name"`
	Folder             string                 `json:"folder"`
	Kind               ObjectKind             `json:"kind"`
	Complexity         ComplexityTier         `json:"complexity"`
	MigrationStatus    MigrationStatus        `json:"migration_status"`
	AutomationCoverage int                    `json:"automation_coverage"`
	LowConfidence      bool                   `json:"low_confidence,omitempty"`
	Dependencies       []string               `json:"dependencies,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
	Hash               string                 `json:"hash,omitempty"`
	Discovered         time.Time              `json:"discovered"`
}
