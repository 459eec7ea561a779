package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	"github.com/google/uuid"
)

// Normalizer converts raw adapter records into the canonical object model,
// computing the structural complexity tier and applying classification as it
// goes. Normalization is pure: it never contacts the adapter or storage.
type Normalizer struct {
	rules *RuleSet
}

func NewNormalizer(rules *RuleSet) *Normalizer {
	return &Normalizer{rules: rules}
}

// Normalize maps a full discovery payload to discovered objects for one
// project.
func (n *Normalizer) Normalize(projectID string, payload *interfaces.RawDiscoveryPayload) []*models.DiscoveredObject {
	objects := make([]*models.DiscoveredObject, 0, payload.Total())

	byKind := []struct {
		kind    models.ObjectKind
		records []interfaces.RawRecord
	}{
		{models.KindWorkflow, payload.Workflows},
		{models.KindMapping, payload.Mappings},
		{models.KindSession, payload.Sessions},
		{models.KindTransformation, payload.Transformations},
		{models.KindSource, payload.Sources},
		{models.KindTarget, payload.Targets},
	}

	now := time.Now()
	for _, group := range byKind {
		for _, record := range group.records {
			objects = append(objects, n.normalizeRecord(projectID, group.kind, record, now))
		}
	}

	return objects
}

func (n *Normalizer) normalizeRecord(projectID string, kind models.ObjectKind, record interfaces.RawRecord, now time.Time) *models.DiscoveredObject {
	status, coverage, lowConfidence := Classify(kind, record, n.rules)

	return &models.DiscoveredObject{
		ID:                 uuid.NewString(),
		ProjectID:          projectID,
		Name:               recordString(record, "name"),
		Folder:             recordString(record, "folder"),
		Kind:               kind,
		Complexity:         complexityOf(kind, record),
		MigrationStatus:    status,
		AutomationCoverage: coverage,
		LowConfidence:      lowConfidence,
		Dependencies:       recordStringList(record, "dependencies", "deps"),
		Metadata:           record,
		Hash:               recordHash(record),
		Discovered:         now,
	}
}

// complexityOf computes the structural complexity tier. Workflows and
// mappings are tiered by the sum of their transformation, session and
// dependency counts; sessions, sources and targets carry no sub-structure
// and are fixed SIMPLE; transformations default to MEDIUM.
func complexityOf(kind models.ObjectKind, record interfaces.RawRecord) models.ComplexityTier {
	switch kind {
	case models.KindSession, models.KindSource, models.KindTarget:
		return models.TierSimple
	case models.KindTransformation:
		return models.TierMedium
	}

	sum := recordInt(record, "transformation_count", "transformations") +
		recordInt(record, "session_count", "sessions") +
		len(recordStringList(record, "dependencies", "deps"))

	switch {
	case sum == 0:
		return models.TierSimple
	case sum <= 5:
		return models.TierMedium
	default:
		return models.TierComplex
	}
}

// recordSubtype returns the transformation subtype field, whichever name the
// adapter used for it.
func recordSubtype(record interfaces.RawRecord) string {
	if s := recordString(record, "subtype"); s != "" {
		return s
	}
	return recordString(record, "type")
}

// recordExpression returns the object's expression text, if any.
func recordExpression(record interfaces.RawRecord) string {
	return recordString(record, "expression")
}

func recordString(record interfaces.RawRecord, keys ...string) string {
	for _, key := range keys {
		if s, ok := record[key].(string); ok {
			return s
		}
	}
	return ""
}

// recordInt reads a numeric field that may arrive as a JSON float64 or a
// native int, depending on the adapter.
func recordInt(record interfaces.RawRecord, keys ...string) int {
	for _, key := range keys {
		switch v := record[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}

func recordStringList(record interfaces.RawRecord, keys ...string) []string {
	for _, key := range keys {
		switch v := record[key].(type) {
		case []string:
			return v
		case []interface{}:
			result := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					result = append(result, s)
				}
			}
			return result
		}
	}
	return nil
}

// recordHash fingerprints a raw record for change detection between sync
// cycles.
func recordHash(record interfaces.RawRecord) string {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return ""
	}

	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:8])
}
