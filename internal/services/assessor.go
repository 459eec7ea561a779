package services

import (
	"fmt"
	"math"
	"time"

	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

// baselineConfidence is the fixed confidence of the complexity assessment
// policy. The heuristics behind the score are coarse enough that pretending
// to a per-project confidence would be noise.
const baselineConfidence = 85

// hoursPerObject is the flat effort estimate per discovered object.
const hoursPerObject = 2

// Assessor aggregates a project's discovered objects into one project-level
// assessment result. Results append to the project's history; prior results
// and source objects are never mutated.
type Assessor struct {
	storage interfaces.Storage
	rules   *RuleSet
	logger  arbor.ILogger
}

var _ interfaces.AssessmentService = (*Assessor)(nil)

func NewAssessor(storage interfaces.Storage, rules *RuleSet, logger arbor.ILogger) *Assessor {
	return &Assessor{
		storage: storage,
		rules:   rules,
		logger:  logger,
	}
}

// RunAssessment reads the project's persisted objects and produces one
// complexity assessment.
func (a *Assessor) RunAssessment(projectID string) (*models.AssessmentResult, error) {
	project, err := a.storage.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	objects, err := a.storage.ListObjects(projectID)
	if err != nil {
		return nil, err
	}

	result := a.assess(project, objects)

	if err := a.storage.SaveAssessment(result); err != nil {
		return nil, err
	}
	a.persistIssues(projectID, objects)

	a.logger.Info().
		Str("project", project.Name).
		Str("tier", string(result.OverallTier)).
		Int("coverage", result.AutomationCoverage).
		Int("effort_hours", result.EstimatedEffortHours).
		Msg("Assessment completed")

	return result, nil
}

func (a *Assessor) assess(project *models.Project, objects []*models.DiscoveredObject) *models.AssessmentResult {
	var issues []string
	automationScore := 0.0
	unsupported := 0
	complexExpressions := 0
	lowConfidence := 0

	for _, obj := range objects {
		if subtype := a.unsupportedSubtype(obj); subtype != "" {
			issues = append(issues, fmt.Sprintf("Unsupported transformation: %s (%s)", obj.Name, subtype))
			unsupported++
		} else {
			automationScore++
		}
		if obj.LowConfidence {
			lowConfidence++
		}
	}

	for _, obj := range objects {
		if fn := a.rules.FindLegacyFunction(recordExpression(obj.Metadata)); fn != "" {
			issues = append(issues, fmt.Sprintf("Complex expression requiring manual conversion: %s", obj.Name))
			automationScore -= 0.5
			complexExpressions++
		}
	}

	// The score can dip negative transiently; final coverage is floored at
	// zero. Zero-object projects assess as coverage 0, tier SIMPLE.
	coverage := 0
	if len(objects) > 0 {
		coverage = int(math.Round(math.Max(0, automationScore/float64(len(objects))) * 100))
	}

	var tier models.ComplexityTier
	switch {
	case coverage > 80:
		tier = models.TierSimple
	case coverage > 50:
		tier = models.TierMedium
	default:
		tier = models.TierComplex
	}
	if len(objects) == 0 {
		tier = models.TierSimple
	}

	return &models.AssessmentResult{
		ID:                   uuid.NewString(),
		ProjectID:            project.ID,
		Kind:                 models.AssessmentComplexity,
		OverallTier:          tier,
		AutomationCoverage:   coverage,
		Confidence:           baselineConfidence,
		Recommendations:      buildRecommendations(len(objects), unsupported, complexExpressions, lowConfidence),
		Issues:               issues,
		EstimatedEffortHours: int(math.Ceil(float64(len(objects)) * hoursPerObject)),
		Created:              time.Now(),
	}
}

func (a *Assessor) unsupportedSubtype(obj *models.DiscoveredObject) string {
	if obj.Kind != models.KindTransformation {
		return ""
	}
	subtype := recordSubtype(obj.Metadata)
	if a.rules.IsUnsupportedTransformation(subtype) {
		return subtype
	}
	return ""
}

// buildRecommendations ranks the follow-up actions, most blocking first.
func buildRecommendations(total, unsupported, complexExpressions, lowConfidence int) []string {
	var recs []string

	if total == 0 {
		return []string{"No objects discovered; verify the repository connection and re-run discovery"}
	}
	if unsupported > 0 {
		recs = append(recs, fmt.Sprintf("Redesign %d unsupported transformation(s) manually before migration", unsupported))
	}
	if complexExpressions > 0 {
		recs = append(recs, fmt.Sprintf("Review %d object(s) with legacy-only expression functions", complexExpressions))
	}
	if lowConfidence > 0 {
		recs = append(recs, fmt.Sprintf("Manually verify %d object(s) with low-confidence classification", lowConfidence))
	}
	if len(recs) == 0 {
		recs = append(recs, "Proceed with automated migration")
	}
	return recs
}

// persistIssues records the assessment blockers as trackable issue entities.
// Issue persistence failures are logged, not fatal to the assessment.
func (a *Assessor) persistIssues(projectID string, objects []*models.DiscoveredObject) {
	now := time.Now()
	for _, obj := range objects {
		var issue *models.Issue

		if subtype := a.unsupportedSubtype(obj); subtype != "" {
			issue = &models.Issue{
				ID:        uuid.NewString(),
				ProjectID: projectID,
				Severity:  "high",
				Message:   fmt.Sprintf("Unsupported transformation: %s (%s)", obj.Name, subtype),
				Created:   now,
				Updated:   now,
			}
		} else if fn := a.rules.FindLegacyFunction(recordExpression(obj.Metadata)); fn != "" {
			issue = &models.Issue{
				ID:        uuid.NewString(),
				ProjectID: projectID,
				Severity:  "medium",
				Message:   fmt.Sprintf("Complex expression requiring manual conversion: %s", obj.Name),
				Created:   now,
				Updated:   now,
			}
		}

		if issue == nil {
			continue
		}
		if err := a.storage.SaveIssue(issue); err != nil {
			a.logger.Warn().Err(err).Str("object", obj.Name).Msg("Failed to persist assessment issue")
		}
	}
}
