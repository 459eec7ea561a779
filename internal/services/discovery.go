package services

import (
	"context"
	"time"

	"metamigrate/internal/adapters"
	"metamigrate/internal/common"
	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	"github.com/ternarybob/arbor"
)

// AdapterFactory resolves the protocol adapter for a connection. Tests
// substitute fakes here.
type AdapterFactory func(conn *models.RepositoryConnection) (interfaces.RepositoryAdapter, error)

// Discoverer runs the discovery pipeline: adapter pull, normalization,
// bulk persistence, project stat recompute. It also hosts the connection
// test and the change-detection probe the sync monitor polls with.
type Discoverer struct {
	storage    interfaces.Storage
	normalizer *Normalizer
	adapterFor AdapterFactory
	logger     arbor.ILogger
}

var _ interfaces.DiscoveryService = (*Discoverer)(nil)

func NewDiscoverer(storage interfaces.Storage, config *common.Config, logger arbor.ILogger) *Discoverer {
	return &Discoverer{
		storage:    storage,
		normalizer: NewNormalizer(NewRuleSet(&config.Rules)),
		adapterFor: func(conn *models.RepositoryConnection) (interfaces.RepositoryAdapter, error) {
			return adapters.ForConnection(conn, &config.Repository, logger)
		},
		logger: logger,
	}
}

// NewDiscovererWithFactory is the test seam for substituting adapters.
func NewDiscovererWithFactory(storage interfaces.Storage, rules *RuleSet, factory AdapterFactory, logger arbor.ILogger) *Discoverer {
	return &Discoverer{
		storage:    storage,
		normalizer: NewNormalizer(rules),
		adapterFor: factory,
		logger:     logger,
	}
}

// TestConnection probes a connection's liveness and records the outcome on
// the connection entity.
func (d *Discoverer) TestConnection(ctx context.Context, connectionID string) error {
	conn, err := d.storage.GetConnection(connectionID)
	if err != nil {
		return err
	}

	adapter, err := d.adapterFor(conn)
	if err != nil {
		return err
	}

	probeErr := adapter.TestConnection(ctx, conn)

	conn.Active = probeErr == nil
	if probeErr == nil {
		conn.LastContact = time.Now()
	}
	if err := d.storage.SaveConnection(conn); err != nil {
		d.logger.Warn().Err(err).Str("connection", conn.Name).Msg("Failed to record connection test outcome")
	}

	return probeErr
}

// Discover pulls the project's full object metadata, normalizes it and
// replaces the project's persisted object set. The connection entity is not
// mutated by discovery.
func (d *Discoverer) Discover(ctx context.Context, projectID string) (*models.DiscoveryResult, error) {
	start := time.Now()

	project, err := d.storage.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	conn, err := d.storage.GetConnection(project.ConnectionID)
	if err != nil {
		return nil, err
	}

	adapter, err := d.adapterFor(conn)
	if err != nil {
		return nil, err
	}

	payload, err := adapter.Discover(ctx, conn)
	if err != nil {
		// Connection-level failure aborts the run; nothing partial is
		// persisted.
		return nil, err
	}

	objects := d.normalizer.Normalize(projectID, payload)

	if err := d.storage.ReplaceObjects(projectID, objects); err != nil {
		return nil, err
	}

	d.updateProjectStats(project, objects)

	result := &models.DiscoveryResult{
		ProjectID: projectID,
		Total:     len(objects),
		ByKind:    countByKind(objects),
		Duration:  time.Since(start).String(),
	}

	d.logger.Info().
		Str("project", project.Name).
		Int("objects", result.Total).
		Str("duration", result.Duration).
		Msg("Discovery completed")

	return result, nil
}

// DetectChanges re-polls the repository and diffs against the last persisted
// object set, returning the number of drifted objects. It records contact on
// the connection but never writes objects; persisting discovery output stays
// with Discover.
func (d *Discoverer) DetectChanges(ctx context.Context, projectID string) (int, error) {
	project, err := d.storage.GetProject(projectID)
	if err != nil {
		return 0, err
	}

	conn, err := d.storage.GetConnection(project.ConnectionID)
	if err != nil {
		return 0, err
	}

	adapter, err := d.adapterFor(conn)
	if err != nil {
		return 0, err
	}

	payload, err := adapter.Discover(ctx, conn)
	if err != nil {
		return 0, err
	}

	conn.Active = true
	conn.LastContact = time.Now()
	if err := d.storage.SaveConnection(conn); err != nil {
		d.logger.Warn().Err(err).Str("connection", conn.Name).Msg("Failed to record sync contact")
	}

	current := d.normalizer.Normalize(projectID, payload)

	existing, err := d.storage.ListObjects(projectID)
	if err != nil {
		return 0, err
	}

	return countDrift(existing, current), nil
}

func (d *Discoverer) updateProjectStats(project *models.Project, objects []*models.DiscoveredObject) {
	fullyAuto := 0
	for _, obj := range objects {
		if obj.MigrationStatus == models.StatusFullyAuto {
			fullyAuto++
		}
	}

	project.TotalObjects = len(objects)
	project.AutoMigrationPercentage = 0
	if len(objects) > 0 {
		project.AutoMigrationPercentage = int(float64(fullyAuto) / float64(len(objects)) * 100)
	}
	project.Updated = time.Now()

	if err := d.storage.SaveProject(project); err != nil {
		d.logger.Warn().Err(err).Str("project", project.Name).Msg("Failed to update project stats")
	}
}

func countByKind(objects []*models.DiscoveredObject) map[models.ObjectKind]int {
	counts := make(map[models.ObjectKind]int)
	for _, obj := range objects {
		counts[obj.Kind]++
	}
	return counts
}

// countDrift counts objects that are new, changed or gone relative to the
// persisted set. Identity is kind+folder+name; change is the content hash.
func countDrift(existing, current []*models.DiscoveredObject) int {
	key := func(obj *models.DiscoveredObject) string {
		return string(obj.Kind) + "/" + obj.Folder + "/" + obj.Name
	}

	known := make(map[string]string, len(existing))
	for _, obj := range existing {
		known[key(obj)] = obj.Hash
	}

	changed := 0
	seen := make(map[string]struct{}, len(current))
	for _, obj := range current {
		k := key(obj)
		seen[k] = struct{}{}
		if hash, ok := known[k]; !ok || hash != obj.Hash {
			changed++
		}
	}
	for k := range known {
		if _, ok := seen[k]; !ok {
			changed++
		}
	}

	return changed
}
