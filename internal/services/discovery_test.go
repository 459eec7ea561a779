package services

import (
	"context"
	"errors"
	"testing"

	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type fakeAdapter struct {
	payload  *interfaces.RawDiscoveryPayload
	err      error
	probeErr error
}

func (f *fakeAdapter) Discover(ctx context.Context, conn *models.RepositoryConnection) (*interfaces.RawDiscoveryPayload, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func (f *fakeAdapter) TestConnection(ctx context.Context, conn *models.RepositoryConnection) error {
	return f.probeErr
}

func factoryFor(adapter *fakeAdapter) AdapterFactory {
	return func(conn *models.RepositoryConnection) (interfaces.RepositoryAdapter, error) {
		return adapter, nil
	}
}

func samplePayload() *interfaces.RawDiscoveryPayload {
	return &interfaces.RawDiscoveryPayload{
		Workflows: []interfaces.RawRecord{
			{"name": "wf_load_orders", "folder": "Sales", "transformation_count": 2, "session_count": 1},
		},
		Mappings: []interfaces.RawRecord{
			{"name": "m_orders", "folder": "Sales"},
			{"name": "m_customers", "folder": "Sales"},
		},
		Transformations: []interfaces.RawRecord{
			{"name": "exp_price", "folder": "Sales", "type": "Expression"},
			{"name": "xml_feed", "folder": "Sales", "type": "XML Parser"},
		},
		Sources: []interfaces.RawRecord{
			{"name": "src_orders", "folder": "Sales"},
		},
	}
}

func TestDiscoverPersistsObjectsAndUpdatesStats(t *testing.T) {
	storage := newMemStorage()
	project, _ := seedProject(storage, models.ProtocolREST)

	adapter := &fakeAdapter{payload: samplePayload()}
	discoverer := NewDiscovererWithFactory(storage, testRules(), factoryFor(adapter), arbor.NewLogger())

	result, err := discoverer.Discover(context.Background(), project.ID)
	require.NoError(t, err)

	assert.Equal(t, 6, result.Total)
	assert.Equal(t, 1, result.ByKind[models.KindWorkflow])
	assert.Equal(t, 2, result.ByKind[models.KindMapping])
	assert.Equal(t, 2, result.ByKind[models.KindTransformation])
	assert.Equal(t, 1, result.ByKind[models.KindSource])

	objects, err := storage.ListObjects(project.ID)
	require.NoError(t, err)
	assert.Len(t, objects, 6)

	// Workflow, both mappings, both source and the supported transformation
	// are above the FULLY_AUTO threshold; only the mappings, source and
	// workflow actually land there.
	updated, err := storage.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.TotalObjects)
	assert.Equal(t, 66, updated.AutoMigrationPercentage)
}

func TestDiscoverReplacesPreviousObjectSet(t *testing.T) {
	storage := newMemStorage()
	project, _ := seedProject(storage, models.ProtocolREST)

	adapter := &fakeAdapter{payload: samplePayload()}
	discoverer := NewDiscovererWithFactory(storage, testRules(), factoryFor(adapter), arbor.NewLogger())

	_, err := discoverer.Discover(context.Background(), project.ID)
	require.NoError(t, err)

	adapter.payload = &interfaces.RawDiscoveryPayload{
		Workflows: []interfaces.RawRecord{
			{"name": "wf_load_orders", "folder": "Sales"},
		},
	}

	result, err := discoverer.Discover(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)

	objects, err := storage.ListObjects(project.ID)
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}

func TestDiscoverEmptyRepositoryZeroesStats(t *testing.T) {
	storage := newMemStorage()
	project, _ := seedProject(storage, models.ProtocolCLI)

	adapter := &fakeAdapter{payload: &interfaces.RawDiscoveryPayload{}}
	discoverer := NewDiscovererWithFactory(storage, testRules(), factoryFor(adapter), arbor.NewLogger())

	result, err := discoverer.Discover(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)

	updated, err := storage.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.TotalObjects)
	assert.Equal(t, 0, updated.AutoMigrationPercentage)
}

func TestDiscoverAbortsWithoutPartialPersist(t *testing.T) {
	storage := newMemStorage()
	project, _ := seedProject(storage, models.ProtocolREST)

	adapter := &fakeAdapter{payload: samplePayload()}
	discoverer := NewDiscovererWithFactory(storage, testRules(), factoryFor(adapter), arbor.NewLogger())

	_, err := discoverer.Discover(context.Background(), project.ID)
	require.NoError(t, err)

	adapter.err = errors.New("repository unreachable")
	_, err = discoverer.Discover(context.Background(), project.ID)
	require.Error(t, err)

	// The earlier object set survives a failed re-run.
	objects, err := storage.ListObjects(project.ID)
	require.NoError(t, err)
	assert.Len(t, objects, 6)
}

func TestDetectChangesCountsDrift(t *testing.T) {
	storage := newMemStorage()
	project, _ := seedProject(storage, models.ProtocolREST)

	adapter := &fakeAdapter{payload: samplePayload()}
	discoverer := NewDiscovererWithFactory(storage, testRules(), factoryFor(adapter), arbor.NewLogger())

	_, err := discoverer.Discover(context.Background(), project.ID)
	require.NoError(t, err)

	changed, err := discoverer.DetectChanges(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)

	// One record mutated, one removed, one added: three drifted objects.
	next := samplePayload()
	next.Workflows[0]["transformation_count"] = 7
	next.Sources = nil
	next.Targets = []interfaces.RawRecord{{"name": "tgt_orders", "folder": "Sales"}}
	adapter.payload = next

	changed, err = discoverer.DetectChanges(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, changed)

	// Change detection never persists objects; the stored set is untouched.
	objects, err := storage.ListObjects(project.ID)
	require.NoError(t, err)
	assert.Len(t, objects, 6)
}

func TestDetectChangesRecordsConnectionContact(t *testing.T) {
	storage := newMemStorage()
	project, conn := seedProject(storage, models.ProtocolREST)

	adapter := &fakeAdapter{payload: &interfaces.RawDiscoveryPayload{}}
	discoverer := NewDiscovererWithFactory(storage, testRules(), factoryFor(adapter), arbor.NewLogger())

	_, err := discoverer.DetectChanges(context.Background(), project.ID)
	require.NoError(t, err)

	updated, err := storage.GetConnection(conn.ID)
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.False(t, updated.LastContact.IsZero())
}

func TestConnectionProbeOutcomeRecorded(t *testing.T) {
	storage := newMemStorage()
	_, conn := seedProject(storage, models.ProtocolREST)

	adapter := &fakeAdapter{}
	discoverer := NewDiscovererWithFactory(storage, testRules(), factoryFor(adapter), arbor.NewLogger())

	require.NoError(t, discoverer.TestConnection(context.Background(), conn.ID))

	updated, err := storage.GetConnection(conn.ID)
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.False(t, updated.LastContact.IsZero())

	adapter.probeErr = errors.New("repository unreachable")
	require.Error(t, discoverer.TestConnection(context.Background(), conn.ID))

	updated, err = storage.GetConnection(conn.ID)
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

func TestDiscoverUnknownProject(t *testing.T) {
	storage := newMemStorage()
	adapter := &fakeAdapter{payload: &interfaces.RawDiscoveryPayload{}}
	discoverer := NewDiscovererWithFactory(storage, testRules(), factoryFor(adapter), arbor.NewLogger())

	_, err := discoverer.Discover(context.Background(), "missing")
	require.Error(t, err)
}
