package services

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"metamigrate/internal/common"
	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T) interfaces.Storage {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStorage(&common.StorageConfig{
		DatabasePath: filepath.Join(dir, "metamigrate.db"),
		BackupDir:    filepath.Join(dir, "backups"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testObject(projectID, name string) *models.DiscoveredObject {
	return &models.DiscoveredObject{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Folder:    "Sales",
		Kind:      models.KindMapping,
		Hash:      "abc123",
	}
}

func TestConnectionRoundTrip(t *testing.T) {
	store := openTestStorage(t)

	conn := &models.RepositoryConnection{
		ID:       uuid.NewString(),
		Name:     "dev repository",
		Host:     "repo.internal",
		Port:     8443,
		Protocol: models.ProtocolREST,
		Created:  time.Now(),
	}
	require.NoError(t, store.SaveConnection(conn))

	loaded, err := store.GetConnection(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.Name, loaded.Name)
	assert.Equal(t, models.ProtocolREST, loaded.Protocol)

	conns, err := store.ListConnections()
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	require.NoError(t, store.DeleteConnection(conn.ID))
	_, err = store.GetConnection(conn.ID)
	assert.True(t, common.IsNotFound(err))
}

func TestSaveConnectionRequiresID(t *testing.T) {
	store := openTestStorage(t)
	err := store.SaveConnection(&models.RepositoryConnection{Name: "no id"})
	require.Error(t, err)
	assert.Equal(t, common.ErrorTypeValidation, common.TypeOf(err))
}

func TestReplaceObjectsSupersedesPreviousSet(t *testing.T) {
	store := openTestStorage(t)
	projectID := uuid.NewString()

	first := []*models.DiscoveredObject{
		testObject(projectID, "m_orders"),
		testObject(projectID, "m_customers"),
		testObject(projectID, "m_invoices"),
	}
	require.NoError(t, store.ReplaceObjects(projectID, first))

	objects, err := store.ListObjects(projectID)
	require.NoError(t, err)
	assert.Len(t, objects, 3)

	second := []*models.DiscoveredObject{testObject(projectID, "m_orders")}
	require.NoError(t, store.ReplaceObjects(projectID, second))

	objects, err = store.ListObjects(projectID)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "m_orders", objects[0].Name)
}

func TestObjectsAreScopedPerProject(t *testing.T) {
	store := openTestStorage(t)
	projectA := "project-a"
	projectB := "project-b"

	require.NoError(t, store.ReplaceObjects(projectA, []*models.DiscoveredObject{
		testObject(projectA, "m_orders"),
	}))
	require.NoError(t, store.ReplaceObjects(projectB, []*models.DiscoveredObject{
		testObject(projectB, "m_orders"),
		testObject(projectB, "m_customers"),
	}))

	// Replacing one project's set must not touch the other's.
	require.NoError(t, store.ReplaceObjects(projectA, nil))

	objects, err := store.ListObjects(projectA)
	require.NoError(t, err)
	assert.Empty(t, objects)

	objects, err = store.ListObjects(projectB)
	require.NoError(t, err)
	assert.Len(t, objects, 2)
}

func TestAssessmentHistoryListsInRunOrder(t *testing.T) {
	store := openTestStorage(t)
	projectID := uuid.NewString()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveAssessment(&models.AssessmentResult{
			ID:                 uuid.NewString(),
			ProjectID:          projectID,
			Kind:               models.AssessmentComplexity,
			AutomationCoverage: 50 + i*10,
			Created:            base.Add(time.Duration(i) * time.Hour),
		}))
	}

	results, err := store.ListAssessments(projectID)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 50, results[0].AutomationCoverage)
	assert.Equal(t, 60, results[1].AutomationCoverage)
	assert.Equal(t, 70, results[2].AutomationCoverage)
}

func TestPruneAssessmentsDropsOldHistory(t *testing.T) {
	store := openTestStorage(t)
	projectID := uuid.NewString()

	old := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	for _, created := range []time.Time{old, recent} {
		require.NoError(t, store.SaveAssessment(&models.AssessmentResult{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Created:   created,
		}))
	}

	maintainer, ok := store.(interfaces.Maintainer)
	require.True(t, ok)
	require.NoError(t, maintainer.PruneAssessments(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))

	results, err := store.ListAssessments(projectID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, recent, results[0].Created.UTC())
}

func TestBackupWritesSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	store, err := NewStorage(&common.StorageConfig{
		DatabasePath: filepath.Join(dir, "metamigrate.db"),
		BackupDir:    backupDir,
	})
	require.NoError(t, err)
	defer store.Close()

	maintainer, ok := store.(interfaces.Maintainer)
	require.True(t, ok)
	require.NoError(t, maintainer.Backup())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIssueUpdateRequiresExistingRecord(t *testing.T) {
	store := openTestStorage(t)
	projectID := uuid.NewString()

	issue := &models.Issue{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Severity:  "high",
		Message:   "Unsupported transformation type: XML Parser",
	}
	require.NoError(t, store.SaveIssue(issue))

	issue.Resolved = true
	require.NoError(t, store.UpdateIssue(issue))

	issues, err := store.ListIssues(projectID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Resolved)
	assert.False(t, issues[0].Updated.IsZero())

	missing := &models.Issue{ID: uuid.NewString(), ProjectID: projectID}
	err = store.UpdateIssue(missing)
	assert.True(t, common.IsNotFound(err))
}

func TestSyncStatusUpsert(t *testing.T) {
	store := openTestStorage(t)
	projectID := uuid.NewString()

	_, err := store.GetSyncStatus(projectID)
	assert.True(t, common.IsNotFound(err))

	require.NoError(t, store.PutSyncStatus(&models.SyncStatus{
		ProjectID: projectID,
		Type:      models.SyncFull,
		State:     models.SyncStateSyncing,
	}))
	require.NoError(t, store.PutSyncStatus(&models.SyncStatus{
		ProjectID:      projectID,
		Type:           models.SyncFull,
		State:          models.SyncStateCompleted,
		ItemsProcessed: 12,
	}))

	status, err := store.GetSyncStatus(projectID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateCompleted, status.State)
	assert.Equal(t, 12, status.ItemsProcessed)
}

func TestDeleteProjectCascades(t *testing.T) {
	store := openTestStorage(t)

	project := &models.Project{
		ID:           uuid.NewString(),
		Name:         "legacy sales ETL",
		ConnectionID: "conn-1",
		Created:      time.Now(),
	}
	require.NoError(t, store.SaveProject(project))
	require.NoError(t, store.ReplaceObjects(project.ID, []*models.DiscoveredObject{
		testObject(project.ID, "m_orders"),
	}))
	require.NoError(t, store.SaveAssessment(&models.AssessmentResult{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		Created:   time.Now(),
	}))
	require.NoError(t, store.SaveIssue(&models.Issue{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		Severity:  "medium",
	}))
	require.NoError(t, store.PutSyncStatus(&models.SyncStatus{
		ProjectID: project.ID,
		State:     models.SyncStateCompleted,
	}))

	require.NoError(t, store.DeleteProject(project.ID))

	_, err := store.GetProject(project.ID)
	assert.True(t, common.IsNotFound(err))

	objects, err := store.ListObjects(project.ID)
	require.NoError(t, err)
	assert.Empty(t, objects)

	results, err := store.ListAssessments(project.ID)
	require.NoError(t, err)
	assert.Empty(t, results)

	issues, err := store.ListIssues(project.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)

	_, err = store.GetSyncStatus(project.ID)
	assert.True(t, common.IsNotFound(err))
}

func TestListProjectsReturnsAll(t *testing.T) {
	store := openTestStorage(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveProject(&models.Project{
			ID:   uuid.NewString(),
			Name: fmt.Sprintf("project %d", i),
		}))
	}

	projects, err := store.ListProjects()
	require.NoError(t, err)
	assert.Len(t, projects, 3)
}
