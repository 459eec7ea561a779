package services

import (
	"fmt"
	"sync"
	"time"

	"metamigrate/internal/common"
	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"
)

// memStorage is an in-memory Storage used by the service tests.
type memStorage struct {
	mu          sync.Mutex
	connections map[string]*models.RepositoryConnection
	projects    map[string]*models.Project
	objects     map[string][]*models.DiscoveredObject
	assessments map[string][]*models.AssessmentResult
	issues      map[string][]*models.Issue
	syncStatus  map[string]*models.SyncStatus
}

func newMemStorage() *memStorage {
	return &memStorage{
		connections: make(map[string]*models.RepositoryConnection),
		projects:    make(map[string]*models.Project),
		objects:     make(map[string][]*models.DiscoveredObject),
		assessments: make(map[string][]*models.AssessmentResult),
		issues:      make(map[string][]*models.Issue),
		syncStatus:  make(map[string]*models.SyncStatus),
	}
}

func (m *memStorage) SaveConnection(conn *models.RepositoryConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *conn
	m.connections[conn.ID] = &copied
	return nil
}

func (m *memStorage) GetConnection(id string) (*models.RepositoryConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.connections[id]
	if !ok {
		return nil, common.NewNotFoundError("CONNECTION_NOT_FOUND", fmt.Sprintf("connection %s not found", id))
	}
	copied := *conn
	return &copied, nil
}

func (m *memStorage) ListConnections() ([]*models.RepositoryConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var conns []*models.RepositoryConnection
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	return conns, nil
}

func (m *memStorage) DeleteConnection(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, id)
	return nil
}

func (m *memStorage) SaveProject(project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *project
	m.projects[project.ID] = &copied
	return nil
}

func (m *memStorage) GetProject(id string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[id]
	if !ok {
		return nil, common.NewNotFoundError("PROJECT_NOT_FOUND", fmt.Sprintf("project %s not found", id))
	}
	copied := *project
	return &copied, nil
}

func (m *memStorage) ListProjects() ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var projects []*models.Project
	for _, project := range m.projects {
		projects = append(projects, project)
	}
	return projects, nil
}

func (m *memStorage) DeleteProject(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	delete(m.objects, id)
	delete(m.assessments, id)
	delete(m.issues, id)
	delete(m.syncStatus, id)
	return nil
}

func (m *memStorage) ReplaceObjects(projectID string, objects []*models.DiscoveredObject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[projectID] = append([]*models.DiscoveredObject(nil), objects...)
	return nil
}

func (m *memStorage) ListObjects(projectID string) ([]*models.DiscoveredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.DiscoveredObject(nil), m.objects[projectID]...), nil
}

func (m *memStorage) SaveAssessment(result *models.AssessmentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[result.ProjectID] = append(m.assessments[result.ProjectID], result)
	return nil
}

func (m *memStorage) ListAssessments(projectID string) ([]*models.AssessmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AssessmentResult(nil), m.assessments[projectID]...), nil
}

func (m *memStorage) SaveIssue(issue *models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[issue.ProjectID] = append(m.issues[issue.ProjectID], issue)
	return nil
}

func (m *memStorage) ListIssues(projectID string) ([]*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Issue(nil), m.issues[projectID]...), nil
}

func (m *memStorage) UpdateIssue(issue *models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.issues[issue.ProjectID] {
		if existing.ID == issue.ID {
			m.issues[issue.ProjectID][i] = issue
			return nil
		}
	}
	return common.NewNotFoundError("ISSUE_NOT_FOUND", "issue not found")
}

func (m *memStorage) GetSyncStatus(projectID string) (*models.SyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.syncStatus[projectID]
	if !ok {
		return nil, common.NewNotFoundError("SYNC_STATUS_NOT_FOUND", "no sync status")
	}
	copied := *status
	return &copied, nil
}

func (m *memStorage) PutSyncStatus(status *models.SyncStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *status
	m.syncStatus[status.ProjectID] = &copied
	return nil
}

func (m *memStorage) Close() error { return nil }

var _ interfaces.Storage = (*memStorage)(nil)

func testRules() *RuleSet {
	return NewRuleSet(&common.RulesConfig{
		UnsupportedTransformationTypes: []string{"XML Parser", "MQ Source Qualifier"},
		LegacyExpressionFunctions:      []string{"DECODE"},
	})
}

func seedProject(storage *memStorage, connProtocol models.Protocol) (*models.Project, *models.RepositoryConnection) {
	conn := &models.RepositoryConnection{
		ID:       "conn-1",
		Name:     "legacy",
		Host:     "localhost",
		Port:     6005,
		Protocol: connProtocol,
		Created:  time.Now(),
	}
	storage.SaveConnection(conn)

	project := &models.Project{
		ID:           "proj-1",
		Name:         "finance-dw",
		ConnectionID: conn.ID,
		Created:      time.Now(),
		Updated:      time.Now(),
	}
	storage.SaveProject(project)

	return project, conn
}
