package interfaces

import (
	"time"

	"metamigrate/internal/models"
)

// Storage is the persistence facade the core depends on. The bbolt
// implementation lives in the services package; tests substitute their own.
type Storage interface {
	SaveConnection(conn *models.RepositoryConnection) error
	GetConnection(id string) (*models.RepositoryConnection, error)
	ListConnections() ([]*models.RepositoryConnection, error)
	DeleteConnection(id string) error

	SaveProject(project *models.Project) error
	GetProject(id string) (*models.Project, error)
	ListProjects() ([]*models.Project, error)
	DeleteProject(id string) error

	// ReplaceObjects atomically supersedes the project's whole object set
	// with the given discovery output.
	ReplaceObjects(projectID string, objects []*models.DiscoveredObject) error
	ListObjects(projectID string) ([]*models.DiscoveredObject, error)

	SaveAssessment(result *models.AssessmentResult) error
	ListAssessments(projectID string) ([]*models.AssessmentResult, error)

	SaveIssue(issue *models.Issue) error
	ListIssues(projectID string) ([]*models.Issue, error)
	UpdateIssue(issue *models.Issue) error

	// GetSyncStatus returns a not-found error for projects that never synced.
	GetSyncStatus(projectID string) (*models.SyncStatus, error)
	PutSyncStatus(status *models.SyncStatus) error

	Close() error
}

// Maintainer is the optional maintenance surface of a Storage
// implementation. The database handler probes for it with a type assertion.
type Maintainer interface {
	Backup() error
	PruneAssessments(olderThan time.Time) error
}
