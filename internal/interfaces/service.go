package interfaces

import (
	"context"

	"metamigrate/internal/models"
)

// DiscoveryService runs the discovery pipeline and the connection probe.
type DiscoveryService interface {
	// TestConnection probes the connection's liveness and records the
	// outcome on the connection entity.
	TestConnection(ctx context.Context, connectionID string) error

	// Discover pulls, normalizes and persists the project's full object
	// set, superseding any previous set.
	Discover(ctx context.Context, projectID string) (*models.DiscoveryResult, error)
}

// AssessmentService produces project-level assessments from persisted
// objects.
type AssessmentService interface {
	RunAssessment(projectID string) (*models.AssessmentResult, error)
}

// WebService is the HTTP surface of the service.
type WebService interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}

// SyncMonitor owns the background drift-detection tasks, one per project.
type SyncMonitor interface {
	// Start schedules a sync task for the project. Starting while a task
	// is already SYNCING is a no-op that returns the existing status.
	Start(projectID string) (*models.SyncStatus, error)

	// Stop cancels the project's task if one is running.
	Stop(projectID string)

	// StopAll cancels every running task and waits for them to exit.
	StopAll()
}
