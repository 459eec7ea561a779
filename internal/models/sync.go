package models

import "time"

// SyncType distinguishes a project's first full discovery from the
// incremental cycles that follow.
type SyncType string

const (
	SyncFull        SyncType = "FULL"
	SyncIncremental SyncType = "INCREMENTAL"
)

// SyncState is the state of the background sync task for a project.
type SyncState string

const (
	SyncStateSyncing   SyncState = "SYNCING"
	SyncStateCompleted SyncState = "COMPLETED"
	SyncStateFailed    SyncState = "FAILED"
)

// SyncStatus is the single logical sync record per project. Each polling
// cycle replaces it atomically; no history is retained.
type SyncStatus struct {
	ProjectID      string    `json:"project_id"`
	LastSync       time.Time `json:"last_sync,omitempty"`
	Type           SyncType  `json:"type"`
	State          SyncState `json:"state"`
	ItemsProcessed int       `json:"items_processed"`
	Errors         []string  `json:"errors,omitempty"`
	Updated        time.Time `json:"updated"`
}
