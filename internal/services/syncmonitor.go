package services

import (
	"context"
	"sync"
	"time"

	"metamigrate/internal/common"
	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	"github.com/ternarybob/arbor"
)

// ChangeDetector is the probe a sync cycle polls the repository with.
// Satisfied by Discoverer; tests substitute fakes.
type ChangeDetector interface {
	DetectChanges(ctx context.Context, projectID string) (int, error)
}

// StatusListener observes sync status transitions (the websocket hub hangs
// off this). May be nil.
type StatusListener func(status *models.SyncStatus)

type syncTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// syncMonitor runs one cancellable background task per project, polling the
// repository for drift on a fixed interval until a bounded lifetime expires.
// Cycle failures are recorded in the project's SyncStatus and never crash
// the task.
type syncMonitor struct {
	storage  interfaces.Storage
	detector ChangeDetector
	interval time.Duration
	lifetime time.Duration
	logger   arbor.ILogger
	listener StatusListener

	mu    sync.Mutex
	tasks map[string]*syncTask

	// statusMu serializes SyncStatus writes per project so a concurrent
	// manual discovery cannot race a sync cycle's update.
	statusMu sync.Mutex
}

// NewSyncMonitor creates the monitor from configuration.
func NewSyncMonitor(storage interfaces.Storage, detector ChangeDetector, config *common.SyncConfig, logger arbor.ILogger, listener StatusListener) interfaces.SyncMonitor {
	return newSyncMonitor(storage, detector,
		time.Duration(config.IntervalSeconds)*time.Second,
		time.Duration(config.LifetimeHours)*time.Hour,
		logger, listener)
}

func newSyncMonitor(storage interfaces.Storage, detector ChangeDetector, interval, lifetime time.Duration, logger arbor.ILogger, listener StatusListener) *syncMonitor {
	return &syncMonitor{
		storage:  storage,
		detector: detector,
		interval: interval,
		lifetime: lifetime,
		logger:   logger,
		listener: listener,
		tasks:    make(map[string]*syncTask),
	}
}

// Start schedules the sync task for a project. Starting while a task is
// already running is a no-op that returns the current status rather than
// spawning a duplicate. Start succeeds once the task is scheduled, even if
// the first cycle later fails.
func (m *syncMonitor) Start(projectID string) (*models.SyncStatus, error) {
	if _, err := m.storage.GetProject(projectID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, running := m.tasks[projectID]; running {
		status, err := m.storage.GetSyncStatus(projectID)
		if err != nil {
			return nil, err
		}
		return status, nil
	}

	syncType := models.SyncIncremental
	if _, err := m.storage.GetSyncStatus(projectID); common.IsNotFound(err) {
		// First-ever sync for this project.
		syncType = models.SyncFull
	}

	status := &models.SyncStatus{
		ProjectID: projectID,
		Type:      syncType,
		State:     models.SyncStateSyncing,
		Updated:   time.Now(),
	}
	if err := m.writeStatus(status); err != nil {
		return nil, err
	}

	// Monotonic deadline bounds the task's total lifetime.
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(m.lifetime))
	task := &syncTask{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.tasks[projectID] = task

	go m.run(ctx, projectID, syncType, task)

	m.logger.Info().
		Str("project", projectID).
		Str("type", string(syncType)).
		Msg("Sync task started")

	return status, nil
}

// Stop cancels the project's task and waits for it to exit.
func (m *syncMonitor) Stop(projectID string) {
	m.mu.Lock()
	task, ok := m.tasks[projectID]
	m.mu.Unlock()

	if !ok {
		return
	}
	task.cancel()
	<-task.done
}

// StopAll cancels every task; used at shutdown.
func (m *syncMonitor) StopAll() {
	m.mu.Lock()
	tasks := make([]*syncTask, 0, len(m.tasks))
	for _, task := range m.tasks {
		tasks = append(tasks, task)
	}
	m.mu.Unlock()

	for _, task := range tasks {
		task.cancel()
		<-task.done
	}
}

func (m *syncMonitor) run(ctx context.Context, projectID string, syncType models.SyncType, task *syncTask) {
	defer close(task.done)
	defer func() {
		m.mu.Lock()
		delete(m.tasks, projectID)
		m.mu.Unlock()
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// First cycle runs immediately; later cycles follow the interval.
	m.cycle(ctx, projectID, syncType)

	for {
		select {
		case <-ctx.Done():
			// Lifetime expired or task cancelled. The status record is
			// left in its last reported state; restarting requires an
			// explicit new Start call.
			m.logger.Info().Str("project", projectID).Msg("Sync task finished")
			return
		case <-ticker.C:
			m.cycle(ctx, projectID, models.SyncIncremental)
		}
	}
}

// cycle performs one polling iteration. The adapter call is bounded by the
// interval so a hung call cannot push the next cycle back more than one
// period.
func (m *syncMonitor) cycle(ctx context.Context, projectID string, syncType models.SyncType) {
	if ctx.Err() != nil {
		return
	}

	cycleCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	changed, err := m.detector.DetectChanges(cycleCtx, projectID)

	if ctx.Err() != nil {
		// Cancelled mid-flight; leave the record at its last state.
		return
	}

	now := time.Now()
	status := &models.SyncStatus{
		ProjectID: projectID,
		Type:      syncType,
		Updated:   now,
	}

	if err != nil {
		status.State = models.SyncStateFailed
		status.Errors = []string{err.Error()}
		if prev, prevErr := m.storage.GetSyncStatus(projectID); prevErr == nil {
			status.LastSync = prev.LastSync
			status.ItemsProcessed = prev.ItemsProcessed
		}
		m.logger.Warn().Err(err).Str("project", projectID).Msg("Sync cycle failed")
	} else {
		status.State = models.SyncStateCompleted
		status.ItemsProcessed = changed
		status.LastSync = now
		m.logger.Debug().
			Str("project", projectID).
			Int("changed", changed).
			Msg("Sync cycle completed")
	}

	if writeErr := m.writeStatus(status); writeErr != nil {
		m.logger.Warn().Err(writeErr).Str("project", projectID).Msg("Failed to persist sync status")
	}
}

func (m *syncMonitor) writeStatus(status *models.SyncStatus) error {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	if err := m.storage.PutSyncStatus(status); err != nil {
		return err
	}
	if m.listener != nil {
		m.listener(status)
	}
	return nil
}
