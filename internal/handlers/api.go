package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"metamigrate/internal/common"
	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

// APIHandlers contains all API endpoint handlers
type APIHandlers struct {
	config      *common.Config
	storage     interfaces.Storage
	discoverer  interfaces.DiscoveryService
	assessor    interfaces.AssessmentService
	syncMonitor interfaces.SyncMonitor
	logger      arbor.ILogger
	startTime   time.Time
	wsHub       *WebSocketHub
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Build     string    `json:"build"`
	Uptime    float64   `json:"uptime_seconds"`
	Services  struct {
		Database bool `json:"database"`
	} `json:"services"`
}

// VersionResponse represents version information
type VersionResponse struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// ConfigResponse is the sanitized configuration view; credentials are never
// echoed back.
type ConfigResponse struct {
	Service    *common.ServiceConfig `json:"service"`
	Storage    *common.StorageConfig `json:"storage"`
	Logging    *common.LoggingConfig `json:"logging"`
	Repository struct {
		Host           string `json:"host"`
		Port           int    `json:"port"`
		Protocol       string `json:"protocol"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	} `json:"repository"`
	Sync  *common.SyncConfig  `json:"sync"`
	Rules *common.RulesConfig `json:"rules"`
}

// OperationResponse is the generic success/failure envelope for the core
// operations.
type OperationResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

type createConnectionRequest struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

type createProjectRequest struct {
	Name         string `json:"name"`
	ConnectionID string `json:"connection_id"`
	Description  string `json:"description"`
}

type projectRequest struct {
	ProjectID string `json:"project_id"`
}

type updateIssueRequest struct {
	ProjectID string `json:"project_id"`
	ID        string `json:"id"`
	Resolved  bool   `json:"resolved"`
}

type databaseRequest struct {
	Action string `json:"action"`
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(config *common.Config, storage interfaces.Storage, discoverer interfaces.DiscoveryService, assessor interfaces.AssessmentService, syncMonitor interfaces.SyncMonitor, logger arbor.ILogger, wsHub *WebSocketHub) *APIHandlers {
	return &APIHandlers{
		config:      config,
		storage:     storage,
		discoverer:  discoverer,
		assessor:    assessor,
		syncMonitor: syncMonitor,
		logger:      logger,
		startTime:   time.Now(),
		wsHub:       wsHub,
	}
}

// HealthHandler returns system health status
func (h *APIHandlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   common.GetVersion(),
		Build:     common.GetBuild(),
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	_, err := h.storage.ListProjects()
	health.Services.Database = err == nil

	h.writeJSON(w, http.StatusOK, health)
}

// VersionHandler returns version information
func (h *APIHandlers) VersionHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, VersionResponse{
		Version: common.GetVersion(),
		Build:   common.GetBuild(),
		Commit:  common.GetGitCommit(),
	})
}

// ConfigHandler returns the sanitized active configuration
func (h *APIHandlers) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	resp := ConfigResponse{
		Service: &h.config.Service,
		Storage: &h.config.Storage,
		Logging: &h.config.Logging,
		Sync:    &h.config.Sync,
		Rules:   &h.config.Rules,
	}
	resp.Repository.Host = h.config.Repository.Host
	resp.Repository.Port = h.config.Repository.Port
	resp.Repository.Protocol = h.config.Repository.Protocol
	resp.Repository.TimeoutSeconds = h.config.Repository.TimeoutSeconds

	h.writeJSON(w, http.StatusOK, resp)
}

// ConnectionsHandler lists and creates repository connections
func (h *APIHandlers) ConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		conns, err := h.storage.ListConnections()
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, conns)

	case http.MethodPost:
		var req createConnectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, common.NewValidationError("BAD_BODY", "invalid request body"))
			return
		}
		if req.Name == "" || req.Host == "" || req.Port <= 0 {
			h.writeError(w, common.NewValidationError("MISSING_FIELDS", "name, host and port are required"))
			return
		}
		protocol := models.Protocol(req.Protocol)
		if protocol != models.ProtocolREST && protocol != models.ProtocolCLI {
			h.writeError(w, common.NewValidationError("BAD_PROTOCOL", "protocol must be REST or CLI"))
			return
		}

		conn := &models.RepositoryConnection{
			ID:       uuid.NewString(),
			Name:     req.Name,
			Host:     req.Host,
			Port:     req.Port,
			Protocol: protocol,
			Created:  time.Now(),
		}
		if err := h.storage.SaveConnection(conn); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, conn)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			h.writeError(w, common.NewValidationError("MISSING_ID", "connection id is required"))
			return
		}
		if _, err := h.storage.GetConnection(id); err != nil {
			h.writeError(w, err)
			return
		}
		if err := h.storage.DeleteConnection(id); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, OperationResponse{Success: true, Message: "connection deleted"})

	default:
		h.methodNotAllowed(w)
	}
}

// TestConnectionHandler probes a connection's liveness
func (h *APIHandlers) TestConnectionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, common.NewValidationError("MISSING_ID", "connection id is required"))
		return
	}

	if err := h.discoverer.TestConnection(r.Context(), id); err != nil {
		if common.IsNotFound(err) {
			h.writeError(w, err)
			return
		}
		// Probe failure is a result, not a transport error.
		h.writeJSON(w, http.StatusOK, OperationResponse{Success: false, Message: err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, OperationResponse{Success: true, Message: "connection is reachable"})
}

// ProjectsHandler lists, creates and deletes projects
func (h *APIHandlers) ProjectsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projects, err := h.storage.ListProjects()
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, projects)

	case http.MethodPost:
		var req createProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, common.NewValidationError("BAD_BODY", "invalid request body"))
			return
		}
		if req.Name == "" || req.ConnectionID == "" {
			h.writeError(w, common.NewValidationError("MISSING_FIELDS", "name and connection_id are required"))
			return
		}
		if _, err := h.storage.GetConnection(req.ConnectionID); err != nil {
			h.writeError(w, err)
			return
		}

		now := time.Now()
		project := &models.Project{
			ID:           uuid.NewString(),
			Name:         req.Name,
			ConnectionID: req.ConnectionID,
			Description:  req.Description,
			Created:      now,
			Updated:      now,
		}
		if err := h.storage.SaveProject(project); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, project)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			h.writeError(w, common.NewValidationError("MISSING_ID", "project id is required"))
			return
		}
		if _, err := h.storage.GetProject(id); err != nil {
			h.writeError(w, err)
			return
		}
		// Cancel the project's sync task before its record goes away.
		h.syncMonitor.Stop(id)
		if err := h.storage.DeleteProject(id); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, OperationResponse{Success: true, Message: "project deleted"})

	default:
		h.methodNotAllowed(w)
	}
}

// ObjectsHandler lists a project's discovered objects
func (h *APIHandlers) ObjectsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w)
		return
	}

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		h.writeError(w, common.NewValidationError("MISSING_PROJECT", "project_id is required"))
		return
	}
	if _, err := h.storage.GetProject(projectID); err != nil {
		h.writeError(w, err)
		return
	}

	objects, err := h.storage.ListObjects(projectID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, objects)
}

// DiscoverHandler runs a discovery for a project
func (h *APIHandlers) DiscoverHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w)
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectID == "" {
		h.writeError(w, common.NewValidationError("MISSING_PROJECT", "project_id is required"))
		return
	}

	result, err := h.discoverer.Discover(r.Context(), req.ProjectID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, OperationResponse{Success: true, Result: result})
}

// AssessHandler runs an assessment for a project
func (h *APIHandlers) AssessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w)
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectID == "" {
		h.writeError(w, common.NewValidationError("MISSING_PROJECT", "project_id is required"))
		return
	}

	result, err := h.assessor.RunAssessment(req.ProjectID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, OperationResponse{Success: true, Result: result})
}

// AssessmentsHandler lists a project's assessment history
func (h *APIHandlers) AssessmentsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w)
		return
	}

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		h.writeError(w, common.NewValidationError("MISSING_PROJECT", "project_id is required"))
		return
	}

	results, err := h.storage.ListAssessments(projectID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

// IssuesHandler lists and updates migration issues
func (h *APIHandlers) IssuesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projectID := r.URL.Query().Get("project_id")
		if projectID == "" {
			h.writeError(w, common.NewValidationError("MISSING_PROJECT", "project_id is required"))
			return
		}
		issues, err := h.storage.ListIssues(projectID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, issues)

	case http.MethodPut:
		var req updateIssueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" || req.ProjectID == "" {
			h.writeError(w, common.NewValidationError("MISSING_FIELDS", "project_id and id are required"))
			return
		}

		issues, err := h.storage.ListIssues(req.ProjectID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		var issue *models.Issue
		for _, candidate := range issues {
			if candidate.ID == req.ID {
				issue = candidate
				break
			}
		}
		if issue == nil {
			h.writeError(w, common.NewNotFoundError("ISSUE_NOT_FOUND", "issue not found"))
			return
		}

		issue.Resolved = req.Resolved
		if err := h.storage.UpdateIssue(issue); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, issue)

	default:
		h.methodNotAllowed(w)
	}
}

// StartSyncHandler schedules background sync for a project. The call succeeds
// once the task is scheduled; cycle failures surface only through the status
// record.
func (h *APIHandlers) StartSyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w)
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectID == "" {
		h.writeError(w, common.NewValidationError("MISSING_PROJECT", "project_id is required"))
		return
	}

	status, err := h.syncMonitor.Start(req.ProjectID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, OperationResponse{Success: true, Result: status})
}

// SyncStatusHandler reads a project's sync health
func (h *APIHandlers) SyncStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w)
		return
	}

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		h.writeError(w, common.NewValidationError("MISSING_PROJECT", "project_id is required"))
		return
	}

	status, err := h.storage.GetSyncStatus(projectID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

// DatabaseHandler performs storage maintenance operations
func (h *APIHandlers) DatabaseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w)
		return
	}

	maintainer, ok := h.storage.(interfaces.Maintainer)
	if !ok {
		h.writeError(w, common.NewInternalError("NO_MAINTENANCE", "storage does not support maintenance"))
		return
	}

	var req databaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, common.NewValidationError("BAD_BODY", "invalid request body"))
		return
	}

	switch req.Action {
	case "backup":
		if err := maintainer.Backup(); err != nil {
			h.writeError(w, common.WrapError(err, common.ErrorTypeStorage, "BACKUP_FAILED", "database backup failed"))
			return
		}
		h.writeJSON(w, http.StatusOK, OperationResponse{Success: true, Message: "backup created"})

	case "prune":
		cutoff := time.Now().AddDate(0, 0, -h.config.Storage.RetentionDays)
		if err := maintainer.PruneAssessments(cutoff); err != nil {
			h.writeError(w, common.WrapError(err, common.ErrorTypeStorage, "PRUNE_FAILED", "assessment prune failed"))
			return
		}
		h.writeJSON(w, http.StatusOK, OperationResponse{Success: true, Message: "old assessments pruned"})

	default:
		h.writeError(w, common.NewValidationError("BAD_ACTION", "action must be backup or prune"))
	}
}

func (h *APIHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func (h *APIHandlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch common.TypeOf(err) {
	case common.ErrorTypeValidation:
		status = http.StatusBadRequest
	case common.ErrorTypeNotFound:
		status = http.StatusNotFound
	case common.ErrorTypeConnection:
		status = http.StatusBadGateway
	}

	h.writeJSON(w, status, OperationResponse{Success: false, Message: err.Error()})
}

func (h *APIHandlers) methodNotAllowed(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusMethodNotAllowed, OperationResponse{Success: false, Message: "method not allowed"})
}
