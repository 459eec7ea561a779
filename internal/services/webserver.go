package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"metamigrate/internal/common"
	"metamigrate/internal/handlers"
	"metamigrate/internal/interfaces"
	"metamigrate/internal/middleware"

	"github.com/ternarybob/arbor"
)

// webServer exposes the four core operations plus entity reads over HTTP.
type webServer struct {
	config    *common.Config
	server    *http.Server
	logger    arbor.ILogger
	wsHub     *handlers.WebSocketHub
	running   bool
	startTime time.Time
}

// NewWebServer wires the API handlers, middleware chain and websocket hub.
func NewWebServer(cfg *common.Config, storage interfaces.Storage, discoverer *Discoverer, assessor *Assessor, syncMonitor interfaces.SyncMonitor, wsHub *handlers.WebSocketHub, logger arbor.ILogger) (interfaces.WebService, error) {
	mux := http.NewServeMux()

	apiHandlers := handlers.NewAPIHandlers(cfg, storage, discoverer, assessor, syncMonitor, logger, wsHub)

	ws := &webServer{
		config: cfg,
		logger: logger,
		wsHub:  wsHub,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Service.Port),
			Handler: mux,
		},
	}

	logMiddleware := middleware.Logging(logger)
	corsMiddleware := middleware.CORS

	mux.HandleFunc("/health", logMiddleware(corsMiddleware(apiHandlers.HealthHandler)))
	mux.HandleFunc("/version", logMiddleware(corsMiddleware(apiHandlers.VersionHandler)))
	mux.HandleFunc("/config", logMiddleware(corsMiddleware(apiHandlers.ConfigHandler)))
	mux.HandleFunc("/connections", logMiddleware(corsMiddleware(apiHandlers.ConnectionsHandler)))
	mux.HandleFunc("/connections/test", logMiddleware(corsMiddleware(apiHandlers.TestConnectionHandler)))
	mux.HandleFunc("/projects", logMiddleware(corsMiddleware(apiHandlers.ProjectsHandler)))
	mux.HandleFunc("/objects", logMiddleware(corsMiddleware(apiHandlers.ObjectsHandler)))
	mux.HandleFunc("/discover", logMiddleware(corsMiddleware(apiHandlers.DiscoverHandler)))
	mux.HandleFunc("/assess", logMiddleware(corsMiddleware(apiHandlers.AssessHandler)))
	mux.HandleFunc("/assessments", logMiddleware(corsMiddleware(apiHandlers.AssessmentsHandler)))
	mux.HandleFunc("/issues", logMiddleware(corsMiddleware(apiHandlers.IssuesHandler)))
	mux.HandleFunc("/sync/start", logMiddleware(corsMiddleware(apiHandlers.StartSyncHandler)))
	mux.HandleFunc("/sync/status", logMiddleware(corsMiddleware(apiHandlers.SyncStatusHandler)))
	mux.HandleFunc("/database", logMiddleware(corsMiddleware(apiHandlers.DatabaseHandler)))

	mux.HandleFunc("/ws", corsMiddleware(wsHub.WebSocketHandler))

	return ws, nil
}

// Start starts the web server
func (ws *webServer) Start(ctx context.Context) error {
	ws.running = true
	ws.startTime = time.Now()

	go func() {
		ws.logger.Info().Int("port", ws.config.Service.Port).Msg("Starting web server")
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Error().Err(err).Msg("Web server error")
		}
	}()
	return nil
}

// Stop stops the web server
func (ws *webServer) Stop() error {
	ws.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws.logger.Info().Msg("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// IsRunning returns true if the web server is running
func (ws *webServer) IsRunning() bool {
	return ws.running
}
