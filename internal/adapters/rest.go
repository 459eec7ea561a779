package adapters

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"metamigrate/internal/common"
	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
)

// restAdapter drives repositories that expose the token-based HTTP protocol.
// One read per object kind, fanned out in parallel after authentication.
type restAdapter struct {
	config *common.RepositoryConfig
	logger arbor.ILogger
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type objectListResponse struct {
	Objects []interfaces.RawRecord `json:"objects"`
	Total   int                    `json:"total"`
}

// kindPaths maps each canonical object kind to its read endpoint.
var kindPaths = map[models.ObjectKind]string{
	models.KindWorkflow:       "/api/v1/workflows",
	models.KindMapping:        "/api/v1/mappings",
	models.KindSession:        "/api/v1/sessions",
	models.KindTransformation: "/api/v1/transformations",
	models.KindSource:         "/api/v1/sources",
	models.KindTarget:         "/api/v1/targets",
}

// NewRESTAdapter creates the HTTP protocol adapter.
func NewRESTAdapter(config *common.RepositoryConfig, logger arbor.ILogger) interfaces.RepositoryAdapter {
	return &restAdapter{
		config: config,
		logger: logger,
	}
}

func (a *restAdapter) newClient(conn *models.RepositoryConnection) *resty.Client {
	return resty.New().
		SetBaseURL(fmt.Sprintf("http://%s:%d", conn.Host, conn.Port)).
		SetTimeout(a.timeout()).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

func (a *restAdapter) timeout() time.Duration {
	seconds := a.config.TimeoutSeconds
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

// authenticate obtains a short-lived token. Any failure here fails the whole
// discovery run.
func (a *restAdapter) authenticate(ctx context.Context, client *resty.Client) (string, error) {
	var auth authResponse

	resp, err := client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"username": a.config.Username,
			"password": a.config.Password,
		}).
		SetResult(&auth).
		Post("/api/v1/auth/login")

	if err != nil {
		return "", common.WrapError(err, common.ErrorTypeConnection, "AUTH_UNREACHABLE",
			"failed to reach repository for authentication")
	}

	if resp.StatusCode() != http.StatusOK {
		return "", common.NewConnectionError("AUTH_FAILED",
			fmt.Sprintf("repository authentication returned status %d", resp.StatusCode()))
	}

	if auth.Token == "" {
		return "", common.NewConnectionError("AUTH_EMPTY_TOKEN",
			"repository authentication returned no token")
	}

	return auth.Token, nil
}

func (a *restAdapter) Discover(ctx context.Context, conn *models.RepositoryConnection) (*interfaces.RawDiscoveryPayload, error) {
	client := a.newClient(conn)

	token, err := a.authenticate(ctx, client)
	if err != nil {
		return nil, err
	}

	payload := &interfaces.RawDiscoveryPayload{}
	results := map[models.ObjectKind][]interfaces.RawRecord{}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for kind, path := range kindPaths {
		wg.Add(1)
		go func(kind models.ObjectKind, path string) {
			defer wg.Done()

			records, err := a.readKind(ctx, client, token, path)
			if err != nil {
				// Partial discovery is acceptable; the kind degrades
				// to an empty list.
				a.logger.Warn().Err(err).
					Str("kind", string(kind)).
					Str("connection", conn.Name).
					Msg("Object kind read failed, continuing with empty list")
				records = nil
			}

			mu.Lock()
			results[kind] = records
			mu.Unlock()
		}(kind, path)
	}
	wg.Wait()

	payload.Workflows = results[models.KindWorkflow]
	payload.Mappings = results[models.KindMapping]
	payload.Sessions = results[models.KindSession]
	payload.Transformations = results[models.KindTransformation]
	payload.Sources = results[models.KindSource]
	payload.Targets = results[models.KindTarget]

	a.logger.Info().
		Str("connection", conn.Name).
		Int("objects", payload.Total()).
		Msg("REST discovery completed")

	return payload, nil
}

func (a *restAdapter) readKind(ctx context.Context, client *resty.Client, token, path string) ([]interfaces.RawRecord, error) {
	var list objectListResponse

	resp, err := client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&list).
		Get(path)

	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeConnection, "READ_FAILED",
			fmt.Sprintf("failed to read %s", path))
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, common.NewConnectionError("READ_STATUS",
			fmt.Sprintf("repository returned status %d for %s", resp.StatusCode(), path))
	}

	return list.Objects, nil
}

// TestConnection probes the repository health endpoint. Read-only.
func (a *restAdapter) TestConnection(ctx context.Context, conn *models.RepositoryConnection) error {
	client := a.newClient(conn)

	resp, err := client.R().
		SetContext(ctx).
		Get("/api/v1/health")

	if err != nil {
		return common.WrapError(err, common.ErrorTypeConnection, "UNREACHABLE",
			fmt.Sprintf("repository %s:%d is unreachable", conn.Host, conn.Port))
	}

	if resp.StatusCode() != http.StatusOK {
		return common.NewConnectionError("UNHEALTHY",
			fmt.Sprintf("repository health check returned status %d", resp.StatusCode()))
	}

	return nil
}
