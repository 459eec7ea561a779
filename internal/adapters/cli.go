package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"metamigrate/internal/common"
	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	"github.com/ternarybob/arbor"
)

// cliAdapter drives repositories that are only reachable through the vendor
// command-line utility. Commands run sequentially; process invocation is not
// assumed to be parallel-safe.
type cliAdapter struct {
	config *common.RepositoryConfig
	logger arbor.ILogger
}

// kindCommands maps each canonical object kind to the utility's list
// subcommand argument.
var kindCommands = map[models.ObjectKind]string{
	models.KindWorkflow:       "workflows",
	models.KindMapping:        "mappings",
	models.KindSession:        "sessions",
	models.KindTransformation: "transformations",
	models.KindSource:         "sources",
	models.KindTarget:         "targets",
}

// listKindOrder keeps CLI discovery output deterministic.
var listKindOrder = []models.ObjectKind{
	models.KindWorkflow,
	models.KindMapping,
	models.KindSession,
	models.KindTransformation,
	models.KindSource,
	models.KindTarget,
}

// NewCLIAdapter creates the command-line protocol adapter.
func NewCLIAdapter(config *common.RepositoryConfig, logger arbor.ILogger) interfaces.RepositoryAdapter {
	return &cliAdapter{
		config: config,
		logger: logger,
	}
}

func (a *cliAdapter) timeout() time.Duration {
	seconds := a.config.TimeoutSeconds
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

// run invokes the repository utility with a bounded deadline. A timeout is
// surfaced as a connection error, distinct from malformed-output errors.
func (a *cliAdapter) run(ctx context.Context, conn *models.RepositoryConnection, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	baseArgs := []string{
		args[0],
		"-host", conn.Host,
		"-port", strconv.Itoa(conn.Port),
	}
	baseArgs = append(baseArgs, args[1:]...)

	cmd := exec.CommandContext(runCtx, a.config.CLIPath, baseArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", common.NewConnectionError("CLI_TIMEOUT",
			fmt.Sprintf("repository command %q timed out after %s", args[0], a.timeout()))
	}
	if err != nil {
		return "", common.WrapError(err, common.ErrorTypeConnection, "CLI_FAILED",
			fmt.Sprintf("repository command %q failed: %s", args[0], strings.TrimSpace(stderr.String())))
	}

	return stdout.String(), nil
}

func (a *cliAdapter) Discover(ctx context.Context, conn *models.RepositoryConnection) (*interfaces.RawDiscoveryPayload, error) {
	// Connect first; a failed connect fails the whole run.
	if _, err := a.run(ctx, conn, "connect", "-user", a.config.Username); err != nil {
		return nil, err
	}

	payload := &interfaces.RawDiscoveryPayload{}
	dropped := 0

	for _, kind := range listKindOrder {
		output, err := a.run(ctx, conn, "list", "-type", kindCommands[kind])
		if err != nil {
			if ctx.Err() != nil {
				// Caller cancelled; abort rather than degrade.
				return nil, err
			}
			// A failed kind listing degrades to an empty list.
			a.logger.Warn().Err(err).
				Str("kind", string(kind)).
				Str("connection", conn.Name).
				Msg("Object kind listing failed, continuing with empty list")
			continue
		}

		records, bad := ParseListOutput(output)
		dropped += bad

		switch kind {
		case models.KindWorkflow:
			payload.Workflows = records
		case models.KindMapping:
			payload.Mappings = records
		case models.KindSession:
			payload.Sessions = records
		case models.KindTransformation:
			payload.Transformations = records
		case models.KindSource:
			payload.Sources = records
		case models.KindTarget:
			payload.Targets = records
		}
	}

	if dropped > 0 {
		a.logger.Warn().
			Int("dropped_lines", dropped).
			Str("connection", conn.Name).
			Msg("Malformed lines dropped from CLI output")
	}

	a.logger.Info().
		Str("connection", conn.Name).
		Int("objects", payload.Total()).
		Msg("CLI discovery completed")

	return payload, nil
}

// TestConnection issues the utility's ping command. Read-only.
func (a *cliAdapter) TestConnection(ctx context.Context, conn *models.RepositoryConnection) error {
	_, err := a.run(ctx, conn, "ping")
	return err
}

// ParseListOutput tokenizes the utility's free-form list output into raw
// records. Each line is comma-separated: folder, object name, then optional
// key=value attributes (list-valued attributes use ';' between elements).
// Malformed lines are dropped, not fatal; the second return value counts
// them.
func ParseListOutput(output string) ([]interfaces.RawRecord, int) {
	var records []interfaces.RawRecord
	dropped := 0

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			dropped++
			continue
		}

		folder := strings.TrimSpace(fields[0])
		name := strings.TrimSpace(fields[1])
		if name == "" {
			dropped++
			continue
		}

		record := interfaces.RawRecord{
			"name":   name,
			"folder": folder,
		}

		malformed := false
		for _, attr := range fields[2:] {
			attr = strings.TrimSpace(attr)
			if attr == "" {
				continue
			}
			key, value, ok := strings.Cut(attr, "=")
			if !ok || key == "" {
				malformed = true
				break
			}
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)

			if strings.Contains(value, ";") {
				parts := strings.Split(value, ";")
				list := make([]interface{}, 0, len(parts))
				for _, part := range parts {
					if part = strings.TrimSpace(part); part != "" {
						list = append(list, part)
					}
				}
				record[key] = list
			} else if n, err := strconv.Atoi(value); err == nil {
				record[key] = float64(n)
			} else {
				record[key] = value
			}
		}

		if malformed {
			dropped++
			continue
		}

		records = append(records, record)
	}

	return records, dropped
}
