// Package store persists pipeline run history: one run per category with
// its cleaning report, the aggregates computed from it, and optionally the
// cleaned records themselves.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/preprocess"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus tracks the lifecycle of a run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one pipeline execution for a single category.
type Run struct {
	ID        string             `json:"id"`
	Category  dataset.Category   `json:"category"`
	Status    RunStatus          `json:"status"`
	Report    *preprocess.Report `json:"report,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Aggregate is one named analysis result attached to a run. Payload holds
// the JSON-encoded result.
type Aggregate struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Category     dataset.Category `json:"category,omitempty"`
	Status       RunStatus        `json:"status,omitempty"`
	CreatedAfter time.Time        `json:"created_after,omitempty"`
	Limit        int              `json:"limit,omitempty"`
	Offset       int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for pipeline runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, category dataset.Category) (*Run, error)
	CompleteRun(ctx context.Context, runID string, report *preprocess.Report) error
	FailRun(ctx context.Context, runID string, msg string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Results
	SaveAggregate(ctx context.Context, runID, name, kind string, payload any) (*Aggregate, error)
	ListAggregates(ctx context.Context, runID string) ([]Aggregate, error)
	SaveRecords(ctx context.Context, runID string, t *table.Table) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the backend named by driver. Callers should Migrate
// before first use.
func Open(ctx context.Context, driver, dsn string, maxConns int32) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLite(dsn)
	case DriverPostgres:
		return NewPostgres(ctx, dsn, &PoolConfig{MaxConns: maxConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

const defaultListLimit = 100

func marshalPayload(payload any) ([]byte, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal payload")
	}
	return data, nil
}
