package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aisleworks/inventory-sync/internal/domain/reconcile"
)

const runsTable = "sync_runs"

// RunTracker persists sync run audit rows in the record store. Progress
// updates are best-effort: a tracking failure must never abort the
// underlying sync.
type RunTracker struct {
	client *Client
	logger *zap.Logger
}

// NewRunTracker creates a tracker on top of a record store client.
func NewRunTracker(client *Client, logger *zap.Logger) *RunTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunTracker{client: client, logger: logger}
}

// runRow mirrors the sync_runs table shape.
type runRow struct {
	ID              uuid.UUID              `json:"id"`
	SyncType        reconcile.SyncType     `json:"sync_type"`
	TriggeredBy     string                 `json:"triggered_by"`
	Status          reconcile.RunStatus    `json:"status"`
	ProductsSynced  int                    `json:"products_synced"`
	ErrorsCount     int                    `json:"errors_count"`
	ErrorDetails    []reconcile.BatchError `json:"error_details"`
	ProgressPercent float64                `json:"progress_percent"`
	StartedAt       time.Time              `json:"started_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
}

// Start inserts a running sync run row and returns its id.
func (t *RunTracker) Start(ctx context.Context, syncType reconcile.SyncType, triggeredBy string) (uuid.UUID, error) {
	run := reconcile.NewSyncRun(syncType, triggeredBy)
	row := runRow{
		ID:           run.ID,
		SyncType:     run.SyncType,
		TriggeredBy:  run.TriggeredBy,
		Status:       run.Status,
		ErrorDetails: []reconcile.BatchError{},
		StartedAt:    run.StartedAt,
	}

	body, err := t.client.do(ctx, http.MethodPost, runsTable, nil, "return=representation", []runRow{row})
	if err != nil {
		return uuid.Nil, fmt.Errorf("create sync run: %w", err)
	}

	var inserted []runRow
	if err := json.Unmarshal(body, &inserted); err != nil || len(inserted) == 0 {
		// The row was written; fall back to the id we generated
		return run.ID, nil
	}
	return inserted[0].ID, nil
}

// Progress updates the running counters on a sync run. Failures are
// logged and swallowed.
func (t *RunTracker) Progress(ctx context.Context, runID uuid.UUID, productsSynced int, percentComplete float64) {
	patch := map[string]any{
		"products_synced":  productsSynced,
		"progress_percent": percentComplete,
	}
	if _, err := t.client.do(ctx, http.MethodPatch, runsTable, idFilter(runID), "", patch); err != nil {
		t.logger.Warn("Sync run progress update failed",
			zap.String("run_id", runID.String()),
			zap.Int("products_synced", productsSynced),
			zap.Error(err),
		)
	}
}

// Finish writes the terminal update for a sync run, setting completed_at.
func (t *RunTracker) Finish(ctx context.Context, runID uuid.UUID, input reconcile.FinishInput) error {
	details := input.ErrorDetails
	if details == nil {
		details = []reconcile.BatchError{}
	}
	patch := map[string]any{
		"status":          input.Status,
		"products_synced": input.ProductsSynced,
		"errors_count":    input.ErrorsCount,
		"error_details":   details,
		"completed_at":    time.Now().UTC(),
	}
	if input.Status == reconcile.RunStatusCompleted {
		patch["progress_percent"] = float64(100)
	}
	if _, err := t.client.do(ctx, http.MethodPatch, runsTable, idFilter(runID), "", patch); err != nil {
		return fmt.Errorf("finalize sync run: %w", err)
	}
	return nil
}

// Get reads back a single sync run audit row.
func (t *RunTracker) Get(ctx context.Context, runID uuid.UUID) (*reconcile.SyncRun, error) {
	body, err := t.client.do(ctx, http.MethodGet, runsTable, idFilter(runID), "", nil)
	if err != nil {
		return nil, fmt.Errorf("read sync run: %w", err)
	}

	var rows []runRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("read sync run: parse response: %w", err)
	}
	if len(rows) == 0 {
		return nil, reconcile.ErrRunNotFound
	}

	row := rows[0]
	return &reconcile.SyncRun{
		ID:              row.ID,
		SyncType:        row.SyncType,
		TriggeredBy:     row.TriggeredBy,
		Status:          row.Status,
		ProductsSynced:  row.ProductsSynced,
		ErrorsCount:     row.ErrorsCount,
		ErrorDetails:    row.ErrorDetails,
		ProgressPercent: row.ProgressPercent,
		StartedAt:       row.StartedAt,
		CompletedAt:     row.CompletedAt,
	}, nil
}

func idFilter(runID uuid.UUID) url.Values {
	query := url.Values{}
	query.Set("id", "eq."+runID.String())
	return query
}
