package reconcile

import (
	"time"

	"github.com/google/uuid"
)

// SyncType identifies how a reconciliation run was triggered.
type SyncType string

const (
	SyncTypeManual    SyncType = "manual"
	SyncTypeScheduled SyncType = "scheduled"
)

// RunStatus represents the lifecycle state of a sync run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// BatchError records one batch that could not be processed. The run keeps
// going; the error is surfaced in the final result and in the audit row.
type BatchError struct {
	BatchIndex       int     `json:"batchIndex"`
	Error            string  `json:"error"`
	InventoryItemIDs []int64 `json:"inventoryItemIds"`
}

// SyncRun is the audit record for one end-to-end reconciliation run.
// Created once per invocation, mutated only through its methods, and
// terminal once Status leaves RunStatusRunning.
type SyncRun struct {
	ID              uuid.UUID    `json:"id"`
	SyncType        SyncType     `json:"sync_type"`
	TriggeredBy     string       `json:"triggered_by"`
	Status          RunStatus    `json:"status"`
	ProductsSynced  int          `json:"products_synced"`
	ErrorsCount     int          `json:"errors_count"`
	ErrorDetails    []BatchError `json:"error_details"`
	ProgressPercent float64      `json:"progress_percent"`
	StartedAt       time.Time    `json:"started_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
}

// NewSyncRun creates a running sync run.
func NewSyncRun(syncType SyncType, triggeredBy string) *SyncRun {
	return &SyncRun{
		ID:          uuid.New(),
		SyncType:    syncType,
		TriggeredBy: triggeredBy,
		Status:      RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
}

// RecordProgress updates the synced-products counter. The counter is
// monotonically non-decreasing for the lifetime of the run.
func (r *SyncRun) RecordProgress(productsSynced int, percent float64) {
	if r.IsTerminal() {
		return
	}
	if productsSynced > r.ProductsSynced {
		r.ProductsSynced = productsSynced
	}
	if percent > r.ProgressPercent {
		r.ProgressPercent = percent
	}
}

// Complete finalizes the run. A run that processed all batches counts as
// completed even when some batches recorded errors; callers inspect
// ErrorsCount to detect partial failure.
func (r *SyncRun) Complete(productsSynced int, details []BatchError) {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.ProductsSynced = productsSynced
	r.ErrorsCount = len(details)
	r.ErrorDetails = details
	r.ProgressPercent = 100
	r.CompletedAt = &now
}

// Fail finalizes the run as failed. Used only for pre-batch aborts
// (resolution failure, zero eligible items).
func (r *SyncRun) Fail(details []BatchError) {
	now := time.Now().UTC()
	r.Status = RunStatusFailed
	r.ErrorsCount = len(details)
	r.ErrorDetails = details
	r.CompletedAt = &now
}

// IsTerminal reports whether the run has left the running state.
func (r *SyncRun) IsTerminal() bool {
	return r.Status != RunStatusRunning
}

// FinishInput carries the terminal update for a sync run audit row.
type FinishInput struct {
	Status         RunStatus
	ProductsSynced int
	ErrorsCount    int
	ErrorDetails   []BatchError
}

// RunResult is the aggregate returned to the caller at the end of a run.
// It is not persisted as its own entity; its counts and errors are folded
// into the SyncRun audit row.
type RunResult struct {
	RunID                  uuid.UUID
	TotalProducts          int
	SuccessfulProducts     int
	FailedProducts         int
	TotalVariantsProcessed int
	InventoryUpdates       int
	Errors                 []BatchError
	ProcessingTime         time.Duration
}
