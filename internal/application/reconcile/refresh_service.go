package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aisleworks/inventory-sync/internal/domain/reconcile"
)

// DefaultInterBatchDelay is the proactive pause between vendor calls,
// independent of the reactive 429 handling inside the vendor client.
const DefaultInterBatchDelay = 2 * time.Second

// VendorInventoryClient fetches current stock levels for a batch of
// inventory items.
type VendorInventoryClient interface {
	FetchLevels(ctx context.Context, inventoryItemIDs []int64) ([]reconcile.InventoryLevel, error)
}

// StoreGateway resolves products to inventory items and persists levels.
type StoreGateway interface {
	ResolveInventoryItems(ctx context.Context, productIDs []int64) ([]reconcile.InventoryItemRef, error)
	UpsertLevels(ctx context.Context, runID uuid.UUID, levels []reconcile.InventoryLevel) (int, error)
}

// RunTracker audits one reconciliation run. Progress is best-effort and
// must never abort the sync; Finish is called exactly once per created run.
type RunTracker interface {
	Start(ctx context.Context, syncType reconcile.SyncType, triggeredBy string) (uuid.UUID, error)
	Progress(ctx context.Context, runID uuid.UUID, productsSynced int, percentComplete float64)
	Finish(ctx context.Context, runID uuid.UUID, input reconcile.FinishInput) error
}

// phase tags the orchestrator's position in the run state machine:
// INIT → RESOLVING → BATCHING → (FETCHING → UPDATING)* → AGGREGATING → DONE.
type phase string

const (
	phaseInit        phase = "INIT"
	phaseResolving   phase = "RESOLVING"
	phaseBatching    phase = "BATCHING"
	phaseFetching    phase = "FETCHING"
	phaseUpdating    phase = "UPDATING"
	phaseAggregating phase = "AGGREGATING"
	phaseDone        phase = "DONE"
)

// Options tunes a refresh run.
type Options struct {
	BatchSize       int
	InterBatchDelay time.Duration
}

// RefreshInput describes one requested reconciliation run. Mode is
// accepted for forward compatibility but does not alter behavior yet.
type RefreshInput struct {
	ProductIDs  []int64
	Mode        string
	SyncType    reconcile.SyncType
	TriggeredBy string
}

// RefreshService drives one reconciliation run: resolve products to
// vendor inventory items, fetch levels batch by batch, upsert them, and
// audit the whole thing. Batches run strictly sequentially; the
// inter-batch delay and the vendor client's retry budget assume
// serialized access to the vendor API.
type RefreshService struct {
	store   StoreGateway
	vendor  VendorInventoryClient
	tracker RunTracker
	opts    Options
	logger  *zap.Logger

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration)
}

// NewRefreshService creates the orchestrator with its collaborators
// injected. Zero option fields fall back to defaults.
func NewRefreshService(store StoreGateway, vendor VendorInventoryClient, tracker RunTracker, opts Options, logger *zap.Logger) *RefreshService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = reconcile.DefaultBatchSize
	}
	if opts.InterBatchDelay <= 0 {
		opts.InterBatchDelay = DefaultInterBatchDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshService{
		store:   store,
		vendor:  vendor,
		tracker: tracker,
		opts:    opts,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Refresh executes one run to completion. Batch-level failures (vendor
// retry exhaustion, upsert errors) are recorded and the run continues;
// only pre-batch failures (validation, resolution) abort it. A run that
// processed all batches finishes as completed even when some batches
// errored — callers inspect the result's Errors and FailedProducts.
func (s *RefreshService) Refresh(ctx context.Context, input RefreshInput) (*reconcile.RunResult, error) {
	started := time.Now()

	// INIT: validate before any side effect
	s.logPhase(s.logger, phaseInit)
	productIDs := dedupe(input.ProductIDs)
	if len(productIDs) == 0 {
		return nil, reconcile.ErrNoProducts
	}
	syncType := input.SyncType
	if syncType == "" {
		syncType = reconcile.SyncTypeManual
	}

	runID, err := s.tracker.Start(ctx, syncType, input.TriggeredBy)
	if err != nil {
		return nil, fmt.Errorf("start sync run: %w", err)
	}
	log := s.logger.With(zap.String("run_id", runID.String()))
	log.Info("Starting inventory refresh",
		zap.Int("product_count", len(productIDs)),
		zap.String("sync_type", string(syncType)),
		zap.String("triggered_by", input.TriggeredBy),
	)

	// RESOLVING: zero eligible items is a hard failure, unlike a vendor
	// call that reports zero levels
	s.logPhase(log, phaseResolving)
	items, err := s.store.ResolveInventoryItems(ctx, productIDs)
	if err != nil {
		s.finalizeFailed(ctx, log, runID, err)
		return nil, fmt.Errorf("resolve inventory items: %w", err)
	}
	if len(items) == 0 {
		s.finalizeFailed(ctx, log, runID, reconcile.ErrNoItemsResolved)
		return nil, reconcile.ErrNoItemsResolved
	}

	// BATCHING
	s.logPhase(log, phaseBatching)
	batches := reconcile.Chunk(items, s.opts.BatchSize)

	var (
		batchErrors       []reconcile.BatchError
		inventoryUpdates  int
		variantsProcessed int
		syncedProducts    = make(map[int64]struct{})
	)

	for i, batch := range batches {
		if i > 0 {
			// Proactive spacing between vendor calls, applied whether or
			// not the previous batch needed retries
			s.sleep(ctx, s.opts.InterBatchDelay)
		}

		itemIDs := make([]int64, len(batch))
		for j, ref := range batch {
			itemIDs[j] = ref.InventoryItemID
		}

		s.logPhase(log, phaseFetching)
		levels, err := s.vendor.FetchLevels(ctx, itemIDs)
		if err != nil {
			log.Error("Batch fetch failed",
				zap.Int("batch_index", i),
				zap.Int("item_count", len(itemIDs)),
				zap.Error(err),
			)
			batchErrors = append(batchErrors, reconcile.BatchError{
				BatchIndex:       i,
				Error:            err.Error(),
				InventoryItemIDs: itemIDs,
			})
			s.reportProgress(ctx, runID, len(syncedProducts), i+1, len(batches))
			continue
		}

		s.logPhase(log, phaseUpdating)
		count, err := s.store.UpsertLevels(ctx, runID, levels)
		if err != nil {
			log.Error("Batch upsert failed",
				zap.Int("batch_index", i),
				zap.Int("level_count", len(levels)),
				zap.Error(err),
			)
			batchErrors = append(batchErrors, reconcile.BatchError{
				BatchIndex:       i,
				Error:            err.Error(),
				InventoryItemIDs: itemIDs,
			})
			s.reportProgress(ctx, runID, len(syncedProducts), i+1, len(batches))
			continue
		}

		inventoryUpdates += count
		variantsProcessed += len(batch)
		for _, ref := range batch {
			syncedProducts[ref.ProductID] = struct{}{}
		}
		s.reportProgress(ctx, runID, len(syncedProducts), i+1, len(batches))
	}

	// AGGREGATING
	s.logPhase(log, phaseAggregating)
	successful := len(syncedProducts)
	failed := len(productIDs) - successful
	if failed < 0 {
		failed = 0
	}

	result := &reconcile.RunResult{
		RunID:                  runID,
		TotalProducts:          len(productIDs),
		SuccessfulProducts:     successful,
		FailedProducts:         failed,
		TotalVariantsProcessed: variantsProcessed,
		InventoryUpdates:       inventoryUpdates,
		Errors:                 batchErrors,
		ProcessingTime:         time.Since(started),
	}

	// DONE: per-batch errors still finish as completed
	if err := s.tracker.Finish(ctx, runID, reconcile.FinishInput{
		Status:         reconcile.RunStatusCompleted,
		ProductsSynced: successful,
		ErrorsCount:    len(batchErrors),
		ErrorDetails:   batchErrors,
	}); err != nil {
		log.Warn("Sync run finalization failed", zap.Error(err))
	}
	s.logPhase(log, phaseDone)

	log.Info("Inventory refresh finished",
		zap.Int("total_products", result.TotalProducts),
		zap.Int("successful_products", result.SuccessfulProducts),
		zap.Int("failed_products", result.FailedProducts),
		zap.Int("inventory_updates", result.InventoryUpdates),
		zap.Int("batch_errors", len(batchErrors)),
		zap.Duration("elapsed", result.ProcessingTime),
	)
	return result, nil
}

// finalizeFailed closes the audit row for a pre-batch abort. The run row
// always exists by this point; it is finalized as failed with the abort
// reason in its error details.
func (s *RefreshService) finalizeFailed(ctx context.Context, log *zap.Logger, runID uuid.UUID, cause error) {
	err := s.tracker.Finish(ctx, runID, reconcile.FinishInput{
		Status:       reconcile.RunStatusFailed,
		ErrorsCount:  1,
		ErrorDetails: []reconcile.BatchError{{BatchIndex: -1, Error: cause.Error()}},
	})
	if err != nil {
		log.Warn("Failed-run finalization failed", zap.Error(err))
	}
}

// reportProgress sends a best-effort tracker update after each batch.
func (s *RefreshService) reportProgress(ctx context.Context, runID uuid.UUID, productsSynced, batchesDone, totalBatches int) {
	percent := float64(batchesDone) / float64(totalBatches) * 100
	s.tracker.Progress(ctx, runID, productsSynced, percent)
}

func (s *RefreshService) logPhase(log *zap.Logger, p phase) {
	log.Debug("Refresh phase", zap.String("phase", string(p)))
}

// dedupe preserves first-seen order while dropping repeated product ids.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// sleepContext waits for d or until ctx is done. Runs have no cancellation
// primitive of their own; an expired context simply shortens the pause and
// the next vendor call surfaces the error.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
