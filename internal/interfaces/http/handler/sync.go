package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appreconcile "github.com/aisleworks/inventory-sync/internal/application/reconcile"
	"github.com/aisleworks/inventory-sync/internal/domain/reconcile"
	"github.com/aisleworks/inventory-sync/internal/interfaces/http/dto"
)

// Refresher runs one inventory reconciliation pass.
type Refresher interface {
	Refresh(ctx context.Context, input appreconcile.RefreshInput) (*reconcile.RunResult, error)
}

// RunReader reads back sync run audit rows.
type RunReader interface {
	Get(ctx context.Context, runID uuid.UUID) (*reconcile.SyncRun, error)
}

// SyncHandler handles inventory sync API endpoints
type SyncHandler struct {
	BaseHandler
	refresher Refresher
	runs      RunReader
	// configErr is the deployment-time preflight result; non-nil means
	// vendor credentials are missing and every sync request gets a 400
	configErr error
	logger    *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(refresher Refresher, runs RunReader, configErr error, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{
		refresher: refresher,
		runs:      runs,
		configErr: configErr,
		logger:    logger,
	}
}

// SyncRequest represents the manual sync trigger payload
type SyncRequest struct {
	ProductIDs []int64 `json:"productIds"`
	Mode       string  `json:"mode"`
}

// SyncResponse summarizes one completed reconciliation run
type SyncResponse struct {
	SyncLogID              string                 `json:"syncLogId"`
	TotalProducts          int                    `json:"totalProducts"`
	SuccessfulProducts     int                    `json:"successfulProducts"`
	FailedProducts         int                    `json:"failedProducts"`
	TotalVariantsProcessed int                    `json:"totalVariantsProcessed"`
	InventoryUpdates       int                    `json:"inventoryUpdates"`
	Errors                 []reconcile.BatchError `json:"errors"`
	ProcessingTime         int64                  `json:"processingTime"`
}

// TriggerSync runs a reconciliation pass for the requested products and
// responds only after the run finished. Batch-level failures are reported
// inside a 200 response; only pre-batch failures produce an error status.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	if h.configErr != nil {
		h.ErrorWithCode(c, dto.ErrCodeConfiguration, h.configErr.Error())
		return
	}

	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidJSON), dto.ErrCodeInvalidJSON, "invalid request body: "+err.Error())
		return
	}
	if len(req.ProductIDs) == 0 {
		h.ErrorWithCode(c, dto.ErrCodeValidation, "productIds is required and must be a non-empty array")
		return
	}

	result, err := h.refresher.Refresh(c.Request.Context(), appreconcile.RefreshInput{
		ProductIDs:  req.ProductIDs,
		Mode:        req.Mode,
		SyncType:    reconcile.SyncTypeManual,
		TriggeredBy: "api",
	})
	if err != nil {
		h.handleRefreshError(c, err)
		return
	}

	h.Success(c, SyncResponse{
		SyncLogID:              result.RunID.String(),
		TotalProducts:          result.TotalProducts,
		SuccessfulProducts:     result.SuccessfulProducts,
		FailedProducts:         result.FailedProducts,
		TotalVariantsProcessed: result.TotalVariantsProcessed,
		InventoryUpdates:       result.InventoryUpdates,
		Errors:                 batchErrors(result.Errors),
		ProcessingTime:         result.ProcessingTime.Milliseconds(),
	})
}

// GetRun returns the audit row of a single sync run
func (h *SyncHandler) GetRun(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, "id must be a valid UUID")
		return
	}
	runID, err := uuid.Parse(req.ID)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, "id must be a valid UUID")
		return
	}

	run, err := h.runs.Get(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, reconcile.ErrRunNotFound) {
			h.NotFound(c, "sync run not found")
			return
		}
		h.logger.Error("Sync run lookup failed", zap.String("run_id", req.ID), zap.Error(err))
		h.InternalError(c, "failed to load sync run")
		return
	}
	h.Success(c, run)
}

func (h *SyncHandler) handleRefreshError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reconcile.ErrNoProducts):
		h.ErrorWithCode(c, dto.ErrCodeValidation, "productIds is required and must be a non-empty array")
	case errors.Is(err, reconcile.ErrNoItemsResolved):
		h.ErrorWithCode(c, dto.ErrCodeResolution, "no syncable variants found for the requested products")
	default:
		h.logger.Error("Inventory sync failed", zap.Error(err))
		h.InternalError(c, "inventory sync failed")
	}
}

// batchErrors guarantees the errors field serializes as [] rather than null
func batchErrors(errs []reconcile.BatchError) []reconcile.BatchError {
	if errs == nil {
		return []reconcile.BatchError{}
	}
	return errs
}
