package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appreconcile "github.com/aisleworks/inventory-sync/internal/application/reconcile"
	"github.com/aisleworks/inventory-sync/internal/domain/reconcile"
)

type fakeRefresher struct {
	gotInput appreconcile.RefreshInput
	result   *reconcile.RunResult
	err      error
}

func (f *fakeRefresher) Refresh(_ context.Context, input appreconcile.RefreshInput) (*reconcile.RunResult, error) {
	f.gotInput = input
	return f.result, f.err
}

type fakeRunReader struct {
	run *reconcile.SyncRun
	err error
}

func (f *fakeRunReader) Get(_ context.Context, _ uuid.UUID) (*reconcile.SyncRun, error) {
	return f.run, f.err
}

func newSyncRouter(h *SyncHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/inventory/sync", h.TriggerSync)
	api.GET("/inventory/sync/runs/:id", h.GetRun)
	return router
}

func postSync(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/sync", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTriggerSync_Success(t *testing.T) {
	runID := uuid.New()
	refresher := &fakeRefresher{result: &reconcile.RunResult{
		RunID:                  runID,
		TotalProducts:          2,
		SuccessfulProducts:     2,
		TotalVariantsProcessed: 60,
		InventoryUpdates:       60,
		ProcessingTime:         1500 * time.Millisecond,
	}}
	router := newSyncRouter(NewSyncHandler(refresher, &fakeRunReader{}, nil, nil))

	w := postSync(router, `{"productIds":[1,2],"mode":"inventory"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			SyncLogID              string                 `json:"syncLogId"`
			TotalProducts          int                    `json:"totalProducts"`
			SuccessfulProducts     int                    `json:"successfulProducts"`
			FailedProducts         int                    `json:"failedProducts"`
			TotalVariantsProcessed int                    `json:"totalVariantsProcessed"`
			InventoryUpdates       int                    `json:"inventoryUpdates"`
			Errors                 []reconcile.BatchError `json:"errors"`
			ProcessingTime         int64                  `json:"processingTime"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, runID.String(), resp.Data.SyncLogID)
	assert.Equal(t, 2, resp.Data.TotalProducts)
	assert.Equal(t, 60, resp.Data.InventoryUpdates)
	assert.Equal(t, int64(1500), resp.Data.ProcessingTime)
	assert.NotNil(t, resp.Data.Errors)
	assert.Empty(t, resp.Data.Errors)

	assert.Equal(t, []int64{1, 2}, refresher.gotInput.ProductIDs)
	assert.Equal(t, "inventory", refresher.gotInput.Mode)
	assert.Equal(t, reconcile.SyncTypeManual, refresher.gotInput.SyncType)
}

func TestTriggerSync_PartialFailureStillOK(t *testing.T) {
	refresher := &fakeRefresher{result: &reconcile.RunResult{
		RunID:              uuid.New(),
		TotalProducts:      3,
		SuccessfulProducts: 2,
		FailedProducts:     1,
		Errors: []reconcile.BatchError{
			{BatchIndex: 1, Error: "upstream failure: status 502", InventoryItemIDs: []int64{201}},
		},
	}}
	router := newSyncRouter(NewSyncHandler(refresher, &fakeRunReader{}, nil, nil))

	w := postSync(router, `{"productIds":[1,2,3]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"batchIndex":1`)
	assert.Contains(t, w.Body.String(), `"inventoryItemIds":[201]`)
}

func TestTriggerSync_EmptyProductIDs(t *testing.T) {
	router := newSyncRouter(NewSyncHandler(&fakeRefresher{}, &fakeRunReader{}, nil, nil))

	for _, body := range []string{`{}`, `{"productIds":[]}`} {
		w := postSync(router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_VALIDATION")
	}
}

func TestTriggerSync_MalformedJSON(t *testing.T) {
	router := newSyncRouter(NewSyncHandler(&fakeRefresher{}, &fakeRunReader{}, nil, nil))

	w := postSync(router, `{"productIds":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INVALID_JSON")
}

func TestTriggerSync_MissingVendorConfig(t *testing.T) {
	refresher := &fakeRefresher{}
	handler := NewSyncHandler(refresher, &fakeRunReader{}, errors.New("vendor API credentials not configured"), nil)
	router := newSyncRouter(handler)

	w := postSync(router, `{"productIds":[1]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_CONFIGURATION")
	assert.Empty(t, refresher.gotInput.ProductIDs, "refresh must not run without credentials")
}

func TestTriggerSync_NoItemsResolved(t *testing.T) {
	refresher := &fakeRefresher{err: reconcile.ErrNoItemsResolved}
	router := newSyncRouter(NewSyncHandler(refresher, &fakeRunReader{}, nil, nil))

	w := postSync(router, `{"productIds":[99]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_RESOLUTION")
}

func TestTriggerSync_UnexpectedFailure(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("start sync run: connection refused")}
	router := newSyncRouter(NewSyncHandler(refresher, &fakeRunReader{}, nil, nil))

	w := postSync(router, `{"productIds":[1]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
	assert.NotContains(t, w.Body.String(), "connection refused", "internal detail stays out of the response")
}

func TestGetRun(t *testing.T) {
	runID := uuid.New()
	reader := &fakeRunReader{run: &reconcile.SyncRun{
		ID:       runID,
		SyncType: reconcile.SyncTypeManual,
		Status:   reconcile.RunStatusCompleted,
	}}
	router := newSyncRouter(NewSyncHandler(&fakeRefresher{}, reader, nil, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/sync/runs/"+runID.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), runID.String())
	assert.Contains(t, w.Body.String(), `"completed"`)
}

func TestGetRun_NotFound(t *testing.T) {
	reader := &fakeRunReader{err: reconcile.ErrRunNotFound}
	router := newSyncRouter(NewSyncHandler(&fakeRefresher{}, reader, nil, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/sync/runs/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
}

func TestGetRun_InvalidID(t *testing.T) {
	router := newSyncRouter(NewSyncHandler(&fakeRefresher{}, &fakeRunReader{}, nil, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/sync/runs/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_VALIDATION")
}
