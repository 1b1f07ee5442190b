// Package api exposes the categorizer over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/database"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/processor"
)

const (
	defaultMaxBatchSize = 100
	defaultRecordsLimit = 50
	maxRecordsLimit     = 500
)

// RecordReader reads persisted records back.
type RecordReader interface {
	GetByID(ctx context.Context, requestID string) (*database.RecordRow, error)
	ListByState(ctx context.Context, state domain.RequestState, limit int) ([]database.RecordRow, error)
}

// BatchRecorder observes batch sizes.
type BatchRecorder interface {
	RecordBatch(size int)
}

// HandlerConfig holds the optional collaborators of a Handler.
type HandlerConfig struct {
	// Loader backs POST /config/reload. Nil disables reloads from source.
	Loader catalog.Loader
	// Records backs the record endpoints. Nil leaves them unregistered.
	Records      RecordReader
	Batches      BatchRecorder
	MaxBatchSize int
}

// Handler handles HTTP requests for the categorizer API.
type Handler struct {
	pipeline     *processor.Pipeline
	batch        *processor.BatchProcessor
	store        *catalog.Store
	loader       catalog.Loader
	records      RecordReader
	batches      BatchRecorder
	maxBatchSize int
	logger       infralogger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	pipeline *processor.Pipeline,
	batch *processor.BatchProcessor,
	store *catalog.Store,
	cfg HandlerConfig,
	log infralogger.Logger,
) *Handler {
	if log == nil {
		log = infralogger.NewNop()
	}
	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatchSize
	}
	return &Handler{
		pipeline:     pipeline,
		batch:        batch,
		store:        store,
		loader:       cfg.Loader,
		records:      cfg.Records,
		batches:      cfg.Batches,
		maxBatchSize: maxBatch,
		logger:       log,
	}
}

// Categorize handles POST /api/v1/categorize
func (h *Handler) Categorize(c *gin.Context) {
	var req processor.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid categorize request", infralogger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.pipeline.Process(c.Request.Context(), req)
	if record == nil {
		h.logger.Error("Categorization aborted", infralogger.String("request_id", req.ID), infralogger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorMessage(err)})
		return
	}

	resp := toCategorizeResponse(record)
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(statusFor(err), resp)
}

// CategorizeBatch handles POST /api/v1/categorize/batch
func (h *Handler) CategorizeBatch(c *gin.Context) {
	var req BatchCategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid batch categorize request", infralogger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Requests) > h.maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "batch exceeds max size of " + strconv.Itoa(h.maxBatchSize),
		})
		return
	}
	if h.batches != nil {
		h.batches.RecordBatch(len(req.Requests))
	}

	items := h.batch.Process(c.Request.Context(), req.Requests)

	resp := BatchCategorizeResponse{
		Results: make([]BatchResult, len(items)),
		Total:   len(items),
	}
	for i, item := range items {
		if item.Err != nil {
			resp.Results[i].Error = item.Err.Error()
		}
		if item.Record == nil {
			resp.Failed++
			continue
		}
		resp.Results[i].Result = toCategorizeResponse(item.Record)
		switch item.Record.State {
		case domain.StateCompleted:
			resp.Completed++
		case domain.StateManualReview:
			resp.ManualReview++
		default:
			resp.Failed++
		}
	}

	h.logger.Info("Batch categorization completed",
		infralogger.Int("total", resp.Total),
		infralogger.Int("completed", resp.Completed),
		infralogger.Int("manual_review", resp.ManualReview),
		infralogger.Int("failed", resp.Failed),
	)
	c.JSON(http.StatusOK, resp)
}

// Validate handles POST /api/v1/validate
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.pipeline.Validate(req.Category, req.Payload)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toValidationResponse(&report))
}

// GetConfig handles GET /api/v1/config
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, toConfigResponse(h.store.Current(), true))
}

// ReloadConfig handles POST /api/v1/config/reload
func (h *Handler) ReloadConfig(c *gin.Context) {
	if h.loader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no configuration source"})
		return
	}

	snap, err := h.store.ReloadFrom(c.Request.Context(), h.loader)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("Configuration reloaded via API", infralogger.String("version", snap.Version))
	c.JSON(http.StatusOK, toConfigResponse(snap, false))
}

// ReplaceConfig handles PUT /api/v1/config
func (h *Handler) ReplaceConfig(c *gin.Context) {
	var cfg catalog.Configuration
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.store.Reload(&cfg)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("Configuration replaced via API", infralogger.String("version", snap.Version))
	c.JSON(http.StatusOK, toConfigResponse(snap, false))
}

// GetRecord handles GET /api/v1/records/:id
func (h *Handler) GetRecord(c *gin.Context) {
	row, err := h.records.GetByID(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, database.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("Failed to load record", infralogger.String("request_id", c.Param("id")), infralogger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load record"})
		return
	}
	c.JSON(http.StatusOK, row)
}

// ListRecords handles GET /api/v1/records?state=MANUAL_REVIEW&limit=50
func (h *Handler) ListRecords(c *gin.Context) {
	state := domain.RequestState(c.DefaultQuery("state", string(domain.StateManualReview)))
	if !state.Terminal() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state must be COMPLETED, FAILED or MANUAL_REVIEW"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRecordsLimit)))
	if err != nil || limit < 1 || limit > maxRecordsLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxRecordsLimit)})
		return
	}

	rows, err := h.records.ListByState(c.Request.Context(), state, limit)
	if err != nil {
		h.logger.Error("Failed to list records", infralogger.String("state", string(state)), infralogger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list records"})
		return
	}
	c.JSON(http.StatusOK, RecordsListResponse{Records: rows, Total: len(rows)})
}

// ReadyCheck handles GET /ready
func (h *Handler) ReadyCheck(c *gin.Context) {
	snap := h.store.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "ready",
		"config_version": snap.Version,
		"generation":     snap.Generation,
	})
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInputRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, processor.ErrPersistFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	if err == nil {
		return "request was not processed"
	}
	return err.Error()
}
