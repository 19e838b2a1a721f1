package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
	"github.com/David-Botos/enrollment-ingress/pkg/transfer"
)

// multipartOverhead is the slack allowed above the file limit for form framing
const multipartOverhead = 1 << 20

// Ingester reconciles an uploaded CSV into a dataset
type Ingester interface {
	Ingest(ctx context.Context, ds model.Dataset, source string, r io.Reader) (*transfer.IngestResult, error)
}

// Clearer deletes every row of a dataset
type Clearer interface {
	Clear(ctx context.Context, ds model.Dataset) (int64, error)
}

// UploadResponse is returned for a committed upload
type UploadResponse struct {
	Message     string   `json:"message"`
	RecordCount int      `json:"recordCount"`
	Inserted    int      `json:"inserted"`
	Updated     int      `json:"updated"`
	Skipped     int      `json:"skipped"`
	Details     []string `json:"details,omitempty"`
	BatchID     string   `json:"batchId"`
}

// ClearResponse is returned after a dataset is emptied
type ClearResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

// IngestHandler serves dataset uploads and clears
type IngestHandler struct {
	ingester       Ingester
	clearer        Clearer
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewIngestHandler creates an upload handler capped at maxUploadBytes per file
func NewIngestHandler(ingester Ingester, clearer Clearer, maxUploadBytes int64, logger *zap.Logger) *IngestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{
		ingester:       ingester,
		clearer:        clearer,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.Named("ingest-handler"),
	}
}

// Upload returns the POST handler for a dataset
func (h *IngestHandler) Upload(ds model.Dataset) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Content-Type"), "multipart/form-data") {
			RespondError(c, http.StatusBadRequest, CodeInvalidUpload, "Content type must be multipart/form-data")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

		fh, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				RespondError(c, http.StatusBadRequest, CodeInvalidUpload, h.sizeMessage())
				return
			}
			RespondError(c, http.StatusBadRequest, CodeInvalidUpload, "Invalid or missing file in request")
			return
		}
		if fh.Size > h.maxUploadBytes {
			RespondError(c, http.StatusBadRequest, CodeInvalidUpload, h.sizeMessage())
			return
		}
		if !strings.Contains(fh.Header.Get("Content-Type"), "csv") && !strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
			RespondError(c, http.StatusBadRequest, CodeInvalidUpload, "Only CSV files are allowed")
			return
		}

		f, err := fh.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, CodeInvalidUpload, "Invalid or missing file in request")
			return
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			RespondError(c, http.StatusBadRequest, CodeInvalidUpload, "Failed to read uploaded file")
			return
		}
		if len(bytes.TrimSpace(data)) == 0 {
			RespondError(c, http.StatusBadRequest, CodeInvalidInput, "CSV file is empty")
			return
		}

		result, err := h.ingester.Ingest(c.Request.Context(), ds, fh.Filename, bytes.NewReader(data))
		if err != nil {
			h.logger.Warn("Upload failed",
				zap.String("dataset", string(ds)),
				zap.String("file", fh.Filename),
				zap.Error(err))
			respondPipelineError(c, err)
			return
		}

		RespondOK(c, UploadResponse{
			Message:     "Data uploaded successfully",
			RecordCount: result.RecordCount,
			Inserted:    result.Inserted,
			Updated:     result.Updated,
			Skipped:     len(result.Skipped),
			Details:     result.SkippedDetails(),
			BatchID:     result.BatchID,
		})
	}
}

// Clear returns the DELETE handler for a dataset
func (h *IngestHandler) Clear(ds model.Dataset) gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := h.clearer.Clear(c.Request.Context(), ds)
		if err != nil {
			h.logger.Error("Failed to clear dataset", zap.String("dataset", string(ds)), zap.Error(err))
			RespondError(c, http.StatusInternalServerError, CodeClear, "Failed to clear data")
			return
		}
		RespondOK(c, ClearResponse{Message: "All data cleared successfully", Deleted: deleted})
	}
}

func (h *IngestHandler) sizeMessage() string {
	return fmt.Sprintf("File size exceeds maximum limit of %dMB", h.maxUploadBytes>>20)
}
