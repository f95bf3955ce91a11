package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/folio/folio/internal/metrics"
	"github.com/folio/folio/internal/storage"
)

// multipartOverhead is the allowance for multipart headers and boundaries
// on top of the file size limit.
const multipartOverhead = 64 << 10

// ImageUploader stores uploaded images.
type ImageUploader interface {
	Upload(ctx context.Context, obj storage.Object) (*storage.Result, error)
	MaxBytes() int64
}

// UploadHandler handles admin image uploads.
type UploadHandler struct {
	uploader ImageUploader
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewUploadHandler creates a new UploadHandler. A nil uploader answers 503.
func NewUploadHandler(uploader ImageUploader, logger *slog.Logger, recorder metrics.Recorder) *UploadHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UploadHandler{
		uploader: uploader,
		logger:   logger.With("component", "handler.upload"),
		metrics:  recorder,
	}
}

// Upload handles POST <admin>/api/upload with multipart field "file".
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "STORAGE_NOT_CONFIGURED", "Object storage is not configured")
		return
	}

	maxBytes := h.uploader.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.metrics.IncUpload("rejected")
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "Multipart field \"file\" is required")
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		h.metrics.IncUpload("rejected")
		writeError(w, http.StatusBadRequest, "INVALID_FILE", "Could not read uploaded file")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.metrics.IncUpload("failed")
		h.logger.Error("failed to rewind upload", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	result, err := h.uploader.Upload(r.Context(), storage.Object{
		Body:        file,
		Size:        header.Size,
		ContentType: storage.DetectContentType(header.Header.Get("Content-Type"), head[:n]),
	})
	switch {
	case err == nil:
		h.metrics.IncUpload("stored")
		writeJSON(w, http.StatusCreated, result)
	case errors.Is(err, storage.ErrUnsupportedType):
		h.metrics.IncUpload("rejected")
		writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", "Only PNG, JPEG, WebP, GIF and SVG images are accepted")
	case errors.Is(err, storage.ErrTooLarge):
		h.metrics.IncUpload("rejected")
		writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the upload limit")
	case errors.Is(err, storage.ErrEmpty):
		h.metrics.IncUpload("rejected")
		writeError(w, http.StatusBadRequest, "EMPTY_FILE", "Uploaded file is empty")
	default:
		h.metrics.IncUpload("failed")
		h.logger.Error("upload failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusBadGateway, "UPLOAD_FAILED", "Failed to store file")
	}
}
