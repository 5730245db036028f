package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/bubbletasks/internal/api/shared"
	"github.com/phrazzld/bubbletasks/internal/platform/logger"
	"github.com/phrazzld/bubbletasks/internal/upload"
)

// UploadField is the multipart form field carrying the image.
const UploadField = "image"

// multipartOverhead leaves room for boundaries and part headers on top of
// the file size limit.
const multipartOverhead = 64 << 10

// UploadHandler handles icon image uploads.
type UploadHandler struct {
	store  *upload.Store
	logger *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(store *upload.Store, logger *slog.Logger) *UploadHandler {
	if store == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("upload store cannot be nil for UploadHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for UploadHandler")
	}
	return &UploadHandler{
		store:  store,
		logger: logger.With(slog.String("component", "upload_handler")),
	}
}

// Upload handles POST /upload with a multipart "image" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.store.MaxBytes()+multipartOverhead)

	reader, err := r.MultipartReader()
	if err != nil {
		HandleAPIError(w, r, upload.ErrEmpty, "")
		return
	}

	for {
		part, err := reader.NextPart()
		if err != nil {
			// io.EOF: no image field in the form
			if MapErrorToStatusCode(err) == http.StatusRequestEntityTooLarge {
				HandleAPIError(w, r, err, "")
				return
			}
			HandleAPIError(w, r, upload.ErrEmpty, "")
			return
		}
		if part.FormName() != UploadField || part.FileName() == "" {
			logger.FromContextOrDefault(r.Context(), h.logger).Debug("skipping multipart field",
				slog.String("field", part.FormName()))
			_ = part.Close()
			continue
		}

		result, err := h.store.Save(r.Context(), part)
		_ = part.Close()
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}

		shared.RespondWithJSON(w, r, http.StatusOK, UploadResponse{
			Success:  true,
			ImageURL: result.URL,
			Filename: result.Filename,
		})
		return
	}
}
