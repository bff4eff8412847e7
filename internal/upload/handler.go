package upload

import (
	"encoding/json"
	"net/http"

	"moosedocs/pkg/logger"
)

// maxUploadBytes caps multipart uploads at 25 MB.
const maxUploadBytes = 25 << 20

type Handler struct {
	Uploader Uploader
}

func NewHandler(uploader Uploader) *Handler {
	return &Handler{Uploader: uploader}
}

// Upload accepts a multipart form with a "file" field and stores it in the
// object store, returning the attachment descriptor.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.Uploader == nil {
		http.Error(w, "File uploads are not configured", http.StatusNotImplemented)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment, err := h.Uploader.Upload(r.Context(), header.Filename, contentType, header.Size, file)
	if err != nil {
		logger.Sugar.Errorf("Failed to upload file %s: %v", header.Filename, err)
		http.Error(w, "Failed to store file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(attachment)
}
