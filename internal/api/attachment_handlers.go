package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cvaas/quest-engine/internal/attachments"
)

// multipart overhead allowed on top of the file itself
const uploadFormOverhead = 1 << 20

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "attachment storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+uploadFormOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "expected multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "file is required")
		return
	}
	defer file.Close()

	if header.Size > s.maxUploadBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	principal := PrincipalFromContext(r.Context())
	ref, err := s.uploader.Upload(r.Context(), principal.UserID, header.Filename, contentType, header.Size, file)
	if err != nil {
		if errors.Is(err, attachments.ErrEmptyFile) {
			respondError(w, http.StatusBadRequest, "validation_error", "file is empty")
			return
		}
		slog.Error("failed to upload attachment", "error", err, "user", principal.MaskedUserID())
		respondError(w, http.StatusBadGateway, "upload_failed", "failed to store attachment")
		return
	}

	respondJSON(w, http.StatusCreated, ref)
}
