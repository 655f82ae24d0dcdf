package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	fileapp "github.com/saas-starter-api/internal/application/file"
	"github.com/saas-starter-api/internal/domain"
	"github.com/saas-starter-api/internal/transport/http/middleware"
)

// FileHandler handles S3 file endpoints.
type FileHandler struct {
	svc fileapp.Service
}

func NewFileHandler(svc fileapp.Service) *FileHandler { return &FileHandler{svc: svc} }

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer f.Close()

	uploaded, err := h.svc.Upload(r.Context(), fileapp.UploadInput{
		Reader:      f,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		OwnerID:     claims.AccountID,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploaded)
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rc, f, err := h.svc.Download(r.Context(), chi.URLParam(r, "id"), claims.AccountID, claims.Role == domain.RoleAdmin)
	if err != nil {
		httpError(w, err)
		return
	}
	defer rc.Close()
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	_, _ = io.Copy(w, rc)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), claims.AccountID, claims.Role == domain.RoleAdmin); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "file deleted"})
}
