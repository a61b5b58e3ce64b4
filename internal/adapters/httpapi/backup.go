package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/vnshelf/internal/app"
	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/httpjson"
)

type BackupHandler struct {
	backup *app.BackupService
}

func NewBackupHandler(backup *app.BackupService) *BackupHandler {
	return &BackupHandler{backup: backup}
}

func (h *BackupHandler) Routes(r chi.Router) {
	r.Route("/backup", func(r chi.Router) {
		r.Get("/export", h.export)
		r.Post("/import", h.importBackup)
	})
}

func (h *BackupHandler) export(w http.ResponseWriter, r *http.Request) {
	var status domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, ok := domain.ParseStatus(raw)
		if !ok {
			httpjson.WriteError(w, http.StatusBadRequest, "unknown status")
			return
		}
		status = s
	}

	// Bufferisé : une erreur de lecture doit encore pouvoir produire un statut d'erreur.
	var buf bytes.Buffer
	if _, err := h.backup.Export(r.Context(), &buf, status); err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("vnshelf-backup-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *BackupHandler) importBackup(w http.ResponseWriter, r *http.Request) {
	n, err := h.backup.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]int{"imported": n})
}
