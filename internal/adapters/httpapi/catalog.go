package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/httpjson"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

// Catalog est implémenté par app.CatalogService.
type Catalog interface {
	Search(ctx context.Context, query string) ([]domain.CatalogRecord, error)
	GetByID(ctx context.Context, id string) (*domain.CatalogRecord, error)
}

// CatalogRecordDTO expose le drapeau "sensible" calculé côté serveur.
type CatalogRecordDTO struct {
	domain.CatalogRecord
	Sensitive bool `json:"sensitive"`
}

func toCatalogDTO(rec domain.CatalogRecord) CatalogRecordDTO {
	return CatalogRecordDTO{CatalogRecord: rec, Sensitive: rec.IsSensitive()}
}

type CatalogHandler struct {
	catalog Catalog
}

func NewCatalogHandler(catalog Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) Routes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/search", h.search)
		r.Get("/vn/{id}", h.get)
	})
}

func (h *CatalogHandler) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httpjson.WriteError(w, http.StatusBadRequest, "missing q")
		return
	}
	records, err := h.catalog.Search(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]CatalogRecordDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, toCatalogDTO(rec))
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rec == nil {
		writeError(w, r, ports.ErrNotFound)
		return
	}
	httpjson.Write(w, http.StatusOK, toCatalogDTO(*rec))
}
