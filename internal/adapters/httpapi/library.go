package httpapi

import (
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/vnshelf/internal/app"
	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/httpjson"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

type LibraryHandler struct {
	library   *app.LibraryService
	catalog   Catalog
	refresh   *app.RefreshService
	validator *Validator
}

func NewLibraryHandler(library *app.LibraryService, catalog Catalog, refresh *app.RefreshService, validator *Validator) *LibraryHandler {
	return &LibraryHandler{library: library, catalog: catalog, refresh: refresh, validator: validator}
}

func (h *LibraryHandler) Routes(r chi.Router) {
	r.Route("/library", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.add)
		r.Get("/ranking", h.ranking)
		r.Get("/roulette", h.roulette)
		if h.refresh != nil {
			r.Post("/refresh", h.startRefresh)
			r.Get("/refresh/{jobId}", h.getRefresh)
			r.Post("/refresh/{jobId}/cancel", h.cancelRefresh)
		}
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

type addEntryRequest struct {
	CatalogID        string                `json:"catalogId"`
	Status           string                `json:"status" validate:"required,oneof=playing completed on_hold dropped plan_to_play watched"`
	Score            int                   `json:"score" validate:"gte=0,lte=100"`
	Notes            string                `json:"notes"`
	Review           string                `json:"review"`
	PlayTime         *int                  `json:"playTime" validate:"omitempty,gte=0"`
	PurchaseLocation *string               `json:"purchaseLocation"`
	VN               *domain.CatalogRecord `json:"vn"`
}

type updateEntryRequest struct {
	Status           *string     `json:"status" validate:"omitempty,oneof=playing completed on_hold dropped plan_to_play watched"`
	Score            *int        `json:"score" validate:"omitempty,gte=0,lte=100"`
	Notes            *string     `json:"notes"`
	Review           *string     `json:"review"`
	// null efface le temps de jeu.
	PlayTime         nullableInt `json:"playTime" validate:"omitempty,gte=0"`
	PurchaseLocation *string     `json:"purchaseLocation"`
}

func (h *LibraryHandler) list(w http.ResponseWriter, r *http.Request) {
	items := h.library.Items()

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			httpjson.WriteError(w, http.StatusBadRequest, "unknown status")
			return
		}
		items = app.FilterByStatus(items, status)
	}
	opt, err := app.ParseSortOption(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, app.SortEntries(items, opt))
}

// add utilise le snapshot fourni (vn) s'il est présent, sinon le récupère au catalogue.
func (h *LibraryHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := h.validator.decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var record domain.CatalogRecord
	switch {
	case req.VN != nil && strings.TrimSpace(req.VN.ID) != "":
		record = *req.VN
	case strings.TrimSpace(req.CatalogID) != "" && h.catalog != nil:
		rec, err := h.catalog.GetByID(r.Context(), req.CatalogID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if rec == nil {
			writeError(w, r, ports.ErrNotFound)
			return
		}
		record = *rec
	default:
		writeError(w, r, &ValidationError{Fields: map[string]string{"catalogId": "is required"}})
		return
	}

	entry, err := h.library.AddItem(r.Context(), app.AddItemInput{
		Record:           record,
		Status:           domain.Status(req.Status),
		Score:            req.Score,
		Notes:            req.Notes,
		PlayTimeMinutes:  req.PlayTime,
		Review:           req.Review,
		PurchaseLocation: req.PurchaseLocation,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, entry)
}

func (h *LibraryHandler) get(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.library.GetItem(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, ports.ErrNotFound)
		return
	}
	httpjson.Write(w, http.StatusOK, entry)
}

// update applique uniquement les champs présents dans le corps.
func (h *LibraryHandler) update(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.library.GetItem(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, ports.ErrNotFound)
		return
	}

	var req updateEntryRequest
	if err := h.validator.decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status != nil {
		entry.Status = domain.Status(*req.Status)
	}
	if req.Score != nil {
		entry.Score = *req.Score
	}
	if req.Notes != nil {
		entry.Notes = *req.Notes
	}
	if req.Review != nil {
		entry.Review = *req.Review
	}
	if req.PlayTime.Set {
		entry.PlayTimeMinutes = req.PlayTime.Value
	}
	if req.PurchaseLocation != nil {
		entry.PurchaseLocation = req.PurchaseLocation
	}

	updated, err := h.library.UpdateItem(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

func (h *LibraryHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.library.RemoveItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LibraryHandler) ranking(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, app.Ranking(h.library.Items()))
}

func (h *LibraryHandler) roulette(w http.ResponseWriter, r *http.Request) {
	entry, err := app.PickRoulette(h.library.Items(), rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, entry)
}

func (h *LibraryHandler) startRefresh(w http.ResponseWriter, r *http.Request) {
	job, err := h.refresh.Start()
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, job)
}

func (h *LibraryHandler) getRefresh(w http.ResponseWriter, r *http.Request) {
	job, err := h.refresh.Get(chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, job)
}

func (h *LibraryHandler) cancelRefresh(w http.ResponseWriter, r *http.Request) {
	job, err := h.refresh.Cancel(chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, job)
}
