package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/vnshelf/internal/app"
	"github.com/Guilhem-Bonnet/vnshelf/internal/httpjson"
)

type PurchaseSourcesHandler struct {
	library   *app.LibraryService
	validator *Validator
}

func NewPurchaseSourcesHandler(library *app.LibraryService, validator *Validator) *PurchaseSourcesHandler {
	return &PurchaseSourcesHandler{library: library, validator: validator}
}

func (h *PurchaseSourcesHandler) Routes(r chi.Router) {
	r.Route("/purchase-sources", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.add)
		r.Put("/{name}", h.rename)
		r.Delete("/{name}", h.remove)
	})
}

type purchaseSourceRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *PurchaseSourcesHandler) list(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, h.library.PurchaseSources())
}

func (h *PurchaseSourcesHandler) add(w http.ResponseWriter, r *http.Request) {
	var req purchaseSourceRequest
	if err := h.validator.decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	src, err := h.library.AddPurchaseSource(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, src)
}

func (h *PurchaseSourcesHandler) rename(w http.ResponseWriter, r *http.Request) {
	var req purchaseSourceRequest
	if err := h.validator.decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rewritten, err := h.library.RenamePurchaseSource(r.Context(), nameParam(r), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"name": req.Name, "entries": rewritten})
}

func (h *PurchaseSourcesHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeletePurchaseSource(r.Context(), nameParam(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Les noms peuvent contenir des espaces ("Steam Store") : chi renvoie le segment encodé.
func nameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
