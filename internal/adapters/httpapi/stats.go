package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/vnshelf/internal/app"
	"github.com/Guilhem-Bonnet/vnshelf/internal/httpjson"
)

type StatsHandler struct {
	library *app.LibraryService
}

func NewStatsHandler(library *app.LibraryService) *StatsHandler {
	return &StatsHandler{library: library}
}

func (h *StatsHandler) Routes(r chi.Router) {
	r.Get("/stats", h.get)
}

func (h *StatsHandler) get(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, app.ComputeStats(h.library.Items()))
}
