package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/vnshelf/internal/app"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

// Deps regroupe les services exposés. Un service nil désactive ses routes.
type Deps struct {
	Catalog  Catalog
	Library  *app.LibraryService
	Refresh  *app.RefreshService
	Backup   *app.BackupService
	Settings *app.SettingsService
	Bus      ports.EventBus

	AllowedOrigins []string
}

type Server struct {
	logger    zerolog.Logger
	deps      Deps
	validator *Validator
}

func NewServer(logger zerolog.Logger, deps Deps) *Server {
	return &Server{logger: logger, deps: deps, validator: NewValidator()}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))
	if len(s.deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.deps.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "Request-Id"},
			ExposedHeaders: []string{"Request-Id", "Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// SSE hors timeout : le flux reste ouvert tant que le client écoute.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))

			r.Get("/health", s.handleHealth)
			r.Get("/version", s.handleVersion)
			r.Get("/openapi.json", s.handleOpenAPI)

			if s.deps.Catalog != nil {
				NewCatalogHandler(s.deps.Catalog).Routes(r)
			}
			if s.deps.Library != nil {
				NewLibraryHandler(s.deps.Library, s.deps.Catalog, s.deps.Refresh, s.validator).Routes(r)
				NewPurchaseSourcesHandler(s.deps.Library, s.validator).Routes(r)
				NewStatsHandler(s.deps.Library).Routes(r)
			}
			if s.deps.Backup != nil {
				NewBackupHandler(s.deps.Backup).Routes(r)
			}
			if s.deps.Settings != nil {
				NewSettingsHandler(s.deps.Settings).Routes(r)
			}
		})
	})

	return r
}
