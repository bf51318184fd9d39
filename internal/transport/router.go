package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lkpmandiri/backoffice/internal/api"
	"github.com/lkpmandiri/backoffice/internal/config"
	"github.com/lkpmandiri/backoffice/internal/definition"
	"github.com/lkpmandiri/backoffice/internal/lookup"
	"github.com/lkpmandiri/backoffice/internal/observability"
	"github.com/lkpmandiri/backoffice/internal/session"
	"github.com/lkpmandiri/backoffice/internal/upload"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Registry *definition.Registry
	Client   *api.Client
	Sessions *session.Manager
	Lookups  *lookup.Provider
	Uploads  *upload.Uploader
	Ready    observability.ReadinessChecks
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, metrics, login, and the public
// read-only mirrors bypass the session middleware.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(Recovery(deps.Logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	r.Use(observability.TracingMiddleware)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.MetricsMiddleware)
	}
	r.Use(RequestLogging(deps.Logger))

	r.Get("/ui/health", observability.HandleHealth())
	r.Get("/ui/ready", observability.HandleReady(deps.Ready))
	if deps.Config.Observability.Metrics.Enabled {
		r.Method(http.MethodGet, deps.Config.Observability.Metrics.Path, observability.Handler())
	}

	r.Post("/ui/auth/login", handleLogin(deps))

	// Public read-only mirrors for the marketing pages.
	r.Group(func(r chi.Router) {
		r.Use(PublicRequestContext)
		r.Get("/ui/public/{resource}", handlePublicList(deps))
	})

	// Authenticated admin surface.
	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(deps.Sessions, deps.Metrics))
		r.Use(HandlerTimeout(deps.Config.Server.WriteTimeout))

		r.Post("/ui/auth/logout", handleLogout(deps))
		r.Get("/ui/admin/session", handleSession(deps))

		r.Get("/ui/admin/resources", handleResourceIndex(deps))
		r.Get("/ui/admin/resources/{resource}/list-descriptor", handleListDescriptor(deps))
		r.Get("/ui/admin/resources/{resource}/form-descriptor", handleFormDescriptor(deps))

		r.Get("/ui/admin/resources/{resource}", handleList(deps))
		r.Post("/ui/admin/resources/{resource}", handleCreate(deps))
		r.Get("/ui/admin/resources/{resource}/{id}", handleGet(deps))
		r.Put("/ui/admin/resources/{resource}/{id}", handleUpdate(deps))
		r.Delete("/ui/admin/resources/{resource}/{id}", handleDelete(deps))

		r.Post("/ui/admin/upload", handleUpload(deps))
		r.Get("/ui/lookups/{lookup}", handleLookup(deps))
	})

	return r
}
