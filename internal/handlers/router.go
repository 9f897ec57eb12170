package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skm-mango/storefront/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type middlewareFunc = func(http.Handler) http.Handler

// routeGroup is an authenticated prefix under the API base path. A group without a registrar
// answers 501 so clients can tell a missing deployment from a missing route.
type routeGroup struct {
	name        string
	registrar   RouteRegistrar
	middlewares []middlewareFunc
}

type routerConfig struct {
	basePath    string
	middlewares []middlewareFunc
	health      *HealthHandlers
	public      RouteRegistrar
	me          routeGroup
	orders      routeGroup
	admin       routeGroup
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix = "/api/v1"
	requestTimeout   = 60 * time.Second
)

// NewRouter builds the storefront router: probes at the root, the catalog and public settings
// at /api/v1, and the /me, /orders and /admin groups behind their own middleware.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath:    defaultAPIPrefix,
		middlewares: []middlewareFunc{middleware.RequestID, middleware.RealIP, middleware.Timeout(requestTimeout)},
		me:          routeGroup{name: "me"},
		orders:      routeGroup{name: "orders"},
		admin:       routeGroup{name: "admin"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	useAll(r, cfg.middlewares)
	r.NotFound(routeNotFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		if cfg.public != nil {
			api.Group(cfg.public)
		}
		for _, group := range []routeGroup{cfg.me, cfg.orders, cfg.admin} {
			group.mount(api)
		}
	})
	return r
}

func (g routeGroup) mount(api chi.Router) {
	api.Route("/"+g.name, func(r chi.Router) {
		useAll(r, g.middlewares)
		if g.registrar == nil {
			notImplemented(r, g.name)
			return
		}
		g.registrar(r)
	})
}

func useAll(r chi.Router, middlewares []middlewareFunc) {
	for _, mw := range middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}
}

func routeNotFound(w http.ResponseWriter, req *http.Request) {
	httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
}

func methodNotAllowed(w http.ResponseWriter, req *http.Request) {
	httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
}

func notImplemented(r chi.Router, name string) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s routes not implemented", name), http.StatusNotImplemented))
	}
	r.HandleFunc("/", handler)
	r.HandleFunc("/*", handler)
}

// WithMiddlewares appends global middleware after the request id, real ip and timeout defaults.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithPublicRoutes registers unauthenticated endpoints at the API root.
func WithPublicRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.public = reg
	}
}

// WithMeRoutes registers the /me group (saved addresses).
func WithMeRoutes(reg RouteRegistrar, mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.me.registrar = reg
		cfg.me.middlewares = append(cfg.me.middlewares, mw...)
	}
}

// WithOrderRoutes registers the customer /orders group.
func WithOrderRoutes(reg RouteRegistrar, mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.orders.registrar = reg
		cfg.orders.middlewares = append(cfg.orders.middlewares, mw...)
	}
}

// WithAdminRoutes registers the staff /admin group.
func WithAdminRoutes(reg RouteRegistrar, mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.admin.registrar = reg
		cfg.admin.middlewares = append(cfg.admin.middlewares, mw...)
	}
}
