package router

import (
	"net/http"
	"path"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts domain groups under /api/{version}
type Router struct {
	engine     *gin.Engine
	apiVersion string
	logger     *zap.Logger
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithLogger sets the logger used for permission denials
func WithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be mounted by Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	if dg, ok := registrar.(*DomainGroup); ok && dg.logger == nil {
		dg.logger = r.logger
	}
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup mounts every registrar and returns the versioned group, so callers
// can hang routes that are not part of a domain group on it.
func (r *Router) Setup() *gin.RouterGroup {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
	return api
}

// Route is one endpoint of a domain group. A route with an empty AnyOf is
// open to every authenticated caller.
type Route struct {
	Method  string
	Path    string
	AnyOf   []string
	Handler gin.HandlerFunc
}

// DomainGroup collects the routes of one domain under a shared prefix.
// Every route carries the permissions that admit a caller, checked before
// the handler runs.
type DomainGroup struct {
	name       string
	prefix     string
	logger     *zap.Logger
	middleware []gin.HandlerFunc
	routes     []Route
	subgroups  []*DomainGroup
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware that runs before every route of this group and its
// subgroups
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// Handle registers a route admitting callers that hold any of anyOf
func (dg *DomainGroup) Handle(method, relativePath string, handler gin.HandlerFunc, anyOf ...string) *DomainGroup {
	dg.routes = append(dg.routes, Route{
		Method:  method,
		Path:    relativePath,
		AnyOf:   anyOf,
		Handler: handler,
	})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(relativePath string, handler gin.HandlerFunc, anyOf ...string) *DomainGroup {
	return dg.Handle(http.MethodGet, relativePath, handler, anyOf...)
}

// POST registers a POST route
func (dg *DomainGroup) POST(relativePath string, handler gin.HandlerFunc, anyOf ...string) *DomainGroup {
	return dg.Handle(http.MethodPost, relativePath, handler, anyOf...)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(relativePath string, handler gin.HandlerFunc, anyOf ...string) *DomainGroup {
	return dg.Handle(http.MethodPut, relativePath, handler, anyOf...)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(relativePath string, handler gin.HandlerFunc, anyOf ...string) *DomainGroup {
	return dg.Handle(http.MethodDelete, relativePath, handler, anyOf...)
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	subgroup.logger = dg.logger
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}

	cfg := middleware.PermissionConfig{Logger: dg.logger}
	for _, route := range dg.routes {
		handlers := make([]gin.HandlerFunc, 0, 2)
		if len(route.AnyOf) > 0 {
			handlers = append(handlers, middleware.RequireAnyPermissionWithConfig(cfg, route.AnyOf...))
		}
		handlers = append(handlers, route.Handler)
		group.Handle(route.Method, route.Path, handlers...)
	}

	for _, subgroup := range dg.subgroups {
		if subgroup.logger == nil {
			subgroup.logger = dg.logger
		}
		subgroup.RegisterRoutes(group)
	}
}

// Routes returns every route of the group and its subgroups with the full
// path below the API prefix
func (dg *DomainGroup) Routes() []Route {
	var out []Route
	for _, route := range dg.routes {
		route.Path = path.Join(dg.prefix, route.Path)
		out = append(out, route)
	}
	for _, subgroup := range dg.subgroups {
		for _, route := range subgroup.Routes() {
			route.Path = path.Join(dg.prefix, route.Path)
			out = append(out, route)
		}
	}
	return out
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}
