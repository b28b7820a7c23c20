package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dkoca/meshkit/errors"
	"github.com/dkoca/meshkit/logger"
	"github.com/dkoca/meshkit/observability"
	"github.com/dkoca/meshkit/registry"
	"github.com/dkoca/meshkit/server/middleware"
)

// lbScheme marks upstream URIs resolved through the service registry.
const lbScheme = "lb"

// Resolver picks an upstream instance for a load-balanced route.
// *registry.Client satisfies it.
type Resolver interface {
	Next(ctx context.Context, app string) (registry.Instance, error)
}

// route is a compiled RouteConfig.
type route struct {
	id         string
	service    string   // set for lb:// routes
	target     *url.URL // set for fixed routes
	order      int
	predicates []Predicate
	filters    []Filter
	limiter    *routeRateLimiter
}

func (rt *route) matches(r *http.Request) bool {
	for _, p := range rt.predicates {
		if !p.Matches(r) {
			return false
		}
	}
	return true
}

// Router proxies requests to upstream services according to its route
// table. It implements http.Handler.
type Router struct {
	routes   []*route
	resolver Resolver
	log      *logger.Logger

	requests metric.Int64Counter
	rejected metric.Int64Counter
}

// NewRouter compiles the route table. resolver may be nil when no route
// uses an lb:// URI.
func NewRouter(cfg Config, resolver Resolver, log *logger.Logger) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	routes := make([]*route, 0, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		rt, err := compileRoute(rc)
		if err != nil {
			return nil, err
		}
		if rt.service != "" && resolver == nil {
			return nil, errors.Validation("route " + rt.id + " uses lb:// but no resolver is configured")
		}
		routes = append(routes, rt)
	}
	sort.SliceStable(routes, func(i, j int) bool { return routes[i].order < routes[j].order })

	meter := observability.Meter()
	requests, err := meter.Int64Counter("gateway.requests",
		metric.WithDescription("Requests proxied per route"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("gateway.rejected",
		metric.WithDescription("Requests rejected before proxying"))
	if err != nil {
		return nil, err
	}

	return &Router{
		routes:   routes,
		resolver: resolver,
		log:      log.WithComponent("gateway"),
		requests: requests,
		rejected: rejected,
	}, nil
}

func compileRoute(rc RouteConfig) (*route, error) {
	predicates, err := parsePredicates(rc.Predicates)
	if err != nil {
		return nil, errors.Validation("route " + rc.ID + ": " + err.Error())
	}
	filters, err := parseFilters(rc.Filters)
	if err != nil {
		return nil, errors.Validation("route " + rc.ID + ": " + err.Error())
	}

	rt := &route{
		id:         rc.ID,
		order:      rc.Order,
		predicates: predicates,
		filters:    filters,
	}
	for _, f := range filters {
		if rrl, ok := f.(*routeRateLimiter); ok {
			rt.limiter = rrl
		}
	}

	target, err := url.Parse(rc.URI)
	if err != nil {
		return nil, errors.Validation("route " + rc.ID + ": invalid uri").WithCause(err)
	}
	if target.Scheme == lbScheme {
		if target.Host == "" {
			return nil, errors.Validation("route " + rc.ID + ": lb:// uri needs a service name")
		}
		rt.service = target.Host
	} else {
		rt.target = target
	}
	return rt, nil
}

// ServeHTTP routes the request to the first matching route and proxies it.
func (g *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt := g.match(r)
	if rt == nil {
		g.reject(r, "", "no_route")
		writeProxyError(w, errors.NoRoute(r.URL.Path))
		return
	}

	if rt.limiter != nil && !rt.limiter.allow() {
		g.reject(r, rt.id, "rate_limited")
		g.log.Warn("route rate limited", logger.Fields(logger.FieldRoute, rt.id))
		writeProxyError(w, errors.RateLimited())
		return
	}

	target := rt.target
	if rt.service != "" {
		inst, err := g.resolver.Next(r.Context(), rt.service)
		if err != nil {
			appErr, ok := errors.AsAppError(err)
			if !ok {
				appErr = errors.NoInstances(rt.service).WithCause(err)
			}
			g.reject(r, rt.id, "no_instances")
			g.log.Warn("upstream resolution failed", logger.Fields(
				logger.FieldRoute, rt.id,
				logger.FieldApp, rt.service,
				logger.FieldError, err.Error(),
			))
			writeProxyError(w, appErr)
			return
		}
		target = &url.URL{Scheme: "http", Host: inst.HostPort()}
	}

	g.requests.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("route", rt.id),
	))
	g.log.Debug("proxying request", logger.Fields(
		logger.FieldRoute, rt.id,
		logger.FieldUpstream, target.Host,
		"path", r.URL.Path,
	))
	g.proxy(rt, target).ServeHTTP(w, r)
}

func (g *Router) reject(r *http.Request, routeID, reason string) {
	attrs := []attribute.KeyValue{attribute.String("reason", reason)}
	if routeID != "" {
		attrs = append(attrs, attribute.String("route", routeID))
	}
	g.rejected.Add(r.Context(), 1, metric.WithAttributes(attrs...))
}

func (g *Router) match(r *http.Request) *route {
	for _, rt := range g.routes {
		if rt.matches(r) {
			return rt
		}
	}
	return nil
}

func (g *Router) proxy(rt *route, target *url.URL) *httputil.ReverseProxy {
	upstream := rt.service
	if upstream == "" {
		upstream = target.Host
	}

	return &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			clientHost := req.Host
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.Host = target.Host

			for _, f := range rt.filters {
				f.ApplyRequest(req)
			}
			forwardHeaders(req, clientHost)
		},
		ModifyResponse: func(resp *http.Response) error {
			for _, f := range rt.filters {
				if err := f.ApplyResponse(resp); err != nil {
					return err
				}
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			g.log.Error("upstream call failed", logger.Fields(
				logger.FieldRoute, rt.id,
				logger.FieldUpstream, upstream,
				logger.FieldError, err.Error(),
			))
			writeProxyError(w, errors.UpstreamFailed(upstream).WithCause(err))
		},
	}
}

// forwardHeaders stamps the correlation and forwarding headers carried to
// every upstream. The reverse proxy itself appends X-Forwarded-For.
func forwardHeaders(req *http.Request, clientHost string) {
	if req.Header.Get(middleware.HeaderRequestID) == "" {
		if id := logger.RequestIDFromContext(req.Context()); id != "" {
			req.Header.Set(middleware.HeaderRequestID, id)
		} else {
			req.Header.Set(middleware.HeaderRequestID, uuid.New().String())
		}
	}

	proto := "http"
	if req.TLS != nil {
		proto = "https"
	}
	if req.Header.Get("X-Forwarded-Proto") == "" {
		req.Header.Set("X-Forwarded-Proto", proto)
	}
	if req.Header.Get("X-Forwarded-Host") == "" {
		req.Header.Set("X-Forwarded-Host", clientHost)
	}

	observability.Inject(req.Context(), req.Header)
}

func writeProxyError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr.ToResponse())
}
