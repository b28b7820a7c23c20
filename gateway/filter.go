package gateway

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/dkoca/meshkit/resilience"
)

// Filter mutates the request on the way to the upstream and, optionally,
// the response on the way back.
type Filter interface {
	// ApplyRequest mutates the outgoing request. Called before proxying.
	ApplyRequest(r *http.Request)
	// ApplyResponse mutates the upstream response. Called before the
	// response is written back to the client.
	ApplyResponse(resp *http.Response) error
}

// baseFilter provides no-op halves so filters only implement the side
// they care about.
type baseFilter struct{}

func (baseFilter) ApplyRequest(*http.Request)         {}
func (baseFilter) ApplyResponse(*http.Response) error { return nil }

// ParseFilter compiles one filter declaration of the form "Name=args".
// Supported names are AddRequestHeader, RemoveRequestHeader,
// AddResponseHeader, StripPrefix, RewritePath, and RequestRateLimiter.
func ParseFilter(spec string) (Filter, error) {
	name, args, _ := strings.Cut(spec, "=")

	switch name {
	case "AddRequestHeader":
		key, value, err := splitPair(spec, args)
		if err != nil {
			return nil, err
		}
		return &addRequestHeader{key: key, value: value}, nil
	case "RemoveRequestHeader":
		if strings.TrimSpace(args) == "" {
			return nil, fmt.Errorf("filter %q: header name required", spec)
		}
		return &removeRequestHeader{key: strings.TrimSpace(args)}, nil
	case "AddResponseHeader":
		key, value, err := splitPair(spec, args)
		if err != nil {
			return nil, err
		}
		return &addResponseHeader{key: key, value: value}, nil
	case "StripPrefix":
		n, err := strconv.Atoi(strings.TrimSpace(args))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("filter %q: expected a positive segment count", spec)
		}
		return &stripPrefix{n: n}, nil
	case "RewritePath":
		pattern, replacement, err := splitPair(spec, args)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", spec, err)
		}
		return &rewritePath{re: re, replacement: replacement}, nil
	case "RequestRateLimiter":
		rate, burst, err := splitPair(spec, args)
		if err != nil {
			return nil, err
		}
		r, err := strconv.ParseFloat(rate, 64)
		if err != nil || r <= 0 {
			return nil, fmt.Errorf("filter %q: invalid rate", spec)
		}
		b, err := strconv.Atoi(burst)
		if err != nil || b < 1 {
			return nil, fmt.Errorf("filter %q: invalid burst", spec)
		}
		return newRouteRateLimiter(r, b), nil
	default:
		return nil, fmt.Errorf("unknown filter %q", name)
	}
}

// parseFilters compiles a route's filter declarations.
func parseFilters(specs []string) ([]Filter, error) {
	filters := make([]Filter, 0, len(specs))
	for _, spec := range specs {
		f, err := ParseFilter(spec)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func splitPair(spec, args string) (string, string, error) {
	first, second, ok := strings.Cut(args, ",")
	first, second = strings.TrimSpace(first), strings.TrimSpace(second)
	if !ok || first == "" || second == "" {
		return "", "", fmt.Errorf("filter %q: expected two comma-separated arguments", spec)
	}
	return first, second, nil
}

type addRequestHeader struct {
	baseFilter
	key, value string
}

func (f *addRequestHeader) ApplyRequest(r *http.Request) {
	r.Header.Set(f.key, f.value)
}

type removeRequestHeader struct {
	baseFilter
	key string
}

func (f *removeRequestHeader) ApplyRequest(r *http.Request) {
	r.Header.Del(f.key)
}

type addResponseHeader struct {
	baseFilter
	key, value string
}

func (f *addResponseHeader) ApplyResponse(resp *http.Response) error {
	resp.Header.Set(f.key, f.value)
	return nil
}

// stripPrefix removes the first n path segments before proxying, so
// "/api/billing/invoices" with StripPrefix=2 reaches the upstream as
// "/invoices".
type stripPrefix struct {
	baseFilter
	n int
}

func (f *stripPrefix) ApplyRequest(r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", f.n+1)
	if len(parts) <= f.n {
		r.URL.Path = "/"
	} else {
		r.URL.Path = "/" + parts[f.n]
	}
	r.URL.RawPath = ""
}

// rewritePath rewrites the request path with a regular expression.
// Replacement groups use Go syntax ($1, ${name}).
type rewritePath struct {
	baseFilter
	re          *regexp.Regexp
	replacement string
}

func (f *rewritePath) ApplyRequest(r *http.Request) {
	r.URL.Path = f.re.ReplaceAllString(r.URL.Path, f.replacement)
	r.URL.RawPath = ""
}

// routeRateLimiter bounds the request rate through a route. It is checked
// by the router before proxying rather than mutating the request.
type routeRateLimiter struct {
	baseFilter
	limiter *resilience.RateLimiter
}

func newRouteRateLimiter(rate float64, burst int) *routeRateLimiter {
	return &routeRateLimiter{
		limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  rate,
			Burst: burst,
		}),
	}
}

func (f *routeRateLimiter) allow() bool {
	return f.limiter.Allow()
}
