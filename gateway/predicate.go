package gateway

import (
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
)

// Predicate decides whether a request matches a route.
type Predicate interface {
	Matches(r *http.Request) bool
}

// ParsePredicate compiles one predicate declaration of the form
// "Name=args". Supported names are Path, Method, Host, and Header.
func ParsePredicate(spec string) (Predicate, error) {
	name, args, ok := strings.Cut(spec, "=")
	if !ok {
		return nil, fmt.Errorf("predicate %q: expected Name=args", spec)
	}

	switch name {
	case "Path":
		return newPathPredicate(args)
	case "Method":
		return newMethodPredicate(args)
	case "Host":
		return newHostPredicate(args)
	case "Header":
		return newHeaderPredicate(args)
	default:
		return nil, fmt.Errorf("unknown predicate %q", name)
	}
}

// parsePredicates compiles a route's predicate declarations.
func parsePredicates(specs []string) ([]Predicate, error) {
	predicates := make([]Predicate, 0, len(specs))
	for _, spec := range specs {
		p, err := ParsePredicate(spec)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}
	return predicates, nil
}

// pathPredicate matches the request path against a segment pattern.
// "*" or "{name}" matches exactly one segment and a trailing "**" matches
// any remainder, including none.
type pathPredicate struct {
	segments []string
	wildcard bool // pattern ends in /**
}

func newPathPredicate(pattern string) (*pathPredicate, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("path pattern %q must start with /", pattern)
	}

	p := &pathPredicate{}
	trimmed := strings.Trim(pattern, "/")
	if trimmed != "" {
		p.segments = strings.Split(trimmed, "/")
	}
	if n := len(p.segments); n > 0 && p.segments[n-1] == "**" {
		p.segments = p.segments[:n-1]
		p.wildcard = true
	}
	for i, seg := range p.segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			p.segments[i] = "*"
			continue
		}
		if strings.Contains(seg, "*") && seg != "*" {
			return nil, fmt.Errorf("path pattern %q: partial-segment wildcards are not supported", pattern)
		}
	}
	return p, nil
}

func (p *pathPredicate) Matches(r *http.Request) bool {
	var parts []string
	if trimmed := strings.Trim(r.URL.Path, "/"); trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}

	if p.wildcard {
		if len(parts) < len(p.segments) {
			return false
		}
	} else if len(parts) != len(p.segments) {
		return false
	}

	for i, seg := range p.segments {
		if seg != "*" && seg != parts[i] {
			return false
		}
	}
	return true
}

// methodPredicate matches the request method against an allow list.
type methodPredicate struct {
	methods map[string]bool
}

func newMethodPredicate(args string) (*methodPredicate, error) {
	methods := make(map[string]bool)
	for _, m := range strings.Split(args, ",") {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" {
			return nil, fmt.Errorf("method predicate %q: empty method", args)
		}
		methods[m] = true
	}
	return &methodPredicate{methods: methods}, nil
}

func (p *methodPredicate) Matches(r *http.Request) bool {
	return p.methods[r.Method]
}

// hostPredicate matches the request host, optionally with a leading
// "*." wildcard covering any subdomain.
type hostPredicate struct {
	host     string
	wildcard bool
}

func newHostPredicate(args string) (*hostPredicate, error) {
	host := strings.ToLower(strings.TrimSpace(args))
	if host == "" {
		return nil, fmt.Errorf("host predicate requires a host")
	}
	if rest, ok := strings.CutPrefix(host, "*."); ok {
		return &hostPredicate{host: rest, wildcard: true}, nil
	}
	return &hostPredicate{host: host}, nil
}

func (p *hostPredicate) Matches(r *http.Request) bool {
	host := strings.ToLower(r.Host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if p.wildcard {
		return host == p.host || strings.HasSuffix(host, "."+p.host)
	}
	return host == p.host
}

// headerPredicate matches when a header is present and, when a pattern is
// given, its value matches the pattern.
type headerPredicate struct {
	name    string
	pattern *regexp.Regexp
}

func newHeaderPredicate(args string) (*headerPredicate, error) {
	name, value, hasValue := strings.Cut(args, ",")
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("header predicate requires a header name")
	}

	p := &headerPredicate{name: name}
	if hasValue {
		pattern, err := regexp.Compile("^(?:" + strings.TrimSpace(value) + ")$")
		if err != nil {
			return nil, fmt.Errorf("header predicate %q: %w", args, err)
		}
		p.pattern = pattern
	}
	return p, nil
}

func (p *headerPredicate) Matches(r *http.Request) bool {
	value := r.Header.Get(p.name)
	if value == "" {
		return false
	}
	return p.pattern == nil || p.pattern.MatchString(value)
}
