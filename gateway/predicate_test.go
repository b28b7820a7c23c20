package gateway

import (
	"net/http/httptest"
	"testing"
)

func TestPathPredicate(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/api/billing/**", "/api/billing/invoices", true},
		{"/api/billing/**", "/api/billing", true},
		{"/api/billing/**", "/api/billing/invoices/42", true},
		{"/api/billing/**", "/api/orders", false},
		{"/api/*/health", "/api/billing/health", true},
		{"/api/*/health", "/api/billing/info", false},
		{"/api/*/health", "/api/billing/deep/health", false},
		{"/api/{app}/health", "/api/billing/health", true},
		{"/api/{app}/health", "/api/billing/info", false},
		{"/exact", "/exact", true},
		{"/exact", "/exact/more", false},
		{"/", "/", true},
		{"/**", "/anything/at/all", true},
	}
	for _, tc := range cases {
		p, err := ParsePredicate("Path=" + tc.pattern)
		if err != nil {
			t.Fatalf("ParsePredicate(%s): %v", tc.pattern, err)
		}
		req := httptest.NewRequest("GET", tc.path, nil)
		if got := p.Matches(req); got != tc.want {
			t.Errorf("pattern %s path %s: got %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestPathPredicate_RejectsPartialWildcards(t *testing.T) {
	if _, err := ParsePredicate("Path=/api/bil*/x"); err == nil {
		t.Fatal("expected an error for a partial-segment wildcard")
	}
	if _, err := ParsePredicate("Path=no-leading-slash"); err == nil {
		t.Fatal("expected an error for a pattern without a leading slash")
	}
}

func TestMethodPredicate(t *testing.T) {
	p, err := ParsePredicate("Method=GET, post")
	if err != nil {
		t.Fatalf("ParsePredicate: %v", err)
	}

	if !p.Matches(httptest.NewRequest("GET", "/", nil)) {
		t.Error("GET should match")
	}
	if !p.Matches(httptest.NewRequest("POST", "/", nil)) {
		t.Error("POST should match (case-insensitive declaration)")
	}
	if p.Matches(httptest.NewRequest("DELETE", "/", nil)) {
		t.Error("DELETE should not match")
	}
}

func TestHostPredicate(t *testing.T) {
	exact, err := ParsePredicate("Host=api.example.com")
	if err != nil {
		t.Fatalf("ParsePredicate: %v", err)
	}
	wildcard, err := ParsePredicate("Host=*.example.com")
	if err != nil {
		t.Fatalf("ParsePredicate: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "api.example.com:8080"
	if !exact.Matches(req) {
		t.Error("exact host should match, ignoring the port")
	}
	if !wildcard.Matches(req) {
		t.Error("wildcard should match a subdomain")
	}

	req.Host = "example.com"
	if exact.Matches(req) {
		t.Error("apex must not match the exact subdomain predicate")
	}
	if !wildcard.Matches(req) {
		t.Error("wildcard should match the apex")
	}

	req.Host = "api.other.com"
	if wildcard.Matches(req) {
		t.Error("wildcard must not match another domain")
	}
}

func TestHeaderPredicate(t *testing.T) {
	present, err := ParsePredicate("Header=X-Env")
	if err != nil {
		t.Fatalf("ParsePredicate: %v", err)
	}
	valued, err := ParsePredicate("Header=X-Env,prod|staging")
	if err != nil {
		t.Fatalf("ParsePredicate: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	if present.Matches(req) {
		t.Error("missing header must not match")
	}

	req.Header.Set("X-Env", "prod")
	if !present.Matches(req) || !valued.Matches(req) {
		t.Error("prod should match both predicates")
	}

	req.Header.Set("X-Env", "production")
	if valued.Matches(req) {
		t.Error("value pattern must anchor the whole value")
	}
}

func TestParsePredicate_Unknown(t *testing.T) {
	if _, err := ParsePredicate("Cookie=session"); err == nil {
		t.Fatal("expected an error for an unknown predicate")
	}
	if _, err := ParsePredicate("no-equals"); err == nil {
		t.Fatal("expected an error for a malformed declaration")
	}
}
