package configserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dkoca/meshkit/logger"
)

func testConfigEngine(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	repo, err := NewFileRepository(dir)
	if err != nil {
		t.Fatalf("NewFileRepository: %v", err)
	}

	engine := gin.New()
	NewServer(repo, logger.NewDefault("test")).RegisterRoutes(engine)
	return engine, dir
}

func getEnv(t *testing.T, engine *gin.Engine, path string) (Environment, int) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var env Environment
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode environment: %v", err)
		}
	}
	return env, rec.Code
}

func TestConfigServer_ResolveWithProfile(t *testing.T) {
	engine, dir := testConfigEngine(t)

	writeDoc(t, dir, "application.yml", "shared: global\n")
	writeDoc(t, dir, "billing-prod.yml", "db:\n  url: postgres://prod/billing\n")

	env, code := getEnv(t, engine, "/config/billing/prod")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if env.Name != "billing" || env.Profiles[0] != "prod" {
		t.Fatalf("unexpected environment %+v", env)
	}

	props := env.Properties
	if props["db.url"] != "postgres://prod/billing" || props["shared"] != "global" {
		t.Fatalf("unexpected properties %v", props)
	}
}

func TestConfigServer_DefaultProfileRoute(t *testing.T) {
	engine, dir := testConfigEngine(t)

	writeDoc(t, dir, "billing.yml", "name: billing\n")

	env, code := getEnv(t, engine, "/config/billing")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if env.Profiles[0] != DefaultProfile {
		t.Fatalf("expected default profile, got %v", env.Profiles)
	}
	if env.Properties["name"] != "billing" {
		t.Fatalf("unexpected properties %v", env.Properties)
	}
}

func TestConfigServer_ResponseCarriesFlattenedProperties(t *testing.T) {
	engine, dir := testConfigEngine(t)

	writeDoc(t, dir, "billing.yml", "server:\n  port: 8080\n")

	req := httptest.NewRequest(http.MethodGet, "/config/billing/default", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	raw, ok := doc["properties"]
	if !ok {
		t.Fatalf("response has no top-level properties field: %s", rec.Body.String())
	}

	var props map[string]interface{}
	if err := json.Unmarshal(raw, &props); err != nil {
		t.Fatalf("decode properties: %v", err)
	}
	if props["server.port"] != float64(8080) {
		t.Fatalf("expected flattened server.port, got %v", props)
	}
}

func TestConfigServer_UnknownAppIsEmptyNot404(t *testing.T) {
	engine, _ := testConfigEngine(t)

	env, code := getEnv(t, engine, "/config/nothing/prod")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(env.PropertySources) != 0 {
		t.Fatalf("expected empty environment, got %v", env.PropertySources)
	}
}
