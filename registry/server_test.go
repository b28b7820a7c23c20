package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkoca/meshkit/logger"
)

func testServer(t *testing.T) (*gin.Engine, *Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewStore(time.Minute)
	engine := gin.New()
	NewServer(store, logger.NewDefault("test")).RegisterRoutes(engine)
	return engine, store
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestServer_RegisterThenGet(t *testing.T) {
	engine, _ := testServer(t)

	rec := doJSON(t, engine, http.MethodPost, "/registry/apps/billing",
		`{"id":"b-1","address":"10.0.0.1","port":8080,"metadata":{"zone":"a"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var registered Instance
	if err := json.Unmarshal(rec.Body.Bytes(), &registered); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if registered.Status != StatusUp || registered.LeaseTTL != time.Minute {
		t.Fatalf("unexpected registration %+v", registered)
	}

	rec = doJSON(t, engine, http.MethodGet, "/registry/apps/billing", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get app: expected 200, got %d", rec.Code)
	}

	var app Application
	if err := json.Unmarshal(rec.Body.Bytes(), &app); err != nil {
		t.Fatalf("decode app: %v", err)
	}
	if len(app.Instances) != 1 || app.Instances[0].Metadata["zone"] != "a" {
		t.Fatalf("unexpected app %+v", app)
	}
}

func TestServer_RegisterGeneratesID(t *testing.T) {
	engine, _ := testServer(t)

	rec := doJSON(t, engine, http.MethodPost, "/registry/apps/billing",
		`{"address":"10.0.0.1","port":8080}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var registered Instance
	if err := json.Unmarshal(rec.Body.Bytes(), &registered); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if registered.ID == "" {
		t.Fatal("expected a generated instance ID")
	}
}

func TestServer_RegisterValidation(t *testing.T) {
	engine, _ := testServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing address", `{"port":8080}`},
		{"bad port", `{"address":"10.0.0.1","port":99999}`},
		{"malformed json", `{not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, engine, http.MethodPost, "/registry/apps/billing", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestServer_HeartbeatUnknownIs404(t *testing.T) {
	engine, _ := testServer(t)

	rec := doJSON(t, engine, http.MethodPut, "/registry/apps/billing/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var body map[string]map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"]["code"] != "NOT_FOUND" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestServer_HeartbeatRenews(t *testing.T) {
	engine, store := testServer(t)

	store.Register(Instance{ID: "b-1", App: "billing", Address: "10.0.0.1", Port: 8080})

	rec := doJSON(t, engine, http.MethodPut, "/registry/apps/billing/b-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServer_Deregister(t *testing.T) {
	engine, store := testServer(t)

	store.Register(Instance{ID: "b-1", App: "billing", Address: "10.0.0.1", Port: 8080})

	rec := doJSON(t, engine, http.MethodDelete, "/registry/apps/billing/b-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodDelete, "/registry/apps/billing/b-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second deregister: expected 404, got %d", rec.Code)
	}
}

func TestServer_Snapshot(t *testing.T) {
	engine, store := testServer(t)

	store.Register(Instance{ID: "b-1", App: "billing", Address: "10.0.0.1", Port: 8080})
	store.Register(Instance{ID: "o-1", App: "orders", Address: "10.0.0.2", Port: 8080})

	rec := doJSON(t, engine, http.MethodGet, "/registry/apps", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Applications []Application `json:"applications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(body.Applications) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(body.Applications))
	}
}

func TestServer_UnknownAppIs404(t *testing.T) {
	engine, _ := testServer(t)

	rec := doJSON(t, engine, http.MethodGet, "/registry/apps/nothing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
