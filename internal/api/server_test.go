package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/terra-clan/carprice-engine/internal/artifacts"
	"github.com/terra-clan/carprice-engine/internal/config"
	"github.com/terra-clan/carprice-engine/internal/pricing"
	"github.com/terra-clan/carprice-engine/internal/sources"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := filepath.Join("..", "..", "testdata", "artifacts")
	reg, err := artifacts.Load(context.Background(), sources.NewDirProvider(artifacts.DirPaths(dir)))
	if err != nil {
		t.Fatalf("failed to load fixture artifacts: %v", err)
	}
	svc, err := pricing.NewService(reg, "fixture")
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080}, svc)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, env
}

const corollaJSON = `{
	"brand": "Toyota",
	"model": "Corolla",
	"color": "White",
	"transmission_type": "Automatic",
	"fuel_type": "Petrol",
	"power_ps": 150,
	"power_kw": 110.3,
	"mileage": 50000,
	"vehicle_age": 5,
	"fuel_consumption": 8.0
}`

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	rec, env := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !env.Success {
		t.Errorf("health: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, env = do(t, s, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: status %d", rec.Code)
	}
	var ready map[string]interface{}
	json.Unmarshal(env.Data, &ready)
	if ready["source"] != "dir" || ready["columns"] != float64(14) {
		t.Errorf("unexpected ready payload: %v", ready)
	}
}

func TestCreatePrediction(t *testing.T) {
	s := newTestServer(t)

	rec, env := do(t, s, http.MethodPost, "/api/v1/predictions", corollaJSON)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var p struct {
		ID        string  `json:"id"`
		Price     float64 `json:"price"`
		Formatted string  `json:"formatted"`
		Currency  string  `json:"currency"`
	}
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("failed to decode prediction: %v", err)
	}
	if p.Price != 19000 || p.Formatted != "$19,000.00" || p.Currency != "USD" || p.ID == "" {
		t.Errorf("unexpected prediction: %+v", p)
	}
}

func TestCreatePrediction_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
		field  string
	}{
		{"malformed json", `{"brand": `, http.StatusBadRequest, "invalid_request", ""},
		{"string for number", strings.Replace(corollaJSON, `"mileage": 50000`, `"mileage": "lots"`, 1), http.StatusBadRequest, "invalid_request", ""},
		{"unknown field", strings.Replace(corollaJSON, `"brand"`, `"make"`, 1), http.StatusBadRequest, "invalid_request", ""},
		{"missing numeric", strings.Replace(corollaJSON, `"vehicle_age": 5,`, ``, 1), http.StatusBadRequest, "validation_error", "vehicle_age"},
		{"below bound", strings.Replace(corollaJSON, `"power_ps": 150`, `"power_ps": 20`, 1), http.StatusBadRequest, "validation_error", "power_ps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, s, http.MethodPost, "/api/v1/predictions", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("unexpected error envelope: %s", rec.Body.String())
			}
			if env.Error.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, env.Error.Field)
			}
		})
	}
}

func TestCreatePrediction_UnseenCategoryIsAccepted(t *testing.T) {
	s := newTestServer(t)

	body := strings.Replace(corollaJSON, `"Toyota"`, `"Trabant"`, 1)
	rec, _ := do(t, s, http.MethodPost, "/api/v1/predictions", body)
	if rec.Code != http.StatusCreated {
		t.Errorf("unseen category should still predict, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEncode(t *testing.T) {
	s := newTestServer(t)

	rec, env := do(t, s, http.MethodPost, "/api/v1/encode", corollaJSON)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var vec struct {
		Columns []string  `json:"columns"`
		Values  []float64 `json:"values"`
	}
	if err := json.Unmarshal(env.Data, &vec); err != nil {
		t.Fatalf("failed to decode vector: %v", err)
	}
	if diff := cmp.Diff(s.pricing.Registry().Columns(), vec.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if len(vec.Values) != len(vec.Columns) {
		t.Errorf("values and columns differ in length: %d vs %d", len(vec.Values), len(vec.Columns))
	}
}

func TestSchemaAndCatalog(t *testing.T) {
	s := newTestServer(t)

	rec, env := do(t, s, http.MethodGet, "/api/v1/schema", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("schema: expected 200, got %d", rec.Code)
	}
	var schema struct {
		Columns       []string `json:"columns"`
		ModelFeatures int      `json:"model_features"`
	}
	json.Unmarshal(env.Data, &schema)
	if len(schema.Columns) != 14 || schema.ModelFeatures != 14 {
		t.Errorf("unexpected schema: %+v", schema)
	}

	rec, env = do(t, s, http.MethodGet, "/api/v1/catalog/brand", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog field: expected 200, got %d", rec.Code)
	}
	var field struct {
		Values []string `json:"values"`
	}
	json.Unmarshal(env.Data, &field)
	if diff := cmp.Diff([]string{"Toyota", "BMW", "Audi"}, field.Values); diff != "" {
		t.Errorf("brand values mismatch (-want +got):\n%s", diff)
	}

	rec, _ = do(t, s, http.MethodGet, "/api/v1/catalog/engine", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown field: expected 404, got %d", rec.Code)
	}

	rec, env = do(t, s, http.MethodGet, "/api/v1/catalog", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog: expected 200, got %d", rec.Code)
	}
	var all struct {
		Fields map[string][]string `json:"fields"`
		Rows   int                 `json:"reference_rows"`
	}
	json.Unmarshal(env.Data, &all)
	if len(all.Fields) != 5 || all.Rows != 5 {
		t.Errorf("unexpected catalog: %+v", all)
	}
}

func TestForm_NoPriceBeforeSubmit(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "Predicted Value") {
		t.Error("price must not be shown before an explicit submit")
	}
	for _, want := range []string{
		`<option value="Toyota" selected>`,
		`name="power_kw" min="36.775" step="any" value="110.325"`,
		`name="mileage" min="0" step="1" value="50000"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("form missing %q", want)
		}
	}
}

func TestForm_Submit(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{
		"brand":             {"Toyota"},
		"model":             {"Corolla"},
		"color":             {"White"},
		"transmission_type": {"Automatic"},
		"fuel_type":         {"Petrol"},
		"power_ps":          {"150"},
		"power_kw":          {"110.3"},
		"mileage":           {"50000"},
		"vehicle_age":       {"5"},
		"fuel_consumption":  {"8.0"},
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Predicted Value: $19,000.00") {
		t.Errorf("expected formatted price in page, got:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `<option value="Corolla" selected>`) {
		t.Error("submitted selection should be kept")
	}

	form.Set("mileage", "fifty thousand")
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric mileage, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "Predicted Value") {
		t.Error("no price may be shown for invalid input")
	}
	if !strings.Contains(body, "invalid mileage_in_km") {
		t.Errorf("expected validation message, got:\n%s", body)
	}
}
