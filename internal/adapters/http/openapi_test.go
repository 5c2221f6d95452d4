package http_test

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mirage-hunt/mirage/api"
)

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	spec, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI document: %v", err)
	}
	return spec
}

// TestOpenAPISpec validates the embedded OpenAPI document and checks it covers the routes.
func TestOpenAPISpec(t *testing.T) {
	spec := loadOpenAPI(t)

	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI validation failed: %v", err)
	}

	expectedPaths := []string{
		"/",
		"/health",
		"/ready",
		"/logs",
		"/metrics",
		"/api/checkAnswer",
		"/api/getTarget",
		"/api/nearby",
		"/api/questions",
		"/api/leaderboard",
		"/graphql",
	}
	for _, path := range expectedPaths {
		if item := spec.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found", path)
		}
	}

	expectedSchemas := []string{
		"GeoPoint",
		"PositionRequest",
		"CheckAnswerRequest",
		"CheckAnswerResponse",
		"Question",
		"Target",
		"Standing",
		"Pagination",
		"APIError",
	}
	for _, schema := range expectedSchemas {
		if spec.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}

	t.Logf("OpenAPI document valid: %d paths, %d schemas", len(spec.Paths.Map()), len(spec.Components.Schemas))
}

// TestOpenAPICheckAnswerStatuses pins the documented outcomes of checkAnswer.
func TestOpenAPICheckAnswerStatuses(t *testing.T) {
	spec := loadOpenAPI(t)

	op := spec.Paths.Find("/api/checkAnswer").Post
	if op == nil {
		t.Fatal("checkAnswer has no POST operation")
	}
	for _, code := range []string{"200", "400", "403", "404", "467", "500"} {
		if op.Responses.Value(code) == nil {
			t.Errorf("checkAnswer does not document status %s", code)
		}
	}
}

func TestOpenAPIInfo(t *testing.T) {
	spec := loadOpenAPI(t)

	if spec.Info.Title != "Mirage Hunt API" {
		t.Errorf("expected title 'Mirage Hunt API', got %q", spec.Info.Title)
	}
	if spec.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", spec.Info.Version)
	}
	if spec.Info.Description == "" {
		t.Error("expected non-empty description")
	}
	if len(spec.Servers) == 0 {
		t.Error("expected at least one server")
	}
}
