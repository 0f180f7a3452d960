package openapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestYAMLDescribesEveryRoute(t *testing.T) {
	spec, err := YAML()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var doc Document
	if err := yaml.Unmarshal(spec, &doc); err != nil {
		t.Fatalf("parse rendered spec: %v", err)
	}
	if doc.Info.Title != Title || doc.Info.Version != Version || doc.Info.License.Name != "Apache 2.0" {
		t.Fatalf("unexpected info %+v", doc.Info)
	}
	routes := map[string][]string{
		"/v1/clients":                         {"get", "post"},
		"/v1/clients/{id}":                    {"get", "put", "delete"},
		"/v1/exports":                         {"post"},
		"/v1/exports/{id}":                    {"get", "delete"},
		"/v1/exports/{id}/artifacts/{format}": {"get"},
	}
	for path, methods := range routes {
		item, ok := doc.Paths[path]
		if !ok {
			t.Fatalf("missing path %s", path)
		}
		ops := map[string]*Operation{"get": item.Get, "post": item.Post, "put": item.Put, "delete": item.Delete}
		for _, m := range methods {
			if ops[m] == nil {
				t.Fatalf("missing %s %s", m, path)
			}
		}
	}
	if got := doc.Paths["/v1/clients"].Post.Responses["201"].Content["application/json"].Schema.Type; got != "integer" {
		t.Fatalf("expected create to return an integer id, got %q", got)
	}
	client := doc.Components.Schemas["Client"]
	if _, ok := client.Properties["client"]; !ok || len(client.Required) != 3 {
		t.Fatalf("unexpected client schema %+v", client)
	}
}

func TestYAMLReturnsCopy(t *testing.T) {
	first, err := YAML()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	first[0] ^= 0xFF
	second, _ := YAML()
	if bytes.Equal(first, second) {
		t.Fatalf("expected YAML to return a fresh copy")
	}
}

func TestHandlerServesYAML(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/openapi.yaml", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/yaml" {
		t.Fatalf("expected application/yaml, got %q", got)
	}
	expected, _ := YAML()
	if !bytes.Equal(rec.Body.Bytes(), expected) {
		t.Fatalf("handler body does not match rendered spec")
	}
}
