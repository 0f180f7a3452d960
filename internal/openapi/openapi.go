// Package openapi builds the OpenAPI 3 contract of the client API and serves
// it as YAML.
package openapi

import (
	"fmt"
	"net/http"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	Title   = "Client REST API"
	Version = "1.0.0"
)

// Document is the subset of the OpenAPI 3.0 object model the API needs.
type Document struct {
	OpenAPI    string              `yaml:"openapi"`
	Info       Info                `yaml:"info"`
	Paths      map[string]PathItem `yaml:"paths"`
	Components Components          `yaml:"components"`
}

type Info struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description,omitempty"`
	Version     string  `yaml:"version"`
	License     License `yaml:"license"`
}

type License struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url,omitempty"`
}

type PathItem struct {
	Get    *Operation `yaml:"get,omitempty"`
	Post   *Operation `yaml:"post,omitempty"`
	Put    *Operation `yaml:"put,omitempty"`
	Delete *Operation `yaml:"delete,omitempty"`
}

type Operation struct {
	OperationID string              `yaml:"operationId"`
	Summary     string              `yaml:"summary"`
	Tags        []string            `yaml:"tags,omitempty"`
	Parameters  []Parameter         `yaml:"parameters,omitempty"`
	RequestBody *RequestBody        `yaml:"requestBody,omitempty"`
	Responses   map[string]Response `yaml:"responses"`
}

type Parameter struct {
	Name     string `yaml:"name"`
	In       string `yaml:"in"`
	Required bool   `yaml:"required,omitempty"`
	Schema   Schema `yaml:"schema"`
}

type RequestBody struct {
	Required bool                 `yaml:"required"`
	Content  map[string]MediaType `yaml:"content"`
}

type Response struct {
	Description string               `yaml:"description"`
	Content     map[string]MediaType `yaml:"content,omitempty"`
}

type MediaType struct {
	Schema Schema `yaml:"schema"`
}

type Schema struct {
	Ref        string            `yaml:"$ref,omitempty"`
	Type       string            `yaml:"type,omitempty"`
	Format     string            `yaml:"format,omitempty"`
	Nullable   bool              `yaml:"nullable,omitempty"`
	Required   []string          `yaml:"required,omitempty"`
	Properties map[string]Schema `yaml:"properties,omitempty"`
	Items      *Schema           `yaml:"items,omitempty"`
	Enum       []string          `yaml:"enum,omitempty"`
}

type Components struct {
	Schemas map[string]Schema `yaml:"schemas"`
}

func ref(name string) Schema { return Schema{Ref: "#/components/schemas/" + name} }

func jsonContent(s Schema) map[string]MediaType {
	return map[string]MediaType{"application/json": {Schema: s}}
}

var (
	notFound = Response{
		Description: "Record not found; body is `Data not found - <detail>`",
		Content:     map[string]MediaType{"text/plain": {Schema: Schema{Type: "string"}}},
	}
	invalid = Response{Description: "Validation failed", Content: jsonContent(ref("ValidationFailure"))}
	idParam = Parameter{Name: "id", In: "path", Required: true, Schema: Schema{Type: "integer", Format: "int64"}}

	exportIDParam = Parameter{Name: "id", In: "path", Required: true, Schema: Schema{Type: "string", Format: "uuid"}}
	unknownExport = Response{Description: "Unknown export", Content: jsonContent(ref("Error"))}
)

// Build returns the contract for every route the server mounts.
func Build() Document {
	clientBody := &RequestBody{Required: true, Content: jsonContent(ref("Client"))}
	nullableString := Schema{Type: "string", Nullable: true}
	return Document{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:       Title,
			Description: "CRUD operations on client records with ID number checksum and uniqueness validation.",
			Version:     Version,
			License:     License{Name: "Apache 2.0", URL: "https://www.apache.org/licenses/LICENSE-2.0"},
		},
		Paths: map[string]PathItem{
			"/v1/clients": {
				Get: &Operation{
					OperationID: "searchClients",
					Summary:     "Find clients matching any supplied criterion",
					Tags:        []string{"clients"},
					Parameters: []Parameter{
						{Name: "idNumber", In: "query", Schema: Schema{Type: "string"}},
						{Name: "firstName", In: "query", Schema: Schema{Type: "string"}},
						{Name: "mobileNumber", In: "query", Schema: Schema{Type: "string"}},
					},
					Responses: map[string]Response{
						"200": {Description: "Matching clients ordered by id", Content: jsonContent(Schema{Type: "array", Items: &Schema{Ref: "#/components/schemas/Client"}})},
					},
				},
				Post: &Operation{
					OperationID: "createClient",
					Summary:     "Create a client",
					Tags:        []string{"clients"},
					RequestBody: clientBody,
					Responses: map[string]Response{
						"201": {Description: "Identifier of the new client", Content: jsonContent(Schema{Type: "integer", Format: "int64"})},
						"400": invalid,
					},
				},
			},
			"/v1/clients/{id}": {
				Get: &Operation{
					OperationID: "findClient",
					Summary:     "Fetch a client",
					Tags:        []string{"clients"},
					Parameters:  []Parameter{idParam},
					Responses:   map[string]Response{"200": {Description: "The client", Content: jsonContent(ref("Client"))}, "404": notFound},
				},
				Put: &Operation{
					OperationID: "updateClient",
					Summary:     "Replace a client",
					Tags:        []string{"clients"},
					Parameters:  []Parameter{idParam},
					RequestBody: clientBody,
					Responses: map[string]Response{
						"200": {Description: "The updated client", Content: jsonContent(ref("Client"))},
						"400": invalid,
						"404": notFound,
					},
				},
				Delete: &Operation{
					OperationID: "removeClient",
					Summary:     "Delete a client",
					Tags:        []string{"clients"},
					Parameters:  []Parameter{idParam},
					Responses:   map[string]Response{"204": {Description: "Deleted"}, "404": notFound},
				},
			},
			"/v1/exports": {
				Post: &Operation{
					OperationID: "createExport",
					Summary:     "Queue an export of the client list",
					Tags:        []string{"exports"},
					RequestBody: &RequestBody{Content: jsonContent(ref("ExportRequest"))},
					Responses: map[string]Response{
						"202": {Description: "Export queued", Content: jsonContent(ref("ExportEnvelope"))},
						"400": {Description: "Invalid request", Content: jsonContent(ref("Error"))},
						"503": {Description: "Export queue full", Content: jsonContent(ref("Error"))},
					},
				},
			},
			"/v1/exports/{id}": {
				Get: &Operation{
					OperationID: "getExport",
					Summary:     "Fetch export status and artifacts",
					Tags:        []string{"exports"},
					Parameters:  []Parameter{exportIDParam},
					Responses: map[string]Response{
						"200": {Description: "The export", Content: jsonContent(ref("ExportEnvelope"))},
						"404": unknownExport,
					},
				},
				Delete: &Operation{
					OperationID: "deleteExport",
					Summary:     "Delete a finished export and its artifacts",
					Tags:        []string{"exports"},
					Parameters:  []Parameter{exportIDParam},
					Responses: map[string]Response{
						"204": {Description: "Deleted"},
						"404": unknownExport,
						"409": {Description: "Export still queued or running", Content: jsonContent(ref("Error"))},
					},
				},
			},
			"/v1/exports/{id}/artifacts/{format}": {
				Get: &Operation{
					OperationID: "downloadExportArtifact",
					Summary:     "Download one rendered artifact",
					Tags:        []string{"exports"},
					Parameters: []Parameter{
						exportIDParam,
						{Name: "format", In: "path", Required: true, Schema: Schema{Type: "string", Enum: []string{"json", "csv"}}},
					},
					Responses: map[string]Response{
						"200": {Description: "Artifact content", Content: map[string]MediaType{
							"application/json": {Schema: Schema{Type: "array", Items: &Schema{Ref: "#/components/schemas/Client"}}},
							"text/csv":         {Schema: Schema{Type: "string"}},
						}},
						"404": {Description: "Unknown export or format not rendered", Content: jsonContent(ref("Error"))},
					},
				},
			},
		},
		Components: Components{Schemas: map[string]Schema{
			"Client": {
				Type:     "object",
				Required: []string{"firstName", "lastName", "idNumber"},
				Properties: map[string]Schema{
					"client":       {Type: "integer", Format: "int64"},
					"firstName":    nullableString,
					"lastName":     nullableString,
					"idNumber":     nullableString,
					"mobileNumber": nullableString,
				},
			},
			"ValidationFailure": {
				Type:       "object",
				Properties: map[string]Schema{"reasons": {Type: "array", Items: &Schema{Type: "string"}}},
			},
			"Error": {
				Type:       "object",
				Properties: map[string]Schema{"error": {Type: "string"}},
			},
			"ExportRequest": {
				Type: "object",
				Properties: map[string]Schema{
					"formats":     {Type: "array", Items: &Schema{Type: "string", Enum: []string{"json", "csv"}}},
					"requestedBy": {Type: "string"},
					"filter": {Type: "object", Properties: map[string]Schema{
						"idNumber":     {Type: "string"},
						"firstName":    {Type: "string"},
						"mobileNumber": {Type: "string"},
					}},
				},
			},
			"ExportEnvelope": {
				Type: "object",
				Properties: map[string]Schema{"export": {Type: "object", Properties: map[string]Schema{
					"id":     {Type: "string", Format: "uuid"},
					"status": {Type: "string", Enum: []string{"queued", "running", "succeeded", "failed"}},
					"error":  {Type: "string"},
					"artifacts": {Type: "array", Items: &Schema{Type: "object", Properties: map[string]Schema{
						"key":    {Type: "string"},
						"format": {Type: "string"},
						"url":    {Type: "string"},
						"rows":   {Type: "integer"},
					}}},
				}}},
			},
		}},
	}
}

var (
	renderOnce sync.Once
	rendered   []byte
	renderErr  error
)

// YAML renders the contract once and returns a copy of the bytes.
func YAML() ([]byte, error) {
	renderOnce.Do(func() {
		rendered, renderErr = yaml.Marshal(Build())
		if renderErr != nil {
			renderErr = fmt.Errorf("render openapi: %w", renderErr)
		}
	})
	if renderErr != nil {
		return nil, renderErr
	}
	return append([]byte(nil), rendered...), nil
}

// NewHandler serves the YAML contract with a static content type.
func NewHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		spec, err := YAML()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(spec)
	})
}
