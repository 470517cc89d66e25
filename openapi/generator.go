// Package openapi generates OpenAPI 3.0 specifications from declared
// resources. Paths, parameters and schemas follow the react-admin data
// provider conventions served by the crud package.
package openapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/artpar/crudgate/config"
)

// Spec represents an OpenAPI 3.0 specification.
type Spec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
	Tags       []Tag               `json:"tags,omitempty"`
}

// Info provides API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server represents a server URL.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem contains operations for a path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

// Operation represents an API operation.
type Operation struct {
	Tags        []string            `json:"tags,omitempty"`
	Summary     string              `json:"summary,omitempty"`
	Description string              `json:"description,omitempty"`
	OperationID string              `json:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

// Parameter represents an API parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"` // path, query
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody represents a request body.
type RequestBody struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content"`
}

// Response represents an API response.
type Response struct {
	Description string               `json:"description"`
	Headers     map[string]Header    `json:"headers,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// Header documents a response header.
type Header struct {
	Description string  `json:"description,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// MediaType represents a media type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Schema represents a JSON Schema.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Format      string             `json:"format,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	Default     any                `json:"default,omitempty"`
	Example     any                `json:"example,omitempty"`
}

// Components contains reusable schemas.
type Components struct {
	Schemas map[string]*Schema `json:"schemas,omitempty"`
}

// Tag provides metadata for a group of operations.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Generator generates OpenAPI specs from declared resources.
type Generator struct {
	basePath  string
	resources []config.ResourceConfig
	info      Info
	servers   []Server
}

// NewGenerator creates a new OpenAPI generator for resources mounted
// under basePath.
func NewGenerator(basePath string, resources []config.ResourceConfig) *Generator {
	return &Generator{
		basePath:  strings.TrimSuffix(basePath, "/"),
		resources: resources,
		info: Info{
			Title:       "CRUDGate API",
			Version:     "1.0.0",
			Description: "Auto-generated API documentation from resource declarations",
		},
	}
}

// SetInfo sets the API info.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// AddServer adds a server URL.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{
		URL:         url,
		Description: description,
	})
}

// Generate creates the OpenAPI specification.
func (g *Generator) Generate() *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: map[string]*Schema{
				"Error": {
					Type: "object",
					Properties: map[string]*Schema{
						"error": {Type: "string", Example: "Record not found"},
					},
					Required: []string{"error"},
				},
				"UpdateResult": {
					Type: "object",
					Properties: map[string]*Schema{
						"rows_affected": {Type: "integer", Example: 1},
					},
				},
				"DeleteResult": {
					Type: "object",
					Properties: map[string]*Schema{
						"id": {Type: "string", Example: "550e8400-e29b-41d4-a716-446655440000"},
					},
				},
			},
		},
		Tags: make([]Tag, 0),
	}

	// Sort resources for consistent output
	resources := make([]config.ResourceConfig, len(g.resources))
	copy(resources, g.resources)
	sort.Slice(resources, func(i, j int) bool { return resources[i].Name < resources[j].Name })

	for _, res := range resources {
		g.generateResource(spec, res)
	}

	return spec
}

// generateResource adds one resource to the spec.
func (g *Generator) generateResource(spec *Spec, res config.ResourceConfig) {
	title := titleCase(res.Name)

	spec.Tags = append(spec.Tags, Tag{
		Name:        res.Name,
		Description: fmt.Sprintf("CRUD operations for %s", res.Name),
	})

	spec.Components.Schemas[title] = g.buildRecordSchema(res)
	spec.Components.Schemas[title+"Input"] = g.buildInputSchema(res)

	actions := res.Actions
	if len(actions) == 0 {
		actions = []string{"list", "get", "create", "update", "delete"}
	}

	collectionPath := g.basePath + "/" + res.Name
	recordPath := collectionPath + "/{id}"

	for _, action := range actions {
		switch action {
		case "list":
			g.addListPath(spec, res, collectionPath, title)
		case "get":
			g.addGetPath(spec, res, recordPath, title)
		case "create":
			g.addCreatePath(spec, res, collectionPath, title)
		case "update":
			g.addUpdatePath(spec, res, recordPath, title)
		case "delete":
			g.addDeletePath(spec, res, recordPath, title)
		}
	}
}

// buildRecordSchema builds the schema for stored records.
func (g *Generator) buildRecordSchema(res config.ResourceConfig) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	schema.Properties[res.PrimaryKey] = &Schema{
		Type:    "string",
		Example: "550e8400-e29b-41d4-a716-446655440000",
	}
	for _, f := range res.Fields {
		schema.Properties[f.Name] = fieldToSchema(f)
	}
	schema.Properties["created_at"] = &Schema{Type: "string", Format: "date-time"}
	schema.Properties["updated_at"] = &Schema{Type: "string", Format: "date-time"}

	return schema
}

// buildInputSchema builds the schema for create and update bodies.
func (g *Generator) buildInputSchema(res config.ResourceConfig) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	schema.Properties[res.PrimaryKey] = &Schema{
		Type:        "string",
		Description: "Optional on create; generated when omitted",
	}
	for _, f := range res.Fields {
		fieldSchema := fieldToSchema(f)
		schema.Properties[f.Name] = fieldSchema
		if f.Required {
			schema.Required = append(schema.Required, f.Name)
		}
	}

	return schema
}

// fieldToSchema converts a declared field to an OpenAPI schema.
func fieldToSchema(f config.FieldConfig) *Schema {
	switch f.Type {
	case "int":
		return &Schema{Type: "integer", Example: 100}
	case "float":
		return &Schema{Type: "number", Format: "float", Example: 99.99}
	case "bool":
		return &Schema{Type: "boolean", Example: true}
	case "time":
		return &Schema{Type: "string", Format: "date-time", Example: "2024-01-15T10:30:00Z"}
	case "json":
		return &Schema{Type: "object", Example: map[string]any{"key": "value"}}
	default: // string, text
		return &Schema{Type: "string", Example: "example-value"}
	}
}

// listParameters documents the react-admin style query parameters.
func listParameters() []Parameter {
	return []Parameter{
		{
			Name:        "range",
			In:          "query",
			Description: "JSON two-element array [from, to] of zero-based inclusive row indexes",
			Schema:      &Schema{Type: "string", Default: "[0,100]", Example: "[0,24]"},
		},
		{
			Name:        "sort",
			In:          "query",
			Description: `JSON two-element array ["field", "ASC"|"DESC"]`,
			Schema:      &Schema{Type: "string", Default: `["id","ASC"]`, Example: `["title","DESC"]`},
		},
		{
			Name:        "filter",
			In:          "query",
			Description: "JSON object of field/value equality matches",
			Schema:      &Schema{Type: "string", Default: "{}", Example: `{"status":"live"}`},
		},
	}
}

func (g *Generator) addListPath(spec *Spec, res config.ResourceConfig, path, title string) {
	item := spec.Paths[path]

	item.Get = &Operation{
		Tags:        []string{res.Name},
		Summary:     fmt.Sprintf("List %s", res.Name),
		Description: fmt.Sprintf("Retrieve a page of %s records with total count in the Content-Range header", res.Name),
		OperationID: "list" + title,
		Parameters:  listParameters(),
		Responses: map[string]Response{
			"200": {
				Description: "Successful response",
				Headers: map[string]Header{
					"Content-Range": {
						Description: "Pagination info as {from}-{to}/{total}",
						Schema:      &Schema{Type: "string", Example: "0-24/319"},
					},
				},
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{
						Type:  "array",
						Items: &Schema{Ref: "#/components/schemas/" + title},
					}},
				},
			},
			"500": errorResponse("Internal server error"),
		},
	}

	spec.Paths[path] = item
}

func (g *Generator) addGetPath(spec *Spec, res config.ResourceConfig, path, title string) {
	item := spec.Paths[path]

	item.Get = &Operation{
		Tags:        []string{res.Name},
		Summary:     fmt.Sprintf("Get one %s record", res.Name),
		OperationID: "get" + title,
		Parameters:  []Parameter{idParameter()},
		Responses: map[string]Response{
			"200": {
				Description: "Successful response",
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{Ref: "#/components/schemas/" + title}},
				},
			},
			"404": errorResponse("Record not found"),
			"500": errorResponse("Internal server error"),
		},
	}

	spec.Paths[path] = item
}

func (g *Generator) addCreatePath(spec *Spec, res config.ResourceConfig, path, title string) {
	item := spec.Paths[path]

	item.Post = &Operation{
		Tags:        []string{res.Name},
		Summary:     fmt.Sprintf("Create a %s record", res.Name),
		OperationID: "create" + title,
		RequestBody: &RequestBody{
			Required: true,
			Content: map[string]MediaType{
				"application/json": {Schema: &Schema{Ref: "#/components/schemas/" + title + "Input"}},
			},
		},
		Responses: map[string]Response{
			"201": {
				Description: "Record created",
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{Ref: "#/components/schemas/" + title}},
				},
			},
			"400": errorResponse("Invalid request body"),
			"500": errorResponse("Internal server error"),
		},
	}

	spec.Paths[path] = item
}

func (g *Generator) addUpdatePath(spec *Spec, res config.ResourceConfig, path, title string) {
	item := spec.Paths[path]

	item.Put = &Operation{
		Tags:        []string{res.Name},
		Summary:     fmt.Sprintf("Update a %s record", res.Name),
		OperationID: "update" + title,
		Parameters:  []Parameter{idParameter()},
		RequestBody: &RequestBody{
			Required: true,
			Content: map[string]MediaType{
				"application/json": {Schema: &Schema{Ref: "#/components/schemas/" + title + "Input"}},
			},
		},
		Responses: map[string]Response{
			"200": {
				Description: "Record updated",
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{Ref: "#/components/schemas/UpdateResult"}},
				},
			},
			"400": errorResponse("Invalid request body"),
			"404": errorResponse("Record not found"),
			"500": errorResponse("Internal server error"),
		},
	}

	spec.Paths[path] = item
}

func (g *Generator) addDeletePath(spec *Spec, res config.ResourceConfig, path, title string) {
	item := spec.Paths[path]

	item.Delete = &Operation{
		Tags:        []string{res.Name},
		Summary:     fmt.Sprintf("Delete a %s record", res.Name),
		OperationID: "delete" + title,
		Parameters:  []Parameter{idParameter()},
		Responses: map[string]Response{
			"200": {
				Description: "Record deleted",
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{Ref: "#/components/schemas/DeleteResult"}},
				},
			},
			"500": errorResponse("Internal server error"),
		},
	}

	spec.Paths[path] = item
}

func idParameter() Parameter {
	return Parameter{
		Name:     "id",
		In:       "path",
		Required: true,
		Schema:   &Schema{Type: "string"},
	}
}

func errorResponse(description string) Response {
	return Response{
		Description: description,
		Content: map[string]MediaType{
			"application/json": {Schema: &Schema{Ref: "#/components/schemas/Error"}},
		},
	}
}

// titleCase upper-cases the first byte. Resource names are validated
// lowercase ASCII, so this is enough.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
