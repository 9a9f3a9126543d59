// Package openapi renders the endpoint catalogue as an OpenAPI 3.1
// document.
package openapi

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/shoplist/adminapi/internal/catalog"
	"github.com/shoplist/adminapi/internal/model"
)

// Options controls the generated document.
type Options struct {
	BaseURL      string
	Version      string
	APIKeyHeader string // defaults to X-API-Key
	CookieName   string // defaults to admin_session
}

var pathParam = regexp.MustCompile(`\{([^}]+)\}`)

// componentModels are published under #/components/schemas.
var componentModels = map[string]interface{}{
	"APIKey":         model.APIKey{},
	"UsageRecord":    model.UsageRecord{},
	"EndpointConfig": model.EndpointConfig{},
	"User":           model.User{},
	"Article":        model.Article{},
	"ShoppingList":   model.ShoppingList{},
	"Category":       model.Category{},
	"ErrorResponse":  model.ErrorResponse{},
	"Endpoint":       catalog.Endpoint{},
}

// Generate builds the document for the given catalogue entries plus the
// public documentation route.
func Generate(endpoints []catalog.Endpoint, opts Options) *openapi3.T {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = "X-API-Key"
	}
	if opts.CookieName == "" {
		opts.CookieName = "admin_session"
	}

	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Shopping List Admin API",
			Description: "Admin API of the shopping list. Every /api route requires an admin session or an API key whose permissions include the route's endpoint id.",
			Version:     opts.Version,
		},
	}
	if opts.BaseURL != "" {
		doc.Servers = openapi3.Servers{{URL: opts.BaseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["apiKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: opts.APIKeyHeader,
		},
	}
	doc.Components.SecuritySchemes["adminSession"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "cookie",
			Name: opts.CookieName,
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"apiKey": {}},
		{"adminSession": {}},
	}

	for name, v := range componentModels {
		doc.Components.Schemas[name] = &openapi3.SchemaRef{Value: schemaOf(v)}
	}

	doc.Paths = openapi3.NewPaths()
	tags := map[string]bool{}
	for _, e := range endpoints {
		addEndpoint(doc, e)
		if !tags[e.Category] {
			tags[e.Category] = true
			doc.Tags = append(doc.Tags, &openapi3.Tag{Name: e.Category})
		}
	}
	addDocsPath(doc)
	return doc
}

func addEndpoint(doc *openapi3.T, e catalog.Endpoint) {
	op := &openapi3.Operation{
		OperationID: e.ID,
		Summary:     e.Name,
		Description: e.Description + " (endpoint id `" + e.ID + "`)",
		Tags:        []string{e.Category},
		Parameters:  pathParameters(e.Path),
		Responses:   newResponses("200", "Success", openapi3.NewSchemaRef("", openapi3.NewObjectSchema())),
	}
	switch e.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithJSONSchema(openapi3.NewObjectSchema()).
				WithRequired(e.Method != http.MethodPatch),
		}
	}

	item := doc.Paths.Value(e.Path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(e.Path, item)
	}
	item.SetOperation(e.Method, op)
}

func addDocsPath(doc *openapi3.T) {
	ref := openapi3.NewSchemaRef("", openapi3.NewObjectSchema())
	desc := "OpenAPI document"
	responses := openapi3.NewResponses()
	responses.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchemaRef(ref),
		},
	})
	doc.Tags = append(doc.Tags, &openapi3.Tag{Name: "Docs"})
	doc.Paths.Set("/api/docs/data", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "docs_data_get",
			Summary:     "API Documentation",
			Description: "This document. Served without authentication.",
			Tags:        []string{"Docs"},
			Security:    &openapi3.SecurityRequirements{},
			Responses:   responses,
		},
	})
}

// pathParameters declares every {name} segment of path as a required
// string parameter.
func pathParameters(path string) openapi3.Parameters {
	var params openapi3.Parameters
	for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
		p := openapi3.NewPathParameter(m[1]).WithSchema(openapi3.NewStringSchema())
		if strings.EqualFold(m[1], "id") {
			p.Schema = openapi3.NewSchemaRef("", openapi3.NewInt64Schema())
		}
		params = append(params, &openapi3.ParameterRef{Value: p})
	}
	return params
}

// newResponses builds a Responses map with a success response and the
// gate's error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	for _, r := range []struct{ code, desc string }{
		{"401", "Missing, invalid, inactive, expired or insufficient credentials"},
		{"404", "Not found"},
		{"429", "Rate limit exceeded"},
		{"503", "Credential store unavailable"},
	} {
		desc := r.desc
		responses.Set(r.code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}
