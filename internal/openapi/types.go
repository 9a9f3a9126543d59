package openapi

import (
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// TypeMapping maps Go field types to OpenAPI type/format pairs.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean, object, array
	Format string // OpenAPI format: int32, int64, double, date-time, etc.
}

var timeType = reflect.TypeOf(time.Time{})

// kindToOpenAPI maps scalar Go kinds to OpenAPI types.
var kindToOpenAPI = map[reflect.Kind]TypeMapping{
	reflect.Bool:    {"boolean", ""},
	reflect.Int:     {"integer", "int32"},
	reflect.Int32:   {"integer", "int32"},
	reflect.Int64:   {"integer", "int64"},
	reflect.Float32: {"number", "float"},
	reflect.Float64: {"number", "double"},
	reflect.String:  {"string", ""},
}

// MapGoType returns the OpenAPI type of t. Pointers map to their element
// type; time.Time is a date-time string; unknown kinds fall back to string.
func MapGoType(t reflect.Type) TypeMapping {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return TypeMapping{"string", "date-time"}
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return TypeMapping{"array", ""}
	case reflect.Struct, reflect.Map:
		return TypeMapping{"object", ""}
	}
	if m, ok := kindToOpenAPI[t.Kind()]; ok {
		return m
	}
	return TypeMapping{"string", ""}
}

// schemaOf builds an object schema from the exported, JSON-visible fields
// of the struct v. Pointer fields are nullable; fields without omitempty
// are required.
func schemaOf(v interface{}) *openapi3.Schema {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s := &openapi3.Schema{Type: &openapi3.Types{"object"}, Properties: openapi3.Schemas{}}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		s.Properties[name] = &openapi3.SchemaRef{Value: fieldSchema(f.Type)}
		if !strings.Contains(opts, "omitempty") && f.Type.Kind() != reflect.Pointer {
			s.Required = append(s.Required, name)
		}
	}
	return s
}

func fieldSchema(t reflect.Type) *openapi3.Schema {
	m := MapGoType(t)
	s := &openapi3.Schema{Type: &openapi3.Types{m.Type}, Format: m.Format}
	if t.Kind() == reflect.Pointer {
		s.Nullable = true
		t = t.Elem()
	}
	if m.Type == "array" {
		s.Items = &openapi3.SchemaRef{Value: fieldSchema(t.Elem())}
	}
	return s
}
