package openapi

import (
	"reflect"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// TypeMapping maps a Go kind to an OpenAPI type/format pair.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean, object, array
	Format string // OpenAPI format: int32, int64, float, double, etc.
}

var kindToOpenAPI = map[reflect.Kind]TypeMapping{
	reflect.String:  {"string", ""},
	reflect.Bool:    {"boolean", ""},
	reflect.Int:     {"integer", "int64"},
	reflect.Int32:   {"integer", "int32"},
	reflect.Int64:   {"integer", "int64"},
	reflect.Float32: {"number", "float"},
	reflect.Float64: {"number", "double"},
	reflect.Slice:   {"array", ""},
	reflect.Struct:  {"object", ""},
}

// MapKind returns the OpenAPI mapping for a Go kind, defaulting to string.
func MapKind(k reflect.Kind) TypeMapping {
	if m, ok := kindToOpenAPI[k]; ok {
		return m
	}
	return TypeMapping{Type: "string"}
}

// structSchema builds an object schema from the exported fields of a struct
// value. Property names come from json tags; a validate tag of "required"
// marks the property required.
func structSchema(v interface{}) *openapi3.Schema {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: openapi3.Schemas{},
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		m := MapKind(f.Type.Kind())
		prop := &openapi3.Schema{Type: &openapi3.Types{m.Type}, Format: m.Format}
		if m.Type == "array" {
			em := MapKind(f.Type.Elem().Kind())
			prop.Items = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{em.Type}, Format: em.Format}}
		}
		schema.Properties[name] = &openapi3.SchemaRef{Value: prop}

		for _, rule := range strings.Split(f.Tag.Get("validate"), ",") {
			if rule == "required" {
				schema.Required = append(schema.Required, name)
			}
			if rule == "mailbox" {
				prop.Format = "email"
			}
		}
	}
	return schema
}
