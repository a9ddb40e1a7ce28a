// Package openapi renders the OpenAPI document of the API route table.
package openapi

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
)

// Version is the OpenAPI revision emitted by Build.
const Version = "3.1.0"

// Param is a documented query parameter.
type Param struct {
	Name        string
	Description string
	Type        string
}

// Operation is one route as the router registers it.
type Operation struct {
	Method   string
	Path     string
	Summary  string
	Tag      string
	Secured  bool
	Query    []Param
	Request  any
	Response any
	// Enveloped responses are wrapped in {success, data, error}.
	Enveloped bool
}

const securityScheme = "bearerAuth"

var pathParam = regexp.MustCompile(`\{([^}/]+)\}`)

// Build assembles the document. Tags are sorted.
func Build(info openapi3.Info, servers []string, ops []Operation) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: Version,
		Info:    &info,
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				securityScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}
	for _, url := range servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: url})
	}
	tags := make(map[string]struct{})
	for _, op := range ops {
		built, err := buildOperation(op)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", op.Method, op.Path, err)
		}
		item := doc.Paths.Value(op.Path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(op.Path, item)
		}
		item.SetOperation(op.Method, built)
		if op.Tag != "" {
			tags[op.Tag] = struct{}{}
		}
	}
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		doc.Tags = append(doc.Tags, &openapi3.Tag{Name: name})
	}
	return doc, nil
}

func buildOperation(op Operation) (*openapi3.Operation, error) {
	out := openapi3.NewOperation()
	out.Summary = op.Summary
	out.OperationID = operationID(op.Method, op.Path)
	out.Responses = openapi3.NewResponsesWithCapacity(4)
	if op.Tag != "" {
		out.Tags = []string{op.Tag}
	}
	for _, match := range pathParam.FindAllStringSubmatch(op.Path, -1) {
		out.AddParameter(openapi3.NewPathParameter(match[1]).WithSchema(openapi3.NewStringSchema()))
	}
	for _, q := range op.Query {
		schema := openapi3.NewStringSchema()
		if q.Type == "integer" {
			schema = openapi3.NewIntegerSchema()
		}
		out.AddParameter(openapi3.NewQueryParameter(q.Name).WithDescription(q.Description).WithSchema(schema))
	}
	if op.Request != nil {
		ref, err := SchemaFor(op.Request)
		if err != nil {
			return nil, err
		}
		out.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(ref)}
	}

	success := http.StatusOK
	if op.Method == http.MethodPost && op.Request != nil {
		success = http.StatusCreated
	}
	var body *openapi3.SchemaRef
	if op.Response != nil {
		ref, err := SchemaFor(op.Response)
		if err != nil {
			return nil, err
		}
		body = ref
	}
	if op.Enveloped {
		body = envelope(body)
	}
	resp := openapi3.NewResponse().WithDescription("Success")
	if body != nil {
		resp = resp.WithJSONSchemaRef(body)
	}
	setResponse(out, success, resp)
	if op.Request != nil {
		setResponse(out, http.StatusBadRequest, openapi3.NewResponse().WithDescription("Validation failed"))
	}
	if op.Secured {
		out.Security = openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(securityScheme))
		setResponse(out, http.StatusUnauthorized, openapi3.NewResponse().WithDescription("Missing or invalid token"))
	}
	if strings.Contains(op.Path, "{") {
		setResponse(out, http.StatusNotFound, openapi3.NewResponse().WithDescription("Not found"))
	}
	return out, nil
}

func setResponse(op *openapi3.Operation, status int, resp *openapi3.Response) {
	op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
}

// SchemaFor derives an inline schema from the JSON shape of v. Fields are
// required when validated as such or when they are neither pointers nor
// omitempty.
func SchemaFor(v any) (*openapi3.SchemaRef, error) {
	return openapi3gen.NewSchemaRefForValue(v, nil, openapi3gen.SchemaCustomizer(markRequired))
}

func markRequired(_ string, t reflect.Type, _ reflect.StructTag, schema *openapi3.Schema) error {
	if t.Kind() != reflect.Struct || len(schema.Properties) == 0 {
		return nil
	}
	schema.Required = nil
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" || schema.Properties[name] == nil {
			continue
		}
		if strings.Contains(f.Tag.Get("validate"), "required") || (!strings.Contains(opts, "omitempty") && f.Type.Kind() != reflect.Pointer) {
			schema.Required = append(schema.Required, name)
		}
	}
	return nil
}

func envelope(data *openapi3.SchemaRef) *openapi3.SchemaRef {
	s := openapi3.NewObjectSchema().
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("error", openapi3.NewStringSchema())
	if data != nil {
		s = s.WithPropertyRef("data", data)
	}
	s.Required = []string{"success"}
	return openapi3.NewSchemaRef("", s)
}

func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, part := range strings.Split(path, "/") {
		part = strings.Trim(part, "{}")
		if part == "" {
			continue
		}
		for _, word := range strings.FieldsFunc(part, func(r rune) bool { return r == '-' || r == '_' }) {
			b.WriteString(strings.ToUpper(word[:1]))
			b.WriteString(word[1:])
		}
	}
	return b.String()
}
