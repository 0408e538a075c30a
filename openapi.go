package main

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

//go:embed openapi.yaml
var openapiYAML []byte

// Contract is the validated OpenAPI document describing the HTTP surface.
// Required body fields and API key locations are read from it rather than
// hard-coded in the handlers.
type Contract struct {
	doc *openapi3.T
}

// keyLocation is where a request may carry an API key.
type keyLocation struct {
	In   string // header | query | cookie
	Name string
}

func loadContract() (*Contract, error) {
	return parseContract(openapiYAML)
}

func parseContract(data []byte) (*Contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi schema: %w", err)
	}
	return &Contract{doc: doc}, nil
}

// Document returns the underlying OpenAPI document.
func (c *Contract) Document() *openapi3.T { return c.doc }

// operation returns the OpenAPI Operation for a given path+method.
func (c *Contract) operation(path, method string) *openapi3.Operation {
	item := c.doc.Paths.Find(path)
	if item == nil {
		return nil
	}
	switch method {
	case fiber.MethodGet:
		return item.Get
	case fiber.MethodPost:
		return item.Post
	}
	return nil
}

// securityRequirements returns the effective security requirements for an
// operation. Per-operation security wins; if absent we fall back to the
// top-level definition.
func (c *Contract) securityRequirements(op *openapi3.Operation) openapi3.SecurityRequirements {
	if op != nil && op.Security != nil {
		return *op.Security
	}
	return c.doc.Security
}

// Secured reports whether the operation requires an API key.
func (c *Contract) Secured(path, method string) bool {
	for _, req := range c.securityRequirements(c.operation(path, method)) {
		if len(req) > 0 {
			return true
		}
	}
	return false
}

// KeyLocations lists every apiKey location accepted by the operation,
// headers first, then query parameters, then cookies.
func (c *Contract) KeyLocations(path, method string) []keyLocation {
	if c.doc.Components == nil {
		return nil
	}
	seen := map[keyLocation]bool{}
	var out []keyLocation
	for _, req := range c.securityRequirements(c.operation(path, method)) {
		for name := range req {
			ref, ok := c.doc.Components.SecuritySchemes[name]
			if !ok || ref.Value == nil || ref.Value.Type != "apiKey" {
				continue
			}
			loc := keyLocation{In: ref.Value.In, Name: ref.Value.Name}
			if !seen[loc] {
				seen[loc] = true
				out = append(out, loc)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if locationRank(out[i].In) != locationRank(out[j].In) {
			return locationRank(out[i].In) < locationRank(out[j].In)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func locationRank(in string) int {
	switch in {
	case "header":
		return 0
	case "query":
		return 1
	}
	return 2
}

// RequiredFields returns the required top-level properties of the JSON
// request body for the operation, in document order.
func (c *Contract) RequiredFields(path, method string) []string {
	op := c.operation(path, method)
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get(fiber.MIMEApplicationJSON)
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}
	return requiredProperties(media.Schema.Value)
}

// QueryParameters returns the names of the operation's query parameters.
func (c *Contract) QueryParameters(path, method string) []string {
	op := c.operation(path, method)
	if op == nil {
		return nil
	}
	var names []string
	for _, ref := range op.Parameters {
		if ref.Value != nil && ref.Value.In == openapi3.ParameterInQuery {
			names = append(names, ref.Value.Name)
		}
	}
	return names
}

// requiredProperties returns the required property names of schema and of
// every allOf branch. oneOf/anyOf branches are skipped since only one of
// them needs to match.
func requiredProperties(schema *openapi3.Schema) []string {
	if schema == nil {
		return nil
	}
	required := append([]string{}, schema.Required...)
	for _, sub := range schema.AllOf {
		if sub.Value != nil {
			required = append(required, requiredProperties(sub.Value)...)
		}
	}
	return dedupe(required)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
