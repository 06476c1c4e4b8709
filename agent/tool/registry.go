// Package tool holds the static catalog of callable tools and the executor
// that runs them without letting their failures escape.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
)

// Handler executes one tool invocation with already-validated arguments.
// Returned errors surface as error ToolResults, never as loop failures.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Spec declares a registrable tool.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema for the arguments object
	Handler     Handler
}

type registeredTool struct {
	spec   Spec
	schema *jsonschema.Schema
}

// Registry is the static tool catalog. Register is called during startup
// only; after initialization the registry is read-only and therefore safe
// for concurrent use by any number of sessions.
type Registry struct {
	tools map[string]*registeredTool
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*registeredTool),
	}
}

// Register adds a tool to the catalog. The parameter schema is compiled
// eagerly so a malformed schema fails startup, not a user turn.
func (r *Registry) Register(spec Spec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
	}
	if spec.Handler == nil {
		return fmt.Errorf("%w: tool %s has no handler", contractx.ErrValidation, name)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", contractx.ErrDuplicateTool, name)
	}

	schema, err := compileSchema(name, spec.Parameters)
	if err != nil {
		return fmt.Errorf("compile schema for tool %s: %w", name, err)
	}

	spec.Name = name
	r.tools[name] = &registeredTool{spec: spec, schema: schema}
	return nil
}

// MustRegister is Register but panics on failure. Intended for wiring.
func (r *Registry) MustRegister(spec Spec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

func (r *Registry) lookup(name string) (*registeredTool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Schemas exports the catalog in planner form, sorted by name for a stable
// prompt layout.
func (r *Registry) Schemas() []contractx.ToolSchema {
	out := make([]contractx.ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, contractx.ToolSchema{
			Name:        t.spec.Name,
			Description: t.spec.Description,
			Parameters:  t.spec.Parameters,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	if params == nil {
		params = map[string]any{"type": "object"}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := compiler.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
