// Package tool defines the tools the assistant may call and the JSON
// Schemas describing their arguments.
//
// Tool-call blocks in a transcript reference tools by name; the registry
// here is where those names resolve to definitions. Argument schemas are
// reflected from Go structs, so a tool's parameter struct is the single
// source of truth for both decoding arguments and advertising the tool to
// the model.
package tool

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
)

// Spec describes one callable tool.
type Spec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// SchemaFor reflects a JSON Schema from a parameters struct.
//
// Example:
//
//	type readFileParams struct {
//	    Path string `json:"path" jsonschema:"description=File to read"`
//	}
//	schema, err := tool.SchemaFor(readFileParams{})
func SchemaFor(params any) (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		// Inline the definition; tool schemas are self-contained.
		DoNotReference: true,
	}
	schema := reflector.Reflect(params)

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal tool schema: %w", err)
	}
	return data, nil
}

// NewSpec builds a Spec, reflecting the parameter schema from params.
func NewSpec(name, description string, params any) (Spec, error) {
	schema, err := SchemaFor(params)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Name: name, Description: description, Parameters: schema}, nil
}

// registry stores registered tool specs.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]Spec)
)

// Register adds a tool to the registry. Panics if the name is taken;
// tools register once, in init functions.
func Register(spec Spec) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[spec.Name]; exists {
		panic(fmt.Sprintf("tool %q already registered", spec.Name))
	}
	registry[spec.Name] = spec
}

// Get returns a registered tool by name.
func Get(name string) (Spec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	spec, ok := registry[name]
	return spec, ok
}

// Names returns the registered tool names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered spec, sorted by name.
func All() []Spec {
	names := Names()

	registryMu.RLock()
	defer registryMu.RUnlock()

	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		specs = append(specs, registry[name])
	}
	return specs
}
