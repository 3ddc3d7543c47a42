package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchemaValidator compiles catalog schemas once and validates widget
// configuration bags against them.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate ensures the provided configuration satisfies the entry schema.
// Entries without a schema accept any configuration.
func (v *JSONSchemaValidator) Validate(entry CatalogEntry, config map[string]any) error {
	if len(entry.Schema) == 0 {
		return nil
	}
	schema, err := v.schemaFor(entry)
	if err != nil {
		return err
	}
	var payload map[string]any
	if config == nil {
		payload = map[string]any{}
	} else {
		data, err := json.Marshal(config)
		if err != nil {
			return fmt.Errorf("dashboard: marshal config for %s: %w", entry.BaseID, err)
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("dashboard: normalize config for %s: %w", entry.BaseID, err)
		}
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("dashboard: configuration for %s failed validation: %w", entry.BaseID, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(entry CatalogEntry) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[entry.BaseID]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	data, err := json.Marshal(entry.Schema)
	if err != nil {
		return nil, fmt.Errorf("dashboard: marshal schema %s: %w", entry.BaseID, err)
	}
	compiler := jsonschema.NewCompiler()
	name := entry.BaseID + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("dashboard: load schema %s: %w", entry.BaseID, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", entry.BaseID, err)
	}
	v.mu.Lock()
	v.compiled[entry.BaseID] = compiled
	v.mu.Unlock()
	return compiled, nil
}

type noopConfigValidator struct{}

func (noopConfigValidator) Validate(CatalogEntry, map[string]any) error { return nil }
