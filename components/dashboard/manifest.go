package dashboard

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// CatalogManifest models a YAML manifest extending the widget catalog.
// Deployments add custom widgets (extra data sources, per-tenant cards)
// without recompiling.
type CatalogManifest struct {
	Version string           `json:"version" yaml:"version"`
	Name    string           `json:"name,omitempty" yaml:"name,omitempty"`
	Widgets []ManifestWidget `json:"widgets" yaml:"widgets"`
	Source  string           `json:"-" yaml:"-"`
}

// ManifestWidget describes a single catalog entry within a manifest.
type ManifestWidget struct {
	BaseID        string         `json:"base_id" yaml:"base_id"`
	Type          string         `json:"type,omitempty" yaml:"type,omitempty"`
	Title         string         `json:"title" yaml:"title"`
	DataSource    string         `json:"data_source,omitempty" yaml:"data_source,omitempty"`
	DefaultConfig map[string]any `json:"default_config,omitempty" yaml:"default_config,omitempty"`
	DefaultW      int            `json:"default_w,omitempty" yaml:"default_w,omitempty"`
	DefaultH      int            `json:"default_h,omitempty" yaml:"default_h,omitempty"`
	Schema        map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
	Tags          []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// LoadManifestFile reads a manifest from disk and registers its entries.
func (c *Catalog) LoadManifestFile(path string) (*CatalogManifest, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := c.LoadManifest(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifest registers every entry of a decoded manifest.
func (c *Catalog) LoadManifest(doc *CatalogManifest) error {
	if doc == nil {
		return fmt.Errorf("dashboard: manifest document is nil")
	}
	for _, widget := range doc.Widgets {
		entry := CatalogEntry{
			BaseID:        widget.BaseID,
			Type:          widget.Type,
			Title:         widget.Title,
			DataSource:    widget.DataSource,
			DefaultConfig: widget.DefaultConfig,
			DefaultW:      widget.DefaultW,
			DefaultH:      widget.DefaultH,
			Schema:        widget.Schema,
		}
		if entry.Type == "" {
			entry.Type = WidgetChart
		}
		if err := c.Register(entry); err != nil {
			return fmt.Errorf("dashboard: register widget %s from %s: %w", widget.BaseID, doc.Source, err)
		}
	}
	return nil
}

// ReadManifest loads a manifest file from disk without registering it.
func ReadManifest(path string) (*CatalogManifest, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*CatalogManifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc CatalogManifest
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("dashboard: manifest is empty")
		}
		return nil, fmt.Errorf("dashboard: parse manifest: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate ensures the manifest satisfies required fields.
func (doc *CatalogManifest) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("dashboard: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Widgets))
	for idx, widget := range doc.Widgets {
		if widget.BaseID == "" {
			return fmt.Errorf("dashboard: manifest widget at index %d is missing base_id", idx)
		}
		if widget.Title == "" {
			return fmt.Errorf("dashboard: manifest widget %s missing title", widget.BaseID)
		}
		if _, exists := seen[widget.BaseID]; exists {
			return fmt.Errorf("dashboard: manifest duplicates base_id %s", widget.BaseID)
		}
		seen[widget.BaseID] = struct{}{}
	}
	return nil
}

func (doc *CatalogManifest) applyDefaults() {
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
}
