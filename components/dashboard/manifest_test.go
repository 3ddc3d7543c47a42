package dashboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeManifest(t *testing.T) {
	const payload = `
version: "1"
name: tenant-pack
widgets:
  - base_id: widget_refunds
    type: chart
    title: Refund Volume
    data_source: refunds
    default_config:
      group_by: day
    schema:
      type: object
      properties:
        group_by:
          type: string
    tags: ["finance"]
`
	doc, err := DecodeManifest(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, doc.Widgets, 1)

	widget := doc.Widgets[0]
	assert.Equal(t, "widget_refunds", widget.BaseID)
	assert.Equal(t, "Refund Volume", widget.Title)
	assert.Equal(t, "refunds", widget.DataSource)
	assert.Equal(t, []string{"finance"}, widget.Tags)
}

func TestDecodeManifestRejectsUnknownFields(t *testing.T) {
	const payload = `
version: "1"
widgets:
  - base_id: widget_refunds
    title: Refunds
    color: red
`
	_, err := DecodeManifest(strings.NewReader(payload))
	require.Error(t, err)
}

func TestDecodeManifestRequiresTitle(t *testing.T) {
	const payload = `
version: "1"
widgets:
  - base_id: widget_refunds
`
	_, err := DecodeManifest(strings.NewReader(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing title")
}

func TestDecodeManifestDuplicateBaseIDs(t *testing.T) {
	const payload = `
version: "1"
widgets:
  - base_id: widget_refunds
    title: Refunds
  - base_id: widget_refunds
    title: Refunds Again
`
	_, err := DecodeManifest(strings.NewReader(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicates")
}

func TestDecodeManifestUnsupportedVersion(t *testing.T) {
	const payload = `
version: "2"
widgets: []
`
	_, err := DecodeManifest(strings.NewReader(payload))
	require.Error(t, err)
}

func TestCatalogLoadManifestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widgets.yaml")
	const payload = `
version: "1"
widgets:
  - base_id: widget_refunds
    title: Refund Volume
    default_w: 4
    default_h: 3
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	catalog := NewCatalog()
	doc, err := catalog.LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)

	entry, ok := catalog.Resolve("widget_refunds")
	require.True(t, ok)
	assert.Equal(t, WidgetChart, entry.Type, "manifest entries default to chart")
	assert.Equal(t, 4, entry.DefaultW)
	assert.Equal(t, 3, entry.DefaultH)
}
