package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeUsesBuiltinWhenNoFilesPresent(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, len(GetBuiltinConfig().Queries), cfg.CatalogRegistry.Len())
	assert.True(t, cfg.CatalogRegistry.Has("kpi_sales_summary"))
}

func TestInitializeMergesUserCatalogOverBuiltin(t *testing.T) {
	dir := t.TempDir()
	catalogYAML := `
queries:
  kpi_sales_summary:
    id: kpi_sales_summary
    template: "SELECT 1"
    output_kind: kpi
    output_ref: kpi.sales_summary
  custom_query:
    id: custom_query
    template: "SELECT 2"
    output_kind: table
    output_ref: table.custom
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(catalogYAML), 0o600))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, cfg.CatalogRegistry.Has("custom_query"))
	q, err := cfg.CatalogRegistry.Get("kpi_sales_summary")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", q.Template, "user-supplied entry must override the built-in one")
}

func TestInitializeRejectsDuplicateOutputRef(t *testing.T) {
	dir := t.TempDir()
	catalogYAML := `
queries:
  dup_one:
    id: dup_one
    template: "SELECT 1"
    output_kind: kpi
    output_ref: kpi.sales_summary
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(catalogYAML), 0o600))

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitializeMergesClassifierVocabulary(t *testing.T) {
	dir := t.TempDir()
	classifierYAML := `
classifier:
  data_vocabulary:
    - "cuanto cuesta"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classifier.yaml"), []byte(classifierYAML), 0o600))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Contains(t, cfg.Classifier.DataVocabulary, "cuanto cuesta")
	assert.Contains(t, cfg.Classifier.DataVocabulary, "total", "built-in vocabulary must still be present after merge")
}
