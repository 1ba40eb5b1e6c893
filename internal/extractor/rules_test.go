package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()
	require.NoError(t, r.Validate())

	assert.Equal(t, []string{
		CategoryGroceries, CategoryFood, CategoryDrinks, CategoryTransport,
		CategoryEntertainment, CategoryFurniture, CategoryShopping, CategoryBooks,
		CategoryMiscellaneous,
	}, r.Vocabulary())
}

func TestParseRules(t *testing.T) {
	doc := []byte(`
default_category: Other
categories:
  - name: Pets
    keywords: [vet, kibble]
  - name: Food
    keywords: [lunch]
`)
	r, err := ParseRules(doc)
	require.NoError(t, err)

	assert.Equal(t, "Other", r.DefaultCategory)
	assert.Equal(t, []string{"Pets", "Food", "Other"}, r.Vocabulary())
	assert.Len(t, r.Months, 12, "missing months fall back to the built-in table")
}

func TestParseRules_Invalid(t *testing.T) {
	_, err := ParseRules([]byte("months: [a, b]"))
	assert.Error(t, err)

	_, err = ParseRules([]byte("categories: [{keywords: [x]}]"))
	assert.Error(t, err)

	_, err = ParseRules([]byte("categories: [unclosed"))
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	r, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), r)

	r, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), r)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_category: Misc\n"), 0o600))
	r, err = LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "Misc", r.DefaultCategory)
	assert.Equal(t, DefaultRules().Categories, r.Categories)
}
