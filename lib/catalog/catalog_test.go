package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsDocumentOrder(t *testing.T) {
	c, err := Parse([]byte(`{
		"marketing": {"seo": [{"name": "Moz", "url": "https://moz.com/blog"}], "email": []},
		"ai": {"research": [{"name": "A", "url": "https://a.example/"}, {"name": "B", "url": "http://b.example/blog"}]}
	}`))
	require.NoError(t, err)

	require.Len(t, c.Categories, 2)
	assert.Equal(t, "marketing", c.Categories[0].Name)
	assert.Equal(t, "seo", c.Categories[0].Subcategories[0].Name)
	assert.Equal(t, "email", c.Categories[0].Subcategories[1].Name)
	assert.Equal(t, "ai", c.Categories[1].Name)
	assert.Equal(t, "B", c.Categories[1].Subcategories[0].Blogs[1].Name)

	skeleton := c.Skeleton()
	assert.NotNil(t, skeleton["marketing"]["email"])
	assert.Empty(t, skeleton["ai"]["research"])
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	_, err := Parse([]byte(`{"ai": {"news": [{"name": "", "url": "ftp://x"}]}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name")
	assert.Contains(t, err.Error(), "invalid url")
}

func TestParseRejectsEmptyCatalog(t *testing.T) {
	_, err := Parse([]byte(`{"ai": {"news": []}}`))
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestParseRejectsWrongShape(t *testing.T) {
	_, err := Parse([]byte(`[{"name": "x"}]`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "blogs.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSampleCatalog(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "data", "blogs.json"))
	require.NoError(t, err)
	assert.Equal(t, "business", c.Categories[0].Name)
	assert.Len(t, c.Categories, 3)
}
