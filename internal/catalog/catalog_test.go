package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_OriginalProductsInOrder(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{"flyer", "story", "reel", "post", "banner", "promo"}, c.IDs())

	post, ok := c.Lookup("post")
	require.True(t, ok)
	assert.Equal(t, Square, post.AspectRatio)
	assert.Equal(t, "Feed Post", post.Name)
	assert.NotEmpty(t, post.BasePrompt)

	for _, p := range c.Products() {
		assert.True(t, p.AspectRatio.Valid(), p.ID)
	}
}

func TestResolve_FallsBackToFirstProduct(t *testing.T) {
	c := Default()

	assert.Equal(t, "banner", c.Resolve("banner").ID)
	assert.Equal(t, "flyer", c.Resolve("nope").ID)
	assert.Equal(t, "flyer", c.Resolve("").ID)
}

func TestProducts_ReturnsCopy(t *testing.T) {
	c := Default()

	list := c.Products()
	list[0].Name = "mutated"

	assert.Equal(t, "Marketing Flyer", c.Products()[0].Name)
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: "[]"},
		{name: "missing id", yaml: "- name: X\n  aspect_ratio: \"1:1\"\n"},
		{name: "bad ratio", yaml: "- id: x\n  aspect_ratio: \"5:4\"\n"},
		{name: "duplicate", yaml: "- id: x\n  aspect_ratio: \"1:1\"\n- id: x\n  aspect_ratio: \"9:16\"\n"},
		{name: "not yaml list", yaml: "id: x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := "- id: square\n  aspect_ratio: \"1:1\"\n- id: wide\n  name: Wide One\n  aspect_ratio: \"16:9\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"square", "wide"}, c.IDs())
	sq, _ := c.Lookup("square")
	assert.Equal(t, "square", sq.Name, "name defaults to id")
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	c, err := Load("  ")
	require.NoError(t, err)
	assert.Len(t, c.Products(), 6)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
