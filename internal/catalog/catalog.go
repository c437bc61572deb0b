package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var defaultProducts []byte

type AspectRatio string

const (
	Square    AspectRatio = "1:1"
	Portrait  AspectRatio = "3:4"
	Landscape AspectRatio = "4:3"
	Vertical  AspectRatio = "9:16"
	Wide      AspectRatio = "16:9"
)

var aspectRatios = []AspectRatio{Square, Portrait, Landscape, Vertical, Wide}

func AspectRatios() []AspectRatio {
	return append([]AspectRatio(nil), aspectRatios...)
}

func (a AspectRatio) Valid() bool {
	for _, r := range aspectRatios {
		if r == a {
			return true
		}
	}
	return false
}

type Product struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Icon        string      `yaml:"icon" json:"icon"`
	Description string      `yaml:"description" json:"description"`
	BasePrompt  string      `yaml:"base_prompt" json:"basePrompt"`
	AspectRatio AspectRatio `yaml:"aspect_ratio" json:"aspectRatio"`
}

// Catalog is an ordered, read-only list of output formats.
type Catalog struct {
	products []Product
	byID     map[string]int
}

func Default() *Catalog {
	c, err := Parse(defaultProducts)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a YAML catalog from path. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var products []Product
	if err := yaml.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(products)
}

func New(products []Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, errors.New("catalog is empty")
	}

	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		p.BasePrompt = strings.TrimSpace(p.BasePrompt)

		switch {
		case p.ID == "":
			return nil, fmt.Errorf("product #%d: id is empty", i+1)
		case !p.AspectRatio.Valid():
			return nil, fmt.Errorf("product %q: unsupported aspect ratio %q", p.ID, p.AspectRatio)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("product %q: duplicate id", p.ID)
		}
		if p.Name == "" {
			p.Name = p.ID
		}

		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

func (c *Catalog) Products() []Product {
	return append([]Product(nil), c.products...)
}

func (c *Catalog) Lookup(id string) (Product, bool) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

// Resolve never fails: unknown ids fall back to the first product.
func (c *Catalog) Resolve(id string) Product {
	if p, ok := c.Lookup(id); ok {
		return p
	}
	return c.products[0]
}

func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p.ID)
	}
	return out
}
