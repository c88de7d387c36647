package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type document struct {
	Categories []Category `yaml:"categories"`
}

// LoadYAML builds a catalog from a YAML document. Formulas are written as
// nested nodes, for example:
//
//	quantity:
//	  op: ceil
//	  args:
//	    - op: div
//	      args: [{op: quantity}, {op: const, value: 32}]
func LoadYAML(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("catalog yaml has no categories")
	}
	return New(doc.Categories)
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	return LoadYAML(f)
}

// MarshalYAML writes the catalog in the format LoadYAML reads.
func (c *Catalog) MarshalYAML() (any, error) {
	return document{Categories: c.categories}, nil
}
