package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// manifest is a catalog as written in a Kubernetes-style YAML file.
type manifest struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Catalog    `yaml:",inline"`
}

// DecodeYAML reads catalogs from a YAML stream. Each document is either a
// single manifest (documents of another kind are skipped) or a sequence of
// catalogs, which covers saved registry responses since JSON is valid YAML.
func DecodeYAML(r io.Reader) ([]Catalog, error) {
	dec := yaml.NewDecoder(r)
	var out []Catalog
	for doc := 0; ; doc++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if len(node.Content) == 0 {
			continue
		}

		switch body := node.Content[0]; body.Kind {
		case yaml.SequenceNode:
			var cats []Catalog
			if err := body.Decode(&cats); err != nil {
				return nil, fmt.Errorf("document %d: %w", doc, err)
			}
			out = append(out, cats...)
		case yaml.MappingNode:
			var m manifest
			if err := body.Decode(&m); err != nil {
				return nil, fmt.Errorf("document %d: %w", doc, err)
			}
			if m.Kind != "" && m.Kind != "Catalog" {
				slog.Debug("skipping non-catalog document", "doc", doc, "kind", m.Kind)
				continue
			}
			out = append(out, m.Catalog)
		default:
			slog.Debug("skipping scalar document", "doc", doc)
		}
	}
}

// LoadFiles decodes catalogs from each path in order.
func LoadFiles(paths ...string) ([]Catalog, error) {
	var out []Catalog
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		cats, err := DecodeYAML(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", p, err)
		}
		out = append(out, cats...)
	}
	return out, nil
}
