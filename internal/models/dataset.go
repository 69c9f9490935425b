package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadDataset reads a YAML dataset file and validates it.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset %s: %w", path, err)
	}
	return &ds, nil
}

// Validate checks structural requirements: non-empty IDs and embeddings,
// a consistent embedding dimension, and relation weights in [0, 1].
func (d *Dataset) Validate() error {
	dim := 0
	for i, item := range d.Items {
		if item.ID == "" {
			return fmt.Errorf("item %d: id is required", i)
		}
		if len(item.Embedding) == 0 {
			return fmt.Errorf("item %s: embedding is required", item.ID)
		}
		if dim == 0 {
			dim = len(item.Embedding)
		} else if len(item.Embedding) != dim {
			return fmt.Errorf("item %s: embedding dimension %d, want %d",
				item.ID, len(item.Embedding), dim)
		}
		for _, rel := range item.Relations {
			if rel.Target == "" {
				return fmt.Errorf("item %s: relation target is required", item.ID)
			}
			if rel.Weight < 0 || rel.Weight > 1 {
				return fmt.Errorf("item %s: relation weight %f out of [0, 1]",
					item.ID, rel.Weight)
			}
		}
	}

	for i, q := range d.Queries {
		if len(q.Embedding) == 0 {
			return fmt.Errorf("query %d: embedding is required", i)
		}
		if dim != 0 && len(q.Embedding) != dim {
			return fmt.Errorf("query %d: embedding dimension %d, want %d",
				i, len(q.Embedding), dim)
		}
		if len(q.ExpectedIDs) == 0 {
			return fmt.Errorf("query %d: expected_ids is required", i)
		}
	}

	return nil
}
