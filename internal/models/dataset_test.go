package models

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeDataset(t, `
items:
  - id: visual_cat
    embedding: [0.8, 0.2, 0.9]
    relations:
      - target: visual_animal
        weight: 0.9
  - id: visual_animal
    embedding: [0.6, 0.4, 0.7]
queries:
  - name: cat_query
    embedding: [0.75, 0.25, 0.85]
    expected_ids: [visual_cat]
`)

	ds, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}

	if len(ds.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(ds.Items))
	}
	if ds.Items[0].ID != "visual_cat" {
		t.Errorf("items[0].ID = %s, want visual_cat", ds.Items[0].ID)
	}
	if len(ds.Items[0].Relations) != 1 || ds.Items[0].Relations[0].Weight != 0.9 {
		t.Errorf("unexpected relations: %+v", ds.Items[0].Relations)
	}
	if len(ds.Queries) != 1 || ds.Queries[0].Name != "cat_query" {
		t.Errorf("unexpected queries: %+v", ds.Queries)
	}
}

func TestLoadDataset_MissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDatasetValidate(t *testing.T) {
	tests := []struct {
		name    string
		dataset Dataset
		wantErr bool
	}{
		{
			name: "valid",
			dataset: Dataset{
				Items: []TrainingItem{
					{ID: "a", Embedding: []float32{1, 2}},
				},
				Queries: []EvalQuery{
					{Embedding: []float32{1, 2}, ExpectedIDs: []string{"a"}},
				},
			},
		},
		{
			name: "missing item id",
			dataset: Dataset{
				Items: []TrainingItem{{Embedding: []float32{1}}},
			},
			wantErr: true,
		},
		{
			name: "missing embedding",
			dataset: Dataset{
				Items: []TrainingItem{{ID: "a"}},
			},
			wantErr: true,
		},
		{
			name: "inconsistent dimensions",
			dataset: Dataset{
				Items: []TrainingItem{
					{ID: "a", Embedding: []float32{1, 2}},
					{ID: "b", Embedding: []float32{1}},
				},
			},
			wantErr: true,
		},
		{
			name: "relation weight out of range",
			dataset: Dataset{
				Items: []TrainingItem{
					{ID: "a", Embedding: []float32{1}, Relations: []RelationSpec{{Target: "b", Weight: 1.5}}},
				},
			},
			wantErr: true,
		},
		{
			name: "query dimension mismatch",
			dataset: Dataset{
				Items: []TrainingItem{{ID: "a", Embedding: []float32{1, 2}}},
				Queries: []EvalQuery{
					{Embedding: []float32{1}, ExpectedIDs: []string{"a"}},
				},
			},
			wantErr: true,
		},
		{
			name: "query without expected ids",
			dataset: Dataset{
				Items: []TrainingItem{{ID: "a", Embedding: []float32{1}}},
				Queries: []EvalQuery{
					{Embedding: []float32{1}},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dataset.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
