// Package models defines the dataset types shared by the training harness,
// the seed data, and the CLI.
package models

// RelationSpec describes one outgoing relation requested for a perception.
type RelationSpec struct {
	Target string  `json:"target" yaml:"target"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// TrainingItem is one perception in a training dataset.
type TrainingItem struct {
	ID        string         `json:"id" yaml:"id"`
	Embedding []float32      `json:"embedding" yaml:"embedding"`
	Relations []RelationSpec `json:"relations,omitempty" yaml:"relations,omitempty"`
}

// EvalQuery pairs a probe vector with the perception IDs considered correct
// answers. A query scores 1.0 when the top-ranked result is one of them.
type EvalQuery struct {
	Name        string    `json:"name,omitempty" yaml:"name,omitempty"`
	Embedding   []float32 `json:"embedding" yaml:"embedding"`
	ExpectedIDs []string  `json:"expected_ids" yaml:"expected_ids"`
}

// Dataset bundles training items and evaluation queries read from one file.
type Dataset struct {
	Items   []TrainingItem `json:"items" yaml:"items"`
	Queries []EvalQuery    `json:"queries" yaml:"queries"`
}
