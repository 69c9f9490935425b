// Package seed provides the built-in synthetic dataset used by the demo:
// three visual memories (cat, dog, animal) with taxonomy relations, plus
// probe queries for each.
package seed

import "github.com/nvandessel/percept/internal/models"

// TrainingItems returns the synthetic training data in its canonical order.
// The cat and dog relations point at visual_animal, which is created last,
// so ordered training reports them as unresolved until a backfill pass.
func TrainingItems() []models.TrainingItem {
	return []models.TrainingItem{
		{
			ID:        "visual_cat",
			Embedding: []float32{0.8, 0.2, 0.9},
			Relations: []models.RelationSpec{
				{Target: "visual_animal", Weight: 0.9},
			},
		},
		{
			ID:        "visual_dog",
			Embedding: []float32{0.7, 0.3, 0.8},
			Relations: []models.RelationSpec{
				{Target: "visual_animal", Weight: 0.8},
			},
		},
		{
			ID:        "visual_animal",
			Embedding: []float32{0.6, 0.4, 0.7},
		},
	}
}

// DemoQueries returns the probe queries paired with the memory each one
// is aimed at.
func DemoQueries() []models.EvalQuery {
	return []models.EvalQuery{
		{
			Name:        "cat_query",
			Embedding:   []float32{0.75, 0.25, 0.85},
			ExpectedIDs: []string{"visual_cat"},
		},
		{
			Name:        "dog_query",
			Embedding:   []float32{0.65, 0.35, 0.75},
			ExpectedIDs: []string{"visual_dog"},
		},
		{
			Name:        "animal_query",
			Embedding:   []float32{0.55, 0.45, 0.65},
			ExpectedIDs: []string{"visual_animal"},
		},
	}
}

// Dataset bundles the synthetic items and queries.
func Dataset() *models.Dataset {
	return &models.Dataset{
		Items:   TrainingItems(),
		Queries: DemoQueries(),
	}
}
