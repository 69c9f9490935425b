package graph

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/percept/internal/store"
)

func newTestGraph(t *testing.T) *PerceptionGraph {
	t.Helper()
	g := New(store.NewInMemoryGraphStore())
	t.Cleanup(func() { g.Close() })
	return g
}

func seedAnimalGraph(t *testing.T, g *PerceptionGraph) {
	t.Helper()
	ctx := context.Background()

	items := []struct {
		id        string
		embedding []float32
		relations []Relation
	}{
		{"visual_cat", []float32{0.8, 0.2, 0.9}, nil},
		{"visual_dog", []float32{0.7, 0.3, 0.8}, nil},
		{"visual_animal", []float32{0.6, 0.4, 0.7}, nil},
	}
	for _, item := range items {
		if _, err := g.CreatePerception(ctx, item.id, item.embedding, item.relations); err != nil {
			t.Fatalf("CreatePerception(%s) failed: %v", item.id, err)
		}
	}
}

func TestCreatePerception(t *testing.T) {
	ctx := context.Background()

	t.Run("creates node with initial state", func(t *testing.T) {
		g := newTestGraph(t)
		unresolved, err := g.CreatePerception(ctx, "visual_cat", []float32{0.8, 0.2, 0.9}, nil)
		if err != nil {
			t.Fatalf("CreatePerception failed: %v", err)
		}
		if len(unresolved) != 0 {
			t.Errorf("unexpected unresolved targets: %v", unresolved)
		}

		node, err := g.Get(ctx, "visual_cat")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if node == nil {
			t.Fatal("node not found after create")
		}
		if node.ActivationCount != 0 {
			t.Errorf("activation count = %d, want 0", node.ActivationCount)
		}
		if node.Confidence != 0.5 {
			t.Errorf("confidence = %v, want 0.5", node.Confidence)
		}
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		g := newTestGraph(t)
		if _, err := g.CreatePerception(ctx, "a", []float32{1}, nil); err != nil {
			t.Fatalf("first create failed: %v", err)
		}
		_, err := g.CreatePerception(ctx, "a", []float32{2}, nil)
		if !errors.Is(err, store.ErrDuplicateID) {
			t.Errorf("expected ErrDuplicateID, got %v", err)
		}
	})

	t.Run("rejects empty embedding", func(t *testing.T) {
		g := newTestGraph(t)
		_, err := g.CreatePerception(ctx, "a", nil, nil)
		if !errors.Is(err, store.ErrEmptyEmbedding) {
			t.Errorf("expected ErrEmptyEmbedding, got %v", err)
		}
	})

	t.Run("reports unresolved relation targets", func(t *testing.T) {
		g := newTestGraph(t)
		if _, err := g.CreatePerception(ctx, "visual_animal", []float32{0.6, 0.4, 0.7}, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		unresolved, err := g.CreatePerception(ctx, "visual_cat", []float32{0.8, 0.2, 0.9}, []Relation{
			{Target: "visual_animal", Weight: 0.9},
			{Target: "not_there_yet", Weight: 0.5},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if len(unresolved) != 1 || unresolved[0] != "not_there_yet" {
			t.Errorf("unresolved = %v, want [not_there_yet]", unresolved)
		}

		// The resolvable relation must still land.
		edges, err := g.store.GetEdges(ctx, "visual_cat", store.DirectionOutbound)
		if err != nil {
			t.Fatalf("GetEdges failed: %v", err)
		}
		if len(edges) != 1 || edges[0].Target != "visual_animal" {
			t.Errorf("unexpected edges: %+v", edges)
		}
	})
}

func TestQuerySimilarDefaults(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	seedAnimalGraph(t, g)

	// Negative threshold and zero limit fall back to 0.5 / 5.
	matches, err := g.QuerySimilar(ctx, []float32{0.75, 0.25, 0.85}, -1, 0)
	if err != nil {
		t.Fatalf("QuerySimilar failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	if matches[0].ID != "visual_cat" {
		t.Errorf("rank-0 = %s, want visual_cat", matches[0].ID)
	}
	if math.Abs(matches[0].Similarity-1.415) > 1e-6 {
		t.Errorf("cat similarity = %v, want 1.415", matches[0].Similarity)
	}

	node, _ := g.Get(ctx, "visual_cat")
	if node.ActivationCount != 1 {
		t.Errorf("activation count = %d, want 1", node.ActivationCount)
	}
}

func TestQuerySimilarDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	seedAnimalGraph(t, g)

	_, err := g.QuerySimilar(ctx, []float32{1, 0}, 0.5, 5)
	if !errors.Is(err, store.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSpread(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	seedAnimalGraph(t, g)

	for _, rel := range []struct {
		source, target string
		weight         float64
	}{
		{"visual_cat", "visual_animal", 0.9},
		{"visual_dog", "visual_animal", 0.8},
	} {
		err := g.store.AddEdge(ctx, store.Edge{Source: rel.source, Target: rel.target, Weight: rel.weight})
		if err != nil {
			t.Fatalf("AddEdge failed: %v", err)
		}
	}

	t.Run("propagates from seed", func(t *testing.T) {
		results, err := g.Spread(ctx, []string{"visual_cat"})
		if err != nil {
			t.Fatalf("Spread failed: %v", err)
		}
		if len(results) == 0 {
			t.Fatal("expected results")
		}
		if results[0].PerceptionID != "visual_cat" {
			t.Errorf("top result = %s, want visual_cat", results[0].PerceptionID)
		}

		foundAnimal := false
		for _, r := range results {
			if r.PerceptionID == "visual_animal" {
				foundAnimal = true
				if r.Distance != 1 {
					t.Errorf("visual_animal distance = %d, want 1", r.Distance)
				}
			}
		}
		if !foundAnimal {
			t.Error("expected activation to reach visual_animal")
		}
	})

	t.Run("unknown seed fails", func(t *testing.T) {
		_, err := g.Spread(ctx, []string{"nope"})
		if !errors.Is(err, store.ErrMissingEndpoint) {
			t.Errorf("expected ErrMissingEndpoint, got %v", err)
		}
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	seedAnimalGraph(t, g)

	stats, err := g.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Nodes != 3 {
		t.Errorf("Nodes = %d, want 3", stats.Nodes)
	}
}
