package store

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func seedAnimals(t *testing.T, s GraphStore) {
	t.Helper()
	ctx := context.Background()

	nodes := []Node{
		{ID: "visual_cat", Embedding: []float32{0.8, 0.2, 0.9}, Confidence: 0.5},
		{ID: "visual_dog", Embedding: []float32{0.7, 0.3, 0.8}, Confidence: 0.5},
		{ID: "visual_animal", Embedding: []float32{0.6, 0.4, 0.7}, Confidence: 0.5},
	}
	for _, n := range nodes {
		if err := s.AddNode(ctx, n); err != nil {
			t.Fatalf("AddNode(%s) failed: %v", n.ID, err)
		}
	}

	edges := []Edge{
		{Source: "visual_cat", Target: "visual_animal", Weight: 0.9, CreatedAt: time.Now()},
		{Source: "visual_dog", Target: "visual_animal", Weight: 0.8, CreatedAt: time.Now()},
	}
	for _, e := range edges {
		if err := s.AddEdge(ctx, e); err != nil {
			t.Fatalf("AddEdge(%s->%s) failed: %v", e.Source, e.Target, err)
		}
	}
}

func TestInMemoryAddNode(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty ID", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		err := s.AddNode(ctx, Node{Embedding: []float32{1, 2}})
		if err == nil {
			t.Error("expected error for empty ID")
		}
	})

	t.Run("rejects empty embedding", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		err := s.AddNode(ctx, Node{ID: "a"})
		if !errors.Is(err, ErrEmptyEmbedding) {
			t.Errorf("expected ErrEmptyEmbedding, got %v", err)
		}
	})

	t.Run("rejects duplicate ID", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		if err := s.AddNode(ctx, Node{ID: "a", Embedding: []float32{1}}); err != nil {
			t.Fatalf("first AddNode failed: %v", err)
		}
		err := s.AddNode(ctx, Node{ID: "a", Embedding: []float32{2}})
		if !errors.Is(err, ErrDuplicateID) {
			t.Errorf("expected ErrDuplicateID, got %v", err)
		}

		// Original embedding must survive the rejected write.
		node, err := s.GetNode(ctx, "a")
		if err != nil {
			t.Fatalf("GetNode failed: %v", err)
		}
		if node.Embedding[0] != 1 {
			t.Errorf("embedding overwritten: got %v", node.Embedding)
		}
	})

	t.Run("stores a copy of the embedding", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		vec := []float32{1, 2, 3}
		if err := s.AddNode(ctx, Node{ID: "a", Embedding: vec}); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}
		vec[0] = 99

		node, _ := s.GetNode(ctx, "a")
		if node.Embedding[0] != 1 {
			t.Errorf("stored embedding aliased caller slice: got %v", node.Embedding)
		}
	})
}

func TestInMemoryGetNode(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryGraphStore()

	node, err := s.GetNode(ctx, "missing")
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if node != nil {
		t.Errorf("expected nil for missing node, got %+v", node)
	}
}

func TestInMemoryAddEdge(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects missing source", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		if err := s.AddNode(ctx, Node{ID: "b", Embedding: []float32{1}}); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}
		err := s.AddEdge(ctx, Edge{Source: "a", Target: "b", Weight: 0.5})
		if !errors.Is(err, ErrMissingEndpoint) {
			t.Errorf("expected ErrMissingEndpoint, got %v", err)
		}
	})

	t.Run("rejects missing target", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		if err := s.AddNode(ctx, Node{ID: "a", Embedding: []float32{1}}); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}
		err := s.AddEdge(ctx, Edge{Source: "a", Target: "b", Weight: 0.5})
		if !errors.Is(err, ErrMissingEndpoint) {
			t.Errorf("expected ErrMissingEndpoint, got %v", err)
		}
	})

	t.Run("rejects out-of-range weight", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		s.AddNode(ctx, Node{ID: "a", Embedding: []float32{1}})
		s.AddNode(ctx, Node{ID: "b", Embedding: []float32{1}})

		for _, w := range []float64{-0.1, 1.1} {
			if err := s.AddEdge(ctx, Edge{Source: "a", Target: "b", Weight: w}); err == nil {
				t.Errorf("expected error for weight %v", w)
			}
		}
	})

	t.Run("re-adding a pair replaces the edge", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		s.AddNode(ctx, Node{ID: "a", Embedding: []float32{1}})
		s.AddNode(ctx, Node{ID: "b", Embedding: []float32{1}})

		if err := s.AddEdge(ctx, Edge{Source: "a", Target: "b", Weight: 0.3}); err != nil {
			t.Fatalf("first AddEdge failed: %v", err)
		}
		if err := s.AddEdge(ctx, Edge{Source: "a", Target: "b", Weight: 0.9}); err != nil {
			t.Fatalf("second AddEdge failed: %v", err)
		}

		edges, err := s.GetEdges(ctx, "a", DirectionOutbound)
		if err != nil {
			t.Fatalf("GetEdges failed: %v", err)
		}
		if len(edges) != 1 {
			t.Fatalf("got %d edges, want 1 after upsert", len(edges))
		}
		if edges[0].Weight != 0.9 {
			t.Errorf("Weight = %f, want 0.9", edges[0].Weight)
		}
	})
}

func TestInMemoryGetEdges(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryGraphStore()
	seedAnimals(t, s)

	tests := []struct {
		name      string
		nodeID    string
		direction Direction
		want      int
	}{
		{"outbound from cat", "visual_cat", DirectionOutbound, 1},
		{"inbound to animal", "visual_animal", DirectionInbound, 2},
		{"both for animal", "visual_animal", DirectionBoth, 2},
		{"outbound from animal", "visual_animal", DirectionOutbound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges, err := s.GetEdges(ctx, tt.nodeID, tt.direction)
			if err != nil {
				t.Fatalf("GetEdges failed: %v", err)
			}
			if len(edges) != tt.want {
				t.Errorf("got %d edges, want %d", len(edges), tt.want)
			}
		})
	}
}

func TestInMemoryQuerySimilar(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks by raw dot product descending", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		seedAnimals(t, s)

		matches, err := s.QuerySimilar(ctx, []float32{0.75, 0.25, 0.85}, 0.5, 5)
		if err != nil {
			t.Fatalf("QuerySimilar failed: %v", err)
		}
		if len(matches) != 3 {
			t.Fatalf("got %d matches, want 3", len(matches))
		}
		if matches[0].ID != "visual_cat" {
			t.Errorf("rank-0 = %s, want visual_cat", matches[0].ID)
		}
		// cat: 0.75*0.8 + 0.25*0.2 + 0.85*0.9 = 1.415
		if math.Abs(matches[0].Similarity-1.415) > 1e-6 {
			t.Errorf("cat similarity = %v, want 1.415", matches[0].Similarity)
		}
		for i := 1; i < len(matches); i++ {
			if matches[i].Similarity > matches[i-1].Similarity {
				t.Errorf("matches not sorted descending at %d", i)
			}
		}
	})

	t.Run("threshold is strict", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		if err := s.AddNode(ctx, Node{ID: "exact", Embedding: []float32{0.5}}); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}

		// Similarity is exactly 0.5, which does not exceed the threshold.
		matches, err := s.QuerySimilar(ctx, []float32{1.0}, 0.5, 5)
		if err != nil {
			t.Fatalf("QuerySimilar failed: %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("got %d matches, want 0 for similarity == threshold", len(matches))
		}

		node, _ := s.GetNode(ctx, "exact")
		if node.ActivationCount != 0 {
			t.Errorf("activation count = %d, want 0", node.ActivationCount)
		}
	})

	t.Run("increments activation of retained nodes once", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		seedAnimals(t, s)

		query := []float32{0.75, 0.25, 0.85}
		if _, err := s.QuerySimilar(ctx, query, 0.5, 5); err != nil {
			t.Fatalf("QuerySimilar failed: %v", err)
		}
		if _, err := s.QuerySimilar(ctx, query, 0.5, 5); err != nil {
			t.Fatalf("QuerySimilar failed: %v", err)
		}

		for _, id := range []string{"visual_cat", "visual_dog", "visual_animal"} {
			node, _ := s.GetNode(ctx, id)
			if node.ActivationCount != 2 {
				t.Errorf("%s activation count = %d, want 2", id, node.ActivationCount)
			}
		}
	})

	t.Run("nodes below threshold are not incremented", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		s.AddNode(ctx, Node{ID: "near", Embedding: []float32{1, 0}})
		s.AddNode(ctx, Node{ID: "far", Embedding: []float32{0, 1}})

		matches, err := s.QuerySimilar(ctx, []float32{1, 0}, 0.5, 5)
		if err != nil {
			t.Fatalf("QuerySimilar failed: %v", err)
		}
		if len(matches) != 1 || matches[0].ID != "near" {
			t.Fatalf("unexpected matches: %+v", matches)
		}

		far, _ := s.GetNode(ctx, "far")
		if far.ActivationCount != 0 {
			t.Errorf("far activation count = %d, want 0", far.ActivationCount)
		}
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		s.AddNode(ctx, Node{ID: "first", Embedding: []float32{1, 0}})
		s.AddNode(ctx, Node{ID: "second", Embedding: []float32{1, 0}})
		s.AddNode(ctx, Node{ID: "third", Embedding: []float32{0, 1}})

		matches, err := s.QuerySimilar(ctx, []float32{1, 0}, 0.5, 5)
		if err != nil {
			t.Fatalf("QuerySimilar failed: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("got %d matches, want 2", len(matches))
		}
		if matches[0].ID != "first" || matches[1].ID != "second" {
			t.Errorf("tie order broken: %s, %s", matches[0].ID, matches[1].ID)
		}
	})

	t.Run("truncates to limit after incrementing", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		seedAnimals(t, s)

		matches, err := s.QuerySimilar(ctx, []float32{0.75, 0.25, 0.85}, 0.5, 2)
		if err != nil {
			t.Fatalf("QuerySimilar failed: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("got %d matches, want 2", len(matches))
		}

		// visual_animal cleared the threshold but fell past the limit;
		// its counter still advances.
		node, _ := s.GetNode(ctx, "visual_animal")
		if node.ActivationCount != 1 {
			t.Errorf("truncated node activation count = %d, want 1", node.ActivationCount)
		}
	})

	t.Run("dimension mismatch fails the whole query", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		s.AddNode(ctx, Node{ID: "a", Embedding: []float32{1, 0, 0}})
		s.AddNode(ctx, Node{ID: "b", Embedding: []float32{1, 0}})

		_, err := s.QuerySimilar(ctx, []float32{1, 0, 0}, 0.0, 5)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch, got %v", err)
		}

		// Failed queries leave no side effects.
		a, _ := s.GetNode(ctx, "a")
		if a.ActivationCount != 0 {
			t.Errorf("activation count changed on failed query: %d", a.ActivationCount)
		}
	})

	t.Run("rejects empty query vector", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		_, err := s.QuerySimilar(ctx, nil, 0.5, 5)
		if !errors.Is(err, ErrEmptyEmbedding) {
			t.Errorf("expected ErrEmptyEmbedding, got %v", err)
		}
	})

	t.Run("empty store returns no matches", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		matches, err := s.QuerySimilar(ctx, []float32{1, 2}, 0.5, 5)
		if err != nil {
			t.Fatalf("QuerySimilar failed: %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("got %d matches, want 0", len(matches))
		}
	})
}

func TestInMemoryListNodes(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryGraphStore()
	seedAnimals(t, s)

	nodes, err := s.ListNodes(ctx)
	if err != nil {
		t.Fatalf("ListNodes failed: %v", err)
	}

	want := []string{"visual_cat", "visual_dog", "visual_animal"}
	if len(nodes) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(nodes), len(want))
	}
	for i, id := range want {
		if nodes[i].ID != id {
			t.Errorf("nodes[%d] = %s, want %s", i, nodes[i].ID, id)
		}
	}
}

func TestInMemoryStats(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		stats, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.Nodes != 0 || stats.Edges != 0 || stats.MeanActivation != 0 {
			t.Errorf("unexpected stats for empty store: %+v", stats)
		}
	})

	t.Run("counts and mean activation", func(t *testing.T) {
		s := NewInMemoryGraphStore()
		seedAnimals(t, s)

		if _, err := s.QuerySimilar(ctx, []float32{0.75, 0.25, 0.85}, 0.5, 5); err != nil {
			t.Fatalf("QuerySimilar failed: %v", err)
		}

		stats, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.Nodes != 3 {
			t.Errorf("Nodes = %d, want 3", stats.Nodes)
		}
		if stats.Edges != 2 {
			t.Errorf("Edges = %d, want 2", stats.Edges)
		}
		if math.Abs(stats.MeanActivation-1.0) > 1e-9 {
			t.Errorf("MeanActivation = %v, want 1.0", stats.MeanActivation)
		}
	})
}
