package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nvandessel/percept/internal/vecmath"
)

// InMemoryGraphStore implements GraphStore for testing and development.
// Nodes are kept in a map with a separate slice preserving insertion order,
// which decides tie-breaks in QuerySimilar.
type InMemoryGraphStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	order []string
	edges []Edge
}

// NewInMemoryGraphStore creates a new in-memory store.
func NewInMemoryGraphStore() *InMemoryGraphStore {
	return &InMemoryGraphStore{
		nodes: make(map[string]*Node),
		order: make([]string, 0),
		edges: make([]Edge, 0),
	}
}

// AddNode adds a node to the store.
func (s *InMemoryGraphStore) AddNode(ctx context.Context, node Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.ID == "" {
		return fmt.Errorf("node ID is required")
	}
	if len(node.Embedding) == 0 {
		return fmt.Errorf("node %s: %w", node.ID, ErrEmptyEmbedding)
	}
	if _, exists := s.nodes[node.ID]; exists {
		return fmt.Errorf("node %s: %w", node.ID, ErrDuplicateID)
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now()
	}

	// Copy the embedding so callers can't mutate stored state.
	stored := node
	stored.Embedding = make([]float32, len(node.Embedding))
	copy(stored.Embedding, node.Embedding)

	s.nodes[node.ID] = &stored
	s.order = append(s.order, node.ID)
	return nil
}

// GetNode retrieves a node by ID. Returns nil if not found.
func (s *InMemoryGraphStore) GetNode(ctx context.Context, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, exists := s.nodes[id]
	if !exists {
		return nil, nil
	}
	cp := *node
	return &cp, nil
}

// CountNodes returns the number of stored nodes.
func (s *InMemoryGraphStore) CountNodes(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), nil
}

// ListNodes returns all nodes in insertion order.
func (s *InMemoryGraphStore) ListNodes(ctx context.Context) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		results = append(results, *s.nodes[id])
	}
	return results, nil
}

// AddEdge adds an edge to the store.
// Weight must be in [0.0, 1.0] and both endpoints must exist. Re-adding an
// existing (source, target) pair replaces the stored edge, matching the
// SQLite backend's upsert.
func (s *InMemoryGraphStore) AddEdge(ctx context.Context, edge Edge) error {
	if edge.Weight < 0 || edge.Weight > 1.0 {
		return fmt.Errorf("edge weight must be in [0.0, 1.0], got %f", edge.Weight)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[edge.Source]; !exists {
		return fmt.Errorf("edge source %s: %w", edge.Source, ErrMissingEndpoint)
	}
	if _, exists := s.nodes[edge.Target]; !exists {
		return fmt.Errorf("edge target %s: %w", edge.Target, ErrMissingEndpoint)
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now()
	}

	for i := range s.edges {
		if s.edges[i].Source == edge.Source && s.edges[i].Target == edge.Target {
			s.edges[i] = edge
			return nil
		}
	}
	s.edges = append(s.edges, edge)
	return nil
}

// GetEdges returns edges connected to a node.
func (s *InMemoryGraphStore) GetEdges(ctx context.Context, nodeID string, direction Direction) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Edge, 0)
	for _, e := range s.edges {
		switch direction {
		case DirectionOutbound:
			if e.Source == nodeID {
				results = append(results, e)
			}
		case DirectionInbound:
			if e.Target == nodeID {
				results = append(results, e)
			}
		case DirectionBoth:
			if e.Source == nodeID || e.Target == nodeID {
				results = append(results, e)
			}
		}
	}
	return results, nil
}

// QuerySimilar ranks nodes by raw dot product against query and increments
// the activation count of every node above threshold.
func (s *InMemoryGraphStore) QuerySimilar(ctx context.Context, query []float32, threshold float64, limit int) ([]Match, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector: %w", ErrEmptyEmbedding)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every dimension before touching any counter, so a failed
	// query leaves no partial side effects.
	for _, id := range s.order {
		if len(s.nodes[id].Embedding) != len(query) {
			return nil, fmt.Errorf("node %s has dimension %d, query has %d: %w",
				id, len(s.nodes[id].Embedding), len(query), ErrDimensionMismatch)
		}
	}

	matches := make([]Match, 0)
	for _, id := range s.order {
		node := s.nodes[id]
		sim := vecmath.Dot(query, node.Embedding)
		if sim > threshold {
			node.ActivationCount++
			matches = append(matches, Match{ID: id, Similarity: sim})
		}
	}

	// Stable sort keeps insertion order among equal similarities.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Stats returns node count, edge count, and mean activation count.
func (s *InMemoryGraphStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Nodes: len(s.nodes), Edges: len(s.edges)}
	if len(s.nodes) > 0 {
		total := 0
		for _, node := range s.nodes {
			total += node.ActivationCount
		}
		stats.MeanActivation = float64(total) / float64(len(s.nodes))
	}
	return stats, nil
}

// Sync is a no-op for in-memory storage.
func (s *InMemoryGraphStore) Sync(ctx context.Context) error {
	return nil
}

// Close is a no-op for in-memory storage.
func (s *InMemoryGraphStore) Close() error {
	return nil
}
