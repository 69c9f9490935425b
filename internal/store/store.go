// Package store defines the GraphStore interface for storing and querying
// the perception graph.
package store

import (
	"context"
	"time"
)

// Node represents a perception in the graph: a vector-tagged memory unit.
type Node struct {
	ID              string    `json:"id"`
	Embedding       []float32 `json:"embedding"`
	ActivationCount int       `json:"activation_count"`
	Confidence      float64   `json:"confidence"` // reserved, fixed at creation
	CreatedAt       time.Time `json:"created_at"`
}

// Edge represents a directed, weighted relation between two perceptions.
type Edge struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Weight    float64   `json:"weight"` // 0.0-1.0, activation transmission factor
	CreatedAt time.Time `json:"created_at"`
}

// Match is a single ranked result of a similarity query.
type Match struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Stats summarizes the graph contents.
type Stats struct {
	Nodes          int     `json:"nodes"`
	Edges          int     `json:"edges"`
	MeanActivation float64 `json:"mean_activation"`
}

// Direction specifies edge traversal direction.
type Direction string

const (
	DirectionOutbound Direction = "outbound" // Follow edges from source to target
	DirectionInbound  Direction = "inbound"  // Follow edges from target to source
	DirectionBoth     Direction = "both"     // Follow edges in both directions
)

// GraphStore defines the interface for storing and querying the perception graph.
type GraphStore interface {
	// Node operations
	AddNode(ctx context.Context, node Node) error
	GetNode(ctx context.Context, id string) (*Node, error)
	CountNodes(ctx context.Context) (int, error)

	// ListNodes returns all nodes in insertion order.
	ListNodes(ctx context.Context) ([]Node, error)

	// Edge operations
	AddEdge(ctx context.Context, edge Edge) error
	GetEdges(ctx context.Context, nodeID string, direction Direction) ([]Edge, error)

	// QuerySimilar ranks stored nodes by raw dot product against query.
	// Nodes whose similarity strictly exceeds threshold have their activation
	// count incremented by one, then the retained matches are sorted by
	// similarity descending (ties keep insertion order) and truncated to limit.
	// A limit <= 0 means no truncation. Any stored embedding whose length
	// differs from the query fails the whole call with ErrDimensionMismatch
	// before any counter changes.
	QuerySimilar(ctx context.Context, query []float32, threshold float64, limit int) ([]Match, error)

	// Stats returns node count, edge count, and mean activation count.
	Stats(ctx context.Context) (Stats, error)

	// Persistence
	Sync(ctx context.Context) error
	Close() error
}
