// Package graph implements the perception graph: vector-tagged memory nodes
// connected by weighted, directed relations, retrieved by raw dot-product
// similarity.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nvandessel/percept/internal/constants"
	"github.com/nvandessel/percept/internal/logging"
	"github.com/nvandessel/percept/internal/spreading"
	"github.com/nvandessel/percept/internal/store"
)

// Relation describes an outgoing edge requested at perception creation time.
type Relation struct {
	Target string  `json:"target" yaml:"target"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// PerceptionGraph coordinates the store, retrieval, and spreading activation.
// It owns the store handle: Close releases it.
type PerceptionGraph struct {
	store    store.GraphStore
	logger   *slog.Logger
	queryLog *logging.QueryLogger
	spread   spreading.Config
}

// Option configures a PerceptionGraph.
type Option func(*PerceptionGraph)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *PerceptionGraph) { g.logger = l }
}

// WithQueryLogger sets the JSONL query trace logger. Nil is fine.
func WithQueryLogger(ql *logging.QueryLogger) Option {
	return func(g *PerceptionGraph) { g.queryLog = ql }
}

// WithSpreadConfig overrides the spreading activation parameters.
func WithSpreadConfig(cfg spreading.Config) Option {
	return func(g *PerceptionGraph) { g.spread = cfg }
}

// New creates a PerceptionGraph over the given store.
func New(s store.GraphStore, opts ...Option) *PerceptionGraph {
	g := &PerceptionGraph{
		store:  s,
		logger: slog.Default(),
		spread: spreading.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreatePerception stores a new perception and its outgoing relations.
// The node starts with activation count 0 and the initial confidence.
//
// Relations whose target does not exist yet are skipped, not failed: their
// target IDs are returned so the caller can see exactly what was dropped.
// A duplicate ID fails the whole call with store.ErrDuplicateID and leaves
// the existing node untouched.
func (g *PerceptionGraph) CreatePerception(ctx context.Context, id string, embedding []float32, relations []Relation) ([]string, error) {
	if id == "" {
		return nil, fmt.Errorf("perception id is required")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("perception %s: %w", id, store.ErrEmptyEmbedding)
	}

	node := store.Node{
		ID:         id,
		Embedding:  embedding,
		Confidence: constants.InitialConfidence,
	}
	if err := g.store.AddNode(ctx, node); err != nil {
		return nil, err
	}

	var unresolved []string
	for _, rel := range relations {
		edge := store.Edge{
			Source: id,
			Target: rel.Target,
			Weight: rel.Weight,
		}
		err := g.store.AddEdge(ctx, edge)
		if err == nil {
			continue
		}
		if errors.Is(err, store.ErrMissingEndpoint) {
			g.logger.Warn("skipping relation to unknown perception",
				"source", id, "target", rel.Target)
			unresolved = append(unresolved, rel.Target)
			continue
		}
		return unresolved, fmt.Errorf("add relation %s->%s: %w", id, rel.Target, err)
	}

	g.logger.Debug("perception created",
		"id", id, "dim", len(embedding), "relations", len(relations)-len(unresolved))
	return unresolved, nil
}

// AddRelations adds outgoing relations from an existing perception.
// Like CreatePerception, relations with a missing target are skipped and
// their target IDs returned.
func (g *PerceptionGraph) AddRelations(ctx context.Context, id string, relations []Relation) ([]string, error) {
	node, err := g.store.GetNode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve perception %s: %w", id, err)
	}
	if node == nil {
		return nil, fmt.Errorf("perception %s: %w", id, store.ErrMissingEndpoint)
	}

	var unresolved []string
	for _, rel := range relations {
		err := g.store.AddEdge(ctx, store.Edge{Source: id, Target: rel.Target, Weight: rel.Weight})
		if err == nil {
			continue
		}
		if errors.Is(err, store.ErrMissingEndpoint) {
			unresolved = append(unresolved, rel.Target)
			continue
		}
		return unresolved, fmt.Errorf("add relation %s->%s: %w", id, rel.Target, err)
	}
	return unresolved, nil
}

// QuerySimilar ranks stored perceptions by raw dot product against query.
// Matches strictly above threshold have their activation count incremented;
// results are ordered by similarity descending with insertion-order ties,
// truncated to limit. Threshold and limit fall back to the package defaults
// when negative or zero respectively.
func (g *PerceptionGraph) QuerySimilar(ctx context.Context, query []float32, threshold float64, limit int) ([]store.Match, error) {
	if threshold < 0 {
		threshold = constants.DefaultQueryThreshold
	}
	if limit <= 0 {
		limit = constants.DefaultQueryLimit
	}

	matches, err := g.store.QuerySimilar(ctx, query, threshold, limit)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("similarity query",
		"dim", len(query), "threshold", threshold, "limit", limit, "matches", len(matches))
	if g.queryLog != nil {
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		g.queryLog.Log(map[string]any{
			"event":     "query_similar",
			"dim":       len(query),
			"threshold": threshold,
			"limit":     limit,
			"matches":   ids,
		})
	}
	return matches, nil
}

// Spread runs spreading activation from the given perception IDs.
// Unknown seed IDs fail with store.ErrMissingEndpoint.
func (g *PerceptionGraph) Spread(ctx context.Context, seedIDs []string) ([]spreading.Result, error) {
	seeds := make([]spreading.Seed, 0, len(seedIDs))
	for _, id := range seedIDs {
		node, err := g.store.GetNode(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve seed %s: %w", id, err)
		}
		if node == nil {
			return nil, fmt.Errorf("seed %s: %w", id, store.ErrMissingEndpoint)
		}
		seeds = append(seeds, spreading.Seed{
			PerceptionID: id,
			Activation:   1.0,
			Source:       "seed:" + id,
		})
	}

	engine := spreading.NewEngine(g.store, g.spread)
	return engine.Activate(ctx, seeds)
}

// Store exposes the underlying store for maintenance operations
// (backup, restore). The graph still owns the handle.
func (g *PerceptionGraph) Store() store.GraphStore {
	return g.store
}

// Get returns a stored perception by ID, or nil when absent.
func (g *PerceptionGraph) Get(ctx context.Context, id string) (*store.Node, error) {
	return g.store.GetNode(ctx, id)
}

// Stats reports node count, edge count, and mean activation.
func (g *PerceptionGraph) Stats(ctx context.Context) (store.Stats, error) {
	return g.store.Stats(ctx)
}

// Sync flushes the underlying store.
func (g *PerceptionGraph) Sync(ctx context.Context) error {
	return g.store.Sync(ctx)
}

// Close releases the underlying store and the query trace log.
func (g *PerceptionGraph) Close() error {
	g.queryLog.Close()
	return g.store.Close()
}
