// Package store provides graph storage implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/percept/internal/vecmath"
)

// SQLiteGraphStore implements GraphStore using SQLite for persistence.
// It stores perceptions and edges in a SQLite database and exports to JSONL
// on Sync().
type SQLiteGraphStore struct {
	mu         sync.RWMutex
	db         *sql.DB
	perceptDir string
	dbPath     string
	nodesFile  string
	edgesFile  string
	closed     bool
}

// NewSQLiteGraphStore creates a new SQLiteGraphStore rooted at projectRoot.
// It creates the database at .percept/percept.db and auto-imports existing
// JSONL files.
func NewSQLiteGraphStore(projectRoot string) (*SQLiteGraphStore, error) {
	perceptDir := LocalPerceptPath(projectRoot)

	if err := os.MkdirAll(perceptDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .percept directory: %w", err)
	}

	dbPath := filepath.Join(perceptDir, "percept.db")
	nodesFile := filepath.Join(perceptDir, "nodes.jsonl")
	edgesFile := filepath.Join(perceptDir, "edges.jsonl")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStoreUnavailable, err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %v", ErrStoreUnavailable, err)
	}

	s := &SQLiteGraphStore{
		db:         db,
		perceptDir: perceptDir,
		dbPath:     dbPath,
		nodesFile:  nodesFile,
		edgesFile:  edgesFile,
	}

	// Auto-import existing JSONL if database is empty or JSONL is newer
	if err := s.autoImport(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to auto-import JSONL: %w", err)
	}

	return s, nil
}

// autoImport imports existing JSONL files if the database is empty or JSONL is newer.
func (s *SQLiteGraphStore) autoImport(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM perceptions`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count perceptions: %w", err)
	}

	if count > 0 {
		dbInfo, err := os.Stat(s.dbPath)
		if err != nil {
			return fmt.Errorf("failed to stat database: %w", err)
		}

		nodesInfo, err := os.Stat(s.nodesFile)
		if err != nil {
			if os.IsNotExist(err) {
				return nil // No JSONL file, nothing to import
			}
			return fmt.Errorf("failed to stat nodes.jsonl: %w", err)
		}

		// If JSONL is older than DB, no need to import
		if nodesInfo.ModTime().Before(dbInfo.ModTime()) {
			return nil
		}
	}

	if _, err := os.Stat(s.nodesFile); err == nil {
		if err := s.ImportNodesFromJSONL(ctx, s.nodesFile); err != nil {
			return fmt.Errorf("failed to import nodes: %w", err)
		}
	}

	if _, err := os.Stat(s.edgesFile); err == nil {
		if err := s.ImportEdgesFromJSONL(ctx, s.edgesFile); err != nil {
			return fmt.Errorf("failed to import edges: %w", err)
		}
	}

	return nil
}

// AddNode adds a node to the store.
func (s *SQLiteGraphStore) AddNode(ctx context.Context, node Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.ID == "" {
		return fmt.Errorf("node ID is required")
	}
	if len(node.Embedding) == 0 {
		return fmt.Errorf("node %s: %w", node.ID, ErrEmptyEmbedding)
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM perceptions WHERE id = ?`, node.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check node existence: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("node %s: %w", node.ID, ErrDuplicateID)
	}

	embeddingJSON, err := json.Marshal(node.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	createdAt := node.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO perceptions (id, embedding, dim, activation_count, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, node.ID, string(embeddingJSON), len(node.Embedding),
		node.ActivationCount, node.Confidence, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert perception: %w", err)
	}

	return nil
}

// GetNode retrieves a node by ID. Returns nil if not found.
func (s *SQLiteGraphStore) GetNode(ctx context.Context, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, embedding, activation_count, confidence, created_at
		FROM perceptions WHERE id = ?
	`, id)

	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	return node, nil
}

// CountNodes returns the number of stored nodes.
func (s *SQLiteGraphStore) CountNodes(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM perceptions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count perceptions: %w", err)
	}
	return count, nil
}

// ListNodes returns all nodes in insertion order.
func (s *SQLiteGraphStore) ListNodes(ctx context.Context) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listNodesLocked(ctx)
}

func (s *SQLiteGraphStore) listNodesLocked(ctx context.Context) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, embedding, activation_count, confidence, created_at
		FROM perceptions ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query perceptions: %w", err)
	}
	defer rows.Close()

	results := make([]Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan perception: %w", err)
		}
		results = append(results, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return results, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*Node, error) {
	var node Node
	var embeddingJSON, createdAtStr string
	if err := row.Scan(&node.ID, &embeddingJSON, &node.ActivationCount,
		&node.Confidence, &createdAtStr); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(embeddingJSON), &node.Embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, createdAtStr); err == nil {
		node.CreatedAt = t
	}
	return &node, nil
}

// AddEdge adds an edge to the store.
// Weight must be in [0.0, 1.0] and both endpoints must exist.
func (s *SQLiteGraphStore) AddEdge(ctx context.Context, edge Edge) error {
	if edge.Weight < 0 || edge.Weight > 1.0 {
		return fmt.Errorf("edge weight must be in [0.0, 1.0], got %f", edge.Weight)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, endpoint := range []string{edge.Source, edge.Target} {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM perceptions WHERE id = ?`, endpoint).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check endpoint %s: %w", endpoint, err)
		}
		if exists == 0 {
			return fmt.Errorf("edge endpoint %s: %w", endpoint, ErrMissingEndpoint)
		}
	}

	createdAt := edge.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO edges (source, target, weight, created_at)
		VALUES (?, ?, ?, ?)
	`, edge.Source, edge.Target, edge.Weight, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert edge: %w", err)
	}

	return nil
}

// GetEdges returns edges connected to a node.
func (s *SQLiteGraphStore) GetEdges(ctx context.Context, nodeID string, direction Direction) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var query string
	var args []interface{}
	switch direction {
	case DirectionOutbound:
		query = `SELECT source, target, weight, created_at FROM edges WHERE source = ?`
		args = []interface{}{nodeID}
	case DirectionInbound:
		query = `SELECT source, target, weight, created_at FROM edges WHERE target = ?`
		args = []interface{}{nodeID}
	case DirectionBoth:
		query = `SELECT source, target, weight, created_at FROM edges WHERE source = ? OR target = ?`
		args = []interface{}{nodeID, nodeID}
	default:
		return nil, fmt.Errorf("unknown direction: %s", direction)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	results := make([]Edge, 0)
	for rows.Next() {
		var edge Edge
		var createdAtStr string
		if err := rows.Scan(&edge.Source, &edge.Target, &edge.Weight, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAtStr); err == nil {
			edge.CreatedAt = t
		}
		results = append(results, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return results, nil
}

// QuerySimilar ranks nodes by raw dot product against query and increments
// the activation count of every node above threshold. The similarity scan
// and the counter updates happen under one transaction so a failed query
// leaves no partial state.
func (s *SQLiteGraphStore) QuerySimilar(ctx context.Context, query []float32, threshold float64, limit int) ([]Match, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector: %w", ErrEmptyEmbedding)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := s.listNodesLocked(ctx)
	if err != nil {
		return nil, err
	}

	// Validate every dimension before any counter changes.
	for _, node := range nodes {
		if len(node.Embedding) != len(query) {
			return nil, fmt.Errorf("node %s has dimension %d, query has %d: %w",
				node.ID, len(node.Embedding), len(query), ErrDimensionMismatch)
		}
	}

	matches := make([]Match, 0)
	for _, node := range nodes {
		sim := vecmath.Dot(query, node.Embedding)
		if sim > threshold {
			matches = append(matches, Match{ID: node.ID, Similarity: sim})
		}
	}

	if len(matches) > 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		for _, m := range matches {
			if _, err := tx.ExecContext(ctx, `
				UPDATE perceptions SET activation_count = activation_count + 1 WHERE id = ?
			`, m.ID); err != nil {
				return nil, fmt.Errorf("failed to increment activation for %s: %w", m.ID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit activation updates: %w", err)
		}
	}

	// Stable sort keeps insertion (seq) order among equal similarities.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Stats returns node count, edge count, and mean activation count.
func (s *SQLiteGraphStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	var meanActivation sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(activation_count) FROM perceptions`).
		Scan(&stats.Nodes, &meanActivation)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query perception stats: %w", err)
	}
	if meanActivation.Valid {
		stats.MeanActivation = meanActivation.Float64
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&stats.Edges); err != nil {
		return Stats{}, fmt.Errorf("failed to count edges: %w", err)
	}

	return stats, nil
}

// Sync exports the graph to nodes.jsonl and edges.jsonl.
func (s *SQLiteGraphStore) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportLocked(ctx)
}

// Close syncs and closes the database. Safe to call more than once.
func (s *SQLiteGraphStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	syncErr := s.exportLocked(context.Background())
	closeErr := s.db.Close()
	if syncErr != nil {
		return fmt.Errorf("failed to export on close: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close database: %w", closeErr)
	}
	return nil
}
