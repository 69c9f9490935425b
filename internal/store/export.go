// Package store provides graph storage implementations.
package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// exportLocked writes the full graph to nodes.jsonl and edges.jsonl.
// Caller must hold the write lock. Files are written atomically via a
// temp-file rename so a crashed export never truncates the previous one.
func (s *SQLiteGraphStore) exportLocked(ctx context.Context) error {
	nodes, err := s.listNodesLocked(ctx)
	if err != nil {
		return fmt.Errorf("failed to list nodes for export: %w", err)
	}

	edges, err := s.listAllEdgesLocked(ctx)
	if err != nil {
		return fmt.Errorf("failed to list edges for export: %w", err)
	}

	if err := writeJSONL(s.nodesFile, len(nodes), func(i int) interface{} { return nodes[i] }); err != nil {
		return fmt.Errorf("failed to write nodes.jsonl: %w", err)
	}
	if err := writeJSONL(s.edgesFile, len(edges), func(i int) interface{} { return edges[i] }); err != nil {
		return fmt.Errorf("failed to write edges.jsonl: %w", err)
	}
	return nil
}

// listAllEdgesLocked returns every edge in the store.
func (s *SQLiteGraphStore) listAllEdgesLocked(ctx context.Context) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target, weight, created_at FROM edges ORDER BY source, target`)
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
	return results, rows.Err()
}

// writeJSONL writes n records as one JSON object per line.
func writeJSONL(path string, n int, record func(int) interface{}) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		if err := enc.Encode(record(i)); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to flush file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}
	return os.Rename(tmp, path)
}

// ImportNodesFromJSONL imports nodes from a JSONL file into the SQLite database.
// Existing IDs are updated in place so their insertion order (seq) survives.
func (s *SQLiteGraphStore) ImportNodesFromJSONL(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No file is fine
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Increase buffer size for long embedding lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var node Node
		if err := json.Unmarshal([]byte(line), &node); err != nil {
			// Log but continue on parse errors
			fmt.Fprintf(os.Stderr, "warning: failed to parse line %d: %v\n", lineNum, err)
			continue
		}
		if node.ID == "" || len(node.Embedding) == 0 {
			fmt.Fprintf(os.Stderr, "warning: skipping incomplete node at line %d\n", lineNum)
			continue
		}

		embeddingJSON, err := json.Marshal(node.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding for %s: %w", node.ID, err)
		}
		createdAt := node.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO perceptions (id, embedding, dim, activation_count, confidence, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				embedding = excluded.embedding,
				dim = excluded.dim,
				activation_count = excluded.activation_count,
				confidence = excluded.confidence
		`, node.ID, string(embeddingJSON), len(node.Embedding),
			node.ActivationCount, node.Confidence, createdAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to import node %s: %w", node.ID, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// ImportEdgesFromJSONL imports edges from a JSONL file into the SQLite database.
// Weight 0 is a valid stored value, so records without an explicit weight are
// skipped rather than defaulted. Missing created_at defaults to now.
func (s *SQLiteGraphStore) ImportEdgesFromJSONL(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No file is fine
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var rec struct {
			Source    string    `json:"source"`
			Target    string    `json:"target"`
			Weight    *float64  `json:"weight"`
			CreatedAt time.Time `json:"created_at"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to parse edge at line %d: %v\n", lineNum, err)
			continue
		}
		if rec.Source == "" || rec.Target == "" || rec.Weight == nil {
			fmt.Fprintf(os.Stderr, "warning: skipping incomplete edge at line %d\n", lineNum)
			continue
		}

		edge := Edge{
			Source:    rec.Source,
			Target:    rec.Target,
			Weight:    *rec.Weight,
			CreatedAt: rec.CreatedAt,
		}
		if edge.CreatedAt.IsZero() {
			edge.CreatedAt = time.Now()
		}

		_, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO edges (source, target, weight, created_at)
			VALUES (?, ?, ?, ?)
		`, edge.Source, edge.Target, edge.Weight, edge.CreatedAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to import edge: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}
