// Package training implements the two-phase train-then-evaluate harness:
// ordered ingestion of training items followed by binary rank-0 accuracy
// over evaluation queries.
package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nvandessel/percept/internal/constants"
	"github.com/nvandessel/percept/internal/graph"
	"github.com/nvandessel/percept/internal/models"
)

// ErrEmptyInput is returned when an aggregate is requested over zero inputs.
var ErrEmptyInput = errors.New("input must not be empty")

// Harness drives training and evaluation over a perception graph.
type Harness struct {
	graph  *graph.PerceptionGraph
	logger *slog.Logger

	// Query parameters used during Evaluate.
	Threshold float64
	Limit     int
}

// NewHarness creates a harness over the given graph.
func NewHarness(g *graph.PerceptionGraph, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harness{
		graph:     g,
		logger:    logger,
		Threshold: constants.DefaultQueryThreshold,
		Limit:     constants.DefaultQueryLimit,
	}
}

// ItemResult records the outcome of training a single item.
type ItemResult struct {
	ID         string   `json:"id"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// TrainReport summarizes a training run.
type TrainReport struct {
	Trained int          `json:"trained"`
	Items   []ItemResult `json:"items"`
}

// UnresolvedCount returns the total number of skipped relations.
func (r *TrainReport) UnresolvedCount() int {
	n := 0
	for _, item := range r.Items {
		n += len(item.Unresolved)
	}
	return n
}

// Train creates one perception per item, strictly in input order.
// The first hard error aborts the batch; the returned report covers the
// items trained before the failure. Relations whose target has not been
// created yet are not errors: they are recorded per item as unresolved.
func (h *Harness) Train(ctx context.Context, items []models.TrainingItem) (*TrainReport, error) {
	report := &TrainReport{Items: make([]ItemResult, 0, len(items))}

	for _, item := range items {
		relations := make([]graph.Relation, 0, len(item.Relations))
		for _, rel := range item.Relations {
			relations = append(relations, graph.Relation{Target: rel.Target, Weight: rel.Weight})
		}

		unresolved, err := h.graph.CreatePerception(ctx, item.ID, item.Embedding, relations)
		if err != nil {
			return report, fmt.Errorf("train item %s: %w", item.ID, err)
		}

		report.Trained++
		report.Items = append(report.Items, ItemResult{ID: item.ID, Unresolved: unresolved})
	}

	h.logger.Info("training complete",
		"trained", report.Trained, "unresolved_relations", report.UnresolvedCount())
	return report, nil
}

// Backfill retries relations that Train skipped because their target had
// not been created yet. Targets that are still missing stay unresolved and
// are returned. Weights are looked up from the original items.
func (h *Harness) Backfill(ctx context.Context, items []models.TrainingItem, report *TrainReport) ([]string, error) {
	weights := make(map[string]map[string]float64, len(items))
	for _, item := range items {
		m := make(map[string]float64, len(item.Relations))
		for _, rel := range item.Relations {
			m[rel.Target] = rel.Weight
		}
		weights[item.ID] = m
	}

	var stillMissing []string
	for i, item := range report.Items {
		if len(item.Unresolved) == 0 {
			continue
		}

		var remaining []string
		for _, target := range item.Unresolved {
			rels := []graph.Relation{{Target: target, Weight: weights[item.ID][target]}}
			unresolved, err := h.graph.AddRelations(ctx, item.ID, rels)
			if err != nil {
				return stillMissing, fmt.Errorf("backfill %s->%s: %w", item.ID, target, err)
			}
			remaining = append(remaining, unresolved...)
		}
		report.Items[i].Unresolved = remaining
		stillMissing = append(stillMissing, remaining...)
	}

	if len(stillMissing) > 0 {
		h.logger.Warn("backfill left relations unresolved", "targets", stillMissing)
	}
	return stillMissing, nil
}

// QueryResult records the outcome of one evaluation query.
type QueryResult struct {
	Name     string  `json:"name,omitempty"`
	TopID    string  `json:"top_id,omitempty"`
	Accuracy float64 `json:"accuracy"`
}

// EvalReport summarizes an evaluation run.
type EvalReport struct {
	Accuracy float64       `json:"accuracy"`
	Queries  []QueryResult `json:"queries"`
}

// Evaluate scores each query with binary rank-0 accuracy: 1.0 when the
// top-ranked match is one of the query's expected IDs, 0.0 otherwise
// (including when nothing clears the threshold). Returns the arithmetic
// mean over all queries. An empty query list is ErrEmptyInput, never NaN.
func (h *Harness) Evaluate(ctx context.Context, queries []models.EvalQuery) (*EvalReport, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("evaluate: %w", ErrEmptyInput)
	}

	report := &EvalReport{Queries: make([]QueryResult, 0, len(queries))}
	total := 0.0

	for _, q := range queries {
		matches, err := h.graph.QuerySimilar(ctx, q.Embedding, h.Threshold, h.Limit)
		if err != nil {
			return nil, fmt.Errorf("evaluate query %s: %w", q.Name, err)
		}

		result := QueryResult{Name: q.Name}
		if len(matches) > 0 {
			result.TopID = matches[0].ID
			for _, want := range q.ExpectedIDs {
				if matches[0].ID == want {
					result.Accuracy = 1.0
					break
				}
			}
		}

		total += result.Accuracy
		report.Queries = append(report.Queries, result)
		h.logger.Debug("evaluated query",
			"name", q.Name, "top", result.TopID, "accuracy", result.Accuracy)
	}

	report.Accuracy = total / float64(len(queries))
	return report, nil
}
