package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/percept/internal/graph"
	"github.com/nvandessel/percept/internal/ratelimit"
)

// registerTools registers all percept MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "percept_store",
		Description: "Store a new perception with an embedding vector and optional weighted relations to existing perceptions",
	}, s.handleStore)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "percept_query",
		Description: "Find perceptions similar to a query embedding (raw dot product); matches above the threshold get their activation count incremented",
	}, s.handleQuery)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "percept_spread",
		Description: "Run spreading activation from seed perceptions across weighted relations",
	}, s.handleSpread)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "percept_stats",
		Description: "Get graph statistics: perception count, relation count, mean activation",
	}, s.handleStats)

	return nil
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         "percept://graph/stats",
		Name:        "percept-graph-stats",
		Description: "Current perception graph statistics.",
		MIMEType:    "text/markdown",
	}, s.handleStatsResource)

	return nil
}

// handleStatsResource returns graph statistics formatted for context injection.
func (s *Server) handleStatsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	stats, err := s.graph.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get graph stats: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Perception Graph\n\n")
	sb.WriteString(fmt.Sprintf("- Perceptions: %d\n", stats.Nodes))
	sb.WriteString(fmt.Sprintf("- Relations: %d\n", stats.Edges))
	sb.WriteString(fmt.Sprintf("- Mean activation: %.2f\n", stats.MeanActivation))

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      "percept://graph/stats",
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// handleStore creates a new perception from the given embedding and relations.
func (s *Server) handleStore(ctx context.Context, req *sdk.CallToolRequest, args StoreInput) (_ *sdk.CallToolResult, _ StoreOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("percept_store", start, retErr, sanitizeToolParams(map[string]interface{}{
			"id": args.ID, "embedding": args.Embedding, "relations": len(args.Relations),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "percept_store"); err != nil {
		return nil, StoreOutput{}, err
	}

	if args.ID == "" {
		return nil, StoreOutput{}, fmt.Errorf("'id' parameter is required")
	}
	if len(args.Embedding) == 0 {
		return nil, StoreOutput{}, fmt.Errorf("'embedding' parameter is required")
	}

	relations := make([]graph.Relation, 0, len(args.Relations))
	for _, rel := range args.Relations {
		relations = append(relations, graph.Relation{Target: rel.Target, Weight: rel.Weight})
	}

	unresolved, err := s.graph.CreatePerception(ctx, args.ID, args.Embedding, relations)
	if err != nil {
		return nil, StoreOutput{}, fmt.Errorf("failed to store perception: %w", err)
	}

	msg := fmt.Sprintf("Stored perception %s (%d dimensions)", args.ID, len(args.Embedding))
	if len(unresolved) > 0 {
		msg += fmt.Sprintf("; %d relation target(s) not found: %s",
			len(unresolved), strings.Join(unresolved, ", "))
	}

	return nil, StoreOutput{
		ID:         args.ID,
		Unresolved: unresolved,
		Message:    msg,
	}, nil
}

// handleQuery ranks stored perceptions against a query embedding.
func (s *Server) handleQuery(ctx context.Context, req *sdk.CallToolRequest, args QueryInput) (_ *sdk.CallToolResult, _ QueryOutput, retErr error) {
	threshold := -1.0 // omitted: the graph applies its default
	if args.Threshold != nil {
		threshold = *args.Threshold
	}

	start := time.Now()
	defer func() {
		s.auditTool("percept_query", start, retErr, sanitizeToolParams(map[string]interface{}{
			"embedding": args.Embedding, "threshold": threshold, "limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "percept_query"); err != nil {
		return nil, QueryOutput{}, err
	}

	if len(args.Embedding) == 0 {
		return nil, QueryOutput{}, fmt.Errorf("'embedding' parameter is required")
	}

	matches, err := s.graph.QuerySimilar(ctx, args.Embedding, threshold, args.Limit)
	if err != nil {
		return nil, QueryOutput{}, fmt.Errorf("query failed: %w", err)
	}

	out := QueryOutput{Matches: make([]QueryMatch, 0, len(matches)), Count: len(matches)}
	for _, m := range matches {
		out.Matches = append(out.Matches, QueryMatch{ID: m.ID, Similarity: m.Similarity})
	}
	return nil, out, nil
}

// handleSpread runs spreading activation from the given seeds.
func (s *Server) handleSpread(ctx context.Context, req *sdk.CallToolRequest, args SpreadInput) (_ *sdk.CallToolResult, _ SpreadOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("percept_spread", start, retErr, sanitizeToolParams(map[string]interface{}{
			"seeds": args.Seeds,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "percept_spread"); err != nil {
		return nil, SpreadOutput{}, err
	}

	if len(args.Seeds) == 0 {
		return nil, SpreadOutput{}, fmt.Errorf("'seeds' parameter is required")
	}

	results, err := s.graph.Spread(ctx, args.Seeds)
	if err != nil {
		return nil, SpreadOutput{}, fmt.Errorf("spread failed: %w", err)
	}

	out := SpreadOutput{Results: make([]SpreadResult, 0, len(results)), Count: len(results)}
	for _, r := range results {
		out.Results = append(out.Results, SpreadResult{
			ID:         r.PerceptionID,
			Activation: r.Activation,
			Distance:   r.Distance,
			SeedSource: r.SeedSource,
		})
	}
	return nil, out, nil
}

// handleStats returns graph statistics.
func (s *Server) handleStats(ctx context.Context, req *sdk.CallToolRequest, args StatsInput) (_ *sdk.CallToolResult, _ StatsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("percept_stats", start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "percept_stats"); err != nil {
		return nil, StatsOutput{}, err
	}

	stats, err := s.graph.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, fmt.Errorf("failed to get stats: %w", err)
	}

	return nil, StatsOutput{
		Nodes:          stats.Nodes,
		Edges:          stats.Edges,
		MeanActivation: stats.MeanActivation,
	}, nil
}
