package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/percept/internal/config"
	"github.com/nvandessel/percept/internal/embed"
	"github.com/nvandessel/percept/internal/graph"
	"github.com/nvandessel/percept/internal/logging"
	"github.com/nvandessel/percept/internal/setup"
	"github.com/nvandessel/percept/internal/store"
)

// openGraph builds a PerceptionGraph from the loaded config and the --root
// flag. The caller owns the returned graph and must Close it on every path.
func openGraph(cmd *cobra.Command) (*graph.PerceptionGraph, *config.PerceptConfig, error) {
	root, _ := cmd.Flags().GetString("root")

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	var graphStore store.GraphStore
	switch cfg.Store.Backend {
	case "memory":
		graphStore = store.NewInMemoryGraphStore()
	default:
		graphStore, err = store.NewSQLiteGraphStore(root)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open graph store: %w", err)
		}
	}

	logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
	queryLog := logging.NewQueryLogger(store.LocalPerceptPath(root), cfg.Logging.Level)

	g := graph.New(graphStore,
		graph.WithLogger(logger),
		graph.WithQueryLogger(queryLog),
	)
	return g, cfg, nil
}

// parseVector parses a comma-separated float list ("0.8,0.2,0.9").
func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", part, err)
		}
		vec = append(vec, float32(f))
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("vector must contain at least one component")
	}
	return vec, nil
}

// parseRelations parses repeated "target:weight" specs. Weight defaults to
// 1.0 when omitted.
func parseRelations(specs []string) ([]graph.Relation, error) {
	relations := make([]graph.Relation, 0, len(specs))
	for _, spec := range specs {
		target := spec
		weight := 1.0
		if idx := strings.LastIndex(spec, ":"); idx >= 0 {
			target = spec[:idx]
			w, err := strconv.ParseFloat(spec[idx+1:], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid relation weight in %q: %w", spec, err)
			}
			weight = w
		}
		if target == "" {
			return nil, fmt.Errorf("relation target is required in %q", spec)
		}
		relations = append(relations, graph.Relation{Target: target, Weight: weight})
	}
	return relations, nil
}

// resolveEmbedding turns either an explicit --vector or a --text flag into
// an embedding. Text requires a local embedding model (see 'percept setup').
func resolveEmbedding(ctx context.Context, cfg *config.PerceptConfig, vectorStr, text string) ([]float32, error) {
	if vectorStr != "" && text != "" {
		return nil, fmt.Errorf("--vector and --text are mutually exclusive")
	}
	if vectorStr != "" {
		return parseVector(vectorStr)
	}
	if text == "" {
		return nil, fmt.Errorf("either --vector or --text is required")
	}

	modelPath := cfg.Embedding.ModelPath
	libPath := ""
	if detected := setup.DetectInstalled(setup.DefaultPerceptDir()); detected.LibPath != "" {
		libPath = detected.LibPath
		if modelPath == "" {
			modelPath = detected.ModelPath
		}
	}
	if modelPath == "" {
		return nil, fmt.Errorf("no embedding model available; run 'percept setup' or pass --vector")
	}

	embedder := embed.NewLocalEmbedder(embed.Config{
		LibPath:     libPath,
		ModelPath:   modelPath,
		GPULayers:   cfg.Embedding.GPULayers,
		ContextSize: cfg.Embedding.ContextSize,
	})
	defer embedder.Close()

	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	return vec, nil
}
