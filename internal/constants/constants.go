// Package constants provides named constants used throughout the percept codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Query defaults
const (
	// DefaultQueryThreshold is the minimum dot-product similarity a perception
	// must strictly exceed to be returned by a query.
	DefaultQueryThreshold = 0.5

	// DefaultQueryLimit is the maximum number of matches returned by a query.
	DefaultQueryLimit = 5
)

// Perception defaults
const (
	// InitialConfidence is the confidence assigned to every new perception.
	// The field is reserved: nothing in the core mutates it after creation.
	InitialConfidence = 0.5
)

// Spreading activation parameters. Energy seeded at one or more perceptions
// propagates over weighted relations, decaying per hop.
const (
	// DefaultSpreadSteps is the number of propagation iterations.
	DefaultSpreadSteps = 3

	// DefaultDecayFactor is the energy retention per hop.
	DefaultDecayFactor = 0.5

	// DefaultSpreadFactor is the fraction of a node's activation that flows
	// through each outgoing relation.
	DefaultSpreadFactor = 0.8

	// DefaultMinActivation is the threshold below which spread results are dropped.
	DefaultMinActivation = 0.01
)

// MCP tool rate limits, in requests per minute with an initial burst.
// Store and spread touch or walk the whole graph; query and stats are
// cheaper and get the looser budget.
const (
	GraphToolPerMinute = 30
	GraphToolBurst     = 5

	ReadToolPerMinute = 60
	ReadToolBurst     = 10
)
