// Package mcp provides an MCP (Model Context Protocol) server for percept.
package mcp

// RelationSpec describes a weighted relation from a new perception to an
// existing one.
type RelationSpec struct {
	Target string  `json:"target" jsonschema:"description=ID of the target perception,required"`
	Weight float64 `json:"weight" jsonschema:"description=Relation weight (0.0-1.0)"`
}

// StoreInput defines the input for the percept_store tool.
type StoreInput struct {
	ID        string         `json:"id" jsonschema:"description=Unique perception ID,required"`
	Embedding []float32      `json:"embedding" jsonschema:"description=Embedding vector for the perception,required"`
	Relations []RelationSpec `json:"relations,omitempty" jsonschema:"description=Weighted relations to existing perceptions"`
}

// StoreOutput defines the output for the percept_store tool.
type StoreOutput struct {
	ID         string   `json:"id" jsonschema:"description=ID of the stored perception"`
	Unresolved []string `json:"unresolved,omitempty" jsonschema:"description=Relation targets that do not exist yet"`
	Message    string   `json:"message" jsonschema:"description=Human-readable result message"`
}

// QueryInput defines the input for the percept_query tool.
// Threshold is a pointer so an explicit 0 is distinguishable from omitted.
type QueryInput struct {
	Embedding []float32 `json:"embedding" jsonschema:"description=Query embedding vector,required"`
	Threshold *float64  `json:"threshold,omitempty" jsonschema:"description=Minimum similarity (exclusive); omit for the default 0.5"`
	Limit     int       `json:"limit,omitempty" jsonschema:"description=Maximum number of matches (default 5)"`
}

// QueryMatch is a single similarity match.
type QueryMatch struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// QueryOutput defines the output for the percept_query tool.
type QueryOutput struct {
	Matches []QueryMatch `json:"matches" jsonschema:"description=Matches ranked by similarity descending"`
	Count   int          `json:"count" jsonschema:"description=Number of matches"`
}

// SpreadInput defines the input for the percept_spread tool.
type SpreadInput struct {
	Seeds []string `json:"seeds" jsonschema:"description=Perception IDs to seed spreading activation from,required"`
}

// SpreadResult is a single activated perception.
type SpreadResult struct {
	ID         string  `json:"id"`
	Activation float64 `json:"activation"`
	Distance   int     `json:"distance"`
	SeedSource string  `json:"seed_source"`
}

// SpreadOutput defines the output for the percept_spread tool.
type SpreadOutput struct {
	Results []SpreadResult `json:"results" jsonschema:"description=Activated perceptions ranked by activation"`
	Count   int            `json:"count" jsonschema:"description=Number of activated perceptions"`
}

// StatsInput defines the input for the percept_stats tool.
type StatsInput struct{}

// StatsOutput defines the output for the percept_stats tool.
type StatsOutput struct {
	Nodes          int     `json:"nodes" jsonschema:"description=Total perception count"`
	Edges          int     `json:"edges" jsonschema:"description=Total relation count"`
	MeanActivation float64 `json:"mean_activation" jsonschema:"description=Average activation count across perceptions"`
}
