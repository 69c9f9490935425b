package store

import "errors"

// Sentinel errors returned by GraphStore implementations. Callers match them
// with errors.Is; implementations wrap them with fmt.Errorf("%w") to add
// identifying detail.
var (
	// ErrDuplicateID is returned when adding a node whose ID already exists.
	ErrDuplicateID = errors.New("perception id already exists")

	// ErrMissingEndpoint is returned when adding an edge whose source or
	// target node does not exist.
	ErrMissingEndpoint = errors.New("relation endpoint does not exist")

	// ErrDimensionMismatch is returned when a query vector's length differs
	// from a stored embedding's length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyEmbedding is returned when a node or query carries an empty
	// embedding vector.
	ErrEmptyEmbedding = errors.New("embedding must not be empty")

	// ErrStoreUnavailable wraps failures to open or reach the backing store.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)
