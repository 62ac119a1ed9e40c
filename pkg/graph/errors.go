package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for the graph store.
var (
	// ErrAssetNotFound is returned when a requested asset id is not part of
	// the snapshot. Callers surface it rather than retrying.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrDanglingEdge marks a relationship whose source or target is missing.
	// It is recorded in snapshot metadata and never returned from analysis.
	ErrDanglingEdge = errors.New("dangling edge")

	// ErrInvalidDocument is returned when an ingestion document fails validation.
	ErrInvalidDocument = errors.New("invalid graph document")
)

// AssetNotFoundError carries the missing id.
type AssetNotFoundError struct {
	ID string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrAssetNotFound, e.ID)
}

// Is makes errors.Is(err, ErrAssetNotFound) hold.
func (e *AssetNotFoundError) Is(target error) bool {
	return target == ErrAssetNotFound
}

// DanglingEdge records a skipped relationship.
type DanglingEdge struct {
	Relationship
	Missing string
}

func (d DanglingEdge) Error() string {
	return fmt.Sprintf("%s: %s -[%s]-> %s (missing %s)", ErrDanglingEdge, d.Source, d.Type, d.Target, d.Missing)
}

func (d DanglingEdge) Unwrap() error { return ErrDanglingEdge }
