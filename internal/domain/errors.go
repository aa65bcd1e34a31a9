package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyBatch is returned when a load is attempted with no records.
var ErrEmptyBatch = errors.New("empty batch")

// SchemaError indicates DDL could not be applied or verified. It is fatal:
// nothing below the schema layer may proceed against a partially-created
// warehouse.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// LoadError indicates a row batch could not be durably written even after
// the per-row fallback. The run is marked degraded but other stages may
// still proceed.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RefreshError indicates a Gold view failed to rebuild. Other views are
// still attempted.
type RefreshError struct {
	View string
	Err  error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh %s: %v", e.View, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
