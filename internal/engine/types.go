
package engine

import "time"

// PriceRecord is the resolved market snapshot for one item. Immutable once
// constructed.
type PriceRecord struct {
	ID           string
	Name         string
	Price        float64
	AveragePrice float64
	LastUpload   string
	Listings     int
}

// GroupResult is the outcome of one dispatch-group task. A non-nil Err
// marks the whole group as failed; its records are not aggregated.
type GroupResult struct {
	Records []PriceRecord
	Err     error
}

// RunSnapshot is the published result of one completed run, sorted by
// price descending. It is replaced wholesale; never mutated in place.
type RunSnapshot struct {
	Prices    []PriceRecord
	UpdatedAt time.Time
}

type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateDispatching State = "dispatching"
	StateResolving   State = "resolving"
	StateAggregating State = "aggregating"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// Busy reports whether a run is in progress in this state.
func (s State) Busy() bool {
	switch s {
	case StateLoading, StateDispatching, StateResolving, StateAggregating:
		return true
	default:
		return false
	}
}

// Status is the externally visible engine state. Err is set only in
// StateFailed and carries a human-readable cause.
type Status struct {
	State State
	Err   string
}
