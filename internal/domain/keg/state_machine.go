package keg

import (
	"fmt"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
)

// State is a keg lifecycle state
type State string

const (
	StateEmpty      State = "EMPTY"
	StateDirty      State = "DIRTY"
	StateClean      State = "CLEAN"
	StateFilling    State = "FILLING"
	StateFull       State = "FULL"
	StateTapped     State = "TAPPED"
	StateInClient   State = "IN_CLIENT"
	StateInTransit  State = "IN_TRANSIT"
	StateQuarantine State = "QUARANTINE"
	StateRetired    State = "RETIRED"
)

// String returns the string representation
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is one of the defined lifecycle states
func (s State) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal returns true when no transition leaves the state
func (s State) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// AllStates returns every lifecycle state
func AllStates() []State {
	return []State{
		StateEmpty, StateDirty, StateClean, StateFilling, StateFull,
		StateTapped, StateInClient, StateInTransit, StateQuarantine, StateRetired,
	}
}

// validTransitions is the keg lifecycle graph, kept as plain data so the rule
// set stays auditable and testable. The quality gate falls out of the table:
// FILLING is reachable only from CLEAN, so a keg can never be filled without
// passing through a wash.
var validTransitions = map[State][]State{
	StateEmpty:      {StateDirty, StateRetired},
	StateDirty:      {StateClean, StateRetired},
	StateClean:      {StateFilling, StateQuarantine, StateRetired},
	StateFilling:    {StateFull, StateQuarantine},
	StateFull:       {StateInTransit, StateTapped, StateQuarantine},
	StateTapped:     {StateEmpty, StateQuarantine},
	StateInTransit:  {StateInClient, StateFull},
	StateInClient:   {StateInTransit, StateEmpty},
	StateQuarantine: {StateClean, StateRetired},
	StateRetired:    {},
}

// CanTransition reports whether from -> to is a legal lifecycle move
func CanTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidNextStates returns the legal target states from the given state
func ValidNextStates(from State) []State {
	targets := validTransitions[from]
	out := make([]State, len(targets))
	copy(out, targets)
	return out
}

// NewInvalidTransitionError builds the error for an illegal lifecycle move,
// naming both states so the caller can diagnose without re-querying
func NewInvalidTransitionError(from, to State) *shared.DomainError {
	return shared.NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("Cannot transition keg from %s to %s; valid targets: %v",
			from, to, validTransitions[from]))
}
