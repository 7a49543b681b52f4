package session

import "fmt"

// State is a step of the session state machine.
type State string

const (
	StateInit                  State = "init"
	StateFetchingTree          State = "fetching_tree"
	StateStreamingFiles        State = "streaming_files"
	StateBuildingRelationships State = "building_relationships"
	StateComplete              State = "complete"
	StateFailed                State = "failed"
)

// Failed is reachable only before any file has been streamed.
var transitions = map[State][]State{
	StateInit:                  {StateFetchingTree, StateFailed},
	StateFetchingTree:          {StateStreamingFiles, StateFailed},
	StateStreamingFiles:        {StateBuildingRelationships},
	StateBuildingRelationships: {StateComplete},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

type machine struct {
	state State
}

// to panics on an illegal edge; every call site in Run is fixed.
func (m *machine) to(next State) {
	if !CanTransition(m.state, next) {
		panic(fmt.Sprintf("illegal session transition %s -> %s", m.state, next))
	}
	m.state = next
}
