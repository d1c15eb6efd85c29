package dispatch

import (
	"fmt"

	"github.com/rs/zerolog"
)

// State is where a request stands in the conversation with the requester.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateAwaitingComponent
	StateAwaitingPlatform
	StateAwaitingView
	StateAnalyzing
	StateRendering
	StateDone
	StateNotFound
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateResolving:         "resolving",
	StateAwaitingComponent: "awaiting_component",
	StateAwaitingPlatform:  "awaiting_platform",
	StateAwaitingView:      "awaiting_view",
	StateAnalyzing:         "analyzing",
	StateRendering:         "rendering",
	StateDone:              "done",
	StateNotFound:          "not_found",
	StateFailed:            "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var transitions = map[State][]State{
	StateIdle:              {StateResolving},
	StateResolving:         {StateAwaitingComponent, StateNotFound, StateFailed},
	StateAwaitingComponent: {StateAwaitingPlatform, StateAwaitingView},
	StateAwaitingPlatform:  {StateAwaitingView},
	StateAwaitingView:      {StateAnalyzing},
	StateAnalyzing:         {StateRendering, StateFailed},
	StateRendering:         {StateDone, StateFailed},
}

// CanTransition reports whether to may follow from.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal states end a flow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateNotFound || s == StateFailed
}

// flow tracks one request through the state machine. Each webhook resumes a flow at the
// state implied by the action that arrived.
type flow struct {
	state State
	log   zerolog.Logger
}

func newFlow(at State, logger zerolog.Logger) *flow {
	return &flow{state: at, log: logger}
}

func (f *flow) to(next State) error {
	if !CanTransition(f.state, next) {
		return fmt.Errorf("invalid transition %s -> %s", f.state, next)
	}
	f.log.Debug().Str("where", "dispatch:flow").Stringer("from", f.state).Stringer("to", next).Msg("transition")
	f.state = next
	return nil
}

// must moves to next, logging instead of failing on an unexpected edge.
func (f *flow) must(next State) {
	if err := f.to(next); err != nil {
		f.log.Error().Err(err).Str("where", "dispatch:flow").Msg("state machine violated")
		f.state = next
	}
}
