// Package session implements the per-connection Session and WorkflowState
// value objects (spec §3). A session is created on the first MCP
// "initialize" and destroyed on "shutdown" or stream end; it is owned
// exclusively by the dispatcher loop and needs no synchronization (spec
// §5).
package session

import (
	"github.com/google/uuid"

	"github.com/constraintmcp/constraint-mcp/internal/composition"
	"github.com/constraintmcp/constraint-mcp/internal/constraint"
)

// WorkflowState is the user-defined, live "phase" of a session, e.g.
// red/green/refactor in a TDD pack or domain/application/... in a layered
// pack.
type WorkflowState struct {
	Name        string
	Description string
}

// DefaultWorkflowState is the walking-skeleton default state (spec §4.2).
var DefaultWorkflowState = WorkflowState{Name: "red", Description: "initial state before any test exists"}

// Session tracks one MCP connection's interaction counter, current
// workflow phase, and per-composite composition progression (spec §3's
// "current workflow state" and "per-session composition state").
type Session struct {
	ID                 string
	InteractionCounter int
	WorkflowState      WorkflowState
	// CompositionState holds each active composite constraint's
	// progression, keyed by the composite's id, so a Sequential,
	// Progressive, or Layered composition picks up where it left off on
	// the session's next tool call.
	CompositionState map[constraint.Id]composition.State
}

// New creates a session with a fresh id and the default workflow state.
func New() *Session {
	return &Session{
		ID:               uuid.NewString(),
		WorkflowState:    DefaultWorkflowState,
		CompositionState: make(map[constraint.Id]composition.State),
	}
}

// NextInteraction increments and returns the 1-indexed interaction number
// for this session (spec §4.2: "n (1-indexed after increment)").
func (s *Session) NextInteraction() int {
	s.InteractionCounter++
	return s.InteractionCounter
}

// SetWorkflowState transitions the session to a new phase.
func (s *Session) SetWorkflowState(state WorkflowState) {
	s.WorkflowState = state
}
