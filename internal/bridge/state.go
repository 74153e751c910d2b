// Package bridge connects long-running interactive commands to a UI that only
// looks at shared state once per frame. A command runs on its own goroutine and
// parks inside Choose until the UI answers through State.Answer.
package bridge

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Kind is the variant of the command execution state.
type Kind int

const (
	Idle Kind = iota
	Running
	AwaitingChoice
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case AwaitingChoice:
		return "awaiting-choice"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrBusy is returned when a command is started while another is active.
	ErrBusy = errors.New("command already running")
	// ErrNoPendingChoice is returned by Answer when nothing is waiting for an answer,
	// or the pending choice has already been answered.
	ErrNoPendingChoice = errors.New("no pending choice")
	// ErrNotAllowed is returned by Answer for a rune outside the offered set.
	ErrNotAllowed = errors.New("choice not allowed")
)

// TransitionError reports a state change the machine does not permit. It is
// raised with panic: it means the single-flight invariant is already broken.
type TransitionError struct {
	From Kind
	To   Kind
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("bridge: invalid state transition %s -> %s", e.From, e.To)
}

// Snapshot is a copy of the state safe to use outside the lock.
type Snapshot struct {
	Kind    Kind
	Label   string // label of the running command
	RunID   string
	Prompt  string
	Allowed []rune
	// Answered is set between the UI delivering an answer and the command
	// resuming. The UI should stop offering the choice.
	Answered bool
}

// Pending reports whether the UI should offer a choice this frame.
func (s Snapshot) Pending() bool {
	return s.Kind == AwaitingChoice && !s.Answered
}

// pendingChoice is the one-shot rendezvous for a single Choose call.
type pendingChoice struct {
	prompt  string
	allowed []rune
	ch      chan rune // capacity 1, written or closed exactly once
	done    bool
}

// deliver hands r to the waiting command. Caller holds State.mu.
func (p *pendingChoice) deliver(r rune) {
	p.done = true
	p.ch <- r // never blocks: capacity 1 and done guards a second send
}

// abandon closes the channel without a value. Caller holds State.mu.
func (p *pendingChoice) abandon() {
	p.done = true
	close(p.ch)
}

// State is the single shared command execution state.
// All transitions happen under mu; nothing blocks while holding it.
type State struct {
	mu     sync.Mutex
	kind   Kind
	label  string
	runID  string
	choice *pendingChoice
}

// NewState returns a state in Idle.
func NewState() *State {
	return &State{kind: Idle}
}

// Snapshot returns the current state by value.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Kind: s.kind, Label: s.label, RunID: s.runID}
	if s.choice != nil {
		snap.Prompt = s.choice.prompt
		snap.Allowed = slices.Clone(s.choice.allowed)
		snap.Answered = s.choice.done
	}
	return snap
}

// Kind returns the current variant.
func (s *State) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Answer forwards an operator selection to the waiting command. It never blocks.
func (s *State) Answer(r rune) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kind != AwaitingChoice || s.choice == nil || s.choice.done {
		return ErrNoPendingChoice
	}
	if !slices.Contains(s.choice.allowed, r) {
		return fmt.Errorf("%w: %q", ErrNotAllowed, r)
	}
	s.choice.deliver(r)
	return nil
}

// begin moves Idle -> Running. A non-idle state is a recoverable busy rejection.
func (s *State) begin(label, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kind != Idle {
		return fmt.Errorf("%w: %s", ErrBusy, s.label)
	}
	s.kind = Running
	s.label = label
	s.runID = runID
	return nil
}

// finish moves Running -> Idle.
func (s *State) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kind != Running {
		panic(&TransitionError{From: s.kind, To: Idle})
	}
	s.kind = Idle
	s.label = ""
	s.runID = ""
}

// await moves Running -> AwaitingChoice and returns the new rendezvous.
// The lock is released on return so the UI can observe the choice.
func (s *State) await(prompt string, allowed []rune) *pendingChoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kind != Running {
		panic(&TransitionError{From: s.kind, To: AwaitingChoice})
	}
	p := &pendingChoice{
		prompt:  prompt,
		allowed: slices.Clone(allowed),
		ch:      make(chan rune, 1),
	}
	s.kind = AwaitingChoice
	s.choice = p
	return p
}

// resume moves AwaitingChoice -> Running once the command has its answer
// (or has given up waiting). p is marked consumed so late answers are rejected.
func (s *State) resume(p *pendingChoice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kind != AwaitingChoice || s.choice != p {
		panic(&TransitionError{From: s.kind, To: Running})
	}
	p.done = true
	s.kind = Running
	s.choice = nil
}

// abandon closes a pending, unanswered choice so the waiting command fails
// instead of parking forever. Reports whether a choice was abandoned.
func (s *State) abandon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.choice == nil || s.choice.done {
		return false
	}
	s.choice.abandon()
	return true
}
