// Package cuitest provides a scripted Cui for exercising commands without a UI.
package cuitest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"musync/internal/cui"
)

// Prompt records one Choose call.
type Prompt struct {
	Allowed []rune
	Text    string
}

// Line records one Logf/Errorf call.
type Line struct {
	Error bool
	Text  string
}

// Scripted answers Choose calls from a fixed queue of runes. When the queue is
// exhausted, Choose returns ErrScriptExhausted.
type Scripted struct {
	mu      sync.Mutex
	answers []rune
	prompts []Prompt
	lines   []Line
}

// ErrScriptExhausted is returned when Choose is called with no answers left.
var ErrScriptExhausted = errors.New("cuitest: no scripted answers left")

// New creates a Scripted Cui with the given answers.
func New(answers ...rune) *Scripted {
	return &Scripted{answers: answers}
}

var _ cui.Cui = (*Scripted)(nil)

func (s *Scripted) Logf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, Line{Text: fmt.Sprintf(format, args...)})
}

func (s *Scripted) Errorf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, Line{Error: true, Text: fmt.Sprintf(format, args...)})
}

func (s *Scripted) Choose(ctx context.Context, allowed []rune, prompt string) (rune, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, Prompt{Allowed: append([]rune(nil), allowed...), Text: prompt})
	if len(s.answers) == 0 {
		return 0, ErrScriptExhausted
	}
	r := s.answers[0]
	s.answers = s.answers[1:]
	if !cui.Allows(allowed, r) {
		return 0, fmt.Errorf("cuitest: scripted answer %q not in %q", r, string(allowed))
	}
	return r, nil
}

// Prompts returns the recorded Choose calls.
func (s *Scripted) Prompts() []Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Prompt(nil), s.prompts...)
}

// Lines returns the recorded output lines.
func (s *Scripted) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

// Errors returns the text of every error line.
func (s *Scripted) Errors() []string {
	var out []string
	for _, l := range s.Lines() {
		if l.Error {
			out = append(out, l.Text)
		}
	}
	return out
}

// Remaining returns how many scripted answers were not consumed.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
