// Package cui defines the narrow surface a command uses to talk to the operator:
// console output and single-character choices.
package cui

import (
	"context"
	"slices"
)

// Cui is handed to every command when it runs. Implementations must be safe to
// call from the command's goroutine while the UI keeps rendering.
type Cui interface {
	// Logf appends a log line to the console.
	Logf(format string, args ...any)
	// Errorf appends an error line to the console.
	Errorf(format string, args ...any)
	// Choose blocks until the operator picks one of allowed and returns it.
	Choose(ctx context.Context, allowed []rune, prompt string) (rune, error)
}

// Common choice runes used by the reconciliation commands.
const (
	ChoiceApplyA rune = '1'
	ChoiceApplyB rune = '2'
	ChoiceSkip   rune = '0'
	ChoiceAbort  rune = '-'
	ChoiceYes    rune = 'y'
	ChoiceNo     rune = 'n'
)

// YesNo is the allowed set for confirmations.
var YesNo = []rune{ChoiceYes, ChoiceNo}

// Confirm asks a yes/no question.
func Confirm(ctx context.Context, c Cui, prompt string) (bool, error) {
	r, err := c.Choose(ctx, YesNo, prompt)
	if err != nil {
		return false, err
	}
	return r == ChoiceYes, nil
}

// Allows reports whether r is in allowed.
func Allows(allowed []rune, r rune) bool {
	return slices.Contains(allowed, r)
}
