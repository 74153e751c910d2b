package bridge

import (
	"context"
	"errors"
	"fmt"

	"musync/internal/console"
	"musync/internal/cui"
	"musync/internal/logging"
)

var (
	// ErrChoiceAbandoned is returned by Choose when the pending choice is torn
	// down before the operator answers.
	ErrChoiceAbandoned = errors.New("choice abandoned before an answer arrived")
	// ErrNoChoices is returned by Choose for an empty allowed set.
	ErrNoChoices = errors.New("choose: no allowed choices")
)

// Client is the Cui implementation handed to running commands. Output goes to
// the console; Choose publishes an AwaitingChoice state and parks the calling
// goroutine until the UI answers.
type Client struct {
	console *console.Console
	state   *State
}

var _ cui.Cui = (*Client)(nil)

// NewClient creates a client over the shared console and state.
func NewClient(c *console.Console, s *State) *Client {
	return &Client{console: c, state: s}
}

// Logf appends a log line.
func (c *Client) Logf(format string, args ...any) {
	c.console.Log(fmt.Sprintf(format, args...))
}

// Errorf appends an error line.
func (c *Client) Errorf(format string, args ...any) {
	c.console.Error(fmt.Sprintf(format, args...))
}

// Choose must only be called from the command goroutine the dispatcher started.
func (c *Client) Choose(ctx context.Context, allowed []rune, prompt string) (rune, error) {
	if len(allowed) == 0 {
		return 0, ErrNoChoices
	}

	p := c.state.await(prompt, allowed)
	logging.Debug("waiting for choice", "prompt", prompt, "allowed", string(allowed))

	// The state lock is not held here; the UI reads the choice on its next frame.
	var (
		r   rune
		ok  bool
		err error
	)
	select {
	case r, ok = <-p.ch:
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.state.resume(p)

	switch {
	case err != nil:
		return 0, fmt.Errorf("%w: %w", ErrChoiceAbandoned, err)
	case !ok:
		return 0, ErrChoiceAbandoned
	}
	return r, nil
}
