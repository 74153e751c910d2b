// Package reconcile walks the operator through discrepancies one at a time.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"musync/internal/cui"
)

// Action is one way of resolving an item.
type Action struct {
	Choice rune
	Label  string
	Apply  func(ctx context.Context) error
}

// Item is a single discrepancy.
type Item struct {
	Subject string   // song path
	Problem string   // short description, e.g. "only on PC"
	Details []string // extra context lines logged before the question
	Actions []Action // skip and abort are always offered in addition
}

// Options configures Resolve.
type Options struct {
	// Confirm asks "proceed?" once before the first item.
	Confirm bool
}

// Outcome tallies what Resolve did.
type Outcome struct {
	Total   int
	Applied int
	Skipped int
	Failed  int
	Aborted bool
}

// Add accumulates o2 into o.
func (o *Outcome) Add(o2 Outcome) {
	o.Total += o2.Total
	o.Applied += o2.Applied
	o.Skipped += o2.Skipped
	o.Failed += o2.Failed
	o.Aborted = o.Aborted || o2.Aborted
}

func (o Outcome) String() string {
	s := fmt.Sprintf("%d found, %d applied, %d skipped", o.Total, o.Applied, o.Skipped)
	if o.Failed > 0 {
		s += fmt.Sprintf(", %d failed", o.Failed)
	}
	if o.Aborted {
		s += ", aborted"
	}
	return s
}

// Resolve reports the discrepancy count and then asks about each item in turn.
// Answering abort ends the loop with Outcome.Aborted set and a nil error;
// remaining items are never asked about. A failing action is reported on the
// console and counted, and the loop continues. Errors from Choose are returned.
func Resolve(ctx context.Context, c cui.Cui, title string, items []Item, opts Options) (Outcome, error) {
	out := Outcome{Total: len(items)}
	c.Logf("%s: %d discrepancies", title, len(items))
	if len(items) == 0 {
		return out, nil
	}

	if opts.Confirm {
		ok, err := cui.Confirm(ctx, c, fmt.Sprintf("Resolve %d discrepancies?", len(items)))
		if err != nil {
			return out, err
		}
		if !ok {
			c.Logf("%s: aborted", title)
			out.Aborted = true
			return out, nil
		}
	}

	for i, item := range items {
		c.Logf("[%d/%d] %s: %s", i+1, len(items), item.Problem, item.Subject)
		for _, line := range item.Details {
			c.Logf("    %s", line)
		}

		allowed := make([]rune, 0, len(item.Actions)+2)
		for _, a := range item.Actions {
			allowed = append(allowed, a.Choice)
			c.Logf("    %c: %s", a.Choice, a.Label)
		}
		allowed = append(allowed, cui.ChoiceSkip, cui.ChoiceAbort)

		r, err := c.Choose(ctx, allowed, prompt(item))
		if err != nil {
			return out, err
		}

		switch r {
		case cui.ChoiceSkip:
			out.Skipped++
		case cui.ChoiceAbort:
			c.Logf("%s: aborted", title)
			out.Aborted = true
			return out, nil
		default:
			action, ok := find(item.Actions, r)
			if !ok {
				return out, fmt.Errorf("unexpected choice %q for %s", r, item.Subject)
			}
			if err := action.Apply(ctx); err != nil {
				c.Errorf("%s: %v", item.Subject, err)
				out.Failed++
				continue
			}
			out.Applied++
		}
	}
	return out, nil
}

// prompt lists the label of every action next to its key.
func prompt(item Item) string {
	labels := make([]string, len(item.Actions))
	for i, a := range item.Actions {
		labels[i] = fmt.Sprintf("%c: %s", a.Choice, a.Label)
	}
	return fmt.Sprintf("%s: %s (%s)", item.Problem, item.Subject, strings.Join(labels, ", "))
}

func find(actions []Action, r rune) (Action, bool) {
	for _, a := range actions {
		if a.Choice == r {
			return a, true
		}
	}
	return Action{}, false
}
