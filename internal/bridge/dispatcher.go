package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"musync/internal/console"
	"musync/internal/cui"
	"musync/internal/logging"
)

// ErrClosed is returned by Start after Shutdown.
var ErrClosed = errors.New("dispatcher is shut down")

// Command is a unit of work run on its own goroutine.
type Command interface {
	Label() string
	Run(ctx context.Context, c cui.Cui) error
}

// CommandFunc adapts a function to Command.
type CommandFunc struct {
	Name string
	Fn   func(ctx context.Context, c cui.Cui) error
}

func (f CommandFunc) Label() string { return f.Name }

func (f CommandFunc) Run(ctx context.Context, c cui.Cui) error { return f.Fn(ctx, c) }

// RunRecord describes one finished command run.
type RunRecord struct {
	ID       string
	Label    string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Dispatcher runs at most one command at a time and reports failures to the console.
type Dispatcher struct {
	console *console.Console
	state   *State
	client  *Client

	ctx      context.Context
	cancel   context.CancelFunc
	tracker  tracker
	recorder func(RunRecord)
}

// NewDispatcher creates a dispatcher over the shared console and state.
func NewDispatcher(c *console.Console, s *State) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		console: c,
		state:   s,
		client:  NewClient(c, s),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetRecorder registers fn to receive every finished run. It must be called
// before the first Start.
func (d *Dispatcher) SetRecorder(fn func(RunRecord)) {
	d.recorder = fn
}

// Start launches cmd unless another command is active, in which case the
// rejection is written to the console and ErrBusy is returned. The running
// command is not affected by a rejected start.
func (d *Dispatcher) Start(cmd Command) error {
	if !d.tracker.add() {
		d.console.Error(fmt.Sprintf("cannot start %s: %v", cmd.Label(), ErrClosed))
		return ErrClosed
	}

	runID := uuid.NewString()
	if err := d.state.begin(cmd.Label(), runID); err != nil {
		d.tracker.done()
		d.console.Error(err.Error())
		logging.Warn("command rejected", "command", cmd.Label(), "error", err)
		return err
	}

	go d.run(cmd, runID)
	return nil
}

func (d *Dispatcher) run(cmd Command, runID string) {
	defer d.tracker.done()

	log := logging.With("command", cmd.Label(), "run_id", runID)
	start := time.Now()
	log.Info("command started")

	err := runRecovered(d.ctx, cmd, d.client)
	if err != nil {
		d.console.Error(fmt.Sprintf("%s failed: %v", cmd.Label(), err))
		log.Error("command failed", "error", err, "duration", time.Since(start))
	} else {
		log.Info("command finished", "duration", time.Since(start))
	}

	if d.recorder != nil {
		d.recorder(RunRecord{
			ID:       runID,
			Label:    cmd.Label(),
			Started:  start,
			Duration: time.Since(start),
			Err:      err,
		})
	}

	d.state.finish()
}

// runRecovered turns a panicking command into an error. Broken state
// transitions are re-raised: they are bugs, not command failures.
func runRecovered(ctx context.Context, cmd Command, c cui.Cui) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if te, ok := r.(*TransitionError); ok {
				panic(te)
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cmd.Run(ctx, c)
}

// Wait blocks until no command is running.
func (d *Dispatcher) Wait() {
	d.tracker.wait()
}

// Shutdown refuses new commands, abandons a pending choice so a parked command
// fails instead of hanging, and waits up to timeout for it to finish.
// It reports whether the command finished in time.
func (d *Dispatcher) Shutdown(timeout time.Duration) bool {
	d.tracker.close()
	if d.state.abandon() {
		logging.Info("abandoned pending choice on shutdown")
	}
	d.cancel()

	if !d.tracker.waitTimeout(timeout) {
		logging.Warn("command did not finish before shutdown timeout", "timeout", timeout)
		return false
	}
	return true
}
