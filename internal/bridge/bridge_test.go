package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"musync/internal/console"
	"musync/internal/cui"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestDispatcher() (*Dispatcher, *console.Console, *State) {
	c := console.New()
	s := NewState()
	return NewDispatcher(c, s), c, s
}

// waitPending polls the state the way a UI frame would until a choice is offered.
func waitPending(t *testing.T, s *State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := s.Snapshot(); snap.Pending() {
			return snap
		}
		time.Sleep(100 * time.Microsecond)
	}
	t.Fatalf("no pending choice within deadline, state=%s", s.Kind())
	return Snapshot{}
}

func texts(entries []console.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestDispatcher_EndToEndAbortAnswer(t *testing.T) {
	d, c, s := newTestDispatcher()
	defer d.Shutdown(time.Second)

	err := d.Start(CommandFunc{Name: "check", Fn: func(ctx context.Context, ui cui.Cui) error {
		ui.Logf("start")
		r, err := ui.Choose(ctx, []rune{'y', 'n'}, "continue?")
		if err != nil {
			return err
		}
		if r == 'n' {
			ui.Logf("aborted")
			return nil
		}
		ui.Logf("continued")
		return nil
	}})
	require.NoError(t, err)

	snap := waitPending(t, s)
	assert.Equal(t, "continue?", snap.Prompt)
	assert.Equal(t, []rune{'y', 'n'}, snap.Allowed)
	assert.Equal(t, "check", snap.Label)
	assert.NotEmpty(t, snap.RunID)

	require.NoError(t, s.Answer('n'))
	d.Wait()

	assert.Equal(t, []string{"start", "aborted"}, texts(c.Entries()))
	assert.Equal(t, Idle, s.Kind())
}

func TestDispatcher_FailureGoesToConsole(t *testing.T) {
	d, c, s := newTestDispatcher()
	defer d.Shutdown(time.Second)

	require.NoError(t, d.Start(CommandFunc{Name: "add", Fn: func(ctx context.Context, ui cui.Cui) error {
		return errors.New("disk full")
	}}))
	d.Wait()

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, console.SeverityError, last.Severity)
	assert.Contains(t, last.Text, "disk full")
	assert.Equal(t, Idle, s.Kind())
}

func TestDispatcher_PanicBecomesConsoleError(t *testing.T) {
	d, c, s := newTestDispatcher()
	defer d.Shutdown(time.Second)

	require.NoError(t, d.Start(CommandFunc{Name: "move", Fn: func(ctx context.Context, ui cui.Cui) error {
		panic("boom")
	}}))
	d.Wait()

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, console.SeverityError, last.Severity)
	assert.Contains(t, last.Text, "boom")
	assert.Equal(t, Idle, s.Kind())
}

func TestDispatcher_RecordsRuns(t *testing.T) {
	d, _, _ := newTestDispatcher()
	defer d.Shutdown(time.Second)

	var records []RunRecord
	d.SetRecorder(func(r RunRecord) { records = append(records, r) })

	require.NoError(t, d.Start(CommandFunc{Name: "add a", Fn: func(context.Context, cui.Cui) error { return nil }}))
	d.Wait()
	require.NoError(t, d.Start(CommandFunc{Name: "remove a", Fn: func(context.Context, cui.Cui) error {
		return errors.New("locked")
	}}))
	d.Wait()

	require.Len(t, records, 2)
	assert.Equal(t, "add a", records[0].Label)
	assert.NoError(t, records[0].Err)
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, "remove a", records[1].Label)
	assert.EqualError(t, records[1].Err, "locked")
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestDispatcher_SingleFlight(t *testing.T) {
	d, c, s := newTestDispatcher()
	defer d.Shutdown(time.Second)

	var answered rune
	require.NoError(t, d.Start(CommandFunc{Name: "check", Fn: func(ctx context.Context, ui cui.Cui) error {
		ui.Logf("first")
		r, err := ui.Choose(ctx, []rune{'1', '0'}, "pick")
		answered = r
		return err
	}}))

	// Rejected while Running or AwaitingChoice.
	waitPending(t, s)

	const attempts = 16
	var wg sync.WaitGroup
	var ranSecond sync.Once
	secondRan := false
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.Start(CommandFunc{Name: "remove", Fn: func(ctx context.Context, ui cui.Cui) error {
				ranSecond.Do(func() { secondRan = true })
				return nil
			}})
			assert.ErrorIs(t, err, ErrBusy)
		}()
	}
	wg.Wait()

	entries := c.Entries()
	require.Len(t, entries, 1+attempts)
	for _, e := range entries[1:] {
		assert.Equal(t, console.SeverityError, e.Severity)
		assert.Equal(t, "command already running: check", e.Text)
	}

	// The original command is unaffected.
	snap := s.Snapshot()
	assert.True(t, snap.Pending())
	assert.Equal(t, "check", snap.Label)

	require.NoError(t, s.Answer('1'))
	d.Wait()
	assert.Equal(t, '1', answered)
	assert.False(t, secondRan)
	assert.Equal(t, Idle, s.Kind())

	// A new command may start once idle.
	require.NoError(t, d.Start(CommandFunc{Name: "remove", Fn: func(ctx context.Context, ui cui.Cui) error { return nil }}))
	d.Wait()
}

func TestDispatcher_BusyWhileRunningWithoutChoice(t *testing.T) {
	d, c, s := newTestDispatcher()
	defer d.Shutdown(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Start(CommandFunc{Name: "playlist", Fn: func(ctx context.Context, ui cui.Cui) error {
		close(started)
		<-release
		return nil
	}}))
	<-started
	assert.Equal(t, Running, s.Kind())

	err := d.Start(CommandFunc{Name: "add", Fn: func(ctx context.Context, ui cui.Cui) error { return nil }})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, c.Len())

	close(release)
	d.Wait()
	assert.Equal(t, Idle, s.Kind())
}

func TestClient_ChoiceRoundTrip(t *testing.T) {
	sets := [][]rune{
		{'y', 'n'},
		{'1', '2', '0', '-'},
		{'a'},
		{'é', '日', '-'},
	}

	for _, allowed := range sets {
		for _, want := range allowed {
			t.Run(fmt.Sprintf("%s/%c", string(allowed), want), func(t *testing.T) {
				d, _, s := newTestDispatcher()
				defer d.Shutdown(time.Second)

				var (
					got    rune
					before Kind
					after  Kind
				)
				require.NoError(t, d.Start(CommandFunc{Name: "check", Fn: func(ctx context.Context, ui cui.Cui) error {
					before = s.Kind()
					r, err := ui.Choose(ctx, allowed, "pick one")
					after = s.Kind()
					got = r
					return err
				}}))

				snap := waitPending(t, s)
				assert.Equal(t, AwaitingChoice, snap.Kind)
				require.NoError(t, s.Answer(want))
				d.Wait()

				assert.Equal(t, want, got)
				assert.Equal(t, Running, before)
				assert.Equal(t, Running, after)
				assert.Equal(t, Idle, s.Kind())
			})
		}
	}
}

func TestClient_ManySequentialChoices(t *testing.T) {
	d, c, s := newTestDispatcher()
	defer d.Shutdown(time.Second)

	const rounds = 300
	var sum int
	require.NoError(t, d.Start(CommandFunc{Name: "check", Fn: func(ctx context.Context, ui cui.Cui) error {
		for i := 0; i < rounds; i++ {
			r, err := ui.Choose(ctx, []rune{'1', '0'}, fmt.Sprintf("item %d", i))
			if err != nil {
				return err
			}
			if r == '1' {
				sum++
			}
		}
		return nil
	}}))

	for i := 0; i < rounds; i++ {
		snap := waitPending(t, s)
		assert.Equal(t, fmt.Sprintf("item %d", i), snap.Prompt)
		answer := '0'
		if i%2 == 0 {
			answer = '1'
		}
		require.NoError(t, s.Answer(answer))
	}
	d.Wait()

	assert.Equal(t, rounds/2, sum)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, Idle, s.Kind())
}

func TestState_AnswerRejections(t *testing.T) {
	d, _, s := newTestDispatcher()
	defer d.Shutdown(time.Second)

	assert.ErrorIs(t, s.Answer('y'), ErrNoPendingChoice)

	release := make(chan struct{})
	require.NoError(t, d.Start(CommandFunc{Name: "remove", Fn: func(ctx context.Context, ui cui.Cui) error {
		if _, err := ui.Choose(ctx, cui.YesNo, "remove?"); err != nil {
			return err
		}
		<-release
		return nil
	}}))
	waitPending(t, s)

	assert.ErrorIs(t, s.Answer('x'), ErrNotAllowed)
	assert.True(t, s.Snapshot().Pending())

	require.NoError(t, s.Answer('y'))
	// A second click before the command resumes must not be delivered.
	assert.ErrorIs(t, s.Answer('n'), ErrNoPendingChoice)

	close(release)
	d.Wait()
}

func TestClient_AbandonedChoiceParksUntilShutdown(t *testing.T) {
	d, c, s := newTestDispatcher()

	chooseErr := make(chan error, 1)
	require.NoError(t, d.Start(CommandFunc{Name: "check", Fn: func(ctx context.Context, ui cui.Cui) error {
		_, err := ui.Choose(ctx, []rune{'1', '0', '-'}, "resolve?")
		chooseErr <- err
		return err
	}}))
	waitPending(t, s)

	// Nobody answers: the command stays parked and blocks new commands.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, AwaitingChoice, s.Kind())
	assert.ErrorIs(t, d.Start(CommandFunc{Name: "add", Fn: func(ctx context.Context, ui cui.Cui) error { return nil }}), ErrBusy)
	select {
	case err := <-chooseErr:
		t.Fatalf("choose returned early: %v", err)
	default:
	}

	require.True(t, d.Shutdown(2*time.Second))

	assert.ErrorIs(t, <-chooseErr, ErrChoiceAbandoned)
	assert.Equal(t, Idle, s.Kind())
	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, console.SeverityError, last.Severity)
	assert.Contains(t, last.Text, "check failed")

	assert.ErrorIs(t, d.Start(CommandFunc{Name: "add", Fn: func(ctx context.Context, ui cui.Cui) error { return nil }}), ErrClosed)
}

func TestClient_ContextCancelReleasesChoice(t *testing.T) {
	c := console.New()
	s := NewState()
	require.NoError(t, s.begin("check", "run"))
	client := NewClient(c, s)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := client.Choose(ctx, []rune{'1'}, "wait")
		errCh <- err
	}()
	waitPending(t, s)
	cancel()

	err := <-errCh
	assert.ErrorIs(t, err, ErrChoiceAbandoned)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Running, s.Kind())
	assert.ErrorIs(t, s.Answer('1'), ErrNoPendingChoice)
}

func TestClient_EmptyAllowedSet(t *testing.T) {
	s := NewState()
	require.NoError(t, s.begin("check", "run"))
	_, err := NewClient(console.New(), s).Choose(context.Background(), nil, "nothing")
	assert.ErrorIs(t, err, ErrNoChoices)
	assert.Equal(t, Running, s.Kind())
}

func TestState_InvalidTransitionsPanic(t *testing.T) {
	assertTransitionPanic := func(t *testing.T, from, to Kind, fn func()) {
		t.Helper()
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected panic")
			te, ok := r.(*TransitionError)
			require.True(t, ok, "panic value %T", r)
			assert.Equal(t, from, te.From)
			assert.Equal(t, to, te.To)
		}()
		fn()
	}

	t.Run("finish from idle", func(t *testing.T) {
		s := NewState()
		assertTransitionPanic(t, Idle, Idle, s.finish)
	})

	t.Run("choose from idle", func(t *testing.T) {
		s := NewState()
		client := NewClient(console.New(), s)
		assertTransitionPanic(t, Idle, AwaitingChoice, func() {
			_, _ = client.Choose(context.Background(), []rune{'y'}, "?")
		})
	})

	t.Run("second await", func(t *testing.T) {
		s := NewState()
		require.NoError(t, s.begin("check", "run"))
		s.await("first", []rune{'y'})
		assertTransitionPanic(t, AwaitingChoice, AwaitingChoice, func() { s.await("second", []rune{'y'}) })
	})

	t.Run("finish while awaiting", func(t *testing.T) {
		s := NewState()
		require.NoError(t, s.begin("check", "run"))
		s.await("first", []rune{'y'})
		assertTransitionPanic(t, AwaitingChoice, Idle, s.finish)
	})

	t.Run("resume stale choice", func(t *testing.T) {
		s := NewState()
		require.NoError(t, s.begin("check", "run"))
		p := s.await("first", []rune{'y'})
		s.resume(p)
		assertTransitionPanic(t, Running, Running, func() { s.resume(p) })
	})
}

func TestState_BeginWhileBusy(t *testing.T) {
	s := NewState()
	require.NoError(t, s.begin("check", "a"))
	err := s.begin("add", "b")
	assert.ErrorIs(t, err, ErrBusy)
	assert.EqualError(t, err, "command already running: check")
	assert.Equal(t, "check", s.Snapshot().Label)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "awaiting-choice", AwaitingChoice.String())
	assert.Equal(t, "kind(7)", Kind(7).String())
}
