package ui_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/pinpad/hardware/input"
	"github.com/temoto/pinpad/internal/state"
	state_new "github.com/temoto/pinpad/internal/state/new"
	"github.com/temoto/pinpad/internal/types"
	"github.com/temoto/pinpad/internal/ui"
)

type fakeSink struct {
	sync.Mutex
	calls []string
	err   error
	fun   func(context.Context) error
}

func (self *fakeSink) Append(ctx context.Context, identifier string) error {
	self.Lock()
	self.calls = append(self.calls, identifier)
	fun, err := self.fun, self.err
	self.Unlock()
	if fun != nil {
		return fun(ctx)
	}
	return err
}
func (self *fakeSink) Close() error { return nil }

type tenv struct {
	t       testing.TB
	ctx     context.Context
	g       *state.Global
	m       *state_new.Mocks
	ui      *ui.UI
	sink    *fakeSink
	screens []string
	states  []ui.State
}

func newTestEnv(t testing.TB, conf string) *tenv {
	ctx, g, m := state_new.NewTestContext(t, "", conf)
	env := &tenv{t: t, ctx: ctx, g: g, m: m, sink: &fakeSink{}}
	g.Sink = env.sink
	env.ui = &ui.UI{}
	require.NoError(t, env.ui.Init(ctx))
	env.ui.XXX_testHook = func(s ui.State) { env.states = append(env.states, s) }
	m.Display.OnWrite = func(screen string) { env.screens = append(env.screens, screen) }
	return env
}

func (env *tenv) run(steps ...input.MockStep) error {
	env.m.Keys.Push(steps...)
	return env.ui.Loop(env.ctx)
}

func (env *tenv) _Screen(expect string) input.MockStep {
	return input.MockStep{Fun: func() {
		assert.Equal(env.t, expect, env.m.Display.String())
	}}
}

func (env *tenv) _Number(buf string) input.MockStep {
	return env._Screen(fmt.Sprintf(ui.MsgNumber, buf) + "\n" + ui.MsgHint)
}

func (env *tenv) _Buffer(expect string) input.MockStep {
	return input.MockStep{Fun: func() { assert.Equal(env.t, expect, env.ui.Buffer()) }}
}

func (env *tenv) _Backlight(expect bool) input.MockStep {
	return input.MockStep{Fun: func() { assert.Equal(env.t, expect, env.m.Display.Backlight()) }}
}

func (env *tenv) _Key(k types.Key) input.MockStep { return input.MockStep{Key: k} }

func (env *tenv) _Wait(d time.Duration) input.MockStep { return input.MockStep{Wait: d} }

func (env *tenv) shown(screen string) bool {
	for _, s := range env.screens {
		if s == screen {
			return true
		}
	}
	return false
}

func TestEntryPrompt(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	require.NoError(t, env.run(
		env._Screen(ui.MsgEnter+"\n"+ui.MsgHint),
		env._Backlight(true),
	))
	assert.Equal(t, []ui.State{ui.StateEntry, ui.StateStop}, env.states)
}

func TestBufferBounds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	require.NoError(t, env.run(
		env._Key('1'), env._Number("1___"),
		env._Key('2'), env._Number("12__"),
		env._Key('3'), env._Number("123_"),
		env._Key('4'), env._Number("1234"),
		env._Key('5'), env._Number("1234"), env._Buffer("1234"),
		env._Key('6'), env._Number("1234"), env._Buffer("1234"),
		env._Key('*'), env._Number("123_"),
		env._Key('7'), env._Number("1237"),
		env._Key('*'), env._Key('*'), env._Key('*'), env._Key('*'), env._Number("____"), env._Buffer(""),
		env._Key('*'), env._Number("____"), env._Buffer(""),
	))
	assert.Empty(t, env.sink.calls)
}

func TestBufferInvariant(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	keys := "12*3456789*0**9*8765*4*3*2*1*0123456789"
	steps := make([]input.MockStep, 0, len(keys)*2)
	for _, step := range input.MockKeys(keys) {
		steps = append(steps, step, input.MockStep{Fun: func() {
			n := len(env.ui.Buffer())
			assert.True(t, n >= 0 && n <= ui.MaxDigits, "buffer=%q", env.ui.Buffer())
		}})
	}
	require.NoError(t, env.run(steps...))
}

func TestDeleteOnEmpty(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	require.NoError(t, env.run(
		env._Key('*'), env._Number("____"), env._Buffer(""),
		env._Key('*'), env._Number("____"), env._Buffer(""),
	))
}

func TestIdleBacklight(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	require.NoError(t, env.run(
		env._Wait(59900*time.Millisecond), env._Backlight(true),
		env._Key('1'), env._Backlight(true),
		// exactly idle timeout since last key is not over it yet
		env._Wait(60*time.Second), env._Backlight(true),
		env._Wait(time.Millisecond), env._Backlight(false),
		// no redraw on power-save
		env._Number("1___"),
		env._Wait(10*time.Minute), env._Backlight(false),
		env._Key('2'), env._Backlight(true), env._Number("12__"),
		env._Wait(30*time.Second), env._Backlight(true),
	))
}

func TestIdleConfig(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, `ui { idle_sec = 5 tick_ms = 100 }`)
	require.NoError(t, env.run(
		env._Key(types.KeyNone), env._Backlight(true),
		env._Wait(5*time.Second), env._Backlight(false),
	))
	slept, _ := env.m.Clock.Slept()
	// first tick, 5s wait, then ticks until stop
	assert.True(t, slept >= 5100*time.Millisecond, "slept=%v", slept)
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	var submitAt time.Time
	env.ui.XXX_testHook = func(s ui.State) {
		env.states = append(env.states, s)
		switch s {
		case ui.StateSubmit:
			submitAt = env.m.Clock.Now()
		case ui.StateEntryBegin:
			assert.Equal(t, ui.DefaultDone, env.m.Clock.Now().Sub(submitAt))
		}
	}
	require.NoError(t, env.run(
		env._Key('1'), env._Key('2'), env._Key('3'), env._Key('4'),
		env._Key('#'), env._Screen("Confirm? 1234\n"+ui.MsgConfirmHint),
		env._Key('#'),
		env._Screen(ui.MsgEnter+"\n"+ui.MsgHint), env._Buffer(""),
	))
	assert.Equal(t, []string{"1234"}, env.sink.calls)
	assert.True(t, env.shown(ui.MsgSending+"\n"))
	assert.True(t, env.shown(ui.MsgDone+"\n"))
	assert.Equal(t, 0, env.g.Journal.Count())
	assert.Equal(t, []ui.State{
		ui.StateEntry, ui.StateConfirm, ui.StateSubmit, ui.StateEntryBegin, ui.StateEntry, ui.StateStop,
	}, env.states)
}

func TestSubmitError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, `ui { msg_error = "Failed" error_ms = 3000 }`)
	env.sink.err = errors.New("sheets: 403 secret-token-expired")
	var submitAt time.Time
	env.ui.XXX_testHook = func(s ui.State) {
		switch s {
		case ui.StateSubmit:
			submitAt = env.m.Clock.Now()
		case ui.StateEntryBegin:
			assert.Equal(t, 3*time.Second, env.m.Clock.Now().Sub(submitAt))
		}
	}
	require.NoError(t, env.run(
		env._Key('4'), env._Key('2'), env._Key('#'), env._Key('#'),
		env._Screen(ui.MsgEnter+"\n"+ui.MsgHint), env._Buffer(""),
		env._Key('7'), env._Number("7___"),
	))
	assert.Equal(t, []string{"42"}, env.sink.calls)
	assert.True(t, env.shown("Failed\n"))
	for _, s := range env.screens {
		assert.NotContains(t, s, "secret")
	}
	assert.Equal(t, 1, env.g.Journal.Count())
	id, err := env.g.Journal.Last()
	assert.Equal(t, "42", id)
	assert.Contains(t, err.Error(), "403")
}

func TestConfirmCancel(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	require.NoError(t, env.run(
		env._Key('1'), env._Key('2'), env._Key('#'),
		// confirm waits without own timeout
		env._Wait(5*time.Minute), env._Key('5'), env._Key(types.KeyNone),
		env._Screen("Confirm? 12\n"+ui.MsgConfirmHint),
		env._Key('*'), env._Number("12__"), env._Buffer("12"),
		env._Key('3'), env._Key('#'), env._Screen("Confirm? 123\n"+ui.MsgConfirmHint),
		env._Key('#'),
	))
	assert.Equal(t, []string{"123"}, env.sink.calls)
}

func TestConfirmEmpty(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	require.NoError(t, env.run(
		env._Key('#'), env._Screen("Confirm? \n"+ui.MsgConfirmHint),
		env._Key('*'), env._Number("____"),
	))
	assert.Empty(t, env.sink.calls)
}

func TestConfirmWakesBacklight(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	require.NoError(t, env.run(
		env._Key('9'), env._Key('#'),
		env._Wait(2*time.Minute), env._Backlight(true),
		env._Key('*'),
		// key in confirm counts as activity
		env._Wait(30*time.Second), env._Backlight(true),
		env._Wait(31*time.Second), env._Backlight(false),
	))
}

func TestShutdownOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	require.NoError(t, env.run(env._Key('1'), env._Number("1___")))
	assert.Equal(t, "\n", env.m.Display.String())
	assert.False(t, env.m.Display.Backlight())
	assert.True(t, env.m.Keys.Closed())
	clears := env.m.Display.Clears()

	assert.NoError(t, env.ui.Shutdown())
	assert.NoError(t, env.g.CloseHardware())
	assert.Equal(t, clears, env.m.Display.Clears())
}

func TestHardwareError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	err := env.run(env._Key('1'), input.MockStep{Err: errors.New("keypad read line=6: bad file descriptor")})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "ui state=Entry"), err.Error())
	assert.Equal(t, ui.StateStop, env.ui.State())
	// release sequence ran anyway
	assert.True(t, env.m.Keys.Closed())
	assert.False(t, env.m.Display.Backlight())
}

func TestDisplayError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	env.m.Display.SetErr(errors.New("expander write addr=27: remote I/O error"))
	err := env.run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui state=EntryBegin")
}

func TestStopWhileWaiting(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	require.NoError(t, env.run(
		env._Key('1'),
		input.MockStep{Fun: env.g.Stop},
		input.MockStep{Err: input.ErrClosed},
	))
	assert.Equal(t, ui.StateStop, env.ui.State())
	assert.True(t, env.m.Keys.Closed())
}

func TestStopCancelsSubmit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, `ui { submit_sec = 600 }`)
	env.sink.fun = func(ctx context.Context) error {
		// stop signal arrives while sink request is in flight
		env.g.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("sink context outlived stop")
		}
	}
	require.NoError(t, env.run(env._Key('5'), env._Key('#'), env._Key('#')))
	assert.Equal(t, []string{"5"}, env.sink.calls)
	id, err := env.g.Journal.Last()
	assert.Equal(t, "5", id)
	assert.Equal(t, context.Canceled, errors.Cause(err))
	// no result hold on the way out
	slept, _ := env.m.Clock.Slept()
	assert.Less(t, slept, ui.DefaultError)
	assert.Equal(t, ui.StateStop, env.ui.State())
	assert.True(t, env.m.Keys.Closed())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Confirm", ui.StateConfirm.String())
	assert.Equal(t, "State(42)", ui.State(42).String())
}
