// Sorry, workaround to import cycles.
package state_new

import (
	"context"
	"os"
	"testing"

	"github.com/temoto/pinpad/hardware/input"
	"github.com/temoto/pinpad/hardware/lcd"
	"github.com/temoto/pinpad/helpers"
	"github.com/temoto/pinpad/internal/sink"
	"github.com/temoto/pinpad/internal/state"
	"github.com/temoto/pinpad/log2"
)

type Mocks struct {
	Clock   *helpers.FakeClock
	Display *lcd.MockDevicer
	Keys    *input.MockSource
}

// NewTestContext returns initialized Global with fake clock, in-memory display
// and scripted keys. Keys script end stops g.Alive.
func NewTestContext(t testing.TB, buildVersion string, confString string) (context.Context, *state.Global, *Mocks) {
	fs := state.NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	var log *log2.Log
	if os.Getenv("pinpad_test_log_stderr") == "1" {
		log = log2.NewStderr(log2.LDebug) // useful with panics
	} else {
		log = log2.NewTest(t, log2.LDebug)
	}
	log.SetFlags(log2.LTestFlags)
	ctx, g := state.NewContext(log)
	g.BuildVersion = buildVersion

	m := &Mocks{Clock: helpers.NewFakeClock()}
	g.Clock = m.Clock
	var display *lcd.TextDisplay
	display, m.Display = lcd.NewMockTextDisplay(lcd.Columns)
	g.Hardware.LCD.Device = m.Display
	g.Hardware.LCD.Display = display
	m.Keys = input.NewMockSource(m.Clock)
	m.Keys.OnEnd = g.Stop
	g.Hardware.Keys.Source = m.Keys
	g.Sink = sink.NewNoop(log)

	g.MustInit(ctx, state.MustReadConfig(log, fs, "test-inline"))
	return ctx, g, m
}
