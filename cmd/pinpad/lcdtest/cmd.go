// Display wiring check: init, render text, blink backlight.
package lcdtest

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/pinpad/cmd/pinpad/subcmd"
	"github.com/temoto/pinpad/internal/sink"
	"github.com/temoto/pinpad/internal/state"
)

var Mod = subcmd.Mod{Name: "lcd-test", Usage: "lcd-test [text, \\n separates lines]", Main: Main}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	config.Hardware.LCD.Enable = true
	config.Hardware.Keypad.Enable = false
	config.Hardware.Input.DevInputEvent.Enable = false
	g.Sink = sink.NewNoop(g.Log)
	g.MustInit(ctx, config)

	d, err := g.Display()
	if err != nil {
		return errors.Annotate(err, "lcd-test")
	}

	text := strings.Join(args, " ")
	if text == "" {
		text = "pinpad " + g.BuildVersion + "\nlcd test"
	}
	text = strings.Replace(text, `\n`, "\n", 1)
	g.Log.Infof("lcd-test text=%q", text)
	if err = d.RenderText(text, 0); err != nil {
		return errors.Annotate(err, "lcd-test render")
	}

	for i := 0; i < 3 && g.Alive.IsRunning(); i++ {
		g.Clock.Sleep(time.Second)
		if err = d.SetBacklight(false); err != nil {
			return errors.Annotate(err, "lcd-test backlight")
		}
		g.Clock.Sleep(500 * time.Millisecond)
		if err = d.SetBacklight(true); err != nil {
			return errors.Annotate(err, "lcd-test backlight")
		}
	}
	g.Clock.Sleep(2 * time.Second)
	return nil
}
