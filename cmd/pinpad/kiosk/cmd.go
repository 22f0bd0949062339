// Main, user facing mode of operation and its development twin.
package kiosk

import (
	"context"
	"strings"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/pinpad/cmd/pinpad/subcmd"
	"github.com/temoto/pinpad/hardware/input"
	"github.com/temoto/pinpad/hardware/lcd"
	"github.com/temoto/pinpad/helpers/cli"
	"github.com/temoto/pinpad/internal/state"
	"github.com/temoto/pinpad/internal/ui"
)

var Mod = subcmd.Mod{Name: "kiosk", Usage: "run terminal on display and keypad", Main: Main}
var DevMod = subcmd.Mod{Name: "dev", Usage: "run terminal with console keys and logged display", Main: DevMain}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)

	u := ui.UI{}
	if err := u.Init(ctx); err != nil {
		return errors.Annotate(err, "ui Init()")
	}

	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Debugf("kiosk init complete")
	return u.Loop(ctx)
}

func DevMain(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)

	display, dev := lcd.NewMockTextDisplay(lcd.Columns)
	dev.OnWrite = func(screen string) {
		g.Log.Infof("display\n%s", screen)
	}
	g.Hardware.LCD.Device = dev
	g.Hardware.LCD.Display = display
	keys := input.NewConsoleSource()
	g.Hardware.Keys.Source = keys
	g.MustInit(ctx, config)

	u := ui.UI{}
	if err := u.Init(ctx); err != nil {
		return errors.Annotate(err, "ui Init()")
	}

	go func() {
		exec := func(line string) {
			if n := keys.Feed(line); n == 0 && strings.TrimSpace(line) != "" {
				g.Log.Infof("keys: 0-9 * #")
			}
		}
		g.Error(cli.MainLoop("pinpad> ", exec, nil))
		g.Log.Debugf("console input end")
		g.Stop()
	}()

	g.Log.Debugf("dev init complete, type keys 0-9 * # and Enter")
	return u.Loop(ctx)
}
