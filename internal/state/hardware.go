package state

import (
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/temoto/pinpad/hardware/expander"
	"github.com/temoto/pinpad/hardware/input"
	"github.com/temoto/pinpad/hardware/keypad"
	"github.com/temoto/pinpad/hardware/lcd"
	"github.com/temoto/pinpad/helpers"
	"github.com/temoto/pinpad/internal/types"
)

type hardware struct {
	Expander struct {
		once
		Port *expander.Port
	}
	LCD struct {
		once
		Device  lcd.Devicer
		Display *lcd.TextDisplay
	}
	Keys struct {
		once
		Source types.KeySource
	}

	closeOnce sync.Once
	closeErr  error
}

func (g *Global) Expander() (*expander.Port, error) {
	x := &g.Hardware.Expander
	_ = x.do(func() error {
		if x.Port != nil {
			return nil
		}
		cfg := &g.Config.Hardware.Expander
		addr := g.Config.ExpanderAddress()
		port, err := expander.Open(cfg.Bus, addr)
		if err != nil {
			return errors.Annotatef(err, "config: hardware.expander bus=%s address=%02x", cfg.Bus, addr)
		}
		// PCF8574 has no id register, successful read means chip answers on address
		if _, err = port.Read(); err != nil {
			_ = port.Close()
			return errors.Annotatef(err, "expander probe bus=%s address=%02x", cfg.Bus, addr)
		}
		x.Port = port
		return nil
	})
	return x.Port, x.err
}

// Display returns nil,nil when disabled in config.
func (g *Global) Display() (*lcd.TextDisplay, error) {
	x := &g.Hardware.LCD
	_ = x.do(func() error {
		if x.Display != nil { // testing or dev mode
			return nil
		}
		devConfig := &g.Config.Hardware.LCD
		if !devConfig.Enable {
			g.Log.Infof("display lcd is disabled")
			return nil
		}
		port, err := g.Expander()
		if err != nil {
			return err
		}
		dev := lcd.New(port, g.Clock)
		if err = dev.Init(); err != nil {
			return errors.Annotate(err, "lcd init")
		}
		width := helpers.IntDefault(devConfig.Width, lcd.Columns)
		disp, err := lcd.NewTextDisplay(uint16(width), devConfig.Codepage)
		if err != nil {
			return errors.Annotatef(err, "config: hardware.lcd width=%d codepage=%s", width, devConfig.Codepage)
		}
		disp.SetDevice(dev)
		x.Device = dev
		x.Display = disp
		return nil
	})
	return x.Display, x.err
}

// Keys merges all enabled key sources. Returns nil,nil when none enabled.
func (g *Global) Keys() (types.KeySource, error) {
	x := &g.Hardware.Keys
	_ = x.do(func() error {
		if x.Source != nil { // testing or dev mode
			return nil
		}
		sources := make([]input.Source, 0, 2)

		kpConfig := &g.Config.Hardware.Keypad
		if !kpConfig.Enable {
			g.Log.Infof("input=%s disabled", keypad.Tag)
		} else {
			rows, cols := g.Config.KeypadLines()
			kp, err := keypad.Open(kpConfig.PinChip, rows, cols, g.Clock)
			if err != nil {
				return errors.Annotatef(err, "config: hardware.keypad pin_chip=%s", kpConfig.PinChip)
			}
			kp.Debounce = helpers.IntMillisecondDefault(kpConfig.DebounceMs, keypad.DefaultDebounce)
			kp.ReleasePoll = helpers.IntMillisecondDefault(kpConfig.ReleasePollMs, keypad.DefaultReleasePoll)
			kp.ScanInterval = helpers.IntMillisecondDefault(kpConfig.ScanIntervalMs, keypad.DefaultScanInterval)
			sources = append(sources, kp)
		}

		evConfig := &g.Config.Hardware.Input.DevInputEvent
		if !evConfig.Enable {
			g.Log.Infof("input=%s disabled", input.DevInputEventTag)
		} else {
			src, err := input.NewDevInputEventSource(evConfig.Device)
			if err != nil {
				for _, s := range sources {
					_ = s.Close()
				}
				return errors.Annotatef(err, "input=%s", input.DevInputEventTag)
			}
			sources = append(sources, src)
		}

		switch len(sources) {
		case 0:
		case 1:
			x.Source = sources[0]
		default:
			x.Source = input.NewDispatch(g.Log, sources...)
		}
		return nil
	})
	return x.Source, x.err
}

// CloseHardware clears display, turns backlight off, releases key lines and bus.
// Only first call does the work, others return same result.
func (g *Global) CloseHardware() error {
	hw := &g.Hardware
	hw.closeOnce.Do(func() {
		errs := make([]error, 0, 4)
		if d := hw.LCD.Display; d != nil {
			errs = append(errs, errors.Annotate(d.Clear(), "display clear"))
			errs = append(errs, errors.Annotate(d.SetBacklight(false), "display backlight"))
		}
		if k := hw.Keys.Source; k != nil {
			errs = append(errs, k.Close())
		}
		if p := hw.Expander.Port; p != nil {
			errs = append(errs, p.Close())
		}
		hw.closeErr = helpers.FoldErrors(errs)
	})
	return hw.closeErr
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}
