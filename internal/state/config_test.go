package state

import (
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/pinpad/hardware/expander"
	"github.com/temoto/pinpad/hardware/input"
	"github.com/temoto/pinpad/hardware/lcd"
	"github.com/temoto/pinpad/helpers"
	"github.com/temoto/pinpad/internal/sink"
	sink_config "github.com/temoto/pinpad/internal/sink/config"
	"github.com/temoto/pinpad/log2"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, *Global)
		expectErr string
	}
	cases := []Case{
		{"minimal", `sink { driver = "noop" }`, func(t testing.TB, g *Global) {
			assert.Equal(t, expander.DefaultAddress, g.Config.ExpanderAddress())
			assert.IsType(t, &sink.Noop{}, g.Sink)
			d, err := g.Display()
			assert.NoError(t, err)
			assert.Nil(t, d)
		}, ""},

		{"hardware",
			`hardware {
	expander { bus = "/dev/i2c-3" address = 63 }
	keypad { rows = [1,2,3,4] cols = [5,6,7] debounce_ms = 30 }
}
sink { driver = "noop" }`,
			func(t testing.TB, g *Global) {
				assert.Equal(t, "/dev/i2c-3", g.Config.Hardware.Expander.Bus)
				assert.Equal(t, uint16(0x3f), g.Config.ExpanderAddress())
				rows, cols := g.Config.KeypadLines()
				assert.Equal(t, []uint32{1, 2, 3, 4}, rows)
				assert.Equal(t, []uint32{5, 6, 7}, cols)
				assert.Equal(t, 30, g.Config.Hardware.Keypad.DebounceMs)
			},
			"",
		},

		{"ui-sink",
			`ui { idle_sec = 5 msg_done = "OK" }
sink { driver = "noop" terminal_id = 9 mqtt { broker = "tcp://broker:1883" } }`,
			func(t testing.TB, g *Global) {
				assert.Equal(t, 5, g.Config.UI.IdleSec)
				assert.Equal(t, "OK", g.Config.UI.MsgDone)
				assert.Equal(t, sink_config.DriverNoop, g.Config.Sink.Driver)
				assert.Equal(t, 9, g.Config.Sink.TerminalId)
				assert.Equal(t, "tcp://broker:1883", g.Config.Sink.Mqtt.Broker)
			},
			"",
		},

		{"include-normalize", `
log_debug = true
include "./noop-sink" {}`,
			nil, ""},

		{"include-optional", `
include "ui-idle-7" {}
include "non-exist" { optional = true }
include "noop-sink" {}`,
			func(t testing.TB, g *Global) {
				assert.Equal(t, 7, g.Config.UI.IdleSec)
			}, ""},

		{"include-overwrites", `
ui { idle_sec = 1 }
include "ui-idle-7" {}
include "noop-sink" {}`,
			func(t testing.TB, g *Global) {
				assert.Equal(t, 7, g.Config.UI.IdleSec)
			}, ""},

		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
		{"error-include-missing", `include "non-exist" {}`, nil, "config required name=non-exist"},
		{"error-sink-driver", `sink { driver = "fax" }`, nil, "config: sink driver=fax"},
		{"error-sink-empty", ``, nil, "sink driver (empty, use noop to discard) not valid"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			t.Parallel()
			log := log2.NewTest(t, log2.LDebug)
			ctx, g := NewContext(log)

			fs := NewMockFullReader(map[string]string{
				"test-inline":  c.input,
				"noop-sink":    `sink { driver = "noop" }`,
				"ui-idle-7":    "ui{idle_sec=7}",
				"error-syntax": "hello",
				"include-loop": `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if err == nil {
				err = g.Init(ctx, cfg)
			}
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, g)
				}
				assert.NoError(t, g.Close())
			} else {
				require.Error(t, err)
				if !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, mkCheck(c))
	}
}

func TestFunctionalBundled(t *testing.T) {
	// not Parallel
	t.Logf("this test needs OS open|read|stat access to file `../../kiosk.hcl`")

	log := log2.NewTest(t, log2.LDebug)
	c := MustReadConfig(log, NewOsFullReader(), "../../kiosk.hcl")
	assert.True(t, c.Hardware.LCD.Enable)
	assert.Equal(t, uint16(0x27), c.ExpanderAddress())
	rows, cols := c.KeypadLines()
	assert.Len(t, rows, 4)
	assert.Len(t, cols, 3)
	assert.Equal(t, 500, c.UI.TickMs)
	assert.Equal(t, "Number: %s", c.UI.MsgNumber)
	assert.Equal(t, sink_config.DriverMqtt, c.Sink.Driver)
}

func TestCloseHardwareOnce(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	ctx, g := NewContext(log)
	g.Clock = helpers.NewFakeClock()
	display, mock := lcd.NewMockTextDisplay(16)
	g.Hardware.LCD.Display = display
	keys := input.NewConsoleSource()
	g.Hardware.Keys.Source = keys
	g.MustInit(ctx, MustReadConfig(log, NewMockFullReader(map[string]string{"c": `sink { driver = "noop" }`}), "c"))

	d, err := g.Display()
	require.NoError(t, err)
	assert.Equal(t, display, d)
	require.NoError(t, d.SetLines("Number: 12__", "*:Del #:OK"))

	require.NoError(t, g.CloseHardware())
	assert.Equal(t, "\n", mock.String())
	assert.False(t, mock.Backlight())
	clears := mock.Clears()
	_, err = keys.GetKey(0)
	assert.Equal(t, input.ErrClosed, err)

	require.NoError(t, g.Close())
	assert.Equal(t, clears, mock.Clears())
}
