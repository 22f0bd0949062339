// Package lcd drives HD44780 compatible character display in 4-bit mode
// through PCF8574 I2C backpack, and renders text lines on it.
package lcd

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/pinpad/helpers"
)

type Command byte

const (
	CommandClear     Command = 0x01
	CommandEntryMode Command = 0x04
	CommandControl   Command = 0x08
	CommandFunction  Command = 0x20
	CommandAddress   Command = 0x80
)

type Control byte

const ControlOn Control = 0x04

const (
	entryIncrement byte = 0x02
	entryShift     byte = 0x01

	function8bit    byte = 0x10
	functionTwoLine byte = 0x08
)

const (
	Lines      = 2
	Columns    = 16
	ddramWidth = 0x40
)

// Backpack wiring: P0=RS P1=RW P2=E P3=backlight P4-P7=D4-D7
// RW is never set, controller is write only.
const (
	MaskRS        byte = 0x01
	MaskEnable    byte = 0x04
	MaskBacklight byte = 0x08
	dataShift          = 4
)

const (
	DelayPowerUp = 50 * time.Millisecond
	DelayReset1  = 5 * time.Millisecond
	DelayReset2  = 200 * time.Microsecond
	DelayPulse   = 500 * time.Microsecond
	DelaySettle  = 100 * time.Microsecond
	DelayClear   = 2 * time.Millisecond
)

type Porter interface {
	Write(b byte) error
}

type LCD struct {
	port      Porter
	clock     helpers.Clock
	backlight byte
	control   Control
}

// New does no IO. Backlight is on by default.
func New(port Porter, clock helpers.Clock) *LCD {
	if clock == nil {
		clock = helpers.SystemClock{}
	}
	return &LCD{
		port:      port,
		clock:     clock,
		backlight: MaskBacklight,
	}
}

// Init runs power-on reset by instruction sequence, then configures
// 4-bit interface, 2 lines, 5x8 font, display on, cursor off, clear, increment.
func (self *LCD) Init() error {
	self.clock.Sleep(DelayPowerUp)

	// special sequence, controller may be in 8-bit or mid-nibble 4-bit state
	reset := []time.Duration{DelayReset1, DelayReset2, DelayReset2}
	for i, d := range reset {
		if err := self.writeNibble(0x3, false); err != nil {
			return errors.Annotatef(err, "lcd reset step=%d", i+1)
		}
		self.clock.Sleep(d)
	}
	if err := self.writeNibble(0x2, false); err != nil {
		return errors.Annotate(err, "lcd enter 4-bit")
	}

	if err := self.SetFunction(false, true); err != nil {
		return err
	}
	if _, err := self.SetControl(0); err != nil {
		return err
	}
	if err := self.Clear(); err != nil {
		return err
	}
	if err := self.SetEntryMode(true, false); err != nil {
		return err
	}
	_, err := self.SetControl(ControlOn)
	return err
}

// pulse latches value presented on data lines.
func (self *LCD) pulse(value byte) error {
	value &^= MaskEnable
	if err := self.port.Write(value); err != nil {
		return err
	}
	if err := self.port.Write(value | MaskEnable); err != nil {
		return err
	}
	self.clock.Sleep(DelayPulse)
	if err := self.port.Write(value); err != nil {
		return err
	}
	self.clock.Sleep(DelaySettle)
	return nil
}

func (self *LCD) writeNibble(nibble byte, rs bool) error {
	value := (nibble&0x0f)<<dataShift | self.backlight
	if rs {
		value |= MaskRS
	}
	return self.pulse(value)
}

// SendByte transfers high nibble then low nibble with same RS.
func (self *LCD) SendByte(b byte, data bool) error {
	if err := self.writeNibble(b>>4, data); err != nil {
		return err
	}
	return self.writeNibble(b&0x0f, data)
}

func (self *LCD) Command(c Command) error {
	return errors.Annotatef(self.SendByte(byte(c), false), "lcd command=%02x", byte(c))
}

func (self *LCD) Data(b byte) error {
	return errors.Annotatef(self.SendByte(b, true), "lcd data=%02x", b)
}

func (self *LCD) Write(bs []byte) error {
	for _, b := range bs {
		if err := self.Data(b); err != nil {
			return err
		}
	}
	return nil
}

// Clear waits until controller is ready to accept next instruction.
func (self *LCD) Clear() error {
	if err := self.Command(CommandClear); err != nil {
		return err
	}
	self.clock.Sleep(DelayClear)
	return nil
}

func (self *LCD) SetEntryMode(increment, shift bool) error {
	cmd := CommandEntryMode
	if increment {
		cmd |= Command(entryIncrement)
	}
	if shift {
		cmd |= Command(entryShift)
	}
	return self.Command(cmd)
}

func (self *LCD) Control() Control { return self.control }

func (self *LCD) SetControl(new Control) (Control, error) {
	old := self.control
	if err := self.Command(CommandControl | Command(new)); err != nil {
		return old, err
	}
	self.control = new
	return old, nil
}

func (self *LCD) SetFunction(bits8, twoLine bool) error {
	cmd := CommandFunction
	if bits8 {
		cmd |= Command(function8bit)
	}
	if twoLine {
		cmd |= Command(functionTwoLine)
	}
	return self.Command(cmd)
}

// SetCursor clamps line to [0,1] and column to [0,15].
func (self *LCD) SetCursor(line, column uint8) error {
	if line >= Lines {
		line = Lines - 1
	}
	if column >= Columns {
		column = Columns - 1
	}
	addr := line*ddramWidth + column
	return self.Command(CommandAddress | Command(addr))
}

func (self *LCD) Backlight() bool { return self.backlight != 0 }

// SetBacklight writes port right away, no pending command needed.
func (self *LCD) SetBacklight(on bool) error {
	if on {
		self.backlight = MaskBacklight
	} else {
		self.backlight = 0
	}
	return errors.Annotatef(self.port.Write(self.backlight), "lcd backlight=%t", on)
}
