// Package expander drives PCF8574 style 8-bit I2C port expander.
// The chip has no registers: a one byte write sets all output latches,
// a one byte read samples all pins.
package expander

import (
	"fmt"
	"sync"

	"github.com/juju/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

const DefaultAddress uint16 = 0x27

// TransportError means bus rejected transfer.
// There is no safe recovery without display re-init, callers treat it as fatal.
type TransportError struct {
	Op   string
	Addr uint16
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("expander %s addr=%02x: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func IsTransport(err error) bool {
	_, ok := errors.Cause(err).(*TransportError)
	return ok
}

type Port struct {
	mu    sync.Mutex
	dev   i2c.Dev
	bus   i2c.BusCloser // only when Open created bus
	state byte
}

// Open initializes periph host drivers and opens I2C bus by name,
// like "1" or "/dev/i2c-1". Empty name selects first available bus.
func Open(busName string, addr uint16) (*Port, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Annotatef(err, "i2c open bus=%s", busName)
	}
	p := New(bus, addr)
	p.bus = bus
	return p, nil
}

func New(bus i2c.Bus, addr uint16) *Port {
	return &Port{dev: i2c.Dev{Bus: bus, Addr: addr}}
}

func (self *Port) Addr() uint16 { return self.dev.Addr }

// Write sends full byte and remembers it as current state.
func (self *Port) Write(b byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if err := self.dev.Tx([]byte{b}, nil); err != nil {
		return &TransportError{Op: "write", Addr: self.dev.Addr, Err: err}
	}
	self.state = b
	return nil
}

// Read returns last sampled pin levels.
func (self *Port) Read() (byte, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	var buf [1]byte
	if err := self.dev.Tx(nil, buf[:]); err != nil {
		return 0, &TransportError{Op: "read", Addr: self.dev.Addr, Err: err}
	}
	return buf[0], nil
}

// State returns last successfully written value.
func (self *Port) State() byte {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.state
}

func (self *Port) Close() error {
	if self.bus == nil {
		return nil
	}
	return errors.Annotate(self.bus.Close(), "i2c close")
}
