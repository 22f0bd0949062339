// Package keypad scans 4x3 matrix keypad wired to GPIO character device:
// rows are outputs driven low one at a time, columns are inputs pulled up.
package keypad

import (
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
	"github.com/temoto/pinpad/helpers"
	"github.com/temoto/pinpad/internal/types"
)

const (
	Rows    = 4
	Columns = 3

	DefaultDebounce     = 20 * time.Millisecond
	DefaultReleasePoll  = 10 * time.Millisecond
	DefaultScanInterval = 10 * time.Millisecond

	consumerLabel = "pinpad"

	Tag = "keypad"
)

var KeyMatrix = [Rows][Columns]types.Key{
	{'1', '2', '3'},
	{'4', '5', '6'},
	{'7', '8', '9'},
	{'*', '0', '#'},
}

const (
	levelLow  byte = 0
	levelHigh byte = 1
)

type Keypad struct {
	Debounce     time.Duration
	ReleasePoll  time.Duration
	ScanInterval time.Duration

	clock  helpers.Clock
	chip   gpio.Chiper // only when Open created chip
	rows   gpio.Lineser
	cols   gpio.Lineser
	rowSet []gpio.LineSetFunc
	closed uint32
}

// Open requests row lines as outputs (all high) and column lines as inputs.
// Column pull-ups must be provided by board or device tree.
func Open(chipPath string, rows, cols []uint32, clock helpers.Clock) (*Keypad, error) {
	chip, err := gpio.Open(chipPath, consumerLabel)
	if err != nil {
		return nil, errors.Annotatef(err, "keypad chip=%s", chipPath)
	}
	kp, err := NewChip(chip, rows, cols, clock)
	if err != nil {
		_ = chip.Close()
		return nil, err
	}
	kp.chip = chip
	return kp, nil
}

func NewChip(chip gpio.Chiper, rows, cols []uint32, clock helpers.Clock) (*Keypad, error) {
	if len(rows) != Rows || len(cols) != Columns {
		return nil, errors.NotValidf("keypad rows=%v cols=%v expected %dx%d", rows, cols, Rows, Columns)
	}
	rowLines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, consumerLabel+"-rows", rows...)
	if err != nil {
		return nil, errors.Annotatef(err, "keypad rows=%v", rows)
	}
	colLines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_INPUT, consumerLabel+"-cols", cols...)
	if err != nil {
		_ = rowLines.Close()
		return nil, errors.Annotatef(err, "keypad cols=%v", cols)
	}
	kp, err := New(rowLines, colLines, clock)
	if err != nil {
		_ = rowLines.Close()
		_ = colLines.Close()
		return nil, err
	}
	return kp, nil
}

// New takes ownership of both line handles and drives all rows high.
func New(rows, cols gpio.Lineser, clock helpers.Clock) (*Keypad, error) {
	if clock == nil {
		clock = helpers.SystemClock{}
	}
	rowOffsets, colOffsets := rows.LineOffsets(), cols.LineOffsets()
	if len(rowOffsets) != Rows || len(colOffsets) != Columns {
		return nil, errors.NotValidf("keypad lines rows=%v cols=%v", rowOffsets, colOffsets)
	}
	self := &Keypad{
		Debounce:     DefaultDebounce,
		ReleasePoll:  DefaultReleasePoll,
		ScanInterval: DefaultScanInterval,
		clock:        clock,
		rows:         rows,
		cols:         cols,
		rowSet:       make([]gpio.LineSetFunc, Rows),
	}
	for i, offset := range rowOffsets {
		self.rowSet[i] = rows.SetFunc(offset)
	}
	if err := self.driveRow(-1); err != nil {
		return nil, err
	}
	return self, nil
}

func (self *Keypad) String() string { return Tag }

// GetKey blocks until one key is pressed, debounced and released.
// Returns KeyNone when timeout (measured by monotonic clock) expires.
func (self *Keypad) GetKey(timeout time.Duration) (types.Key, error) {
	start := self.clock.Now()
	for {
		key, err := self.Scan()
		if err != nil || key != types.KeyNone {
			return key, err
		}
		if timeout > 0 && helpers.Since(self.clock, start) >= timeout {
			return types.KeyNone, nil
		}
		self.clock.Sleep(self.ScanInterval)
	}
}

// Scan makes one full pass over the matrix. All rows are high on return.
func (self *Keypad) Scan() (types.Key, error) {
	if self.isClosed() {
		return types.KeyNone, errors.Annotate(gpio.ErrClosed, "keypad")
	}
	for row := 0; row < Rows; row++ {
		if err := self.driveRow(row); err != nil {
			return types.KeyNone, err
		}
		col, err := self.lowColumn(-1)
		if err != nil {
			return types.KeyNone, err
		}
		if col < 0 {
			continue
		}

		self.clock.Sleep(self.Debounce)
		if col, err = self.lowColumn(col); err != nil {
			return types.KeyNone, err
		}
		if col < 0 {
			// bounce or noise
			continue
		}
		if err = self.waitRelease(col); err != nil {
			return types.KeyNone, err
		}
		if err = self.driveRow(-1); err != nil {
			return types.KeyNone, err
		}
		return KeyMatrix[row][col], nil
	}
	return types.KeyNone, self.driveRow(-1)
}

// Close drives rows high and releases lines. Safe to call many times.
func (self *Keypad) Close() error {
	if !atomic.CompareAndSwapUint32(&self.closed, 0, 1) {
		return nil
	}
	errs := []error{
		self.driveRowUnchecked(-1),
		self.rows.Close(),
		self.cols.Close(),
	}
	if self.chip != nil {
		errs = append(errs, self.chip.Close())
	}
	return errors.Annotate(helpers.FoldErrors(errs), "keypad close")
}

func (self *Keypad) isClosed() bool { return atomic.LoadUint32(&self.closed) != 0 }

// driveRow sets `row` low and others high, row=-1 sets all high.
func (self *Keypad) driveRow(row int) error {
	if self.isClosed() {
		return errors.Annotate(gpio.ErrClosed, "keypad")
	}
	return self.driveRowUnchecked(row)
}

func (self *Keypad) driveRowUnchecked(row int) error {
	for i, set := range self.rowSet {
		if i == row {
			set(levelLow)
		} else {
			set(levelHigh)
		}
	}
	return errors.Annotatef(self.rows.Flush(), "keypad drive row=%d", row)
}

// lowColumn returns index of first low column, or -1.
// only>=0 checks just that column.
func (self *Keypad) lowColumn(only int) (int, error) {
	data, err := self.cols.Read()
	if err != nil {
		return -1, errors.Annotate(err, "keypad read columns")
	}
	// values come in requested line order
	for col := 0; col < Columns; col++ {
		if only >= 0 && col != only {
			continue
		}
		if data.Values[col] == levelLow {
			return col, nil
		}
	}
	return -1, nil
}

// Stuck low column blocks here until Close.
func (self *Keypad) waitRelease(col int) error {
	for {
		if self.isClosed() {
			return errors.Annotate(gpio.ErrClosed, "keypad wait release")
		}
		self.clock.Sleep(self.ReleasePoll)
		c, err := self.lowColumn(col)
		if err != nil {
			return err
		}
		if c < 0 {
			return nil
		}
	}
}
