package lcd

import (
	"fmt"
	"sync"
)

func NewMockTextDisplay(width uint16) (*TextDisplay, *MockDevicer) {
	dev := &MockDevicer{backlight: true}
	display, err := NewTextDisplay(width, "")
	if err != nil {
		panic(err)
	}
	display.dev = dev
	return display, dev
}

// MockDevicer keeps screen content in memory.
// OnWrite, if set, is called with current screen after each write or clear.
type MockDevicer struct {
	mu        sync.Mutex
	lines     [Lines][]byte
	line, col uint8
	backlight bool
	clears    int
	Err       error
	OnWrite   func(screen string)
}

func (self *MockDevicer) Clear() error {
	self.mu.Lock()
	if self.Err != nil {
		defer self.mu.Unlock()
		return self.Err
	}
	self.lines[0], self.lines[1] = nil, nil
	self.line, self.col = 0, 0
	self.clears++
	self.mu.Unlock()
	self.notify()
	return nil
}

func (self *MockDevicer) SetCursor(line, column uint8) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if line >= Lines {
		line = Lines - 1
	}
	self.line, self.col = line, column
	return self.Err
}

func (self *MockDevicer) Write(b []byte) error {
	self.mu.Lock()
	if self.Err != nil {
		defer self.mu.Unlock()
		return self.Err
	}
	l := self.lines[self.line]
	for len(l) < int(self.col) {
		l = append(l, ' ')
	}
	l = append(l[:self.col], b...)
	self.lines[self.line] = l
	self.col += uint8(len(b))
	self.mu.Unlock()
	self.notify()
	return nil
}

func (self *MockDevicer) SetBacklight(on bool) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.Err != nil {
		return self.Err
	}
	self.backlight = on
	return nil
}

func (self *MockDevicer) Backlight() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.backlight
}

func (self *MockDevicer) Clears() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.clears
}

func (self *MockDevicer) SetErr(err error) {
	self.mu.Lock()
	self.Err = err
	self.mu.Unlock()
}

func (self *MockDevicer) Line(i int) string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return string(self.lines[i])
}

func (self *MockDevicer) String() string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return fmt.Sprintf("%s\n%s", string(self.lines[0]), string(self.lines[1]))
}

func (self *MockDevicer) notify() {
	if self.OnWrite != nil {
		self.OnWrite(self.String())
	}
}
