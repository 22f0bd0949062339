package input

import (
	"sync"
	"time"

	"github.com/temoto/pinpad/internal/types"
)

const ConsoleTag = "console"

// ConsoleSource turns typed text into keys, for development without keypad.
type ConsoleSource struct {
	ch   chan types.Key
	stop chan struct{}
	once sync.Once
}

var _ Source = new(ConsoleSource)

func NewConsoleSource() *ConsoleSource {
	return &ConsoleSource{
		ch:   make(chan types.Key, 64),
		stop: make(chan struct{}),
	}
}

func (self *ConsoleSource) String() string { return ConsoleTag }

// Feed queues every 0-9 * # rune of line, others are ignored.
// Returns number of queued keys.
func (self *ConsoleSource) Feed(line string) int {
	n := 0
	for _, r := range line {
		key, ok := types.ParseKey(r)
		if !ok {
			continue
		}
		select {
		case self.ch <- key:
			n++
		case <-self.stop:
			return n
		}
	}
	return n
}

func (self *ConsoleSource) GetKey(timeout time.Duration) (types.Key, error) {
	var tmr <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		tmr = t.C
	}
	select {
	case key := <-self.ch:
		return key, nil
	case <-tmr:
		return types.KeyNone, nil
	case <-self.stop:
		return types.KeyNone, ErrClosed
	}
}

func (self *ConsoleSource) Close() error {
	self.once.Do(func() { close(self.stop) })
	return nil
}
