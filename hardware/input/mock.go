package input

import (
	"sync"
	"time"

	"github.com/temoto/pinpad/helpers"
	"github.com/temoto/pinpad/internal/types"
)

const MockTag = "mock"

// MockStep is one GetKey result.
// Fun runs and the next step is taken. Err is returned as is.
// Key zero is a timeout: clock moves by Wait, or by requested timeout when Wait is zero.
type MockStep struct {
	Key  types.Key
	Wait time.Duration
	Err  error
	Fun  func()
}

// MockSource replays steps in calling goroutine, so tests need no synchronization.
// When steps are exhausted, OnEnd is called once and every GetKey times out.
type MockSource struct {
	mu     sync.Mutex
	clock  *helpers.FakeClock
	steps  []MockStep
	closed bool
	ended  bool
	calls  int
	OnEnd  func()
}

var _ Source = new(MockSource)

func NewMockSource(clock *helpers.FakeClock, steps ...MockStep) *MockSource {
	return &MockSource{clock: clock, steps: steps}
}

func (self *MockSource) String() string { return MockTag }

// Push appends steps to the script.
func (self *MockSource) Push(steps ...MockStep) {
	self.mu.Lock()
	self.steps = append(self.steps, steps...)
	self.ended = false
	self.mu.Unlock()
}

func (self *MockSource) GetKey(timeout time.Duration) (types.Key, error) {
	for {
		self.mu.Lock()
		self.calls++
		if self.closed {
			self.mu.Unlock()
			return types.KeyNone, ErrClosed
		}
		if len(self.steps) == 0 {
			onEnd := self.OnEnd
			first := !self.ended
			self.ended = true
			self.mu.Unlock()
			if first && onEnd != nil {
				onEnd()
			}
			self.clock.Sleep(timeout)
			return types.KeyNone, nil
		}
		step := self.steps[0]
		self.steps = self.steps[1:]
		self.mu.Unlock()

		switch {
		case step.Fun != nil:
			step.Fun()
			continue
		case step.Err != nil:
			return types.KeyNone, step.Err
		case step.Key.IsZero():
			if step.Wait == 0 {
				step.Wait = timeout
			}
			self.clock.Sleep(step.Wait)
			return types.KeyNone, nil
		}
		return step.Key, nil
	}
}

// Calls returns number of GetKey calls, including steps with Fun.
func (self *MockSource) Calls() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.calls
}

func (self *MockSource) Closed() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.closed
}

func (self *MockSource) Close() error {
	self.mu.Lock()
	self.closed = true
	self.mu.Unlock()
	return nil
}

// MockKeys converts text like "12*#" into key steps.
func MockKeys(s string) []MockStep {
	steps := make([]MockStep, 0, len(s))
	for _, r := range s {
		if key, ok := types.ParseKey(r); ok {
			steps = append(steps, MockStep{Key: key})
		}
	}
	return steps
}
