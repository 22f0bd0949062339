package input

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/inputevent-go"
	"github.com/temoto/pinpad/internal/types"
)

const DevInputEventTag = "dev-input-event"

var ErrClosed = errors.New("input source closed")

// linux/input-event-codes.h
const (
	evKey = 0x01

	keyBackspace  = 14
	keyEnter      = 28
	keyKPAsterisk = 55
	keyKPEnter    = 96
)

var evdevKeys = map[uint16]types.Key{
	2: '1', 3: '2', 4: '3', 5: '4', 6: '5', 7: '6', 8: '7', 9: '8', 10: '9', 11: '0',
	71: '7', 72: '8', 73: '9',
	75: '4', 76: '5', 77: '6',
	79: '1', 80: '2', 81: '3',
	82: '0',

	keyKPAsterisk: types.KeyDelete,
	keyBackspace:  types.KeyDelete,
	keyKPEnter:    types.KeyAccept,
	keyEnter:      types.KeyAccept,
}

// DevInputEventSource reads USB numpad or keyboard via Linux evdev.
// Only key down events of digits, delete and enter produce keys.
type DevInputEventSource struct {
	f    io.ReadCloser
	ch   chan types.Key
	err  error
	stop chan struct{}
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

var _ Source = new(DevInputEventSource)

func (self *DevInputEventSource) String() string { return DevInputEventTag }

func NewDevInputEventSource(device string) (*DevInputEventSource, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Annotatef(err, "%s device=%s", DevInputEventTag, device)
	}
	return NewDevInputEventReader(f), nil
}

func NewDevInputEventReader(r io.ReadCloser) *DevInputEventSource {
	self := &DevInputEventSource{
		f:    r,
		ch:   make(chan types.Key),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go self.run()
	return self
}

func (self *DevInputEventSource) GetKey(timeout time.Duration) (types.Key, error) {
	var tmr <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		tmr = t.C
	}
	select {
	case key, ok := <-self.ch:
		if !ok {
			return types.KeyNone, self.err
		}
		return key, nil
	case <-tmr:
		return types.KeyNone, nil
	}
}

func (self *DevInputEventSource) Close() error {
	self.closeOnce.Do(func() {
		close(self.stop)
		self.closeErr = self.f.Close()
		<-self.done
	})
	return self.closeErr
}

func (self *DevInputEventSource) run() {
	defer close(self.done)
	defer close(self.ch)
	for {
		ie, err := inputevent.ReadOne(self.f)
		if err != nil {
			select {
			case <-self.stop:
				self.err = ErrClosed
			default:
				self.err = errors.Annotate(err, DevInputEventTag)
			}
			return
		}
		if ie.Type != evKey || ie.Value != int32(inputevent.KeyStateDown) {
			continue
		}
		if key, ok := evdevKeys[ie.Code]; ok {
			select {
			case self.ch <- key:
			case <-self.stop:
				self.err = ErrClosed
				return
			}
		}
	}
}
