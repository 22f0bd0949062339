// Package input provides key sources besides matrix keypad
// and merges several sources into one.
package input

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/pinpad/helpers"
	"github.com/temoto/pinpad/internal/types"
	"github.com/temoto/pinpad/log2"
)

const DispatchPoll = 100 * time.Millisecond

type Source interface {
	types.KeySource
	String() string
}

type event struct {
	key    types.Key
	err    error
	source string
}

// Dispatch reads all sources concurrently and serves keys from any of them.
// First source error is returned from GetKey.
// Each reader goroutine may hold one key read while nobody waits in GetKey,
// use Flush to drop those.
type Dispatch struct {
	Log     *log2.Log
	alive   *alive.Alive
	bus     chan event
	pending *event // source error seen by Flush
	sources []Source
}

var _ types.KeySource = new(Dispatch)

func NewDispatch(log *log2.Log, sources ...Source) *Dispatch {
	self := &Dispatch{
		Log:     log,
		alive:   alive.NewAlive(),
		bus:     make(chan event),
		sources: sources,
	}
	for _, source := range sources {
		if self.alive.Add(1) {
			go self.readSource(source)
		}
	}
	return self
}

func (self *Dispatch) GetKey(timeout time.Duration) (types.Key, error) {
	if e := self.pending; e != nil {
		self.pending = nil
		return types.KeyNone, errors.Annotatef(e.err, "input source=%s", e.source)
	}
	var tmr <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		tmr = t.C
	}
	select {
	case e := <-self.bus:
		if e.err != nil {
			return types.KeyNone, errors.Annotatef(e.err, "input source=%s", e.source)
		}
		self.Log.Debugf("input source=%s key=%s", e.source, e.key)
		return e.key, nil
	case <-tmr:
		return types.KeyNone, nil
	case <-self.alive.StopChan():
		return types.KeyNone, errors.Annotate(ErrClosed, "input dispatch")
	}
}

// Flush drops keys already read by sources. Not safe to call concurrently with GetKey.
func (self *Dispatch) Flush() {
	for {
		select {
		case e := <-self.bus:
			if e.err != nil {
				self.pending = &e
				return
			}
			self.Log.Debugf("input source=%s key=%s dropped", e.source, e.key)
		default:
			return
		}
	}
}

func (self *Dispatch) Close() error {
	self.alive.Stop()
	errs := make([]error, 0, len(self.sources))
	for _, source := range self.sources {
		errs = append(errs, source.Close())
	}
	self.alive.Wait()
	return helpers.FoldErrors(errs)
}

func (self *Dispatch) readSource(source Source) {
	defer self.alive.Done()
	tag := source.String()
	stopch := self.alive.StopChan()
	for self.alive.IsRunning() {
		key, err := source.GetKey(DispatchPoll)
		if err == nil && key == types.KeyNone {
			continue
		}
		select {
		case self.bus <- event{key: key, err: err, source: tag}:
		case <-stopch:
			return
		}
		if err != nil {
			return
		}
	}
}
