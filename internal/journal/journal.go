// Package journal keeps record of failed submissions.
// With persist path configured, every failure is also stored in spq queue
// so it survives restart and can be taken out for manual processing.
package journal

import (
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/pinpad/helpers"
	"github.com/temoto/pinpad/internal/sink"
	"github.com/temoto/pinpad/log2"
	"github.com/temoto/spq"
)

type Failure struct {
	Entry                *sink.Entry `protobuf:"bytes,1,opt,name=entry,proto3" json:"entry,omitempty"`
	Error                string      `protobuf:"bytes,2,opt,name=error,proto3" json:"error,omitempty"`
	XXX_NoUnkeyedLiteral struct{}    `json:"-"`
	XXX_unrecognized     []byte      `json:"-"`
	XXX_sizecache        int32       `json:"-"`
}

func (m *Failure) Reset()         { *m = Failure{} }
func (m *Failure) String() string { return proto.CompactTextString(m) }
func (*Failure) ProtoMessage()    {}

type Journal struct {
	mu         sync.Mutex
	log        *log2.Log
	clock      helpers.Clock
	terminalId uint32
	q          *spq.Queue
	count      int
	last       error
	lastId     string
}

// Open with empty path keeps records in memory only.
func Open(log *log2.Log, path string, terminalId uint32, clock helpers.Clock) (*Journal, error) {
	if clock == nil {
		clock = helpers.SystemClock{}
	}
	self := &Journal{log: log, clock: clock, terminalId: terminalId}
	if path != "" {
		q, err := spq.Open(path)
		if err != nil {
			return nil, errors.Annotatef(err, "journal path=%s", path)
		}
		self.q = q
	}
	return self, nil
}

// Record never fails, persist problems are logged.
func (self *Journal) Record(identifier string, err error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.count++
	self.last = err
	self.lastId = identifier
	self.log.Errorf("journal identifier=%s count=%d err=%v", identifier, self.count, err)

	if self.q == nil {
		return
	}
	f := &Failure{Entry: sink.NewEntry(identifier, self.clock.Now(), self.terminalId)}
	if err != nil {
		f.Error = err.Error()
	}
	b, merr := proto.Marshal(f)
	if merr == nil {
		merr = self.q.Push(b)
	}
	if merr != nil {
		self.log.Errorf("journal persist err=%v", errors.ErrorStack(merr))
	}
}

func (self *Journal) Count() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.count
}

// Last returns most recent failure, nil error if none yet.
func (self *Journal) Last() (string, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.lastId, self.last
}

// Take removes oldest persisted failure. Blocks while queue is empty.
func (self *Journal) Take() (*Failure, error) {
	if self.q == nil {
		return nil, errors.NotSupportedf("journal without persist path")
	}
	box, err := self.q.Peek()
	if err != nil {
		return nil, errors.Annotate(err, "journal peek")
	}
	f := &Failure{}
	if err = proto.Unmarshal(box.Bytes(), f); err != nil {
		return nil, errors.Annotate(err, "journal decode")
	}
	return f, errors.Annotate(self.q.Delete(box), "journal delete")
}

func (self *Journal) Close() error {
	if self.q == nil {
		return nil
	}
	return errors.Annotate(self.q.Close(), "journal close")
}
