package ui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/pinpad/internal/types"
)

type State uint32

const (
	StateDefault State = iota

	StateEntryBegin // t=onstart/after submit +=Entry
	StateEntry      // t=key/timeout +key*=Entry +keyDigit=Entry +key#=Confirm +timeout=idle check
	StateConfirm    // t=key/timeout +key#=Submit +key*=Entry
	StateSubmit     // t=sink +OK=EntryBegin +err=journal,EntryBegin

	StateStop
)

func (s State) String() string {
	switch s {
	case StateDefault:
		return "Default"
	case StateEntryBegin:
		return "EntryBegin"
	case StateEntry:
		return "Entry"
	case StateConfirm:
		return "Confirm"
	case StateSubmit:
		return "Submit"
	case StateStop:
		return "Stop"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

func (self *UI) State() State       { return State(atomic.LoadUint32((*uint32)(&self.state))) }
func (self *UI) setState(new State) { atomic.StoreUint32((*uint32)(&self.state), uint32(new)) }

// Loop runs until g.Alive is stopped or hardware fails.
// Hardware is released on return.
func (self *UI) Loop(ctx context.Context) error {
	if !self.g.Alive.Add(1) {
		return nil
	}
	defer self.g.Alive.Done()
	defer func() { _ = self.Shutdown() }()

	next := StateDefault
	for next != StateStop && self.g.Alive.IsRunning() {
		current := self.State()
		var err error
		next, err = self.enter(ctx, current)
		if err != nil {
			self.setState(StateStop)
			if !self.g.Alive.IsRunning() {
				// key source closed by shutdown
				self.g.Log.Debugf("ui stopping err=%v", err)
				return nil
			}
			return errors.Annotatef(err, "ui state=%s", current)
		}
		if next == StateDefault {
			return errors.Errorf("code error ui state=%s next=default", current)
		}
		self.g.Log.Debugf("ui %s -> %s", current, next)

		if !self.g.Alive.IsRunning() {
			self.g.Log.Debugf("ui Loop stopping because g.Alive")
			next = StateStop
		}

		self.setState(next)
		if self.XXX_testHook != nil {
			self.XXX_testHook(next)
		}
	}
	self.g.Log.Debugf("ui loop end")
	return nil
}

func (self *UI) enter(ctx context.Context, s State) (State, error) {
	switch s {
	case StateEntryBegin:
		return self.onEntryBegin()
	case StateEntry:
		return self.onEntry()
	case StateConfirm:
		return self.onConfirm()
	case StateSubmit:
		return self.onSubmit(ctx)
	case StateStop:
		return StateStop, nil
	}
	return StateDefault, errors.Errorf("code error unhandled ui state=%s", s)
}

func (self *UI) onEntryBegin() (State, error) {
	self.buf = self.buf[:0]
	self.lastActivity = self.g.Clock.Now()
	if err := self.setBacklight(true); err != nil {
		return StateDefault, err
	}
	if err := self.render(self.config.MsgEnter + "\n" + self.config.MsgHint); err != nil {
		return StateDefault, err
	}
	return StateEntry, nil
}

func (self *UI) onEntry() (State, error) {
	for self.g.Alive.IsRunning() {
		key, err := self.wait()
		if err != nil {
			return StateDefault, err
		}
		switch {
		case key.IsZero():
			if err = self.idleCheck(); err != nil {
				return StateDefault, err
			}
			continue

		case key == types.KeyAccept:
			text := fmt.Sprintf(self.config.MsgConfirm, string(self.buf)) + "\n" + self.config.MsgConfirmHint
			if err = self.render(text); err != nil {
				return StateDefault, err
			}
			return StateConfirm, nil

		case key == types.KeyDelete:
			if len(self.buf) > 0 {
				self.buf = self.buf[:len(self.buf)-1]
			}

		case key.IsDigit() && len(self.buf) < MaxDigits:
			self.buf = append(self.buf, byte(key))
		}

		if err = self.renderNumber(); err != nil {
			return StateDefault, err
		}
	}
	return StateStop, nil
}

// onConfirm has no idle timeout of its own.
func (self *UI) onConfirm() (State, error) {
	for self.g.Alive.IsRunning() {
		key, err := self.wait()
		if err != nil {
			return StateDefault, err
		}
		switch key {
		case types.KeyAccept:
			return StateSubmit, nil
		case types.KeyDelete:
			// buffer is kept, user may correct and confirm again
			if err = self.renderNumber(); err != nil {
				return StateDefault, err
			}
			return StateEntry, nil
		}
	}
	return StateStop, nil
}

// Key sources reading in background, see input.Dispatch.
type flusher interface{ Flush() }

// onSubmit makes exactly one sink attempt bounded by submit timeout.
// Sink failure is shown as constant message, never raw error text.
func (self *UI) onSubmit(ctx context.Context) (State, error) {
	identifier := string(self.buf)
	if err := self.render(self.config.MsgSending); err != nil {
		return StateDefault, err
	}

	sctx, cancel := context.WithTimeout(ctx, self.submit)
	err := self.g.Sink.Append(sctx, identifier)
	cancel()
	if err != nil {
		self.g.Journal.Record(identifier, err)
		if err = self.render(self.config.MsgError); err != nil {
			return StateDefault, err
		}
		self.hold(self.errorHold)
		return StateEntryBegin, nil
	}

	self.g.Log.Infof("ui submitted identifier=%s", identifier)
	if err = self.render(self.config.MsgDone); err != nil {
		return StateDefault, err
	}
	self.hold(self.doneHold)
	return StateEntryBegin, nil
}

// hold keeps result message on screen. Keys pressed meanwhile
// and buffered by background readers are dropped.
func (self *UI) hold(d time.Duration) {
	if self.g.Alive.IsRunning() {
		self.g.Clock.Sleep(d)
	}
	if f, ok := self.keys.(flusher); ok {
		f.Flush()
	}
}

func (self *UI) renderNumber() error {
	return self.render(fmt.Sprintf(self.config.MsgNumber, self.padded()) + "\n" + self.config.MsgHint)
}
