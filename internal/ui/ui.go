// Package ui runs pin entry session: digits entry, confirmation,
// submission to sink and backlight power-save on inactivity.
package ui

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/pinpad/helpers"
	"github.com/temoto/pinpad/internal/state"
	"github.com/temoto/pinpad/internal/types"
	ui_config "github.com/temoto/pinpad/internal/ui/config"
)

const (
	DefaultTick   = 500 * time.Millisecond
	DefaultIdle   = 60 * time.Second
	DefaultSubmit = 10 * time.Second
	DefaultDone   = 1500 * time.Millisecond
	DefaultError  = 2 * time.Second

	MaxDigits = 4
	Filler    = '_'
)

const (
	MsgEnter       = "Enter number..."
	MsgHint        = "*:Del #:OK"
	MsgNumber      = "Number: %s"
	MsgConfirm     = "Confirm? %s"
	MsgConfirmHint = "*:No #:Yes"
	MsgSending     = "Sending..."
	MsgDone        = "Done"
	MsgError       = "Error"
)

type Display interface {
	RenderText(text string, line uint8) error
	SetBacklight(on bool) error
	Backlight() bool
	Clear() error
}

type UI struct { //nolint:maligned
	config       *ui_config.Config
	g            *state.Global
	state        State
	display      Display
	keys         types.KeySource
	buf          []byte
	backlight    bool
	lastActivity time.Time

	tick      time.Duration
	idle      time.Duration
	submit    time.Duration
	doneHold  time.Duration
	errorHold time.Duration

	shutdownOnce sync.Once
	shutdownErr  error

	XXX_testHook func(State)
}

func (self *UI) Init(ctx context.Context) error {
	self.g = state.GetGlobal(ctx)
	self.config = &self.g.Config.UI
	self.setState(StateEntryBegin)

	if self.config.MsgEnter == "" {
		self.config.MsgEnter = MsgEnter
	}
	if self.config.MsgHint == "" {
		self.config.MsgHint = MsgHint
	}
	if self.config.MsgNumber == "" {
		self.config.MsgNumber = MsgNumber
	}
	if self.config.MsgConfirm == "" {
		self.config.MsgConfirm = MsgConfirm
	}
	if self.config.MsgConfirmHint == "" {
		self.config.MsgConfirmHint = MsgConfirmHint
	}
	if self.config.MsgSending == "" {
		self.config.MsgSending = MsgSending
	}
	if self.config.MsgDone == "" {
		self.config.MsgDone = MsgDone
	}
	if self.config.MsgError == "" {
		self.config.MsgError = MsgError
	}
	self.tick = helpers.IntMillisecondDefault(self.config.TickMs, DefaultTick)
	self.idle = helpers.IntSecondDefault(self.config.IdleSec, DefaultIdle)
	self.submit = helpers.IntSecondDefault(self.config.SubmitSec, DefaultSubmit)
	self.doneHold = helpers.IntMillisecondDefault(self.config.DoneMs, DefaultDone)
	self.errorHold = helpers.IntMillisecondDefault(self.config.ErrorMs, DefaultError)

	display, err := self.g.Display()
	if err != nil {
		return errors.Annotate(err, "ui display")
	}
	if display == nil {
		return errors.NotFoundf("ui display (hardware.lcd disabled?)")
	}
	self.display = display
	keys, err := self.g.Keys()
	if err != nil {
		return errors.Annotate(err, "ui keys")
	}
	if keys == nil {
		return errors.NotFoundf("ui key source (no hardware.keypad or input enabled)")
	}
	self.keys = keys
	if self.g.Sink == nil || self.g.Journal == nil {
		return errors.Errorf("code error ui.Init before state.Init")
	}

	self.buf = make([]byte, 0, MaxDigits)
	self.backlight = self.display.Backlight()
	self.lastActivity = self.g.Clock.Now()
	return nil
}

// Buffer returns copy of entered digits.
func (self *UI) Buffer() string { return string(self.buf) }

// Shutdown clears display, turns backlight off and releases key lines.
// Only first call does the work, others return same result.
func (self *UI) Shutdown() error {
	self.shutdownOnce.Do(func() {
		self.g.Log.Debugf("ui shutdown")
		self.shutdownErr = self.g.CloseHardware()
		if self.shutdownErr != nil {
			self.g.Log.Errorf("ui shutdown err=%v", self.shutdownErr)
		}
	})
	return self.shutdownErr
}

// wait returns next key or KeyNone after tick.
// Any key counts as activity and wakes backlight.
func (self *UI) wait() (types.Key, error) {
	key, err := self.keys.GetKey(self.tick)
	if err != nil {
		return types.KeyNone, errors.Annotate(err, "ui keys")
	}
	if key.IsZero() {
		return key, nil
	}
	self.g.Log.Debugf("ui key=%s", key)
	self.lastActivity = self.g.Clock.Now()
	if !self.backlight {
		if err = self.setBacklight(true); err != nil {
			return key, err
		}
	}
	return key, nil
}

// idleCheck turns backlight off after continuous inactivity longer than idle.
func (self *UI) idleCheck() error {
	if self.backlight && helpers.Since(self.g.Clock, self.lastActivity) > self.idle {
		self.g.Log.Debugf("ui idle, backlight off")
		return self.setBacklight(false)
	}
	return nil
}

func (self *UI) setBacklight(on bool) error {
	if err := self.display.SetBacklight(on); err != nil {
		return errors.Annotatef(err, "ui backlight=%t", on)
	}
	self.backlight = on
	return nil
}

func (self *UI) render(text string) error {
	return errors.Annotate(self.display.RenderText(text, 0), "ui render")
}

// padded returns buffer right-padded with filler to MaxDigits.
func (self *UI) padded() string {
	b := make([]byte, MaxDigits)
	n := copy(b, self.buf)
	for i := n; i < MaxDigits; i++ {
		b[i] = Filler
	}
	return string(b)
}
