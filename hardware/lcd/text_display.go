package lcd

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
)

const MaxWidth = 40

type Devicer interface {
	Clear() error
	SetCursor(line, column uint8) error
	Write(b []byte) error
	SetBacklight(on bool) error
	Backlight() bool
}

// TextDisplay renders whole screens. Every render clears first,
// long lines are truncated, never wrapped or scrolled.
type TextDisplay struct {
	mu    sync.Mutex
	dev   Devicer
	tr    atomic.Value
	width uint32
}

func NewTextDisplay(width uint16, codepage string) (*TextDisplay, error) {
	if width == 0 || width > MaxWidth {
		return nil, errors.NotValidf("display width=%d", width)
	}
	self := &TextDisplay{width: uint32(width)}
	if codepage != "" {
		if err := self.SetCodepage(codepage); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return self, nil
}

func (self *TextDisplay) SetCodepage(cp string) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	tr, err := charset.TranslatorTo(cp)
	if err != nil {
		return errors.Annotatef(err, "codepage=%s", cp)
	}
	self.tr.Store(tr)
	return nil
}

func (self *TextDisplay) SetDevice(dev Devicer) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.dev = dev
}

func (self *TextDisplay) Width() uint16 { return uint16(atomic.LoadUint32(&self.width)) }

func (self *TextDisplay) Clear() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.dev.Clear()
}

// RenderText with "\n" puts text before first separator on line 0
// and the rest on line 1, ignoring `line`.
func (self *TextDisplay) RenderText(text string, line uint8) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if err := self.dev.Clear(); err != nil {
		return err
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		if err := self.writeLine(0, text[:i]); err != nil {
			return err
		}
		return self.writeLine(1, text[i+1:])
	}
	if line >= Lines {
		line = Lines - 1
	}
	return self.writeLine(line, text)
}

func (self *TextDisplay) SetLines(line1, line2 string) error {
	return self.RenderText(line1+"\n"+line2, 0)
}

func (self *TextDisplay) SetBacklight(on bool) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.dev.SetBacklight(on)
}

func (self *TextDisplay) Backlight() bool {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.dev.Backlight()
}

func (self *TextDisplay) writeLine(line uint8, s string) error {
	b := self.Translate(s)
	if len(b) == 0 {
		return nil
	}
	if err := self.dev.SetCursor(line, 0); err != nil {
		return err
	}
	return self.dev.Write(b)
}

// Translate applies codepage and truncates to display width.
func (self *TextDisplay) Translate(s string) []byte {
	result := []byte(s)
	tr, ok := self.tr.Load().(charset.Translator)
	if ok && tr != nil && len(result) != 0 {
		_, tb, err := tr.Translate(result, true)
		if err == nil {
			// translator reuses single internal buffer, make a copy
			result = append([]byte(nil), tb...)
		}
	}
	if w := int(atomic.LoadUint32(&self.width)); len(result) > w {
		result = result[:w]
	}
	return result
}
