package types

import (
	"io"
	"time"
)

type Key byte

const (
	KeyNone   Key = 0
	KeyDelete Key = '*'
	KeyAccept Key = '#'
)

func (k Key) IsZero() bool  { return k == KeyNone }
func (k Key) IsDigit() bool { return k >= '0' && k <= '9' }

func (k Key) String() string {
	if k == KeyNone {
		return "none"
	}
	return string(rune(k))
}

// KeySource returns KeyNone when nothing was pressed within timeout.
// timeout<=0 waits indefinitely.
type KeySource interface {
	io.Closer
	GetKey(timeout time.Duration) (Key, error)
}

// ParseKey accepts one of "0123456789*#".
func ParseKey(r rune) (Key, bool) {
	switch {
	case r >= '0' && r <= '9', r == '*', r == '#':
		return Key(r), true
	}
	return KeyNone, false
}
