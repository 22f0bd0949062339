// Support sub-commands in pinpad application.
// It's simple but fine so far.
package subcmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/pinpad/internal/state"
	"golang.org/x/sys/unix"
)

type Mod struct {
	Name  string
	Usage string
	Main  func(context.Context, *state.Config, []string) error
}

func Parse(command string, modules []Mod) (*Mod, error) {
	if command == "" {
		return nil, fmt.Errorf("empty command")
	}

	var found *Mod
	for i := range modules {
		m := &modules[i]
		if m.Name == "" {
			panic(fmt.Sprintf("code error Name='' module=%#v", m))
		}
		if command == m.Name {
			found = m
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("unknown command='%s'", command)
	}
	return found, nil
}

func SdNotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}

// StopOnSignal stops g.Alive on SIGINT or SIGTERM.
// If tasks are not finished in timeout, hardware is released anyway,
// closed key lines unblock pending GetKey.
func StopOnSignal(g *state.Global, timeout time.Duration) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM)
	go func() {
		s := <-ch
		g.Log.Infof("signal=%v stopping", s)
		SdNotify(daemon.SdNotifyStopping)
		if !g.StopWait(timeout) {
			g.Log.Errorf("tasks not finished in %v, forcing hardware release", timeout)
			g.Error(g.CloseHardware(), "hardware release")
		}
	}()
}
