package state

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/pinpad/helpers"
	"github.com/temoto/pinpad/internal/journal"
	"github.com/temoto/pinpad/internal/sink"
	"github.com/temoto/pinpad/log2"
)

type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Clock        helpers.Clock
	Config       *Config
	Hardware     hardware // hardware.go
	Journal      *journal.Journal
	Log          *log2.Log
	Sink         sink.Sink

	_copy_guard sync.Mutex //nolint:unused
}

const ContextKey = "run/state-global"

// NewContext returns context canceled by g.Stop.
func NewContext(log *log2.Log) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &Global{
		Alive: alive.NewAlive(),
		Clock: helpers.SystemClock{},
		Log:   log,
	}
	// stop cancels in-flight sink requests
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-g.Alive.StopChan()
		cancel()
	}()
	ctx = context.WithValue(ctx, ContextKey, g)
	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// Init opens journal, sink and hardware. Components already set
// (tests, dev mode) are kept as is.
// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	g.Log.Infof("build version=%s", g.BuildVersion)
	if !cfg.LogDebug {
		g.Log.SetLevel(log2.LInfo)
	}
	if g.Clock == nil {
		g.Clock = helpers.SystemClock{}
	}

	terminalId := uint32(cfg.Sink.TerminalId)
	if g.Journal == nil {
		j, err := journal.Open(g.Log.Clone(log2.LError), cfg.Journal.PersistPath, terminalId, g.Clock)
		if err != nil {
			return errors.Annotate(err, "journal init")
		}
		g.Journal = j
	}
	if g.Sink == nil {
		s, err := sink.New(ctx, &cfg.Sink, g.Log, g.Clock)
		if err != nil {
			return errors.Annotatef(err, "config: sink driver=%s", cfg.Sink.Driver)
		}
		g.Sink = s
	}
	if m, ok := g.Sink.(*sink.Mqtt); ok {
		// offline start is allowed, Append reconnects
		cctx, cancel := context.WithTimeout(ctx, sink.DefaultTimeout)
		if err := m.Connect(cctx); err != nil {
			g.Log.Errorf("sink mqtt initial connect err=%v", err)
		}
		cancel()
	}

	errs := make([]error, 0, 2)
	if _, err := g.Display(); err != nil {
		errs = append(errs, err)
	}
	if _, err := g.Keys(); err != nil {
		errs = append(errs, err)
	}
	return helpers.FoldErrors(errs)
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Fatal(err)
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(errors.ErrorStack(err))
	}
}

// Fatal releases hardware and exits process with code 1.
func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		g.Error(err, args...)
		g.StopWait(5 * time.Second)
		g.Error(g.Close())
		os.Exit(1)
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close releases hardware, sink and journal. Safe to call many times.
func (g *Global) Close() error {
	errs := []error{g.CloseHardware()}
	if g.Sink != nil {
		errs = append(errs, g.Sink.Close())
	}
	if g.Journal != nil {
		errs = append(errs, g.Journal.Close())
	}
	return helpers.FoldErrors(errs)
}
