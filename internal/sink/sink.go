// Package sink appends accepted identifiers to remote append-only log.
// Every Append is exactly one attempt, no retries inside.
package sink

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/pinpad/helpers"
	sink_config "github.com/temoto/pinpad/internal/sink/config"
	"github.com/temoto/pinpad/log2"
)

const DefaultTimeout = 10 * time.Second

type Sink interface {
	Append(ctx context.Context, identifier string) error
	Close() error
}

func New(ctx context.Context, config *sink_config.Config, log *log2.Log, clock helpers.Clock) (Sink, error) {
	if clock == nil {
		clock = helpers.SystemClock{}
	}
	if !config.LogDebug {
		log = log.Clone(log2.LInfo)
	}
	switch config.Driver {
	case "":
		// silent discard must be explicit
		return nil, errors.NotValidf("sink driver (empty, use %s to discard)", sink_config.DriverNoop)
	case sink_config.DriverNoop:
		return NewNoop(log), nil
	case sink_config.DriverMqtt:
		return NewMqtt(log, config, clock)
	case sink_config.DriverSheets:
		return NewSheets(ctx, log, config, clock)
	}
	return nil, errors.NotSupportedf("sink driver=%s", config.Driver)
}

// remaining returns time left until ctx deadline, or `def` without deadline.
func remaining(ctx context.Context, def time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}
	return def
}

type Noop struct{ log *log2.Log }

func NewNoop(log *log2.Log) *Noop { return &Noop{log: log} }

func (self *Noop) Append(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	self.log.Infof("sink noop identifier=%s", identifier)
	return nil
}

func (self *Noop) Close() error { return nil }
