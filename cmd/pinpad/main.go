package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/temoto/pinpad/cmd/pinpad/kiosk"
	"github.com/temoto/pinpad/cmd/pinpad/lcdtest"
	"github.com/temoto/pinpad/cmd/pinpad/subcmd"
	"github.com/temoto/pinpad/internal/state"
	"github.com/temoto/pinpad/log2"
)

var BuildVersion string = "unknown" // set by ldflags -X

var modules = []subcmd.Mod{
	kiosk.Mod,
	kiosk.DevMod,
	lcdtest.Mod,
}

const stopTimeout = 5 * time.Second

func main() {
	flagConfig := flag.String("config", "kiosk.hcl", "")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [option] [command]\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "Commands (default kiosk):\n")
		for _, m := range modules {
			fmt.Fprintf(flag.CommandLine.Output(), "  %-10s %s\n", m.Name, m.Usage)
		}
	}
	flag.Parse()

	log := log2.NewStderr(log2.LDebug)
	if subcmd.SdNotify("start") {
		// under systemd assume journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	command := flag.Arg(0)
	if command == "" {
		command = kiosk.Mod.Name
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		flag.Usage()
		log.Fatal(err)
	}
	var args []string
	if flag.NArg() > 1 {
		args = flag.Args()[1:]
	}

	ctx, g := state.NewContext(log)
	g.BuildVersion = BuildVersion
	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	subcmd.StopOnSignal(g, stopTimeout)

	log.Debugf("pinpad version=%s running command=%s", BuildVersion, mod.Name)
	if err := mod.Main(ctx, config, args); err != nil {
		// releases hardware, exit code 1
		g.Fatal(err)
	}
	subcmd.SdNotify(daemon.SdNotifyStopping)
	g.StopWait(stopTimeout)
	g.Error(g.Close(), "close")
	log.Debugf("pinpad stopped")
}
