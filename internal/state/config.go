package state

import (
	"path/filepath"
	"sync"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/pinpad/hardware/expander"
	"github.com/temoto/pinpad/helpers"
	sink_config "github.com/temoto/pinpad/internal/sink/config"
	ui_config "github.com/temoto/pinpad/internal/ui/config"
	"github.com/temoto/pinpad/log2"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Hardware struct {
		Expander struct {
			Bus     string `hcl:"bus"`
			Address int    `hcl:"address"`
		}
		LCD struct {
			Enable   bool   `hcl:"enable"`
			Width    int    `hcl:"width"`
			Codepage string `hcl:"codepage"`
		} `hcl:"lcd"`
		Keypad struct {
			Enable         bool   `hcl:"enable"`
			PinChip        string `hcl:"pin_chip"`
			Rows           []int  `hcl:"rows"`
			Cols           []int  `hcl:"cols"`
			DebounceMs     int    `hcl:"debounce_ms"`
			ReleasePollMs  int    `hcl:"release_poll_ms"`
			ScanIntervalMs int    `hcl:"scan_interval_ms"`
		}
		Input struct {
			DevInputEvent struct {
				Enable bool   `hcl:"enable"`
				Device string `hcl:"device"`
			} `hcl:"dev_input_event"`
		}
	}

	UI      ui_config.Config   `hcl:"ui"`
	Sink    sink_config.Config `hcl:"sink"`
	Journal struct {
		PersistPath string `hcl:"persist_path"`
	}
	LogDebug bool `hcl:"log_debug"`

	_copy_guard sync.Mutex //nolint:unused
}

func (c *Config) KeypadLines() (rows, cols []uint32) {
	conv := func(xs []int) []uint32 {
		us := make([]uint32, len(xs))
		for i, x := range xs {
			us[i] = uint32(x)
		}
		return us
	}
	return conv(c.Hardware.Keypad.Rows), conv(c.Hardware.Keypad.Cols)
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) ExpanderAddress() uint16 {
	if c.Hardware.Expander.Address <= 0 {
		return expander.DefaultAddress
	}
	return uint16(c.Hardware.Expander.Address)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		// content is not logged, may contain secrets
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
