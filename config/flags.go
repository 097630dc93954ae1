package config

import (
	"github.com/spf13/pflag"
)

// Flags are the command-line settings layered over the config file.
type Flags struct {
	Path     string
	LogLevel string
	Width    int
	Height   int

	set *pflag.FlagSet
}

// RegisterFlags adds --config, --log-level, --width and --height to fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{set: fs}
	fs.StringVarP(&f.Path, "config", "c", "", "TOML configuration file")
	fs.StringVar(&f.LogLevel, "log-level", "", "debug, info, warn or error (overrides the config file)")
	fs.IntVar(&f.Width, "width", 0, "window width (overrides the config file)")
	fs.IntVar(&f.Height, "height", 0, "window height (overrides the config file)")
	return f
}

// Apply copies the flags given on the command line into c. Flags left unset
// keep the values c already has.
func (f *Flags) Apply(c *Config) {
	if f.set.Changed("log-level") {
		c.Log.Level = f.LogLevel
	}
	if f.set.Changed("width") {
		c.Window.Width = f.Width
	}
	if f.set.Changed("height") {
		c.Window.Height = f.Height
	}
}

// Load reads the --config file, or starts from the defaults when none is
// given, applies the other flags and validates the result.
func (f *Flags) Load() (Config, error) {
	cfg := Default()
	if f.Path != "" {
		var err error
		if cfg, err = read(f.Path); err != nil {
			return Config{}, err
		}
	}
	f.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
