package config

import "flag"

// Flags holds the command-line overrides shared by every rmftool command.
type Flags struct {
	Config  string
	Debug   bool
	Format  string
	Select  string
	LogFile string
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Format, "format", "", "Output format: text or yaml")
	fs.StringVar(&f.Select, "select", "", "Selection expression, e.g. \"region == 'body'\"")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Format != "" {
		cfg.Output.Format = f.Format
	}
	if f.Select != "" {
		cfg.Filter.Select = f.Select
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}
