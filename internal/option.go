package internal

import "log/slog"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	run    RunOptions
	logger *slog.Logger
}

// RunOptions are the per-invocation switches taken from the command line.
type RunOptions struct {
	// Input is a directory or file. Empty means the whole vault.
	Input       string
	DryRun      bool
	RetryFailed bool
	Force       bool
	NoSummary   bool
	// Template forces a template type on every note.
	Template string
	// Banner forces a banner on every note.
	Banner  string
	Watch   bool
	Verbose bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRunOptions sets the command line switches.
func WithRunOptions(opts RunOptions) Option {
	return func(a *application) {
		a.run = opts
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}
