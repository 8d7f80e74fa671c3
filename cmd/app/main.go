package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notegen/internal"
	"github.com/starford/notegen/internal/apperr"
	pkgconfig "github.com/starford/notegen/pkg/config"
)

// Exit codes.
const (
	exitError       = 1
	exitFilesFailed = 2
)

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := pkgconfig.LoadWithDefaults(configPath, "", cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("vault") {
		cfg.Vault.Path = cmd.String("vault")
	}
	if cmd.IsSet("parallel") {
		cfg.Batch.MaxFileParallelism = int(cmd.Int("parallel"))
	}
	if cmd.IsSet("rate-limit-ms") {
		cfg.Batch.FileRateLimitMS = int(cmd.Int("rate-limit-ms"))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runOpts := internal.RunOptions{
		Input:       cmd.Args().First(),
		DryRun:      cmd.Bool("dry-run"),
		RetryFailed: cmd.Bool("retry-failed"),
		Force:       cmd.Bool("force"),
		NoSummary:   cmd.Bool("no-summary"),
		Template:    cmd.String("template"),
		Banner:      cmd.String("banner"),
		Watch:       cmd.Bool("watch"),
		Verbose:     cmd.Bool("verbose"),
	}
	if runOpts.RetryFailed && runOpts.Input != "" {
		return fmt.Errorf("--retry-failed takes no input path")
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithRunOptions(runOpts),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "notegen",
		Usage:     "Generate markdown notes with structured frontmatter from a hierarchical document vault",
		ArgsUsage: "[input file or directory]",
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.yaml or .toml)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault root, overrides vault.path",
				Sources: cli.EnvVars("NOTEGEN_VAULT"),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Process everything but write no notes",
			},
			&cli.BoolFlag{
				Name:  "retry-failed",
				Usage: "Process only the files that failed in the previous run",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Regenerate notes that already exist",
			},
			&cli.BoolFlag{
				Name:  "no-summary",
				Usage: "Skip AI summarization",
			},
			&cli.StringFlag{
				Name:  "template",
				Usage: "Force a template type on every note",
			},
			&cli.StringFlag{
				Name:  "banner",
				Usage: "Force a banner on every note",
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "Maximum files processed at once",
			},
			&cli.IntFlag{
				Name:  "rate-limit-ms",
				Usage: "Minimum milliseconds between file starts, 0 disables",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and process files as they change",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Print every pipeline stage",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, internal.ErrFilesFailed) {
			os.Exit(exitFilesFailed)
		}
		slog.Error("application error",
			slog.String("error", err.Error()),
			slog.Any("hints", apperr.Hints(err)))
		os.Exit(exitError)
	}
}
