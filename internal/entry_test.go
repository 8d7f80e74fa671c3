package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/notegen/internal/apperr"
	"github.com/starford/notegen/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testConfig(vault string) *Config {
	cfg := NewDefaultConfig()
	cfg.Vault.Path = vault
	cfg.Batch.FileRateLimitMS = 0
	cfg.Metrics.Textfile = filepath.Join(vault, ".notegen", "metrics.prom")
	return cfg
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("missing config should fail")
	}
}

func TestRun_MissingVault(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "nope"))
	err := Run(context.Background(), WithConfig(cfg), WithLogger(quietLogger()))
	if !apperr.Is(err, apperr.ErrSetup) {
		t.Fatalf("expected setup error, got %v", err)
	}
}

func TestRun_UnknownTemplateOverride(t *testing.T) {
	vault := testutil.Vault(t, map[string]string{"a.md": "# A\n"})
	err := Run(context.Background(),
		WithConfig(testConfig(vault)),
		WithRunOptions(RunOptions{Template: "no-such-template"}),
		WithLogger(quietLogger()))
	if !apperr.Is(err, apperr.ErrSetup) {
		t.Fatalf("expected setup error, got %v", err)
	}
}

func TestRun_WritesNotesAndMetrics(t *testing.T) {
	vault := testutil.Vault(t, map[string]string{
		"Program/Course/a.md": "# A\n\nBody #go\n",
		"Program/b.txt":       "plain text",
	})
	cfg := testConfig(vault)

	if err := Run(context.Background(), WithConfig(cfg), WithLogger(quietLogger())); err != nil {
		t.Fatal(err)
	}

	got := testutil.Files(t, filepath.Join(vault, DefaultNotesDir))
	want := []string{"Program/Course/a.md", "Program/b.md"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("notes = %v, want %v", got, want)
	}

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `notegen_files_total{outcome="completed"} 2`) {
		t.Errorf("metrics textfile missing completed count:\n%s", data)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	vault := testutil.Vault(t, map[string]string{"P/a.md": "# A\n"})
	cfg := testConfig(vault)
	cfg.Metrics.Textfile = ""

	err := Run(context.Background(),
		WithConfig(cfg),
		WithRunOptions(RunOptions{DryRun: true}),
		WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(vault, DefaultNotesDir)); !os.IsNotExist(err) {
		t.Errorf("dry run created the note root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(vault, ".notegen")); !os.IsNotExist(err) {
		t.Errorf("dry run created the state dir: %v", err)
	}
}

func TestRun_FailuresReported(t *testing.T) {
	vault := testutil.Vault(t, map[string]string{"P/image.xyz": "raw"})
	cfg := testConfig(vault)

	err := Run(context.Background(),
		WithConfig(cfg),
		WithRunOptions(RunOptions{Input: filepath.Join(vault, "P", "image.xyz")}),
		WithLogger(quietLogger()))
	if !errors.Is(err, ErrFilesFailed) {
		t.Fatalf("expected ErrFilesFailed, got %v", err)
	}

	data, err := os.ReadFile(cfg.Batch.FailedList(vault))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "image.xyz") {
		t.Errorf("failed list = %q", data)
	}
}
