package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/notegen/internal/note"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Default layout below the vault root.
const (
	DefaultNotesDir   = "_notes"
	DefaultFailedList = ".notegen/failed.txt"
)

var extensionRe = regexp.MustCompile(`^\.?[A-Za-z0-9]+$`)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app" toml:"app"`
	Vault     VaultConfig       `yaml:"vault" toml:"vault"`
	Schema    SchemaConfig      `yaml:"schema" toml:"schema"`
	Batch     BatchConfig       `yaml:"batch" toml:"batch"`
	Summary   SummaryConfig     `yaml:"summary" toml:"summary"`
	ShareLink ShareLinkConfig   `yaml:"share_link" toml:"share_link"`
	Banners   BannersConfig     `yaml:"banners" toml:"banners"`
	Tags      TagsConfig        `yaml:"tags" toml:"tags"`
	Metrics   MetricsConfig     `yaml:"metrics" toml:"metrics"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.App, &c.Vault, &c.Batch, &c.Summary, &c.ShareLink, &c.Tags,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level" toml:"log_level"`
	LogFormat string     `yaml:"log_format" toml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// VaultConfig locates the source vault and the generated notes.
type VaultConfig struct {
	Path string `yaml:"path" toml:"path"`
	// OutputPath defaults to <path>/_notes.
	OutputPath string `yaml:"output_path" toml:"output_path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	); err != nil {
		return err
	}
	if filepath.Clean(c.NotesPath()) == filepath.Clean(c.Path) {
		return fmt.Errorf("vault: output_path must differ from the vault path")
	}
	return nil
}

// NotesPath returns the output root.
func (c *VaultConfig) NotesPath() string {
	if c.OutputPath != "" {
		return c.OutputPath
	}
	return filepath.Join(c.Path, DefaultNotesDir)
}

// SchemaConfig points at the template catalog. An empty path uses the
// built-in catalog.
type SchemaConfig struct {
	Path  string `yaml:"path" toml:"path"`
	Watch bool   `yaml:"watch" toml:"watch"`
}

// BatchConfig bounds a run.
type BatchConfig struct {
	// Extensions restricts the processed file types. Empty keeps all
	// built-in extractors.
	Extensions          []string `yaml:"extensions" toml:"extensions"`
	MaxFileParallelism  int      `yaml:"max_file_parallelism" toml:"max_file_parallelism"`
	FileRateLimitMS     int      `yaml:"file_rate_limit_ms" toml:"file_rate_limit_ms"`
	MaxChunkParallelism int      `yaml:"max_chunk_parallelism" toml:"max_chunk_parallelism"`
	ChunkRateLimitMS    int      `yaml:"chunk_rate_limit_ms" toml:"chunk_rate_limit_ms"`
	// FailedListPath defaults to <vault>/.notegen/failed.txt.
	FailedListPath string `yaml:"failed_list_path" toml:"failed_list_path"`
}

// Validate validates the batch configuration.
func (c *BatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Extensions, validation.Each(validation.Required, validation.Match(extensionRe))),
		validation.Field(&c.MaxFileParallelism, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.FileRateLimitMS, validation.Min(0)),
		validation.Field(&c.MaxChunkParallelism, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.ChunkRateLimitMS, validation.Min(0)),
	)
}

// FileRateLimit converts the configured spacing. Zero disables staggering.
func (c *BatchConfig) FileRateLimit() time.Duration {
	if c.FileRateLimitMS <= 0 {
		return -1
	}
	return time.Duration(c.FileRateLimitMS) * time.Millisecond
}

// ChunkRateLimit converts the configured chunk spacing.
func (c *BatchConfig) ChunkRateLimit() time.Duration {
	return time.Duration(c.ChunkRateLimitMS) * time.Millisecond
}

// FailedList returns the failed list location for vault.
func (c *BatchConfig) FailedList(vault string) string {
	if c.FailedListPath != "" {
		return c.FailedListPath
	}
	return filepath.Join(vault, filepath.FromSlash(DefaultFailedList))
}

// SummaryConfig configures the OpenAI-compatible summarizer.
type SummaryConfig struct {
	Enabled        bool   `yaml:"enabled" toml:"enabled"`
	BaseURL        string `yaml:"base_url" toml:"base_url"`
	APIKey         string `yaml:"api_key" toml:"api_key"`
	Model          string `yaml:"model" toml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds"`
	MaxChunkChars  int    `yaml:"max_chunk_chars" toml:"max_chunk_chars"`
	OverlapChars   int    `yaml:"overlap_chars" toml:"overlap_chars"`
	// Prompt replaces the summary prompt template.
	Prompt string `yaml:"prompt" toml:"prompt"`
	// PromptsDir holds <name>.tmpl overrides of the built-in prompts.
	PromptsDir string `yaml:"prompts_dir" toml:"prompts_dir"`
}

// Validate validates the summary configuration. Nothing is required while
// summaries are disabled.
func (c *SummaryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
		validation.Field(&c.MaxChunkChars, validation.Required, validation.Min(200)),
		validation.Field(&c.OverlapChars, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.OverlapChars >= c.MaxChunkChars {
		return fmt.Errorf("summary: overlap_chars must be smaller than max_chunk_chars")
	}
	if c.APIKey == "" && c.BaseURL == "" {
		return fmt.Errorf("summary: api_key is required for the default endpoint")
	}
	return nil
}

// Timeout returns the per-call summary limit. Zero means none.
func (c *SummaryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ShareLinkConfig enables share links below BaseURL.
type ShareLinkConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

// Validate validates the share link configuration.
func (c *ShareLinkConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, is.URL),
	)
}

// BannersConfig maps files to banner images.
type BannersConfig struct {
	Default   string               `yaml:"default" toml:"default"`
	Patterns  []note.BannerPattern `yaml:"patterns" toml:"patterns"`
	Templates map[string]string    `yaml:"templates" toml:"templates"`
}

// TagsConfig configures tag normalization.
type TagsConfig struct {
	PipeAsSeparator bool `yaml:"pipe_as_separator" toml:"pipe_as_separator"`
	Suggest         bool `yaml:"suggest" toml:"suggest"`
	MaxSuggestions  int  `yaml:"max_suggestions" toml:"max_suggestions"`
}

// Validate validates the tags configuration.
func (c *TagsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSuggestions, validation.Min(0), validation.Max(50)),
	)
}

// MetricsConfig configures the Prometheus textfile export. An empty
// Textfile disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		Batch: BatchConfig{
			MaxFileParallelism:  2,
			FileRateLimitMS:     200,
			MaxChunkParallelism: 2,
		},
		Summary: SummaryConfig{
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 120,
			MaxChunkChars:  12000,
			OverlapChars:   500,
		},
		Tags: TagsConfig{
			MaxSuggestions: 5,
		},
	}
}
