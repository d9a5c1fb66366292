// Package config provides configuration management for the schemamerge CLI.
package config

import (
	"time"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	InputDir      string       `koanf:"input_dir" yaml:"input_dir"`
	Output        string       `koanf:"output" yaml:"output"`
	Dialect       core.Dialect `koanf:"dialect" yaml:"dialect"`
	DefaultSchema string       `koanf:"default_schema" yaml:"default_schema,omitempty"`
	AllowReorder  bool         `koanf:"allow_reorder" yaml:"allow_reorder"`
	FileComments  bool         `koanf:"file_comments" yaml:"file_comments"`
	Header        bool         `koanf:"header" yaml:"header"`
	Exclude       []string     `koanf:"exclude" yaml:"exclude,omitempty"`
	Recursive     bool         `koanf:"recursive" yaml:"recursive"`
	Quiet         bool         `koanf:"quiet" yaml:"-"`
	Verbose       bool         `koanf:"verbose" yaml:"-"`
	Format        string       `koanf:"format" yaml:"format,omitempty"`
	Verify        VerifyConfig `koanf:"verify" yaml:"verify"`
	Watch         WatchConfig  `koanf:"watch" yaml:"watch"`

	// ProjectRoot is the directory relative paths are resolved against
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// VerifyConfig selects the database used by `verify` and `merge --verify`.
type VerifyConfig struct {
	Driver string `koanf:"driver" yaml:"driver"`
	DSN    string `koanf:"dsn" yaml:"dsn,omitempty"`
}

// WatchConfig configures `watch`.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce" yaml:"debounce"`
}

// Default configuration values
const (
	DefaultInputDir = "schema"
	DefaultOutput   = "-"
	DefaultDialect  = core.DialectPostgres
	DefaultFormat   = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultDriver   = "sqlite"
	DefaultDebounce = 100 * time.Millisecond
)

// ConfigFileNames are searched, in order, when no --config is given.
var ConfigFileNames = []string{"schemamerge.yaml", "schemamerge.yml"}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		InputDir:     DefaultInputDir,
		Output:       DefaultOutput,
		Dialect:      DefaultDialect,
		FileComments: true,
		Header:       true,
		Recursive:    true,
		Format:       DefaultFormat,
		Verify:       VerifyConfig{Driver: DefaultDriver},
		Watch:        WatchConfig{Debounce: DefaultDebounce},
	}
}
