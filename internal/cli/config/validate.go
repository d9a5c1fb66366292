package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

var validFormats = map[string]bool{
	"auto":     true,
	"text":     true,
	"markdown": true,
	"json":     true,
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input_dir is required")
	}
	if _, ok := core.ParseDialect(string(c.Dialect)); !ok {
		return fmt.Errorf("unknown dialect %q (supported: %s)", c.Dialect, dialectNames())
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid format %q, must be one of: auto, text, markdown, json", c.Format)
	}
	if c.Quiet && c.Verbose {
		return fmt.Errorf("quiet and verbose cannot both be set")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// ValidateInputDir checks that the input directory exists.
func (c *Config) ValidateInputDir() error {
	info, err := os.Stat(c.InputDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("input directory does not exist: %s\nHint: Create the directory or use --input to specify a different path", c.InputDir)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("input path is not a directory: %s", c.InputDir)
	}
	return nil
}

func dialectNames() string {
	names := make([]string, 0, len(core.Dialects()))
	for _, d := range core.Dialects() {
		names = append(names, d.String())
	}
	return strings.Join(names, ", ")
}
