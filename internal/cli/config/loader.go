package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "SCHEMAMERGE_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, "-" or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == DefaultOutput || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// defaultsMap flattens Default() into koanf keys.
func defaultsMap() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"input_dir":      d.InputDir,
		"output":         d.Output,
		"dialect":        string(d.Dialect),
		"default_schema": d.DefaultSchema,
		"allow_reorder":  d.AllowReorder,
		"file_comments":  d.FileComments,
		"header":         d.Header,
		"exclude":        []string{},
		"recursive":      d.Recursive,
		"quiet":          false,
		"verbose":        false,
		"format":         d.Format,
		"verify.driver":  d.Verify.Driver,
		"verify.dsn":     "",
		"watch.debounce": d.Watch.Debounce.String(),
	}
}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"input":    "input_dir",
	"driver":   "verify.driver",
	"dsn":      "verify.dsn",
	"debounce": "watch.debounce",
}

// negatedFlags are --no-* flags that set the inverse of a boolean key.
var negatedFlags = map[string]string{
	"no-file-comments": "file_comments",
	"no-header":        "header",
	"no-recursive":     "recursive",
}

// ignoredFlags are command switches that are not configuration.
var ignoredFlags = map[string]bool{
	"config": true,
	"help":   true,
	"select": true,
	"verify": true,
	"force":  true,
	"table":  true,
}

// Keys returns every configuration key, sorted.
func Keys() []string {
	defaults := defaultsMap()
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// FlagKey returns the config key set by the named flag. negated reports a
// --no-* flag that stores the inverse; ok is false for command switches
// that are not configuration.
func FlagKey(name string) (key string, negated, ok bool) {
	if ignoredFlags[name] {
		return "", false, false
	}
	if key, ok := negatedFlags[name]; ok {
		return key, true, true
	}
	if key, ok := flagKeys[name]; ok {
		return key, false, true
	}
	return strings.ReplaceAll(name, "-", "_"), false, true
}

// EnvVar returns the environment variable that sets key.
func EnvVar(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file. Paths in it are relative to its directory.
	projectRoot := cwd
	if cfgFile == "" {
		cfgFile = findConfigUpward(cwd)
	}
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Load environment variables (SCHEMAMERGE_ prefix)
	// Transform: SCHEMAMERGE_INPUT_DIR -> input_dir, SCHEMAMERGE_VERIFY__DSN -> verify.dsn
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	var flagInputDir, flagOutput string
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			return flagValue(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}

		// Paths given on the command line are relative to CWD, not the project root.
		if flags.Changed("input") {
			flagInputDir, _ = filepath.Abs(k.String("input_dir"))
		}
		if flags.Changed("output") && k.String("output") != DefaultOutput {
			flagOutput, _ = filepath.Abs(k.String("output"))
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				dialectHook(),
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve paths
	cfg.ProjectRoot = projectRoot
	if flagInputDir != "" {
		cfg.InputDir = flagInputDir
	} else {
		cfg.InputDir = resolvePathRelativeTo(cfg.InputDir, projectRoot)
	}
	if flagOutput != "" {
		cfg.Output = flagOutput
	} else {
		cfg.Output = resolvePathRelativeTo(cfg.Output, projectRoot)
	}

	cfg.Verify.DSN = expandEnvVars(cfg.Verify.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// flagValue maps an explicitly set flag to its config key and value.
// Unset and non-config flags return an empty key and are skipped.
func flagValue(flags *pflag.FlagSet, f *pflag.Flag) (string, interface{}) {
	if !f.Changed {
		return "", nil
	}
	key, negated, ok := FlagKey(f.Name)
	switch {
	case !ok:
		return "", nil
	case negated:
		v, _ := flags.GetBool(f.Name)
		return key, !v
	default:
		return key, posflag.FlagVal(flags, f)
	}
}

// dialectHook decodes dialect names and aliases into core.Dialect.
func dialectHook() mapstructure.DecodeHookFuncType {
	dialectType := reflect.TypeOf(core.Dialect(""))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != dialectType || from.Kind() != reflect.String {
			return data, nil
		}
		name := reflect.ValueOf(data).String()
		d, ok := core.ParseDialect(name)
		if !ok {
			return nil, fmt.Errorf("unknown dialect %q (supported: %s)", name, dialectNames())
		}
		return d, nil
	}
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// LogLevel returns the slog level implied by the verbosity settings.
func (c *Config) LogLevel() slog.Level {
	switch {
	case c.Verbose:
		return slog.LevelDebug
	case c.Quiet:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}
