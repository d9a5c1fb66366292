package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/schemamerge/internal/cli/config"
	"github.com/leapstack-labs/schemamerge/internal/cli/output"
)

// initFile is the layout of a generated config file.
type initFile struct {
	InputDir      string   `yaml:"input_dir"`
	Output        string   `yaml:"output"`
	Dialect       string   `yaml:"dialect"`
	DefaultSchema string   `yaml:"default_schema,omitempty"`
	AllowReorder  bool     `yaml:"allow_reorder"`
	FileComments  bool     `yaml:"file_comments"`
	Header        bool     `yaml:"header"`
	Recursive     bool     `yaml:"recursive"`
	Exclude       []string `yaml:"exclude"`
	Verify        struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"verify"`
	Watch struct {
		Debounce string `yaml:"debounce"`
	} `yaml:"watch"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a schemamerge.yaml and schema directory",
		Long: `Initialize a project with a default schemamerge.yaml and an empty schema/
directory for .sql files.

Every setting in the generated file can also be set with a flag or a
SCHEMAMERGE_* environment variable.`,
		Example: `  # Initialize in the current directory
  schemamerge init

  # Initialize in a new directory for MySQL
  schemamerge init db --dialect mysql

  # Overwrite an existing config
  schemamerge init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Format))
			return runInit(r, cfg, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(r *output.Renderer, cfg *config.Config, dir string, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.ConfigFileNames[0])
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileNames[0])
	}

	content, err := initConfigYAML(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.StatusLine(config.ConfigFileNames[0], "success", "")

	schemaDir := filepath.Join(dir, config.DefaultInputDir)
	if err := os.MkdirAll(schemaDir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", schemaDir, err)
	}
	r.StatusLine(config.DefaultInputDir+"/", "success", "")

	r.Println("")
	r.Success("schemamerge project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Add CREATE TABLE / VIEW / SEQUENCE files to " + config.DefaultInputDir + "/")
	r.Println("  2. Run 'schemamerge check' to validate them")
	r.Println("  3. Run 'schemamerge merge -o schema.sql' to write the merged script")

	return nil
}

// initConfigYAML renders defaults, keeping the dialect and schema of cfg.
func initConfigYAML(cfg *config.Config) ([]byte, error) {
	d := config.Default()

	f := initFile{
		InputDir:      d.InputDir,
		Output:        d.Output,
		Dialect:       d.Dialect.String(),
		AllowReorder:  d.AllowReorder,
		FileComments:  d.FileComments,
		Header:        d.Header,
		Recursive:     d.Recursive,
		Exclude:       []string{},
		DefaultSchema: cfg.DefaultSchema,
	}
	if cfg.Dialect != "" {
		f.Dialect = cfg.Dialect.String()
	}
	f.Verify.Driver = d.Verify.Driver
	f.Watch.Debounce = d.Watch.Debounce.String()

	content, err := yaml.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return append([]byte("# schemamerge configuration\n"), content...), nil
}
