package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/schemamerge/internal/cli/output"
	"github.com/leapstack-labs/schemamerge/internal/verify"
	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// BuildInfo is the version information stamped in at build time.
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display schemamerge version and build information, including the
supported dialects and verify drivers. Use --format json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.Version)
				return err
			}
			return runVersion(cmd, info)
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}

func runVersion(cmd *cobra.Command, info BuildInfo) error {
	r := NewCommandContext(cmd).Renderer
	v := versionOutput(info)

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(v)
	}

	r.Printf("schemamerge v%s\n", v.Version)
	r.Println("Dependency-ordered SQL schema merger")
	r.Printf("  commit:   %s (built %s)\n", v.Commit, v.BuildDate)
	r.Printf("  go:       %s %s/%s\n", v.GoVersion, v.OS, v.Arch)
	r.Printf("  dialects: %s\n", strings.Join(v.Dialects, ", "))
	r.Printf("  verify:   %s\n", strings.Join(v.Drivers, ", "))
	return nil
}

func versionOutput(info BuildInfo) output.VersionOutput {
	v := output.VersionOutput{
		Version:   info.Version,
		Commit:    info.GitCommit,
		BuildDate: info.BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Drivers:   verify.DriverNames(),
	}
	for _, d := range core.Dialects() {
		v.Dialects = append(v.Dialects, d.String())
	}
	return v
}
