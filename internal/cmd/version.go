package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buildandburn/bb/internal/config"
	"github.com/buildandburn/bb/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show CLI version information",
		Long: `Display version information for the bb CLI.

Shows the CLI version, build information, and whether the provisioning
engine binary is available.`,
		RunE: runVersion,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	binary := config.DefaultTerraformBinary
	if bbConfig != nil && bbConfig.TerraformBinary != "" {
		binary = bbConfig.TerraformBinary
	}

	info := version.GetInfo()
	engine := version.DetectEngine(binary)

	fmt.Fprintln(cmd.OutOrStdout(), version.FullVersionString(info, engine))
	return nil
}
