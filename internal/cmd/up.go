package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buildandburn/bb/internal/lifecycle"
	"github.com/buildandburn/bb/internal/output"
)

// Up command flags.
var (
	upEnvIDFlag       string
	upDryRunFlag      bool
	upAutoApproveFlag bool
)

// NewUpCmd creates the up command.
func NewUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up <manifest>",
		Short: "Build an environment from a manifest",
		Long: `Build a complete environment from a declarative manifest: provision the
declared infrastructure dependencies, render the workload resources with
their connection details, and apply them to the provisioned cluster.

The environment gets a short opaque id and is recorded in the local
registry for later inspection and teardown.

Examples:
  # Build an environment
  bb up manifest.yaml

  # Preview without touching anything
  bb up manifest.yaml --dry-run

  # Pin the environment id
  bb up manifest.yaml --env-id demo1234`,
		Args: cobra.ExactArgs(1),
		RunE: runUp,
	}

	cmd.Flags().StringVar(&upEnvIDFlag, "env-id", "",
		"Use this environment id instead of generating one")
	cmd.Flags().BoolVar(&upDryRunFlag, "dry-run", false,
		"Compile and render everything, change nothing")
	cmd.Flags().BoolVarP(&upAutoApproveFlag, "auto-approve", "y", false,
		"Skip the confirmation prompt")

	return cmd
}

// runUp executes the up command.
func runUp(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	manifestPath := args[0]
	if _, err := os.Stat(manifestPath); err != nil {
		return &ExitError{
			Code: ExitInvalidInput,
			Err:  fmt.Errorf("manifest %s: %w", manifestPath, err),
		}
	}

	if !upDryRunFlag && !upAutoApproveFlag {
		if !confirm(fmt.Sprintf("Build environment from %s? This provisions cloud infrastructure.", manifestPath)) {
			output.Info("canceled")
			return nil
		}
	}

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	record, err := orch.Up(ctx, lifecycle.UpOptions{
		ManifestPath: manifestPath,
		EnvID:        upEnvIDFlag,
		DryRun:       upDryRunFlag,
	})
	if err != nil {
		return WrapExit(err)
	}

	if record != nil {
		output.Println("")
		output.Println(output.FormatCheckmark(fmt.Sprintf("environment %s is ready", record.EnvID)))
		output.Println(fmt.Sprintf("  bb info %s", record.EnvID))
		output.Println(fmt.Sprintf("  bb down %s", record.EnvID))
	}

	return nil
}

// confirm asks a y/N question on stdin.
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
