package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buildandburn/bb/internal/lifecycle"
	"github.com/buildandburn/bb/internal/output"
)

// Down command flags.
var (
	downForceFlag       bool
	downKeepLocalFlag   bool
	downAutoApproveFlag bool
)

// NewDownCmd creates the down command.
func NewDownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down <env-id>",
		Short: "Burn an environment down",
		Long: `Destroy an environment: remove its workload resources, destroy the
provisioned infrastructure in reverse dependency order, and drop the
local record.

With --force the teardown keeps going past individual failures,
destroying each infrastructure module separately and reporting every
failure at the end.

Examples:
  # Destroy an environment
  bb down a1b2c3d4

  # Keep going past failures, keep the local directory
  bb down a1b2c3d4 --force --keep-local`,
		Args: cobra.ExactArgs(1),
		RunE: runDown,
	}

	cmd.Flags().BoolVar(&downForceFlag, "force", false,
		"Continue past individual teardown failures")
	cmd.Flags().BoolVar(&downKeepLocalFlag, "keep-local", false,
		"Keep the environment directory and record after destroy")
	cmd.Flags().BoolVarP(&downAutoApproveFlag, "auto-approve", "y", false,
		"Skip the confirmation prompt")

	return cmd
}

// runDown executes the down command.
func runDown(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	envID := args[0]

	if !downAutoApproveFlag {
		if !confirm(fmt.Sprintf("Destroy environment %s and all its infrastructure?", envID)) {
			output.Info("canceled")
			return nil
		}
	}

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	if err := orch.Down(ctx, lifecycle.DownOptions{
		EnvID:     envID,
		Force:     downForceFlag,
		KeepLocal: downKeepLocalFlag,
	}); err != nil {
		return WrapExit(err)
	}

	output.Println(output.FormatCheckmark(fmt.Sprintf("environment %s destroyed", envID)))
	return nil
}
