package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/buildandburn/bb/internal/output"
	"github.com/buildandburn/bb/internal/registry"
)

// Info command flags.
var infoShowSensitiveFlag bool

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <env-id>",
		Short: "Show an environment's details",
		Long: `Show one environment's record: project, state, namespace, working
directory, and the provisioning outputs.

Sensitive outputs (credentials) are masked unless --show-sensitive is
given.`,
		Args: cobra.ExactArgs(1),
		RunE: runInfo,
	}

	cmd.Flags().BoolVar(&infoShowSensitiveFlag, "show-sensitive", false,
		"Print credential values instead of masking them")

	return cmd
}

// runInfo executes the info command.
func runInfo(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}

	record, err := store.Get(args[0])
	if err != nil {
		return WrapExit(err)
	}

	printRecord(record)
	return nil
}

func printRecord(record *registry.Record) {
	output.Println(output.StyleSummary.Render("Environment " + record.EnvID))
	output.Println(fmt.Sprintf("  project:    %s", record.ProjectName))
	output.Println(fmt.Sprintf("  state:      %s", record.State))
	output.Println(fmt.Sprintf("  region:     %s", record.Region))
	output.Println(fmt.Sprintf("  namespace:  %s", record.Namespace))
	output.Println(fmt.Sprintf("  created:    %s", record.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	if record.DestroyedAt != nil {
		output.Println(fmt.Sprintf("  destroyed:  %s", record.DestroyedAt.Format("2006-01-02 15:04:05 MST")))
	}
	output.Println(fmt.Sprintf("  workdir:    %s", record.WorkDir))
	if record.KubeconfigPath != "" {
		output.Println(fmt.Sprintf("  kubeconfig: %s", record.KubeconfigPath))
	}

	if len(record.Outputs) == 0 {
		return
	}

	output.Println("")
	output.Println(output.StyleSummary.Render("Outputs"))

	names := make([]string, 0, len(record.Outputs))
	for name := range record.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		out := record.Outputs[name]
		value := out.Value
		if out.Sensitive && !infoShowSensitiveFlag {
			value = "********"
		}
		output.Println(fmt.Sprintf("  %s=%s", name, value))
	}

	if !infoShowSensitiveFlag {
		output.Println("")
		output.Println(output.StyleDim.Render("  sensitive values masked, use --show-sensitive to print them"))
	}
}
