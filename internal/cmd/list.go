package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/buildandburn/bb/internal/output"
	"github.com/buildandburn/bb/internal/registry"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List environments",
		Long:  `List every environment in the local registry, newest first.`,
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

// runList executes the list command.
func runList(cmd *cobra.Command, _ []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}

	summaries, err := store.List()
	if err != nil {
		return WrapExit(err)
	}

	if len(summaries) == 0 {
		output.Info("no environments")
		return nil
	}

	table := output.NewTable("ENV ID", "PROJECT", "REGION", "STATUS", "CREATED")
	for _, s := range summaries {
		table.Row(s.EnvID, s.ProjectName, s.Region, listStatus(s.State), s.CreatedAt.Format("2006-01-02 15:04"))
	}
	output.Println(table.String())

	return nil
}

// listStatus folds lifecycle states into the statuses list shows.
// Transitional states pass through upper-cased.
func listStatus(state registry.State) string {
	switch state {
	case registry.StateReady:
		return "ACTIVE"
	case registry.StateDestroyed:
		return "DESTROYED"
	case registry.StateFailed:
		return "FAILED"
	default:
		return strings.ToUpper(string(state))
	}
}
