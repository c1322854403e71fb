// Package cmd provides CLI command implementations.
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/buildandburn/bb/internal/config"
	"github.com/buildandburn/bb/internal/lifecycle"
	"github.com/buildandburn/bb/internal/output"
	"github.com/buildandburn/bb/internal/registry"
)

var (
	// Global flags
	configFlag       string
	registryRootFlag string
	regionFlag       string
	kubeconfigFlag   string
	verboseFlag      bool

	// Resolved configuration (loaded during PersistentPreRunE)
	bbConfig *config.Config
)

// NewRootCmd creates the root command for the bb CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bb",
		Short:         "Build and burn disposable environments",
		Long:          `bb builds complete, disposable environments from a declarative manifest and burns them down again: managed infrastructure, a cluster, and the workloads wired to both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeGlobals()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (env: BB_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&registryRootFlag, "registry-root", "", "Environment registry directory (env: BB_REGISTRY_ROOT)")
	rootCmd.PersistentFlags().StringVar(&regionFlag, "region", "", "Default provider region (env: BB_REGION)")
	rootCmd.PersistentFlags().StringVar(&kubeconfigFlag, "kubeconfig", "", "Path to kubeconfig file (env: BB_KUBECONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewUpCmd())
	rootCmd.AddCommand(NewDownCmd())
	rootCmd.AddCommand(NewInfoCmd())
	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// Execute runs the root command. Errors produced by command logic
// already carry their exit code; anything else came from flag or
// argument parsing and is an invalid invocation.
func Execute(rootCmd *cobra.Command) error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return NewExitError(err, ExitInvalidInput)
}

// initializeGlobals sets up logging and loads configuration.
func initializeGlobals() error {
	output.SetupLogging(verboseFlag)

	loaded, err := config.NewLoader().LoadWithDefaults(configFlag)
	if err != nil {
		return WrapExit(err)
	}

	registryRoot := loaded.RegistryRoot
	if registryRoot == "" {
		registryRoot, err = config.GetRegistryRoot()
		if err != nil {
			return WrapExit(err)
		}
	}

	resolved := []config.ResolvedValue{
		config.Resolve("registryRoot", registryRootFlag, "BB_REGISTRY_ROOT", loaded.RegistryRoot, registryRoot),
		config.Resolve("region", regionFlag, "BB_REGION", loaded.Region, config.DefaultRegion),
		config.Resolve("kubeconfig", kubeconfigFlag, "BB_KUBECONFIG", loaded.Kubeconfig, ""),
	}
	config.LogResolvedValues(resolved)

	bbConfig = loaded
	bbConfig.RegistryRoot = resolved[0].Value
	bbConfig.Region = resolved[1].Value
	bbConfig.Kubeconfig = resolved[2].Value

	return nil
}

// newStore opens the environment registry.
func newStore() (*registry.Store, error) {
	store, err := registry.NewStore(bbConfig.RegistryRoot)
	if err != nil {
		return nil, WrapExit(err)
	}
	return store, nil
}

// newOrchestrator opens the registry and builds the lifecycle
// orchestrator both state-changing commands run on.
func newOrchestrator() (*lifecycle.Orchestrator, error) {
	store, err := newStore()
	if err != nil {
		return nil, err
	}
	return lifecycle.New(store, bbConfig), nil
}
