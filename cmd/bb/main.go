// Package main is the entry point for the bb CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/buildandburn/bb/internal/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()

	if err := cmd.Execute(rootCmd); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			if !exitErr.Printed {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cmd.ExitGeneralError)
	}
}
