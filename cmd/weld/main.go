package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "weld",
		Short: "Build-time dependency injection code generator for Go",
		Long: `Weld inspects annotated constructors and methods and generates
registration functions, factories, and resilience decorators alongside
your source. Annotate declarations with //weld: directives and run
weld generate.`,
	}

	// Add subcommands
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(vetCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
