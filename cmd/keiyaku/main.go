package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "v0.1.0" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "keiyaku",
		Short: "Check freelance and BPO contracts against Japanese law",
		Long: `keiyaku checks a contract for the 28 issues that matter to freelancers in Japan:
payment deadlines, scope, liability, IP transfer and the duties of the
Freelance Protection Act and the Subcontract Act.`,
		SilenceUsage: true,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: ./config.yaml or ~/.keiyakucheck/config.yaml)")

	rootCmd.AddCommand(
		newCheckCmd(),
		newLawsCmd(),
		newCatalogueCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keiyaku version %s\n", version)
		},
	}
}
