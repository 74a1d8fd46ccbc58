package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile string
	output  = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "bfa",
	Short: "Fialo backend: waste-to-energy state, impact and analysis API",
	Long: `bfa serves the Fialo API and offers offline tools over the same
persisted state. Running it without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before configuration (missing file is fine)")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format for tools: text or json")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
