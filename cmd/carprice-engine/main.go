// carprice-engine serves used-car price estimates from exported training artifacts.
//
// Usage:
//
//	carprice-engine serve
//	carprice-engine predict --brand=Toyota --model=Corolla --power-ps=150 ...
//	carprice-engine publish --to=postgres|redis
//
// Configuration is read from the environment (see internal/config).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "carprice-engine",
	Short: "Used car price prediction service",
	Long:  "carprice-engine encodes car attributes against the training schema\nand predicts a price with the exported CatBoost model.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
