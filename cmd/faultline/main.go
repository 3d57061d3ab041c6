// Command faultline runs the fault-injecting demo API and its helpers.
//
//	faultline serve --port 8080
//	faultline route:list
//	faultline fixtures products
//	faultline monitor:test
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/faultline/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "faultline",
	Short:         "Faultline: an HTTP API that misbehaves on purpose",
	Long:          "Faultline serves a small shop API over in-memory fixtures with injected latency, dropped results and declined payments.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Load()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)
	rootCmd.AddCommand(fixturesCmd)
	rootCmd.AddCommand(monitorTestCmd)
}
