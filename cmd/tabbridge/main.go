package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "tabbridge",
		Short: "Bridge between MCP tool callers and a browser extension",
		Long: `tabbridge drives a browser through a companion extension over a
single persistent WebSocket. Tool callers reach it over HTTP or MCP
stdio; console output, network errors and screenshots flow back.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tabbridge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tabbridge %s\n", Version)
		},
	}
}
