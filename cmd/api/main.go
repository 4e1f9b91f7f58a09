package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title           Contact Backend API
// @version         1.0
// @description     Receives contact form submissions and relays them by email.
// @host            localhost:5000
// @BasePath        /
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:   "contact-api",
		Short: "Contact form backend",
		Long: `contact-api accepts contact form submissions over HTTP, notifies the
site owner by email and sends the submitter an acknowledgment.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		// Running without a subcommand starts the server
		RunE: serve.RunE,
	}

	root.AddCommand(serve)
	root.AddCommand(newSMTPCheckCmd())
	return root
}
