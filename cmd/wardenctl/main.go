// Package main implements the wardenctl CLI tool for Warden gateway
// administration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wardenctl/internal/adminapi"
)

var version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "wardenctl",
		Short:   "Warden gateway CLI tool",
		Long:    `wardenctl is a command-line tool for managing Warden gateway agents and audit logs.`,
		Version: version,
	}

	rootCmd.AddCommand(agentsCmd())
	rootCmd.AddCommand(logsCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getClient builds an admin API client from environment variables.
func getClient() (*adminapi.Client, error) {
	gatewayURL := os.Getenv("WARDEN_URL")
	token := os.Getenv("WARDEN_ADMIN_TOKEN")

	if gatewayURL == "" {
		gatewayURL = "http://localhost:8090"
	}
	if token == "" {
		return nil, fmt.Errorf("WARDEN_ADMIN_TOKEN environment variable is required (mint one with 'wardenctl token')")
	}

	return adminapi.NewClient(gatewayURL, token), nil
}
