package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// logsCmd returns the logs subcommand for querying the audit trail.
func logsCmd() *cobra.Command {
	var agentID string
	var service string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query the audit log",
		Long: `Query gateway audit entries, newest first.

Examples:
  wardenctl logs --agent wdn_abc123
  wardenctl logs --service github --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			entries, err := client.QueryLogs(agentID, service, limit, offset)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No matching audit entries.")
				return nil
			}

			for _, entry := range entries {
				outcome := entry.AuthResult
				if entry.ErrorCode != "" {
					outcome = entry.ErrorCode
				}
				target := entry.TargetService
				if entry.Action != "" {
					target += "/" + entry.Action
				}
				fmt.Printf("%s  %-36s %-25s %-18s %-20s %4dms\n",
					entry.CreatedAt.Format("2006-01-02 15:04:05"),
					entry.AgentID, target, entry.EventType, outcome, entry.LatencyMs)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Filter by agent id")
	cmd.Flags().StringVar(&service, "service", "", "Filter by target service")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")

	return cmd
}
