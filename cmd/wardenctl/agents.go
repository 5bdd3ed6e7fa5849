package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wardenctl/internal/adminapi"
)

// agentsCmd returns the agents subcommand for managing registered agents.
func agentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage registered agents",
		Long:  `Register, list, and disable agents that call the gateway.`,
	}

	cmd.AddCommand(agentsCreateCmd())
	cmd.AddCommand(agentsListCmd())
	cmd.AddCommand(agentsDisableCmd())

	return cmd
}

func agentsCreateCmd() *cobra.Command {
	var name string
	var owner string
	var scopes []string
	var rpm int
	var daily int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new agent",
		Long: `Register a new agent and print its credentials.

The shared secret is printed exactly once; the gateway stores only a hash
and cannot recover it.

Examples:
  wardenctl agents create --name ci-bot --owner platform --scope github:read
  wardenctl agents create --name deployer --owner infra --scope github:write --scope dns:* --rpm 120`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if owner == "" {
				return fmt.Errorf("--owner is required")
			}
			for _, scope := range scopes {
				if !strings.Contains(scope, ":") {
					return fmt.Errorf("invalid scope %q (want service:permission)", scope)
				}
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			resp, err := client.CreateAgent(&adminapi.CreateAgentRequest{
				Name:           name,
				Owner:          owner,
				Scopes:         scopes,
				RateLimitRPM:   rpm,
				RateLimitDaily: daily,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Agent registered.\n\n")
			fmt.Printf("  ID:     %s\n", resp.Agent.ID)
			fmt.Printf("  Name:   %s\n", resp.Agent.Name)
			fmt.Printf("  Scopes: %s\n", strings.Join(resp.Agent.Scopes, ", "))
			fmt.Printf("  Limits: %d/min, %d/day\n\n", resp.Agent.RateLimitRPM, resp.Agent.RateLimitDaily)
			fmt.Printf("  Secret: %s\n\n", resp.Secret)
			fmt.Println("Store the secret now. It cannot be retrieved again.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Agent name (required)")
	cmd.Flags().StringVar(&owner, "owner", "", "Owning team or person (required)")
	cmd.Flags().StringArrayVar(&scopes, "scope", nil, "Granted scope, repeatable (service:permission)")
	cmd.Flags().IntVar(&rpm, "rpm", 0, "Requests per minute (default 60)")
	cmd.Flags().IntVar(&daily, "daily", 0, "Requests per day (default 10000)")

	return cmd
}

func agentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			agents, err := client.ListAgents()
			if err != nil {
				return err
			}
			if len(agents) == 0 {
				fmt.Println("No agents registered.")
				return nil
			}

			fmt.Printf("%-40s %-20s %-10s %-8s %s\n", "ID", "NAME", "REQUESTS", "ENABLED", "SCOPES")
			for _, agent := range agents {
				fmt.Printf("%-40s %-20s %-10d %-8v %s\n",
					agent.ID, agent.Name, agent.RequestCount, agent.Enabled,
					strings.Join(agent.Scopes, ","))
			}
			return nil
		},
	}
}

func agentsDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <agent-id>",
		Short: "Disable an agent",
		Long:  `Disable an agent. Its audit history is preserved; every future auth attempt fails.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			if err := client.DisableAgent(args[0]); err != nil {
				return err
			}
			fmt.Printf("Agent %s disabled.\n", args[0])
			return nil
		},
	}
}
