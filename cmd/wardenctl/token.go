package main

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

// tokenCmd returns the token subcommand for minting admin tokens.
func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token",
		Long: `Mint an HS256 admin token signed with ADMIN_JWT_SECRET.

The secret must match the one configured on the gateway. Export the printed
token as WARDEN_ADMIN_TOKEN for the other wardenctl commands.

Examples:
  wardenctl token --subject alice
  wardenctl token --subject deploy-pipeline --ttl 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("ADMIN_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("ADMIN_JWT_SECRET environment variable is required")
			}
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}

			claims := jwt.MapClaims{
				"sub":  subject,
				"role": "admin",
				"iat":  time.Now().Unix(),
			}
			if ttl > 0 {
				claims["exp"] = time.Now().Add(ttl).Unix()
			}

			token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
			signed, err := token.SignedString([]byte(secret))
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}

			fmt.Println(signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject, typically the operator name (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime (0 for no expiry)")

	return cmd
}
