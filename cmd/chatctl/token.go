package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"support_chat/internal/domain"
	"support_chat/pkg/jwt"
)

var (
	tokenUser   string
	tokenRole   string
	tokenEmail  string
	tokenName   string
	tokenSecret string
	tokenIssuer string
	tokenTTL    time.Duration
)

// tokenCmd выпускает токен тем же секретом, что у identity provider (только для разработки)
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUser == "" {
			return fmt.Errorf("--user is required")
		}
		if tokenRole != domain.RoleCustomer && tokenRole != domain.RoleAdmin {
			return fmt.Errorf("--role must be %q or %q", domain.RoleCustomer, domain.RoleAdmin)
		}
		if tokenSecret == "" {
			return fmt.Errorf("--secret or JWT_SECRET is required")
		}

		signed, err := jwt.GenerateAccessToken(tokenUser, tokenEmail, tokenName, tokenRole, tokenSecret, tokenIssuer, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id (required)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", domain.RoleCustomer, "Role: customer or admin")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name claim")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", os.Getenv("JWT_SECRET"), "Signing secret (or set JWT_SECRET)")
	tokenCmd.Flags().StringVar(&tokenIssuer, "issuer", os.Getenv("JWT_ISSUER"), "Issuer claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
}
