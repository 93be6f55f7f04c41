package cli

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/creatorhub/creatorhub/internal/auth"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

var knownRoles = []string{auth.RoleAdmin, auth.RoleModerator, auth.RoleViewer}

func newTokenCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Operator token operations",
	}
	cmd.AddCommand(newTokenIssueCmd(cfg))
	return cmd
}

func newTokenIssueCmd(cfg Config) *cobra.Command {
	var (
		tenantCode string
		subject    string
		name       string
		roles      []string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an operator bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Env.JWTSecret == "" {
				return errors.New("JWT_SECRET is required")
			}
			if !tenant.CodeRegex.MatchString(tenantCode) {
				return fmt.Errorf("invalid tenant code %q", tenantCode)
			}
			for _, r := range roles {
				if !slices.Contains(knownRoles, r) {
					return fmt.Errorf("unknown role %q: must be one of %v", r, knownRoles)
				}
			}
			if ttl <= 0 {
				return errors.New("ttl must be positive")
			}
			if subject == "" {
				subject = uuid.NewString()
			}

			issuer := auth.NewTokenIssuer(cfg.Env.JWTSecret, cfg.Env.JWTIssuer)
			token, err := issuer.Issue(subject, name, tenantCode, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantCode, "tenant", "t", "", "Tenant code")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Operator id (random when empty)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Operator display name")
	cmd.Flags().StringSliceVarP(&roles, "role", "r", []string{auth.RoleViewer}, "Roles to grant")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
