package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/creatorhub/creatorhub/internal/auth"
)

type clientOutput struct {
	ID        string `json:"id"`
	Tenant    string `json:"tenant"`
	Name      string `json:"name"`
	KeyPrefix string `json:"keyPrefix"`
	CreatedAt string `json:"createdAt"`
	RevokedAt string `json:"revokedAt,omitempty"`
	// APIKey is only set right after creation.
	APIKey string `json:"apiKey,omitempty"`
}

func toClientOutput(c *auth.Client, tenantCode string) clientOutput {
	out := clientOutput{
		ID:        c.ID.String(),
		Tenant:    tenantCode,
		Name:      c.Name,
		KeyPrefix: c.ApiKeyPrefix,
		CreatedAt: c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if c.RevokedAt != nil {
		out.RevokedAt = c.RevokedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return out
}

func newAPIKeyCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "API client key operations",
	}

	cmd.AddCommand(newAPIKeyCreateCmd(cfg))
	cmd.AddCommand(newAPIKeyListCmd(cfg))
	cmd.AddCommand(newAPIKeyRevokeCmd(cfg))

	return cmd
}

func newAPIKeyCreateCmd(cfg Config) *cobra.Command {
	var tenantCode, name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API client and print its key once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, cfg, func(ctx context.Context, b Backend) error {
				t, err := b.Tenants().GetByCode(ctx, tenantCode)
				if err != nil {
					return err
				}

				svc := auth.NewService(b.Clients(), cfg.Env.BcryptCost)
				rawKey, c, err := svc.CreateClient(ctx, t.ID, name)
				if err != nil {
					return fmt.Errorf("creating api client: %w", err)
				}

				out := toClientOutput(c, t.Code)
				out.APIKey = rawKey
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.Flags().StringVarP(&tenantCode, "tenant", "t", "", "Tenant code")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Client name")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newAPIKeyListCmd(cfg Config) *cobra.Command {
	var tenantCode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the API clients of a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, cfg, func(ctx context.Context, b Backend) error {
				t, err := b.Tenants().GetByCode(ctx, tenantCode)
				if err != nil {
					return err
				}
				clients, err := b.Clients().ListByTenant(ctx, t.ID)
				if err != nil {
					return err
				}

				out := make([]clientOutput, 0, len(clients))
				for i := range clients {
					out = append(out, toClientOutput(&clients[i], t.Code))
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.Flags().StringVarP(&tenantCode, "tenant", "t", "", "Tenant code")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func newAPIKeyRevokeCmd(cfg Config) *cobra.Command {
	var rawID string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke an API client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(rawID)
			if err != nil {
				return fmt.Errorf("invalid client id %q", rawID)
			}
			return withBackend(cmd, cfg, func(ctx context.Context, b Backend) error {
				if err := b.Clients().Revoke(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "api client %s revoked\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&rawID, "id", "", "API client id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
