package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creatorhub/creatorhub/internal/tenant"
)

type tenantOutput struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	SchemaName string `json:"schemaName"`
	IsActive   bool   `json:"isActive"`
}

func toTenantOutput(t *tenant.Tenant) tenantOutput {
	return tenantOutput{
		ID:         t.ID.String(),
		Code:       t.Code,
		Name:       t.Name,
		SchemaName: t.SchemaName,
		IsActive:   t.IsActive,
	}
}

func newTenantCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant operations",
	}

	cmd.AddCommand(newTenantCreateCmd(cfg))
	cmd.AddCommand(newTenantSetActiveCmd(cfg, "activate", true))
	cmd.AddCommand(newTenantSetActiveCmd(cfg, "deactivate", false))

	return cmd
}

func newTenantCreateCmd(cfg Config) *cobra.Command {
	var code, name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant and provision its schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !tenant.CodeRegex.MatchString(code) {
				return fmt.Errorf("invalid tenant code %q: must match %s", code, tenant.CodeRegex)
			}
			if name == "" {
				name = code
			}

			return withBackend(cmd, cfg, func(ctx context.Context, b Backend) error {
				t := &tenant.Tenant{Code: code, Name: name}
				if err := b.Tenants().Create(ctx, t); err != nil {
					return fmt.Errorf("creating tenant: %w", err)
				}
				if err := b.ProvisionTenant(ctx, t.SchemaName); err != nil {
					return fmt.Errorf("provisioning schema %s: %w", t.SchemaName, err)
				}
				return printJSON(cmd.OutOrStdout(), toTenantOutput(t))
			})
		},
	}

	cmd.Flags().StringVarP(&code, "code", "c", "", "Tenant code (lowercase letters, digits and underscores)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (defaults to the code)")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func newTenantSetActiveCmd(cfg Config, use string, active bool) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Mark a tenant as %sd", use),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, cfg, func(ctx context.Context, b Backend) error {
				t, err := b.Tenants().GetByCode(ctx, code)
				if err != nil {
					return err
				}
				if err := b.Tenants().SetActive(ctx, t.ID, active); err != nil {
					return err
				}
				t.IsActive = active
				return printJSON(cmd.OutOrStdout(), toTenantOutput(t))
			})
		},
	}

	cmd.Flags().StringVarP(&code, "code", "c", "", "Tenant code")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}
