// Package cli implements creatorctl, the operator command line for provisioning tenants,
// issuing credentials and trying blocklist rules offline.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/creatorhub/creatorhub/internal/auth"
	"github.com/creatorhub/creatorhub/internal/db"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

// Env is the environment creatorctl reads. Only the commands that need a value fail when
// it is missing.
type Env struct {
	DatabaseURL       string `envconfig:"DATABASE_URL"`
	DBConnectAttempts uint   `envconfig:"DB_CONNECT_ATTEMPTS" default:"1"`
	JWTSecret         string `envconfig:"JWT_SECRET"`
	JWTIssuer         string `envconfig:"JWT_ISSUER" default:"creatorhub"`
	BcryptCost        int    `envconfig:"BCRYPT_COST" default:"12"`
	Version           string `envconfig:"VERSION" default:"dev"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, err
	}
	return env, nil
}

// Backend is the database access used by the provisioning commands.
type Backend interface {
	Migrate(ctx context.Context) error
	ProvisionTenant(ctx context.Context, schema string) error
	Tenants() tenant.Repository
	Clients() auth.ClientRepository
	Close()
}

// Config holds the configuration for the root command.
type Config struct {
	Env Env

	// Open connects to the database. Defaults to PostgreSQL at Env.DatabaseURL.
	Open func(ctx context.Context) (Backend, error)
}

// Validate checks that the configuration can build a command tree.
func (c Config) Validate() error {
	var missing []string
	if c.Env.JWTIssuer == "" {
		missing = append(missing, "Env.JWTIssuer")
	}
	if c.Env.BcryptCost == 0 {
		missing = append(missing, "Env.BcryptCost")
	}
	if len(missing) > 0 {
		return errors.New("cli.Config: missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

// NewCommand creates the creatorctl root command with all subcommands.
func NewCommand(cfg Config) (*cobra.Command, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Open == nil {
		cfg.Open = postgresOpener(cfg.Env)
	}

	cmd := &cobra.Command{
		Use:           "creatorctl",
		Short:         "Administer a creatorhub deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCmd(cfg))
	cmd.AddCommand(newTenantCmd(cfg))
	cmd.AddCommand(newAPIKeyCmd(cfg))
	cmd.AddCommand(newTokenCmd(cfg))
	cmd.AddCommand(newBlocklistCmd())
	cmd.AddCommand(newVersionCmd(cfg))

	return cmd, nil
}

type postgresBackend struct {
	db *db.DB
}

func (b *postgresBackend) Migrate(ctx context.Context) error { return b.db.Migrate(ctx) }

func (b *postgresBackend) ProvisionTenant(ctx context.Context, schema string) error {
	return b.db.ProvisionTenant(ctx, schema)
}

func (b *postgresBackend) Tenants() tenant.Repository { return tenant.NewRepository(b.db.Pool()) }

func (b *postgresBackend) Clients() auth.ClientRepository { return auth.NewRepository(b.db.Pool()) }

func (b *postgresBackend) Close() { b.db.Close() }

func postgresOpener(env Env) func(ctx context.Context) (Backend, error) {
	return func(ctx context.Context) (Backend, error) {
		if env.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
		database, err := db.New(ctx, env.DatabaseURL, env.DBConnectAttempts)
		if err != nil {
			return nil, err
		}
		return &postgresBackend{db: database}, nil
	}
}

// withBackend opens the backend for the duration of fn.
func withBackend(cmd *cobra.Command, cfg Config, fn func(ctx context.Context, b Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := cfg.Open(ctx)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer b.Close()

	return fn(ctx, b)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending platform migrations and bring every tenant schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, cfg, func(ctx context.Context, b Backend) error {
				if err := b.Migrate(ctx); err != nil {
					return err
				}
				tenants, err := b.Tenants().ListActive(ctx)
				if err != nil {
					return fmt.Errorf("listing tenants: %w", err)
				}
				for _, t := range tenants {
					if err := b.ProvisionTenant(ctx, t.SchemaName); err != nil {
						return fmt.Errorf("migrating %s: %w", t.SchemaName, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%d tenant schemas)\n", len(tenants))
				return nil
			})
		},
	}
}

func newVersionCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the creatorctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Env.Version)
		},
	}
}
