package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ai2c/amap/internal/bootstrap"
	"github.com/ai2c/amap/internal/config"
	"github.com/ai2c/amap/internal/db"
	pkgAuth "github.com/ai2c/amap/internal/pkg/auth"
	"github.com/ai2c/amap/internal/pkg/helpers"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDatabase(func(ctx context.Context, _ *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
				if err := bootstrap.Migrate(ctx, database, c.v.GetString("migrations"), lgr); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "Migrations applied.")
				return nil
			})
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data and optionally generated demo soldiers",
		Long: `Writes MOS codes, form lookups, document types and the transient unit.
With --demo N a demo brigade is created and N fake soldiers are spread over its
companies. The first soldier is made a Manager of the brigade.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			demo, _ := cmd.Flags().GetInt("demo")
			seed, _ := cmd.Flags().GetInt64("seed")
			if demo < 0 {
				return fmt.Errorf("--demo cannot be negative")
			}

			return c.withDependencies(func(ctx context.Context, cfg *config.Config, deps *bootstrap.Dependencies) error {
				if err := deps.Seeder.CreateReferenceData(ctx, cfg.ETL.TransientUIC); err != nil {
					return fmt.Errorf("reference data: %w", err)
				}
				fmt.Fprintln(c.out, "Reference data loaded.")
				if demo == 0 {
					return nil
				}

				res, err := deps.Seeder.CreateDemoData(ctx, demo, seed)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Demo data: %d units, %d soldiers created. Manager: %s\n", res.Units, res.Soldiers, res.Manager)
				return nil
			})
		},
	}
	cmd.Flags().Int("demo", 0, "number of demo soldiers to generate")
	cmd.Flags().Int64("seed", 1, "random seed for demo data")
	return cmd
}

func (c *cli) etlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Run the staging transforms",
	}

	faults := &cobra.Command{
		Use:   "faults",
		Short: "Transform staged faults and maintenance actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filterDate *string
			if v, _ := cmd.Flags().GetString("filter-date"); v != "" {
				filterDate = &v
			}
			return c.withDependencies(func(ctx context.Context, _ *config.Config, deps *bootstrap.Dependencies) error {
				res, err := deps.FaultETLService.TransformFaults(ctx, filterDate)
				if err != nil {
					return err
				}
				return c.printJSON(res)
			})
		},
	}
	faults.Flags().String("filter-date", "", "only transform rows changed on or after this date (YYYY-MM-DD)")

	soldiers := &cobra.Command{
		Use:   "soldiers",
		Short: "Transform staged soldier records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDependencies(func(ctx context.Context, _ *config.Config, deps *bootstrap.Dependencies) error {
				res, err := deps.SoldierETLService.TransformSoldiers(ctx)
				if err != nil {
					return err
				}
				return c.printJSON(res)
			})
		},
	}

	cmd.AddCommand(faults, soldiers)
	return cmd
}

func (c *cli) unitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Manage the unit hierarchy",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import units from a CSV or XLSX file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open unit file: %w", err)
			}
			defer f.Close()

			return c.withDependencies(func(ctx context.Context, _ *config.Config, deps *bootstrap.Dependencies) error {
				res, err := deps.UnitLoaderService.Import(ctx, f, filepath.Base(path))
				if err != nil {
					return err
				}
				return c.printJSON(res)
			})
		},
	}
	importCmd.Flags().String("file", "", "CSV or XLSX unit file")
	_ = importCmd.MarkFlagRequired("file")

	rebuild := &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute parent and child lineages for every unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDependencies(func(ctx context.Context, _ *config.Config, deps *bootstrap.Dependencies) error {
				res, err := deps.UnitService.RebuildHierarchy(ctx)
				if err != nil {
					return err
				}
				return c.printJSON(res)
			})
		},
	}

	cmd.AddCommand(importCmd, rebuild)
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with API access tokens",
	}

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign an access token for a soldier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			jwtService := pkgAuth.NewJWTService(pkgAuth.JWTConfig{
				SecretKey:      cfg.JWT.Secret,
				AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 8*time.Hour),
				TokenIssuer:    cfg.JWT.Issuer,
			})
			token, expiresAt, err := jwtService.IssueToken(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	issue.Flags().String("user", "", "DoD ID of the token subject")
	issue.Flags().Duration("ttl", 0, "token lifetime (default from jwt.access_token_expiration)")
	_ = issue.MarkFlagRequired("user")

	cmd.AddCommand(issue)
	return cmd
}

func (c *cli) keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Create and hash ETL scheduler service keys",
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Print a new random service key and its hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := pkgAuth.GenerateServiceKey()
			if err != nil {
				return err
			}
			hash, err := pkgAuth.HashServiceKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "key:  %s\nhash: %s\n", key, hash)
			return nil
		},
	}

	hash := &cobra.Command{
		Use:   "hash",
		Short: "Hash an existing service key for auth.service_key_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _ := cmd.Flags().GetString("key")
			hashed, err := pkgAuth.HashServiceKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, hashed)
			return nil
		},
	}
	hash.Flags().String("key", "", "plaintext service key")
	_ = hash.MarkFlagRequired("key")

	cmd.AddCommand(generate, hash)
	return cmd
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
