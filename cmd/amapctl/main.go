// amapctl runs the A-MAP maintenance jobs outside the HTTP server: schema
// migrations, seed data, the staging transforms, unit imports and credential
// helpers for operators and the ETL scheduler.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ai2c/amap/internal/bootstrap"
	"github.com/ai2c/amap/internal/config"
	"github.com/ai2c/amap/internal/db"
)

var version = "dev" // set by the linker

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

// cli carries the settings shared by every subcommand
type cli struct {
	v   *viper.Viper
	out io.Writer
}

// newRootCmd builds a fresh command tree. Tests create one per case so flag
// state never leaks between runs.
func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out}
	c.v.SetEnvPrefix("AMAP")
	c.v.AutomaticEnv()
	c.v.SetDefault("config", bootstrap.DefaultConfigPath)
	c.v.SetDefault("migrations", "migrations")

	cmd := &cobra.Command{
		Use:          "amapctl",
		Short:        "Operate an A-MAP deployment",
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)

	cmd.PersistentFlags().String("config", bootstrap.DefaultConfigPath, "path to the YAML config file")
	cmd.PersistentFlags().String("migrations", "migrations", "directory holding the SQL migrations")
	_ = c.v.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = c.v.BindPFlag("migrations", cmd.PersistentFlags().Lookup("migrations"))

	cmd.AddCommand(
		c.migrateCmd(),
		c.seedCmd(),
		c.etlCmd(),
		c.unitsCmd(),
		c.tokenCmd(),
		c.keyCmd(),
	)
	return cmd
}

func (c *cli) loadConfig() (*config.Config, zerolog.Logger, error) {
	return bootstrap.LoadConfigAndSetupLogger(c.v.GetString("config"))
}

// withDatabase connects to the main database and closes it when fn returns
func (c *cli) withDatabase(fn func(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error) error {
	cfg, lgr, err := c.loadConfig()
	if err != nil {
		return err
	}
	database, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, cfg, database, lgr)
}

// withDependencies wires the full service graph. Close releases the source
// database and publisher as well as the main pool.
func (c *cli) withDependencies(fn func(ctx context.Context, cfg *config.Config, deps *bootstrap.Dependencies) error) error {
	cfg, lgr, err := c.loadConfig()
	if err != nil {
		return err
	}
	database, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	deps, err := bootstrap.BuildDependencies(cfg, database, lgr)
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, cfg, deps)
}
