package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"quicktasks/internal/config"
	"quicktasks/internal/exitcode"
)

func init() {
	Register(&MigrateCmd{})
}

// MigrateCmd applies the database schema.
type MigrateCmd struct{}

func (c *MigrateCmd) Name() string       { return "migrate" }
func (c *MigrateCmd) Aliases() []string  { return nil }
func (c *MigrateCmd) Synopsis() string   { return "Create or update the database schema" }
func (c *MigrateCmd) Usage() string      { return "quicktasks migrate" }
func (c *MigrateCmd) NeedsAuth() bool    { return false }
func (c *MigrateCmd) NeedsBackend() bool { return true }

func (c *MigrateCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MigrateCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if code := migrate(ctx, env, errOut); code != exitcode.Success {
		return code
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "Database schema is up to date")
	}
	return exitcode.Success
}

// migrate runs env.Migrate, if set.
func migrate(ctx context.Context, env *Env, errOut io.Writer) int {
	if env.Migrate == nil {
		return exitcode.Success
	}
	if err := env.Migrate(ctx); err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
