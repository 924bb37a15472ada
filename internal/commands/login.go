package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"quicktasks/internal/config"
	"quicktasks/internal/exitcode"
	"quicktasks/internal/identity"
)

// EnvPassword is read when --password is not given.
const EnvPassword = "QUICKTASKS_PASSWORD"

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// credentials are the --email/--password flags of login and register.
type credentials struct {
	email    string
	password string
}

func (c *credentials) register(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.email, "e", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

// resolve fills the password from the environment and checks both are set.
func (c *credentials) resolve() (email, password string, err error) {
	email = strings.TrimSpace(c.email)
	password = c.password
	if password == "" {
		password = os.Getenv(EnvPassword)
	}
	if email == "" {
		return "", "", errors.New("email required (use --email)")
	}
	if password == "" {
		return "", "", fmt.Errorf("password required (use --password or %s)", EnvPassword)
	}
	return email, password, nil
}

// LoginCmd implements the login command.
type LoginCmd struct {
	credentials
	google bool
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Sign in with email and password or Google" }
func (c *LoginCmd) Usage() string      { return "quicktasks login [--google] [--email <e> --password <p>]" }
func (c *LoginCmd) NeedsAuth() bool    { return false }
func (c *LoginCmd) NeedsBackend() bool { return true }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	c.credentials.register(fs)
	fs.BoolVar(&c.google, "google", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if c.google {
		// The Google token is written next to the session file.
		if err := cfg.EnsureDir(); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.AuthError
		}
		if _, err := env.Gateway.SignInWithGoogle(ctx); err != nil {
			return reportAuthError(err, errOut)
		}
		if !cfg.Quiet {
			fmt.Fprintln(out, "Logged in successfully with Google")
		}
		return exitcode.Success
	}

	email, password, err := c.resolve()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if _, err := env.Gateway.SignInWithEmail(ctx, email, password); err != nil {
		return reportAuthError(err, errOut)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "Logged in successfully")
	}
	return exitcode.Success
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	credentials
}

func (c *RegisterCmd) Name() string       { return "register" }
func (c *RegisterCmd) Aliases() []string  { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string   { return "Create an account and sign in" }
func (c *RegisterCmd) Usage() string      { return "quicktasks register --email <e> --password <p>" }
func (c *RegisterCmd) NeedsAuth() bool    { return false }
func (c *RegisterCmd) NeedsBackend() bool { return true }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) { c.credentials.register(fs) }

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	email, password, err := c.resolve()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if _, err := env.Gateway.SignUpWithEmail(ctx, email, password); err != nil {
		return reportAuthError(err, errOut)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "Account created successfully")
	}
	return exitcode.Success
}

// reportAuthError prints the human-readable message of a gateway error.
func reportAuthError(err error, errOut io.Writer) int {
	var authErr *identity.Error
	if errors.As(err, &authErr) {
		fmt.Fprintf(errOut, "error: %s\n", authErr.Message)
		return exitcode.AuthError
	}
	fmt.Fprintf(errOut, "error: %s\n", identity.MessageFor("", err.Error()))
	return exitcode.AuthError
}
