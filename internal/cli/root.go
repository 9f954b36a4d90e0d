// Package cli implements the crafto command-line front end.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/timmy/crafto/internal/app"
	"github.com/timmy/crafto/internal/config"
	"github.com/timmy/crafto/internal/gateway"
	"github.com/timmy/crafto/internal/logger"
	"github.com/timmy/crafto/internal/service"
	"github.com/timmy/crafto/internal/session"
)

type contextKey struct{}

// env is what every subcommand runs against.
type env struct {
	app  *app.App
	sess *session.Session
}

// NewRootCmd builds the crafto command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "crafto",
		Short: "Browse and share quotes from the terminal",
		Long: `crafto talks to the Crafto quote service.

Log in once with a username and OTP; the credential is kept in the configured
session store and reused by the other commands.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("CONFIG_PATH")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			log := logger.NewFromEnv(cliLogEnv())
			logger.SetDefaultLogger(log)

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			sess := a.Session(cfg.Session.CLIKey)
			ctx := session.WithCurrent(cmd.Context(), sess)
			ctx = logger.SetComponent(ctx, "cli")
			ctx = logger.SetSessionKey(ctx, sess.Key())
			ctx = logger.WithField(ctx, logger.FieldCommand, cmd.Name())
			ctx = context.WithValue(ctx, contextKey{}, &env{app: a, sess: sess})
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newQuotesCmd())
	cmd.AddCommand(newPostCmd())

	return cmd
}

// cliLogEnv keeps diagnostics quiet and readable unless the environment says otherwise.
func cliLogEnv() *logger.EnvConfig {
	envCfg := logger.LoadFromEnv()
	if os.Getenv("LOG_LEVEL") == "" {
		envCfg.Level = "warn"
	}
	if os.Getenv("LOG_FORMAT") == "" {
		envCfg.Format = "text"
	}
	envCfg.ServiceName = "crafto-cli"
	return envCfg
}

func envFrom(cmd *cobra.Command) (*env, bool) {
	e, ok := cmd.Context().Value(contextKey{}).(*env)
	return e, ok
}

// withEnv runs fn against the command environment and closes the app when fn
// returns, on error paths too. cobra skips PersistentPostRunE after a failed
// RunE, so closing happens here.
func withEnv(fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		e, ok := envFrom(cmd)
		if !ok {
			return errors.New("cli: command run without PersistentPreRunE")
		}
		defer func() {
			err = errors.Join(err, e.app.Close())
		}()
		return fn(cmd, args, e)
	}
}

// userError turns a workflow error into a one-line message, with a hint where
// the fix is another command.
func userError(err error) error {
	switch {
	case errors.Is(err, gateway.ErrInvalidSession):
		return errors.New("Invalid token. Log in again (run: crafto login)")
	case errors.Is(err, session.ErrSessionMissing):
		return errors.New(service.MessageSessionMissing + " (run: crafto login)")
	default:
		return errors.New(service.UserMessage(err))
	}
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
