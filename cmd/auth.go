package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/mailmerge/internal/logging"
)

func newAuthCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize sending with your Google account",
		Long: `Run the authorization flow without sending anything.

A stored credential that is still valid is kept, an expired one is refreshed,
and otherwise the consent URL is printed (and opened in the browser) and the
resulting credential is stored in the token file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, opts)
		},
	}
}

func runAuth(cmd *cobra.Command, opts *globalOptions) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := opts.setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	authorizer, err := rt.authorizer(cmd)
	if err != nil {
		return err
	}
	cred, err := authorizer.Authorize(ctx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	rt.logger.Debug("credential ready",
		logging.Operation("auth"),
		"expiry", cred.Expiry,
		"scopes", cred.Scopes)
	fmt.Fprintf(cmd.OutOrStdout(), "Authorized. Credential stored in %s\n", rt.settings.TokenFile)
	return nil
}
