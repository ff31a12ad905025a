package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/mailmerge/internal/config"
	"github.com/teemow/mailmerge/internal/dispatch"
	"github.com/teemow/mailmerge/internal/gmail"
	"github.com/teemow/mailmerge/internal/instrumentation"
	"github.com/teemow/mailmerge/internal/logging"
	"github.com/teemow/mailmerge/internal/templates"
)

func newSendCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send [list...]",
		Short: "Send templated emails to the configured recipient lists",
		Long: `Send templated emails to every configured recipient list in file order,
or only to the named lists in the order given.

A list whose name is unknown, or whose template cannot be loaded, is skipped
and the run continues. Individual delivery failures are reported and counted
but never abort the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts, args)
		},
	}
}

func runSend(cmd *cobra.Command, opts *globalOptions, selected []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := opts.setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	logger := logging.WithOperation(rt.logger, "send").With("run_id", uuid.NewString())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Gmail Automated Sender")
	fmt.Fprintln(out, strings.Repeat("=", 40))

	lists, err := config.LoadLists(rt.settings.ListsFile)
	if err != nil {
		return err
	}

	authorizer, err := rt.authorizer(cmd)
	if err != nil {
		return err
	}
	cred, err := authorizer.Authorize(ctx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	client, err := gmail.NewClient(ctx, authorizer.TokenSource(ctx, cred))
	if err != nil {
		return err
	}
	client.SetMetrics(rt.provider.Metrics())

	d := dispatch.New(client, templates.NewLoader(os.DirFS(rt.settings.TemplatesDir)),
		dispatch.WithSendLog(dispatch.NewSendLog(rt.settings.LogFile)),
		dispatch.WithFrom(rt.settings.Sender),
		dispatch.WithOutput(out),
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(rt.provider.Metrics()),
		dispatch.WithAuditLogger(instrumentation.NewAuditLogger(logger, rt.instr.AuditLogging)),
	)

	report := d.SendAllLists(ctx, lists, selected)
	logger.Info("run finished",
		"sent", report.Sent(),
		"total", report.Total(),
		"lists", report.Processed(),
		"missing_lists", len(report.Missing))

	return ctx.Err()
}
