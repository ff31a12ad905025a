package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/teemow/mailmerge/internal/config"
	"github.com/teemow/mailmerge/internal/gmail"
	"github.com/teemow/mailmerge/internal/instrumentation"
	"github.com/teemow/mailmerge/internal/logging"
	"github.com/teemow/mailmerge/internal/templates"
)

// ErrListNotFound is reported for a requested list name that is not configured.
var ErrListNotFound = errors.New("email list not found")

// Sender delivers one raw message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, raw string) (string, error)
}

// TemplateLoader resolves a list's template files.
type TemplateLoader interface {
	Load(name, htmlName string) (*templates.Template, error)
}

// Dispatcher sends recipient lists one message at a time, in order.
type Dispatcher struct {
	sender    Sender
	templates TemplateLoader
	sendLog   *SendLog
	from      string
	out       io.Writer
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	now       func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSendLog records every delivered message in l.
func WithSendLog(l *SendLog) Option {
	return func(d *Dispatcher) { d.sendLog = l }
}

// WithFrom sets the From address. Empty lets Gmail use the authorized account.
func WithFrom(from string) Option {
	return func(d *Dispatcher) { d.from = from }
}

// WithOutput sets where the operator-facing progress lines go.
func WithOutput(w io.Writer) Option {
	return func(d *Dispatcher) { d.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMetrics records delivery outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithAuditLogger writes one audit record per delivery attempt.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(d *Dispatcher) { d.audit = al }
}

// WithClock overrides the clock used for send log timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New returns a Dispatcher sending through sender with templates from loader.
func New(sender Sender, loader TemplateLoader, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		templates: loader,
		out:       os.Stdout,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendOne delivers env to recipient. A provider failure is printed and
// returned in the result, never as an error.
func (d *Dispatcher) SendOne(ctx context.Context, recipient string, env *gmail.Envelope) SendResult {
	id, err := d.sender.Send(ctx, env.Raw)
	if err != nil {
		fmt.Fprintf(d.out, "✗ Failed to send to %s: %v\n", recipient, err)
		return SendResult{Recipient: recipient, Err: err}
	}

	fmt.Fprintf(d.out, "✓ Email sent to %s (Message ID: %s)\n", recipient, id)
	return SendResult{Recipient: recipient, MessageID: id}
}

// SendList renders and sends the list's message to each recipient in
// order. A missing template fails the whole list before anything is sent.
func (d *Dispatcher) SendList(ctx context.Context, list *config.RecipientList) (ListResult, error) {
	ctx, span := instrumentation.StartListSpan(ctx, list.Name, len(list.Recipients))
	defer span.End()

	logger := logging.WithList(logging.WithOperation(d.logger, "send_list"), list.Name)
	result := ListResult{Name: list.Name, Recipients: len(list.Recipients)}

	tmpl, err := d.templates.Load(list.Template, list.HTMLTemplate)
	if err != nil {
		result.Err = err
		instrumentation.SetSpanError(span, err)
		for range list.Recipients {
			d.metrics.RecordEmailSent(ctx, list.Name, instrumentation.StatusError)
		}
		return result, err
	}

	markers := templates.Placeholders(tmpl.Text)
	for _, r := range list.Recipients {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled, remaining recipients skipped",
				slog.Int("skipped", len(list.Recipients)-len(result.Results)),
				logging.Err(err))
			break
		}
		if len(r.FillItems) < markers {
			logger.Warn("fewer fill items than placeholders, the rest stay literal",
				logging.RecipientHash(r.Email),
				slog.Int("placeholders", markers),
				slog.Int("fill_items", len(r.FillItems)))
		}

		res := d.deliver(ctx, list, r, tmpl)
		result.Results = append(result.Results, res)
	}

	fmt.Fprintf(d.out, "  Sent %s emails successfully\n", result.Summary())
	logger.Info("list sent",
		slog.Int("sent", result.Sent()),
		slog.Int("total", result.Total()))
	instrumentation.SetSpanSuccess(span)
	return result, nil
}

func (d *Dispatcher) deliver(ctx context.Context, list *config.RecipientList, r config.Recipient, tmpl *templates.Template) SendResult {
	ctx, span := instrumentation.StartDeliverySpan(ctx, list.Name, r.Email)
	defer span.End()

	audit := instrumentation.NewDelivery(list.Name, r.Email).WithSpanContext(ctx)
	audit.Subject = list.Subject

	rendered := tmpl.Render(r.FillItems, r.Title)

	var res SendResult
	env, err := gmail.BuildMessage(d.from, r.Email, list.Subject, rendered.Text, rendered.HTML)
	if err != nil {
		fmt.Fprintf(d.out, "✗ Failed to send to %s: %v\n", r.Email, err)
		res = SendResult{Recipient: r.Email, Err: err}
	} else {
		res = d.SendOne(ctx, r.Email, env)
	}

	d.audit.LogDelivery(ctx, audit.Complete(res.MessageID, res.Err))

	if !res.OK() {
		instrumentation.SetSpanError(span, res.Err)
		d.metrics.RecordEmailSent(ctx, list.Name, instrumentation.StatusError)
		return res
	}
	instrumentation.SetSpanSuccess(span)
	d.metrics.RecordEmailSent(ctx, list.Name, instrumentation.StatusSuccess)

	if d.sendLog != nil {
		entry := Entry{
			Time:    d.now(),
			List:    list.Name,
			To:      r.Email,
			Subject: list.Subject,
			Body:    rendered.Text,
		}
		if err := d.sendLog.Append(entry); err != nil {
			d.logger.Warn("failed to record delivery in send log",
				logging.MessageID(res.MessageID),
				logging.Err(err))
		}
	}
	return res
}

// SendAllLists sends every configured list in file order, or only the
// selected names in the order given. Unknown names and lists whose template
// is missing are reported and skipped; they never stop the run.
func (d *Dispatcher) SendAllLists(ctx context.Context, lists *config.Lists, selected []string) Report {
	names := selected
	if len(names) == 0 {
		names = lists.Names()
	}

	var report Report
	for _, name := range names {
		if ctx.Err() != nil {
			d.logger.Warn("run cancelled, remaining lists skipped", logging.Err(ctx.Err()))
			break
		}

		list, ok := lists.Get(name)
		if !ok {
			fmt.Fprintf(d.out, "✗ Email list '%s' not found, skipping\n", name)
			d.logger.Warn("skipping list", logging.List(name), logging.Err(fmt.Errorf("%w: %s", ErrListNotFound, name)))
			report.Missing = append(report.Missing, name)
			continue
		}

		fmt.Fprintf(d.out, "\n[%s]\n", name)
		result, err := d.SendList(ctx, list)
		if err != nil {
			fmt.Fprintf(d.out, "✗ Template '%s' for list '%s' could not be loaded, skipping: %v\n", list.Template, name, err)
			d.logger.Error("list skipped", logging.List(name), logging.Err(err))
		}
		report.Lists = append(report.Lists, result)
	}

	fmt.Fprintf(d.out, "\n%s\n", strings.Repeat("=", 40))
	fmt.Fprintln(d.out, report.Summary())
	return report
}
