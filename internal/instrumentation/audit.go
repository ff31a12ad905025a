package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/mailmerge/internal/logging"
)

// Delivery captures one send attempt for the audit log.
//
// Recipient is PII. LogAttrs only carries its hash and domain; the full
// address is logged only when the AuditLogger is configured with IncludePII.
type Delivery struct {
	List      string
	Recipient string
	Subject   string
	MessageID string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewDelivery starts timing a delivery to recipient on list.
func NewDelivery(list, recipient string) *Delivery {
	return &Delivery{
		List:      list,
		Recipient: recipient,
		StartTime: time.Now(),
	}
}

// WithSpanContext links the record to the span in ctx.
func (d *Delivery) WithSpanContext(ctx context.Context) *Delivery {
	d.TraceID, d.SpanID = SpanIDs(ctx)
	return d
}

// Complete marks the delivery as finished.
func (d *Delivery) Complete(messageID string, err error) *Delivery {
	d.Duration = time.Since(d.StartTime)
	d.MessageID = messageID
	d.Success = err == nil
	if err != nil {
		d.Error = err.Error()
	}
	return d
}

// Status is the metric label for the outcome.
func (d *Delivery) Status() string {
	if d.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes without the recipient address.
func (d *Delivery) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		logging.List(d.List),
		logging.RecipientHash(d.Recipient),
		logging.Domain(d.Recipient),
		logging.Duration(d.Duration),
		logging.Status(d.Status()),
	}
	return d.appendOptional(attrs)
}

// LogAuditAttrs returns slog attributes including the full recipient address.
func (d *Delivery) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		logging.List(d.List),
		slog.String("recipient", d.Recipient),
		logging.Duration(d.Duration),
		logging.Status(d.Status()),
	}
	if d.Subject != "" {
		attrs = append(attrs, slog.String("subject", d.Subject))
	}
	return d.appendOptional(attrs)
}

func (d *Delivery) appendOptional(attrs []slog.Attr) []slog.Attr {
	if d.MessageID != "" {
		attrs = append(attrs, logging.MessageID(d.MessageID))
	}
	if d.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", d.TraceID))
	}
	if d.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", d.SpanID))
	}
	if d.Error != "" {
		attrs = append(attrs, slog.String("error", d.Error))
	}
	return attrs
}

// AuditLogger writes one structured record per delivery attempt.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger from config. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogDelivery logs d at info level on success and warn level on failure.
func (al *AuditLogger) LogDelivery(ctx context.Context, d *Delivery) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = d.LogAuditAttrs()
	} else {
		attrs = d.LogAttrs()
	}

	level := slog.LevelInfo
	msg := "email_delivered"
	if !d.Success {
		level = slog.LevelWarn
		msg = "email_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, attrs...)
}
