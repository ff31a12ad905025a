package gmail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/mailmerge/internal/instrumentation"
)

// ErrSendFailed wraps every error returned by the Gmail API on send.
var ErrSendFailed = errors.New("send failed")

// me is the Gmail API alias for the authorized user.
const me = "me"

// Client wraps the Gmail Users service
type Client struct {
	svc     *gmail.UsersService
	metrics *instrumentation.Metrics
}

// NewClient creates a Gmail client authorized by ts. A nil ts relies on
// the given options for authentication.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	if ts != nil {
		opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{svc: svc.Users}, nil
}

// SetMetrics records every API call on m.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// Send submits a raw (URL-safe base64) message and returns the id Gmail assigned.
func (c *Client) Send(ctx context.Context, raw string) (string, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationSend)
	defer span.End()

	start := time.Now()
	sent, err := c.svc.Messages.Send(me, &gmail.Message{Raw: raw}).Context(ctx).Do()
	duration := time.Since(start)

	if err != nil {
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationSend, instrumentation.StatusError, duration)
		instrumentation.SetSpanError(span, err)
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationSend, instrumentation.StatusSuccess, duration)
	span.SetAttributes(attribute.String(instrumentation.SpanAttrMessageID, sent.Id))
	instrumentation.SetSpanSuccess(span)
	return sent.Id, nil
}
