package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailmerge/internal/config"
	"github.com/teemow/mailmerge/internal/gmail"
	"github.com/teemow/mailmerge/internal/templates"
)

// fakeSender accepts every message except those addressed to a failing recipient.
type fakeSender struct {
	failFor map[string]bool
	sent    []string
	calls   int
}

func (s *fakeSender) Send(_ context.Context, raw string) (string, error) {
	s.calls++

	data, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return "", err
	}
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	to, err := mail.ParseAddress(msg.Header.Get("To"))
	if err != nil {
		return "", err
	}
	if s.failFor[to.Address] {
		return "", errors.New("send failed: googleapi: Error 400: Invalid To header")
	}
	s.sent = append(s.sent, to.Address)
	return fmt.Sprintf("id-%d", len(s.sent)), nil
}

var fixedTime = time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local)

func newTestDispatcher(t *testing.T, sender Sender, files fstest.MapFS) (*Dispatcher, *bytes.Buffer, *SendLog) {
	t.Helper()

	var out bytes.Buffer
	sendLog := NewSendLog(filepath.Join(t.TempDir(), "email_log.txt"))
	d := New(sender, templates.NewLoader(files),
		WithOutput(&out),
		WithSendLog(sendLog),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedTime }),
	)
	return d, &out, sendLog
}

func testTemplates() fstest.MapFS {
	return fstest.MapFS{
		"order.txt": {Data: []byte("Hello {}, your order {} shipped.")},
		"news.txt":  {Data: []byte("News for {}.")},
	}
}

func testLists(t *testing.T) *config.Lists {
	t.Helper()

	lists, err := config.NewLists(
		config.RecipientList{
			Name:     "orders",
			Subject:  "Your order",
			Template: "order.txt",
			Recipients: []config.Recipient{
				{Email: "alice@example.com", Title: "Ms. Alice", FillItems: []string{"Alice", "12345"}},
				{Email: "bad@example.com", FillItems: []string{"Bad", "0"}},
				{Email: "carol@example.com", FillItems: []string{"Carol"}},
			},
		},
		config.RecipientList{
			Name:     "news",
			Subject:  "News",
			Template: "news.txt",
			Recipients: []config.Recipient{
				{Email: "dave@example.com", FillItems: []string{"Dave"}},
			},
		},
		config.RecipientList{
			Name:     "broken",
			Subject:  "Broken",
			Template: "missing.txt",
			Recipients: []config.Recipient{
				{Email: "erin@example.com"},
				{Email: "frank@example.com"},
			},
		},
	)
	require.NoError(t, err)
	return lists
}

func TestSendOne(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"bad@example.com": true}}
	d, out, _ := newTestDispatcher(t, sender, testTemplates())

	ok := d.SendOne(context.Background(), "alice@example.com", mustEnvelope(t, "alice@example.com"))
	assert.True(t, ok.OK())
	assert.Equal(t, "id-1", ok.MessageID)

	failed := d.SendOne(context.Background(), "bad@example.com", mustEnvelope(t, "bad@example.com"))
	assert.False(t, failed.OK())

	assert.Equal(t,
		"✓ Email sent to alice@example.com (Message ID: id-1)\n"+
			"✗ Failed to send to bad@example.com: send failed: googleapi: Error 400: Invalid To header\n",
		out.String())
}

func TestSendList_PartialFailure(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"bad@example.com": true}}
	d, out, sendLog := newTestDispatcher(t, sender, testTemplates())

	list, _ := testLists(t).Get("orders")
	result, err := d.SendList(context.Background(), list)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent())
	assert.Equal(t, 3, result.Total())
	assert.Equal(t, "2/3", result.Summary())
	require.Len(t, result.Results, 3)
	assert.Equal(t, "alice@example.com", result.Results[0].Recipient)
	assert.False(t, result.Results[1].OK())
	assert.Equal(t, 3, sender.calls, "a failure must not stop the list")

	assert.Contains(t, out.String(), "  Sent 2/3 emails successfully\n")

	data, err := os.ReadFile(sendLog.Path())
	require.NoError(t, err)
	log := string(data)
	assert.Equal(t, 2, strings.Count(log, "Timestamp: "), "one entry per delivered message")
	assert.NotContains(t, log, "bad@example.com")

	// Greeting, substitution and a surplus marker that stays literal.
	assert.Contains(t, log, "Dear Ms. Alice,\n\nHello Alice, your order 12345 shipped.")
	assert.Contains(t, log, "Hello Carol, your order {} shipped.")
}

func TestSendList_MissingTemplate(t *testing.T) {
	sender := &fakeSender{}
	d, _, _ := newTestDispatcher(t, sender, testTemplates())

	list, _ := testLists(t).Get("broken")
	result, err := d.SendList(context.Background(), list)
	require.ErrorIs(t, err, templates.ErrTemplateNotFound)
	assert.Equal(t, "0/2", result.Summary())
	assert.Zero(t, sender.calls, "nothing may be sent without a template")
}

func TestSendAllLists(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"bad@example.com": true}}
	d, out, _ := newTestDispatcher(t, sender, testTemplates())

	report := d.SendAllLists(context.Background(), testLists(t), nil)

	require.Len(t, report.Lists, 3)
	assert.Equal(t, []string{"orders", "news", "broken"}, []string{report.Lists[0].Name, report.Lists[1].Name, report.Lists[2].Name})
	assert.Equal(t, 3, report.Sent())
	assert.Equal(t, 6, report.Total(), "recipients of a list with a missing template count as failed")
	assert.Equal(t, "Total: 3/6 emails sent across 3 list(s)", report.Summary())

	console := out.String()
	assert.Contains(t, console, "\n[orders]\n")
	assert.Contains(t, console, "\n[news]\n")
	assert.Contains(t, console, "\n[broken]\n")
	assert.Contains(t, console, "✗ Template 'missing.txt' for list 'broken' could not be loaded, skipping")
	assert.True(t, strings.HasSuffix(console, "\n"+strings.Repeat("=", 40)+"\nTotal: 3/6 emails sent across 3 list(s)\n"))
}

func TestSendAllLists_Selected(t *testing.T) {
	sender := &fakeSender{}
	d, out, _ := newTestDispatcher(t, sender, testTemplates())

	report := d.SendAllLists(context.Background(), testLists(t), []string{"news", "ghost"})

	require.Len(t, report.Lists, 1)
	assert.Equal(t, "news", report.Lists[0].Name)
	assert.Equal(t, []string{"ghost"}, report.Missing)
	assert.Equal(t, "Total: 1/1 emails sent across 1 list(s)", report.Summary())

	console := out.String()
	assert.Equal(t, 1, strings.Count(console, "✗ Email list 'ghost' not found, skipping\n"))
	assert.NotContains(t, console, "[orders]")
}

func TestSendAllLists_SelectedOrder(t *testing.T) {
	sender := &fakeSender{}
	d, _, _ := newTestDispatcher(t, sender, testTemplates())

	report := d.SendAllLists(context.Background(), testLists(t), []string{"news", "orders"})

	require.Len(t, report.Lists, 2)
	assert.Equal(t, "news", report.Lists[0].Name)
	assert.Equal(t, "orders", report.Lists[1].Name)
	assert.Equal(t, "dave@example.com", sender.sent[0])
}

func TestSendAllLists_Cancelled(t *testing.T) {
	sender := &fakeSender{}
	d, out, _ := newTestDispatcher(t, sender, testTemplates())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := d.SendAllLists(ctx, testLists(t), nil)
	assert.Empty(t, report.Lists)
	assert.Zero(t, sender.calls)
	assert.Contains(t, out.String(), "Total: 0/0 emails sent across 0 list(s)")
}

func TestSendList_HTMLAlternative(t *testing.T) {
	sender := &fakeSender{}
	files := fstest.MapFS{
		"promo.md": {Data: []byte("# Hi {}\n\nCode: **{}**\n")},
	}
	d, _, sendLog := newTestDispatcher(t, sender, files)

	list := &config.RecipientList{
		Name:       "promo",
		Subject:    "Promo",
		Template:   "promo.md",
		Recipients: []config.Recipient{{Email: "gina@example.com", Title: "Gina", FillItems: []string{"Gina", "XYZ"}}},
	}
	result, err := d.SendList(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, "1/1", result.Summary())

	data, err := os.ReadFile(sendLog.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Dear Gina,\n\n# Hi Gina\n\nCode: **XYZ**\n", "the log keeps the plain body")
}

// cancelAfterFirst cancels the run once the first message has gone out.
type cancelAfterFirst struct {
	fakeSender
	cancel context.CancelFunc
}

func (s *cancelAfterFirst) Send(ctx context.Context, raw string) (string, error) {
	defer s.cancel()
	return s.fakeSender.Send(ctx, raw)
}

func TestSendList_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &cancelAfterFirst{cancel: cancel}
	d, out, _ := newTestDispatcher(t, sender, testTemplates())

	orders, ok := testLists(t).Get("orders")
	require.True(t, ok)

	result, err := d.SendList(ctx, orders)
	require.NoError(t, err)

	assert.Equal(t, 1, sender.calls, "no send is attempted after cancellation")
	assert.Equal(t, "1/3", result.Summary())
	assert.NotContains(t, out.String(), "✗ Failed to send")
}

func mustEnvelope(t *testing.T, to string) *gmail.Envelope {
	t.Helper()
	env, err := gmail.BuildMessage("", to, "Subject", "Body", "")
	require.NoError(t, err)
	return env
}
