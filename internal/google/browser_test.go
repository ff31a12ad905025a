package google

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBrowser_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := OpenBrowser(ctx, "http://127.0.0.1:1/never-opened")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthorize_PrintsURLWhenBrowserFails(t *testing.T) {
	var out bytes.Buffer
	a := NewAuthorizer(newFakeTokenEndpoint(t).config(), newStore(t),
		WithOutput(&out),
		WithBrowser(func(context.Context, string) error {
			return assert.AnError
		}))

	a.present(context.Background(), "https://accounts.example.com/auth?x=1")

	assert.Contains(t, out.String(), "https://accounts.example.com/auth?x=1")
}
