package google

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/browser"
)

// BrowserFunc opens url for the user.
type BrowserFunc func(ctx context.Context, url string) error

var silenceBrowser sync.Once

// OpenBrowser asks the desktop to open url in the default browser. The
// opener's own output is discarded so it cannot interleave with the
// authorization prompt.
func OpenBrowser(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	silenceBrowser.Do(func() {
		browser.Stdout = io.Discard
		browser.Stderr = io.Discard
	})
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
