package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const successPage = `<html><body style="font-family: Arial; text-align: center; padding-top: 50px;">
<h1>Authorization Successful!</h1>
<p>You can close this window and return to the terminal.</p>
</body></html>
`

const errorPage = `<html><body style="font-family: Arial; text-align: center; padding-top: 50px;">
<h1>Authorization Failed</h1>
<p>No authorization code was received. Return to the terminal and try again.</p>
</body></html>
`

const shutdownTimeout = 5 * time.Second

// callbackResult is what the redirect delivered: a code, or the reason there is none.
type callbackResult struct {
	code string
	err  error
}

// callbackServer is a loopback listener that accepts exactly one OAuth
// redirect and then stops.
type callbackServer struct {
	listener    net.Listener
	server      *http.Server
	redirectURL string
	path        string
	state       string
	logger      *slog.Logger

	result chan callbackResult
	once   sync.Once
	close  sync.Once
}

// newCallbackServer binds the address of redirectURL and starts serving.
// Port 0 binds an ephemeral port; RedirectURL then reports the bound one.
func newCallbackServer(redirectURL, state string, logger *slog.Logger) (*callbackServer, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL %q: %w", redirectURL, err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect URL %q must use http on a loopback address", redirectURL)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "80"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for the authorization redirect on %s: %w", u.Host, err)
	}

	if port == "0" {
		_, bound, _ := net.SplitHostPort(listener.Addr().String())
		u.Host = net.JoinHostPort(host, bound)
	}

	path := u.Path
	if path == "" {
		path = "/"
		u.Path = "/"
	}

	s := &callbackServer{
		listener:    listener,
		redirectURL: u.String(),
		path:        path,
		state:       state,
		logger:      logger,
		result:      make(chan callbackResult, 1),
	}
	s.server = &http.Server{
		Handler:           http.HandlerFunc(s.handle),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Debug("callback server stopped", slog.String("error", err.Error()))
		}
	}()

	return s, nil
}

// RedirectURL is the redirect URI to put in the authorization request.
func (s *callbackServer) RedirectURL() string {
	return s.redirectURL
}

func (s *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.path {
		http.NotFound(w, r)
		return
	}

	handled := false
	s.once.Do(func() {
		handled = true
		res := s.parse(r)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(errorPage))
		} else {
			_, _ = w.Write([]byte(successPage))
		}
		s.result <- res
	})

	if !handled {
		http.Error(w, "authorization already handled", http.StatusGone)
	}
}

func (s *callbackServer) parse(r *http.Request) callbackResult {
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		reason := e
		if d := q.Get("error_description"); d != "" {
			reason = e + ": " + d
		}
		return callbackResult{err: fmt.Errorf("%w: %s", ErrAuthorizationDenied, reason)}
	}
	if q.Get("state") != s.state {
		return callbackResult{err: fmt.Errorf("%w: state mismatch", ErrAuthorizationDenied)}
	}
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		return callbackResult{err: fmt.Errorf("%w: no code received", ErrAuthorizationDenied)}
	}
	return callbackResult{code: code}
}

// Wait blocks until the redirect arrives or ctx is done. There is no timeout
// of its own: a user who never completes consent blocks until cancellation.
func (s *callbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-s.result:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the listener. It is safe to call more than once.
func (s *callbackServer) Close() {
	s.close.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			_ = s.server.Close()
		}
		_ = s.listener.Close()
	})
}
