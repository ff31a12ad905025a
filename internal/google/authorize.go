package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/mailmerge/internal/instrumentation"
	"github.com/teemow/mailmerge/internal/logging"
)

var (
	// ErrAuthorizationDenied means the redirect carried no usable code:
	// the user declined, the provider reported an error, or the state did
	// not match. It is fatal for the run.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrCredentialExpiredUnrefreshable means the stored credential expired
	// and could not be refreshed. Authorize recovers from it by asking for
	// consent again.
	ErrCredentialExpiredUnrefreshable = errors.New("credential expired and could not be refreshed")
)

// State is a step of the authorization state machine.
type State int

const (
	StateLoad State = iota
	StateValid
	StateExpired
	StateNoCredential
	StateRefreshed
	StateAwaitingUserConsent
	StateAwaitingRedirect
	StateTokenExchanged
	StatePersisted
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoad:
		return "load"
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	case StateNoCredential:
		return "no_credential"
	case StateRefreshed:
		return "refreshed"
	case StateAwaitingUserConsent:
		return "awaiting_user_consent"
	case StateAwaitingRedirect:
		return "awaiting_redirect"
	case StateTokenExchanged:
		return "token_exchanged"
	case StatePersisted:
		return "persisted"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ConfigFromFile reads an OAuth client secrets file downloaded from the
// Google Cloud Console and points it at redirectURL.
func ConfigFromFile(path, redirectURL string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets %s: %w", path, err)
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets %s: %w", path, err)
	}
	conf.RedirectURL = redirectURL
	return conf, nil
}

// Authorizer produces a usable credential, refreshing or running the
// interactive consent flow as needed.
type Authorizer struct {
	conf    *oauth2.Config
	store   CredentialStore
	scopes  []string
	out     io.Writer
	browser BrowserFunc
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithOutput sets where the authorization URL and progress are printed.
func WithOutput(w io.Writer) Option {
	return func(a *Authorizer) { a.out = w }
}

// WithBrowser replaces the function used to open the authorization URL.
// A nil function only prints the URL.
func WithBrowser(fn BrowserFunc) Option {
	return func(a *Authorizer) { a.browser = fn }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authorizer) { a.logger = logger }
}

// WithMetrics records authorization and refresh outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Authorizer) { a.metrics = m }
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authorizer) { a.now = now }
}

// NewAuthorizer returns an Authorizer for conf backed by store.
func NewAuthorizer(conf *oauth2.Config, store CredentialStore, opts ...Option) *Authorizer {
	a := &Authorizer{
		conf:    conf,
		store:   store,
		scopes:  conf.Scopes,
		out:     os.Stdout,
		browser: OpenBrowser,
		logger:  slog.Default(),
		now:     time.Now,
	}
	if len(a.scopes) == 0 {
		a.scopes = DefaultScopes
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.WithOperation(a.logger, "authorize")
	return a
}

// Authorize walks the state machine until a credential is ready:
//
//	Load -> Valid -> Ready
//	Load -> Expired -> Refreshed -> Persisted -> Ready
//	Load -> NoCredential -> AwaitingUserConsent -> AwaitingRedirect -> TokenExchanged -> Persisted -> Ready
//
// A failed refresh falls back to NoCredential. The consent wait has no
// timeout and only ends early when ctx is cancelled.
func (a *Authorizer) Authorize(ctx context.Context) (*Credential, error) {
	var (
		state    = StateLoad
		cred     *Credential
		tok      *oauth2.Token
		callback *callbackServer
		verifier string
	)
	defer func() {
		if callback != nil {
			callback.Close()
		}
	}()

	for {
		a.logger.Debug("authorization step", logging.State(state))

		switch state {
		case StateLoad:
			stored, ok := a.store.Load()
			switch {
			case !ok:
				state = StateNoCredential
			case IsValid(stored, a.scopes, a.now()):
				cred = stored
				state = StateValid
			case stored.RefreshToken != "" && hasScopes(stored.Scopes, a.scopes):
				if IsExpired(stored, a.now()) {
					a.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultExpired)
				}
				cred = stored
				state = StateExpired
			default:
				a.logger.Info("stored credential cannot be used, asking for consent")
				state = StateNoCredential
			}

		case StateValid:
			state = StateReady

		case StateExpired:
			fmt.Fprintln(a.out, "Refreshing expired token...")
			refreshed, err := a.refresh(ctx, cred)
			if err != nil {
				a.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
				a.logger.Warn("token refresh failed",
					logging.Err(fmt.Errorf("%w: %w", ErrCredentialExpiredUnrefreshable, err)))
				cred = nil
				state = StateNoCredential
				continue
			}
			a.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
			cred = refreshed
			state = StateRefreshed

		case StateRefreshed, StateTokenExchanged:
			if err := a.store.Save(cred); err != nil {
				return nil, fmt.Errorf("failed to persist credential: %w", err)
			}
			state = StatePersisted

		case StatePersisted:
			if fs, ok := a.store.(*FileStore); ok {
				fmt.Fprintf(a.out, "\nToken saved to %s\n", fs.Path())
			}
			state = StateReady

		case StateNoCredential:
			state = StateAwaitingUserConsent

		case StateAwaitingUserConsent:
			stateToken := uuid.NewString()
			verifier = oauth2.GenerateVerifier()

			var err error
			callback, err = newCallbackServer(a.conf.RedirectURL, stateToken, a.logger)
			if err != nil {
				a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
				return nil, err
			}
			a.present(ctx, a.authCodeURL(callback.RedirectURL(), stateToken, verifier))
			state = StateAwaitingRedirect

		case StateAwaitingRedirect:
			fmt.Fprintln(a.out, "\nWaiting for authorization...")
			code, err := callback.Wait(ctx)
			callback.Close()
			if err != nil {
				a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
				return nil, err
			}

			conf := a.confFor(callback.RedirectURL())
			tok, err = conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
			if err != nil {
				a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
				return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
			}
			a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
			cred = NewCredential(tok, a.conf, a.scopes)
			state = StateTokenExchanged

		case StateReady:
			a.logger.Debug("credential ready", slog.Time("expiry", cred.Expiry))
			return cred, nil
		}
	}
}

func (a *Authorizer) refresh(ctx context.Context, cred *Credential) (*Credential, error) {
	tok := cred.OAuth2Token()
	// Force the refresh even if the access token still looks usable to oauth2.
	tok.Expiry = time.Unix(1, 0)

	fresh, err := a.conf.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, err
	}
	return NewCredential(fresh, a.conf, cred.Scopes), nil
}

func (a *Authorizer) confFor(redirectURL string) *oauth2.Config {
	conf := *a.conf
	conf.RedirectURL = redirectURL
	return &conf
}

func (a *Authorizer) authCodeURL(redirectURL, state, verifier string) string {
	return a.confFor(redirectURL).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.S256ChallengeOption(verifier),
	)
}

func (a *Authorizer) present(ctx context.Context, authURL string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(a.out, "\n%s\nFIRST-TIME AUTHENTICATION REQUIRED\n%s\n", rule, rule)
	fmt.Fprintf(a.out, "\nIf the browser doesn't open, go to this URL manually:\n\n%s\n\n%s\n", authURL, rule)

	if a.browser == nil {
		return
	}
	if err := a.browser(ctx, authURL); err != nil {
		a.logger.Debug("could not open browser", logging.Err(err))
	}
}

// TokenSource returns a token source seeded with cred that writes rotated
// tokens back to the store.
func (a *Authorizer) TokenSource(ctx context.Context, cred *Credential) oauth2.TokenSource {
	base := a.conf.TokenSource(ctx, cred.OAuth2Token())
	return &persistingTokenSource{
		base:    base,
		store:   a.store,
		conf:    a.conf,
		last:    cred,
		logger:  a.logger,
		metrics: a.metrics,
		ctx:     ctx,
	}
}
