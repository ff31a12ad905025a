package google

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/mailmerge/internal/instrumentation"
	"github.com/teemow/mailmerge/internal/logging"
)

// persistingTokenSource wraps an oauth2 token source and saves the
// credential whenever the access token rotates, so a refresh that happens
// mid-run survives into the next one.
type persistingTokenSource struct {
	base    oauth2.TokenSource
	store   CredentialStore
	conf    *oauth2.Config
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	ctx     context.Context

	mu   sync.Mutex
	last *Credential
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("%w: %w", ErrCredentialExpiredUnrefreshable, err)
	}
	if tok.AccessToken == s.last.Token {
		return tok, nil
	}

	s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultSuccess)
	cred := NewCredential(tok, s.conf, s.last.Scopes)
	if err := s.store.Save(cred); err != nil {
		// The fresh token is still good for this run.
		s.logger.Warn("failed to persist refreshed credential", logging.Err(err))
	} else {
		s.logger.Debug("persisted refreshed credential", slog.String("token", logging.SanitizeToken(tok.AccessToken)))
	}
	s.last = cred
	return tok, nil
}
