package google

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CredentialType is the "type" of a Google authorized user credential file.
const CredentialType = "authorized_user"

// expiryDelta mirrors the skew golang.org/x/oauth2 applies before an access
// token is considered expired.
const expiryDelta = 10 * time.Second

// Credential is a persisted OAuth credential in the shape of Google's
// authorized_user JSON file.
type Credential struct {
	Type         string    `json:"type"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenURI     string    `json:"token_uri,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Scopes       []string  `json:"scopes"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

// NewCredential converts an oauth2 token into a Credential. The granted
// scopes come from the token response when the server reports them,
// otherwise fallback is used.
func NewCredential(tok *oauth2.Token, conf *oauth2.Config, fallback []string) *Credential {
	c := &Credential{
		Type:         CredentialType,
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       grantedScopes(tok, fallback),
		Expiry:       tok.Expiry.UTC(),
	}
	if conf != nil {
		c.TokenURI = conf.Endpoint.TokenURL
		c.ClientID = conf.ClientID
		c.ClientSecret = conf.ClientSecret
	}
	if c.TokenURI == "" {
		c.TokenURI = google.Endpoint.TokenURL
	}
	return c
}

func grantedScopes(tok *oauth2.Token, fallback []string) []string {
	if s, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(s) != "" {
		return strings.Fields(s)
	}
	return append([]string(nil), fallback...)
}

// OAuth2Token returns the credential as an oauth2 token.
func (c *Credential) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.Token,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// IsValid reports whether c can be used as-is at now: it has an access
// token that has not expired and carries every required scope.
func IsValid(c *Credential, required []string, now time.Time) bool {
	if c == nil || c.Token == "" {
		return false
	}
	if !c.Expiry.IsZero() && !now.Add(expiryDelta).Before(c.Expiry) {
		return false
	}
	return hasScopes(c.Scopes, required)
}

// IsExpired reports whether c has passed its expiry at now.
func IsExpired(c *Credential, now time.Time) bool {
	return c != nil && !c.Expiry.IsZero() && !now.Add(expiryDelta).Before(c.Expiry)
}

// CredentialStore loads and persists the credential between runs.
type CredentialStore interface {
	Load() (*Credential, bool)
	Save(*Credential) error
}

// FileStore keeps the credential in a single JSON file.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the credential. A missing or unparsable file is reported as
// absent; the reason is only logged.
func (s *FileStore) Load() (*Credential, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Debug("no stored credential", slog.String("path", s.path), slog.String("error", err.Error()))
		return nil, false
	}

	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.Debug("stored credential is unreadable", slog.String("path", s.path), slog.String("error", err.Error()))
		return nil, false
	}
	if c.Token == "" && c.RefreshToken == "" {
		s.logger.Debug("stored credential holds no token", slog.String("path", s.path))
		return nil, false
	}
	return &c, true
}

// Save writes c atomically with owner-only permissions.
func (s *FileStore) Save(c *Credential) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set credential file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}
