package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Attribute keys shared by every package that logs.
const (
	KeyOperation       = "operation"
	KeyList            = "list"
	KeyRecipientHash   = "recipient_hash"
	KeyRecipientDomain = "recipient_domain"
	KeyMessageID       = "message_id"
	KeyDuration        = "duration"
	KeyStatus          = "status"
	KeyError           = "error"
	KeyState           = "state"
)

// recipientHashPrefix marks hashed addresses so they are not mistaken for
// message or trace ids in log searches.
const recipientHashPrefix = "rcpt:"

// WithOperation returns a logger that tags every record with operation.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(Operation(operation))
}

// WithList returns a logger that tags every record with the list name.
func WithList(logger *slog.Logger, list string) *slog.Logger {
	return logger.With(List(list))
}

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

func List(name string) slog.Attr { return slog.String(KeyList, name) }

// MessageID is the id Gmail assigned to a sent message.
func MessageID(id string) slog.Attr { return slog.String(KeyMessageID, id) }

func Status(status string) slog.Attr { return slog.String(KeyStatus, status) }

func Duration(d time.Duration) slog.Attr { return slog.Duration(KeyDuration, d) }

// State records an authorization state machine step.
func State(s fmt.Stringer) slog.Attr { return slog.String(KeyState, s.String()) }

// Err returns the error attribute. A nil err yields an empty group, which
// handlers drop, so callers can pass errors unconditionally.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail hashes an address so log records about the same recipient
// can be correlated without the address itself appearing. Case and
// surrounding space are ignored.
func AnonymizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return recipientHashPrefix + hex.EncodeToString(sum[:8])
}

// RecipientHash is the attribute form of AnonymizeEmail.
func RecipientHash(email string) slog.Attr {
	return slog.String(KeyRecipientHash, AnonymizeEmail(email))
}

// SanitizeToken describes a credential without revealing any of it.
func SanitizeToken(token string) string {
	if token == "" {
		return "<none>"
	}
	return fmt.Sprintf("<redacted:%d>", len(token))
}

// ExtractDomain returns the lower-cased part after the last '@', or ""
// when the address has no local part or no domain.
func ExtractDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// Domain is the recipient domain attribute. It is safe to log where the
// full address is not.
func Domain(email string) slog.Attr {
	return slog.String(KeyRecipientDomain, ExtractDomain(email))
}
