package google

import gmail "google.golang.org/api/gmail/v1"

// ScopeGmailSend allows sending mail as the authorized user and nothing else.
const ScopeGmailSend = gmail.GmailSendScope

// DefaultScopes are the scopes mailmerge asks for. Sending is the only
// capability it needs, so the consent screen stays minimal.
var DefaultScopes = []string{
	ScopeGmailSend,
}

// hasScopes reports whether granted contains every scope in required.
func hasScopes(granted, required []string) bool {
	set := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		set[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
