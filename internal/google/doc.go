// Package google authorizes mailmerge against a Google account.
//
// The Authorizer loads the stored credential (Google's authorized_user JSON
// file), refreshes it when it has expired, and otherwise runs the OAuth2
// authorization-code flow with PKCE: it binds a one-shot loopback listener,
// prints the consent URL (and tries to open a browser), waits for the
// redirect and exchanges the code. The resulting credential is written back
// through the CredentialStore.
//
// TokenSource hands the credential to API clients and persists tokens that
// rotate while a run is in progress.
package google
