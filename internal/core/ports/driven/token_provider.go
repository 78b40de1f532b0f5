package driven

import "context"

// TokenProvider provides access tokens for authenticated provider calls.
// Implementations refresh expired tokens transparently and serialise
// refreshes per credential.
type TokenProvider interface {
	// GetToken returns a valid access token, refreshing if needed.
	// Returns domain.ErrReauthRequired if the refresh token itself is
	// invalid and the user must reconnect their account.
	GetToken(ctx context.Context) (string, error)

	// CredentialID returns the credential this provider is bound to.
	CredentialID() string
}
