// Package auth provides the oauth2-backed TokenProvider for Google API
// calls. Providers refresh expired access tokens transparently; refreshes
// are serialised per credential through an expiring lease so concurrent
// passes never race a refresh.
package auth
