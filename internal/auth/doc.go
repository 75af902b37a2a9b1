// Package auth binds incoming requests to a stable subject identity.
//
// The Authenticator parses the Authorization bearer header and delegates
// token verification to a Verifier. Two verifiers exist: Static (a fixed
// token table for development and tests) and Remote (the external identity
// service). Every call re-verifies; no caching happens on this side.
package auth
