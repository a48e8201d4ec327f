// Package auth implements admin authentication for the caucus site: a
// shared-secret credential check and a signed, self-contained session token
// carried in the admin-token cookie.
//
// Sessions are not stored server-side. A token is valid while its signature
// verifies, its exp claim is in the future and its embedded issuance time is
// no older than SessionMaxAge. Both expiry checks are applied independently.
package auth
