// Package auth implements credential verification and the session token
// lifecycle for a storefront backend: bcrypt password hashing, signed JWT
// issuance, and a per-user session token list persisted alongside the user
// record.
//
// Session model:
//   - Every successful login mints a token and appends it to the user's
//     Tokens column before the token is returned. Each device holds its own
//     entry, so logging out one device leaves the others untouched.
//   - Request authentication checks signature, expiry, and then membership in
//     the persisted token list. A token that was revoked stays dead even
//     while its claims are still within their validity window.
//   - Extend and logout run behind a session guard that tolerates expired
//     claims; a client holding a stale-but-registered token can still renew
//     or tear down its own session.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to describe
//     login, logout, extension, and revocation events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
package auth
