// Package authcore provides an embeddable multi-tenant authentication engine
// with pluggable credential providers, JWT access tokens, rotating refresh
// tokens bound to Redis-backed sessions, and full MFA orchestration (TOTP,
// email/SMS one-time codes, trusted devices, recovery codes).
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, SessionInfo, SecurityReport, etc.). The
// token, session, mfa, rate, and rbac sub-packages hold the mechanics and
// can be used standalone, but the Engine is the supported entry point.
//
// # What this package must NOT do
//
//   - Deliver email or SMS. SendMFACode and its siblings return the plaintext
//     code; transport is the caller's responsibility.
//   - Render HTTP responses. The middleware sub-package adapts Engine calls
//     to net/http; the Engine itself never writes to a ResponseWriter beyond
//     the cookie helpers.
//   - Store users. Persistence goes through the store interfaces supplied at
//     build time.
//
// # Performance contract
//
// ValidateAccessToken is the hot path. It verifies the JWT signature without
// a Redis round-trip; ValidateAccessTokenStrict adds exactly one. Login,
// Refresh, and the MFA operations are allowed a small constant number of
// Redis round-trips per call, with every multi-step mutation executed as a
// single Lua script.
package authcore
