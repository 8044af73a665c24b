// Package middleware exposes HTTP middleware adapters for stateless and
// session-checked authorization enforcement built on top of
// authcore.Engine validation.
//
// # Guards
//
//   - [RequireAuth] — stateless JWT verification, no Redis call.
//   - [RequireSession] — JWT verification plus a live-session check.
//   - [RequirePermission] — RequireSession plus an RBAC permission check.
//
// Each guard reads the bearer token from the Authorization header (falling
// back to the configured access cookie), calls the Engine, and injects the
// validated claims into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// the Engine.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to the Engine).
//   - Access Redis (the Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
