package authcore

import "context"

type clientIPContextKey struct{}
type tenantIDContextKey struct{}
type userAgentContextKey struct{}
type deviceNameContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine
// uses it for per-IP rate limiting, audit events, and session
// metadata.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithTenantID attaches a tenant identifier to ctx for multi-tenant
// isolation. When multi-tenancy is disabled the configured default
// tenant is used.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDContextKey{}, tenantID)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. Recorded
// on sessions and audit events.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithDeviceName attaches a caller-chosen device label to ctx, shown
// back in session listings.
func WithDeviceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, deviceNameContextKey{}, name)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func deviceNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	name, _ := ctx.Value(deviceNameContextKey{}).(string)
	return name
}

func (e *Engine) tenantIDFromContext(ctx context.Context) string {
	if !e.config.MultiTenant.Enabled {
		return e.config.MultiTenant.DefaultTenant
	}
	if ctx == nil {
		return e.config.MultiTenant.DefaultTenant
	}

	tenantID, _ := ctx.Value(tenantIDContextKey{}).(string)
	if tenantID == "" {
		return e.config.MultiTenant.DefaultTenant
	}
	return tenantID
}
