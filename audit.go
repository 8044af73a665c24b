package authcore

import (
	"context"
	"io"
	"time"

	"github.com/authcore-dev/authcore/internal/audit"
)

// AuditEvent is the lifecycle event type delivered to sinks.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Delivery is asynchronous;
// a slow or failing sink never affects the emitting call's outcome.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers audit events into a buffered channel for a
// consumer goroutine.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes audit events as one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink describes the newchannelsink operation and its observable behavior.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event types emitted by the engine.
const (
	EventLogin            = "login"
	EventLoginFailed      = "login_failed"
	EventMFAChallenge     = "mfa_challenge"
	EventMFAVerified      = "mfa_verified"
	EventMFAFailed        = "mfa_failed"
	EventCodeSent         = "code_sent"
	EventSignup           = "signup"
	EventRefresh          = "refresh"
	EventRefreshFailed    = "refresh_failed"
	EventLogout           = "logout"
	EventLogoutAll        = "logout_all"
	EventSessionRevoked   = "session_revoked"
	EventSessionEvicted   = "session_evicted"
	EventPasswordChanged  = "password_changed"
	EventPasswordResetReq = "password_reset_requested"
	EventPasswordReset    = "password_reset"
	EventMFAEnabled       = "mfa_enabled"
	EventMFADisabled      = "mfa_disabled"
	EventMFAReset         = "mfa_reset"
	EventTrustedDevice    = "trusted_device_created"
	EventIdentityLinked   = "identity_linked"
)

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.auditor == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.IP = clientIPFromContext(ctx)
	event.UserAgent = userAgentFromContext(ctx)
	e.auditor.Emit(ctx, event)
}

// AuditDropped reports how many audit events were dropped due to
// dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	return e.auditor.Dropped()
}
