package authcore

import "context"

// Sessions lists the user's live sessions ordered by last activity,
// most recent first. When currentSessionID is supplied that session
// floats to the front and is flagged Current; the engine has no notion
// of "current" on its own.
func (e *Engine) Sessions(ctx context.Context, userID, currentSessionID string) ([]SessionInfo, error) {
	tenantID := e.tenantIDFromContext(ctx)

	sessions, err := e.sessions.ListActive(ctx, tenantID, userID, currentSessionID)
	if err != nil {
		return nil, ErrBackendUnavailable
	}

	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionInfo{
			ID:           s.ID,
			DeviceName:   s.DeviceName,
			UserAgent:    s.UserAgent,
			IPAddress:    s.IPAddress,
			CreatedAt:    s.CreatedAt,
			LastActiveAt: s.LastActiveAt,
			ExpiresAt:    s.ExpiresAt,
			Current:      s.ID == currentSessionID,
		})
	}
	return out, nil
}

// SessionCount returns the number of live sessions for the user.
func (e *Engine) SessionCount(ctx context.Context, userID string) (int, error) {
	count, err := e.sessions.Count(ctx, e.tenantIDFromContext(ctx), userID)
	if err != nil {
		return 0, ErrBackendUnavailable
	}
	return count, nil
}

// RevokeSession deletes one of the user's sessions. Revoking a session
// that is already gone succeeds.
func (e *Engine) RevokeSession(ctx context.Context, userID, sessionID string) error {
	tenantID := e.tenantIDFromContext(ctx)

	if err := e.sessions.Revoke(ctx, tenantID, userID, sessionID); err != nil {
		return ErrBackendUnavailable
	}

	e.metrics.Inc(MetricSessionRevoked)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventSessionRevoked,
		UserID:    userID,
		TenantID:  tenantID,
		SessionID: sessionID,
		Success:   true,
	})
	return nil
}

// RevokeOtherSessions deletes every session of the user except the
// current one. Returns how many were revoked.
func (e *Engine) RevokeOtherSessions(ctx context.Context, userID, currentSessionID string) (int, error) {
	tenantID := e.tenantIDFromContext(ctx)

	revoked, err := e.sessions.RevokeOthers(ctx, tenantID, userID, currentSessionID)
	if err != nil {
		return 0, ErrBackendUnavailable
	}

	for i := 0; i < revoked; i++ {
		e.metrics.Inc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, AuditEvent{
		EventType: EventSessionRevoked,
		UserID:    userID,
		TenantID:  tenantID,
		SessionID: currentSessionID,
		Success:   true,
		Metadata:  map[string]string{"scope": "others"},
	})
	return revoked, nil
}

// SetSessionData replaces the opaque server-side blob attached to a
// session. Never exposed in tokens or session listings.
func (e *Engine) SetSessionData(ctx context.Context, sessionID, data string) error {
	if err := e.sessions.SetData(ctx, e.tenantIDFromContext(ctx), sessionID, data); err != nil {
		return mapSessionError(err)
	}
	return nil
}
