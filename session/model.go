// Package session owns the stateful side of authentication: one Redis
// record per logged-in device, a per-user activity index for ordering
// and eviction, and Lua-scripted operations for the racy paths
// (refresh rotation, capped creation).
package session

import (
	"strconv"
	"strings"
	"time"
)

// Session is one authenticated device/login.
//
// RefreshHash is the sha256 of the refresh token's rotation nonce; the
// plaintext nonce only ever exists inside the issued JWT. Data is an
// opaque server-only blob callers may attach.
type Session struct {
	ID           string
	UserID       string
	TenantID     string
	Roles        []string
	RefreshHash  string
	Data         string
	DeviceName   string
	UserAgent    string
	IPAddress    string
	MFAVerified  bool
	CreatedAt    time.Time
	LastActiveAt time.Time
	ExpiresAt    time.Time
}

// hash field names, stable across versions
const (
	fieldUserID      = "uid"
	fieldTenantID    = "tid"
	fieldRoles       = "roles"
	fieldRefreshHash = "rh"
	fieldData        = "data"
	fieldDeviceName  = "dev"
	fieldUserAgent   = "ua"
	fieldIPAddress   = "ip"
	fieldMFAVerified = "mfa"
	fieldCreatedAt   = "cat"
	fieldLastActive  = "lat"
	fieldExpiresAt   = "exp"
)

func (s *Session) fields() []interface{} {
	return []interface{}{
		fieldUserID, s.UserID,
		fieldTenantID, s.TenantID,
		fieldRoles, strings.Join(s.Roles, ","),
		fieldRefreshHash, s.RefreshHash,
		fieldData, s.Data,
		fieldDeviceName, s.DeviceName,
		fieldUserAgent, s.UserAgent,
		fieldIPAddress, s.IPAddress,
		fieldMFAVerified, boolField(s.MFAVerified),
		fieldCreatedAt, strconv.FormatInt(s.CreatedAt.UnixMilli(), 10),
		fieldLastActive, strconv.FormatInt(s.LastActiveAt.UnixMilli(), 10),
		fieldExpiresAt, strconv.FormatInt(s.ExpiresAt.UnixMilli(), 10),
	}
}

func sessionFromMap(id string, m map[string]string) *Session {
	s := &Session{
		ID:          id,
		UserID:      m[fieldUserID],
		TenantID:    m[fieldTenantID],
		RefreshHash: m[fieldRefreshHash],
		Data:        m[fieldData],
		DeviceName:  m[fieldDeviceName],
		UserAgent:   m[fieldUserAgent],
		IPAddress:   m[fieldIPAddress],
		MFAVerified: m[fieldMFAVerified] == "1",
	}
	if roles := m[fieldRoles]; roles != "" {
		s.Roles = strings.Split(roles, ",")
	}
	s.CreatedAt = millisField(m[fieldCreatedAt])
	s.LastActiveAt = millisField(m[fieldLastActive])
	s.ExpiresAt = millisField(m[fieldExpiresAt])
	return s
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func millisField(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
