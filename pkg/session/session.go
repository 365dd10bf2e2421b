package session

import "time"

// Session is a server-side session referenced by a signed cookie token.
// Values hold strings only so that a session survives a JSON round trip
// through any store backend unchanged.
type Session struct {
	CreatedAt    time.Time         `json:"created_at"`
	LastActiveAt time.Time         `json:"last_active_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
	Values       map[string]string `json:"values,omitempty"`
	ID           string            `json:"id"`
	Token        string            `json:"token"` // cookie token, rotated on login
	UserID       string            `json:"user_id,omitempty"`
	IP           string            `json:"ip,omitempty"`
	UserAgent    string            `json:"user_agent,omitempty"`

	dirty bool
	isNew bool
}

// New creates a session with the given ID and token.
func New(id, token string, expiresAt time.Time) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Token:        token,
		Values:       make(map[string]string),
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    expiresAt,
		isNew:        true,
		dirty:        true,
	}
}

// IsAuthenticated returns true if the session has an associated user.
func (s *Session) IsAuthenticated() bool {
	return s.UserID != ""
}

// SetValue stores a value and marks the session dirty.
func (s *Session) SetValue(key, val string) {
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	s.Values[key] = val
	s.dirty = true
}

// GetValue retrieves a value from the session.
func (s *Session) GetValue(key string) (string, bool) {
	val, ok := s.Values[key]
	return val, ok
}

// DeleteValue removes a value. The session becomes dirty only if the key existed.
func (s *Session) DeleteValue(key string) {
	if _, ok := s.Values[key]; ok {
		delete(s.Values, key)
		s.dirty = true
	}
}

// IsDirty returns true if the session has unsaved changes.
func (s *Session) IsDirty() bool {
	return s.dirty
}

// ClearDirty marks the session as saved.
func (s *Session) ClearDirty() {
	s.dirty = false
}

// MarkDirty marks the session as needing to be saved.
func (s *Session) MarkDirty() {
	s.dirty = true
}

// IsNew returns true if the session has not been persisted yet.
func (s *Session) IsNew() bool {
	return s.isNew
}

// ClearNew marks the session as persisted.
func (s *Session) ClearNew() {
	s.isNew = false
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// clone returns a copy that shares no mutable state with s.
func (s *Session) clone() *Session {
	cp := *s
	if s.Values != nil {
		cp.Values = make(map[string]string, len(s.Values))
		for k, v := range s.Values {
			cp.Values[k] = v
		}
	}
	return &cp
}
