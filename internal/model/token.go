package model

import "time"

// AccessToken grants a visitor access to one project until Expires.
// Expires is an absolute instant in milliseconds since the Unix epoch; the
// JSON field names are shared with every client that reads the same storage.
type AccessToken struct {
	Value     string `json:"value"`
	Expires   int64  `json:"expires"`
	ProjectID string `json:"projectId"`
	Email     string `json:"email,omitempty"`
}

// ExpiresAt returns the expiry as a time.Time.
func (t AccessToken) ExpiresAt() time.Time {
	return time.UnixMilli(t.Expires)
}

// ValidAt reports whether the token is unexpired at now. A token whose expiry
// equals now is already expired.
func (t AccessToken) ValidAt(now time.Time) bool {
	return now.UnixMilli() < t.Expires
}

// Matches reports whether the token belongs to projectID and is valid at now.
// When value is non-empty it must equal the token value exactly.
func (t AccessToken) Matches(projectID, value string, now time.Time) bool {
	if t.ProjectID != projectID {
		return false
	}
	if value != "" && t.Value != value {
		return false
	}
	return t.ValidAt(now)
}

// Prefix returns the first characters of the token value, safe for logs.
func (t AccessToken) Prefix() string {
	if len(t.Value) <= 5 {
		return t.Value
	}
	return t.Value[:5]
}
