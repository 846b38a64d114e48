package model

import "time"

// RequestStatus is the lifecycle state of an AccessRequest.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// IsTerminal reports whether the status can no longer change.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	return s == StatusPending || s.IsTerminal()
}

// AccessRequest records a visitor asking the administrator for access to a
// project. Timestamp is the creation instant in epoch milliseconds.
type AccessRequest struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	ProjectID string        `json:"projectId"`
	Message   string        `json:"message,omitempty"`
	Timestamp int64         `json:"timestamp"`
	Status    RequestStatus `json:"status"`
}

// IsPending reports whether the request still awaits a decision.
func (r AccessRequest) IsPending() bool {
	return r.Status == StatusPending
}

// CreatedAt returns the request timestamp as a time.Time.
func (r AccessRequest) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}
