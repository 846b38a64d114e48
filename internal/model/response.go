package model

// Password types accepted by the validate-password endpoint.
const (
	PasswordTypeAdmin   = "admin"
	PasswordTypeProject = "project"
)

// ValidatePasswordRequest is the body of POST /api/validate-password.
type ValidatePasswordRequest struct {
	Password string `json:"password" validate:"required"`
	Type     string `json:"type" validate:"required"`
}

// ValidatePasswordResponse reports whether the password matched.
type ValidatePasswordResponse struct {
	Valid bool `json:"valid"`
}

// RequestAccessBody is the body of POST /api/request-access.
type RequestAccessBody struct {
	Email        string `json:"email" validate:"required,mailbox"`
	ProjectID    string `json:"projectId" validate:"required"`
	ProjectTitle string `json:"projectTitle,omitempty"`
	Message      string `json:"message,omitempty"`
}

// ApproveAccessBody is the body of POST /api/approve-access. Either
// AccessToken or AccessCode carries the minted token value; Expires is the
// token expiry in epoch milliseconds and is optional.
type ApproveAccessBody struct {
	Email        string `json:"email" validate:"required,mailbox"`
	ProjectID    string `json:"projectId" validate:"required"`
	ProjectTitle string `json:"projectTitle,omitempty"`
	AccessToken  string `json:"accessToken,omitempty" validate:"required_without=AccessCode"`
	AccessCode   string `json:"accessCode,omitempty" validate:"required_without=AccessToken"`
	Expires      int64  `json:"expires,omitempty"`
}

// Token returns whichever of AccessToken or AccessCode is set.
func (b ApproveAccessBody) Token() string {
	if b.AccessToken != "" {
		return b.AccessToken
	}
	return b.AccessCode
}

// SendResponse is returned by the email endpoints on success.
type SendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
}

// ErrorResponse is the envelope for every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
