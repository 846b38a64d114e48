package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/faucetdb/foliogate/internal/model"
)

// ---------------------------------------------------------------------------
// writeJSON / writeError tests
// ---------------------------------------------------------------------------

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]bool{"valid": true})

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusCreated)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"valid":true}` {
		t.Errorf("body = %s", got)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusBadRequest, msgMissingFields)

	if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"Missing required fields"}` {
		t.Errorf("body = %s", got)
	}
}

// ---------------------------------------------------------------------------
// validationMessage tests
// ---------------------------------------------------------------------------

func TestValidationMessage(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		want string
	}{
		{"missing email", &model.RequestAccessBody{ProjectID: "p"}, msgMissingFields},
		{"bad email", &model.RequestAccessBody{Email: "a@b", ProjectID: "p"}, msgInvalidEmail},
		{"missing beats malformed", &model.RequestAccessBody{Email: "nope"}, msgMissingFields},
		{"no token or code", &model.ApproveAccessBody{Email: "a@b.co", ProjectID: "p"}, msgMissingFields},
		{"missing type", &model.ValidatePasswordRequest{Password: "x"}, msgMissingFields},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.body)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := validationMessage(err); got != tt.want {
				t.Errorf("validationMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidatorAcceptsCompleteBodies(t *testing.T) {
	bodies := []interface{}{
		&model.RequestAccessBody{Email: "a@b.co", ProjectID: "p"},
		&model.ApproveAccessBody{Email: "a@b.co", ProjectID: "p", AccessCode: "c"},
		&model.ValidatePasswordRequest{Password: "x", Type: "admin"},
	}
	for _, b := range bodies {
		if err := validate.Struct(b); err != nil {
			t.Errorf("validate(%T) = %v", b, err)
		}
	}
}

func TestMethodNotAllowedSetsAllow(t *testing.T) {
	rr := httptest.NewRecorder()
	MethodNotAllowed(rr, httptest.NewRequest("GET", "/api/request-access", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Allow"); got != http.MethodPost {
		t.Errorf("Allow = %q", got)
	}
}
