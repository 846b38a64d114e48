package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/faucetdb/foliogate/internal/model"
	"github.com/faucetdb/foliogate/internal/service"
)

// Error messages shared with every client of the endpoints.
const (
	msgMethodNotAllowed = "Method not allowed"
	msgMissingFields    = "Missing required fields"
	msgInvalidEmail     = "Invalid email address"
	msgInvalidType      = "Invalid password type"
	msgInvalidBody      = "Invalid request body"
)

// validate checks request bodies. The "mailbox" tag applies the same address
// pattern the gate uses before storing a request.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("mailbox", func(fl validator.FieldLevel) bool {
		return service.ValidEmail(fl.Field().String())
	})
	return v
}

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": message} with the given status.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, model.ErrorResponse{Error: message})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// bindJSON decodes and validates a request body. On failure it writes the
// error response and returns false.
func bindJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := readJSON(r, v); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage maps validator failures to the endpoint error messages.
// Missing fields win over malformed ones.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return msgInvalidBody
	}
	msg := msgMissingFields
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_without":
			return msgMissingFields
		case "mailbox":
			msg = msgInvalidEmail
		}
	}
	return msg
}

// MethodNotAllowed answers any non-POST request to the API endpoints.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}
