package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/faucetdb/foliogate/internal/mailer"
	"github.com/faucetdb/foliogate/internal/model"
	"github.com/faucetdb/foliogate/internal/service"
)

// defaultLinkLifetime is the expiry shown in approval emails when the
// request does not carry one.
const defaultLinkLifetime = 24 * time.Hour

// AccessHandler serves the password check and the two notification
// endpoints. It keeps no state of its own.
type AccessHandler struct {
	auth     *service.AuthService
	sender   mailer.Sender
	composer mailer.Composer
	catalog  service.ProjectCatalog
	clock    service.Clock
	logger   *slog.Logger
}

// NewAccessHandler creates a new AccessHandler. catalog may be nil.
func NewAccessHandler(auth *service.AuthService, sender mailer.Sender, composer mailer.Composer, catalog service.ProjectCatalog, clock service.Clock, logger *slog.Logger) *AccessHandler {
	if clock == nil {
		clock = service.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessHandler{
		auth:     auth,
		sender:   sender,
		composer: composer,
		catalog:  catalog,
		clock:    clock,
		logger:   logger,
	}
}

// ValidatePassword checks a password against the admin or project secret.
// POST /api/validate-password
func (h *AccessHandler) ValidatePassword(w http.ResponseWriter, r *http.Request) {
	var req model.ValidatePasswordRequest
	if !bindJSON(w, r, &req) {
		return
	}

	valid, err := h.auth.VerifyPassword(req.Type, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnknownPasswordType) {
			writeError(w, http.StatusBadRequest, msgInvalidType)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to validate password")
		return
	}
	if !h.auth.Configured(req.Type) {
		h.logger.Warn("password check against unset secret", "type", req.Type)
	}

	writeJSON(w, http.StatusOK, model.ValidatePasswordResponse{Valid: valid})
}

// RequestAccess emails the administrator about a new access request.
// POST /api/request-access
func (h *AccessHandler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	var req model.RequestAccessBody
	if !bindJSON(w, r, &req) {
		return
	}
	if h.composer.AdminEmail == "" {
		writeError(w, http.StatusInternalServerError, "Admin email is not configured")
		return
	}

	msg, err := h.composer.AccessRequest(mailer.RequestData{
		ProjectID:    req.ProjectID,
		ProjectTitle: h.title(req.ProjectID, req.ProjectTitle),
		Email:        req.Email,
		Message:      req.Message,
		Date:         h.clock.Now(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build email: "+err.Error())
		return
	}
	h.send(w, r, msg)
}

// ApproveAccess emails the requester the access link for their token.
// POST /api/approve-access
func (h *AccessHandler) ApproveAccess(w http.ResponseWriter, r *http.Request) {
	var req model.ApproveAccessBody
	if !bindJSON(w, r, &req) {
		return
	}

	expires := h.clock.Now().Add(defaultLinkLifetime)
	if req.Expires > 0 {
		expires = time.UnixMilli(req.Expires)
	}

	msg, err := h.composer.AccessApproved(mailer.ApprovalData{
		ProjectID:    req.ProjectID,
		ProjectTitle: h.title(req.ProjectID, req.ProjectTitle),
		Email:        req.Email,
		Token:        req.Token(),
		Expires:      expires,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build email: "+err.Error())
		return
	}
	h.send(w, r, msg)
}

func (h *AccessHandler) send(w http.ResponseWriter, r *http.Request, msg mailer.Message) {
	id, err := h.sender.Send(r.Context(), msg)
	if err != nil {
		h.logger.Error("email delivery failed", "subject", msg.Subject, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send email: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.SendResponse{Success: true, MessageID: id})
}

// title picks the display title: the one supplied by the client, then the
// catalog entry, then the slug.
func (h *AccessHandler) title(projectID, supplied string) string {
	if supplied != "" {
		return supplied
	}
	if h.catalog != nil {
		return h.catalog.Title(projectID)
	}
	return projectID
}
