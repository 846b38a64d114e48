package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/faucetdb/foliogate/internal/model"
)

// TokenParam is the URL query parameter that carries an access token.
const TokenParam = "access_token"

// Visitor-facing notices.
const (
	NoticeIncorrectPassword = "Incorrect password. Please try again."
	NoticeEmptyPassword     = "Please enter a password."
	NoticeCheckFailed       = "Could not verify the password. Please try again."
	NoticeLinkInvalid       = "This access link is invalid or has expired."
	NoticeRequestSent       = "Your access request has been submitted and an email notification has been sent."
	NoticeRequestNotSent    = "Could not send email notification. Your request was saved locally."
)

var (
	ErrSubmitInProgress = errors.New("a password check is already in progress")
	ErrViewClosed       = errors.New("view closed")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrAlreadyUnlocked  = errors.New("project already unlocked")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// State is the gate state of one resource view.
type State int

const (
	StateLocked State = iota
	StateChecking
	StateUnlocked
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateChecking:
		return "checking"
	case StateUnlocked:
		return "unlocked"
	case StateDenied:
		return "denied"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is the result of a gate operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// PasswordChecker validates a password of the given kind ("project" or
// "admin") against the shared secret.
type PasswordChecker interface {
	CheckPassword(ctx context.Context, password, kind string) (bool, error)
}

// Notifier delivers access request and approval emails. Both return the
// provider message id.
type Notifier interface {
	NotifyAccessRequest(ctx context.Context, req model.AccessRequest, projectTitle string) (string, error)
	NotifyAccessApproved(ctx context.Context, tok model.AccessToken, projectTitle string) (string, error)
}

// ProjectCatalog resolves project metadata.
type ProjectCatalog interface {
	IsProtected(slug string) bool
	Title(slug string) string
}

// GateConfig tunes a Gate. Zero values select defaults.
type GateConfig struct {
	ExpiryHours   int
	CheckTimeout  time.Duration
	NotifyTimeout time.Duration
}

func (c GateConfig) withDefaults() GateConfig {
	if c.ExpiryHours == 0 {
		c.ExpiryHours = DefaultExpiryHours
	}
	if c.CheckTimeout == 0 {
		c.CheckTimeout = 10 * time.Second
	}
	if c.NotifyTimeout == 0 {
		c.NotifyTimeout = 10 * time.Second
	}
	return c
}

// Gate decides whether a visitor may view a protected project.
type Gate struct {
	access   *AccessService
	checker  PasswordChecker
	notifier Notifier
	catalog  ProjectCatalog
	cfg      GateConfig
	logger   *slog.Logger
}

// NewGate builds a Gate. notifier and catalog may be nil; without a catalog
// every project is protected.
func NewGate(access *AccessService, checker PasswordChecker, notifier Notifier, catalog ProjectCatalog, cfg GateConfig, logger *slog.Logger) (*Gate, error) {
	cfg = cfg.withDefaults()
	if err := ValidateExpiryHours(cfg.ExpiryHours); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		access:   access,
		checker:  checker,
		notifier: notifier,
		catalog:  catalog,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

func (g *Gate) protected(projectID string) bool {
	if g.catalog == nil {
		return true
	}
	return g.catalog.IsProtected(projectID)
}

func (g *Gate) title(projectID string) string {
	if g.catalog == nil {
		return projectID
	}
	return g.catalog.Title(projectID)
}

// Open starts a view of projectID. u is the address the visitor arrived at
// and may be nil. A valid access_token parameter unlocks the view and is
// removed from the view URL.
func (g *Gate) Open(ctx context.Context, projectID string, u *url.URL) *View {
	v := &View{gate: g, projectID: projectID, state: StateLocked}
	if u != nil {
		cp := *u
		v.url = &cp
	}

	if !g.protected(projectID) {
		v.state = StateUnlocked
		return v
	}

	if v.url != nil {
		q := v.url.Query()
		if value := q.Get(TokenParam); value != "" {
			v.state = StateChecking
			if g.access.ValidateAccessToken(ctx, projectID, value) {
				q.Del(TokenParam)
				v.url.RawQuery = q.Encode()
				v.state = StateUnlocked
				g.logger.Info("access link accepted", "project", projectID)
			} else {
				v.state = StateDenied
				v.notice = NoticeLinkInvalid
				g.logger.Info("access link rejected", "project", projectID)
			}
			return v
		}
	}

	if g.access.HasValidToken(ctx, projectID) {
		v.state = StateUnlocked
	}
	return v
}

// View is the gate state for one visit to one project. It is safe for
// concurrent use.
type View struct {
	gate      *Gate
	projectID string

	mu         sync.Mutex
	url        *url.URL
	state      State
	notice     string
	submitting bool
	closed     bool
	cancel     context.CancelFunc
}

// PasswordResult describes the effect of SubmitPassword.
type PasswordResult struct {
	Outcome Outcome
	State   State
	Notice  string
	Token   *model.AccessToken
}

// RequestResult describes the effect of RequestAccess. Notified reports
// whether the administrator email was sent; the request is stored either way.
type RequestResult struct {
	Request   model.AccessRequest
	Notified  bool
	MessageID string
	Notice    string
}

func (v *View) ProjectID() string { return v.projectID }

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *View) Notice() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.notice
}

// Submitting reports whether a password check is in flight.
func (v *View) Submitting() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.submitting
}

// URL returns the view address with any accepted token parameter removed.
func (v *View) URL() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.url == nil {
		return ""
	}
	return v.url.String()
}

// Close abandons the view. An in-flight password check is cancelled and its
// result discarded.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// SubmitPassword checks password with the password checker. Wrong passwords
// and checker failures are reported through the result, not the error, and
// leave the view Denied so the visitor may retry.
func (v *View) SubmitPassword(ctx context.Context, password string) (PasswordResult, error) {
	g := v.gate

	v.mu.Lock()
	switch {
	case v.closed:
		v.mu.Unlock()
		return PasswordResult{}, ErrViewClosed
	case v.submitting:
		v.mu.Unlock()
		return PasswordResult{}, ErrSubmitInProgress
	case v.state == StateUnlocked:
		v.mu.Unlock()
		return PasswordResult{Outcome: OutcomeSuccess, State: StateUnlocked}, nil
	}
	if password == "" {
		v.state = StateDenied
		v.notice = NoticeEmptyPassword
		res := v.resultLocked(OutcomeDenied)
		v.mu.Unlock()
		return res, nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, g.cfg.CheckTimeout)
	v.submitting = true
	v.state = StateChecking
	v.cancel = cancel
	v.mu.Unlock()

	valid, err := g.checker.CheckPassword(checkCtx, password, model.PasswordTypeProject)
	cancel()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitting = false
	v.cancel = nil
	if v.closed {
		return PasswordResult{}, ErrViewClosed
	}

	if err != nil {
		g.logger.Warn("password check failed", "project", v.projectID, "error", err)
		v.state = StateDenied
		v.notice = NoticeCheckFailed
		return v.resultLocked(OutcomeError), nil
	}
	if !valid {
		v.state = StateDenied
		v.notice = NoticeIncorrectPassword
		return v.resultLocked(OutcomeDenied), nil
	}

	v.state = StateUnlocked
	v.notice = ""
	res := v.resultLocked(OutcomeSuccess)
	tok, err := g.access.CreateAccessToken(ctx, v.projectID, g.cfg.ExpiryHours, "")
	if err != nil {
		// The password was correct; access holds for this view only.
		g.logger.Warn("could not persist access token", "project", v.projectID, "error", err)
		return res, nil
	}
	res.Token = &tok
	return res, nil
}

func (v *View) resultLocked(o Outcome) PasswordResult {
	return PasswordResult{Outcome: o, State: v.state, Notice: v.notice}
}

// RequestAccess records a pending access request for the view's project and
// notifies the administrator. Only the storage step decides success; a failed
// notification is reported through RequestResult.Notified.
func (v *View) RequestAccess(ctx context.Context, email, message string) (RequestResult, error) {
	g := v.gate

	v.mu.Lock()
	switch {
	case v.closed:
		v.mu.Unlock()
		return RequestResult{}, ErrViewClosed
	case v.state == StateUnlocked:
		v.mu.Unlock()
		return RequestResult{}, ErrAlreadyUnlocked
	case v.submitting:
		v.mu.Unlock()
		return RequestResult{}, ErrSubmitInProgress
	}
	v.mu.Unlock()

	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return RequestResult{}, ErrInvalidEmail
	}

	req := model.AccessRequest{
		ID:        GenerateToken(RequestIDLength),
		Email:     email,
		ProjectID: v.projectID,
		Message:   strings.TrimSpace(message),
		Timestamp: g.access.Clock().Now().UnixMilli(),
		Status:    model.StatusPending,
	}
	if err := g.access.Store().AppendRequest(ctx, req); err != nil {
		return RequestResult{}, fmt.Errorf("store access request: %w", err)
	}
	g.logger.Info("access request stored", "project", v.projectID, "request_id", req.ID)

	res := RequestResult{Request: req, Notice: NoticeRequestNotSent}
	if g.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, g.cfg.NotifyTimeout)
		id, err := g.notifier.NotifyAccessRequest(notifyCtx, req, g.title(v.projectID))
		cancel()
		if err != nil {
			g.logger.Warn("access request notification failed", "request_id", req.ID, "error", err)
		} else {
			res.Notified = true
			res.MessageID = id
			res.Notice = NoticeRequestSent
		}
	}

	v.mu.Lock()
	if !v.closed {
		v.notice = res.Notice
	}
	v.mu.Unlock()
	return res, nil
}
