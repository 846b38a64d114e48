package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/faucetdb/foliogate/internal/model"
	"github.com/faucetdb/foliogate/internal/tokenstore"
)

// NoticeApprovalNotSent is shown when the approval email could not be sent.
const NoticeApprovalNotSent = "Could not send approval email. The access token was still created."

var ErrNoNotifier = errors.New("no notifier configured")

// Approval is the result of approving a request.
type Approval struct {
	Request model.AccessRequest
	Token   model.AccessToken
}

// ApprovalService is the administrator side of the request flow.
type ApprovalService struct {
	access   *AccessService
	notifier Notifier
	catalog  ProjectCatalog
	logger   *slog.Logger
}

func NewApprovalService(access *AccessService, notifier Notifier, catalog ProjectCatalog, logger *slog.Logger) *ApprovalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalService{access: access, notifier: notifier, catalog: catalog, logger: logger}
}

// ListRequests returns requests for projectID (all projects when empty),
// newest first. When pendingOnly is set only pending requests are returned.
func (s *ApprovalService) ListRequests(ctx context.Context, projectID string, pendingOnly bool) ([]model.AccessRequest, error) {
	reqs, err := s.access.Store().ListRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	out := make([]model.AccessRequest, 0, len(reqs))
	for _, r := range reqs {
		if projectID != "" && r.ProjectID != projectID {
			continue
		}
		if pendingOnly && !r.IsPending() {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// ListPending returns pending requests for projectID, or for every project
// when projectID is empty.
func (s *ApprovalService) ListPending(ctx context.Context, projectID string) ([]model.AccessRequest, error) {
	return s.ListRequests(ctx, projectID, true)
}

// Approve marks the request approved and mints a token for its project and
// email. The status change is committed first; a request that is not
// pending mints nothing. If the token cannot be stored the request is
// reopened so it can be approved again.
func (s *ApprovalService) Approve(ctx context.Context, requestID string, expiryHours int) (Approval, error) {
	if err := ValidateExpiryHours(expiryHours); err != nil {
		return Approval{}, err
	}
	req, err := s.access.Store().UpdateRequestStatus(ctx, requestID, model.StatusApproved)
	if err != nil {
		return Approval{}, fmt.Errorf("approve request: %w", err)
	}
	tok, err := s.access.CreateAccessToken(ctx, req.ProjectID, expiryHours, req.Email)
	if err != nil {
		reopened, rerr := s.access.Store().ReopenRequest(ctx, requestID)
		if rerr != nil {
			s.logger.Error("approved request left without a token", "request_id", requestID, "error", rerr)
			return Approval{Request: req}, fmt.Errorf("approve request %s: %w", requestID, errors.Join(err, rerr))
		}
		return Approval{Request: reopened}, fmt.Errorf("approve request %s: %w", requestID, err)
	}
	s.logger.Info("access request approved", "request_id", requestID, "project", req.ProjectID)
	return Approval{Request: req, Token: tok}, nil
}

// Deliver emails the approval to the requester and returns the provider
// message id. A failure leaves the approval and token in place.
func (s *ApprovalService) Deliver(ctx context.Context, a Approval) (string, error) {
	if s.notifier == nil {
		return "", ErrNoNotifier
	}
	title := a.Token.ProjectID
	if s.catalog != nil {
		title = s.catalog.Title(a.Token.ProjectID)
	}
	id, err := s.notifier.NotifyAccessApproved(ctx, a.Token, title)
	if err != nil {
		s.logger.Warn("approval email failed", "request_id", a.Request.ID, "error", err)
		return "", fmt.Errorf("deliver approval: %w", err)
	}
	return id, nil
}

// Reject marks the request rejected.
func (s *ApprovalService) Reject(ctx context.Context, requestID string) (model.AccessRequest, error) {
	req, err := s.access.Store().UpdateRequestStatus(ctx, requestID, model.StatusRejected)
	if err != nil {
		return model.AccessRequest{}, fmt.Errorf("reject request: %w", err)
	}
	s.logger.Info("access request rejected", "request_id", requestID, "project", req.ProjectID)
	return req, nil
}

// IsNotFound reports whether err means the request id is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, tokenstore.ErrRequestNotFound)
}

// IsResolved reports whether err means the request was no longer pending.
func IsResolved(err error) bool {
	return errors.Is(err, tokenstore.ErrRequestResolved)
}
