package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/faucetdb/foliogate/internal/model"
	"github.com/faucetdb/foliogate/internal/tokenstore"
)

var (
	ErrTokenNotFound  = errors.New("no token matches")
	ErrAmbiguousToken = errors.New("token prefix matches more than one token")
)

// AccessService mints and checks access tokens in the token store.
type AccessService struct {
	store  *tokenstore.Store
	clock  Clock
	logger *slog.Logger
}

func NewAccessService(store *tokenstore.Store, clock Clock, logger *slog.Logger) *AccessService {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessService{store: store, clock: clock, logger: logger}
}

// Store returns the underlying token store.
func (s *AccessService) Store() *tokenstore.Store { return s.store }

// Clock returns the service clock.
func (s *AccessService) Clock() Clock { return s.clock }

// CreateAccessToken mints a token for projectID that expires expiryHours from
// now and persists it. email is optional.
func (s *AccessService) CreateAccessToken(ctx context.Context, projectID string, expiryHours int, email string) (model.AccessToken, error) {
	if err := ValidateExpiryHours(expiryHours); err != nil {
		return model.AccessToken{}, err
	}
	tok := model.AccessToken{
		Value:     GenerateToken(DefaultTokenLength),
		Expires:   ExpiryFrom(s.clock.Now(), expiryHours),
		ProjectID: projectID,
		Email:     email,
	}
	if err := s.store.AppendToken(ctx, tok); err != nil {
		return model.AccessToken{}, fmt.Errorf("create access token: %w", err)
	}
	s.logger.Info("access token created", "project", projectID, "token", tok.Prefix(), "expires", tok.ExpiresAt())
	return tok, nil
}

// ValidateAccessToken reports whether a stored, unexpired token for projectID
// has exactly the given value. Storage errors read as invalid.
func (s *AccessService) ValidateAccessToken(ctx context.Context, projectID, value string) bool {
	if value == "" {
		return false
	}
	return s.anyMatch(ctx, projectID, value)
}

// HasValidToken reports whether any unexpired token exists for projectID.
func (s *AccessService) HasValidToken(ctx context.Context, projectID string) bool {
	return s.anyMatch(ctx, projectID, "")
}

func (s *AccessService) anyMatch(ctx context.Context, projectID, value string) bool {
	tokens, err := s.store.ListTokens(ctx)
	if err != nil {
		s.logger.Warn("token lookup failed", "project", projectID, "error", err)
		return false
	}
	now := s.clock.Now()
	for _, t := range tokens {
		if t.Matches(projectID, value, now) {
			return true
		}
	}
	return false
}

// CleanupExpired removes expired tokens and returns how many were removed.
func (s *AccessService) CleanupExpired(ctx context.Context) (int, error) {
	n, err := s.store.PurgeExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired tokens: %w", err)
	}
	if n > 0 {
		s.logger.Debug("expired tokens removed", "count", n)
	}
	return n, nil
}

// RevokeToken removes the token with the given value.
func (s *AccessService) RevokeToken(ctx context.Context, value string) (bool, error) {
	found, err := s.store.RevokeToken(ctx, value)
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return found, nil
}

// ListTokens returns the stored tokens for projectID, or all tokens when
// projectID is empty.
func (s *AccessService) ListTokens(ctx context.Context, projectID string) ([]model.AccessToken, error) {
	tokens, err := s.store.ListTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	if projectID == "" {
		return tokens, nil
	}
	out := tokens[:0]
	for _, t := range tokens {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

// FindToken returns the single stored token whose value equals or starts
// with prefix. Listings only show prefixes, so administrators revoke by one.
func (s *AccessService) FindToken(ctx context.Context, prefix string) (model.AccessToken, error) {
	if prefix == "" {
		return model.AccessToken{}, ErrTokenNotFound
	}
	tokens, err := s.store.ListTokens(ctx)
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("find token: %w", err)
	}
	var match []model.AccessToken
	for _, t := range tokens {
		if t.Value == prefix {
			return t, nil
		}
		if strings.HasPrefix(t.Value, prefix) {
			match = append(match, t)
		}
	}
	switch len(match) {
	case 0:
		return model.AccessToken{}, ErrTokenNotFound
	case 1:
		return match[0], nil
	default:
		return model.AccessToken{}, ErrAmbiguousToken
	}
}
