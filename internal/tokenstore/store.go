// Package tokenstore persists access tokens and access requests as JSON
// arrays in a client-local keyed store.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/faucetdb/foliogate/internal/model"
)

// Storage keys. Other clients of the same storage read these exact keys.
const (
	TokensKey   = "project_access_tokens"
	RequestsKey = "project_access_requests"
)

const maxSwapAttempts = 16

var (
	ErrRequestNotFound = errors.New("access request not found")
	ErrRequestResolved = errors.New("access request already resolved")
	ErrInvalidStatus   = errors.New("invalid request status")
	ErrConflict        = errors.New("concurrent update conflict")
)

// Store reads and writes the token and request collections. Every write
// replaces the whole serialized collection.
type Store struct {
	kv     KV
	logger *slog.Logger
}

// New returns a Store over kv. A nil logger uses slog.Default().
func New(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

// ListTokens returns every stored token, expired ones included.
func (s *Store) ListTokens(ctx context.Context) ([]model.AccessToken, error) {
	tokens, _, err := load[model.AccessToken](ctx, s, TokensKey)
	return tokens, err
}

// AppendToken adds t to the collection. Duplicates are not detected.
func (s *Store) AppendToken(ctx context.Context, t model.AccessToken) error {
	return update(ctx, s, TokensKey, func(tokens []model.AccessToken) ([]model.AccessToken, bool, error) {
		return append(tokens, t), true, nil
	})
}

// PurgeExpired removes every token with expires <= now and returns how many
// were removed. Storage is only written when something was removed.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	var removed int
	err := update(ctx, s, TokensKey, func(tokens []model.AccessToken) ([]model.AccessToken, bool, error) {
		removed = 0
		kept := make([]model.AccessToken, 0, len(tokens))
		for _, t := range tokens {
			if t.ValidAt(now) {
				kept = append(kept, t)
			} else {
				removed++
			}
		}
		return kept, removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// RevokeToken removes every token whose value equals value and reports
// whether one was found.
func (s *Store) RevokeToken(ctx context.Context, value string) (bool, error) {
	var found bool
	err := update(ctx, s, TokensKey, func(tokens []model.AccessToken) ([]model.AccessToken, bool, error) {
		found = false
		kept := make([]model.AccessToken, 0, len(tokens))
		for _, t := range tokens {
			if t.Value == value {
				found = true
				continue
			}
			kept = append(kept, t)
		}
		return kept, found, nil
	})
	return found, err
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// ListRequests returns every stored request in insertion order.
func (s *Store) ListRequests(ctx context.Context) ([]model.AccessRequest, error) {
	reqs, _, err := load[model.AccessRequest](ctx, s, RequestsKey)
	return reqs, err
}

// AppendRequest adds r to the collection.
func (s *Store) AppendRequest(ctx context.Context, r model.AccessRequest) error {
	return update(ctx, s, RequestsKey, func(reqs []model.AccessRequest) ([]model.AccessRequest, bool, error) {
		return append(reqs, r), true, nil
	})
}

// UpdateRequestStatus moves the request with the given id out of pending and
// returns the updated record. The target status must be terminal.
func (s *Store) UpdateRequestStatus(ctx context.Context, id string, status model.RequestStatus) (model.AccessRequest, error) {
	if !status.IsTerminal() {
		return model.AccessRequest{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	var updated model.AccessRequest
	err := update(ctx, s, RequestsKey, func(reqs []model.AccessRequest) ([]model.AccessRequest, bool, error) {
		for i := range reqs {
			if reqs[i].ID != id {
				continue
			}
			if !reqs[i].IsPending() {
				return nil, false, fmt.Errorf("request %s is %s: %w", id, reqs[i].Status, ErrRequestResolved)
			}
			reqs[i].Status = status
			updated = reqs[i]
			return reqs, true, nil
		}
		return nil, false, fmt.Errorf("request %s: %w", id, ErrRequestNotFound)
	})
	if err != nil {
		return model.AccessRequest{}, err
	}
	return updated, nil
}

// ReopenRequest puts the request with the given id back to pending whatever
// its current status. It undoes a status change whose follow-up failed.
func (s *Store) ReopenRequest(ctx context.Context, id string) (model.AccessRequest, error) {
	var reopened model.AccessRequest
	err := update(ctx, s, RequestsKey, func(reqs []model.AccessRequest) ([]model.AccessRequest, bool, error) {
		for i := range reqs {
			if reqs[i].ID != id {
				continue
			}
			changed := !reqs[i].IsPending()
			reqs[i].Status = model.StatusPending
			reopened = reqs[i]
			return reqs, changed, nil
		}
		return nil, false, fmt.Errorf("request %s: %w", id, ErrRequestNotFound)
	})
	if err != nil {
		return model.AccessRequest{}, err
	}
	return reopened, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// load decodes the collection stored under key and returns it with the raw
// value it was decoded from. A value that does not decode is deleted and
// reads as an empty collection.
func load[T any](ctx context.Context, s *Store, key string) ([]T, string, error) {
	raw, err := s.kv.GetSetting(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", key, err)
	}
	if raw == "" {
		return []T{}, "", nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("discarding unreadable stored collection", "key", key, "error", err)
		if err := s.kv.DeleteSetting(ctx, key); err != nil {
			return nil, "", fmt.Errorf("clear %s: %w", key, err)
		}
		return []T{}, "", nil
	}
	if items == nil {
		items = []T{}
	}
	return items, raw, nil
}

// update runs a read-modify-write cycle on the collection under key. fn
// returns the new collection and whether anything changed. When the backend
// supports compare-and-swap, the cycle is retried until it applies to the
// value it read.
func update[T any](ctx context.Context, s *Store, key string, fn func([]T) ([]T, bool, error)) error {
	swapper, canSwap := s.kv.(Swapper)
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		items, raw, err := load[T](ctx, s, key)
		if err != nil {
			return err
		}
		next, changed, err := fn(items)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if next == nil {
			next = []T{}
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if !canSwap {
			if err := s.kv.SetSetting(ctx, key, string(encoded)); err != nil {
				return fmt.Errorf("write %s: %w", key, err)
			}
			return nil
		}
		ok, err := swapper.CompareAndSwapSetting(ctx, key, raw, string(encoded))
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		if ok {
			return nil
		}
		s.logger.Debug("stored collection changed during update, retrying", "key", key, "attempt", attempt+1)
	}
	return fmt.Errorf("write %s: %w", key, ErrConflict)
}
