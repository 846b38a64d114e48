package tokenstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/faucetdb/foliogate/internal/config"
	"github.com/faucetdb/foliogate/internal/model"
)

var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// backends returns one fresh KV of every kind.
func backends(t *testing.T) map[string]KV {
	t.Helper()
	fileKV, err := NewFileKV(filepath.Join(t.TempDir(), "state.json"), nil)
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	sqlite, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]KV{
		"memory": NewMemoryKV(),
		"file":   fileKV,
		"sqlite": sqlite,
	}
}

func token(value, project string, expires time.Time) model.AccessToken {
	return model.AccessToken{Value: value, ProjectID: project, Expires: expires.UnixMilli()}
}

func TestTokensRoundTrip(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv, nil)
			ctx := context.Background()

			list, err := s.ListTokens(ctx)
			if err != nil {
				t.Fatalf("ListTokens: %v", err)
			}
			if len(list) != 0 {
				t.Fatalf("empty store returned %d tokens", len(list))
			}

			a := token("aaa", "p1", now.Add(time.Hour))
			if err := s.AppendToken(ctx, a); err != nil {
				t.Fatalf("AppendToken: %v", err)
			}
			if err := s.AppendToken(ctx, a); err != nil {
				t.Fatalf("AppendToken duplicate: %v", err)
			}
			list, _ = s.ListTokens(ctx)
			if len(list) != 2 {
				t.Errorf("got %d tokens, want 2 (no dedup)", len(list))
			}
			if list[0] != a {
				t.Errorf("got %+v, want %+v", list[0], a)
			}
		})
	}
}

func TestPurgeExpired(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv, nil)
			ctx := context.Background()

			live := model.AccessToken{
				Value:     "live",
				ProjectID: "p1",
				Email:     "visitor@example.com",
				Expires:   now.Add(time.Millisecond).UnixMilli(),
			}
			s.AppendToken(ctx, token("old", "p1", now.Add(-time.Hour)))
			s.AppendToken(ctx, token("edge", "p1", now))
			s.AppendToken(ctx, live)
			before, _ := kv.GetSetting(ctx, TokensKey)

			removed, err := s.PurgeExpired(ctx, now)
			if err != nil {
				t.Fatalf("PurgeExpired: %v", err)
			}
			if removed != 2 {
				t.Errorf("removed %d, want 2", removed)
			}
			list, _ := s.ListTokens(ctx)
			if len(list) != 1 || list[0] != live {
				t.Errorf("remaining = %+v, want exactly %+v", list, live)
			}
			wantRaw, _ := json.Marshal([]model.AccessToken{live})
			if raw, _ := kv.GetSetting(ctx, TokensKey); raw != string(wantRaw) {
				t.Errorf("stored after purge = %s, want %s", raw, wantRaw)
			}
			if !strings.Contains(before, string(wantRaw[1:len(wantRaw)-1])) {
				t.Errorf("survivor encoding changed: before %s", before)
			}

			removed, err = s.PurgeExpired(ctx, now)
			if err != nil || removed != 0 {
				t.Errorf("second purge: removed=%d err=%v", removed, err)
			}
		})
	}
}

// countingKV records writes to verify purge does not write when unchanged.
type countingKV struct {
	*MemoryKV
	mu     sync.Mutex
	writes int
}

func (c *countingKV) SetSetting(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.MemoryKV.SetSetting(ctx, key, value)
}

func TestPurgeExpiredNoWriteWhenUnchanged(t *testing.T) {
	kv := &countingKV{MemoryKV: NewMemoryKV()}
	// Hide CompareAndSwapSetting so every write goes through SetSetting.
	s := New(struct{ KV }{kv}, nil)
	ctx := context.Background()

	s.AppendToken(ctx, token("live", "p1", now.Add(time.Hour)))
	before := kv.writes
	if _, err := s.PurgeExpired(ctx, now); err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if kv.writes != before {
		t.Errorf("purge with nothing expired wrote %d times", kv.writes-before)
	}
}

func TestRevokeToken(t *testing.T) {
	s := New(NewMemoryKV(), nil)
	ctx := context.Background()
	s.AppendToken(ctx, token("keep", "p1", now.Add(time.Hour)))
	s.AppendToken(ctx, token("drop", "p1", now.Add(time.Hour)))

	found, err := s.RevokeToken(ctx, "drop")
	if err != nil || !found {
		t.Fatalf("RevokeToken: found=%v err=%v", found, err)
	}
	found, _ = s.RevokeToken(ctx, "drop")
	if found {
		t.Error("second revoke should report not found")
	}
	list, _ := s.ListTokens(ctx)
	if len(list) != 1 || list[0].Value != "keep" {
		t.Errorf("remaining = %+v", list)
	}
}

func TestCorruptCollectionIsCleared(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv.SetSetting(ctx, TokensKey, "{not json")
			kv.SetSetting(ctx, RequestsKey, `{"id":"not an array"}`)
			s := New(kv, nil)

			tokens, err := s.ListTokens(ctx)
			if err != nil {
				t.Fatalf("ListTokens: %v", err)
			}
			if len(tokens) != 0 {
				t.Errorf("got %d tokens from corrupt storage", len(tokens))
			}
			raw, _ := kv.GetSetting(ctx, TokensKey)
			if raw != "" {
				t.Errorf("corrupt key not cleared: %q", raw)
			}

			reqs, err := s.ListRequests(ctx)
			if err != nil || len(reqs) != 0 {
				t.Errorf("ListRequests: %v %v", reqs, err)
			}

			if err := s.AppendToken(ctx, token("t", "p1", now.Add(time.Hour))); err != nil {
				t.Fatalf("AppendToken after corruption: %v", err)
			}
			tokens, _ = s.ListTokens(ctx)
			if len(tokens) != 1 {
				t.Errorf("got %d tokens, want 1", len(tokens))
			}
		})
	}
}

func TestUpdateRequestStatus(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv, nil)
			ctx := context.Background()
			req := model.AccessRequest{
				ID: "r1", Email: "a@b.co", ProjectID: "p1",
				Timestamp: now.UnixMilli(), Status: model.StatusPending,
			}
			if err := s.AppendRequest(ctx, req); err != nil {
				t.Fatalf("AppendRequest: %v", err)
			}

			got, err := s.UpdateRequestStatus(ctx, "r1", model.StatusApproved)
			if err != nil {
				t.Fatalf("UpdateRequestStatus: %v", err)
			}
			if got.Status != model.StatusApproved || got.Email != "a@b.co" {
				t.Errorf("updated = %+v", got)
			}

			_, err = s.UpdateRequestStatus(ctx, "r1", model.StatusRejected)
			if !errors.Is(err, ErrRequestResolved) {
				t.Errorf("terminal update err = %v, want ErrRequestResolved", err)
			}
			_, err = s.UpdateRequestStatus(ctx, "nope", model.StatusApproved)
			if !errors.Is(err, ErrRequestNotFound) {
				t.Errorf("missing update err = %v, want ErrRequestNotFound", err)
			}
			_, err = s.UpdateRequestStatus(ctx, "r1", model.StatusPending)
			if !errors.Is(err, ErrInvalidStatus) {
				t.Errorf("pending target err = %v, want ErrInvalidStatus", err)
			}

			reqs, _ := s.ListRequests(ctx)
			if len(reqs) != 1 || reqs[0].Status != model.StatusApproved {
				t.Errorf("stored = %+v", reqs)
			}
		})
	}
}

func TestReopenRequest(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv, nil)
			ctx := context.Background()
			req := model.AccessRequest{
				ID: "r1", Email: "a@b.co", ProjectID: "p1",
				Timestamp: now.UnixMilli(), Status: model.StatusPending,
			}
			if err := s.AppendRequest(ctx, req); err != nil {
				t.Fatalf("AppendRequest: %v", err)
			}
			if _, err := s.UpdateRequestStatus(ctx, "r1", model.StatusApproved); err != nil {
				t.Fatalf("UpdateRequestStatus: %v", err)
			}

			got, err := s.ReopenRequest(ctx, "r1")
			if err != nil {
				t.Fatalf("ReopenRequest: %v", err)
			}
			if got != req {
				t.Errorf("reopened = %+v, want %+v", got, req)
			}
			if _, err := s.UpdateRequestStatus(ctx, "r1", model.StatusRejected); err != nil {
				t.Errorf("reopened request not updatable: %v", err)
			}

			if _, err := s.ReopenRequest(ctx, "nope"); !errors.Is(err, ErrRequestNotFound) {
				t.Errorf("missing reopen err = %v, want ErrRequestNotFound", err)
			}
		})
	}
}

// racingKV changes the stored value once, between a read and the swap that
// follows it, to force a retry.
type racingKV struct {
	*MemoryKV
	once sync.Once
}

func (r *racingKV) CompareAndSwapSetting(ctx context.Context, key, prev, next string) (bool, error) {
	r.once.Do(func() {
		r.MemoryKV.SetSetting(ctx, key, `[{"value":"other","expires":1,"projectId":"p9"}]`)
	})
	return r.MemoryKV.CompareAndSwapSetting(ctx, key, prev, next)
}

func TestUpdateRetriesOnConcurrentWrite(t *testing.T) {
	s := New(&racingKV{MemoryKV: NewMemoryKV()}, nil)
	ctx := context.Background()

	if err := s.AppendToken(ctx, token("mine", "p1", now.Add(time.Hour))); err != nil {
		t.Fatalf("AppendToken: %v", err)
	}
	list, _ := s.ListTokens(ctx)
	if len(list) != 2 {
		t.Fatalf("got %d tokens, want both the concurrent and the new token", len(list))
	}
	if list[0].Value != "other" || list[1].Value != "mine" {
		t.Errorf("tokens = %+v", list)
	}
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	s := New(NewMemoryKV(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendRequest(ctx, model.AccessRequest{ID: "r", Status: model.StatusPending})
		}()
	}
	wg.Wait()
	reqs, _ := s.ListRequests(ctx)
	if len(reqs) != 10 {
		t.Errorf("got %d requests, want 10", len(reqs))
	}
}

func TestFileKVPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	kv, err := NewFileKV(path, nil)
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	ctx := context.Background()
	New(kv, nil).AppendToken(ctx, token("t", "p1", now.Add(time.Hour)))

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("state file not written: %v", err)
	}
	kv2, _ := NewFileKV(path, nil)
	list, _ := New(kv2, nil).ListTokens(ctx)
	if len(list) != 1 {
		t.Errorf("reopened file has %d tokens", len(list))
	}
}

func TestFileKVWarnsOnCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	kv, err := NewFileKV(path, slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}

	got, err := kv.GetSetting(context.Background(), TokensKey)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if got != "" {
		t.Errorf("corrupt file read %q, want empty", got)
	}
	if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), path) {
		t.Errorf("no warning naming the file, logs = %q", logs.String())
	}
}
