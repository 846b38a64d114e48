package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/faucetdb/foliogate/internal/model"
)

type gateEnv struct {
	access   *AccessService
	clock    *ManualClock
	checker  *fakeChecker
	notifier *fakeNotifier
	gate     *Gate
}

func newGateEnv(t *testing.T, cfg GateConfig) *gateEnv {
	t.Helper()
	access, clock := newTestAccess(t)
	env := &gateEnv{
		access:   access,
		clock:    clock,
		checker:  &fakeChecker{password: "open-sesame"},
		notifier: &fakeNotifier{},
	}
	catalog := fakeCatalog{
		"secret":  {Slug: "secret", Title: "Secret Work", Protected: true},
		"public":  {Slug: "public", Title: "Public Work"},
		"p-other": {Slug: "p-other", Title: "Other", Protected: true},
	}
	g, err := NewGate(access, env.checker, env.notifier, catalog, cfg, nil)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	env.gate = g
	return env
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestNewGateRejectsExpiry(t *testing.T) {
	access, _ := newTestAccess(t)
	_, err := NewGate(access, &fakeChecker{}, nil, nil, GateConfig{ExpiryHours: 3}, nil)
	if !errors.Is(err, ErrInvalidExpiry) {
		t.Errorf("err = %v, want ErrInvalidExpiry", err)
	}
}

func TestOpenUnprotected(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	v := env.gate.Open(context.Background(), "public", nil)
	if v.State() != StateUnlocked {
		t.Errorf("state = %v, want unlocked", v.State())
	}
}

func TestOpenLockedWithoutToken(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	v := env.gate.Open(context.Background(), "secret", mustURL(t, "/work/secret"))
	if v.State() != StateLocked {
		t.Errorf("state = %v, want locked", v.State())
	}
}

func TestPasswordUnlockThenRevisit(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	ctx := context.Background()

	v := env.gate.Open(ctx, "secret", nil)
	res, err := v.SubmitPassword(ctx, "open-sesame")
	if err != nil {
		t.Fatalf("SubmitPassword: %v", err)
	}
	if res.Outcome != OutcomeSuccess || res.State != StateUnlocked {
		t.Fatalf("result = %+v", res)
	}
	if res.Token == nil {
		t.Fatal("expected a minted token")
	}
	if res.Token.Expires != ExpiryFrom(epoch, 24) {
		t.Errorf("expires = %d, want default 24h", res.Token.Expires)
	}
	if env.checker.kinds[0] != model.PasswordTypeProject {
		t.Errorf("checked kind %q, want project", env.checker.kinds[0])
	}

	env.clock.Advance(23 * time.Hour)
	if got := env.gate.Open(ctx, "secret", nil).State(); got != StateUnlocked {
		t.Errorf("revisit within expiry: state = %v", got)
	}
	if got := env.gate.Open(ctx, "p-other", nil).State(); got != StateLocked {
		t.Errorf("other project: state = %v, want locked", got)
	}
	env.clock.Advance(time.Hour)
	if got := env.gate.Open(ctx, "secret", nil).State(); got != StateLocked {
		t.Errorf("revisit after expiry: state = %v, want locked", got)
	}
}

func TestWrongPasswordThenRetry(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	ctx := context.Background()
	v := env.gate.Open(ctx, "secret", nil)

	res, err := v.SubmitPassword(ctx, "nope")
	if err != nil {
		t.Fatalf("SubmitPassword: %v", err)
	}
	if res.Outcome != OutcomeDenied || v.State() != StateDenied {
		t.Fatalf("result = %+v", res)
	}
	if v.Notice() != NoticeIncorrectPassword {
		t.Errorf("notice = %q", v.Notice())
	}
	tokens, _ := env.access.ListTokens(ctx, "")
	if len(tokens) != 0 {
		t.Errorf("wrong password minted %d tokens", len(tokens))
	}

	res, _ = v.SubmitPassword(ctx, "open-sesame")
	if res.Outcome != OutcomeSuccess {
		t.Errorf("retry outcome = %v", res.Outcome)
	}
}

func TestEmptyPasswordSkipsChecker(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	v := env.gate.Open(context.Background(), "secret", nil)
	res, _ := v.SubmitPassword(context.Background(), "")
	if res.Outcome != OutcomeDenied {
		t.Errorf("outcome = %v", res.Outcome)
	}
	if env.checker.Calls() != 0 {
		t.Error("empty password reached the checker")
	}
}

func TestCheckerFailureIsDistinguishable(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	env.checker.err = errors.New("connection refused")
	v := env.gate.Open(context.Background(), "secret", nil)

	res, err := v.SubmitPassword(context.Background(), "open-sesame")
	if err != nil {
		t.Fatalf("SubmitPassword: %v", err)
	}
	if res.Outcome != OutcomeError {
		t.Errorf("outcome = %v, want error", res.Outcome)
	}
	if res.Notice == NoticeIncorrectPassword || res.Notice != NoticeCheckFailed {
		t.Errorf("notice = %q", res.Notice)
	}
	if v.State() != StateDenied {
		t.Errorf("state = %v, want denied", v.State())
	}
}

func TestCheckerTimeout(t *testing.T) {
	env := newGateEnv(t, GateConfig{CheckTimeout: 20 * time.Millisecond})
	env.checker.block = make(chan struct{})
	v := env.gate.Open(context.Background(), "secret", nil)

	res, err := v.SubmitPassword(context.Background(), "open-sesame")
	if err != nil {
		t.Fatalf("SubmitPassword: %v", err)
	}
	if res.Outcome != OutcomeError {
		t.Errorf("outcome = %v, want error", res.Outcome)
	}
}

func TestSubmitWhileInFlight(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	release := make(chan struct{})
	env.checker.block = release
	v := env.gate.Open(context.Background(), "secret", nil)

	done := make(chan PasswordResult)
	go func() {
		res, _ := v.SubmitPassword(context.Background(), "open-sesame")
		done <- res
	}()

	waitFor(t, v.Submitting)
	if v.State() != StateChecking {
		t.Errorf("state during check = %v, want checking", v.State())
	}
	if _, err := v.SubmitPassword(context.Background(), "open-sesame"); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("second submit err = %v, want ErrSubmitInProgress", err)
	}
	close(release)
	if res := <-done; res.Outcome != OutcomeSuccess {
		t.Errorf("first submit outcome = %v", res.Outcome)
	}
	if env.checker.Calls() != 1 {
		t.Errorf("checker called %d times, want 1", env.checker.Calls())
	}
}

func TestCloseDiscardsInFlightResult(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	env.checker.block = make(chan struct{})
	v := env.gate.Open(context.Background(), "secret", nil)

	errCh := make(chan error)
	go func() {
		_, err := v.SubmitPassword(context.Background(), "open-sesame")
		errCh <- err
	}()
	waitFor(t, v.Submitting)
	v.Close()

	if err := <-errCh; !errors.Is(err, ErrViewClosed) {
		t.Errorf("err = %v, want ErrViewClosed", err)
	}
	tokens, _ := env.access.ListTokens(context.Background(), "")
	if len(tokens) != 0 {
		t.Error("closed view minted a token")
	}
	if _, err := v.SubmitPassword(context.Background(), "x"); !errors.Is(err, ErrViewClosed) {
		t.Errorf("submit after close err = %v", err)
	}
}

func TestAccessLinkUnlocksAndStripsParam(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	ctx := context.Background()
	tok, _ := env.access.CreateAccessToken(ctx, "secret", 24, "a@b.co")

	v := env.gate.Open(ctx, "secret", mustURL(t, "https://site.test/work/secret?ref=mail&access_token="+tok.Value))
	if v.State() != StateUnlocked {
		t.Fatalf("state = %v, want unlocked", v.State())
	}
	if strings.Contains(v.URL(), "access_token") {
		t.Errorf("token param not stripped: %s", v.URL())
	}
	if !strings.Contains(v.URL(), "ref=mail") {
		t.Errorf("other params lost: %s", v.URL())
	}
}

func TestAccessLinkInvalidOrExpired(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	ctx := context.Background()
	tok, _ := env.access.CreateAccessToken(ctx, "secret", 1, "")

	v := env.gate.Open(ctx, "secret", mustURL(t, "/work/secret?access_token=bogus"))
	if v.State() != StateDenied || v.Notice() != NoticeLinkInvalid {
		t.Errorf("bogus link: state=%v notice=%q", v.State(), v.Notice())
	}

	env.clock.Advance(2 * time.Hour)
	v = env.gate.Open(ctx, "secret", mustURL(t, "/work/secret?access_token="+tok.Value))
	if v.State() != StateDenied {
		t.Errorf("expired link: state = %v, want denied", v.State())
	}
	if !strings.Contains(v.URL(), "access_token") {
		t.Error("rejected link should keep its parameter")
	}

	// A denied visitor may still use the password.
	res, _ := v.SubmitPassword(ctx, "open-sesame")
	if res.Outcome != OutcomeSuccess {
		t.Errorf("password after denied link: %v", res.Outcome)
	}
}

func TestAccessLinkForOtherProject(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	ctx := context.Background()
	tok, _ := env.access.CreateAccessToken(ctx, "p-other", 24, "")
	v := env.gate.Open(ctx, "secret", mustURL(t, "/work/secret?access_token="+tok.Value))
	if v.State() != StateDenied {
		t.Errorf("state = %v, want denied", v.State())
	}
}

func TestRequestAccess(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	ctx := context.Background()
	v := env.gate.Open(ctx, "secret", nil)

	res, err := v.RequestAccess(ctx, " visitor@example.com ", "please")
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if !res.Notified || res.MessageID != "msg-request" || res.Notice != NoticeRequestSent {
		t.Errorf("result = %+v", res)
	}
	if len(res.Request.ID) != RequestIDLength {
		t.Errorf("request id length = %d", len(res.Request.ID))
	}
	if res.Request.Email != "visitor@example.com" || res.Request.Status != model.StatusPending {
		t.Errorf("request = %+v", res.Request)
	}
	if res.Request.Timestamp != epoch.UnixMilli() {
		t.Errorf("timestamp = %d", res.Request.Timestamp)
	}
	if env.notifier.titles[0] != "Secret Work" {
		t.Errorf("title = %q", env.notifier.titles[0])
	}
	stored, _ := env.access.Store().ListRequests(ctx)
	if len(stored) != 1 || stored[0].ID != res.Request.ID {
		t.Errorf("stored = %+v", stored)
	}
}

func TestRequestAccessInvalidEmail(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	ctx := context.Background()
	v := env.gate.Open(ctx, "secret", nil)

	for _, email := range []string{"", "nobody", "a@b", "a b@c.d", "@x.io"} {
		if _, err := v.RequestAccess(ctx, email, ""); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("RequestAccess(%q) err = %v, want ErrInvalidEmail", email, err)
		}
	}
	stored, _ := env.access.Store().ListRequests(ctx)
	if len(stored) != 0 {
		t.Errorf("invalid email stored %d requests", len(stored))
	}
	if len(env.notifier.requests) != 0 {
		t.Error("invalid email reached the notifier")
	}
}

func TestRequestAccessNotifyFailureKeepsRequest(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	env.notifier.err = errors.New("provider down")
	ctx := context.Background()
	v := env.gate.Open(ctx, "secret", nil)

	res, err := v.RequestAccess(ctx, "v@x.io", "")
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if res.Notified {
		t.Error("Notified should be false")
	}
	if v.Notice() != NoticeRequestNotSent {
		t.Errorf("notice = %q", v.Notice())
	}
	stored, _ := env.access.Store().ListRequests(ctx)
	if len(stored) != 1 || !stored[0].IsPending() {
		t.Errorf("stored = %+v", stored)
	}
}

func TestRequestAccessWhenUnlocked(t *testing.T) {
	env := newGateEnv(t, GateConfig{})
	v := env.gate.Open(context.Background(), "public", nil)
	if _, err := v.RequestAccess(context.Background(), "v@x.io", ""); !errors.Is(err, ErrAlreadyUnlocked) {
		t.Errorf("err = %v, want ErrAlreadyUnlocked", err)
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		StateLocked: "locked", StateChecking: "checking",
		StateUnlocked: "unlocked", StateDenied: "denied",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), name)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
