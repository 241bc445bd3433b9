package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestValidateRevokeEndToEnd(t *testing.T) {
	env := newTestEngine(t, engineTestConfig())
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	ident, err := env.engine.Validate(ctx, grant.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ident.ID != "u1" {
		t.Fatalf("identity = %q, want u1", ident.ID)
	}

	if err := env.engine.Revoke(ctx, grant.Token); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := env.engine.Validate(ctx, grant.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("after revoke: err = %v, want ErrTokenRevoked", err)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	env := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	for name, token := range map[string]string{
		"empty":     "",
		"garbage":   "not-a-token",
		"wrong len": "YWJjZGVmZ2hpamtsbW5vcA",
	} {
		if _, err := env.engine.Validate(ctx, token); !errors.Is(err, ErrTokenUnknown) {
			t.Errorf("%s: err = %v, want ErrTokenUnknown", name, err)
		}
	}
}

func TestValidateWrongSecretIsUnknown(t *testing.T) {
	env := newTestEngine(t, engineTestConfig())
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	// Same session ID, different secret: must read as unknown, not as a
	// hint that the session exists.
	forged := grant.Token[:len(grant.Token)/2] + grant.Token[:len(grant.Token)-len(grant.Token)/2]
	if len(forged) != len(grant.Token) {
		t.Fatalf("forged token length %d != %d", len(forged), len(grant.Token))
	}
	if forged == grant.Token {
		t.Skip("forged token collided with the real one")
	}
	if _, err := env.engine.Validate(ctx, forged); !errors.Is(err, ErrTokenUnknown) {
		t.Fatalf("forged token: err = %v, want ErrTokenUnknown", err)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Session.TTL = time.Minute
	cfg.Session.RefreshWindow = 30 * time.Second
	env := newTestEngine(t, cfg)
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	// One tick before expiry the session is still good.
	env.clock.Advance(time.Minute - time.Second)
	if _, err := env.engine.Validate(ctx, grant.Token); err != nil {
		t.Fatalf("immediately before expiry: %v", err)
	}

	// At exactly expiry == now the session is expired.
	env.clock.Advance(time.Second)
	if _, err := env.engine.Validate(ctx, grant.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("at expiry: err = %v, want ErrTokenExpired", err)
	}
}

func TestValidateExpiredSessionWithVirtualClock(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Session.TTL = 60 * time.Second
	cfg.Session.RefreshWindow = 10 * time.Second
	cfg.Session.MaxAge = time.Hour
	env := newTestEngine(t, cfg)
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	env.clock.Advance(61 * time.Second)

	if _, err := env.engine.Validate(ctx, grant.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}

	// The expired record was opportunistically collected: a second
	// validate finds nothing at all.
	if _, err := env.engine.Validate(ctx, grant.Token); !errors.Is(err, ErrTokenUnknown) {
		t.Fatalf("after cleanup: err = %v, want ErrTokenUnknown", err)
	}
}

func TestValidateUpdatesLastSeen(t *testing.T) {
	env := newTestEngine(t, engineTestConfig())
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	env.clock.Advance(10 * time.Second)
	if _, err := env.engine.Validate(ctx, grant.Token); err != nil {
		t.Fatalf("validate: %v", err)
	}

	sessions, err := env.engine.Sessions(ctx, "u1")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("live sessions = %d, want 1", len(sessions))
	}
	want := grant.Session.LastSeenAt + (10 * time.Second).Milliseconds()
	if sessions[0].LastSeenAt != want {
		t.Fatalf("last seen = %d, want %d", sessions[0].LastSeenAt, want)
	}
}

func TestValidateRejectsNonActiveIdentity(t *testing.T) {
	env := newTestEngine(t, engineTestConfig())
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if err := env.identities.SetStatus(ctx, "u1", StatusDisabled); err != nil {
		t.Fatalf("set status: %v", err)
	}

	if _, err := env.engine.Validate(ctx, grant.Token); !errors.Is(err, ErrAccountUnavailable) {
		t.Fatalf("err = %v, want ErrAccountUnavailable", err)
	}
}

func TestRevokeIsIdempotentAndSilent(t *testing.T) {
	env := newTestEngine(t, engineTestConfig())
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if err := env.engine.Revoke(ctx, grant.Token); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := env.engine.Revoke(ctx, grant.Token); err != nil {
		t.Fatalf("second revoke: %v", err)
	}

	// Unknown and malformed tokens are no-ops, not errors.
	if err := env.engine.Revoke(ctx, "garbage"); err != nil {
		t.Fatalf("revoke garbage: %v", err)
	}
	if err := env.engine.Revoke(ctx, ""); err != nil {
		t.Fatalf("revoke empty: %v", err)
	}

	if _, err := env.engine.Validate(ctx, grant.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}
}

func TestRefreshInsideWindowExtends(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Session.TTL = 10 * time.Minute
	cfg.Session.RefreshWindow = 2 * time.Minute
	cfg.Session.MaxAge = time.Hour
	env := newTestEngine(t, cfg)
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	// 9 minutes in: 1 minute to expiry, inside the 2 minute window.
	env.clock.Advance(9 * time.Minute)
	refreshed, err := env.engine.Refresh(ctx, grant.Token)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	wantExpiry := env.clock.Now().Add(10 * time.Minute).UnixMilli()
	if refreshed.ExpiresAt != wantExpiry {
		t.Fatalf("expiry = %d, want %d", refreshed.ExpiresAt, wantExpiry)
	}

	// The extension is persisted: the session outlives its original TTL.
	env.clock.Advance(5 * time.Minute)
	if _, err := env.engine.Validate(ctx, grant.Token); err != nil {
		t.Fatalf("validate after refresh: %v", err)
	}
}

func TestRefreshOutsideWindowIsUnchanged(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Session.TTL = 10 * time.Minute
	cfg.Session.RefreshWindow = 2 * time.Minute
	cfg.Session.MaxAge = time.Hour
	env := newTestEngine(t, cfg)
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	// 1 minute in: 9 minutes to expiry, outside the window.
	env.clock.Advance(time.Minute)
	refreshed, err := env.engine.Refresh(ctx, grant.Token)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.ExpiresAt != grant.Session.ExpiresAt {
		t.Fatalf("expiry moved outside refresh window: %d -> %d", grant.Session.ExpiresAt, refreshed.ExpiresAt)
	}
}

func TestRefreshRespectsMaxSessionAge(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Session.TTL = 10 * time.Minute
	cfg.Session.RefreshWindow = 10 * time.Minute // always refreshable
	cfg.Session.MaxAge = 15 * time.Minute
	env := newTestEngine(t, cfg)
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	maxExpiry := grant.Session.CreatedAt + (15 * time.Minute).Milliseconds()

	// First refresh at t+8m: now+TTL would be t+18m, capped to t+15m.
	env.clock.Advance(8 * time.Minute)
	refreshed, err := env.engine.Refresh(ctx, grant.Token)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.ExpiresAt != maxExpiry {
		t.Fatalf("expiry = %d, want capped at %d", refreshed.ExpiresAt, maxExpiry)
	}

	// At the cap a further refresh cannot extend.
	env.clock.Advance(6 * time.Minute)
	again, err := env.engine.Refresh(ctx, grant.Token)
	if err != nil {
		t.Fatalf("refresh at cap: %v", err)
	}
	if again.ExpiresAt != maxExpiry {
		t.Fatalf("expiry = %d, want still %d", again.ExpiresAt, maxExpiry)
	}

	// Past the cap the session is gone for good.
	env.clock.Advance(2 * time.Minute)
	if _, err := env.engine.Validate(ctx, grant.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("past cap: err = %v, want ErrTokenExpired", err)
	}
}

func TestRefreshFailsLikeValidate(t *testing.T) {
	env := newTestEngine(t, engineTestConfig())
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	if _, err := env.engine.Refresh(ctx, "garbage"); !errors.Is(err, ErrTokenUnknown) {
		t.Fatalf("unknown token: %v", err)
	}

	grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := env.engine.Revoke(ctx, grant.Token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, grant.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("revoked token: %v", err)
	}
}

func TestRevokeAllForIdentity(t *testing.T) {
	env := newTestEngine(t, engineTestConfig())
	env.seedIdentity(t, "u1", "alice", testSecret, StatusActive)
	ctx := context.Background()

	var tokens []string
	for i := 0; i < 3; i++ {
		grant, err := env.engine.Authenticate(ctx, "alice", testSecret)
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		tokens = append(tokens, grant.Token)
	}

	revoked, err := env.engine.RevokeAllForIdentity(ctx, "u1")
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if revoked != 3 {
		t.Fatalf("revoked = %d, want 3", revoked)
	}

	for _, token := range tokens {
		if _, err := env.engine.Validate(ctx, token); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("err = %v, want ErrTokenRevoked", err)
		}
	}
}
