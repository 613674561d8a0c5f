package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stockyard-ci/stockyard/internal/cache"
	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/internal/utils"
)

func newTestAdminAuth(password string) (*AdminAuthService, cache.Store) {
	store := cache.NewMemory()
	svc := NewAdminAuthService(
		&config.AdminConfig{Password: password, SessionHours: 1, JWTSecret: "test-secret"},
		&config.LDAPConfig{},
		store,
	)
	return svc, store
}

func TestAdminAuth_Login(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		password   string
		wantErr    error
	}{
		{"plain password", "s3cret", "s3cret", nil},
		{"wrong password", "s3cret", "nope", ErrInvalidCredentials},
		{"no password configured", "", "", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAdminAuth(tt.configured)
			resp, err := svc.Login(context.Background(), &LoginRequest{Password: tt.password})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
			if resp.Username != defaultAdminUsername {
				t.Errorf("Username = %q, want %q", resp.Username, defaultAdminUsername)
			}
		})
	}
}

func TestAdminAuth_ValidateAndLogout(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestAdminAuth("s3cret")

	resp, err := svc.Login(ctx, &LoginRequest{Password: "s3cret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	claims, err := svc.Validate(ctx, resp.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if _, err := store.Get(ctx, cache.AdminSessionPrefix+claims.SessionID); err != nil {
		t.Errorf("session not stored: %v", err)
	}

	if err := svc.Logout(ctx, resp.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.Validate(ctx, resp.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Validate() after logout error = %v, want ErrSessionExpired", err)
	}
}

func TestAdminAuth_ValidateRejectsGarbage(t *testing.T) {
	svc, _ := newTestAdminAuth("s3cret")
	if _, err := svc.Validate(context.Background(), "not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
	if err := svc.Logout(context.Background(), "not-a-token"); err != nil {
		t.Errorf("Logout() of unknown token error = %v", err)
	}
}

func TestAdminAuth_BcryptPassword(t *testing.T) {
	hash, err := utils.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	svc, _ := newTestAdminAuth(hash)
	ctx := context.Background()

	if _, err := svc.Login(ctx, &LoginRequest{Password: "s3cret"}); err != nil {
		t.Errorf("Login() with hashed password error = %v", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() with wrong password error = %v", err)
	}
}
