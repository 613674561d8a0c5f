package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stockyard-ci/stockyard/internal/cache"
	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/internal/utils"
	"github.com/stockyard-ci/stockyard/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
)

const defaultAdminUsername = "admin"

// AdminAuthService issues and checks admin sessions. Sessions live in the
// cache under cache.AdminSessionPrefix; the client holds a signed token
// naming its session.
type AdminAuthService struct {
	cfg   *config.AdminConfig
	ldap  *LDAPService
	store cache.Store
}

func NewAdminAuthService(cfg *config.AdminConfig, ldapCfg *config.LDAPConfig, store cache.Store) *AdminAuthService {
	utils.SetJWTSecret(cfg.JWTSecret)
	return &AdminAuthService{cfg: cfg, ldap: NewLDAPService(ldapCfg), store: store}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *AdminAuthService) sessionTTL() time.Duration {
	hours := s.cfg.SessionHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// Login checks the credentials against LDAP when it is enabled and a username
// is given, otherwise against the configured admin password.
func (s *AdminAuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	username := defaultAdminUsername

	if s.ldap.Enabled() && req.Username != "" {
		user, err := s.ldap.Authenticate(req.Username, req.Password)
		if err != nil {
			logger.Warn().Err(err).Str("username", req.Username).Msg("[Auth] LDAP login failed")
			return nil, ErrInvalidCredentials
		}
		username = user.Username
	} else if !utils.MatchesConfigured(req.Password, s.cfg.Password) {
		return nil, ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	ttl := s.sessionTTL()
	if err := s.store.Set(ctx, cache.AdminSessionPrefix+sessionID, username, ttl); err != nil {
		return nil, fmt.Errorf("store admin session: %w", err)
	}

	token, err := utils.GenerateToken(sessionID, username, ttl)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("username", username).Msg("[Auth] Admin session started")
	return &LoginResponse{Token: token, Username: username, ExpiresAt: time.Now().Add(ttl)}, nil
}

// Validate returns the claims of a token whose session is still live.
func (s *AdminAuthService) Validate(ctx context.Context, token string) (*utils.Claims, error) {
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, cache.AdminSessionPrefix+claims.SessionID); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	return claims, nil
}

// Logout ends the session named by the token. Unknown sessions are ignored.
func (s *AdminAuthService) Logout(ctx context.Context, token string) error {
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil
	}
	return s.store.Delete(ctx, cache.AdminSessionPrefix+claims.SessionID)
}
