package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/audit"
	"github.com/imobiai/leadqual-server-go/internal/config"
	apperrors "github.com/imobiai/leadqual-server-go/internal/errors"
	"github.com/imobiai/leadqual-server-go/internal/model"
	"github.com/imobiai/leadqual-server-go/internal/repository"
	"github.com/imobiai/leadqual-server-go/internal/util"
)

const authSessionTTL = 24 * time.Hour

// LoginResult is the issued credential plus the identity it maps to.
type LoginResult struct {
	Token     string    `json:"token"`
	UserID    string    `json:"uid"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService authenticates the single operator account configured through
// the environment. The operator's user id is stable across logins so owned
// resources survive session churn.
type AuthService struct {
	sessionRepo repository.AuthSessionRepository
	cfg         *config.Config
	operatorUID string
}

func NewAuthService(sessionRepo repository.AuthSessionRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		sessionRepo: sessionRepo,
		cfg:         cfg,
		// Derived deterministically from the email so it never changes.
		operatorUID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(cfg.AdminEmail)).String(),
	}
}

// OperatorUID exposes the stable owner id for bootstrap wiring.
func (s *AuthService) OperatorUID() string {
	return s.operatorUID
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.MissingRequired("email and password")
	}
	if s.cfg.AdminPasswordHash == "" {
		return nil, apperrors.Internal("operator credentials are not configured")
	}

	if email != s.cfg.AdminEmail || !util.CheckPasswordHash(password, s.cfg.AdminPasswordHash) {
		audit.Log(ctx, audit.Event{
			Type: audit.EventLoginFailure,
			Details: map[string]interface{}{
				"email": email,
			},
		})
		return nil, apperrors.Unauthorized("Invalid credentials")
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	expiresAt := time.Now().Add(authSessionTTL)
	_, err = s.sessionRepo.Create(ctx, model.CreateAuthSessionParams{
		TokenHash: util.HashToken(token),
		UserID:    s.operatorUID,
		Email:     email,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth session: %w", err)
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventLoginSuccess,
		UserID: s.operatorUID,
	})
	log.Info().Str("email", email).Msg("operator logged in")

	return &LoginResult{
		Token:     token,
		UserID:    s.operatorUID,
		Email:     email,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessionRepo.DeleteByTokenHash(ctx, util.HashToken(token)); err != nil {
		return fmt.Errorf("delete auth session: %w", err)
	}
	audit.Log(ctx, audit.Event{
		Type:   audit.EventLogout,
		UserID: s.operatorUID,
	})
	return nil
}
