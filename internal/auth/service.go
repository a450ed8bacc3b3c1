package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/catalog-admin/internal/adminusers"
	pkgAuth "github.com/angelmondragon/catalog-admin/pkg/auth"
	"github.com/angelmondragon/catalog-admin/pkg/auth/session"
	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/db/models"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/security"
)

// IncorrectCredentialsMessage is the only message surfaced for a failed sign-in.
const IncorrectCredentialsMessage = "incorrect credentials"

var (
	errAdminNotFound    = errors.New("admin not found")
	errPasswordMismatch = errors.New("password mismatch")
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Verify(ctx context.Context, email, password string) (*session.Identity, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, accessID string) error
	Refresh(ctx context.Context, accessID, refreshToken string) (*LoginResponse, error)
}

type adminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}

type sessionManager interface {
	Save(ctx context.Context, accessID string, identity session.Identity) (string, error)
	Clear(ctx context.Context, accessID string) error
	Rotate(ctx context.Context, oldAccessID, refreshToken string) (string, string, *session.Identity, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Admins    adminRepository
	Sessions  sessionManager
	JWTConfig config.JWTConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	admins   adminRepository
	sessions sessionManager
	jwtCfg   config.JWTConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the admin auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.Admins == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		admins:   params.Admins,
		sessions: params.Sessions,
		jwtCfg:   params.JWTConfig,
		logg:     logg,
		now:      now,
	}, nil
}

// Verify checks the credentials against the stored argon2id hash.
// Every failure is reported as UNAUTHORIZED with the same message; the cause is logged.
func (s *service) Verify(ctx context.Context, email, password string) (*session.Identity, error) {
	normalized := adminusers.NormalizeEmail(email)
	if normalized == "" || strings.TrimSpace(password) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	admin, err := s.admins.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, s.reject(ctx, normalized, fmt.Errorf("lookup admin: %w", err))
	}
	if admin == nil {
		return nil, s.reject(ctx, normalized, errAdminNotFound)
	}

	ok, err := security.VerifyPassword(password, admin.PasswordHash)
	if err != nil {
		return nil, s.reject(ctx, normalized, fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return nil, s.reject(ctx, normalized, errPasswordMismatch)
	}

	return &session.Identity{
		ID:        admin.ID,
		Email:     admin.Email,
		CreatedAt: admin.CreatedAt,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	identity, err := s.Verify(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	accessID := session.NewAccessID()
	token, expiresAt, err := s.mint(identity, accessID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sessions.Save(ctx, accessID, *identity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}

	ctx = s.logg.WithAdminID(ctx, identity.ID)
	s.logg.Info(ctx, "auth.login.success")

	return &LoginResponse{
		AccessToken:  token,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		Admin:        identityDTO(identity),
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	if err := s.sessions.Clear(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session")
	}
	return nil
}

func (s *service) Refresh(ctx context.Context, accessID, refreshToken string) (*LoginResponse, error) {
	newAccessID, newRefresh, identity, err := s.sessions.Rotate(ctx, accessID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	token, expiresAt, err := s.mint(identity, newAccessID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  token,
		RefreshToken: newRefresh,
		ExpiresAt:    expiresAt,
		Admin:        identityDTO(identity),
	}, nil
}

func (s *service) mint(identity *session.Identity, accessID string) (string, time.Time, error) {
	now := s.now().UTC()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		AdminID: identity.ID,
		Email:   identity.Email,
		JTI:     accessID,
	})
	if err != nil {
		return "", time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute), nil
}

func (s *service) reject(ctx context.Context, email string, cause error) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"email":  email,
		"reason": cause.Error(),
	})
	s.logg.Warn(ctx, "auth.verify.rejected")
	return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, cause, IncorrectCredentialsMessage)
}

func identityDTO(identity *session.Identity) *adminusers.AdminDTO {
	return &adminusers.AdminDTO{
		ID:        identity.ID,
		Email:     identity.Email,
		CreatedAt: identity.CreatedAt,
	}
}
