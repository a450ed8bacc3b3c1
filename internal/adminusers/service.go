package adminusers

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/db"
	"github.com/angelmondragon/catalog-admin/pkg/db/models"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/angelmondragon/catalog-admin/pkg/security"
	"github.com/go-playground/validator/v10"
)

const emailConstraint = "admin_users_email_key"

// Service provisions and lists admin users.
type Service interface {
	Create(ctx context.Context, email, password string) (*AdminDTO, error)
	List(ctx context.Context) ([]AdminDTO, error)
}

type repository interface {
	Create(ctx context.Context, admin *models.AdminUser) error
	List(ctx context.Context) ([]models.AdminUser, error)
}

type service struct {
	repo     repository
	password config.PasswordConfig
	validate *validator.Validate
}

// NewService wires the admin user service.
func NewService(repo repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admin user repository required")
	}
	return &service{
		repo:     repo,
		password: passwordCfg,
		validate: validator.New(),
	}, nil
}

func (s *service) Create(ctx context.Context, email, password string) (*AdminDTO, error) {
	normalized := NormalizeEmail(email)
	if err := s.validate.Var(normalized, "required,email"); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if err := security.CheckPasswordLength(password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	admin := &models.AdminUser{Email: normalized, PasswordHash: hash}
	if err := s.repo.Create(ctx, admin); err != nil {
		if db.IsUniqueViolation(err, emailConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an admin with this email already exists")
		}
		return nil, pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
	}
	return FromModel(admin), nil
}

func (s *service) List(ctx context.Context) ([]AdminDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
	}
	out := make([]AdminDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// NormalizeEmail trims and lowercases an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
