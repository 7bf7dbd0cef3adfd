// Package services implements the business logic layer that coordinates
// repositories, credential handling, and the audit trail.
//
// Services return *apperror.Error values; HTTP status codes are assigned only
// at the API boundary. Every organization-scoped operation takes an explicit
// tenant.Context parameter resolved by the auth middleware.
package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/contactvault/contactvault/internal/apperror"
	"github.com/contactvault/contactvault/internal/auth"
	"github.com/contactvault/contactvault/internal/config"
	"github.com/contactvault/contactvault/internal/db/models"
	"github.com/contactvault/contactvault/internal/db/repositories"
	"github.com/contactvault/contactvault/internal/telemetry"
	"github.com/contactvault/contactvault/internal/validation"
)

// AuthService handles registration, login, and profile lookup.
type AuthService struct {
	db        *sqlx.DB
	userRepo  *repositories.UserRepository
	orgRepo   *repositories.OrganizationRepository
	auditRepo *repositories.AuditRepository
	cfg       config.AuthConfig
}

// NewAuthService creates a new AuthService
func NewAuthService(db *sqlx.DB, userRepo *repositories.UserRepository, orgRepo *repositories.OrganizationRepository, auditRepo *repositories.AuditRepository, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		db:        db,
		userRepo:  userRepo,
		orgRepo:   orgRepo,
		auditRepo: auditRepo,
		cfg:       cfg,
	}
}

// AuthResult is the outward result of a successful register or login.
type AuthResult struct {
	User  *models.UserProfile `json:"user"`
	Token string              `json:"token"`
}

// Register creates a user account, creating its organization first if no
// organization with the given name exists yet. The user, the organization,
// and the user-creation audit entry are written in one transaction.
func (s *AuthService) Register(ctx context.Context, in validation.RegisterInput, meta models.AuditMetadata) (*AuthResult, error) {
	if fields := validation.ValidateRegister(&in); len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}

	taken, err := s.userRepo.FindTaken(ctx, in.Username, in.Email)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to check existing accounts", err)
	}
	if taken != "" {
		return nil, apperror.Newf(apperror.Conflict, "%s already registered", taken)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	orgRepo := s.orgRepo.WithTx(tx)
	userRepo := s.userRepo.WithTx(tx)
	auditRepo := s.auditRepo.WithTx(tx)

	org, err := orgRepo.GetByName(ctx, in.OrganizationName)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to look up organization", err)
	}
	if org == nil {
		org = &models.Organization{
			Name:     in.OrganizationName,
			Slug:     models.Slugify(in.OrganizationName),
			Status:   models.OrgStatusActive,
			Settings: models.DefaultOrganizationSettings(),
		}
		if err := orgRepo.Create(ctx, org); err != nil {
			if repositories.IsUniqueViolation(err) {
				return nil, apperror.New(apperror.Conflict, "organization name already taken")
			}
			return nil, apperror.Wrap(apperror.Internal, "failed to create organization", err)
		}
		slog.Info("organization created", "organization_id", org.ID, "slug", org.Slug)
	}

	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to hash password", err)
	}

	user := &models.User{
		Username:       in.Username,
		Email:          in.Email,
		Name:           in.Name,
		PasswordHash:   hash,
		OrganizationID: org.ID,
		IsActive:       true,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, apperror.New(apperror.Conflict, "username or email already registered")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to create user", err)
	}

	entry := &models.AuditLog{
		OrganizationID: org.ID,
		EntityType:     models.AuditEntityUser,
		EntityID:       user.ID,
		Action:         models.AuditActionCreate,
		Changes: models.AuditChanges{
			New: map[string]interface{}{
				"username": user.Username,
				"email":    user.Email,
				"name":     user.Name,
			},
		},
		PerformedBy:     user.ID,
		PerformedByName: user.Name,
		Metadata:        meta,
	}
	if err := auditRepo.Create(ctx, entry); err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to record audit entry", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to commit registration", err)
	}

	telemetry.AuditRecordsTotal.WithLabelValues(models.AuditEntityUser, models.AuditActionCreate).Inc()
	slog.Info("user registered", "user_id", user.ID, "organization_id", org.ID)

	token, err := auth.GenerateJWT(user.ID, org.ID, user.Username, user.Email, user.IsActive, s.cfg.TokenExpiry)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to issue token", err)
	}

	return &AuthResult{User: profileOf(user, org), Token: token}, nil
}

// Login verifies credentials and issues a token. A missing account and a
// wrong password produce the same InvalidCredentials error.
func (s *AuthService) Login(ctx context.Context, in validation.LoginInput) (*AuthResult, error) {
	if fields := validation.ValidateLogin(&in); len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}

	user, err := s.userRepo.FindByLogin(ctx, in.Login)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to look up account", err)
	}
	if user == nil || !auth.CheckPassword(in.Password, user.PasswordHash) {
		telemetry.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, apperror.New(apperror.InvalidCredentials, "invalid credentials")
	}
	if !user.IsActive {
		telemetry.LoginAttemptsTotal.WithLabelValues("inactive").Inc()
		return nil, apperror.New(apperror.AccountInactive, "account is deactivated")
	}

	org, err := s.orgRepo.GetByID(ctx, user.OrganizationID)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to look up organization", err)
	}
	if org == nil || org.Status != models.OrgStatusActive {
		telemetry.LoginAttemptsTotal.WithLabelValues("inactive").Inc()
		return nil, apperror.New(apperror.OrganizationInactive, "organization is not active")
	}

	token, err := auth.GenerateJWT(user.ID, org.ID, user.Username, user.Email, user.IsActive, s.cfg.TokenExpiry)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to issue token", err)
	}

	telemetry.LoginAttemptsTotal.WithLabelValues("success").Inc()
	slog.Info("user logged in", "user_id", user.ID, "organization_id", org.ID)

	return &AuthResult{User: profileOf(user, org), Token: token}, nil
}

// Profile returns the authenticated user's view joined with their
// organization name.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load user", err)
	}
	if user == nil {
		return nil, apperror.New(apperror.NotFound, "user not found")
	}

	org, err := s.orgRepo.GetByID(ctx, user.OrganizationID)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load organization", err)
	}
	if org == nil {
		return nil, apperror.New(apperror.NotFound, "organization not found")
	}

	return profileOf(user, org), nil
}

func profileOf(user *models.User, org *models.Organization) *models.UserProfile {
	return &models.UserProfile{
		ID:               user.ID,
		Username:         user.Username,
		Email:            user.Email,
		Name:             strings.TrimSpace(user.Name),
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		IsActive:         user.IsActive,
		CreatedAt:        user.CreatedAt,
	}
}
