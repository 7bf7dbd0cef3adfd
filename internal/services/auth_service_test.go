package services

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/contactvault/contactvault/internal/apperror"
	"github.com/contactvault/contactvault/internal/auth"
	"github.com/contactvault/contactvault/internal/config"
	"github.com/contactvault/contactvault/internal/db/models"
	"github.com/contactvault/contactvault/internal/db/repositories"
	"github.com/contactvault/contactvault/internal/validation"
)

func TestMain(m *testing.M) {
	os.Setenv("CV_JWT_SECRET", "test-secret-0123456789abcdef0123456789abcdef")
	os.Exit(m.Run())
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var testAuthCfg = config.AuthConfig{TokenExpiry: time.Hour, BcryptCost: 4}

func newAuthService(t *testing.T) (*AuthService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	sdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sdb.Close() })
	return NewAuthService(sdb,
		repositories.NewUserRepository(sdb),
		repositories.NewOrganizationRepository(sdb),
		repositories.NewAuditRepository(sdb),
		testAuthCfg), mock
}

var orgCols = []string{"id", "name", "slug", "status", "settings", "created_at", "updated_at"}

func orgRow(t *testing.T, status string) *sqlmock.Rows {
	t.Helper()
	settings, err := json.Marshal(models.DefaultOrganizationSettings())
	if err != nil {
		t.Fatalf("marshal settings: %v", err)
	}
	return sqlmock.NewRows(orgCols).
		AddRow("org-1", "Acme Corp", "acme-corp", status, settings, time.Now(), time.Now())
}

func userLoginRow(t *testing.T, password string, isActive bool) *sqlmock.Rows {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cols := []string{"id", "username", "email", "name", "password_hash", "organization_id", "is_active", "created_at", "updated_at"}
	return sqlmock.NewRows(cols).
		AddRow("user-1", "jsmith", "jsmith@example.com", "Jane Smith", hash, "org-1", isActive, time.Now(), time.Now())
}

func registerInput() validation.RegisterInput {
	return validation.RegisterInput{
		Username:         "jsmith",
		Email:            "jsmith@example.com",
		Password:         "secret123",
		Name:             "Jane Smith",
		OrganizationName: "Acme Corp",
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestRegister_NewOrganization(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT username, email.*FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"username", "email"}))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM organizations WHERE name").
		WillReturnRows(sqlmock.NewRows(orgCols))
	mock.ExpectExec("INSERT INTO organizations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.Register(context.Background(), registerInput(), models.AuditMetadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token")
	}
	if result.User.OrganizationName != "Acme Corp" {
		t.Errorf("OrganizationName = %s, want Acme Corp", result.User.OrganizationName)
	}
	if !result.User.IsActive {
		t.Error("expected new user to be active")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRegister_ExistingOrganization(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT username, email.*FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"username", "email"}))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM organizations WHERE name").
		WillReturnRows(orgRow(t, "active"))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.Register(context.Background(), registerInput(), models.AuditMetadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.User.OrganizationID != "org-1" {
		t.Errorf("OrganizationID = %s, want org-1", result.User.OrganizationID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT username, email.*FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"username", "email"}).
			AddRow("jsmith", "other@example.com"))

	_, err := svc.Register(context.Background(), registerInput(), models.AuditMetadata{})
	if !apperror.Is(err, apperror.Conflict) {
		t.Fatalf("error = %v, want Conflict", err)
	}
}

func TestRegister_ValidationFailure(t *testing.T) {
	svc, _ := newAuthService(t)

	in := registerInput()
	in.Password = "short"
	_, err := svc.Register(context.Background(), in, models.AuditMetadata{})
	if !apperror.Is(err, apperror.ValidationFailed) {
		t.Fatalf("error = %v, want ValidationFailed", err)
	}
}

func TestRegister_AuditFailureRollsBack(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT username, email.*FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"username", "email"}))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM organizations WHERE name").
		WillReturnRows(orgRow(t, "active"))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(errDB)
	mock.ExpectRollback()

	_, err := svc.Register(context.Background(), registerInput(), models.AuditMetadata{})
	if !apperror.Is(err, apperror.Internal) {
		t.Fatalf("error = %v, want Internal", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLogin_Success(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE username").
		WillReturnRows(userLoginRow(t, "secret123", true))
	mock.ExpectQuery("SELECT.*FROM organizations WHERE id").
		WillReturnRows(orgRow(t, "active"))

	result, err := svc.Login(context.Background(), validation.LoginInput{Login: "jsmith", Password: "secret123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token")
	}
	if result.User.Username != "jsmith" {
		t.Errorf("Username = %s, want jsmith", result.User.Username)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE username").
		WillReturnRows(userLoginRow(t, "secret123", true))

	_, err := svc.Login(context.Background(), validation.LoginInput{Login: "jsmith", Password: "wrong"})
	if !apperror.Is(err, apperror.InvalidCredentials) {
		t.Fatalf("error = %v, want InvalidCredentials", err)
	}
}

func TestLogin_UnknownAccount(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE username").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "name", "password_hash", "organization_id", "is_active", "created_at", "updated_at",
		}))

	_, err := svc.Login(context.Background(), validation.LoginInput{Login: "ghost", Password: "whatever"})
	if !apperror.Is(err, apperror.InvalidCredentials) {
		t.Fatalf("error = %v, want InvalidCredentials", err)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE username").
		WillReturnRows(userLoginRow(t, "secret123", false))

	_, err := svc.Login(context.Background(), validation.LoginInput{Login: "jsmith", Password: "secret123"})
	if !apperror.Is(err, apperror.AccountInactive) {
		t.Fatalf("error = %v, want AccountInactive", err)
	}
}

func TestLogin_SuspendedOrganization(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE username").
		WillReturnRows(userLoginRow(t, "secret123", true))
	mock.ExpectQuery("SELECT.*FROM organizations WHERE id").
		WillReturnRows(orgRow(t, "suspended"))

	_, err := svc.Login(context.Background(), validation.LoginInput{Login: "jsmith", Password: "secret123"})
	if !apperror.Is(err, apperror.OrganizationInactive) {
		t.Fatalf("error = %v, want OrganizationInactive", err)
	}
}

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

func TestProfile_Success(t *testing.T) {
	svc, mock := newAuthService(t)

	cols := []string{"id", "username", "email", "name", "organization_id", "is_active", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("user-1", "jsmith", "jsmith@example.com", "Jane Smith", "org-1", true, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT.*FROM organizations WHERE id").
		WillReturnRows(orgRow(t, "active"))

	profile, err := svc.Profile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.OrganizationName != "Acme Corp" {
		t.Errorf("OrganizationName = %s, want Acme Corp", profile.OrganizationName)
	}
}

func TestProfile_UserGone(t *testing.T) {
	svc, mock := newAuthService(t)

	cols := []string{"id", "username", "email", "name", "organization_id", "is_active", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WillReturnRows(sqlmock.NewRows(cols))

	_, err := svc.Profile(context.Background(), "missing")
	if !apperror.Is(err, apperror.NotFound) {
		t.Fatalf("error = %v, want NotFound", err)
	}
}
