package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/contactvault/contactvault/internal/auth"
	"github.com/contactvault/contactvault/internal/db/models"
	"github.com/contactvault/contactvault/internal/db/repositories"
	"github.com/contactvault/contactvault/internal/tenant"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var userCols = []string{"id", "username", "email", "name", "organization_id", "is_active", "created_at", "updated_at"}
var orgCols = []string{"id", "name", "slug", "status", "settings", "created_at", "updated_at"}

func newUserRepo(t *testing.T) (*repositories.UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New (user): %v", err)
	}
	sdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sdb.Close() })
	return repositories.NewUserRepository(sdb), mock
}

func newOrgRepo(t *testing.T) (*repositories.OrganizationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New (org): %v", err)
	}
	sdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sdb.Close() })
	return repositories.NewOrganizationRepository(sdb), mock
}

func userRow(orgID string, isActive bool) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow("user-1", "jsmith", "jsmith@example.com", "Jane Smith", orgID, isActive, time.Now(), time.Now())
}

func orgRow(status string) *sqlmock.Rows {
	settings, _ := json.Marshal(models.DefaultOrganizationSettings())
	return sqlmock.NewRows(orgCols).
		AddRow("org-1", "Acme Corp", "acme-corp", status, settings, time.Now(), time.Now())
}

// newAuthRouter builds a router whose handler reports whether the tenant
// context was set. nil repos are safe for paths that abort before any DB call.
func newAuthRouter(userRepo *repositories.UserRepository, orgRepo *repositories.OrganizationRepository) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(userRepo, orgRepo))
	r.GET("/", func(c *gin.Context) {
		tc, ok := tenant.FromGin(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orgId": tc.OrganizationID, "userName": tc.UserName})
	})
	return r
}

func generateTestJWT(t *testing.T, userID, orgID string) string {
	t.Helper()
	token, err := auth.GenerateJWT(userID, orgID, "jsmith", "jsmith@example.com", true, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Token handling
// ---------------------------------------------------------------------------

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	w := doRequest(newAuthRouter(nil, nil), "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_NotBearer(t *testing.T) {
	w := doRequest(newAuthRouter(nil, nil), "Basic dXNlcjpwYXNz")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_EmptyToken(t *testing.T) {
	w := doRequest(newAuthRouter(nil, nil), "Bearer   ")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_GarbageToken(t *testing.T) {
	w := doRequest(newAuthRouter(nil, nil), "Bearer not.a.jwt")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

func TestAuthMiddleware_Success(t *testing.T) {
	userRepo, userMock := newUserRepo(t)
	orgRepo, orgMock := newOrgRepo(t)
	userMock.ExpectQuery("SELECT.*FROM users").WillReturnRows(userRow("org-1", true))
	orgMock.ExpectQuery("SELECT.*FROM organizations").WillReturnRows(orgRow("active"))

	token := generateTestJWT(t, "user-1", "org-1")
	w := doRequest(newAuthRouter(userRepo, orgRepo), "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", w.Code, w.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["orgId"] != "org-1" {
		t.Errorf("orgId = %s, want org-1", body["orgId"])
	}
	if body["userName"] != "Jane Smith" {
		t.Errorf("userName = %s, want Jane Smith", body["userName"])
	}
}

func TestAuthMiddleware_UserGone(t *testing.T) {
	userRepo, userMock := newUserRepo(t)
	userMock.ExpectQuery("SELECT.*FROM users").WillReturnRows(sqlmock.NewRows(userCols))

	token := generateTestJWT(t, "user-1", "org-1")
	w := doRequest(newAuthRouter(userRepo, nil), "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_InactiveUser(t *testing.T) {
	userRepo, userMock := newUserRepo(t)
	userMock.ExpectQuery("SELECT.*FROM users").WillReturnRows(userRow("org-1", false))

	token := generateTestJWT(t, "user-1", "org-1")
	w := doRequest(newAuthRouter(userRepo, nil), "Bearer "+token)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAuthMiddleware_TenantMismatch(t *testing.T) {
	userRepo, userMock := newUserRepo(t)
	userMock.ExpectQuery("SELECT.*FROM users").WillReturnRows(userRow("org-2", true))

	// Token claims org-1; the stored user belongs to org-2.
	token := generateTestJWT(t, "user-1", "org-1")
	w := doRequest(newAuthRouter(userRepo, nil), "Bearer "+token)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAuthMiddleware_SuspendedOrganization(t *testing.T) {
	userRepo, userMock := newUserRepo(t)
	orgRepo, orgMock := newOrgRepo(t)
	userMock.ExpectQuery("SELECT.*FROM users").WillReturnRows(userRow("org-1", true))
	orgMock.ExpectQuery("SELECT.*FROM organizations").WillReturnRows(orgRow("suspended"))

	token := generateTestJWT(t, "user-1", "org-1")
	w := doRequest(newAuthRouter(userRepo, orgRepo), "Bearer "+token)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAuthMiddleware_EnvelopeShape(t *testing.T) {
	w := doRequest(newAuthRouter(nil, nil), "")

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Success {
		t.Error("success = true, want false")
	}
	if body.Error.Code != "unauthenticated" {
		t.Errorf("error.code = %s, want unauthenticated", body.Error.Code)
	}
}
