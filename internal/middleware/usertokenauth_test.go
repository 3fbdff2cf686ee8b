package middleware

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/crypto"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
)

// userTokenRouter mounts a stub slug dispatch (fixed organization context)
// followed by UserTokenAuthMiddleware and an echo handler.
func userTokenRouter(db *sql.DB, cipher *crypto.TokenCipher, orgID string) *gin.Engine {
	tokenRepo := repositories.NewUserTokenRepository(db)
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)

	r := gin.New()
	r.GET("/account",
		func(c *gin.Context) {
			if orgID != "" {
				c.Set("organization_id", orgID)
			}
			c.Next()
		},
		UserTokenAuthMiddleware(tokenRepo, userRepo, orgRepo, cipher),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"user_id":     c.GetString("user_id"),
				"username":    c.GetString("username"),
				"auth_method": c.GetString("auth_method"),
			})
		})
	return r
}

func getAccount(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/account", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

// newUserKey generates a user key the way issuance does.
func newUserKey(t *testing.T) (key, prefix string) {
	t.Helper()
	key, prefix, err := auth.GenerateUserKey()
	if err != nil {
		t.Fatalf("GenerateUserKey: %v", err)
	}
	return key, prefix
}

// expectTokenByPrefix queues a single token candidate for the prefix lookup.
func expectTokenByPrefix(t *testing.T, mock sqlmock.Sqlmock, cipher *crypto.TokenCipher, key, prefix, orgID string, expiresAt *time.Time) {
	t.Helper()
	ciphertext, err := cipher.Seal(key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	mock.ExpectQuery("SELECT.*FROM user_auth_tokens.*WHERE key_prefix").
		WithArgs(prefix).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "organization_id", "key_prefix", "key_cipher", "created_at", "last_used_at", "expires_at"}).
			AddRow("token-1", "user-1", orgID, prefix, ciphertext, time.Now(), nil, expiresAt))
}

// expectUserByID queues the user row the middleware reloads after a key match.
func expectUserByID(mock sqlmock.Sqlmock, active, staff bool) {
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "phone_number", "password_hash", "first_name", "last_name",
			"is_active", "is_staff", "email_verified", "phone_verified", "last_login", "created_at", "updated_at",
		}).AddRow("user-1", "alice", nil, nil, "x", "Alice", "", active, staff, true, false, nil, time.Now(), time.Now()))
}

// expectMembership queues the membership existence check.
func expectMembership(mock sqlmock.Sqlmock, orgID string, member bool) {
	mock.ExpectQuery("SELECT EXISTS.*FROM organization_users").
		WithArgs(orgID, "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(member))
}

// ---------------------------------------------------------------------------
// Success path
// ---------------------------------------------------------------------------

func TestUserTokenAuth_Success(t *testing.T) {
	db, mock := newMockDB(t)
	cipher := testCipher(t)
	key, prefix := newUserKey(t)

	expectTokenByPrefix(t, mock, cipher, key, prefix, testOrgID, nil)
	expectUserByID(mock, true, false)
	expectMembership(mock, testOrgID, true)

	r := userTokenRouter(db, cipher, testOrgID)
	w := getAccount(r, "Bearer "+key)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["user_id"] != "user-1" {
		t.Errorf("user_id = %q, want user-1", resp["user_id"])
	}
	if resp["username"] != "alice" {
		t.Errorf("username = %q, want alice", resp["username"])
	}
	if resp["auth_method"] != "user_token" {
		t.Errorf("auth_method = %q, want user_token", resp["auth_method"])
	}
}

// ---------------------------------------------------------------------------
// Rejection paths
// ---------------------------------------------------------------------------

func TestUserTokenAuth_MissingOrgContext(t *testing.T) {
	db, _ := newMockDB(t)
	key, _ := newUserKey(t)

	r := userTokenRouter(db, testCipher(t), "")
	w := getAccount(r, "Bearer "+key)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without organization context", w.Code)
	}
}

func TestUserTokenAuth_MissingHeader(t *testing.T) {
	db, _ := newMockDB(t)

	r := userTokenRouter(db, testCipher(t), testOrgID)
	w := getAccount(r, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without Authorization header", w.Code)
	}
}

func TestUserTokenAuth_ShortKey(t *testing.T) {
	db, _ := newMockDB(t)

	r := userTokenRouter(db, testCipher(t), testOrgID)
	w := getAccount(r, "Bearer short")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for key shorter than the prefix", w.Code)
	}
}

func TestUserTokenAuth_NoCandidates(t *testing.T) {
	db, mock := newMockDB(t)
	key, prefix := newUserKey(t)

	mock.ExpectQuery("SELECT.*FROM user_auth_tokens.*WHERE key_prefix").
		WithArgs(prefix).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "organization_id", "key_prefix", "key_cipher", "created_at", "last_used_at", "expires_at"}))

	r := userTokenRouter(db, testCipher(t), testOrgID)
	w := getAccount(r, "Bearer "+key)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 when no token matches", w.Code)
	}
}

func TestUserTokenAuth_TokenForDifferentOrganization(t *testing.T) {
	db, mock := newMockDB(t)
	cipher := testCipher(t)
	key, prefix := newUserKey(t)

	expectTokenByPrefix(t, mock, cipher, key, prefix, "some-other-org", nil)

	r := userTokenRouter(db, cipher, testOrgID)
	w := getAccount(r, "Bearer "+key)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for token scoped to another organization", w.Code)
	}
}

func TestUserTokenAuth_ExpiredToken(t *testing.T) {
	db, mock := newMockDB(t)
	cipher := testCipher(t)
	key, prefix := newUserKey(t)

	expired := time.Now().Add(-time.Hour)
	expectTokenByPrefix(t, mock, cipher, key, prefix, testOrgID, &expired)

	r := userTokenRouter(db, cipher, testOrgID)
	w := getAccount(r, "Bearer "+key)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for expired token", w.Code)
	}
}

func TestUserTokenAuth_InactiveUser(t *testing.T) {
	db, mock := newMockDB(t)
	cipher := testCipher(t)
	key, prefix := newUserKey(t)

	expectTokenByPrefix(t, mock, cipher, key, prefix, testOrgID, nil)
	expectUserByID(mock, false, false)

	r := userTokenRouter(db, cipher, testOrgID)
	w := getAccount(r, "Bearer "+key)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for deactivated user", w.Code)
	}
}

func TestUserTokenAuth_MembershipRevoked(t *testing.T) {
	db, mock := newMockDB(t)
	cipher := testCipher(t)
	key, prefix := newUserKey(t)

	expectTokenByPrefix(t, mock, cipher, key, prefix, testOrgID, nil)
	expectUserByID(mock, true, false)
	expectMembership(mock, testOrgID, false)

	r := userTokenRouter(db, cipher, testOrgID)
	w := getAccount(r, "Bearer "+key)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 after membership revocation", w.Code)
	}
}

func TestUserTokenAuth_StoreErrorFailsClosed(t *testing.T) {
	db, mock := newMockDB(t)
	key, prefix := newUserKey(t)

	mock.ExpectQuery("SELECT.*FROM user_auth_tokens.*WHERE key_prefix").
		WithArgs(prefix).
		WillReturnError(sql.ErrConnDone)

	r := userTokenRouter(db, testCipher(t), testOrgID)
	w := getAccount(r, "Bearer "+key)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 when the token store errors", w.Code)
	}
}
