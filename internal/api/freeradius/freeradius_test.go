package freeradius

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testOrgID = "org-1111-2222-3333-444444444444"

var errDB = errors.New("db error")

// ---------------------------------------------------------------------------
// Column definitions (positional order must match Scan calls)
// ---------------------------------------------------------------------------

var userCols = []string{
	"id", "username", "email", "phone_number", "password_hash", "first_name", "last_name",
	"is_active", "is_staff", "email_verified", "phone_verified", "last_login", "created_at", "updated_at",
}

var acctCols = []string{
	"id", "organization_id", "session_id", "unique_id", "username", "nas_ip_address", "framed_ip_address",
	"calling_station_id", "called_station_id", "start_time", "update_time", "stop_time",
	"session_time", "input_octets", "output_octets", "terminate_cause",
}

// ---------------------------------------------------------------------------
// Row builders
// ---------------------------------------------------------------------------

// hashPassword hashes at MinCost so authorize tests stay fast.
func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func userRow(passwordHash string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow("user-1", "alice", "alice@example.com", nil, passwordHash, "Alice", "Doe",
			active, false, true, false, nil, time.Now(), time.Now())
}

func membershipRow(member bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(member)
}

func openSessionRow(orgID string) *sqlmock.Rows {
	return sqlmock.NewRows(acctCols).
		AddRow(int64(7), orgID, "sess-1", "uniq-1", "alice", "10.0.0.1", "172.16.0.5",
			"AA-BB-CC-DD-EE-FF", "wifi-gw", time.Now().Add(-time.Hour), nil, nil,
			int64(0), int64(0), int64(0), "")
}

// ---------------------------------------------------------------------------
// Router / request helpers
// ---------------------------------------------------------------------------

// orgContext stands in for the organization-token middleware.
func orgContext(orgID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("organization_id", orgID)
		c.Next()
	}
}

func newFreeradiusRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, _ := sqlmock.New()
	t.Cleanup(func() { db.Close() })

	r := gin.New()
	g := r.Group("/api/v1/freeradius", orgContext(testOrgID))
	g.POST("/authorize/", AuthorizeHandler(db))
	g.POST("/postauth/", PostAuthHandler(db))
	g.POST("/accounting/", AccountingHandler(db))
	g.GET("/accounting/", ListAccountingHandler(db))
	return mock, r
}

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func doPOST(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, jsonBody(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func doGET(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func getJSON(w *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &m)
	return m
}

func authType(w *httptest.ResponseRecorder) string {
	v, _ := getJSON(w)["control:Auth-Type"].(string)
	return v
}

// ---------------------------------------------------------------------------
// AuthorizeHandler tests
// ---------------------------------------------------------------------------

func TestAuthorizeHandler_Accept(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	hash := hashPassword(t, "correct-password")
	mock.ExpectQuery("SELECT.*FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(userRow(hash, true))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(testOrgID, "user-1").
		WillReturnRows(membershipRow(true))

	w := doPOST(r, "/api/v1/freeradius/authorize/", gin.H{
		"username": "alice",
		"password": "correct-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	if got := authType(w); got != "Accept" {
		t.Errorf("control:Auth-Type = %q, want Accept", got)
	}
}

func TestAuthorizeHandler_RejectIndistinguishable(t *testing.T) {
	hash := hashPassword(t, "correct-password")

	tests := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{
			name: "unknown user",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT.*FROM users WHERE username").
					WillReturnRows(sqlmock.NewRows(userCols))
			},
		},
		{
			name: "user lookup error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT.*FROM users WHERE username").
					WillReturnError(errDB)
			},
		},
		{
			name: "inactive user",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT.*FROM users WHERE username").
					WillReturnRows(userRow(hash, false))
			},
		},
		{
			name: "not a member",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT.*FROM users WHERE username").
					WillReturnRows(userRow(hash, true))
				mock.ExpectQuery("SELECT EXISTS").
					WillReturnRows(membershipRow(false))
			},
		},
		{
			name: "membership check error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT.*FROM users WHERE username").
					WillReturnRows(userRow(hash, true))
				mock.ExpectQuery("SELECT EXISTS").
					WillReturnError(errDB)
			},
		},
		{
			name: "wrong password",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT.*FROM users WHERE username").
					WillReturnRows(userRow(hash, true))
				mock.ExpectQuery("SELECT EXISTS").
					WillReturnRows(membershipRow(true))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, r := newFreeradiusRouter(t)
			tt.setup(mock)

			w := doPOST(r, "/api/v1/freeradius/authorize/", gin.H{
				"username": "alice",
				"password": "wrong-password",
			})
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401: body=%s", w.Code, w.Body.String())
			}
			if got := authType(w); got != "Reject" {
				t.Errorf("control:Auth-Type = %q, want Reject", got)
			}
		})
	}
}

func TestAuthorizeHandler_MissingUsername(t *testing.T) {
	_, r := newFreeradiusRouter(t)

	w := doPOST(r, "/api/v1/freeradius/authorize/", gin.H{"password": "whatever"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if got := authType(w); got != "Reject" {
		t.Errorf("control:Auth-Type = %q, want Reject", got)
	}
}

// ---------------------------------------------------------------------------
// PostAuthHandler tests
// ---------------------------------------------------------------------------

func TestPostAuthHandler_Created(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("INSERT INTO radius_postauth").
		WithArgs(testOrgID, "alice", "Access-Accept", "AA-BB-CC-DD-EE-FF", "wifi-gw").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	w := doPOST(r, "/api/v1/freeradius/postauth/", gin.H{
		"username":           "alice",
		"reply":              "Access-Accept",
		"calling_station_id": "AA-BB-CC-DD-EE-FF",
		"called_station_id":  "wifi-gw",
	})
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201: body=%s", w.Code, w.Body.String())
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestPostAuthHandler_MissingReply(t *testing.T) {
	_, r := newFreeradiusRouter(t)

	w := doPOST(r, "/api/v1/freeradius/postauth/", gin.H{"username": "alice"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPostAuthHandler_DBError(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("INSERT INTO radius_postauth").WillReturnError(errDB)

	w := doPOST(r, "/api/v1/freeradius/postauth/", gin.H{
		"username": "alice",
		"reply":    "Access-Reject",
	})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---------------------------------------------------------------------------
// AccountingHandler tests
// ---------------------------------------------------------------------------

func TestAccountingHandler_StartCreates(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE unique_id").
		WithArgs("uniq-1").
		WillReturnRows(sqlmock.NewRows(acctCols))
	mock.ExpectQuery("INSERT INTO radius_accounting").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	w := doPOST(r, "/api/v1/freeradius/accounting/", gin.H{
		"status_type":    "Start",
		"unique_id":      "uniq-1",
		"session_id":     "sess-1",
		"username":       "alice",
		"nas_ip_address": "10.0.0.1",
	})
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201: body=%s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAccountingHandler_DuplicateStartUpdates(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE unique_id").
		WithArgs("uniq-1").
		WillReturnRows(openSessionRow(testOrgID))
	mock.ExpectExec("UPDATE radius_accounting SET framed_ip_address").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doPOST(r, "/api/v1/freeradius/accounting/", gin.H{
		"status_type": "Start",
		"unique_id":   "uniq-1",
	})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
}

func TestAccountingHandler_InterimUpdates(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE unique_id").
		WillReturnRows(openSessionRow(testOrgID))
	mock.ExpectExec("UPDATE radius_accounting SET framed_ip_address").
		WithArgs("uniq-1", "172.16.0.9", int64(120), int64(2048), int64(4096)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doPOST(r, "/api/v1/freeradius/accounting/", gin.H{
		"status_type":       "Interim-Update",
		"unique_id":         "uniq-1",
		"framed_ip_address": "172.16.0.9",
		"session_time":      120,
		"input_octets":      2048,
		"output_octets":     4096,
	})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
}

func TestAccountingHandler_StopCloses(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE unique_id").
		WillReturnRows(openSessionRow(testOrgID))
	mock.ExpectExec("UPDATE radius_accounting SET stop_time").
		WithArgs("uniq-1", int64(600), int64(1024), int64(8192), "User-Request").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doPOST(r, "/api/v1/freeradius/accounting/", gin.H{
		"status_type":     "Stop",
		"unique_id":       "uniq-1",
		"session_time":    600,
		"input_octets":    1024,
		"output_octets":   8192,
		"terminate_cause": "User-Request",
	})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
}

// A Stop whose Start never arrived creates the session, then closes it.
func TestAccountingHandler_StopWithoutStartCreatesClosed(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE unique_id").
		WillReturnRows(sqlmock.NewRows(acctCols))
	mock.ExpectQuery("INSERT INTO radius_accounting").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectExec("UPDATE radius_accounting SET stop_time").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doPOST(r, "/api/v1/freeradius/accounting/", gin.H{
		"status_type":  "Stop",
		"unique_id":    "uniq-2",
		"session_time": 10,
	})
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201: body=%s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAccountingHandler_CrossTenantConflict(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE unique_id").
		WillReturnRows(openSessionRow("other-org"))

	w := doPOST(r, "/api/v1/freeradius/accounting/", gin.H{
		"status_type": "Interim-Update",
		"unique_id":   "uniq-1",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: body=%s", w.Code, w.Body.String())
	}
}

func TestAccountingHandler_UnknownStatusType(t *testing.T) {
	_, r := newFreeradiusRouter(t)

	w := doPOST(r, "/api/v1/freeradius/accounting/", gin.H{
		"status_type": "Accounting-On",
		"unique_id":   "uniq-1",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAccountingHandler_MissingUniqueID(t *testing.T) {
	_, r := newFreeradiusRouter(t)

	w := doPOST(r, "/api/v1/freeradius/accounting/", gin.H{"status_type": "Start"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAccountingHandler_LookupError(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE unique_id").
		WillReturnError(errDB)

	w := doPOST(r, "/api/v1/freeradius/accounting/", gin.H{
		"status_type": "Start",
		"unique_id":   "uniq-1",
	})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---------------------------------------------------------------------------
// ListAccountingHandler tests
// ---------------------------------------------------------------------------

func TestListAccountingHandler_Success(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE organization_id").
		WithArgs(testOrgID, 20, 0).
		WillReturnRows(openSessionRow(testOrgID))
	mock.ExpectQuery("SELECT COUNT.*FROM radius_accounting").
		WithArgs(testOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w := doGET(r, "/api/v1/freeradius/accounting/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}

	body := getJSON(w)
	sessions, ok := body["sessions"].([]interface{})
	if !ok || len(sessions) != 1 {
		t.Fatalf("sessions = %v, want one entry", body["sessions"])
	}
	session := sessions[0].(map[string]interface{})
	if session["unique_id"] != "uniq-1" {
		t.Errorf("unique_id = %v, want uniq-1", session["unique_id"])
	}
	if session["stop_time"] != nil {
		t.Errorf("stop_time = %v, want null for open session", session["stop_time"])
	}
	pagination := body["pagination"].(map[string]interface{})
	if pagination["total"] != float64(1) {
		t.Errorf("total = %v, want 1", pagination["total"])
	}
}

func TestListAccountingHandler_UsernameFilter(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE organization_id").
		WithArgs(testOrgID, "alice", 10, 10).
		WillReturnRows(sqlmock.NewRows(acctCols))
	mock.ExpectQuery("SELECT COUNT.*FROM radius_accounting").
		WithArgs(testOrgID, "alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	w := doGET(r, "/api/v1/freeradius/accounting/?username=alice&page=2&page_size=10")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListAccountingHandler_PageSizeClamped(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	// page_size above the cap falls back to the default of 20.
	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE organization_id").
		WithArgs(testOrgID, 20, 0).
		WillReturnRows(sqlmock.NewRows(acctCols))
	mock.ExpectQuery("SELECT COUNT.*FROM radius_accounting").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	w := doGET(r, "/api/v1/freeradius/accounting/?page_size=9999")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListAccountingHandler_DBError(t *testing.T) {
	mock, r := newFreeradiusRouter(t)

	mock.ExpectQuery("SELECT.*FROM radius_accounting WHERE organization_id").
		WillReturnError(errDB)

	w := doGET(r, "/api/v1/freeradius/accounting/")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
