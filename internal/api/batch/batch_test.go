package batch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/radius-gateway/radius-gateway/internal/config"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/pdf"
	"github.com/radius-gateway/radius-gateway/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testOrgID   = "org-1111-2222-3333-444444444444"
	testBatchID = "batch-1"
)

// ---------------------------------------------------------------------------
// Fakes: in-memory storage and a fixed-output renderer
// ---------------------------------------------------------------------------

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Upload(_ context.Context, path string, reader io.Reader, _ int64) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	m.objects[path] = data
	sum := sha256.Sum256(data)
	return &storage.UploadResult{
		Path:     path,
		Size:     int64(len(data)),
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

func (m *memStore) Download(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Delete(_ context.Context, path string) error {
	delete(m.objects, path)
	return nil
}

func (m *memStore) Exists(_ context.Context, path string) (bool, error) {
	_, ok := m.objects[path]
	return ok, nil
}

type stubRenderer struct {
	rendered int
	lastRows int
}

func (r *stubRenderer) Render(_ context.Context, _ *models.RadiusBatch, creds []models.BatchCredential) (io.Reader, error) {
	r.rendered++
	r.lastRows = len(creds)
	return bytes.NewReader([]byte("%PDF-1.4 stub")), nil
}

// ---------------------------------------------------------------------------
// Router helpers
// ---------------------------------------------------------------------------

var orgCols = []string{"id", "name", "slug", "is_active", "created_at", "updated_at"}

var userCols = []string{
	"id", "username", "email", "phone_number", "password_hash", "first_name", "last_name",
	"is_active", "is_staff", "email_verified", "phone_verified", "last_login", "created_at", "updated_at",
}

var batchCols = []string{
	"id", "organization_id", "name", "strategy", "prefix", "csv_path", "pdf_path",
	"expiration_date", "created_at", "updated_at",
}

func orgRow() *sqlmock.Rows {
	return sqlmock.NewRows(orgCols).
		AddRow(testOrgID, "Acme Corp", "acme", true, time.Now(), time.Now())
}

func testOrg() *models.Organization {
	return &models.Organization{
		ID:       testOrgID,
		Name:     "Acme Corp",
		Slug:     "acme",
		IsActive: true,
	}
}

func defaultConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Batch.MaxUsers = 100
	cfg.Batch.PasswordLength = 12
	return cfg
}

// orgAuthContext stands in for the organization token middleware.
func orgAuthContext(orgID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("organization_id", orgID)
		c.Set("auth_method", "org_token")
		c.Next()
	}
}

// slugContext stands in for the slug dispatch middleware.
func slugContext(org *models.Organization) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("organization", org)
		c.Set("organization_id", org.ID)
		c.Next()
	}
}

func newBatchRouter(t *testing.T, store storage.Storage, renderer pdf.Renderer) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, _ := sqlmock.New()
	t.Cleanup(func() { db.Close() })

	h := NewHandlers(defaultConfig(), db, store, renderer)

	r := gin.New()
	r.POST("/radius/batch/", orgAuthContext(testOrgID), h.CreateHandler())
	r.GET("/radius/organization/:slug/batch/:batch_id/pdf/", slugContext(testOrg()), h.DownloadPDFHandler())
	return mock, r
}

func doPOST(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(b))
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

func getJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return m
}

// expectPreflight mocks the org lookup and the batch name uniqueness check.
func expectPreflight(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT.*FROM organizations WHERE id").
		WithArgs(testOrgID).WillReturnRows(orgRow())
	mock.ExpectQuery("SELECT.*FROM radius_batches").
		WillReturnError(sql.ErrNoRows)
}

// expectBatchTx mocks the creation transaction for n users.
func expectBatchTx(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectQuery("SELECT.*FROM users.*WHERE username").
			WillReturnError(sql.ErrNoRows)
	}
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO radius_batches").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(testBatchID, time.Now(), time.Now()))
	for i := 0; i < n; i++ {
		mock.ExpectExec("INSERT INTO users").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO organization_users").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO radius_batch_users").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
}

// ---------------------------------------------------------------------------
// CreateHandler — prefix strategy
// ---------------------------------------------------------------------------

func TestCreate_PrefixStrategy(t *testing.T) {
	store := newMemStore()
	renderer := &stubRenderer{}
	mock, r := newBatchRouter(t, store, renderer)

	expectPreflight(mock)
	expectBatchTx(mock, 3)
	mock.ExpectExec("UPDATE radius_batches SET pdf_path").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doPOST(r, "/radius/batch/", gin.H{
		"name":            "summer-guests",
		"strategy":        "prefix",
		"prefix":          "guest",
		"number_of_users": 3,
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	resp := getJSON(t, w)
	users, ok := resp["users"].([]interface{})
	if !ok || len(users) != 3 {
		t.Fatalf("users = %v, want 3 entries", resp["users"])
	}
	for _, u := range users {
		cred := u.(map[string]interface{})
		username, _ := cred["username"].(string)
		password, _ := cred["password"].(string)
		if len(username) <= len("guest-") {
			t.Errorf("username %q not generated under prefix", username)
		}
		if len(password) != 12 {
			t.Errorf("password length = %d, want 12", len(password))
		}
	}

	if renderer.rendered != 1 || renderer.lastRows != 3 {
		t.Errorf("renderer calls = %d rows = %d, want 1 call with 3 rows", renderer.rendered, renderer.lastRows)
	}
	pdfPath := fmt.Sprintf("batches/%s/%s/credentials.pdf", testOrgID, testBatchID)
	if _, ok := store.objects[pdfPath]; !ok {
		t.Errorf("credential sheet not stored at %s", pdfPath)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreate_PrefixTooManyUsers(t *testing.T) {
	mock, r := newBatchRouter(t, nil, nil)
	expectPreflight(mock)

	w := doPOST(r, "/radius/batch/", gin.H{
		"name":            "huge",
		"strategy":        "prefix",
		"prefix":          "guest",
		"number_of_users": 101,
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreate_PrefixZeroUsers(t *testing.T) {
	mock, r := newBatchRouter(t, nil, nil)
	expectPreflight(mock)

	w := doPOST(r, "/radius/batch/", gin.H{
		"name":     "empty",
		"strategy": "prefix",
		"prefix":   "guest",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// CreateHandler — csv strategy
// ---------------------------------------------------------------------------

func TestCreate_CSVStrategy(t *testing.T) {
	store := newMemStore()
	renderer := &stubRenderer{}
	mock, r := newBatchRouter(t, store, renderer)

	csvData := "bob,Secretpass1,bob@example.com\ncarol,,\n"

	expectPreflight(mock)
	expectBatchTx(mock, 2)
	mock.ExpectExec("UPDATE radius_batches SET csv_path").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE radius_batches SET pdf_path").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doPOST(r, "/radius/batch/", gin.H{
		"name":            "imported",
		"strategy":        "csv",
		"csv_data":        csvData,
		"expiration_date": "2027-01-31",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	resp := getJSON(t, w)
	users := resp["users"].([]interface{})
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}

	bob := users[0].(map[string]interface{})
	if bob["username"] != "bob" || bob["password"] != "Secretpass1" {
		t.Errorf("bob = %v, want posted credentials preserved", bob)
	}
	carol := users[1].(map[string]interface{})
	if pw, _ := carol["password"].(string); len(pw) != 12 {
		t.Errorf("carol's generated password length = %d, want 12", len(pw))
	}

	batchInfo := resp["batch"].(map[string]interface{})
	if batchInfo["expiration_date"] != "2027-01-31" {
		t.Errorf("expiration_date = %v, want 2027-01-31", batchInfo["expiration_date"])
	}

	csvPath := fmt.Sprintf("batches/%s/%s/users.csv", testOrgID, testBatchID)
	if got := string(store.objects[csvPath]); got != csvData {
		t.Errorf("stored sheet = %q, want original csv", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreate_CSVMalformedRowCreatesNothing(t *testing.T) {
	mock, r := newBatchRouter(t, nil, nil)
	expectPreflight(mock)

	// Second row has an invalid email; no user may be created.
	w := doPOST(r, "/radius/batch/", gin.H{
		"name":     "broken",
		"strategy": "csv",
		"csv_data": "bob,Secretpass1,bob@example.com\ncarol,Secretpass1,not-an-email\n",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected writes for malformed csv: %v", err)
	}
}

func TestCreate_CSVDuplicateUsernameInSheet(t *testing.T) {
	mock, r := newBatchRouter(t, nil, nil)
	expectPreflight(mock)

	w := doPOST(r, "/radius/batch/", gin.H{
		"name":     "dupes",
		"strategy": "csv",
		"csv_data": "bob,Secretpass1,\nbob,Otherpass22,\n",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// CreateHandler — shared validation
// ---------------------------------------------------------------------------

func TestCreate_UnknownStrategy(t *testing.T) {
	mock, r := newBatchRouter(t, nil, nil)
	expectPreflight(mock)

	w := doPOST(r, "/radius/batch/", gin.H{
		"name":     "odd",
		"strategy": "random",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreate_DuplicateBatchName(t *testing.T) {
	mock, r := newBatchRouter(t, nil, nil)

	mock.ExpectQuery("SELECT.*FROM organizations WHERE id").
		WithArgs(testOrgID).WillReturnRows(orgRow())
	mock.ExpectQuery("SELECT.*FROM radius_batches").
		WillReturnRows(sqlmock.NewRows(batchCols).
			AddRow(testBatchID, testOrgID, "taken", "prefix", "guest", nil, nil, nil, time.Now(), time.Now()))

	w := doPOST(r, "/radius/batch/", gin.H{
		"name":            "taken",
		"strategy":        "prefix",
		"prefix":          "guest",
		"number_of_users": 1,
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreate_UsernameAlreadyTaken(t *testing.T) {
	mock, r := newBatchRouter(t, nil, nil)

	expectPreflight(mock)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE username").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("user-1", "bob", nil, nil, "hash", "", "", true, false, false, false, nil, time.Now(), time.Now()))

	w := doPOST(r, "/radius/batch/", gin.H{
		"name":     "conflict",
		"strategy": "csv",
		"csv_data": "bob,Secretpass1,\n",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no transaction may start for a taken username: %v", err)
	}
}

func TestCreate_InvalidExpirationDate(t *testing.T) {
	_, r := newBatchRouter(t, nil, nil)

	w := doPOST(r, "/radius/batch/", gin.H{
		"name":            "dated",
		"strategy":        "prefix",
		"prefix":          "guest",
		"number_of_users": 1,
		"expiration_date": "31/01/2027",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// DownloadPDFHandler
// ---------------------------------------------------------------------------

func batchRowWithPDF(pdfPath *string) *sqlmock.Rows {
	return sqlmock.NewRows(batchCols).
		AddRow(testBatchID, testOrgID, "summer-guests", "prefix", "guest", nil, pdfPath, nil, time.Now(), time.Now())
}

func TestDownloadPDF(t *testing.T) {
	store := newMemStore()
	pdfPath := fmt.Sprintf("batches/%s/%s/credentials.pdf", testOrgID, testBatchID)
	store.objects[pdfPath] = []byte("%PDF-1.4 stored sheet")

	mock, r := newBatchRouter(t, store, nil)
	mock.ExpectQuery("SELECT.*FROM radius_batches").
		WithArgs(testBatchID, testOrgID).
		WillReturnRows(batchRowWithPDF(&pdfPath))

	w := doGET(r, "/radius/organization/acme/batch/"+testBatchID+"/pdf/")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	if w.Body.String() != "%PDF-1.4 stored sheet" {
		t.Errorf("body = %q, want stored sheet", w.Body.String())
	}
}

func TestDownloadPDF_UnknownBatch(t *testing.T) {
	mock, r := newBatchRouter(t, newMemStore(), nil)
	mock.ExpectQuery("SELECT.*FROM radius_batches").
		WillReturnError(sql.ErrNoRows)

	w := doGET(r, "/radius/organization/acme/batch/nope/pdf/")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDownloadPDF_NoStoredSheet(t *testing.T) {
	mock, r := newBatchRouter(t, newMemStore(), nil)
	mock.ExpectQuery("SELECT.*FROM radius_batches").
		WillReturnRows(batchRowWithPDF(nil))

	w := doGET(r, "/radius/organization/acme/batch/"+testBatchID+"/pdf/")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
