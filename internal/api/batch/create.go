// create.go implements batch user creation for the prefix and csv strategies.
package batch

import (
	"bytes"
	"crypto/rand"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/telemetry"
	"github.com/radius-gateway/radius-gateway/internal/validation"
	"github.com/radius-gateway/radius-gateway/pkg/checksum"
)

const passwordCharset = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type createRequest struct {
	Name           string `json:"name" binding:"required"`
	Strategy       string `json:"strategy" binding:"required"`
	Prefix         string `json:"prefix"`
	NumberOfUsers  int    `json:"number_of_users"`
	CSVData        string `json:"csv_data"`
	ExpirationDate string `json:"expiration_date"`
}

// @Summary      Create a batch of users
// @Description  Creates a named cohort of accounts in the calling organization. Strategy "prefix" generates number_of_users accounts under the prefix; strategy "csv" creates one account per username,password,email row. Generated passwords appear only in this response and the stored credential sheet.
// @Tags         Batch
// @Security     OrgToken
// @Accept       json
// @Produce      json
// @Success      201  {object}  map[string]interface{}  "batch and created credentials"
// @Failure      400  {object}  map[string]interface{}  "Validation failure, duplicate name, or duplicate username"
// @Failure      401  {object}  map[string]interface{}  "Missing or invalid organization token"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/batch/ [post]
// CreateHandler provisions a batch of users for the authenticated
// organization. All rows are validated before anything is written, and the
// batch row, users, and membership rows commit in one transaction: a failed
// request creates nothing. The CSV sheet and the rendered PDF are stored as
// artifacts after commit; artifact failures are logged, not surfaced, since
// the accounts already exist.
// Implements: POST /api/v1/radius/batch/
func (h *Handlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and strategy are required"})
			return
		}

		if err := validation.ValidateBatchName(req.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var expiration *time.Time
		if req.ExpirationDate != "" {
			t, err := time.Parse("2006-01-02", req.ExpirationDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "expiration_date must be YYYY-MM-DD"})
				return
			}
			expiration = &t
		}

		ctx := c.Request.Context()
		orgID := c.GetString("organization_id")

		// The organization row is a required parameter of batch creation, not
		// just an ID to stamp on rows.
		org, err := h.orgRepo.GetByID(ctx, orgID)
		if err != nil {
			slog.Error("batch create: organization lookup failed", "organization_id", orgID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
			return
		}
		if org == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "organization not found"})
			return
		}

		existing, err := h.batchRepo.GetByName(ctx, org.ID, req.Name)
		if err != nil {
			slog.Error("batch create: name lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "batch name already exists"})
			return
		}

		var credentials []models.BatchCredential
		switch req.Strategy {
		case models.BatchStrategyPrefix:
			credentials, err = h.prefixCredentials(&req)
		case models.BatchStrategyCSV:
			credentials, err = h.csvCredentials(&req)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "strategy must be prefix or csv"})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Duplicate usernames abort the whole batch before anything is
		// written.
		for _, cred := range credentials {
			taken, err := h.userRepo.GetByUsername(ctx, cred.Username)
			if err != nil {
				slog.Error("batch create: username lookup failed", "username", cred.Username, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
				return
			}
			if taken != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("username %q already taken", cred.Username)})
				return
			}
		}

		batch := &models.RadiusBatch{
			OrganizationID: org.ID,
			Name:           req.Name,
			Strategy:       req.Strategy,
			Prefix:         req.Prefix,
			ExpirationDate: expiration,
		}

		tx, err := h.db.BeginTx(ctx, nil)
		if err != nil {
			slog.Error("batch create: failed to begin transaction", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
			return
		}

		if err := h.batchRepo.CreateTx(ctx, tx, batch); err != nil {
			tx.Rollback()
			slog.Error("batch create: failed to create batch row", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
			return
		}

		for _, cred := range credentials {
			passwordHash, err := auth.HashPassword(cred.Password)
			if err != nil {
				tx.Rollback()
				slog.Error("batch create: password hashing failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
				return
			}

			user := &models.User{
				Username:     cred.Username,
				PasswordHash: passwordHash,
				IsActive:     true,
			}
			if cred.Email != "" {
				email := cred.Email
				user.Email = &email
			}

			if err := h.userRepo.CreateTx(ctx, tx, user); err != nil {
				tx.Rollback()
				slog.Error("batch create: failed to create user", "username", cred.Username, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
				return
			}
			if err := h.orgRepo.AddMemberTx(ctx, tx, org.ID, user.ID); err != nil {
				tx.Rollback()
				slog.Error("batch create: failed to add membership", "username", cred.Username, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
				return
			}
			if err := h.batchRepo.AddUserTx(ctx, tx, batch.ID, user.ID); err != nil {
				tx.Rollback()
				slog.Error("batch create: failed to link batch user", "username", cred.Username, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
				return
			}
		}

		if err := tx.Commit(); err != nil {
			slog.Error("batch create: failed to commit", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
			return
		}

		telemetry.BatchUsersCreatedTotal.WithLabelValues(req.Strategy).Add(float64(len(credentials)))
		slog.Info("batch created",
			"batch", batch.Name, "organization", org.Slug,
			"strategy", req.Strategy, "users", len(credentials))

		h.storeArtifacts(c, batch, &req, credentials)

		c.JSON(http.StatusCreated, gin.H{
			"batch": batchResponse(batch),
			"users": credentials,
		})
	}
}

// prefixCredentials generates number_of_users username/password pairs under
// the prefix.
func (h *Handlers) prefixCredentials(req *createRequest) ([]models.BatchCredential, error) {
	if err := validation.ValidatePrefix(req.Prefix); err != nil {
		return nil, err
	}
	if req.NumberOfUsers < 1 {
		return nil, fmt.Errorf("number_of_users must be at least 1")
	}
	if req.NumberOfUsers > h.cfg.Batch.MaxUsers {
		return nil, fmt.Errorf("number_of_users exceeds the maximum of %d", h.cfg.Batch.MaxUsers)
	}

	credentials := make([]models.BatchCredential, 0, req.NumberOfUsers)
	seen := make(map[string]bool, req.NumberOfUsers)
	for len(credentials) < req.NumberOfUsers {
		suffix, err := randomString(8)
		if err != nil {
			return nil, fmt.Errorf("failed to generate username: %w", err)
		}
		username := req.Prefix + "-" + suffix
		if seen[username] {
			continue
		}
		seen[username] = true

		password, err := randomString(h.cfg.Batch.PasswordLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate password: %w", err)
		}
		credentials = append(credentials, models.BatchCredential{
			Username: username,
			Password: password,
		})
	}

	return credentials, nil
}

// csvCredentials parses and validates the posted username,password,email
// sheet. Every row is validated before any account is created; a missing
// password is generated server-side.
func (h *Handlers) csvCredentials(req *createRequest) ([]models.BatchCredential, error) {
	if strings.TrimSpace(req.CSVData) == "" {
		return nil, fmt.Errorf("csv_data is required for the csv strategy")
	}

	reader := csv.NewReader(strings.NewReader(req.CSVData))
	reader.FieldsPerRecord = -1

	var credentials []models.BatchCredential
	seen := make(map[string]bool)
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("malformed csv on line %d", line)
		}
		if len(record) < 1 || len(record) > 3 {
			return nil, fmt.Errorf("line %d: expected username,password,email", line)
		}

		username := strings.TrimSpace(record[0])
		var password, email string
		if len(record) > 1 {
			password = strings.TrimSpace(record[1])
		}
		if len(record) > 2 {
			email = strings.TrimSpace(record[2])
		}

		if err := validation.ValidateCSVRow(username, password, email); err != nil {
			return nil, fmt.Errorf("line %d: %s", line, err.Error())
		}
		if seen[username] {
			return nil, fmt.Errorf("line %d: duplicate username %q", line, username)
		}
		seen[username] = true

		if password == "" {
			password, err = randomString(h.cfg.Batch.PasswordLength)
			if err != nil {
				return nil, fmt.Errorf("failed to generate password: %w", err)
			}
		}

		credentials = append(credentials, models.BatchCredential{
			Username: username,
			Password: password,
			Email:    email,
		})
	}

	if len(credentials) == 0 {
		return nil, fmt.Errorf("csv_data contains no rows")
	}
	if len(credentials) > h.cfg.Batch.MaxUsers {
		return nil, fmt.Errorf("csv_data exceeds the maximum of %d users", h.cfg.Batch.MaxUsers)
	}

	return credentials, nil
}

// storeArtifacts uploads the posted sheet and the rendered credential PDF.
// The batch is already committed; failures here leave the batch without an
// artifact and are logged.
func (h *Handlers) storeArtifacts(c *gin.Context, batch *models.RadiusBatch, req *createRequest, credentials []models.BatchCredential) {
	if h.store == nil {
		return
	}
	ctx := c.Request.Context()

	if batch.Strategy == models.BatchStrategyCSV {
		want, err := checksum.CalculateSHA256(strings.NewReader(req.CSVData))
		if err != nil {
			slog.Error("batch create: failed to hash csv sheet", "batch", batch.Name, "error", err)
			return
		}

		path := artifactPath(batch, "users.csv")
		result, err := h.store.Upload(ctx, path, strings.NewReader(req.CSVData), int64(len(req.CSVData)))
		if err != nil {
			slog.Error("batch create: failed to store csv sheet", "batch", batch.Name, "error", err)
		} else if result.Checksum != want {
			slog.Error("batch create: csv sheet checksum mismatch",
				"batch", batch.Name, "want", want, "got", result.Checksum)
		} else if err := h.batchRepo.SetCSVPath(ctx, batch.ID, path); err != nil {
			slog.Error("batch create: failed to record csv path", "batch", batch.Name, "error", err)
		} else {
			batch.CSVPath = &path
		}
	}

	if h.renderer == nil {
		return
	}

	sheet, err := h.renderer.Render(ctx, batch, credentials)
	if err != nil {
		slog.Error("batch create: failed to render credential sheet", "batch", batch.Name, "error", err)
		return
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(sheet); err != nil {
		slog.Error("batch create: failed to read credential sheet", "batch", batch.Name, "error", err)
		return
	}

	path := artifactPath(batch, "credentials.pdf")
	if _, err := h.store.Upload(ctx, path, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		slog.Error("batch create: failed to store credential sheet", "batch", batch.Name, "error", err)
		return
	}
	if err := h.batchRepo.SetPDFPath(ctx, batch.ID, path); err != nil {
		slog.Error("batch create: failed to record pdf path", "batch", batch.Name, "error", err)
		return
	}
	batch.PDFPath = &path
}

// artifactPath namespaces artifacts by organization and batch so backends
// shared across deployments cannot collide.
func artifactPath(batch *models.RadiusBatch, filename string) string {
	return fmt.Sprintf("batches/%s/%s/%s", batch.OrganizationID, batch.ID, filename)
}

// batchResponse shapes the public view of a batch.
func batchResponse(b *models.RadiusBatch) gin.H {
	out := gin.H{
		"id":         b.ID,
		"name":       b.Name,
		"strategy":   b.Strategy,
		"created_at": b.CreatedAt,
	}
	if b.Prefix != "" {
		out["prefix"] = b.Prefix
	}
	if b.ExpirationDate != nil {
		out["expiration_date"] = b.ExpirationDate.Format("2006-01-02")
	}
	if b.PDFPath != nil {
		out["has_pdf"] = true
	}
	return out
}

// randomString draws n characters from a charset without lookalike
// characters, using crypto/rand.
func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(passwordCharset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = passwordCharset[idx.Int64()]
	}
	return string(b), nil
}
