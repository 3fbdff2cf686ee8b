// register.go implements user self-registration for the account package.
package account

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/validation"
)

const emailVerifyTTL = 24 * time.Hour

type registerRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

// @Summary      Register an account
// @Description  Creates a user and joins it to the slug's organization in one transaction. The response shape depends on the registration settings: a verification notice, a JWT, or an opaque key.
// @Tags         Account
// @Accept       json
// @Produce      json
// @Param        slug  path  string  true  "Organization slug"
// @Success      201  {object}  map[string]interface{}  "detail, or user+token, or key"
// @Failure      400  {object}  map[string]interface{}  "Validation failure or duplicate username/email"
// @Failure      404  {object}  map[string]interface{}  "Unknown organization slug"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/organization/{slug}/account/ [post]
// RegisterHandler creates a user inside the slug-dispatched organization. The
// user row and the membership row commit atomically; a half-registered user
// who exists but belongs to no organization can never occur.
// Implements: POST /api/v1/radius/organization/{slug}/account/
func (h *Handlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "username, email, and password are required",
			})
			return
		}

		if err := validation.ValidateUsername(req.Username); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validation.ValidatePassword(req.Password); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.PhoneNumber != "" {
			if err := validation.ValidatePhoneNumber(req.PhoneNumber); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		ctx := c.Request.Context()
		org := c.MustGet("organization").(*models.Organization)

		existing, err := h.userRepo.GetByUsername(ctx, req.Username)
		if err != nil {
			slog.Error("register: username lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
			return
		}

		existing, err = h.userRepo.GetByEmail(ctx, req.Email)
		if err != nil {
			slog.Error("register: email lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
			return
		}

		passwordHash, err := auth.HashPassword(req.Password)
		if err != nil {
			slog.Error("register: password hashing failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
			return
		}

		// With mandatory verification the account stays inactive until the
		// mailed token comes back through the email verify endpoint.
		user := &models.User{
			Username:     req.Username,
			Email:        &req.Email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			IsActive:     !h.cfg.Registration.MandatoryEmailVerification,
		}
		if req.PhoneNumber != "" {
			user.PhoneNumber = &req.PhoneNumber
		}

		tx, err := h.db.BeginTx(ctx, nil)
		if err != nil {
			slog.Error("register: failed to begin transaction", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
			return
		}

		if err := h.userRepo.CreateTx(ctx, tx, user); err != nil {
			tx.Rollback()
			slog.Error("register: failed to create user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
			return
		}
		if err := h.orgRepo.AddMemberTx(ctx, tx, org.ID, user.ID); err != nil {
			tx.Rollback()
			slog.Error("register: failed to add membership", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
			return
		}
		if err := tx.Commit(); err != nil {
			slog.Error("register: failed to commit", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
			return
		}

		slog.Info("user registered",
			"username", user.Username, "organization", org.Slug)

		if h.cfg.Registration.MandatoryEmailVerification {
			// The mailed token is an org-scoped JWT; the account is inactive,
			// so the mail is the only place this credential exists.
			verifyToken, err := auth.GenerateOrgScopedJWT(user.ID, user.Username, org.ID, emailVerifyTTL)
			if err != nil {
				slog.Error("register: failed to generate verification token", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
				return
			}
			subject := "Verify your email"
			body := "Welcome to " + org.Name + ". Your email verification token is: " + verifyToken +
				"\n\nThe token expires in 24 hours."
			if err := h.mailSender.Send(ctx, req.Email, subject, body); err != nil {
				slog.Error("register: failed to send verification mail",
					"username", user.Username, "error", err)
			}
			c.JSON(http.StatusCreated, gin.H{"detail": "Verification e-mail sent."})
			return
		}

		if h.cfg.Registration.TokenScheme == "jwt" {
			token, err := auth.GenerateOrgScopedJWT(user.ID, user.Username, org.ID, h.cfg.Auth.JWTExpiry)
			if err != nil {
				slog.Error("register: failed to generate JWT", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
				return
			}
			c.JSON(http.StatusCreated, gin.H{
				"user":  userResponse(user),
				"token": token,
			})
			return
		}

		key, err := h.issueUserToken(ctx, user.ID, org.ID)
		if err != nil {
			slog.Error("register: failed to issue token", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"key": key})
	}
}

type verifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// @Summary      Verify an email address
// @Description  Consumes the token from the verification mail, marks the email verified, and activates the account.
// @Tags         Account
// @Accept       json
// @Produce      json
// @Param        slug  path  string  true  "Organization slug"
// @Success      200  {object}  map[string]interface{}  "detail"
// @Failure      400  {object}  map[string]interface{}  "Invalid or expired token"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/organization/{slug}/account/email/verify/ [post]
// VerifyEmailHandler redeems the mailed verification token. The token must
// have been minted for this organization; verifying an already verified
// account is a no-op, not an error.
// Implements: POST /api/v1/radius/organization/{slug}/account/email/verify/
func (h *Handlers) VerifyEmailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
			return
		}

		ctx := c.Request.Context()
		org := c.MustGet("organization").(*models.Organization)

		claims, err := auth.ValidateJWT(req.Token)
		if err != nil || claims.OrganizationID != org.ID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired verification token"})
			return
		}

		user, err := h.userRepo.GetByID(ctx, claims.UserID)
		if err != nil {
			slog.Error("email verify: user lookup failed", "user_id", claims.UserID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify email"})
			return
		}
		if user == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired verification token"})
			return
		}

		if err := h.userRepo.MarkEmailVerified(ctx, user.ID); err != nil {
			slog.Error("email verify: failed to mark verified", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify email"})
			return
		}

		slog.Info("email verified", "username", user.Username, "organization", org.Slug)
		c.JSON(http.StatusOK, gin.H{"detail": "Email verified successfully."})
	}
}

// userResponse shapes the public view of a user. The password hash never
// leaves the model.
func userResponse(u *models.User) gin.H {
	return gin.H{
		"id":             u.ID,
		"username":       u.Username,
		"email":          u.Email,
		"first_name":     u.FirstName,
		"last_name":      u.LastName,
		"phone_number":   u.PhoneNumber,
		"email_verified": u.EmailVerified,
		"phone_verified": u.PhoneVerified,
	}
}
