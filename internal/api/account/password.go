// password.go implements the reset, reset-confirm, and change password flows for the account package.
package account

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/validation"
)

const resetTokenTTL = 24 * time.Hour

type resetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// @Summary      Request a password reset
// @Description  Mails a reset token when the email belongs to an active member of the slug's organization. The response is identical either way, so the endpoint cannot be used to probe which emails have accounts.
// @Tags         Account
// @Accept       json
// @Produce      json
// @Param        slug  path  string  true  "Organization slug"
// @Success      200  {object}  map[string]interface{}  "detail"
// @Failure      400  {object}  map[string]interface{}  "Missing or malformed email"
// @Router       /api/v1/radius/organization/{slug}/account/password/reset/ [post]
// ResetPasswordHandler issues a single-use reset token. Only the SHA-256 of
// the token is stored; the plaintext goes into the mail and nowhere else.
// Implements: POST /api/v1/radius/organization/{slug}/account/password/reset/
func (h *Handlers) ResetPasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
			return
		}

		ctx := c.Request.Context()
		org := c.MustGet("organization").(*models.Organization)

		// Every failure past this point still answers the generic 200.
		detail := gin.H{"detail": "Password reset e-mail has been sent."}

		user, err := h.userRepo.GetByEmail(ctx, req.Email)
		if err != nil {
			slog.Error("password reset: user lookup failed", "error", err)
			c.JSON(http.StatusOK, detail)
			return
		}
		if user == nil || !user.IsActive {
			c.JSON(http.StatusOK, detail)
			return
		}

		member, err := h.orgRepo.CheckMembership(ctx, org.ID, user.ID)
		if err != nil || !member {
			if err != nil {
				slog.Error("password reset: membership check failed", "error", err)
			}
			c.JSON(http.StatusOK, detail)
			return
		}

		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			slog.Error("password reset: failed to generate token", "error", err)
			c.JSON(http.StatusOK, detail)
			return
		}
		plaintext := hex.EncodeToString(raw)
		hash := sha256.Sum256([]byte(plaintext))

		token := &models.PasswordResetToken{
			UserID:         user.ID,
			OrganizationID: org.ID,
			TokenHash:      hex.EncodeToString(hash[:]),
			ExpiresAt:      time.Now().Add(resetTokenTTL),
		}
		if err := h.resetRepo.Create(ctx, token); err != nil {
			slog.Error("password reset: failed to store token", "error", err)
			c.JSON(http.StatusOK, detail)
			return
		}

		subject := "Password reset"
		body := "A password reset was requested for your " + org.Name +
			" account. Your reset token is: " + plaintext +
			"\n\nThe token expires in 24 hours. If you did not request this, ignore this message."
		if err := h.mailSender.Send(ctx, req.Email, subject, body); err != nil {
			slog.Error("password reset: failed to send mail", "error", err)
		}

		c.JSON(http.StatusOK, detail)
	}
}

type confirmResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// @Summary      Confirm a password reset
// @Description  Consumes a reset token and sets the new password.
// @Tags         Account
// @Accept       json
// @Produce      json
// @Param        slug  path  string  true  "Organization slug"
// @Success      200  {object}  map[string]interface{}  "detail"
// @Failure      400  {object}  map[string]interface{}  "Invalid, expired, or already used token; weak password"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/organization/{slug}/account/password/reset/confirm/ [post]
// ConfirmResetHandler redeems a reset token. The token is marked used before
// the password is written; if the update then fails the token is burned, not
// left replayable.
// Implements: POST /api/v1/radius/organization/{slug}/account/password/reset/confirm/
func (h *Handlers) ConfirmResetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req confirmResetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token and new_password are required"})
			return
		}

		if err := validation.ValidatePassword(req.NewPassword); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		org := c.MustGet("organization").(*models.Organization)

		hash := sha256.Sum256([]byte(req.Token))
		token, err := h.resetRepo.GetByHash(ctx, hex.EncodeToString(hash[:]))
		if err != nil {
			slog.Error("password reset confirm: token lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
			return
		}
		if token == nil || token.OrganizationID != org.ID || !token.IsUsable(time.Now()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired reset token"})
			return
		}

		passwordHash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			slog.Error("password reset confirm: hashing failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
			return
		}

		if err := h.resetRepo.MarkUsed(ctx, token.ID); err != nil {
			slog.Error("password reset confirm: failed to mark token used", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
			return
		}
		if err := h.userRepo.UpdatePassword(ctx, token.UserID, passwordHash); err != nil {
			slog.Error("password reset confirm: failed to update password",
				"user_id", token.UserID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
			return
		}

		slog.Info("password reset completed", "user_id", token.UserID, "organization", org.Slug)
		c.JSON(http.StatusOK, gin.H{"detail": "Password reset successfully."})
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// @Summary      Change own password
// @Description  Verifies the current password, then replaces it.
// @Tags         Account
// @Security     UserToken
// @Accept       json
// @Produce      json
// @Param        slug  path  string  true  "Organization slug"
// @Success      200  {object}  map[string]interface{}  "detail"
// @Failure      400  {object}  map[string]interface{}  "Wrong current password or weak new password"
// @Failure      401  {object}  map[string]interface{}  "Authentication failed"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/organization/{slug}/account/password/change/ [post]
// ChangePasswordHandler replaces the authenticated user's password.
// Implements: POST /api/v1/radius/organization/{slug}/account/password/change/
func (h *Handlers) ChangePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "current_password and new_password are required"})
			return
		}

		user := c.MustGet("user").(*models.User)

		if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "current password is incorrect"})
			return
		}
		if err := validation.ValidatePassword(req.NewPassword); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		passwordHash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			slog.Error("password change: hashing failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
			return
		}
		if err := h.userRepo.UpdatePassword(c.Request.Context(), user.ID, passwordHash); err != nil {
			slog.Error("password change: failed to update", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"detail": "Password changed successfully."})
	}
}
