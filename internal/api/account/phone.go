// phone.go implements SMS phone verification flows for the account package.
package account

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/validation"
)

// @Summary      Request a phone verification code
// @Description  Sends a short-lived numeric code to the caller's phone number.
// @Tags         Account
// @Security     UserToken
// @Produce      json
// @Param        slug  path  string  true  "Organization slug"
// @Success      201  {object}  map[string]interface{}  "detail"
// @Failure      400  {object}  map[string]interface{}  "No phone number on record"
// @Failure      401  {object}  map[string]interface{}  "Authentication failed"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/organization/{slug}/account/phone/token/ [post]
// CreatePhoneTokenHandler issues a verification code for the caller's current
// phone number. Requesting again supersedes the previous code; only the most
// recent one is checked at verify time.
// Implements: POST /api/v1/radius/organization/{slug}/account/phone/token/
func (h *Handlers) CreatePhoneTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user := c.MustGet("user").(*models.User)
		orgID := c.GetString("organization_id")

		if user.PhoneNumber == nil || *user.PhoneNumber == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no phone number on record"})
			return
		}

		code, err := generateCode(h.cfg.Phone.CodeLength)
		if err != nil {
			slog.Error("phone token: failed to generate code", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification code"})
			return
		}

		token := &models.PhoneToken{
			UserID:         user.ID,
			OrganizationID: orgID,
			Code:           code,
			MaxAttempts:    h.cfg.Phone.MaxAttempts,
			ValidUntil:     time.Now().Add(h.cfg.Phone.CodeTTL),
			PhoneNumber:    *user.PhoneNumber,
		}
		if err := h.phoneRepo.Create(ctx, token); err != nil {
			slog.Error("phone token: failed to store code", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification code"})
			return
		}

		message := fmt.Sprintf("Your verification code is %s", code)
		if err := h.smsSender.Send(ctx, *user.PhoneNumber, message); err != nil {
			slog.Error("phone token: failed to send SMS", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification code"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"detail": "SMS verification code sent."})
	}
}

type verifyPhoneRequest struct {
	Code string `json:"code" binding:"required"`
}

// @Summary      Verify a phone number
// @Description  Checks the submitted code against the most recent one issued. Codes expire and are bounded by a maximum attempt count.
// @Tags         Account
// @Security     UserToken
// @Accept       json
// @Produce      json
// @Param        slug  path  string  true  "Organization slug"
// @Success      200  {object}  map[string]interface{}  "detail"
// @Failure      400  {object}  map[string]interface{}  "Missing, expired, exhausted, or wrong code"
// @Failure      401  {object}  map[string]interface{}  "Authentication failed"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/organization/{slug}/account/phone/verify/ [post]
// VerifyPhoneHandler redeems a verification code. Wrong guesses count against
// max_attempts; once exhausted the code is dead even if the right value
// arrives afterwards.
// Implements: POST /api/v1/radius/organization/{slug}/account/phone/verify/
func (h *Handlers) VerifyPhoneHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyPhoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
			return
		}

		ctx := c.Request.Context()
		user := c.MustGet("user").(*models.User)
		orgID := c.GetString("organization_id")

		token, err := h.phoneRepo.GetLatest(ctx, user.ID, orgID)
		if err != nil {
			slog.Error("phone verify: token lookup failed", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify phone"})
			return
		}
		if token == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no pending verification code"})
			return
		}
		if !token.IsValid(time.Now()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "verification code expired, request a new one"})
			return
		}

		if !auth.SecureCompare(req.Code, token.Code) {
			if err := h.phoneRepo.IncrementAttempts(ctx, token.ID); err != nil {
				slog.Error("phone verify: failed to record attempt", "token_id", token.ID, "error", err)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
			return
		}

		if err := h.phoneRepo.MarkVerified(ctx, token.ID); err != nil {
			slog.Error("phone verify: failed to mark token verified", "token_id", token.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify phone"})
			return
		}
		if err := h.userRepo.MarkPhoneVerified(ctx, user.ID); err != nil {
			slog.Error("phone verify: failed to mark user verified", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify phone"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"detail": "Phone number verified."})
	}
}

type changePhoneRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// @Summary      Change own phone number
// @Description  Replaces the caller's phone number, clears the verified flag, and sends a code to the new number.
// @Tags         Account
// @Security     UserToken
// @Accept       json
// @Produce      json
// @Param        slug  path  string  true  "Organization slug"
// @Success      200  {object}  map[string]interface{}  "detail"
// @Failure      400  {object}  map[string]interface{}  "Malformed phone number"
// @Failure      401  {object}  map[string]interface{}  "Authentication failed"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/organization/{slug}/account/phone/change/ [post]
// ChangePhoneHandler swaps the caller's phone number and immediately issues a
// code for the new one.
// Implements: POST /api/v1/radius/organization/{slug}/account/phone/change/
func (h *Handlers) ChangePhoneHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePhoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phone_number is required"})
			return
		}
		if err := validation.ValidatePhoneNumber(req.PhoneNumber); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		user := c.MustGet("user").(*models.User)
		orgID := c.GetString("organization_id")

		if err := h.userRepo.UpdatePhoneNumber(ctx, user.ID, req.PhoneNumber); err != nil {
			slog.Error("phone change: failed to update number", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change phone number"})
			return
		}

		code, err := generateCode(h.cfg.Phone.CodeLength)
		if err != nil {
			slog.Error("phone change: failed to generate code", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change phone number"})
			return
		}
		token := &models.PhoneToken{
			UserID:         user.ID,
			OrganizationID: orgID,
			Code:           code,
			MaxAttempts:    h.cfg.Phone.MaxAttempts,
			ValidUntil:     time.Now().Add(h.cfg.Phone.CodeTTL),
			PhoneNumber:    req.PhoneNumber,
		}
		if err := h.phoneRepo.Create(ctx, token); err != nil {
			slog.Error("phone change: failed to store code", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change phone number"})
			return
		}

		message := fmt.Sprintf("Your verification code is %s", code)
		if err := h.smsSender.Send(ctx, req.PhoneNumber, message); err != nil {
			slog.Error("phone change: failed to send SMS", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change phone number"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"detail": "Phone number updated, verification code sent."})
	}
}

// generateCode draws a uniformly random numeric code of the given length.
// Leading zeros are legal, so the space is the full 10^length.
func generateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
