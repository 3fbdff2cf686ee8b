// accounting.go implements session accounting ingest and listing for the freeradius package.
package freeradius

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/telemetry"
)

type accountingRequest struct {
	StatusType       string `form:"status_type" json:"status_type" binding:"required"`
	UniqueID         string `form:"unique_id" json:"unique_id" binding:"required"`
	SessionID        string `form:"session_id" json:"session_id"`
	Username         string `form:"username" json:"username"`
	NASIPAddress     string `form:"nas_ip_address" json:"nas_ip_address"`
	FramedIPAddress  string `form:"framed_ip_address" json:"framed_ip_address"`
	CallingStationID string `form:"calling_station_id" json:"calling_station_id"`
	CalledStationID  string `form:"called_station_id" json:"called_station_id"`
	SessionTime      int64  `form:"session_time" json:"session_time"`
	InputOctets      int64  `form:"input_octets" json:"input_octets"`
	OutputOctets     int64  `form:"output_octets" json:"output_octets"`
	TerminateCause   string `form:"terminate_cause" json:"terminate_cause"`
}

// @Summary      Ingest a RADIUS accounting packet
// @Description  Start creates the session, Interim-Update refreshes counters, Stop closes it. unique_id (Acct-Unique-Session-Id) is the idempotency key, so packets arriving out of order still converge.
// @Tags         FreeRADIUS
// @Security     OrgToken
// @Accept       json
// @Success      200  "Existing session updated"
// @Success      201  "New session created"
// @Failure      400  {object}  map[string]interface{}  "Missing fields or unknown status_type"
// @Failure      409  {object}  map[string]interface{}  "unique_id belongs to another organization"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/freeradius/accounting/ [post]
// AccountingHandler ingests Start / Interim-Update / Stop packets keyed by
// unique_id. A packet for a session that does not exist yet creates it, even
// an Interim-Update or Stop whose Start got lost; a packet for an existing
// session updates it in place. 201 means created, 200 means updated.
// Implements: POST /api/v1/freeradius/accounting/
func AccountingHandler(db *sql.DB) gin.HandlerFunc {
	acctRepo := repositories.NewAccountingRepository(db)

	return func(c *gin.Context) {
		var req accountingRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "status_type and unique_id are required",
			})
			return
		}

		switch req.StatusType {
		case models.AcctStatusStart, models.AcctStatusInterimUpdate, models.AcctStatusStop:
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "unknown status_type",
			})
			return
		}

		ctx := c.Request.Context()
		orgID := c.GetString("organization_id")

		existing, err := acctRepo.GetByUniqueID(ctx, req.UniqueID)
		if err != nil {
			slog.Error("accounting: session lookup failed",
				"unique_id", req.UniqueID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to look up session",
			})
			return
		}

		// unique_id is globally unique. Refuse to fold a packet into another
		// tenant's session; a NAS replaying ids across organizations is a
		// configuration error, not traffic to be merged silently.
		if existing != nil && existing.OrganizationID != orgID {
			c.JSON(http.StatusConflict, gin.H{
				"error": "unique_id already registered to another organization",
			})
			return
		}

		acct := &models.RadiusAccounting{
			OrganizationID:   orgID,
			SessionID:        req.SessionID,
			UniqueID:         req.UniqueID,
			Username:         req.Username,
			NASIPAddress:     req.NASIPAddress,
			FramedIPAddress:  req.FramedIPAddress,
			CallingStationID: req.CallingStationID,
			CalledStationID:  req.CalledStationID,
			SessionTime:      req.SessionTime,
			InputOctets:      req.InputOctets,
			OutputOctets:     req.OutputOctets,
			TerminateCause:   req.TerminateCause,
		}

		created := existing == nil
		if created {
			acct.StartTime = time.Now().UTC()
			err = acctRepo.Create(ctx, acct)
		} else {
			switch req.StatusType {
			case models.AcctStatusStop:
				err = acctRepo.CloseSession(ctx, acct)
			default:
				err = acctRepo.UpdateInterim(ctx, acct)
			}
		}
		if err != nil {
			slog.Error("accounting: failed to store packet",
				"status_type", req.StatusType, "unique_id", req.UniqueID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to store accounting packet",
			})
			return
		}

		// A Stop that raced ahead of its Start still closes the session it
		// just created.
		if created && req.StatusType == models.AcctStatusStop {
			if err := acctRepo.CloseSession(ctx, acct); err != nil {
				slog.Error("accounting: failed to close created session",
					"unique_id", req.UniqueID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to store accounting packet",
				})
				return
			}
		}

		telemetry.RadiusAccountingPacketsTotal.WithLabelValues(req.StatusType).Inc()
		if created {
			c.Status(http.StatusCreated)
			return
		}
		c.Status(http.StatusOK)
	}
}

// @Summary      List accounting sessions
// @Description  Returns the calling organization's sessions, newest first, optionally filtered by username.
// @Tags         FreeRADIUS
// @Security     OrgToken
// @Produce      json
// @Param        page       query  int     false  "Page number (default 1)"
// @Param        page_size  query  int     false  "Results per page (default 20, max 100)"
// @Param        username   query  string  false  "Filter by username"
// @Success      200  {object}  map[string]interface{}  "sessions, pagination"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/freeradius/accounting/ [get]
// ListAccountingHandler pages through the calling organization's sessions.
// Implements: GET /api/v1/freeradius/accounting/
func ListAccountingHandler(db *sql.DB) gin.HandlerFunc {
	acctRepo := repositories.NewAccountingRepository(db)

	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
		if page < 1 {
			page = 1
		}
		if pageSize < 1 || pageSize > 100 {
			pageSize = 20
		}
		username := c.Query("username")

		ctx := c.Request.Context()
		orgID := c.GetString("organization_id")

		sessions, err := acctRepo.List(ctx, orgID, username, pageSize, (page-1)*pageSize)
		if err != nil {
			slog.Error("accounting: failed to list sessions", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list sessions",
			})
			return
		}

		total, err := acctRepo.Count(ctx, orgID, username)
		if err != nil {
			slog.Error("accounting: failed to count sessions", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list sessions",
			})
			return
		}

		results := make([]gin.H, 0, len(sessions))
		for _, s := range sessions {
			results = append(results, accountingResponse(s))
		}

		c.JSON(http.StatusOK, gin.H{
			"sessions": results,
			"pagination": gin.H{
				"page":      page,
				"page_size": pageSize,
				"total":     total,
			},
		})
	}
}

// accountingResponse shapes one session row. Timestamps are RFC 3339; the
// nullable update/stop times render as null while the session is open.
func accountingResponse(s *models.RadiusAccounting) gin.H {
	var updateTime, stopTime interface{}
	if s.UpdateTime != nil {
		updateTime = s.UpdateTime.Format(time.RFC3339)
	}
	if s.StopTime != nil {
		stopTime = s.StopTime.Format(time.RFC3339)
	}

	return gin.H{
		"id":                 s.ID,
		"session_id":         s.SessionID,
		"unique_id":          s.UniqueID,
		"username":           s.Username,
		"nas_ip_address":     s.NASIPAddress,
		"framed_ip_address":  s.FramedIPAddress,
		"calling_station_id": s.CallingStationID,
		"called_station_id":  s.CalledStationID,
		"start_time":         s.StartTime.Format(time.RFC3339),
		"update_time":        updateTime,
		"stop_time":          stopTime,
		"session_time":       s.SessionTime,
		"input_octets":       s.InputOctets,
		"output_octets":      s.OutputOctets,
		"terminate_cause":    s.TerminateCause,
	}
}
