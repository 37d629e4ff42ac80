package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

type CheckInHandler struct {
	svc *services.CheckInService
	loc *time.Location
}

func NewCheckInHandler(svc *services.CheckInService, loc *time.Location) *CheckInHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CheckInHandler{svc: svc, loc: loc}
}

type createCheckInRequest struct {
	ID        string    `json:"id" binding:"omitempty,max=64"`
	HabitID   string    `json:"habit_id" binding:"required"`
	CheckedAt time.Time `json:"checked_at"`
	Notes     string    `json:"notes" binding:"max=500"`
}

func (h *CheckInHandler) RegisterRoutes(router *gin.RouterGroup) {
	checkIns := router.Group("/checkins")
	{
		checkIns.POST("", h.Create)
		checkIns.GET("", h.List)
		checkIns.GET("/sync", h.Sync)
		checkIns.DELETE("/:id", h.Delete)
	}
}

// Create godoc
// @Summary   Record a check-in
// @Tags      checkins
// @Security  BearerAuth
// @Accept    json
// @Produce   json
// @Param     body body createCheckInRequest true "Check-in; checked_at defaults to now"
// @Success   201 {object} domain.CheckIn
// @Failure   400,403,404,409,422 {object} map[string]string
// @Router    /checkins [post]
func (h *CheckInHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkIn, err := h.svc.Create(c.Request.Context(), services.CreateCheckInInput{
		ID:        req.ID,
		HabitID:   req.HabitID,
		UserID:    userID,
		CheckedAt: req.CheckedAt,
		Notes:     req.Notes,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkIn)
}

// List godoc
// @Summary   Check-ins of a habit, oldest first
// @Tags      checkins
// @Security  BearerAuth
// @Produce   json
// @Param     habit_id query string true  "Habit ID"
// @Param     from     query string false "YYYY-MM-DD or RFC3339, inclusive"
// @Param     to       query string false "YYYY-MM-DD (inclusive day) or RFC3339 (exclusive)"
// @Param     tz       query string false "IANA time zone for date bounds"
// @Success   200 {array} domain.CheckIn
// @Router    /checkins [get]
func (h *CheckInHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	habitID := c.Query("habit_id")
	if habitID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "habit_id is required"})
		return
	}

	loc, err := requestLocation(c, h.loc)
	if err != nil {
		handleError(c, err)
		return
	}

	// Zero bounds list everything from the epoch to a day past now.
	from := time.Unix(0, 0).UTC()
	to := time.Now().Add(48 * time.Hour)

	if raw := c.Query("from"); raw != "" {
		if from, err = parseDate(raw, loc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from, expected YYYY-MM-DD or RFC3339"})
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = parseRangeEnd(raw, loc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to, expected YYYY-MM-DD or RFC3339"})
			return
		}
	}
	if !to.After(from) {
		handleError(c, domain.ErrInvalidDateRange)
		return
	}

	list, err := h.svc.ListByHabitID(c.Request.Context(), habitID, userID, from, to)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *CheckInHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	lastSync, ok := parseLastSync(c)
	if !ok {
		return
	}

	deltas, err := h.svc.GetDelta(c.Request.Context(), userID, lastSync)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes":   deltas,
		"timestamp": time.Now().UTC(),
	})
}

// Delete godoc
// @Summary   Undo a check-in
// @Tags      checkins
// @Security  BearerAuth
// @Param     id path string true "Check-in ID"
// @Success   204
// @Failure   403,404 {object} map[string]string
// @Router    /checkins/{id} [delete]
func (h *CheckInHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseRangeEnd turns a date into the exclusive bound after that day.
func parseRangeEnd(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t.AddDate(0, 0, 1), nil
	}
	return time.Parse(time.RFC3339, s)
}
