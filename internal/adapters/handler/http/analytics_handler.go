package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

// AnalyticsHandler serves the per-habit reports and calendars. Every route
// accepts ?tz= (or X-Timezone) to pick the day boundaries.
type AnalyticsHandler struct {
	svc *services.AnalyticsService
}

func NewAnalyticsHandler(svc *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	analytics := router.Group("/analytics")
	{
		analytics.GET("/overview", h.Overview)
		analytics.GET("/habits/:id", h.Report)
		analytics.GET("/habits/:id/calendar", h.Calendar)
	}
}

// Overview godoc
// @Summary   Report card for every live habit
// @Tags      analytics
// @Security  BearerAuth
// @Produce   json
// @Param     tz query string false "IANA time zone"
// @Success   200 {array} services.HabitCard
// @Router    /analytics/overview [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	loc, err := requestLocation(c, nil)
	if err != nil {
		handleError(c, err)
		return
	}

	cards, err := h.svc.Overview(c.Request.Context(), userID, loc)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

// Report godoc
// @Summary   Streaks, consistency and goal progress of one habit
// @Tags      analytics
// @Security  BearerAuth
// @Produce   json
// @Param     id path  string true  "Habit ID"
// @Param     tz query string false "IANA time zone"
// @Success   200 {object} services.HabitCard
// @Failure   404 {object} map[string]string
// @Router    /analytics/habits/{id} [get]
func (h *AnalyticsHandler) Report(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	loc, err := requestLocation(c, nil)
	if err != nil {
		handleError(c, err)
		return
	}

	card, err := h.svc.HabitReport(c.Request.Context(), services.AnalyticsInput{
		HabitID:  c.Param("id"),
		UserID:   userID,
		Location: loc,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// Calendar godoc
// @Summary   Day cells for a date range, or a week-aligned heatmap
// @Tags      analytics
// @Security  BearerAuth
// @Produce   json
// @Param     id    path  string true  "Habit ID"
// @Param     from  query string false "YYYY-MM-DD, inclusive"
// @Param     to    query string false "YYYY-MM-DD, inclusive"
// @Param     weeks query int    false "Heatmap rows when no range is given"
// @Param     tz    query string false "IANA time zone"
// @Success   200 {object} services.CalendarView
// @Failure   400,404 {object} map[string]string
// @Router    /analytics/habits/{id}/calendar [get]
func (h *AnalyticsHandler) Calendar(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	loc, err := requestLocation(c, nil)
	if err != nil {
		handleError(c, err)
		return
	}
	dateLoc := h.svc.Location(loc)

	input := services.CalendarInput{
		HabitID:  c.Param("id"),
		UserID:   userID,
		Location: loc,
	}

	if raw := c.Query("from"); raw != "" {
		if input.From, err = parseDate(raw, dateLoc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from, expected YYYY-MM-DD"})
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if input.To, err = parseDate(raw, dateLoc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to, expected YYYY-MM-DD"})
			return
		}
	}
	if raw := c.Query("weeks"); raw != "" {
		weeks, err := strconv.Atoi(raw)
		if err != nil || weeks <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weeks must be a positive integer"})
			return
		}
		input.Weeks = weeks
	}

	view, err := h.svc.HabitCalendar(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
