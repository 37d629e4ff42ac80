package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

type StatsHandler struct {
	svc *services.StatsService
	loc *time.Location
	now func() time.Time
}

func NewStatsHandler(svc *services.StatsService, loc *time.Location) *StatsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsHandler{svc: svc, loc: loc, now: time.Now}
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats/weekly", h.GetWeeklyStats)
}

// GetWeeklyStats godoc
// @Summary   Per-habit completion over a date range (default: the last 7 days)
// @Tags      stats
// @Security  BearerAuth
// @Produce   json
// @Param     start_date query string false "YYYY-MM-DD"
// @Param     end_date   query string false "YYYY-MM-DD"
// @Param     tz         query string false "IANA time zone"
// @Success   200 {object} domain.WeeklyStats
// @Failure   400,401 {object} map[string]string
// @Router    /stats/weekly [get]
func (h *StatsHandler) GetWeeklyStats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	loc, err := requestLocation(c, h.loc)
	if err != nil {
		handleError(c, err)
		return
	}

	var endDate, startDate time.Time

	if raw := c.Query("end_date"); raw == "" {
		endDate = h.now().In(loc)
	} else {
		endDate, err = time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date format, expected YYYY-MM-DD"})
			return
		}
	}

	if raw := c.Query("start_date"); raw == "" {
		startDate = endDate.AddDate(0, 0, -6)
	} else {
		startDate, err = time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date format, expected YYYY-MM-DD"})
			return
		}
	}

	if startDate.After(endDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date cannot be after end_date"})
		return
	}

	stats, err := h.svc.GetWeeklyStats(c.Request.Context(), domain.StatsInput{
		UserID:    userID,
		StartDate: startDate,
		EndDate:   endDate,
		Location:  loc,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
