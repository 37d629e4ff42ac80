package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/logger"
)

const timezoneHeader = "X-Timezone"

var errInvalidTimezone = errors.New("invalid time zone")

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized access"})

	case errors.Is(err, domain.ErrCheckInNotFound), errors.Is(err, domain.ErrHabitNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})

	case errors.Is(err, domain.ErrHabitConflict), errors.Is(err, domain.ErrCheckInConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "version conflict",
			"message": "data has been modified elsewhere, please sync",
		})

	case errors.Is(err, domain.ErrHabitArchived):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrHabitTitleEmpty),
		errors.Is(err, domain.ErrHabitTitleTooLong),
		errors.Is(err, domain.ErrHabitDescTooLong),
		errors.Is(err, domain.ErrHabitInvalidUserID),
		errors.Is(err, domain.ErrInvalidColor),
		errors.Is(err, domain.ErrInvalidGoalType),
		errors.Is(err, domain.ErrInvalidTarget),
		errors.Is(err, domain.ErrInvalidReminder),
		errors.Is(err, domain.ErrInvalidCheckIn),
		errors.Is(err, domain.ErrCheckInFuture),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, errInvalidTimezone):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		_ = c.Error(err)
		logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// requireUser reads the authenticated user id or writes a 401.
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

// requestLocation picks the IANA zone from ?tz= or the X-Timezone header,
// falling back to the server default.
func requestLocation(c *gin.Context, fallback *time.Location) (*time.Location, error) {
	name := strings.TrimSpace(c.Query("tz"))
	if name == "" {
		name = strings.TrimSpace(c.GetHeader(timezoneHeader))
	}
	if name == "" {
		return fallback, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errInvalidTimezone
	}
	return loc, nil
}

// parseDate accepts YYYY-MM-DD as local midnight in loc, or a full RFC3339
// timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
