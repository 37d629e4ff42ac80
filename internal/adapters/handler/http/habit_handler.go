package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

type HabitHandler struct {
	svc *services.HabitService
}

func NewHabitHandler(svc *services.HabitService) *HabitHandler {
	return &HabitHandler{
		svc: svc,
	}
}

type createHabitRequest struct {
	ID           string               `json:"id" binding:"omitempty,max=64"`
	Title        string               `json:"title" binding:"required"`
	Description  string               `json:"description"`
	Color        string               `json:"color"`
	Icon         string               `json:"icon"`
	GoalType     string               `json:"goal_type"`
	ReminderTime string               `json:"reminder_time"`
	TimesPerDay  int                  `json:"times_per_day"`
	TimesPerWeek int                  `json:"times_per_week"`
	ActiveDays   *schedule.ActiveDays `json:"active_days" swaggertype:"object"`
	SortOrder    int                  `json:"sort_order"`
}

// updateHabitRequest is a partial update; absent fields keep their value.
type updateHabitRequest struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Color        *string              `json:"color"`
	Icon         *string              `json:"icon"`
	GoalType     *string              `json:"goal_type"`
	ReminderTime *string              `json:"reminder_time"`
	TimesPerDay  *int                 `json:"times_per_day"`
	TimesPerWeek *int                 `json:"times_per_week"`
	ActiveDays   *schedule.ActiveDays `json:"active_days" swaggertype:"object"`
	SortOrder    *int                 `json:"sort_order"`
	Version      int                  `json:"version" binding:"min=0"`
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/sync", h.Sync)
		habits.GET("/:id", h.Get)
		habits.PUT("/:id", h.Update)
		habits.DELETE("/:id", h.Delete)
		habits.POST("/:id/archive", h.Archive)
		habits.POST("/:id/restore", h.Restore)
	}
}

// Create godoc
// @Summary   Create a habit
// @Tags      habits
// @Security  BearerAuth
// @Accept    json
// @Produce   json
// @Param     body body createHabitRequest true "Habit"
// @Success   201 {object} domain.Habit
// @Failure   400,409 {object} map[string]string
// @Router    /habits [post]
func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.CreateHabitInput{
		ID:           req.ID,
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		Color:        req.Color,
		Icon:         req.Icon,
		GoalType:     req.GoalType,
		ReminderTime: req.ReminderTime,
		TimesPerDay:  req.TimesPerDay,
		TimesPerWeek: req.TimesPerWeek,
		ActiveDays:   req.ActiveDays,
		SortOrder:    req.SortOrder,
	}

	habit, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, habit)
}

// List godoc
// @Summary   List live habits, active first
// @Tags      habits
// @Security  BearerAuth
// @Produce   json
// @Success   200 {array} domain.Habit
// @Router    /habits [get]
func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *HabitHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	habit, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Sync godoc
// @Summary   Habits changed since last_sync, tombstones included
// @Tags      habits
// @Security  BearerAuth
// @Produce   json
// @Param     last_sync query string false "RFC3339 timestamp"
// @Success   200 {object} map[string]interface{}
// @Router    /habits/sync [get]
func (h *HabitHandler) Sync(c *gin.Context) {
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

// Update godoc
// @Summary   Partially update a habit with optimistic locking
// @Tags      habits
// @Security  BearerAuth
// @Accept    json
// @Produce   json
// @Param     id   path string             true "Habit ID"
// @Param     body body updateHabitRequest true "Changed fields and the known version"
// @Success   200 {object} domain.Habit
// @Failure   400,404,409 {object} map[string]string
// @Router    /habits/{id} [put]
func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req updateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.UpdateHabitInput{
		ID:           c.Param("id"),
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		Color:        req.Color,
		Icon:         req.Icon,
		GoalType:     req.GoalType,
		ReminderTime: req.ReminderTime,
		TimesPerDay:  req.TimesPerDay,
		TimesPerWeek: req.TimesPerWeek,
		ActiveDays:   req.ActiveDays,
		SortOrder:    req.SortOrder,
		Version:      req.Version,
	}

	habit, err := h.svc.Update(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Delete godoc
// @Summary   Soft-delete a habit
// @Tags      habits
// @Security  BearerAuth
// @Param     id path string true "Habit ID"
// @Success   204
// @Failure   404 {object} map[string]string
// @Router    /habits/{id} [delete]
func (h *HabitHandler) Delete(c *gin.Context) {
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

func (h *HabitHandler) Archive(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	habit, err := h.svc.Archive(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Restore(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	habit, err := h.svc.Restore(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

func parseLastSync(c *gin.Context) (time.Time, bool) {
	raw := c.Query("last_sync")
	if raw == "" {
		return time.Time{}, true
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid last_sync format, use RFC3339"})
		return time.Time{}, false
	}
	return t, true
}
