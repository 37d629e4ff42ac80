package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

func newTestService(repo domain.HabitRepository) *services.HabitService {
	return services.NewHabitService(repo)
}

func TestHabitService_Create(t *testing.T) {
	t.Run("Success: Should create and persist a valid habit (Auto-ID)", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		ctx := context.Background()

		mwf := schedule.FromKeys([]schedule.DayKey{schedule.Mon, schedule.Wed, schedule.Fri})
		input := services.CreateHabitInput{
			UserID:      "user-1",
			Title:       "Read Book",
			TimesPerDay: 2,
			ActiveDays:  &mwf,
		}

		created, err := svc.Create(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, "Read Book", created.Title)
		assert.Equal(t, 1, created.Version)
		assert.Equal(t, domain.GoalDaily, created.GoalType)
		assert.Equal(t, 2, created.TimesPerDay)
		assert.Equal(t, "mon,wed,fri", created.ActiveDays.String())
		assert.NotEmpty(t, created.ID)

		stored, _ := repo.GetByID(ctx, created.ID)
		require.NotNil(t, stored)
		assert.Equal(t, created.ID, stored.ID)
	})

	t.Run("Success: Missing schedule means every day", func(t *testing.T) {
		svc := newTestService(NewMockRepo())

		created, err := svc.Create(context.Background(), services.CreateHabitInput{UserID: "user-1", Title: "Walk"})

		require.NoError(t, err)
		assert.Equal(t, 7, created.ActiveDays.Count())
	})

	t.Run("Success: Should create habit with PROVIDED ID (Offline Sync)", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		ctx := context.Background()

		customID := "custom-uuid-123"
		created, err := svc.Create(ctx, services.CreateHabitInput{ID: customID, UserID: "user-1", Title: "Offline Habit"})

		require.NoError(t, err)
		assert.Equal(t, customID, created.ID)

		stored, _ := repo.GetByID(ctx, customID)
		assert.NotNil(t, stored)
	})

	t.Run("Idempotency: Should return existing habit if ID exists (Sync Retry)", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		ctx := context.Background()

		input := services.CreateHabitInput{ID: "retry-id", UserID: "user-1", Title: "Retry Habit"}
		first, _ := svc.Create(ctx, input)

		second, err := svc.Create(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
	})

	t.Run("Fail: Same ID owned by someone else", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		ctx := context.Background()

		_, _ = svc.Create(ctx, services.CreateHabitInput{ID: "shared", UserID: "user-1", Title: "Mine"})
		_, err := svc.Create(ctx, services.CreateHabitInput{ID: "shared", UserID: "user-2", Title: "Yours"})

		assert.ErrorIs(t, err, domain.ErrHabitConflict)
	})

	t.Run("Resurrection: Should revive soft-deleted habit", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		ctx := context.Background()

		deletedHabit, _ := domain.NewHabit("I was deleted", "user-1")
		deletedHabit.ID = "zombie-id"
		now := time.Now()
		deletedHabit.DeletedAt = &now
		repo.store[deletedHabit.ID] = deletedHabit

		revived, err := svc.Create(ctx, services.CreateHabitInput{ID: "zombie-id", UserID: "user-1", Title: "I am back"})

		require.NoError(t, err)
		assert.Nil(t, revived.DeletedAt)

		stored, err := repo.GetByID(ctx, "zombie-id")
		require.NoError(t, err)
		assert.Equal(t, "I am back", stored.Title)
	})

	t.Run("Fail: Domain Validation Error (Blocked BEFORE DB)", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)

		_, err := svc.Create(context.Background(), services.CreateHabitInput{UserID: "user-1", Title: ""})
		assert.ErrorIs(t, err, domain.ErrHabitTitleEmpty)

		_, err = svc.Create(context.Background(), services.CreateHabitInput{UserID: "user-1", Title: "x", GoalType: "yearly"})
		assert.ErrorIs(t, err, domain.ErrInvalidGoalType)

		assert.Empty(t, repo.store)
	})
}

func TestHabitService_Update(t *testing.T) {
	seed := func(repo *MockRepo, title, userID string) *domain.Habit {
		h, _ := domain.NewHabit(title, userID)
		_ = repo.Create(context.Background(), h)
		return h
	}

	t.Run("Success: Should update existing habit (Owner)", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		existing := seed(repo, "Old Title", "user-1")

		weekends := schedule.FromKeys([]schedule.DayKey{schedule.Sat, schedule.Sun})
		updated, err := svc.Update(context.Background(), services.UpdateHabitInput{
			ID:           existing.ID,
			UserID:       "user-1",
			Title:        ptr("New Title"),
			Color:        ptr("#FFFFFF"),
			GoalType:     ptr(domain.GoalWeekly),
			TimesPerWeek: ptr(2),
			ActiveDays:   &weekends,
			Version:      1,
		})

		require.NoError(t, err)
		assert.Equal(t, "New Title", updated.Title)
		assert.Equal(t, "#FFFFFF", updated.Color)
		assert.Equal(t, domain.GoalWeekly, updated.GoalType)
		assert.Equal(t, 2, updated.TimesPerWeek)
		assert.Equal(t, "sat,sun", updated.ActiveDays.String())
		assert.Equal(t, 2, updated.Version)
	})

	t.Run("Success: Nil fields are kept", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		existing := seed(repo, "Keep Me", "user-1")

		updated, err := svc.Update(context.Background(), services.UpdateHabitInput{
			ID:          existing.ID,
			UserID:      "user-1",
			Description: ptr("only this"),
			SortOrder:   ptr(3),
		})

		require.NoError(t, err)
		assert.Equal(t, "Keep Me", updated.Title)
		assert.Equal(t, "only this", updated.Description)
		assert.Equal(t, 3, updated.SortOrder)
		assert.Equal(t, 7, updated.ActiveDays.Count())
	})

	t.Run("Upsert: Should CREATE habit if not found (Missing Parent)", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		ctx := context.Background()

		updated, err := svc.Update(ctx, services.UpdateHabitInput{ID: "ghost-id", UserID: "user-1", Title: ptr("Ghost Habit")})

		require.NoError(t, err)
		assert.Equal(t, "ghost-id", updated.ID)
		assert.Equal(t, "Ghost Habit", updated.Title)
		assert.Equal(t, 1, updated.Version)
	})

	t.Run("Fail: Habit Not Found (No Title for Upsert)", func(t *testing.T) {
		svc := newTestService(NewMockRepo())

		_, err := svc.Update(context.Background(), services.UpdateHabitInput{ID: "ghost-id", UserID: "user-1", Description: ptr("Just description")})

		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("Fail: Security - Cannot update other user's habit (IDOR)", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		existing := seed(repo, "Secret Habit", "user-1")

		_, err := svc.Update(context.Background(), services.UpdateHabitInput{ID: existing.ID, UserID: "user-2", Title: ptr("Hacked Title")})

		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("Optimistic Locking: Should fail if client has old version", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		existing := seed(repo, "V2 Habit", "user-1")
		repo.store[existing.ID].Version = 2

		_, err := svc.Update(context.Background(), services.UpdateHabitInput{ID: existing.ID, UserID: "user-1", Title: ptr("Override attempt"), Version: 1})

		assert.ErrorIs(t, err, domain.ErrHabitConflict)
	})

	t.Run("Fail: Archived habits are read-only", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		existing := seed(repo, "Old", "user-1")

		_, err := svc.Archive(context.Background(), existing.ID, "user-1")
		require.NoError(t, err)

		_, err = svc.Update(context.Background(), services.UpdateHabitInput{ID: existing.ID, UserID: "user-1", Title: ptr("New")})
		assert.ErrorIs(t, err, domain.ErrHabitArchived)
	})
}

func TestHabitService_ArchiveRestore(t *testing.T) {
	repo := NewMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	h, _ := domain.NewHabit("Seasonal", "user-1")
	_ = repo.Create(ctx, h)

	archived, err := svc.Archive(ctx, h.ID, "user-1")
	require.NoError(t, err)
	assert.NotNil(t, archived.ArchivedAt)
	assert.Equal(t, 2, archived.Version)

	again, err := svc.Archive(ctx, h.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version, "archiving twice is a no-op")

	_, err = svc.Restore(ctx, h.ID, "user-2")
	assert.ErrorIs(t, err, domain.ErrHabitNotFound)

	restored, err := svc.Restore(ctx, h.ID, "user-1")
	require.NoError(t, err)
	assert.Nil(t, restored.ArchivedAt)
}

func TestHabitService_Delete(t *testing.T) {
	t.Run("Success: Should soft-delete", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)

		h, _ := domain.NewHabit("To Delete", "user-1")
		_ = repo.Create(context.Background(), h)

		err := svc.Delete(context.Background(), h.ID, "user-1")
		require.NoError(t, err)

		_, err = repo.GetByID(context.Background(), h.ID)
		assert.Equal(t, domain.ErrHabitNotFound, err)
		assert.NotNil(t, repo.store[h.ID].DeletedAt)
	})

	t.Run("Fail: Security - Cannot delete other user's habit (IDOR)", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)

		h, _ := domain.NewHabit("Don't Touch", "user-1")
		_ = repo.Create(context.Background(), h)

		err := svc.Delete(context.Background(), h.ID, "user-2")
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("Fail: Delete non-existent habit", func(t *testing.T) {
		svc := newTestService(NewMockRepo())

		err := svc.Delete(context.Background(), "ghost-id", "user-1")
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})
}

func TestHabitService_ListByUserID(t *testing.T) {
	repo := NewMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	h1, _ := domain.NewHabit("H1", "user-1")
	h1.SortOrder = 2
	h2, _ := domain.NewHabit("H2", "user-1")
	h2.SortOrder = 1
	h3, _ := domain.NewHabit("H3", "user-2")
	h4, _ := domain.NewHabit("H4", "user-1")
	h4.Archive()

	for _, h := range []*domain.Habit{h1, h2, h3, h4} {
		_ = repo.Create(ctx, h)
	}

	t.Run("Returns only user's habits, archived last", func(t *testing.T) {
		list, err := svc.ListByUserID(ctx, "user-1")

		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"H2", "H1", "H4"}, []string{list[0].Title, list[1].Title, list[2].Title})
	})

	t.Run("Returns empty for new user", func(t *testing.T) {
		list, err := svc.ListByUserID(ctx, "user-999")
		assert.NoError(t, err)
		assert.Len(t, list, 0)
	})
}

func TestHabitService_SyncLogic(t *testing.T) {
	t.Run("GetDelta: Should return only changed items", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newTestService(repo)
		ctx := context.Background()

		h1, _ := domain.NewHabit("Old", "user-1")
		h1.UpdatedAt = time.Now().Add(-1 * time.Hour)
		_ = repo.Create(ctx, h1)

		lastSync := time.Now()

		h2, _ := domain.NewHabit("New", "user-1")
		h2.UpdatedAt = time.Now().Add(1 * time.Minute)
		_ = repo.Create(ctx, h2)

		deltas, err := svc.GetDelta(ctx, "user-1", lastSync)

		require.NoError(t, err)
		require.Len(t, deltas, 1)
		assert.Equal(t, h2.ID, deltas[0].ID)
	})
}
