package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/schedule"
)

// runStoreContract exercises behaviour every storage backend must share.
func runStoreContract(t *testing.T, habits domain.HabitRepository, checkIns domain.CheckInRepository, users domain.UserRepository) {
	t.Helper()
	ctx := context.Background()

	user, err := domain.NewUser(uuid.NewString(), "u-"+uuid.NewString()[:8]+"@kanso.app", time.Now())
	require.NoError(t, err)
	user.PasswordHash = "hash"
	require.NoError(t, users.Create(ctx, user))

	t.Run("Users", func(t *testing.T) {
		byEmail, err := users.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byID, err := users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)
		assert.Equal(t, "hash", byID.PasswordHash)

		dup := *user
		dup.ID = uuid.NewString()
		assert.ErrorIs(t, users.Create(ctx, &dup), domain.ErrEmailAlreadyExists)

		_, err = users.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		_, err = users.GetByEmail(ctx, "nobody@kanso.app")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("Habit lifecycle", func(t *testing.T) {
		habit, err := domain.NewHabit("Read", user.ID)
		require.NoError(t, err)
		reminder := "07:30"
		habit.ReminderTime = &reminder
		habit.ActiveDays = schedule.FromKeys([]schedule.DayKey{schedule.Mon, schedule.Wed, schedule.Fri})

		require.NoError(t, habits.Create(ctx, habit))
		assert.Equal(t, 1, habit.Version)

		fetched, err := habits.GetByID(ctx, habit.ID)
		require.NoError(t, err)
		assert.Equal(t, "Read", fetched.Title)
		assert.Equal(t, domain.GoalDaily, fetched.GoalType)
		assert.True(t, fetched.ActiveDays.Get(schedule.Mon))
		assert.False(t, fetched.ActiveDays.Get(schedule.Tue))
		require.NotNil(t, fetched.ReminderTime)
		assert.Equal(t, "07:30", *fetched.ReminderTime)
		assert.Nil(t, fetched.DeletedAt)

		stale, err := habits.GetByID(ctx, habit.ID)
		require.NoError(t, err)

		fetched.Title = "Read 20 pages"
		require.NoError(t, habits.Update(ctx, fetched))
		assert.Equal(t, 2, fetched.Version)

		stale.Title = "Lost write"
		assert.ErrorIs(t, habits.Update(ctx, stale), domain.ErrHabitConflict)

		require.NoError(t, habits.UpdateStreaks(ctx, habit.ID, 3, 5))
		withStreaks, err := habits.GetByID(ctx, habit.ID)
		require.NoError(t, err)
		assert.Equal(t, "Read 20 pages", withStreaks.Title)
		assert.Equal(t, 3, withStreaks.CurrentStreak)
		assert.Equal(t, 5, withStreaks.LongestStreak)
		assert.Equal(t, 2, withStreaks.Version, "streaks are derived and do not bump the version")

		list, err := habits.ListByUserID(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)

		live, err := domain.NewHabit("Duplicate", user.ID)
		require.NoError(t, err)
		live.ID = habit.ID
		assert.ErrorIs(t, habits.Create(ctx, live), domain.ErrHabitConflict)

		require.NoError(t, habits.Delete(ctx, habit.ID))
		_, err = habits.GetByID(ctx, habit.ID)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
		assert.ErrorIs(t, habits.Delete(ctx, habit.ID), domain.ErrHabitNotFound)

		changes, err := habits.GetChanges(ctx, user.ID, time.Time{})
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.NotNil(t, changes[0].DeletedAt, "tombstones are part of the delta")

		back, err := domain.NewHabit("Read again", user.ID)
		require.NoError(t, err)
		back.ID = habit.ID
		require.NoError(t, habits.Create(ctx, back))
		assert.Equal(t, 4, back.Version)

		revived, err := habits.GetByID(ctx, habit.ID)
		require.NoError(t, err)
		assert.Equal(t, "Read again", revived.Title)

		ghost := &domain.Habit{ID: uuid.NewString(), UserID: user.ID, Title: "Ghost", Version: 1}
		assert.ErrorIs(t, habits.Update(ctx, ghost), domain.ErrHabitNotFound)
		assert.ErrorIs(t, habits.UpdateStreaks(ctx, ghost.ID, 1, 1), domain.ErrHabitNotFound)
	})

	t.Run("Check-in log", func(t *testing.T) {
		habit, err := domain.NewHabit("Stretch", user.ID)
		require.NoError(t, err)
		require.NoError(t, habits.Create(ctx, habit))

		at := func(d int) time.Time { return time.Date(2024, 3, d, 7, 30, 0, 0, time.UTC) }

		var ids []string
		for _, d := range []int{12, 10, 11} {
			c := domain.NewCheckIn(habit.ID, user.ID, at(d))
			require.NoError(t, checkIns.Create(ctx, c))
			ids = append(ids, c.ID)
		}

		all, err := checkIns.ListByHabitID(ctx, habit.ID)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, all[0].CheckedAt.Equal(at(10)), "ordered by checked_at")
		assert.True(t, all[2].CheckedAt.Equal(at(12)))

		window, err := checkIns.ListByHabitIDWithRange(ctx, habit.ID,
			time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), at(12))
		require.NoError(t, err)
		require.Len(t, window, 1, "upper bound is exclusive")
		assert.True(t, window[0].CheckedAt.Equal(at(11)))

		byUser, err := checkIns.ListByUserIDAndDateRange(ctx, user.ID,
			time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Len(t, byUser, 3)

		one, err := checkIns.GetByID(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, habit.ID, one.HabitID)
		assert.Equal(t, 1, one.Version)

		dup := domain.NewCheckIn(habit.ID, user.ID, at(13))
		dup.ID = ids[0]
		assert.ErrorIs(t, checkIns.Create(ctx, dup), domain.ErrCheckInConflict)

		orphan := domain.NewCheckIn(uuid.NewString(), user.ID, at(13))
		assert.ErrorIs(t, checkIns.Create(ctx, orphan), domain.ErrHabitNotFound)

		require.NoError(t, checkIns.Delete(ctx, ids[1]))
		_, err = checkIns.GetByID(ctx, ids[1])
		assert.ErrorIs(t, err, domain.ErrCheckInNotFound)
		assert.ErrorIs(t, checkIns.Delete(ctx, ids[1]), domain.ErrCheckInNotFound)

		remaining, err := checkIns.ListByHabitID(ctx, habit.ID)
		require.NoError(t, err)
		assert.Len(t, remaining, 2)

		changes, err := checkIns.GetChanges(ctx, user.ID, time.Time{})
		require.NoError(t, err)
		var tombstones int
		for _, c := range changes {
			if c.DeletedAt != nil {
				tombstones++
				assert.Equal(t, ids[1], c.ID)
				assert.Equal(t, 2, c.Version)
			}
		}
		assert.Equal(t, 1, tombstones)

		t.Run("Reusing an undone id restores it", func(t *testing.T) {
			again := domain.NewCheckIn(habit.ID, user.ID, at(10).Add(time.Hour))
			again.ID = ids[1]
			again.Notes = "redo"
			require.NoError(t, checkIns.Create(ctx, again))
			assert.Equal(t, 3, again.Version)
			assert.Nil(t, again.DeletedAt)

			restored, err := checkIns.GetByID(ctx, ids[1])
			require.NoError(t, err)
			assert.Equal(t, 3, restored.Version)
			assert.Equal(t, "redo", restored.Notes)
			assert.True(t, restored.CheckedAt.Equal(at(10).Add(time.Hour)))

			live, err := checkIns.ListByHabitID(ctx, habit.ID)
			require.NoError(t, err)
			assert.Len(t, live, 3)

			other, err := domain.NewHabit("Other", user.ID)
			require.NoError(t, err)
			require.NoError(t, habits.Create(ctx, other))

			require.NoError(t, checkIns.Delete(ctx, ids[2]))
			moved := domain.NewCheckIn(other.ID, user.ID, at(11))
			moved.ID = ids[2]
			assert.ErrorIs(t, checkIns.Create(ctx, moved), domain.ErrCheckInConflict, "a tombstone stays with its habit")
		})
	})
}
