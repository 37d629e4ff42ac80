package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("Nil input means every day is active", func(t *testing.T) {
		a := Normalize(nil)
		assert.Equal(t, 7, a.Count())
	})

	t.Run("Only explicit false disables a day", func(t *testing.T) {
		a := Normalize(map[DayKey]bool{Sat: false, Sun: false, Mon: true})
		assert.Equal(t, 5, a.Count())
		assert.False(t, a.Get(Sat))
		assert.False(t, a.Get(Sun))
		assert.True(t, a.Get(Tue), "absent key must default to active")
	})

	t.Run("Result always has all seven keys", func(t *testing.T) {
		m := Normalize(map[DayKey]bool{Wed: false}).Map()
		assert.Len(t, m, 7)
		for _, k := range Keys {
			_, ok := m[k]
			assert.True(t, ok, "missing key %s", k)
		}
	})
}

func TestKeyOf(t *testing.T) {
	// 2024-03-11 is a Monday.
	base := time.Date(2024, 3, 11, 15, 0, 0, 0, time.UTC)
	for i, want := range Keys {
		assert.Equal(t, want, KeyOf(base.AddDate(0, 0, i)))
	}
}

func TestIsActiveDay(t *testing.T) {
	friday := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	a := Normalize(map[DayKey]bool{Fri: false})
	assert.False(t, IsActiveDay(friday, &a))
	assert.True(t, IsActiveDay(friday.AddDate(0, 0, -1), &a))

	assert.False(t, IsActiveDay(friday, nil), "absent schedule is never active")
}

func TestActiveDays_JSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantOff   []DayKey
	}{
		{name: "Null", input: `null`, wantCount: 7},
		{name: "Array", input: `[1,2,3]`, wantCount: 7},
		{name: "String", input: `"weekdays"`, wantCount: 7},
		{name: "Empty object", input: `{}`, wantCount: 7},
		{name: "Explicit false", input: `{"sat":false,"sun":false}`, wantCount: 5, wantOff: []DayKey{Sat, Sun}},
		{name: "Falsy but not false", input: `{"mon":0,"tue":null,"wed":""}`, wantCount: 7},
		{name: "Upper case keys", input: `{"FRI":false}`, wantCount: 6, wantOff: []DayKey{Fri}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a ActiveDays
			require.NoError(t, json.Unmarshal([]byte(tt.input), &a))
			assert.Equal(t, tt.wantCount, a.Count())
			for _, k := range tt.wantOff {
				assert.False(t, a.Get(k))
			}
		})
	}

	t.Run("Marshal emits the complete mapping", func(t *testing.T) {
		data, err := json.Marshal(Normalize(map[DayKey]bool{Sun: false}))
		require.NoError(t, err)

		var m map[string]bool
		require.NoError(t, json.Unmarshal(data, &m))
		assert.Len(t, m, 7)
		assert.False(t, m["sun"])
		assert.True(t, m["mon"])
	})
}

func TestParseKey(t *testing.T) {
	valid := map[string]DayKey{
		"mon":      Mon,
		"Monday":   Mon,
		" tue ":    Tue,
		"SATURDAY": Sat,
		"0":        Sun,
		"1":        Mon,
		"6":        Sat,
	}
	for in, want := range valid {
		got, err := ParseKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "mo", "7", "-1", "funday"} {
		_, err := ParseKey(in)
		assert.Error(t, err, in)
	}
}

func TestFromKeys(t *testing.T) {
	assert.Equal(t, 7, FromKeys(nil).Count())

	a := FromKeys([]DayKey{Mon, Wed, Fri})
	assert.Equal(t, 3, a.Count())
	assert.Equal(t, "mon,wed,fri", a.String())
}
