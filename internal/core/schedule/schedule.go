// Package schedule models the weekly active-day mask of a habit.
//
// An ActiveDays value is immutable: every constructor returns a fresh value and
// there are no setters. Unknown or missing input always resolves to "active".
package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type DayKey string

const (
	Mon DayKey = "mon"
	Tue DayKey = "tue"
	Wed DayKey = "wed"
	Thu DayKey = "thu"
	Fri DayKey = "fri"
	Sat DayKey = "sat"
	Sun DayKey = "sun"
)

// Keys is the iteration order used everywhere in the UI: Monday first.
var Keys = [7]DayKey{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

// ActiveDays holds one flag per weekday, indexed in Keys order.
type ActiveDays struct {
	days [7]bool
}

func AllActive() ActiveDays {
	return ActiveDays{days: [7]bool{true, true, true, true, true, true, true}}
}

// Normalize builds a complete schedule. A key is inactive only when it is
// present and explicitly false.
func Normalize(in map[DayKey]bool) ActiveDays {
	var a ActiveDays
	for i, k := range Keys {
		v, ok := in[k]
		a.days[i] = !ok || v
	}
	return a
}

// KeyOf maps a date to its weekday key using the absolute day of the week.
func KeyOf(t time.Time) DayKey {
	return Keys[index(t.Weekday())]
}

// IsActiveDay reports whether the habit is expected on the given date.
// A nil schedule is never active.
func IsActiveDay(t time.Time, a *ActiveDays) bool {
	if a == nil {
		return false
	}
	return a.IsActive(t)
}

func (a ActiveDays) IsActive(t time.Time) bool {
	return a.days[index(t.Weekday())]
}

func (a ActiveDays) Get(k DayKey) bool {
	for i, key := range Keys {
		if key == k {
			return a.days[i]
		}
	}
	return false
}

func (a ActiveDays) Count() int {
	n := 0
	for _, v := range a.days {
		if v {
			n++
		}
	}
	return n
}

func (a ActiveDays) Map() map[DayKey]bool {
	m := make(map[DayKey]bool, len(Keys))
	for i, k := range Keys {
		m[k] = a.days[i]
	}
	return m
}

func (a ActiveDays) String() string {
	var parts []string
	for i, k := range Keys {
		if a.days[i] {
			parts = append(parts, string(k))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

func (a ActiveDays) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Map())
}

// UnmarshalJSON accepts anything. Non-object input yields all days active and,
// per key, only the JSON literal false disables a day.
func (a *ActiveDays) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		*a = AllActive()
		return nil
	}

	in := make(map[DayKey]bool, len(raw))
	for k, v := range raw {
		if strings.TrimSpace(string(v)) == "false" {
			in[DayKey(strings.ToLower(k))] = false
		}
	}
	*a = Normalize(in)
	return nil
}

// ParseKey accepts "mon", "Monday" or a number where 0 is Sunday and 6 Saturday.
func ParseKey(s string) (DayKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		for _, k := range Keys {
			if strings.HasPrefix(s, string(k)) {
				return k, nil
			}
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return Keys[index(time.Weekday(n))], nil
	}
	return "", fmt.Errorf("invalid weekday: %q", s)
}

// FromKeys returns a schedule where exactly the listed days are active.
// An empty list means every day.
func FromKeys(keys []DayKey) ActiveDays {
	if len(keys) == 0 {
		return AllActive()
	}
	in := make(map[DayKey]bool, len(Keys))
	for _, k := range Keys {
		in[k] = false
	}
	for _, k := range keys {
		in[k] = true
	}
	return Normalize(in)
}

func index(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
