package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/schedule"
)

var (
	reportNow   string
	reportTZ    string
	reportWeeks int
)

func init() {
	reportCmd.Flags().StringVar(&reportNow, "now", "", "Reference instant, RFC3339 or YYYY-MM-DD (default: current time)")
	reportCmd.Flags().StringVar(&reportTZ, "tz", "UTC", "IANA time zone for day boundaries")
	reportCmd.Flags().IntVar(&reportWeeks, "weeks", 0, "Also print a heatmap with this many weeks")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <snapshot.json>",
	Short: "Compute a habit report offline from a JSON snapshot",
	Long: `Reads a habit definition and its check-in timestamps from a JSON file and
prints the computed report. No database is needed. created_at takes a
YYYY-MM-DD date or an RFC3339 instant.

  {
    "habit": {"id": "h1", "goal_type": "daily", "times_per_day": 1,
              "created_at": "2024-01-01", "active_days": {"sun": false}},
    "check_ins": ["2024-01-02T07:30:00Z", "2024-01-03T21:10:00Z"]
  }`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

type snapshotFile struct {
	Habit struct {
		ID           string               `json:"id"`
		GoalType     string               `json:"goal_type"`
		TimesPerDay  int                  `json:"times_per_day"`
		TimesPerWeek int                  `json:"times_per_week"`
		CreatedAt    string               `json:"created_at"`
		ActiveDays   *schedule.ActiveDays `json:"active_days"`
	} `json:"habit"`
	CheckIns []time.Time `json:"check_ins"`
}

type reportOutput struct {
	Report  analytics.Report      `json:"report"`
	Heatmap [][]analytics.DayCell `json:"heatmap,omitempty"`
}

func runReport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(reportTZ)
	if err != nil {
		return fmt.Errorf("invalid --tz: %w", err)
	}

	now := time.Now()
	if reportNow != "" {
		if now, err = parseInstant(reportNow, loc); err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
	}

	snap, err := decodeSnapshot(data, loc)
	if err != nil {
		return err
	}

	out := reportOutput{Report: analytics.Compute(snap, now)}
	if reportWeeks > 0 {
		out.Heatmap = analytics.Heatmap(snap, now, reportWeeks)
	}

	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(enc))
	return err
}

func decodeSnapshot(data []byte, loc *time.Location) (analytics.Snapshot, error) {
	var in snapshotFile
	if err := json.Unmarshal(data, &in); err != nil {
		return analytics.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	def := analytics.Definition{
		HabitID:      in.Habit.ID,
		Goal:         analytics.GoalType(in.Habit.GoalType),
		TimesPerDay:  max(in.Habit.TimesPerDay, 1),
		TimesPerWeek: max(in.Habit.TimesPerWeek, 1),
		ActiveDays:   schedule.AllActive(),
	}
	if in.Habit.CreatedAt != "" {
		created, err := parseInstant(in.Habit.CreatedAt, loc)
		if err != nil {
			return analytics.Snapshot{}, fmt.Errorf("invalid created_at: %w", err)
		}
		def.CreatedAt = created
	}
	switch def.Goal {
	case "":
		def.Goal = analytics.GoalDaily
	case analytics.GoalDaily, analytics.GoalWeekly:
	default:
		return analytics.Snapshot{}, fmt.Errorf("unknown goal_type %q", in.Habit.GoalType)
	}
	if in.Habit.ActiveDays != nil {
		def.ActiveDays = *in.Habit.ActiveDays
	}

	return analytics.NewSnapshot(def, in.CheckIns, loc), nil
}

func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(analytics.DateLayout, s, loc); err == nil {
		// midday keeps the date stable across any offset
		return t.Add(12 * time.Hour), nil
	}
	return time.Parse(time.RFC3339, s)
}
