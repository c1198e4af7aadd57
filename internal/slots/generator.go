package slots

import (
	"fmt"
	"time"
)

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// ClockFormat is the wire format for times of day.
const ClockFormat = "15:04"

// Window is one slot boundary pair within a working day.
type Window struct {
	Start string // HH:MM
	End   string // HH:MM
}

// Params describes the working day used to lay out the slot grid.
type Params struct {
	StartHour       int
	EndHour         int
	DurationMinutes int
}

// DefaultParams returns the standard 9-17 working day with hourly slots.
func DefaultParams() Params {
	return Params{StartHour: 9, EndHour: 17, DurationMinutes: 60}
}

// Validate checks the working-day parameters.
func (p Params) Validate() error {
	if p.StartHour < 0 || p.EndHour > 24 {
		return fmt.Errorf("hours must be within 0..24, got %d..%d", p.StartHour, p.EndHour)
	}
	if p.StartHour >= p.EndHour {
		return fmt.Errorf("start_hour must be before end_hour, got %d..%d", p.StartHour, p.EndHour)
	}
	if p.DurationMinutes <= 0 {
		return fmt.Errorf("slot_duration must be positive, got %d", p.DurationMinutes)
	}
	return nil
}

// Grid lays out non-overlapping slot windows for one day. Each window is
// [cur, cur+duration) and the cursor advances to the window end until it
// reaches the end hour. When the working day is not an exact multiple of
// the duration the final window runs past the end hour.
func Grid(day time.Time, p Params) []Window {
	cur := time.Date(day.Year(), day.Month(), day.Day(), p.StartHour, 0, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), p.EndHour, 0, 0, 0, day.Location())
	dur := time.Duration(p.DurationMinutes) * time.Minute

	var windows []Window
	for cur.Before(end) {
		slotEnd := cur.Add(dur)
		windows = append(windows, Window{
			Start: cur.Format(ClockFormat),
			End:   slotEnd.Format(ClockFormat),
		})
		cur = slotEnd
	}
	return windows
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateFormat, date)
}
