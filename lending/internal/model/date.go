package model

import (
	"encoding/json"
	"time"
)

const DateLayout = time.DateOnly

// DateOf returns the calendar date of t in loc as midnight UTC, the same shape
// pgx produces when scanning a date column.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func AddDays(date time.Time, days int) time.Time {
	return date.AddDate(0, 0, days)
}

// DateWindow is the half-open range [Start, End) of calendar dates.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

func (w DateWindow) Contains(date time.Time) bool {
	return !date.Before(w.Start) && date.Before(w.End)
}

// LastDay is the final date inside the window.
func (w DateWindow) LastDay() time.Time {
	return AddDays(w.End, -1)
}

func (w DateWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		LastDay   string `json:"lastDay"`
	}{
		StartDate: w.Start.Format(DateLayout),
		EndDate:   w.End.Format(DateLayout),
		LastDay:   w.LastDay().Format(DateLayout),
	})
}
