package model

import (
	"fmt"
	"strconv"
	"time"
)

// LogID is the identifier the timesheet backend assigns to a persisted log.
// The zero value marks a draft that has not been submitted yet.
type LogID int64

func (id LogID) IsZero() bool {
	return id == 0
}

func (id LogID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseLogID parses the decimal form printed by LogID.String.
func ParseLogID(s string) (LogID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid log id %q", s)
	}
	return LogID(n), nil
}

// WorkItemRef is the denormalized view of a work item stored alongside a log.
type WorkItemRef struct {
	ID            int
	Title         string
	Type          string
	State         string
	AssignedTo    string
	IterationPath string
	AreaPath      string
	Tags          string
	URL           string
	Description   string
	ProjectID     string
}

// TimeLogEntry is one unit of logged work.
type TimeLogEntry struct {
	LogID        LogID
	Organization string
	Project      string
	WorkItem     WorkItemRef
	Description  string
	Hours        int
	Minutes      int
	CreatedOn    time.Time
	LogDate      time.Time
}

// TotalMinutes returns the duration of the entry in minutes.
func (e TimeLogEntry) TotalMinutes() int {
	return e.Hours*60 + e.Minutes
}

// Editable reports whether the entry was created today or yesterday relative to now.
// Older entries are locked.
func (e TimeLogEntry) Editable(now time.Time) bool {
	if e.CreatedOn.IsZero() {
		return false
	}
	created := Day(e.CreatedOn.In(now.Location()))
	today := Day(now)
	return created.Equal(today) || created.Equal(today.AddDate(0, 0, -1))
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatDay renders the calendar day of t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ParseDay parses a YYYY-MM-DD calendar day in the local time zone.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing day %q: %w", s, err)
	}
	return t, nil
}

// FormatDuration renders hours and minutes as "1h 30m", carrying overflowing minutes.
func FormatDuration(hours, minutes int) string {
	total := hours*60 + minutes
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}

// SumMinutes totals the duration of entries.
func SumMinutes(entries []TimeLogEntry) int {
	total := 0
	for _, e := range entries {
		total += e.TotalMinutes()
	}
	return total
}
