// Package quota enforces the per-entry and per-day ceilings on logged time.
package quota

import (
	"fmt"

	"github.com/christopherklint97/adotime/internal/model"
)

const (
	// MaxEntryMinutes caps a single log at 24 hours.
	MaxEntryMinutes = 24 * 60
	// MaxDayMinutes caps the total logged for one calendar day at 36 hours.
	MaxDayMinutes = 36 * 60
)

// Duration is a candidate amount of time in hours and minutes.
type Duration struct {
	Hours   int
	Minutes int
}

func (d Duration) Total() int {
	return d.Hours*60 + d.Minutes
}

type Reason int

const (
	ReasonZero Reason = iota + 1
	ReasonEntryTooLong
	ReasonDailyLimit
)

func (r Reason) String() string {
	switch r {
	case ReasonZero:
		return "zero-duration"
	case ReasonEntryTooLong:
		return "entry-too-long"
	case ReasonDailyLimit:
		return "daily-limit"
	}
	return "unknown"
}

// Rejection explains why a candidate duration may not be written. Remaining is
// the allowance left for the day and is only meaningful for ReasonDailyLimit.
type Rejection struct {
	Reason    Reason
	Remaining int
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonZero:
		return "time log must be greater than zero"
	case ReasonEntryTooLong:
		return "a single time log cannot exceed 24 hours"
	case ReasonDailyLimit:
		if r.Remaining <= 0 {
			return "you have already logged 36 hours for this day"
		}
		return fmt.Sprintf("exceeds 36-hour daily limit: you can only log %s more", model.FormatDuration(0, r.Remaining))
	}
	return "time log rejected"
}

// Validate checks candidate against the day's existing entries. When exclude is
// set, the entry with that id is left out of the day's total so an edit is not
// counted twice. It returns nil or a *Rejection.
func Validate(candidate Duration, existing []model.TimeLogEntry, exclude model.LogID) error {
	minutes := candidate.Total()
	if minutes <= 0 {
		return &Rejection{Reason: ReasonZero}
	}
	if minutes > MaxEntryMinutes {
		return &Rejection{Reason: ReasonEntryTooLong}
	}

	logged := 0
	for _, e := range existing {
		if !exclude.IsZero() && e.LogID == exclude {
			continue
		}
		logged += e.TotalMinutes()
	}
	if logged+minutes > MaxDayMinutes {
		return &Rejection{Reason: ReasonDailyLimit, Remaining: MaxDayMinutes - logged}
	}
	return nil
}
