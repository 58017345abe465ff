package compliance

import (
	"errors"
	"strconv"
	"time"
)

// ErrInvalidDate is returned when a due-date or completion-date string can
// be parsed neither as a day-of-month numeral nor as a calendar date.
var ErrInvalidDate = errors.New("invalid date")

// DueDateKind tags the two legal due-date encodings plus the invalid case
type DueDateKind int

const (
	DueDateDayOfMonth DueDateKind = iota
	DueDateCalendar
	DueDateInvalid
)

// DueDate is the resolved form of the ambiguous due-date string encoding:
// either a recurring day-of-month or a concrete calendar date.
type DueDate struct {
	Kind DueDateKind
	Day  int       // set when Kind == DueDateDayOfMonth
	Date time.Time // set when Kind == DueDateCalendar
	Raw  string
}

// ParseDueDate classifies a due-date representation. Strings of length one
// or two are interpreted as a day-of-month numeral; anything longer is
// parsed as a calendar date.
func ParseDueDate(s string) DueDate {
	if len(s) <= 2 {
		day, err := strconv.Atoi(s)
		if err != nil || day < 1 {
			return DueDate{Kind: DueDateInvalid, Raw: s}
		}
		return DueDate{Kind: DueDateDayOfMonth, Day: day, Raw: s}
	}

	date, err := parseCalendarDate(s)
	if err != nil {
		return DueDate{Kind: DueDateInvalid, Raw: s}
	}
	return DueDate{Kind: DueDateCalendar, Date: date, Raw: s}
}

// Resolve turns the due date into a concrete calendar date. Day-of-month
// forms borrow the year and month of ref; a day beyond the end of ref's
// month rolls over into the next month, which is accepted behavior.
func (d DueDate) Resolve(ref time.Time) (time.Time, error) {
	switch d.Kind {
	case DueDateDayOfMonth:
		return time.Date(ref.Year(), ref.Month(), d.Day, 0, 0, 0, 0, ref.Location()), nil
	case DueDateCalendar:
		return atMidnight(d.Date), nil
	default:
		return time.Time{}, ErrInvalidDate
	}
}

// DelayDays computes the whole-day delay between a record's due date and
// its actual completion date. The due date is resolved against the
// completion date's year and month, not against today. Early completion
// clamps to zero.
func DelayDays(dueDate, actualCompletion string) (int, error) {
	actual, err := parseCalendarDate(actualCompletion)
	if err != nil {
		return 0, ErrInvalidDate
	}

	due, err := ParseDueDate(dueDate).Resolve(actual)
	if err != nil {
		return 0, err
	}

	days := wholeDays(due, actual)
	if days < 0 {
		return 0, nil
	}
	return days, nil
}

// UrgencyLevel classifies a record's due-date proximity relative to today
type UrgencyLevel string

const (
	UrgencyOverdue  UrgencyLevel = "overdue"
	UrgencyUpcoming UrgencyLevel = "upcoming"
	UrgencyNone     UrgencyLevel = "none"
)

// UpcomingWindowDays is the reminder horizon for upcoming deadlines
const UpcomingWindowDays = 3

// DaysUntilDue returns the whole-day distance from today to the record's
// due date resolved against today's year and month. Negative values mean
// the deadline has passed.
func DaysUntilDue(dueDate string, today time.Time) (int, error) {
	due, err := ParseDueDate(dueDate).Resolve(today)
	if err != nil {
		return 0, err
	}
	return wholeDays(today, due), nil
}

// Urgency classifies due-date proximity: overdue when the resolved date has
// passed, upcoming within the reminder window, none otherwise. Invalid
// dates classify as none.
func Urgency(dueDate string, today time.Time) UrgencyLevel {
	days, err := DaysUntilDue(dueDate, today)
	if err != nil {
		return UrgencyNone
	}
	switch {
	case days < 0:
		return UrgencyOverdue
	case days <= UpcomingWindowDays:
		return UrgencyUpcoming
	default:
		return UrgencyNone
	}
}

func parseCalendarDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}

func atMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// wholeDays counts calendar days from one date to the next. Normalizing
// both ends to UTC midnight keeps DST-shortened and -lengthened days from
// skewing the count.
func wholeDays(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}
