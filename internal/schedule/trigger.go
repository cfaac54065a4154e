package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTrigger = errors.New("invalid weekly trigger")

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Trigger fires once a week at a fixed local wall-clock time.
type Trigger struct {
	Name    string
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// ParseTrigger parses "<weekday> <HH:MM>", e.g. "mon 10:00".
func ParseTrigger(name, expr string) (Trigger, error) {
	fields := strings.Fields(strings.ToLower(expr))
	if len(fields) != 2 {
		return Trigger{}, fmt.Errorf("%w %q: want \"<weekday> <HH:MM>\"", ErrInvalidTrigger, expr)
	}

	day, ok := weekdays[fields[0]]
	if !ok {
		return Trigger{}, fmt.Errorf("%w %q: unknown weekday %q", ErrInvalidTrigger, expr, fields[0])
	}

	hh, mm, found := strings.Cut(fields[1], ":")
	if !found {
		return Trigger{}, fmt.Errorf("%w %q: time must be HH:MM", ErrInvalidTrigger, expr)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return Trigger{}, fmt.Errorf("%w %q: bad hour", ErrInvalidTrigger, expr)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return Trigger{}, fmt.Errorf("%w %q: bad minute", ErrInvalidTrigger, expr)
	}

	return Trigger{Name: name, Weekday: day, Hour: hour, Minute: minute}, nil
}

// Next returns the first firing time strictly after t, in t's location.
func (tr Trigger) Next(t time.Time) time.Time {
	days := (int(tr.Weekday) - int(t.Weekday()) + 7) % 7
	candidate := time.Date(t.Year(), t.Month(), t.Day()+days, tr.Hour, tr.Minute, 0, 0, t.Location())
	if !candidate.After(t) {
		candidate = time.Date(t.Year(), t.Month(), t.Day()+days+7, tr.Hour, tr.Minute, 0, 0, t.Location())
	}
	return candidate
}

func (tr Trigger) String() string {
	return fmt.Sprintf("%s (%s %02d:%02d)", tr.Name, tr.Weekday, tr.Hour, tr.Minute)
}
