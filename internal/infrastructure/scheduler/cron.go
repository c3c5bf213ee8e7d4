package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CronSchedule is a standard 5-field cron expression evaluated in a fixed
// location:
//   - "0 0 * * *"   - every day at midnight
//   - "*/5 * * * *" - every 5 minutes
//
// Descriptors such as "@daily" and "@every 1m" are accepted too.
type CronSchedule struct {
	expr     string
	schedule cron.Schedule
	loc      *time.Location
}

// ParseCron parses expr. A nil loc means UTC.
func ParseCron(expr string, loc *time.Location) (*CronSchedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("cron: empty expression")
	}
	if loc == nil {
		loc = time.UTC
	}

	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("cron: parse %q: %w", expr, err)
	}

	return &CronSchedule{expr: expr, schedule: sched, loc: loc}, nil
}

// MustParseCron parses a cron expression or panics.
func MustParseCron(expr string, loc *time.Location) *CronSchedule {
	s, err := ParseCron(expr, loc)
	if err != nil {
		panic(err)
	}
	return s
}

// Next returns the first activation strictly after t.
func (s *CronSchedule) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// String returns the original expression and its location.
func (s *CronSchedule) String() string {
	return fmt.Sprintf("%s (%s)", s.expr, s.loc)
}

// Common cron expressions.
const (
	CronMidnight    = "0 0 * * *"
	CronEveryMinute = "* * * * *"
)
