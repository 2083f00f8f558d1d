// Package usage describes embedding token consumption against the configured budget.
package usage

import (
	"fmt"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
)

// Period is the budget window a report covers.
type Period string

// Report periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a raw period. Empty means PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: period must be %q or %q, got %q", domain.ErrValidation, PeriodDay, PeriodMonth, s)
	}
}

// Bounds returns the [start, end) window of p containing now, in UTC.
func (p Period) Bounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	if p == PeriodMonth {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Budget is the token cap state for one window. A zero limit means unlimited
// and Remaining is then -1.
type Budget struct {
	Limit     int64 `json:"tokens_limit"`
	Remaining int64 `json:"tokens_remaining"`
	Exhausted bool  `json:"is_exhausted"`
}

// Report is the embedding usage for one window.
type Report struct {
	Period     Period    `json:"period"`
	Start      time.Time `json:"period_start"`
	End        time.Time `json:"period_end"`
	TokensUsed int64     `json:"tokens_used"`
	Budget     Budget    `json:"budget"`
}

// NewReport builds the report for p at now.
func NewReport(p Period, now time.Time, limit, used, remaining int64) Report {
	start, end := p.Bounds(now)
	return Report{
		Period:     p,
		Start:      start,
		End:        end,
		TokensUsed: used,
		Budget: Budget{
			Limit:     limit,
			Remaining: remaining,
			Exhausted: limit > 0 && remaining <= 0,
		},
	}
}
