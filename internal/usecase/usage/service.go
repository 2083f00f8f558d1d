package usage

import (
	"context"
	"time"

	domusage "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/usage"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/embedding"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Report builds the usage report for the window of period containing now.
func (s *Service) Report(_ context.Context, period domusage.Period) domusage.Report {
	if s.br == nil {
		return domusage.NewReport(period, s.now(), 0, 0, -1)
	}

	name := embedding.PeriodDaily
	if period == domusage.PeriodMonth {
		name = embedding.PeriodMonthly
	}
	return domusage.NewReport(period, s.now(), s.br.Limit(name), s.br.Used(name), s.br.Remaining(name))
}
