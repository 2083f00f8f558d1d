package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
)

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request with ErrEmbeddingQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// Budget periods, also used as metric label values.
const (
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"
)

// BudgetStore persists token counters. IncrBy may be called repeatedly for one key.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// window is one rolling budget period.
type window struct {
	name   string
	limit  int64 // 0 = unlimited
	used   int64
	start  time.Time
	layout string
	trunc  func(time.Time) time.Time
}

func (w *window) roll(now time.Time) {
	if start := w.trunc(now); start.After(w.start) {
		w.start = start
		w.used = 0
	}
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

// BudgetTracker enforces daily and monthly token limits. Check reads memory
// only; Record updates memory and then writes the increment behind to the
// store, if one is attached.
type BudgetTracker struct {
	mu       sync.Mutex
	daily    window
	monthly  window
	action   BudgetAction
	provider string
	now      func() time.Time
	store    BudgetStore
	timeout  time.Duration
	logger   *zap.Logger
}

// BudgetOption configures a BudgetTracker.
type BudgetOption func(*BudgetTracker)

// WithBudgetClock overrides the time source.
func WithBudgetClock(now func() time.Time) BudgetOption {
	return func(b *BudgetTracker) { b.now = now }
}

// NewBudgetTracker creates a tracker. A zero limit disables that period.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger, opts ...BudgetOption,
) *BudgetTracker {
	b := &BudgetTracker{
		daily:    window{name: PeriodDaily, limit: dailyLimit, layout: "2006-01-02", trunc: truncateToDay},
		monthly:  window{name: PeriodMonthly, limit: monthlyLimit, layout: "2006-01", trunc: truncateToMonth},
		action:   action,
		provider: provider,
		now:      time.Now,
		timeout:  2 * time.Second,
		logger:   logger,
	}
	for _, o := range opts {
		o(b)
	}
	now := b.now().UTC()
	b.daily.start = truncateToDay(now)
	b.monthly.start = truncateToMonth(now)
	return b
}

// WithStore attaches persistence and loads the current period counters.
// Load failures are logged and leave the counters at zero.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now().UTC()
	for _, w := range b.windows() {
		w.roll(now)
		val, err := store.Get(ctx, b.key(w, now))
		if err != nil {
			b.logger.Warn("Failed to load token budget", zap.String("period", w.name), zap.Error(err))
			continue
		}
		w.used = val
	}

	b.logger.Info("Token budget loaded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("monthly_used", b.monthly.used),
	)
	return b
}

func (b *BudgetTracker) windows() [2]*window { return [2]*window{&b.daily, &b.monthly} }

func (b *BudgetTracker) key(w *window, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, w.name, t.Format(w.layout))
}

// Check reports whether a new request fits the budget.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	var over *window
	for _, w := range b.windows() {
		w.roll(now)
		if w.exceeded() && over == nil {
			over = w
		}
	}
	if over == nil {
		return nil
	}

	if b.action == BudgetActionReject {
		return fmt.Errorf("%s token budget of %d used up: %w", over.name, over.limit, domain.ErrEmbeddingQuotaExceeded)
	}
	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.String("period", over.name),
		zap.Int64("used", over.used),
		zap.Int64("limit", over.limit),
	)
	return nil
}

// Record adds consumed tokens, then persists the increment if a store is attached.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	now := b.now().UTC()
	keys := make([]string, 0, 2)
	for _, w := range b.windows() {
		w.roll(now)
		w.used += tokens
		keys = append(keys, b.key(w, now))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	// detached from the caller: the embedding already happened
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	for _, key := range keys {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist token budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// Remaining returns tokens left in a period, -1 when unlimited.
func (b *BudgetTracker) Remaining(period string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	for _, w := range b.windows() {
		if w.name == period {
			w.roll(now)
			return w.remaining()
		}
	}
	return -1
}

// Limit returns the configured cap for a period, 0 when unlimited.
func (b *BudgetTracker) Limit(period string) int64 {
	for _, w := range b.windows() {
		if w.name == period {
			return w.limit
		}
	}
	return 0
}

// Used returns tokens consumed in a period.
func (b *BudgetTracker) Used(period string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	for _, w := range b.windows() {
		if w.name == period {
			w.roll(now)
			return w.used
		}
	}
	return 0
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
