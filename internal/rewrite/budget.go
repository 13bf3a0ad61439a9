package rewrite

import (
	"fmt"
	"sync"
	"time"

	"github.com/deusflow/newspulse/internal/logger"
)

// Budget caps the number of generation requests per day so a retry loop can
// never burn through the API quota.
type Budget struct {
	mu      sync.Mutex
	count   int
	max     int // 0 = unlimited
	resetAt time.Time
}

func NewBudget(max int) *Budget {
	return &Budget{
		max:     max,
		resetAt: time.Now().Add(24 * time.Hour),
	}
}

// Acquire counts one generation request. Returns an error when the daily
// budget is exhausted.
func (b *Budget) Acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if time.Now().After(b.resetAt) {
		b.count = 0
		b.resetAt = time.Now().Add(24 * time.Hour)
		logger.Info("generation request budget reset", "max", b.max)
	}

	if b.max > 0 && b.count >= b.max {
		return fmt.Errorf("generation request budget exhausted (%d/%d)", b.count, b.max)
	}
	b.count++
	return nil
}

// Used reports consumed and maximum requests for the current window.
func (b *Budget) Used() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count, b.max
}
