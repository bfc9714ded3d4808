package clock

import "time"

// Budget tracks elapsed wall-clock time against a limit. It is checked
// cooperatively between units of work; it never interrupts one.
type Budget struct {
	clock   Clock
	started time.Time
	limit   time.Duration
}

// StartBudget starts a budget of limit measured on c. A non-positive limit
// never expires.
func StartBudget(c Clock, limit time.Duration) *Budget {
	return &Budget{clock: c, started: c.Now(), limit: limit}
}

func (b *Budget) Elapsed() time.Duration {
	return b.clock.Now().Sub(b.started)
}

func (b *Budget) Exceeded() bool {
	if b.limit <= 0 {
		return false
	}
	return b.Elapsed() > b.limit
}
