package supervisor

import (
	"time"

	"github.com/cenkalti/backoff"
)

// ScheduleBackOff is a backoff.BackOff that walks a fixed schedule and then keeps
// returning its last step. It never returns backoff.Stop.
type ScheduleBackOff struct {
	schedule []time.Duration
	attempt  int
}

var _ backoff.BackOff = (*ScheduleBackOff)(nil)

func NewScheduleBackOff(schedule []time.Duration) *ScheduleBackOff {
	if len(schedule) == 0 {
		schedule = DefaultDependencyBackoff()
	}
	return &ScheduleBackOff{schedule: schedule}
}

// NextBackOff returns schedule[min(n, len-1)] for the n-th call since the last Reset.
func (b *ScheduleBackOff) NextBackOff() time.Duration {
	idx := b.attempt
	if idx > len(b.schedule)-1 {
		idx = len(b.schedule) - 1
	}
	b.attempt++
	return b.schedule[idx]
}

func (b *ScheduleBackOff) Reset() {
	b.attempt = 0
}
