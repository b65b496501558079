package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/masa-finance/liveness-supervisor/api/types"
	"github.com/masa-finance/liveness-supervisor/internal/audit"
	"github.com/masa-finance/liveness-supervisor/internal/metrics"
	"github.com/masa-finance/liveness-supervisor/internal/store"
)

const (
	crashPenaltyPerError = 10
	pruneInterval        = time.Hour
)

// crashProbe counts recent failures per source, assigns a tier and keeps the
// health ledger up to date.
type crashProbe struct {
	events     store.EventLog
	ledger     store.LedgerStore
	window     time.Duration
	retention  time.Duration
	thresholds CrashThresholds
	excluded   []string
	onDisable  func(source string)
	audit      *audit.Writer
	metrics    metrics.Recorder

	mu        sync.Mutex
	disabled  map[string]time.Time
	lastPrune time.Time
}

func (p *crashProbe) Name() string { return "crash" }

func (p *crashProbe) Check(ctx context.Context, now time.Time) error {
	if p.events == nil {
		return nil
	}

	counts, err := p.events.CountErrorsBySource(ctx, now.Add(-p.window))
	if err != nil {
		return fmt.Errorf("%w: counting errors: %v", ErrProbeFailure, err)
	}

	sources := make([]string, 0, len(counts))
	for src, n := range counts {
		if n > 0 && !p.isExcluded(src) {
			sources = append(sources, src)
		}
	}
	sort.Strings(sources)

	var errs []error
	for _, src := range sources {
		count := counts[src]
		p.classify(src, count, now)
		if err := p.updateLedger(ctx, src, count, now); err != nil {
			errs = append(errs, err)
		}
	}

	p.prune(ctx, now)
	return errors.Join(errs...)
}

func (p *crashProbe) isExcluded(source string) bool {
	if source == SourceSupervisor || strings.HasPrefix(source, SourceSupervisor+".") {
		return true
	}
	return slices.Contains(p.excluded, source)
}

func (p *crashProbe) classify(source string, count int, now time.Time) {
	log := logrus.WithFields(logrus.Fields{"source": source, "errors": count, "window": p.window.String()})

	switch {
	case count >= p.thresholds.Disabled:
		p.mu.Lock()
		_, already := p.disabled[source]
		if !already {
			p.disabled[source] = now
		}
		p.mu.Unlock()
		if already {
			return
		}
		log.Error("Source disabled after repeated failures")
		p.metrics.CrashTier("disabled")
		p.audit.Write(sourceCrash, fmt.Sprintf("source %s disabled: %d errors in %v", source, count, p.window), CategorySourceDisabled, WeightSourceDisabled)
		if p.onDisable != nil {
			p.onDisable(source)
		}
	case p.isDisabled(source):
		// Disabled is terminal; lower counts do not downgrade it.
	case count >= p.thresholds.Degraded:
		log.Warn("Source degraded")
		p.metrics.CrashTier("degraded")
	case count >= p.thresholds.Advisory:
		log.Info("Source shows repeated failures")
		p.metrics.CrashTier("advisory")
	}
}

func (p *crashProbe) isDisabled(source string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.disabled[source]
	return ok
}

// Disabled returns the disabled sources, sorted.
func (p *crashProbe) Disabled() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.disabled))
	for src := range p.disabled {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

func (p *crashProbe) updateLedger(ctx context.Context, source string, count int, now time.Time) error {
	if p.ledger == nil {
		return nil
	}

	entry, err := p.ledger.GetLedgerEntry(ctx, source)
	switch {
	case errors.Is(err, store.ErrNotFound):
		entry = types.NewLedgerEntry(source)
	case err != nil:
		return fmt.Errorf("%w: reading ledger for %s: %v", ErrProbeFailure, source, err)
	}

	penalty := min(count*crashPenaltyPerError, types.MaxHealthScore)
	entry.HealthScore = max(0, entry.HealthScore-penalty)
	entry.CrashCount += count
	if count >= p.thresholds.Advisory {
		entry.ChronicIssue = true
	}
	entry.LastUpdated = now

	if err := p.ledger.UpsertLedgerEntry(ctx, entry); err != nil {
		return fmt.Errorf("%w: writing ledger for %s: %v", ErrProbeFailure, source, err)
	}
	return nil
}

func (p *crashProbe) prune(ctx context.Context, now time.Time) {
	p.mu.Lock()
	due := p.lastPrune.IsZero() || now.Sub(p.lastPrune) >= pruneInterval
	if due {
		p.lastPrune = now
	}
	p.mu.Unlock()
	if !due {
		return
	}

	n, err := p.events.PruneEvents(ctx, now.Add(-p.retention))
	if err != nil {
		logrus.Debugf("Pruning event log failed: %v", err)
		return
	}
	if n > 0 {
		logrus.Debugf("Pruned %d events older than %v", n, p.retention)
	}
}
