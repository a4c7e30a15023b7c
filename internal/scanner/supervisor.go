package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/kraklabs/devsentry/internal/logging"
	"github.com/kraklabs/devsentry/internal/metrics"
	"github.com/kraklabs/devsentry/internal/store"
)

// Supervisor is the single long-lived task that drives the Auto-Scanner
// scheduling loop (spec.md §4.C). Exactly one Supervisor should run per
// server process; each eligible repository becomes a child scan task
// bounded by a global semaphore.
type Supervisor struct {
	store    *store.Store
	repos    RepoEnsurer
	analyzer Analyzer
	sink     FindingsSink

	tickInterval      time.Duration
	maxConcurrent     int
	progressBatchSize int
	credentialToken   string

	sem chan struct{}

	mu           sync.Mutex
	activeScans  map[string]context.CancelFunc
}

// NewSupervisor wires the scheduler with its concurrency knobs (spec.md
// §5: global scan concurrency default 2).
func NewSupervisor(s *store.Store, repos RepoEnsurer, analyzer Analyzer, sink FindingsSink, tickInterval time.Duration, maxConcurrent, progressBatchSize int, credentialToken string) *Supervisor {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	if tickInterval <= 0 || tickInterval > 60*time.Second {
		tickInterval = 30 * time.Second
	}
	return &Supervisor{
		store: s, repos: repos, analyzer: analyzer, sink: sink,
		tickInterval: tickInterval, maxConcurrent: maxConcurrent, progressBatchSize: progressBatchSize,
		credentialToken: credentialToken,
		sem:             make(chan struct{}, maxConcurrent),
		activeScans:     make(map[string]context.CancelFunc),
	}
}

// Run blocks, ticking at the configured interval, until ctx is
// cancelled. On cancellation every in-flight scan task is asked to
// stop cooperatively at its next progress-batch boundary (spec.md
// §4.C "Cancellation").
func (sv *Supervisor) Run(ctx context.Context) {
	logging.Scanner("auto-scanner supervisor starting, tick=%s, max_concurrent=%d", sv.tickInterval, sv.maxConcurrent)
	ticker := time.NewTicker(sv.tickInterval)
	defer ticker.Stop()

	sv.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			sv.cancelAll()
			logging.Scanner("auto-scanner supervisor stopping")
			return
		case <-ticker.C:
			sv.tick(ctx)
		}
	}
}

// tick implements spec.md §4.C's scheduling loop steps 1-2: find
// eligible repos, touch their last_checked_at immediately, and spawn a
// bounded scan task for each one a semaphore slot is available for.
func (sv *Supervisor) tick(ctx context.Context) {
	repos, err := sv.store.ListRepositories(ctx, true)
	if err != nil {
		logging.Get(logging.CategoryScanner).Warn("failed to list repositories: %v", err)
		return
	}

	now := time.Now().Unix()
	for _, repo := range repos {
		if !eligible(repo, now) {
			continue
		}

		// Step 3: update last_checked_at immediately, regardless of
		// whether the scan actually runs below, to prevent starvation.
		if err := sv.store.TouchLastChecked(ctx, repo.ID); err != nil {
			logging.Get(logging.CategoryScanner).Warn("failed to touch last_checked_at for %s: %v", repo.Name, err)
		}

		select {
		case sv.sem <- struct{}{}:
		default:
			continue // no capacity this tick; retried next tick
		}

		scanCtx, cancel := context.WithCancel(ctx)
		sv.mu.Lock()
		sv.activeScans[repo.ID] = cancel
		sv.mu.Unlock()
		metrics.ActiveScans.Set(float64(sv.ActiveScans()))

		go func(r *store.Repository) {
			defer func() {
				<-sv.sem
				sv.mu.Lock()
				delete(sv.activeScans, r.ID)
				sv.mu.Unlock()
				cancel()
				metrics.ActiveScans.Set(float64(sv.ActiveScans()))
			}()

			task := NewTask(sv.store, sv.repos, sv.analyzer, sv.sink, sv.progressBatchSize, sv.credentialToken)
			outcome := "success"
			if err := task.Run(scanCtx, r); err != nil {
				outcome = "error"
				logging.Get(logging.CategoryScanner).Warn("scan failed for %s: %v", r.Name, err)
			}
			metrics.ScansTotal.WithLabelValues(outcome).Inc()
		}(repo)
	}
}

func (sv *Supervisor) cancelAll() {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	for _, cancel := range sv.activeScans {
		cancel()
	}
}

// ActiveScans reports how many scans are currently in flight, for the
// /health endpoint (spec.md §6).
func (sv *Supervisor) ActiveScans() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return len(sv.activeScans)
}

func eligible(repo *store.Repository, nowUnix int64) bool {
	if repo.LastCheckedAt == nil {
		return true
	}
	intervalSeconds := int64(repo.ScanIntervalMin) * 60
	return nowUnix-*repo.LastCheckedAt >= intervalSeconds
}
