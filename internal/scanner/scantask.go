package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/logging"
	"github.com/kraklabs/devsentry/internal/repomanager"
	"github.com/kraklabs/devsentry/internal/store"
)

// AnalysisOutcome is what a single file analysis yields: an issue
// count for the scan summary and a raw findings payload the Task
// Generator can parse (spec.md §4.C step 5, §4.G).
type AnalysisOutcome struct {
	IssuesFound  int
	FindingsJSON string
}

// Analyzer submits one file's content to the LLM Gateway for analysis.
// Abstracted so the scanner does not depend on the gateway's concrete
// request/prompt shape.
type Analyzer interface {
	AnalyzeFile(ctx context.Context, repoID, path, content string) (AnalysisOutcome, error)
}

// FindingsSink receives a completed file's findings payload for
// conversion into queued tasks (spec.md §4.G). A nil sink is valid —
// findings are still counted but not persisted as tasks.
type FindingsSink interface {
	Ingest(ctx context.Context, repoID, source string, findingsJSON string) error
}

// RepoEnsurer is the subset of *repomanager.Manager the scanner needs,
// narrowed to an interface so scan tasks can be tested without
// shelling out to a real git binary.
type RepoEnsurer interface {
	Ensure(ctx context.Context, repo *store.Repository, credentialToken string) error
	Info(ctx context.Context, repo *store.Repository) (*repomanager.Info, error)
}

// Task runs one repository through the scan state machine of spec.md
// §4.C: clone/update, enumerate changed files, analyze, summarize.
type Task struct {
	store      *store.Store
	repos      RepoEnsurer
	analyzer   Analyzer
	sink       FindingsSink
	progressN  int
	credential string
}

// NewTask wires the dependencies one scan run needs.
func NewTask(s *store.Store, repos RepoEnsurer, analyzer Analyzer, sink FindingsSink, progressBatchSize int, credentialToken string) *Task {
	if progressBatchSize <= 0 {
		progressBatchSize = 5
	}
	return &Task{store: s, repos: repos, analyzer: analyzer, sink: sink, progressN: progressBatchSize, credential: credentialToken}
}

// Run executes the full per-repo scan (spec.md §4.C "Scan task",
// steps 1-7). It never returns with the repository left in a
// non-terminal scan_status: every exit path transitions to idle or
// error before returning.
//
// Bookkeeping writes (status transitions, progress, events) use a
// detached background context rather than ctx: a caller cancelling
// the scan (shutdown, forced abort) must still observe the repository
// land in a terminal state, so persistence cannot itself be subject to
// the same cancellation it is recording.
func (t *Task) Run(ctx context.Context, repo *store.Repository) error {
	bg := context.Background()
	start := time.Now()
	_ = t.store.LogEvent(bg, &repo.ID, "scan_start", "scan starting", nil, "info")

	if err := t.repos.Ensure(ctx, repo, t.credential); err != nil {
		t.fail(bg, repo, start, err)
		return err
	}
	if err := t.store.TransitionScanStatus(bg, repo.ID, store.ScanStatusScanning); err != nil {
		t.fail(bg, repo, start, err)
		return err
	}

	localPath := repo.LocalPath
	if localPath == "" {
		info, err := t.repos.Info(ctx, repo)
		if err != nil {
			t.fail(bg, repo, start, err)
			return err
		}
		localPath = info.LocalPath
	}

	changed, allPaths, err := t.changedFiles(bg, repo.ID, localPath)
	if err != nil {
		t.fail(bg, repo, start, err)
		return err
	}

	if err := t.store.UpdateScanProgress(bg, repo.ID, len(changed), 0, "", 0); err != nil {
		t.fail(bg, repo, start, err)
		return err
	}
	if err := t.store.TransitionScanStatus(bg, repo.ID, store.ScanStatusAnalyzing); err != nil {
		t.fail(bg, repo, start, err)
		return err
	}

	issuesFound, aborted, err := t.analyzeAll(ctx, bg, repo, localPath, changed)
	if err != nil {
		t.fail(bg, repo, start, err)
		return err
	}
	if aborted {
		_ = t.store.LogEvent(bg, &repo.ID, "scan_error", "scan_aborted", nil, "warn")
		return t.store.TransitionScanStatus(bg, repo.ID, store.ScanStatusIdle)
	}

	_ = t.store.DeleteFileHashesNotIn(bg, repo.ID, allPaths)

	duration := time.Since(start)
	_ = t.store.UpdateScanProgress(bg, repo.ID, len(changed), len(changed), "", issuesFound)
	if err := t.store.RecordScanOutcome(bg, repo.ID, true, duration.Milliseconds(), ""); err != nil {
		return err
	}
	_ = t.store.LogEvent(bg, &repo.ID, "scan_complete",
		fmt.Sprintf("scan complete: %d files changed, %d issues found in %s", len(changed), issuesFound, duration), nil, "info")
	return nil
}

func (t *Task) fail(bg context.Context, repo *store.Repository, start time.Time, err error) {
	_ = t.store.TransitionScanStatus(bg, repo.ID, store.ScanStatusError)
	_ = t.store.LogEvent(bg, &repo.ID, "scan_error", "scan failed: "+err.Error(), nil, "error")
	_ = t.store.RecordScanOutcome(bg, repo.ID, false, time.Since(start).Milliseconds(), err.Error())
}

// changedFiles walks the workspace, hashes every candidate file, and
// returns the subset whose content hash differs from the last
// recorded one (spec.md §4.C step 3).
func (t *Task) changedFiles(ctx context.Context, repoID, localPath string) (changed []string, all []string, err error) {
	paths, err := Walk(localPath)
	if err != nil {
		return nil, nil, apperr.TransientIO("failed to walk repository", err)
	}

	previous, err := t.store.GetFileHashes(ctx, repoID)
	if err != nil {
		return nil, nil, err
	}

	for _, rel := range paths {
		abs := filepath.Join(localPath, rel)
		info, statErr := os.Stat(abs)
		if statErr != nil || !info.Mode().IsRegular() {
			continue
		}
		hash, hashErr := HashFile(abs)
		if hashErr != nil {
			logging.ScannerDebug("skipping unreadable file %s: %v", rel, hashErr)
			continue
		}
		if previous[rel] != hash {
			changed = append(changed, rel)
		}
	}
	return changed, paths, nil
}

// analyzeAll submits every changed file to the Analyzer in
// lexicographic order, batching progress writes every progressN files
// (spec.md §4.C step 5), and honors cooperative cancellation at batch
// boundaries.
func (t *Task) analyzeAll(ctx, bg context.Context, repo *store.Repository, localPath string, changed []string) (issuesFound int, aborted bool, err error) {
	for i, rel := range changed {
		if ctx.Err() != nil && i%t.progressN == 0 {
			return issuesFound, true, nil
		}

		abs := filepath.Join(localPath, rel)
		content, readErr := os.ReadFile(abs)
		if readErr != nil {
			logging.Get(logging.CategoryScanner).Warn("failed to read %s for analysis: %v", rel, readErr)
			continue
		}

		outcome, analyzeErr := t.analyzer.AnalyzeFile(ctx, repo.ID, rel, string(content))
		if analyzeErr != nil {
			_ = t.store.LogEvent(bg, &repo.ID, "scan_error", "analysis failed for "+rel+": "+analyzeErr.Error(), nil, "warn")
		} else {
			issuesFound += outcome.IssuesFound
			if outcome.FindingsJSON != "" && t.sink != nil {
				if err := t.sink.Ingest(bg, repo.ID, "scan", outcome.FindingsJSON); err != nil {
					logging.Get(logging.CategoryScanner).Warn("failed to ingest findings for %s: %v", rel, err)
				}
			}
		}

		hash, hashErr := HashFile(abs)
		if hashErr == nil {
			_ = t.store.PutFileHash(bg, repo.ID, rel, hash)
		}

		_ = t.store.LogEvent(bg, &repo.ID, "file_analyzed", rel, nil, "debug")

		if (i+1)%t.progressN == 0 || i == len(changed)-1 {
			_ = t.store.UpdateScanProgress(bg, repo.ID, len(changed), i+1, rel, issuesFound)
		}
	}
	return issuesFound, false, nil
}
