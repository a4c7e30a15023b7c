package repomanager

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/logging"
	"github.com/kraklabs/devsentry/internal/store"
)

// Manager clones or updates repositories into a managed workspace under
// reposDir and reports their sync state (spec.md §4.B).
type Manager struct {
	store    *store.Store
	reposDir string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex // per-repo id, serializes concurrent Ensure calls
}

// New wires a persistence store and workspace root together.
func New(s *store.Store, reposDir string) *Manager {
	return &Manager{store: s, reposDir: reposDir, locks: make(map[string]*sync.Mutex)}
}

func (m *Manager) lockFor(repoID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[repoID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[repoID] = l
	}
	return l
}

// Ensure brings a repository's local workspace up to date: clones it if
// absent, pulls otherwise. A per-repo mutex serializes concurrent Ensure
// calls for the same repository (spec.md §4.B "per-repo mutex
// serializing concurrent ensure calls"); callers for different
// repositories proceed in parallel.
func (m *Manager) Ensure(ctx context.Context, repo *store.Repository, credentialToken string) error {
	lock := m.lockFor(repo.ID)
	lock.Lock()
	defer lock.Unlock()

	if !strings.HasPrefix(repo.RemoteURL, "https://") {
		return apperr.Validation("remote URL must use https")
	}

	start := time.Now()
	localPath := repo.LocalPath
	if localPath == "" {
		localPath = filepath.Join(m.reposDir, repo.Name)
	}

	if err := m.store.TransitionScanStatus(ctx, repo.ID, store.ScanStatusCloning); err != nil {
		return err
	}

	exists := workspaceExists(localPath)
	var err error
	var eventType string
	if !exists {
		err = Clone(ctx, localPath, CloneOptions{
			RemoteURL:       repo.RemoteURL,
			CredentialToken: credentialToken,
			Depth:           repo.CloneDepth,
			Branch:          repo.DefaultBranch,
		})
		eventType = "repo_cloned"
	} else {
		err = Pull(ctx, localPath, credentialToken)
		eventType = "repo_updated"
	}

	duration := time.Since(start)
	if err != nil {
		_ = m.store.RecordScanOutcome(ctx, repo.ID, false, duration.Milliseconds(), err.Error())
		_ = m.store.LogEvent(ctx, &repo.ID, "scan_error", "ensure failed: "+err.Error(), nil, "error")
		return err
	}

	_ = m.store.LogEvent(ctx, &repo.ID, eventType, "repository synced", nil, "info")
	return m.store.RecordScanOutcome(ctx, repo.ID, true, duration.Milliseconds(), "")
}

// Info reports the current local sync state of a repository without
// performing any network I/O.
type Info struct {
	LocalPath  string
	Exists     bool
	HeadCommit string
}

// Info returns the current on-disk state for a repository (spec.md
// §4.B "report sync state").
func (m *Manager) Info(ctx context.Context, repo *store.Repository) (*Info, error) {
	localPath := repo.LocalPath
	if localPath == "" {
		localPath = filepath.Join(m.reposDir, repo.Name)
	}
	if !workspaceExists(localPath) {
		return &Info{LocalPath: localPath, Exists: false}, nil
	}
	head, err := HeadCommit(ctx, localPath)
	if err != nil {
		logging.Get(logging.CategoryRepo).Warn("failed to read HEAD for %s: %v", repo.Name, err)
		return &Info{LocalPath: localPath, Exists: true}, nil
	}
	return &Info{LocalPath: localPath, Exists: true, HeadCommit: head}, nil
}

func workspaceExists(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && (info.IsDir() || info.Mode().IsRegular())
}
