package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devsentry/internal/store"
)

func TestSupervisorTouchesLastCheckedRegardlessOfCapacity(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("a"), 0644))

	var repos []*store.Repository
	for i := 0; i < 3; i++ {
		r, err := s.CreateRepository(ctx, &store.Repository{
			Name: "repo" + string(rune('a'+i)), RemoteURL: "https://example.com/x.git",
			LocalPath: root, AutoScan: true, ScanIntervalMin: 5,
		})
		require.NoError(t, err)
		repos = append(repos, r)
	}

	var analyzed int32
	analyzer := analyzerFunc(func(ctx context.Context, repoID, path, content string) (AnalysisOutcome, error) {
		atomic.AddInt32(&analyzed, 1)
		return AnalysisOutcome{}, nil
	})

	sv := NewSupervisor(s, &fakeEnsurer{localPath: root}, analyzer, nil, time.Second, 1, 5, "")
	sv.tick(ctx)

	// Capacity is 1, so only one of the three eligible repos should have
	// gotten a scan slot this tick; all three must still have
	// last_checked_at stamped to avoid starving the other two forever.
	time.Sleep(100 * time.Millisecond)

	for _, r := range repos {
		updated, err := s.GetRepository(ctx, r.ID)
		require.NoError(t, err)
		assert.NotNil(t, updated.LastCheckedAt, "last_checked_at must be stamped even when no scan slot was available")
	}
}

func TestEligibleRespectsInterval(t *testing.T) {
	now := time.Now().Unix()
	past := now - 3600
	recent := now - 10

	assert.True(t, eligible(&store.Repository{ScanIntervalMin: 5, LastCheckedAt: &past}, now))
	assert.False(t, eligible(&store.Repository{ScanIntervalMin: 60, LastCheckedAt: &recent}, now))
	assert.True(t, eligible(&store.Repository{ScanIntervalMin: 60}, now), "never-checked repos are always eligible")
}

type analyzerFunc func(ctx context.Context, repoID, path, content string) (AnalysisOutcome, error)

func (f analyzerFunc) AnalyzeFile(ctx context.Context, repoID, path, content string) (AnalysisOutcome, error) {
	return f(ctx, repoID, path, content)
}
