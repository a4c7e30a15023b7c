package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devsentry/internal/repomanager"
	"github.com/kraklabs/devsentry/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "devsentry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeEnsurer struct {
	localPath string
	err       error
}

func (f *fakeEnsurer) Ensure(ctx context.Context, repo *store.Repository, credentialToken string) error {
	return f.err
}

func (f *fakeEnsurer) Info(ctx context.Context, repo *store.Repository) (*repomanager.Info, error) {
	return &repomanager.Info{LocalPath: f.localPath, Exists: true}, nil
}

type recordingAnalyzer struct {
	seen []string
}

func (a *recordingAnalyzer) AnalyzeFile(ctx context.Context, repoID, path, content string) (AnalysisOutcome, error) {
	a.seen = append(a.seen, path)
	if path == "broken.go" {
		return AnalysisOutcome{}, assertErr
	}
	return AnalysisOutcome{IssuesFound: 1, FindingsJSON: `{"tasks":[]}`}, nil
}

var assertErr = errAnalysis{}

type errAnalysis struct{}

func (errAnalysis) Error() string { return "analysis failed" }

type recordingSink struct {
	ingested int
}

func (s *recordingSink) Ingest(ctx context.Context, repoID, source, findingsJSON string) error {
	s.ingested++
	return nil
}

func TestTaskRunAnalyzesChangedFilesAndReachesIdle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.go"), []byte("package broken"), 0644))

	repo, err := s.CreateRepository(ctx, &store.Repository{
		Name: "widgets", RemoteURL: "https://example.com/w.git", LocalPath: root, ScanIntervalMin: 60,
	})
	require.NoError(t, err)

	analyzer := &recordingAnalyzer{}
	sink := &recordingSink{}
	task := NewTask(s, &fakeEnsurer{localPath: root}, analyzer, sink, 5, "")

	require.NoError(t, task.Run(ctx, repo))

	updated, err := s.GetRepository(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ScanStatusIdle, updated.ScanStatus)
	assert.Equal(t, 1, updated.IssuesFound, "only a.go's analysis succeeds and reports one issue")
	assert.ElementsMatch(t, []string{"a.go", "broken.go"}, analyzer.seen)
	assert.Equal(t, 1, sink.ingested)

	hashes, err := s.GetFileHashes(ctx, repo.ID)
	require.NoError(t, err)
	assert.Len(t, hashes, 2)
}

func TestTaskRunSkipsUnchangedFilesOnSecondRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0644))

	repo, err := s.CreateRepository(ctx, &store.Repository{
		Name: "widgets", RemoteURL: "https://example.com/w.git", LocalPath: root, ScanIntervalMin: 60,
	})
	require.NoError(t, err)

	analyzer := &recordingAnalyzer{}
	task := NewTask(s, &fakeEnsurer{localPath: root}, analyzer, nil, 5, "")
	require.NoError(t, task.Run(ctx, repo))
	require.NoError(t, task.Run(ctx, repo))

	assert.Equal(t, []string{"a.go"}, analyzer.seen, "second run should see a.go only once total, not twice")
}

func TestTaskRunTransitionsToErrorOnEnsureFailure(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	repo, err := s.CreateRepository(ctx, &store.Repository{
		Name: "widgets", RemoteURL: "https://example.com/w.git", LocalPath: t.TempDir(), ScanIntervalMin: 60,
	})
	require.NoError(t, err)

	task := NewTask(s, &fakeEnsurer{err: errAnalysis{}}, &recordingAnalyzer{}, nil, 5, "")
	err = task.Run(ctx, repo)
	require.Error(t, err)

	updated, getErr := s.GetRepository(ctx, repo.ID)
	require.NoError(t, getErr)
	assert.Equal(t, store.ScanStatusError, updated.ScanStatus)
	assert.NotEmpty(t, updated.LastError)
}

func TestTaskRunAbortsCooperativelyOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := openTestStore(t)

	root := t.TempDir()
	for _, name := range []string{"a.go", "b.go", "c.go", "d.go", "e.go", "f.go"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(name), 0644))
	}

	repo, err := s.CreateRepository(ctx, &store.Repository{
		Name: "widgets", RemoteURL: "https://example.com/w.git", LocalPath: root, ScanIntervalMin: 60,
	})
	require.NoError(t, err)

	cancel()
	task := NewTask(s, &fakeEnsurer{localPath: root}, &recordingAnalyzer{}, nil, 5, "")
	require.NoError(t, task.Run(ctx, repo))

	updated, err := s.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ScanStatusIdle, updated.ScanStatus)

	events, err := s.ListEvents(context.Background(), &repo.ID, 20)
	require.NoError(t, err)
	var sawAborted bool
	for _, e := range events {
		if e.Message == "scan_aborted" {
			sawAborted = true
		}
	}
	assert.True(t, sawAborted)
}
