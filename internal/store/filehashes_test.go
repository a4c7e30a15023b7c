package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHashesTrackChangesAndDeletions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	repo, err := s.CreateRepository(ctx, &Repository{Name: "widgets", RemoteURL: "https://example.com/w.git", ScanIntervalMin: 60})
	require.NoError(t, err)

	require.NoError(t, s.PutFileHash(ctx, repo.ID, "a.go", "hash-a"))
	require.NoError(t, s.PutFileHash(ctx, repo.ID, "b.go", "hash-b"))

	hashes, err := s.GetFileHashes(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.go": "hash-a", "b.go": "hash-b"}, hashes)

	require.NoError(t, s.PutFileHash(ctx, repo.ID, "a.go", "hash-a-v2"))
	hashes, err = s.GetFileHashes(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-a-v2", hashes["a.go"])

	require.NoError(t, s.DeleteFileHashesNotIn(ctx, repo.ID, []string{"a.go"}))
	hashes, err = s.GetFileHashes(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.go": "hash-a-v2"}, hashes)
}
