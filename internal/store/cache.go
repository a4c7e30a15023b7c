package store

import (
	"context"

	"github.com/kraklabs/devsentry/internal/apperr"
)

// GetCacheEntry looks up a response by fingerprint, returning
// apperr.NotFound on a miss or an expired entry (the caller treats
// expiry as a miss and re-invokes the provider — spec.md §4.E).
func (s *Store) GetCacheEntry(ctx context.Context, fingerprint string) (*CacheEntry, error) {
	s.mu.RLock()
	var e CacheEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, response_body, prompt_tokens, completion_tokens, cost_usd, hit_count, created_at, expires_at
		FROM cache_entries WHERE fingerprint = ?`, fingerprint).Scan(
		&e.Fingerprint, &e.ResponseBody, &e.PromptTokens, &e.CompletionTokens, &e.CostUSD, &e.HitCount, &e.CreatedAt, &e.ExpiresAt)
	s.mu.RUnlock()
	if err != nil {
		return nil, mapSQLError(err, "cache_entry")
	}
	if e.ExpiresAt <= now() {
		return nil, apperr.NotFound("cache_entry")
	}
	return &e, nil
}

// PutCacheEntry inserts or replaces a response cache row keyed by its
// content-addressed fingerprint (spec.md §4.E).
func (s *Store) PutCacheEntry(ctx context.Context, e *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.CreatedAt = now()
	_, err := s.execWithRetry(ctx, `
		INSERT INTO cache_entries (fingerprint, response_body, prompt_tokens, completion_tokens, cost_usd, hit_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET response_body = excluded.response_body,
			prompt_tokens = excluded.prompt_tokens, completion_tokens = excluded.completion_tokens,
			cost_usd = excluded.cost_usd, created_at = excluded.created_at, expires_at = excluded.expires_at`,
		e.Fingerprint, e.ResponseBody, e.PromptTokens, e.CompletionTokens, e.CostUSD, e.CreatedAt, e.ExpiresAt)
	return mapSQLError(err, "cache_entry")
}

// RecordCacheHit increments the hit counter for a fingerprint (spec.md
// §3 "CacheEntry" hit_count).
func (s *Store) RecordCacheHit(ctx context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.execWithRetry(ctx, "UPDATE cache_entries SET hit_count = hit_count + 1 WHERE fingerprint = ?", fingerprint)
	return mapSQLError(err, "cache_entry")
}

// PruneExpiredCacheEntries deletes every entry whose TTL has elapsed.
func (s *Store) PruneExpiredCacheEntries(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execWithRetry(ctx, "DELETE FROM cache_entries WHERE expires_at <= ?", now())
	if err != nil {
		return 0, mapSQLError(err, "cache_entries")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
