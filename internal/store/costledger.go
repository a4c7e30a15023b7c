package store

import "context"

// RecordCostLedgerEntry appends one row per gateway invocation, hit or
// miss, success or failure — the ledger is never updated or deleted
// (spec.md §3 "CostLedger", §4.D).
func (s *Store) RecordCostLedgerEntry(ctx context.Context, e *CostLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.CreatedAt = now()
	_, err := s.execWithRetry(ctx, `
		INSERT INTO cost_ledger (fingerprint, repo_id, provider, model, cache_hit, success,
			prompt_tokens, completion_tokens, cost_usd, latency_ms, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Fingerprint, e.RepoID, e.Provider, e.Model, e.CacheHit, e.Success,
		e.PromptTokens, e.CompletionTokens, e.CostUSD, e.LatencyMs, e.ErrorMessage, e.CreatedAt)
	return mapSQLError(err, "cost_ledger")
}

// CostSummary aggregates spend over a window, used by the cost report
// CLI command and the /api/health surface.
type CostSummary struct {
	TotalCalls     int64
	CacheHits      int64
	TotalCostUSD   float64
	PromptTokens   int64
	CompletionTokens int64
}

// CostSummarySince aggregates the ledger from the given Unix-second
// cutoff to now.
func (s *Store) CostSummarySince(ctx context.Context, since int64) (*CostSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c CostSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(cache_hit), 0), COALESCE(SUM(cost_usd), 0),
		       COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
		FROM cost_ledger WHERE created_at >= ?`, since).Scan(
		&c.TotalCalls, &c.CacheHits, &c.TotalCostUSD, &c.PromptTokens, &c.CompletionTokens)
	if err != nil {
		return nil, mapSQLError(err, "cost_ledger")
	}
	return &c, nil
}

// ModelCostSummary is one model's slice of a CostSummarySince window
// (spec.md §9 "ledger is the source of truth" — the `cost report`
// CLI command breaks spend down per model on top of the aggregate
// CostSummary).
type ModelCostSummary struct {
	Model            string
	TotalCalls       int64
	CacheHits        int64
	TotalCostUSD     float64
	PromptTokens     int64
	CompletionTokens int64
}

// CostSummaryByModel aggregates the ledger from the given Unix-second
// cutoff to now, grouped by model, ordered by total spend descending
// so the heaviest model leads the report.
func (s *Store) CostSummaryByModel(ctx context.Context, since int64) ([]ModelCostSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT model, COUNT(*), COALESCE(SUM(cache_hit), 0), COALESCE(SUM(cost_usd), 0),
		       COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
		FROM cost_ledger WHERE created_at >= ?
		GROUP BY model
		ORDER BY SUM(cost_usd) DESC`, since)
	if err != nil {
		return nil, mapSQLError(err, "cost_ledger")
	}
	defer rows.Close()

	var out []ModelCostSummary
	for rows.Next() {
		var m ModelCostSummary
		if err := rows.Scan(&m.Model, &m.TotalCalls, &m.CacheHits, &m.TotalCostUSD, &m.PromptTokens, &m.CompletionTokens); err != nil {
			return nil, mapSQLError(err, "cost_ledger")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLError(err, "cost_ledger")
	}
	return out, nil
}
