package llmgateway

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kraklabs/devsentry/internal/apperr"
)

// FileDescriptor names one file to analyze in a batch call.
type FileDescriptor struct {
	Path    string
	Content string
}

// BatchResult pairs an Ask outcome with its originating file; per-file
// failures surface as a populated Err without failing the batch
// (spec.md §4.D "Batch analysis").
type BatchResult struct {
	Path   string
	Result Result
	Err    error
}

// BatchPromptFn builds the model prompt for one file descriptor,
// letting callers (the Auto-Scanner's analysis step) control the
// analysis instructions without the gateway knowing about them.
type BatchPromptFn func(FileDescriptor) Request

// AskBatch issues N requests concurrently under a batch-local semaphore
// (default 5, spec.md §4.D) and returns results in submission order.
// Per-file errors are captured in each BatchResult rather than failing
// the whole batch; only a cancelled ctx stops submission early.
func (g *Gateway) AskBatch(ctx context.Context, files []FileDescriptor, repoID *string, batchSize int, buildRequest BatchPromptFn) []BatchResult {
	if batchSize <= 0 {
		batchSize = 5
	}
	results := make([]BatchResult, len(files))
	sem := semaphore.NewWeighted(int64(batchSize))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, f := range files {
		i, f := i, f
		eg.Go(func() error {
			if err := sem.Acquire(egCtx, 1); err != nil {
				results[i] = BatchResult{Path: f.Path, Err: apperr.Cancelled("batch cancelled")}
				return nil
			}
			defer sem.Release(1)

			req := buildRequest(f)
			res, err := g.Ask(ctx, req, repoID)
			results[i] = BatchResult{Path: f.Path, Result: res, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}
