// Package analysis wires the LLM Gateway into the scanner.Analyzer
// contract: one file in, one structured findings payload out (spec.md
// §4.C step 5, §4.G).
package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kraklabs/devsentry/internal/llmgateway"
	"github.com/kraklabs/devsentry/internal/scanner"
)

// findingsEnvelope mirrors the shape the Task Generator parses, used
// here only to count issues for the scan summary without duplicating
// parsing/validation logic.
type findingsEnvelope struct {
	Tasks []json.RawMessage `json:"tasks"`
}

const analysisSystemPrompt = `You are a static-analysis assistant reviewing one source file at a time.
Respond with strict JSON matching {"tasks": [{"title": "...", "description": "...", "priority": "critical|high|medium|low|trivial", "files": ["..."]}]}.
If the file has no issues worth a task, respond with {"tasks": []}.`

// ScanAnalyzer submits one file's content to the LLM Gateway per scan
// iteration (spec.md §4.C step 5), asking for a findings payload the
// Task Generator can later ingest.
type ScanAnalyzer struct {
	gateway *llmgateway.Gateway
	model   string
}

// New wires a Gateway and the model used for file analysis.
func New(gateway *llmgateway.Gateway, model string) *ScanAnalyzer {
	return &ScanAnalyzer{gateway: gateway, model: model}
}

// AnalyzeFile implements scanner.Analyzer.
func (a *ScanAnalyzer) AnalyzeFile(ctx context.Context, repoID, path, content string) (scanner.AnalysisOutcome, error) {
	prompt := fmt.Sprintf("%s\n\nFile: %s\n\n%s", analysisSystemPrompt, path, truncate(content, 20000))

	result, err := a.gateway.Ask(ctx, llmgateway.Request{
		Model:  a.model,
		Prompt: prompt,
	}, &repoID)
	if err != nil {
		return scanner.AnalysisOutcome{}, err
	}

	var envelope findingsEnvelope
	if jsonErr := json.Unmarshal([]byte(result.ResponseText), &envelope); jsonErr != nil {
		// A response that isn't valid JSON is not a scan failure: the
		// Task Generator will discard it as malformed with its own
		// warn-level event (spec.md §4.G).
		return scanner.AnalysisOutcome{FindingsJSON: result.ResponseText}, nil
	}

	return scanner.AnalysisOutcome{
		IssuesFound:  len(envelope.Tasks),
		FindingsJSON: result.ResponseText,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n...(truncated)"
}
