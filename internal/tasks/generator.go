// Package tasks implements the Task Generator (spec.md §4.G): it turns
// a structured LLM findings payload into queued, prioritized,
// repo-linked Task rows.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kraklabs/devsentry/internal/logging"
	"github.com/kraklabs/devsentry/internal/metrics"
	"github.com/kraklabs/devsentry/internal/store"
)

// finding is the expected shape of one entry in the findings payload's
// "tasks" array (spec.md §4.G: "{tasks: [{title, description, priority,
// files, source}]}").
type finding struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Files       []string `json:"files"`
	Source      string   `json:"source"`
}

type findingsPayload struct {
	Tasks []finding `json:"tasks"`
}

// priorityRank maps the LLM's textual severity into the 1-5 scale
// spec.md §4.G defines; unrecognized values default to 3.
var priorityRank = map[string]int{
	"critical": 1,
	"high":     2,
	"medium":   3,
	"low":      4,
	"trivial":  5,
}

var validSources = map[string]bool{
	"project_review": true,
	"scan":           true,
	"manual":         true,
}

// Generator converts findings payloads into persisted Task rows.
type Generator struct {
	store *store.Store
}

// New wires a persistence store for task insertion.
func New(s *store.Store) *Generator {
	return &Generator{store: s}
}

// Ingest implements scanner.FindingsSink: it parses findingsJSON and
// inserts one Task per well-formed finding. A malformed payload or
// individual finding is discarded with a warn-level event; the batch
// is never aborted (spec.md §4.G "Malformed findings are discarded
// with a warn-level event; the batch is not aborted").
func (g *Generator) Ingest(ctx context.Context, repoID, defaultSource, findingsJSON string) error {
	var payload findingsPayload
	if err := json.Unmarshal([]byte(findingsJSON), &payload); err != nil {
		g.warn(ctx, repoID, fmt.Sprintf("malformed findings payload: %v", err))
		return nil
	}

	for _, f := range payload.Tasks {
		if err := g.ingestOne(ctx, repoID, defaultSource, f); err != nil {
			g.warn(ctx, repoID, fmt.Sprintf("discarded malformed finding: %v", err))
		}
	}
	return nil
}

func (g *Generator) ingestOne(ctx context.Context, repoID, defaultSource string, f finding) error {
	if f.Title == "" {
		return fmt.Errorf("finding missing a title")
	}

	source := defaultSource
	if validSources[f.Source] {
		source = f.Source
	}

	priority := 3
	if rank, ok := priorityRank[f.Priority]; ok {
		priority = rank
	}

	var filePath *string
	if len(f.Files) > 0 {
		p := f.Files[0]
		filePath = &p
	}

	description := f.Description
	if len(f.Files) > 1 {
		description = fmt.Sprintf("%s\n\nalso touches: %v", description, f.Files[1:])
	}

	var repo *string
	if repoID != "" {
		repo = &repoID
	}

	_, err := g.store.CreateTask(ctx, &store.Task{
		Title:       f.Title,
		Description: description,
		Priority:    priority,
		Status:      store.TaskStatusPending,
		FilePath:    filePath,
		Source:      source,
		RepoID:      repo,
	})
	if err == nil {
		metrics.TasksCreatedTotal.WithLabelValues(source).Inc()
	}
	return err
}

func (g *Generator) warn(ctx context.Context, repoID, message string) {
	var repo *string
	if repoID != "" {
		repo = &repoID
	}
	logging.Get(logging.CategoryTasks).Warn(message)
	_ = g.store.LogEvent(ctx, repo, "system", message, nil, "warn")
}
