package store

// Repository is a tracked source tree (spec.md §3 "Repository").
type Repository struct {
	ID              string
	Name            string
	RemoteURL       string
	LocalPath       string
	DefaultBranch   string
	SourceType      string
	CloneDepth      int
	AutoScan        bool
	ScanIntervalMin int
	LastCheckedAt   *int64
	LastSyncedAt    *int64
	ScanStatus      string
	ProgressTotal   int
	ProgressDone    int
	ProgressCurrent string
	IssuesFound     int
	LastDurationMs  int64
	LastError       string
	CreatedAt       int64
	UpdatedAt       int64
}

// Repository scan status values (spec.md §3 "current scan status").
const (
	ScanStatusIdle      = "idle"
	ScanStatusCloning   = "cloning"
	ScanStatusScanning  = "scanning"
	ScanStatusAnalyzing = "analyzing"
	ScanStatusError     = "error"
)

// ScanEvent is an append-only audit record (spec.md §3 "ScanEvent").
type ScanEvent struct {
	ID        int64
	RepoID    *string
	EventType string
	Message   string
	Detail    *string
	Level     string
	CreatedAt int64
}

// Tag is the organizational primitive shared by notes, ideas and
// documents (spec.md §3 "Tag").
type Tag struct {
	Name        string
	Color       string
	Description string
	UsageCount  int
	CreatedAt   int64
	UpdatedAt   int64
}

// Note is free-form capture (spec.md §3 "Note / Idea").
type Note struct {
	ID        string
	Content   string
	Status    string
	RepoID    *string
	Tags      []string
	CreatedAt int64
	UpdatedAt int64
}

// Idea is free-form capture with priority/category (spec.md §3 "Idea").
type Idea struct {
	ID         string
	Content    string
	Priority   int
	Category   string
	DocumentID *string
	TaskID     *string
	RepoID     *string
	Tags       []string
	CreatedAt  int64
	UpdatedAt  int64
}

// Document is an indexed knowledge object (spec.md §3 "Document").
type Document struct {
	ID          string
	Title       string
	Content     string
	ContentType string
	SourceType  string
	DocType     string
	RepoID      *string
	FilePath    *string
	WordCount   int
	CharCount   int
	IndexState  string
	IndexedAt   *int64
	Tags        []string
	CreatedAt   int64
	UpdatedAt   int64
}

// Document index lifecycle states (spec.md §4.F "indexing lifecycle").
const (
	IndexStateUnindexed    = "unindexed"
	IndexStateIndexing     = "indexing"
	IndexStateIndexed      = "indexed"
	IndexStateNeedsReindex = "needs_reindex"
)

// DocumentChunk is one embeddable span of a document (spec.md §3
// "DocumentChunk").
type DocumentChunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	CharStart  int
	CharEnd    int
	WordCount  int
	CreatedAt  int64
}

// DocumentEmbedding is one vector per chunk (spec.md §3
// "DocumentEmbedding").
type DocumentEmbedding struct {
	ID        string
	ChunkID   string
	Embedding []float32
	Model     string
	Dimension int
	CreatedAt int64
}

// Task is an actionable finding (spec.md §3 "Task").
type Task struct {
	ID          string
	Title       string
	Description string
	Priority    int
	Status      string
	FilePath    *string
	Source      string
	RepoID      *string
	CreatedAt   int64
	UpdatedAt   int64
}

const (
	TaskStatusPending   = "pending"
	TaskStatusActive    = "active"
	TaskStatusDone      = "done"
	TaskStatusCancelled = "cancelled"
)

// CacheEntry is the LLM response cache's logical row (spec.md §3
// "CacheEntry").
type CacheEntry struct {
	Fingerprint      string
	ResponseBody     string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	HitCount         int
	CreatedAt        int64
	ExpiresAt        int64
}

// CostLedgerEntry is one append-only row per gateway invocation
// (spec.md §3 "CacheEntry", §4.D cost accounting).
type CostLedgerEntry struct {
	ID               int64
	Fingerprint      string
	RepoID           *string
	Provider         string
	Model            string
	CacheHit         bool
	Success          bool
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	LatencyMs        int64
	ErrorMessage     string
	CreatedAt        int64
}
