package embedding

import (
	"strings"

	"github.com/kraklabs/devsentry/internal/logging"
)

// =============================================================================
// TASK TYPE SELECTION
// =============================================================================

// ContentType is what's being embedded, drawn from the doc_type domain
// spec.md §3 defines for documents plus the two synthetic kinds (query,
// code) the RAG pipeline also embeds.
type ContentType string

const (
	ContentTypeReference    ContentType = "reference"
	ContentTypeResearch     ContentType = "research"
	ContentTypeTutorial     ContentType = "tutorial"
	ContentTypeArchitecture ContentType = "architecture"
	ContentTypeNote         ContentType = "note"
	ContentTypeSnippet      ContentType = "snippet"
	ContentTypeCode         ContentType = "code"
	ContentTypeQuery        ContentType = "query"
)

// SelectTaskType picks the GenAI task type for a content type, so that
// documents indexed for retrieval and the queries that search for them
// are embedded optimally for their respective role (spec.md §4.F).
// isQuery distinguishes "embedding this text to search with" from
// "embedding this text to be found".
func SelectTaskType(contentType ContentType, isQuery bool) string {
	logging.EmbeddingDebug("SelectTaskType: content_type=%s, is_query=%v", contentType, isQuery)

	var taskType string

	switch contentType {
	case ContentTypeCode:
		if isQuery {
			taskType = "CODE_RETRIEVAL_QUERY"
		} else {
			taskType = "RETRIEVAL_DOCUMENT"
		}

	case ContentTypeQuery:
		taskType = "RETRIEVAL_QUERY"

	case ContentTypeReference, ContentTypeResearch, ContentTypeTutorial, ContentTypeArchitecture, ContentTypeSnippet:
		taskType = "RETRIEVAL_DOCUMENT"

	case ContentTypeNote:
		taskType = "SEMANTIC_SIMILARITY"

	default:
		taskType = "SEMANTIC_SIMILARITY"
		logging.EmbeddingDebug("SelectTaskType: unknown content_type=%s, defaulting to SEMANTIC_SIMILARITY", contentType)
	}

	logging.EmbeddingDebug("SelectTaskType: selected task_type=%s", taskType)
	return taskType
}

// ContentTypeFromDocType maps a store.Document's doc_type column
// (spec.md §3: "reference, research, tutorial, architecture, note,
// snippet, …") to a ContentType, falling back to reference for any
// value outside that set rather than rejecting unrecognized doc types.
func ContentTypeFromDocType(docType string) ContentType {
	switch strings.ToLower(strings.TrimSpace(docType)) {
	case "research":
		return ContentTypeResearch
	case "tutorial":
		return ContentTypeTutorial
	case "architecture":
		return ContentTypeArchitecture
	case "note":
		return ContentTypeNote
	case "snippet":
		return ContentTypeSnippet
	case "code":
		return ContentTypeCode
	default:
		return ContentTypeReference
	}
}

// DetectContentType classifies a chunk of text as code or prose using
// simple token heuristics; GetOptimalTaskType uses it when no doc_type
// is given.
func DetectContentType(text string) ContentType {
	lowered := strings.ToLower(text)

	codeIndicators := []string{
		"func ", "function ", "class ", "def ", "import ", "package ",
		"const ", "var ", "let ", "interface ", "struct ", "type ",
		"{", "}", "=>", "->", "//", "/*", "*/",
	}
	codeScore := 0
	for _, indicator := range codeIndicators {
		if strings.Contains(lowered, indicator) {
			codeScore++
		}
	}
	if codeScore >= 3 {
		logging.EmbeddingDebug("DetectContentType: detected as code (score=%d)", codeScore)
		return ContentTypeCode
	}

	return ContentTypeReference
}

// GetOptimalTaskType resolves a document's task type from its stored
// doc_type when known, falling back to heuristic detection for content
// ingested without one.
func GetOptimalTaskType(docType, text string, isQuery bool) string {
	var ct ContentType
	if docType != "" {
		ct = ContentTypeFromDocType(docType)
	} else {
		ct = DetectContentType(text)
	}
	taskType := SelectTaskType(ct, isQuery)
	logging.Embedding("GetOptimalTaskType: doc_type=%q -> content_type=%s -> task_type=%s", docType, ct, taskType)
	return taskType
}
