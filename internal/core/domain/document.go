package domain

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a raw text document to be ingested.
// Immutable once ingested.
type Document struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"` // File path or URL the text came from
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	// IngestedAt is set once the document's chunks are committed to the index
	IngestedAt time.Time `json:"ingested_at,omitempty"`
	// ChunkCount records how many index entries the document produced
	ChunkCount int `json:"chunk_count,omitempty"`
}

// NewDocument creates a Document with a fresh id.
func NewDocument(source, content string) *Document {
	return &Document{
		ID:        uuid.NewString(),
		Source:    source,
		Content:   content,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now(),
	}
}

// Chunk is a contiguous span of a document's text.
// Consecutive chunks of one document overlap by the configured overlap.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Content    string `json:"content"`
	Position   int    `json:"position"` // Chunk sequence index within the document
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
}

// IndexEntry pairs a chunk with its embedding vector under a stable id.
// Entries are append-only; the vector index owns their lifetime.
type IndexEntry struct {
	ID     string    `json:"id"`
	Chunk  Chunk     `json:"chunk"`
	Vector []float32 `json:"vector"`
}

// RetrievalResult is one ranked hit from a similarity search.
// Transient, produced per query.
type RetrievalResult struct {
	Entry *IndexEntry `json:"entry"`
	Score float64     `json:"score"` // Cosine similarity, higher is more relevant
	Rank  int         `json:"rank"`  // 1-based rank within the returned set
}

// SourceRef attributes a piece of assembled context to its origin.
type SourceRef struct {
	Source     string `json:"source"`
	DocumentID string `json:"document_id"`
	Position   int    `json:"position"`
	Snippet    string `json:"snippet,omitempty"`
}

// AssembledContext is the bounded, ordered context handed to the generator.
// Consumed once per query.
type AssembledContext struct {
	Text      string      `json:"text"`
	Sources   []SourceRef `json:"sources"`
	Truncated bool        `json:"truncated"` // True when candidates were dropped or cut to fit
}

// Empty reports whether no context was assembled. A valid outcome: it means
// no relevant passages were found, not an error.
func (c *AssembledContext) Empty() bool {
	return c == nil || len(c.Text) == 0
}

// Answer is the result of one query through the full pipeline.
type Answer struct {
	Query    string        `json:"query"`
	Text     string        `json:"text"`
	Sources  []SourceRef   `json:"sources,omitempty"`
	Grounded bool          `json:"grounded"` // False when no context backed the answer
	Took     time.Duration `json:"took"`
}

// BatchResult reports the outcome of a multi-document ingestion run.
// One document failing does not abort the batch.
type BatchResult struct {
	TotalDocuments int             `json:"total_documents"`
	Ingested       int             `json:"ingested"`
	EntriesAdded   int             `json:"entries_added"`
	Failed         []DocumentError `json:"failed,omitempty"`
}

// DocumentError records a per-document ingestion failure.
type DocumentError struct {
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Err        string `json:"error"`
}
