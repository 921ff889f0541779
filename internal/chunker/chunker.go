// Package chunker splits document text into fixed-size overlapping chunks
// for embedding. Offsets are character (rune) based so multi-byte text
// chunks cleanly.
package chunker

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

// Chunker produces sliding-window chunks of a configured size and overlap.
// A Chunker is immutable after construction and safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
	stride  int
}

// New creates a Chunker. Size must be positive and overlap must be
// non-negative and strictly smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be non-negative, got %d", domain.ErrInvalidConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", domain.ErrInvalidConfiguration, overlap, size)
	}
	return &Chunker{
		size:    size,
		overlap: overlap,
		stride:  size - overlap,
	}, nil
}

// Size returns the configured chunk size in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Scan walks a document's chunks in order, calling fn for each one without
// materialising the whole slice. Returning false from fn stops the scan.
// Documents with no non-whitespace content produce no chunks, as there is
// nothing worth embedding. Every chunk carries its document id, source and
// character span so retrieval results can be attributed later.
func (c *Chunker) Scan(doc *domain.Document, fn func(domain.Chunk) bool) {
	if strings.TrimSpace(doc.Content) == "" {
		return
	}

	runes := []rune(doc.Content)

	position := 0
	for start := 0; start < len(runes); start += c.stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunk := domain.Chunk{
			DocumentID: doc.ID,
			Source:     doc.Source,
			Content:    string(runes[start:end]),
			Position:   position,
			StartChar:  start,
			EndChar:    end,
		}
		position++

		if !fn(chunk) {
			return
		}

		// The final chunk absorbs the tail; a shorter trailing window
		// would only repeat already-covered text.
		if end == len(runes) {
			return
		}
	}
}

// Split chunks a document's content eagerly.
func (c *Chunker) Split(doc *domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	c.Scan(doc, func(chunk domain.Chunk) bool {
		chunks = append(chunks, chunk)
		return true
	})
	return chunks
}

// Count returns the number of chunks Split produces for a text of the given
// character length, without materialising them. It assumes the text has
// non-whitespace content; a whitespace-only text splits into zero chunks
// whatever its length.
func (c *Chunker) Count(length int) int {
	if length == 0 {
		return 0
	}
	if length <= c.size {
		return 1
	}
	// ceil((length - overlap) / stride)
	return (length - c.overlap + c.stride - 1) / c.stride
}
