package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

const (
	contextSeparator = "\n\n"
	snippetLength    = 120
)

// ContextAssembler turns ranked retrieval results into a single bounded
// context string for generation. Chunks are taken in rank order until the
// character budget is exhausted; a chunk whose text is identical to one
// already included is skipped. Adjacent chunks of one document are kept even
// though they share the configured overlap, since each still carries new
// text.
type ContextAssembler struct {
	maxLength int
}

// NewContextAssembler creates a ContextAssembler with the given character budget.
func NewContextAssembler(maxLength int) (*ContextAssembler, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("%w: max context length must be positive, got %d", domain.ErrInvalidConfiguration, maxLength)
	}
	return &ContextAssembler{maxLength: maxLength}, nil
}

// Assemble builds the context from results, preserving rank order. A result
// whose chunk text is identical to an already included one is skipped. The
// first chunk is truncated if it alone exceeds the budget; later chunks that
// do not fit end assembly with Truncated set.
func (a *ContextAssembler) Assemble(results []*domain.RetrievalResult) *domain.AssembledContext {
	assembled := &domain.AssembledContext{}
	if len(results) == 0 {
		return assembled
	}

	var b strings.Builder
	seen := make(map[string]bool)

	for _, result := range results {
		if result == nil || result.Entry == nil {
			continue
		}
		chunk := result.Entry.Chunk

		if seen[chunk.Content] {
			continue
		}

		block := formatBlock(chunk)
		if b.Len() > 0 {
			block = contextSeparator + block
		}

		if b.Len()+len(block) > a.maxLength {
			// A first chunk over budget is cut to fit; anything is
			// better than an empty context. Later misfits end assembly.
			if b.Len() == 0 {
				b.WriteString(block[:truncationPoint(block, a.maxLength)])
				assembled.Sources = append(assembled.Sources, sourceRef(chunk))
			}
			assembled.Truncated = true
			break
		}

		b.WriteString(block)
		seen[chunk.Content] = true
		assembled.Sources = append(assembled.Sources, sourceRef(chunk))
	}

	assembled.Text = b.String()
	return assembled
}

// MaxLength returns the configured character budget.
func (a *ContextAssembler) MaxLength() int { return a.maxLength }

func formatBlock(chunk domain.Chunk) string {
	if chunk.Source == "" {
		return chunk.Content
	}
	return fmt.Sprintf("[source: %s]\n%s", chunk.Source, chunk.Content)
}

func sourceRef(chunk domain.Chunk) domain.SourceRef {
	snippet := chunk.Content
	if runes := []rune(snippet); len(runes) > snippetLength {
		snippet = string(runes[:snippetLength])
	}
	return domain.SourceRef{
		Source:     chunk.Source,
		DocumentID: chunk.DocumentID,
		Position:   chunk.Position,
		Snippet:    snippet,
	}
}

// truncationPoint returns the largest cut <= max that falls on a rune
// boundary, so truncation never hands the generator invalid UTF-8.
func truncationPoint(block string, max int) int {
	cut := max
	for cut > 0 && !utf8.RuneStart(block[cut]) {
		cut--
	}
	return cut
}
