package services

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

func result(source string, position, start, end int, content string) *domain.RetrievalResult {
	return &domain.RetrievalResult{
		Entry: &domain.IndexEntry{
			Chunk: domain.Chunk{
				DocumentID: "doc-" + source,
				Source:     source,
				Content:    content,
				Position:   position,
				StartChar:  start,
				EndChar:    end,
			},
		},
	}
}

func TestNewContextAssemblerRejectsBadBudget(t *testing.T) {
	for _, maxLen := range []int{0, -1} {
		if _, err := NewContextAssembler(maxLen); !errors.Is(err, domain.ErrInvalidConfiguration) {
			t.Errorf("NewContextAssembler(%d): expected ErrInvalidConfiguration, got %v", maxLen, err)
		}
	}
}

func TestAssemblePreservesRankOrder(t *testing.T) {
	assembler, err := NewContextAssembler(4000)
	if err != nil {
		t.Fatalf("NewContextAssembler failed: %v", err)
	}

	assembled := assembler.Assemble([]*domain.RetrievalResult{
		result("b.txt", 0, 0, 20, "second ranked text"),
		result("a.txt", 0, 0, 20, "first ranked text"),
	})

	if assembled.Empty() {
		t.Fatal("expected non-empty context")
	}
	first := strings.Index(assembled.Text, "second ranked text")
	second := strings.Index(assembled.Text, "first ranked text")
	if first < 0 || second < 0 || first > second {
		t.Errorf("chunks not in rank order: %q", assembled.Text)
	}

	if len(assembled.Sources) != 2 {
		t.Fatalf("expected 2 source refs, got %d", len(assembled.Sources))
	}
	if assembled.Sources[0].Source != "b.txt" || assembled.Sources[1].Source != "a.txt" {
		t.Errorf("source refs out of order: %+v", assembled.Sources)
	}
	if assembled.Truncated {
		t.Error("small context should not be truncated")
	}
}

func TestAssembleAttributesSources(t *testing.T) {
	assembler, _ := NewContextAssembler(4000)

	assembled := assembler.Assemble([]*domain.RetrievalResult{
		result("guide.md", 3, 900, 1000, "installation steps"),
	})

	if !strings.Contains(assembled.Text, "[source: guide.md]") {
		t.Errorf("expected source attribution in context: %q", assembled.Text)
	}
	ref := assembled.Sources[0]
	if ref.DocumentID != "doc-guide.md" || ref.Position != 3 {
		t.Errorf("unexpected source ref: %+v", ref)
	}
	if ref.Snippet != "installation steps" {
		t.Errorf("unexpected snippet: %q", ref.Snippet)
	}
}

func TestAssembleStopsAtBudget(t *testing.T) {
	assembler, _ := NewContextAssembler(120)

	assembled := assembler.Assemble([]*domain.RetrievalResult{
		result("a.txt", 0, 0, 50, strings.Repeat("a", 50)),
		result("b.txt", 0, 0, 50, strings.Repeat("b", 50)),
		result("c.txt", 0, 0, 50, strings.Repeat("c", 50)),
	})

	if !assembled.Truncated {
		t.Error("expected truncation marker when budget is exceeded")
	}
	if len(assembled.Text) > 120 {
		t.Errorf("context length %d exceeds budget", len(assembled.Text))
	}
	if strings.Contains(assembled.Text, "ccc") {
		t.Error("over-budget chunk should not be included")
	}
	if len(assembled.Sources) != 1 {
		t.Errorf("expected 1 source ref within budget, got %d", len(assembled.Sources))
	}
}

func TestAssembleTruncatesOversizedFirstChunk(t *testing.T) {
	assembler, _ := NewContextAssembler(100)

	assembled := assembler.Assemble([]*domain.RetrievalResult{
		result("big.txt", 0, 0, 500, strings.Repeat("x", 500)),
	})

	if assembled.Empty() {
		t.Fatal("expected truncated content rather than empty context")
	}
	if len(assembled.Text) != 100 {
		t.Errorf("expected context cut to budget, got length %d", len(assembled.Text))
	}
	if !assembled.Truncated {
		t.Error("expected truncation marker")
	}
	if len(assembled.Sources) != 1 {
		t.Errorf("expected the truncated chunk to keep its source ref, got %d", len(assembled.Sources))
	}
}

func TestAssembleTruncatesOnRuneBoundary(t *testing.T) {
	assembler, _ := NewContextAssembler(33)

	// "[source: u.txt]\n" is 16 bytes; a 33-byte budget lands mid-rune in
	// the three-byte euro signs that follow.
	assembled := assembler.Assemble([]*domain.RetrievalResult{
		result("u.txt", 0, 0, 40, strings.Repeat("€", 40)),
	})

	if !utf8.ValidString(assembled.Text) {
		t.Errorf("truncated context is not valid UTF-8: %q", assembled.Text)
	}
	if len(assembled.Text) > 33 {
		t.Errorf("context length %d exceeds budget", len(assembled.Text))
	}
	if !assembled.Truncated {
		t.Error("expected truncation marker")
	}
	if !strings.Contains(assembled.Text, "€") {
		t.Errorf("expected some content to survive truncation: %q", assembled.Text)
	}
}

func TestAssembleDeduplicatesIdenticalText(t *testing.T) {
	assembler, _ := NewContextAssembler(4000)

	// The same chunk retrieved twice, plus the same text from another document
	assembled := assembler.Assemble([]*domain.RetrievalResult{
		result("a.txt", 0, 0, 100, "repeated passage"),
		result("a.txt", 0, 0, 100, "repeated passage"),
		result("b.txt", 4, 400, 500, "repeated passage"),
		result("a.txt", 1, 80, 180, "fresh passage"),
	})

	if got := strings.Count(assembled.Text, "repeated passage"); got != 1 {
		t.Errorf("identical text included %d times, want 1", got)
	}
	if !strings.Contains(assembled.Text, "fresh passage") {
		t.Errorf("distinct chunk missing: %q", assembled.Text)
	}
	if len(assembled.Sources) != 2 {
		t.Errorf("expected 2 source refs, got %d", len(assembled.Sources))
	}
}

func TestAssembleKeepsAdjacentOverlappingChunks(t *testing.T) {
	assembler, _ := NewContextAssembler(10000)

	// Consecutive chunks of one document share only the configured overlap;
	// each still carries new text and must be kept.
	zero := strings.Repeat("a", 450) + strings.Repeat("b", 50)
	one := strings.Repeat("b", 50) + strings.Repeat("c", 450)
	assembled := assembler.Assemble([]*domain.RetrievalResult{
		result("a.txt", 0, 0, 500, zero),
		result("a.txt", 1, 450, 950, one),
	})

	if !strings.Contains(assembled.Text, zero) || !strings.Contains(assembled.Text, one) {
		t.Errorf("adjacent chunks must both be included, got %d chars", len(assembled.Text))
	}
	if len(assembled.Sources) != 2 {
		t.Errorf("expected 2 source refs, got %d", len(assembled.Sources))
	}
	if assembled.Truncated {
		t.Error("nothing was dropped, context must not be marked truncated")
	}
}

func TestAssembleAllowsSameSpanAcrossDocuments(t *testing.T) {
	assembler, _ := NewContextAssembler(4000)

	assembled := assembler.Assemble([]*domain.RetrievalResult{
		result("a.txt", 0, 0, 100, "from document a"),
		result("b.txt", 0, 0, 100, "from document b"),
	})

	if !strings.Contains(assembled.Text, "from document a") || !strings.Contains(assembled.Text, "from document b") {
		t.Errorf("same span in different documents must both be kept: %q", assembled.Text)
	}
}

func TestAssembleEmptyResults(t *testing.T) {
	assembler, _ := NewContextAssembler(4000)

	for _, results := range [][]*domain.RetrievalResult{nil, {}} {
		assembled := assembler.Assemble(results)
		if !assembled.Empty() {
			t.Error("expected empty context for no results")
		}
		if assembled.Truncated {
			t.Error("empty context should not be marked truncated")
		}
	}
}
