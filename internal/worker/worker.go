// Package worker fans batch ingestion out over a bounded pool of goroutines.
// Embedding calls dominate ingestion time, so the pool size effectively
// bounds in-flight embedding requests.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/rag-core/internal/core/domain"
	"github.com/custodia-labs/rag-core/internal/core/ports/driving"
)

// Pool ingests batches of documents concurrently.
type Pool struct {
	ingestion   driving.IngestionService
	logger      *slog.Logger
	concurrency int
}

// PoolConfig holds configuration for the ingestion pool.
type PoolConfig struct {
	Ingestion   driving.IngestionService
	Logger      *slog.Logger
	Concurrency int // Number of documents ingested in parallel
}

// NewPool creates a new ingestion pool.
func NewPool(cfg PoolConfig) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Pool{
		ingestion:   cfg.Ingestion,
		logger:      logger,
		concurrency: concurrency,
	}
}

// IngestBatch ingests documents with bounded concurrency, continuing past
// individual failures. Each document is still committed atomically by the
// ingestion service; the pool only controls how many are in flight.
func (p *Pool) IngestBatch(ctx context.Context, docs []*domain.Document) (*domain.BatchResult, error) {
	start := time.Now()
	result := &domain.BatchResult{TotalDocuments: len(docs)}
	if len(docs) == 0 {
		return result, nil
	}

	p.logger.Info("batch ingestion starting",
		"documents", len(docs),
		"concurrency", p.concurrency)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		work = make(chan *domain.Document)
	)

	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range work {
				added, err := p.ingestion.IngestDocument(ctx, doc)

				mu.Lock()
				if err != nil {
					result.Failed = append(result.Failed, domain.DocumentError{
						DocumentID: doc.ID,
						Source:     doc.Source,
						Err:        err.Error(),
					})
				} else {
					result.Ingested++
					result.EntriesAdded += added
				}
				mu.Unlock()

				if err != nil {
					p.logger.Warn("document ingestion failed",
						"document_id", doc.ID,
						"source", doc.Source,
						"error", err)
				}
			}
		}()
	}

feed:
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			break feed
		case work <- doc:
		}
	}
	close(work)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	p.logger.Info("batch ingestion finished",
		"documents", len(docs),
		"ingested", result.Ingested,
		"entries", result.EntriesAdded,
		"failed", len(result.Failed),
		"took", time.Since(start))

	return result, nil
}
