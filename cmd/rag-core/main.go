package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/custodia-labs/rag-core/internal/adapters/driven/ai"
	"github.com/custodia-labs/rag-core/internal/adapters/driven/flatindex"
	"github.com/custodia-labs/rag-core/internal/adapters/driven/memory"
	"github.com/custodia-labs/rag-core/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/rag-core/internal/adapters/driven/redis"
	"github.com/custodia-labs/rag-core/internal/chunker"
	"github.com/custodia-labs/rag-core/internal/core/domain"
	"github.com/custodia-labs/rag-core/internal/core/ports/driven"
	"github.com/custodia-labs/rag-core/internal/core/ports/driving"
	"github.com/custodia-labs/rag-core/internal/core/services"
	"github.com/custodia-labs/rag-core/internal/loader"
	"github.com/custodia-labs/rag-core/internal/runtime"
	"github.com/custodia-labs/rag-core/internal/worker"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

const usage = `rag-core %s

Usage:
  rag-core ingest <path>   Ingest a directory (or single file) of documents
  rag-core query <text>    Answer a question against the indexed documents
  rag-core retrieve <text> Show the raw top-k passages for a query
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, usage, version)
		os.Exit(2)
	}
	mode := os.Args[1]
	arg := os.Args[2]

	log.Printf("rag-core %s starting in %s mode", version, mode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Pipeline configuration =====
	cfg := domain.DefaultConfig()
	cfg.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.EmbeddingBatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", cfg.EmbeddingBatchSize)
	cfg.RetrievalK = getEnvInt("RETRIEVAL_K", cfg.RetrievalK)
	cfg.MaxContextLength = getEnvInt("MAX_CONTEXT_LENGTH", cfg.MaxContextLength)
	cfg.AllowUngrounded = getEnvBool("ALLOW_UNGROUNDED", false)

	indexPath := getEnv("INDEX_PATH", "rag-index.db")
	databaseURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")

	// ===== AI services =====
	aiFactory := ai.NewFactory()

	embeddingSettings := &domain.EmbeddingSettings{
		Provider:   domain.AIProvider(getEnv("EMBEDDING_PROVIDER", "")),
		Model:      getEnv("EMBEDDING_MODEL", ""),
		APIKey:     getEnv("EMBEDDING_API_KEY", getEnv("OPENAI_API_KEY", "")),
		BaseURL:    getEnv("EMBEDDING_BASE_URL", ""),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
	}
	embeddingService, err := aiFactory.CreateEmbeddingService(embeddingSettings)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	if embeddingService == nil {
		log.Fatal("No embedding service configured (set EMBEDDING_PROVIDER and EMBEDDING_MODEL)")
	}

	llmSettings := &domain.LLMSettings{
		Provider: domain.AIProvider(getEnv("LLM_PROVIDER", "")),
		Model:    getEnv("LLM_MODEL", ""),
		APIKey:   getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
		BaseURL:  getEnv("LLM_BASE_URL", ""),
	}
	llmService, err := aiFactory.CreateLLMService(llmSettings)
	if err != nil {
		log.Fatalf("Failed to create LLM service: %v", err)
	}

	// The index dimension follows the embedding service so ingestion and
	// query vectors can never drift apart within a process.
	cfg.EmbeddingDimension = embeddingService.Dimensions()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	runtimeConfig := domain.NewRuntimeConfig()
	runtimeServices := runtime.NewServices(runtimeConfig)
	defer runtimeServices.Close()

	if err := runtimeServices.ValidateAndSetEmbedding(ctx, embeddingService); err != nil {
		log.Fatalf("Embedding service health check failed: %v", err)
	}
	log.Printf("Embedding: %s/%s (%d dimensions)", embeddingSettings.Provider, embeddingService.Model(), embeddingService.Dimensions())

	if llmService != nil {
		if err := runtimeServices.ValidateAndSetLLM(ctx, llmService); err != nil {
			log.Fatalf("LLM ping failed: %v", err)
		}
		log.Printf("LLM: %s/%s", llmSettings.Provider, llmService.Model())
	} else {
		log.Println("No LLM configured; query mode is unavailable")
	}

	// ===== Vector index =====
	index, err := flatindex.New(cfg.EmbeddingDimension)
	if err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}
	defer index.Close()

	if _, err := os.Stat(indexPath); err == nil {
		if err := index.Load(ctx, indexPath); err != nil {
			log.Fatalf("Failed to load index snapshot %s: %v", indexPath, err)
		}
		log.Printf("Loaded index snapshot %s (%d entries)", indexPath, index.Count())
	}

	// ===== Document store (PostgreSQL if configured, otherwise in-memory) =====
	var documentStore driven.DocumentStore
	if databaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(databaseURL))
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		documentStore = postgres.NewDocumentStore(db)
		log.Println("Using PostgreSQL document store")
	} else {
		documentStore = memory.NewDocumentStore()
		log.Println("Using in-memory document store")
	}

	// ===== Distributed lock (Redis if configured, otherwise in-process) =====
	var distributedLock driven.DistributedLock
	if redisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		distributedLock = redisadapter.NewLock(redisClient)
		log.Println("Using Redis distributed lock")
	} else {
		distributedLock = memory.NewLock()
		log.Println("Using in-process lock")
	}

	// ===== Core services =====
	chk, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Failed to create chunker: %v", err)
	}

	ingestionService := services.NewIngestionService(services.IngestionServiceConfig{
		Chunker:       chk,
		Index:         index,
		DocumentStore: documentStore,
		Lock:          distributedLock,
		Services:      runtimeServices,
		Config:        &cfg,
		Logger:        slog.Default(),
	})

	retriever, err := services.NewRetriever(index, runtimeServices, cfg.RetrievalK)
	if err != nil {
		log.Fatalf("Failed to create retriever: %v", err)
	}
	assembler, err := services.NewContextAssembler(cfg.MaxContextLength)
	if err != nil {
		log.Fatalf("Failed to create context assembler: %v", err)
	}
	queryService := services.NewQueryService(services.QueryServiceConfig{
		Retriever: retriever,
		Assembler: assembler,
		Services:  runtimeServices,
		Config:    &cfg,
		Logger:    slog.Default(),
	})

	switch mode {
	case "ingest":
		runIngest(ctx, arg, indexPath, ingestionService)

	case "query":
		answer, err := queryService.Answer(ctx, arg)
		if err != nil {
			log.Fatalf("Query failed: %v", err)
		}
		fmt.Println(answer.Text)
		if len(answer.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range answer.Sources {
				fmt.Printf("  %s (chunk %d)\n", src.Source, src.Position)
			}
		}
		log.Printf("Answered in %s (grounded=%t)", answer.Took.Round(time.Millisecond), answer.Grounded)

	case "retrieve":
		results, err := queryService.Retrieve(ctx, arg, cfg.RetrievalK)
		if err != nil {
			log.Fatalf("Retrieval failed: %v", err)
		}
		for _, res := range results {
			fmt.Printf("%d. [%.4f] %s (chunk %d)\n%s\n\n",
				res.Rank, res.Score, res.Entry.Chunk.Source, res.Entry.Chunk.Position, res.Entry.Chunk.Content)
		}
		if len(results) == 0 {
			fmt.Println("No results")
		}

	default:
		fmt.Fprintf(os.Stderr, usage, version)
		os.Exit(2)
	}
}

// runIngest loads documents from path, ingests them concurrently and
// persists the resulting index snapshot.
func runIngest(ctx context.Context, path, indexPath string, ingestion driving.IngestionService) {
	docs, err := loadDocuments(path)
	if err != nil {
		log.Fatalf("Failed to load documents: %v", err)
	}
	if len(docs) == 0 {
		log.Println("No ingestable documents found")
		return
	}

	pool := worker.NewPool(worker.PoolConfig{
		Ingestion:   ingestion,
		Logger:      slog.Default(),
		Concurrency: getEnvInt("WORKER_CONCURRENCY", 4),
	})

	result, err := pool.IngestBatch(ctx, docs)
	if err != nil {
		log.Fatalf("Ingestion aborted: %v", err)
	}

	log.Printf("Ingested %d/%d documents (%d index entries)",
		result.Ingested, result.TotalDocuments, result.EntriesAdded)
	for _, failure := range result.Failed {
		log.Printf("  failed: %s: %s", failure.Source, failure.Err)
	}

	if err := ingestion.PersistIndex(ctx, indexPath); err != nil {
		log.Fatalf("Failed to persist index: %v", err)
	}
	log.Printf("Index snapshot written to %s", indexPath)
}

// loadDocuments accepts either a directory or a single file.
func loadDocuments(path string) ([]*domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return loader.LoadDirectory(path)
	}
	doc, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []*domain.Document{doc}, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
