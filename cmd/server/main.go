package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/claimlens/claimlens/internal/api"
	"github.com/claimlens/claimlens/internal/auth"
	"github.com/claimlens/claimlens/internal/crossexam"
	"github.com/claimlens/claimlens/internal/decompose"
	"github.com/claimlens/claimlens/internal/embeddings"
	"github.com/claimlens/claimlens/internal/evidence"
	"github.com/claimlens/claimlens/internal/memory"
	"github.com/claimlens/claimlens/internal/verdict"
	"github.com/claimlens/claimlens/internal/verifier"
)

func main() {
	port := getenv("PORT", "8080")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Postgres is optional; without it the service runs on in-process
	// stores and loses durability across restarts. An unreachable
	// database at startup degrades the same way instead of failing.
	var db *sql.DB
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		db, err = sql.Open("postgres", dbURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		if err := db.Ping(); err != nil {
			log.Printf("Database unreachable, running with in-process stores: %v", err)
			db.Close()
			db = nil
		} else {
			defer db.Close()
		}
	} else {
		log.Println("DATABASE_URL not set, running with in-process stores")
	}

	// Redis is optional; the short-term cache degrades to an in-process map,
	// including when Redis is configured but unreachable at startup.
	var redisClient *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unreachable, short-term cache is in-process: %v", err)
			redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	} else {
		log.Println("REDIS_URL not set, short-term cache is in-process")
	}

	// Cache tiers.
	shortTerm := memory.NewShortTermStore(redisClient)
	longTerm := memory.NewLongTermStore(db)
	if err := longTerm.EnsureSchema(ctx); err != nil {
		log.Printf("Failed to prepare claim store, caching in-process: %v", err)
	}
	mem := memory.NewManager(shortTerm, longTerm)

	// Embeddings, with the short-term tier doubling as the vector cache.
	// A second endpoint, when configured, backs up the primary in a chain.
	embeddingModel := getenv("EMBEDDING_MODEL", embeddings.DefaultModel)
	var provider embeddings.Provider = embeddings.NewClient(
		os.Getenv("EMBEDDING_API_KEY"),
		embeddings.WithBaseURL(getenv("EMBEDDING_API_URL", "https://openrouter.ai/api/v1")),
		embeddings.WithModel(embeddingModel),
	)
	if fallbackURL := os.Getenv("EMBEDDING_FALLBACK_API_URL"); fallbackURL != "" {
		secondary := embeddings.NewClient(
			getenv("EMBEDDING_FALLBACK_API_KEY", os.Getenv("EMBEDDING_API_KEY")),
			embeddings.WithBaseURL(fallbackURL),
			embeddings.WithModel(getenv("EMBEDDING_FALLBACK_MODEL", embeddingModel)),
		)
		chain, err := embeddings.NewChain(provider, secondary)
		if err != nil {
			log.Fatalf("Failed to build embedding chain: %v", err)
		}
		provider = chain
	}
	embedder := embeddings.NewCachedProvider(provider, memory.NewEmbeddingCache(shortTerm), embeddingModel)

	// Evidence index.
	var source evidence.Source
	var index evidence.Indexer
	if db != nil {
		store := evidence.NewPostgresStore(db, embedder.Dimension())
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare evidence store: %v", err)
		}
		source, index = store, store
	} else {
		store := evidence.NewMemoryStore()
		source, index = store, store
	}

	// Web search is optional.
	var web evidence.WebSearcher
	if searxURL := os.Getenv("SEARX_URL"); searxURL != "" {
		web = evidence.NewWebClient(searxURL)
	} else {
		log.Println("SEARX_URL not set, web search disabled")
	}

	// Translation is optional; without it Sinhala claims are matched as-is.
	decomposerOpts := []decompose.Option{}
	if translateURL := os.Getenv("TRANSLATE_URL"); translateURL != "" {
		decomposerOpts = append(decomposerOpts,
			decompose.WithTranslator(decompose.NewHTTPTranslator(translateURL, os.Getenv("TRANSLATE_API_KEY"))))
	}
	decomposer := decompose.NewDecomposer(decomposerOpts...)

	retriever := evidence.NewRetriever(embedder, source, web, evidence.DefaultConfig())
	examiner := crossexam.NewExaminer(crossexam.DefaultConfig())

	// The reasoner is optional; without it verdicts are rule-based.
	var reasoner verdict.Reasoner
	if llmURL := os.Getenv("LLM_API_URL"); llmURL != "" {
		chatOpts := []verdict.ChatOption{}
		if model := os.Getenv("LLM_MODEL"); model != "" {
			chatOpts = append(chatOpts, verdict.WithChatModel(model))
		}
		reasoner = verdict.NewChatClient(llmURL, os.Getenv("LLM_API_KEY"), chatOpts...)
	} else {
		log.Println("LLM_API_URL not set, verdicts are rule-based")
	}
	synthesizer := verdict.NewSynthesizer(reasoner)

	pipeline := verifier.NewPipeline(decomposer, retriever, examiner, synthesizer, mem)

	// Auth.
	authConfig := auth.DefaultConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		authConfig.SecretKey = secret
	}
	var accounts auth.AccountRepository
	if db != nil {
		repo := auth.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare accounts store: %v", err)
		}
		accounts = repo
	} else {
		accounts = auth.NewMemoryRepository()
	}
	authService := auth.NewJWTService(authConfig, accounts)

	server := api.NewServer(api.Deps{
		Verifier:    pipeline,
		History:     mem,
		Ingester:    evidence.NewIngestor(embedder, index),
		Health:      mem,
		AuthService: authService,
	})

	fmt.Printf("Starting claimlens server on port %s\n", port)
	if err := server.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
