package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fluentedge/essaylab/internal/config"
	"github.com/fluentedge/essaylab/internal/corpus"
	"github.com/fluentedge/essaylab/internal/domain"
	"github.com/fluentedge/essaylab/internal/evaluation"
	logpkg "github.com/fluentedge/essaylab/internal/logger"
	"github.com/fluentedge/essaylab/internal/metrics"
	"github.com/fluentedge/essaylab/internal/repository/embcache"
	"github.com/fluentedge/essaylab/internal/repository/snapshot"
	"github.com/fluentedge/essaylab/internal/retrieval"
	chiTransport "github.com/fluentedge/essaylab/internal/transport/chi"
	"github.com/fluentedge/essaylab/internal/transport/openai"
	"github.com/fluentedge/essaylab/internal/version"
	"github.com/fluentedge/essaylab/internal/workflow"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting essaylab API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("chat_model", cfg.Model.ChatModel),
		zap.String("embedding_model", cfg.Model.EmbeddingModel),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	ctx := context.Background()

	// Optional snapshot store; an empty redis.addrs runs in-memory only.
	var snap *snapshot.Store
	if len(cfg.Redis.Addrs) > 0 {
		snap, err = snapshot.New(snapshot.Config{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
			Key:      cfg.Storage.SnapshotKey,
		})
		if err != nil {
			logger.Fatal("Failed to create snapshot store", zap.Error(err))
		}
		defer snap.Close()

		if err := snap.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Snapshot store not ready", zap.Error(err))
		}
		logger.Info("Connected to snapshot store")
	}

	// Build embedder chain: OpenAI -> Cached -> Instruction (outermost, so
	// the cache key includes the instruction).
	modelCfg := &openai.Config{
		APIKey:         cfg.Model.APIKey,
		BaseURL:        cfg.Model.BaseURL,
		EmbeddingModel: cfg.Model.EmbeddingModel,
		Dimensions:     cfg.Model.Dimensions,
		ChatModel:      cfg.Model.ChatModel,
		Temperature:    cfg.Model.Temperature,
		Logger:         logger,
	}
	var embedder domain.Embedder = openai.NewEmbedder(modelCfg)
	if snap != nil {
		embedder = embcache.New(embedder, snap, metrics.EmbeddingCacheTotal, logger)
	}
	if cfg.Model.EmbedInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Model.EmbedInstruction)
	}
	judge := openai.NewJudge(modelCfg)

	promptCorpus := corpus.New(embedder, logger)

	if err := loadCorpus(ctx, promptCorpus, snap, cfg.Storage.SeedFile, logger); err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}
	logger.Info("Corpus loaded", zap.Int("prompts", promptCorpus.Count()))

	engine := retrieval.New(promptCorpus, logger)
	pipeline := evaluation.New(judge, time.Duration(cfg.Model.JudgeTimeoutSec)*time.Second, logger)
	coordinator := workflow.New(engine, pipeline, logger)

	weights, err := cfg.Grading.RubricWeights()
	if err != nil {
		logger.Fatal("Invalid rubric weights", zap.Error(err))
	}

	server := chiTransport.NewServer(coordinator, promptCorpus, weights, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	saveSnapshot(promptCorpus, snap, logger)

	logger.Info("Server stopped gracefully")
}

// loadCorpus restores the corpus from the latest snapshot when one exists,
// otherwise seeds it from the authored prompt file.
func loadCorpus(ctx context.Context, c *corpus.Corpus, snap *snapshot.Store, seedFile string, logger *zap.Logger) error {
	if snap != nil {
		data, err := snap.Load(ctx)
		if err != nil {
			return err
		}
		if data != nil {
			if err := c.ImportJSON(data); err != nil {
				return fmt.Errorf("restore snapshot: %w", err)
			}
			logger.Info("Corpus restored from snapshot")
			return nil
		}
	}

	if seedFile == "" {
		logger.Warn("No snapshot and no seed file, starting with an empty corpus")
		return nil
	}
	data, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	n, err := c.Seed(ctx, data)
	if err != nil {
		return fmt.Errorf("seed corpus: %w", err)
	}
	logger.Info("Corpus seeded", zap.String("file", seedFile), zap.Int("prompts", n))
	return nil
}

// saveSnapshot persists the corpus on shutdown so embeddings survive restarts.
func saveSnapshot(c *corpus.Corpus, snap *snapshot.Store, logger *zap.Logger) {
	if snap == nil || c.Count() == 0 {
		return
	}
	data, err := c.ExportJSON()
	if err != nil {
		logger.Error("Failed to export corpus", zap.Error(err))
		return
	}
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := snap.Save(saveCtx, data); err != nil {
		logger.Error("Failed to save snapshot", zap.Error(err))
		return
	}
	logger.Info("Corpus snapshot saved", zap.Int("prompts", c.Count()))
}
