package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/manualkit/manualkit/internal/ai"
	"github.com/manualkit/manualkit/internal/config"
	"github.com/manualkit/manualkit/internal/embedcache"
	"github.com/manualkit/manualkit/internal/filestore"
	"github.com/manualkit/manualkit/internal/handler"
	"github.com/manualkit/manualkit/internal/imageindex"
	"github.com/manualkit/manualkit/internal/job"
	"github.com/manualkit/manualkit/internal/middleware"
	"github.com/manualkit/manualkit/internal/repo"
	"github.com/manualkit/manualkit/internal/safety"
	"github.com/manualkit/manualkit/internal/schedule"
	"github.com/manualkit/manualkit/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "manualkit",
		Short: "manualkit retrieval server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the manualkit server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer app.db.Close()
			return runServer(app)
		},
	}

	var ingestSource string
	var ingestPage int
	ingestCmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "split a document file into chunks and store them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer app.db.Close()
			return runIngest(app, args[0], ingestSource, ingestPage)
		},
	}
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source name recorded on chunks (defaults to the file name)")
	ingestCmd.Flags().IntVar(&ingestPage, "page", 1, "page number recorded on chunks")

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "embed pending chunks once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer app.db.Close()
			return app.backfill.Run(context.Background())
		},
	}

	rootCmd.AddCommand(runCmd, ingestCmd, backfillCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

type app struct {
	cfg      *config.Config
	db       *sql.DB
	ingest   *service.IngestService
	answers  *service.AnswerService
	backfill *job.EmbeddingBackfillJob
}

func buildApp(configPath string) (*app, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	db, err := repo.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.ApplyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	chunkRepo := repo.NewChunkRepo(db)
	imageRepo := repo.NewImageRepo(db)

	providerArgs := cfg.AI.Data
	if providerArgs == nil {
		providerArgs = cfg.AI
	}
	provider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	embedder := embedcache.WrapLRU(
		ai.NewEmbedder(provider, cfg.AI.EmbedModel),
		cfg.AI.EmbedCacheLen,
		time.Duration(cfg.AI.EmbedCacheTTL)*time.Minute,
	)
	generator := ai.NewGenerator(provider, cfg.AI.Model, ai.GenerateOptions{
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
	})

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}

	classifier := safety.NewClassifier(cfg.Safety.HighRiskKeywords, cfg.Safety.MediumRiskKeywords)
	imageIndex := imageindex.New(imageRepo, cfg.Images.TieBreak != "complex-first")
	aiTimeout := time.Duration(cfg.AI.Timeout) * time.Second

	retriever := service.NewRetrievalService(
		chunkRepo, embedder, imageIndex,
		service.RetrievalOptions{
			TopK:      cfg.Retrieval.TopK,
			Threshold: cfg.Retrieval.SimilarityThreshold,
			MaxImages: cfg.Retrieval.MaxImages,
		},
		cfg.Retrieval.DedupOverlap,
		aiTimeout,
	)
	answers := service.NewAnswerService(
		retriever, generator, classifier,
		aiTimeout,
		cfg.Retrieval.MaxAnswerChars,
		cfg.Retrieval.AnswerCacheLen,
		time.Duration(cfg.Retrieval.AnswerCacheTTL)*time.Minute,
	)
	ingest := service.NewIngestService(chunkRepo, imageRepo, classifier, files,
		cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	backfill := job.NewEmbeddingBackfillJob(chunkRepo, embedder, cfg.Jobs.BatchSize, cfg.Jobs.Workers)

	return &app{
		cfg:      cfg,
		db:       db,
		ingest:   ingest,
		answers:  answers,
		backfill: backfill,
	}, nil
}

func runServer(app *app) error {
	cfg := app.cfg
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
	)

	scheduler := schedule.NewScheduler()
	if err := scheduler.AddJob(app.backfill, cfg.Jobs.EmbeddingCron); err != nil {
		return fmt.Errorf("schedule backfill: %w", err)
	}

	deps := handler.RouterDeps{
		Query:  handler.NewQueryHandler(app.answers),
		Ingest: handler.NewIngestHandler(app.ingest),
		System: handler.NewSystemHandler(app.ingest),
	}

	middlewares := []gin.HandlerFunc{
		middleware.CORS(cfg.CORSAllowlist),
		gzip.Gzip(gzip.DefaultCompression),
	}
	if cfg.QueryRateLimitMS > 0 {
		middlewares = append(middlewares, middleware.RateLimit(time.Duration(cfg.QueryRateLimitMS)*time.Millisecond))
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(middlewares...),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runIngest(app *app, path, source string, page int) error {
	ctx := context.Background()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	if source == "" {
		source = filepath.Base(path)
	}
	var stored int
	if strings.HasSuffix(strings.ToLower(path), ".md") {
		stored, err = app.ingest.IngestMarkdown(ctx, source, data)
	} else {
		stored, err = app.ingest.IngestDocument(ctx, source, page, string(data))
	}
	if err != nil {
		return fmt.Errorf("ingest document: %w", err)
	}
	logutil.GetLogger(ctx).Info("ingest complete", zap.String("source", source), zap.Int("chunks", stored))
	return nil
}
