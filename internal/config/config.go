package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port             int              `json:"port"`
	CORSAllowlist    []string         `json:"cors_allowlist"`
	QueryRateLimitMS int              `json:"query_rate_limit_ms"`
	Database         DatabaseConfig   `json:"database"`
	LogConfig        logger.LogConfig `json:"log_config"`
	AI               AIConfig         `json:"ai"`
	Retrieval        RetrievalConfig  `json:"retrieval"`
	Safety           SafetyConfig     `json:"safety"`
	Images           ImageConfig      `json:"images"`
	Ingest           IngestConfig     `json:"ingest"`
	Jobs             JobsConfig       `json:"jobs"`
	FileStore        FileStoreConfig  `json:"file_store"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	Data          interface{} `json:"data"`
	Model         string      `json:"model"`
	EmbedModel    string      `json:"embed_model"`
	Timeout       int         `json:"timeout"`
	MaxTokens     int         `json:"max_tokens"`
	Temperature   float64     `json:"temperature"`
	EmbedCacheLen int         `json:"embed_cache_len"`
	EmbedCacheTTL int         `json:"embed_cache_ttl_minutes"`
}

type RetrievalConfig struct {
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	MaxImages           int     `json:"max_images"`
	DedupOverlap        float64 `json:"dedup_overlap"`
	MaxAnswerChars      int     `json:"max_answer_chars"`
	AnswerCacheLen      int     `json:"answer_cache_len"`
	AnswerCacheTTL      int     `json:"answer_cache_ttl_minutes"`
}

type SafetyConfig struct {
	HighRiskKeywords   []string `json:"high_risk_keywords"`
	MediumRiskKeywords []string `json:"medium_risk_keywords"`
}

type ImageConfig struct {
	// TieBreak picks the ranking tie-break between equally relevant images:
	// "simple-first" (default) or "complex-first".
	TieBreak string `json:"tie_break"`
}

type IngestConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

type JobsConfig struct {
	EmbeddingCron string `json:"embedding_cron"`
	BatchSize     int    `json:"batch_size"`
	Workers       int    `json:"workers"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 2048
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.2
	}
	if cfg.AI.EmbedCacheLen == 0 {
		cfg.AI.EmbedCacheLen = 10000
	}
	if cfg.AI.EmbedCacheTTL == 0 {
		cfg.AI.EmbedCacheTTL = 120
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.SimilarityThreshold == 0 {
		cfg.Retrieval.SimilarityThreshold = 0.6
	}
	if cfg.Retrieval.SimilarityThreshold < 0 || cfg.Retrieval.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("retrieval.similarity_threshold must be in [0,1]")
	}
	if cfg.Retrieval.MaxImages == 0 {
		cfg.Retrieval.MaxImages = 3
	}
	if cfg.Retrieval.DedupOverlap == 0 {
		cfg.Retrieval.DedupOverlap = 0.9
	}
	if cfg.Retrieval.MaxAnswerChars == 0 {
		cfg.Retrieval.MaxAnswerChars = 4000
	}
	if cfg.Retrieval.AnswerCacheLen == 0 {
		cfg.Retrieval.AnswerCacheLen = 1000
	}
	if cfg.Retrieval.AnswerCacheTTL == 0 {
		cfg.Retrieval.AnswerCacheTTL = 24 * 60
	}
	switch cfg.Images.TieBreak {
	case "":
		cfg.Images.TieBreak = "simple-first"
	case "simple-first", "complex-first":
	default:
		return nil, fmt.Errorf("images.tie_break must be simple-first or complex-first")
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		return nil, fmt.Errorf("ingest.chunk_overlap must be smaller than ingest.chunk_size")
	}
	if cfg.Jobs.EmbeddingCron == "" {
		cfg.Jobs.EmbeddingCron = "*/5 * * * *"
	}
	if cfg.Jobs.BatchSize == 0 {
		cfg.Jobs.BatchSize = 5
	}
	if cfg.Jobs.Workers == 0 {
		cfg.Jobs.Workers = 2
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	return &cfg, nil
}
