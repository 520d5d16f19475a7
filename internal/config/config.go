// Package config loads the process-wide, environment-driven configuration
// for the ingestion pipeline: database DSN, object store credentials, model
// gateway endpoints, and pipeline tuning knobs.
package config

import "time"

// DBConfig configures the relational store adapter (C5).
type DBConfig struct {
	DSN         string
	MinConns    int32
	MaxConns    int32
	VectorDim   int
	VectorTable string
}

// S3SSEConfig configures server-side encryption for the object store.
type S3SSEConfig struct {
	Mode     string // "", "sse-s3", "sse-kms"
	KMSKeyID string
}

// S3Config configures the object store adapter (C4).
type S3Config struct {
	Bucket                string
	Region                string
	Endpoint              string
	AccessKey             string
	SecretKey             string
	UsePathStyle          bool
	TLSInsecureSkipVerify bool
	Prefix                string
	SSE                   S3SSEConfig
	DocumentsBucket       string
	ImagesBucket          string
	MaxObjectSizeBytes    int64
	AllowedMIMETypes      []string
}

// GatewayConfig configures the model gateway (C3).
type GatewayConfig struct {
	BaseURL          string
	LLMModel         string
	VisionModel      string
	EmbeddingModel   string
	EmbeddingDim     int
	GenerateTimeout  time.Duration
	VisionTimeout    time.Duration
	EmbedTimeout     time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	MaxConcurrentGen int
	MaxConcurrentVis int
	MaxConcurrentEmb int

	// RatePerSecond{Gen,Vis,Emb} cap the sustained call rate per operation
	// type, independent of MaxConcurrent*'s in-flight bound (§4.3). Zero
	// means unlimited.
	RatePerSecondGen float64
	RatePerSecondVis float64
	RatePerSecondEmb float64
	RateBurst        int
}

// PipelineConfig tunes the orchestrator (C11).
type PipelineConfig struct {
	ExecutionMode          string // production|demo|image_only|embedding_only|classification_only|full_test
	MaxConcurrentDocuments int
	MaxConcurrentChunks    int
	BatchSize              int
	StageTimeout           time.Duration
	PersistDegraded        bool
}

// Config is the top-level, immutable, process-wide configuration.
type Config struct {
	DB               DBConfig
	S3               S3Config
	Gateway          GatewayConfig
	Pipeline         PipelineConfig
	PatternConfigDir string
	LogLevel         string
	LogPath          string
	DebugMode        bool
	VerboseLogging   bool
}
