package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables, optionally overlaid
// by a .env file in the working directory. It applies defaults for anything
// left unset and returns an error if a required value is missing, per the
// fail-fast validation contract in spec §4.1/§7. Malformed numeric values
// fall back to their defaults rather than producing an error.
func Load() (Config, error) {
	// Overload so a local .env deterministically controls behavior in
	// development, mirroring the teacher's Load().
	_ = godotenv.Overload()

	cfg := Config{
		DB: DBConfig{
			DSN:         firstNonEmpty(os.Getenv("DATABASE_URL"), buildDSNFromParts()),
			MinConns:    int32(intFromEnv("DB_MIN_CONNS", 2)),
			MaxConns:    int32(intFromEnv("DB_MAX_CONNS", 10)),
			VectorDim:   intFromEnv("EMBEDDING_DIM", 768),
			VectorTable: "embeddings",
		},
		S3: S3Config{
			Bucket:          firstNonEmpty(os.Getenv("S3_BUCKET"), "documents"),
			Region:          firstNonEmpty(os.Getenv("S3_REGION"), "us-east-1"),
			Endpoint:        strings.TrimSpace(os.Getenv("SUPABASE_URL")),
			AccessKey:       strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY")),
			SecretKey:       strings.TrimSpace(os.Getenv("SUPABASE_PASSWORD")),
			UsePathStyle:    boolFromEnv("S3_USE_PATH_STYLE", true),
			DocumentsBucket: firstNonEmpty(os.Getenv("S3_DOCUMENTS_BUCKET"), "documents"),
			ImagesBucket:    firstNonEmpty(os.Getenv("S3_IMAGES_BUCKET"), "document-images"),
			MaxObjectSizeBytes: int64(intFromEnv("S3_MAX_OBJECT_MB", 200)) * 1024 * 1024,
			AllowedMIMETypes: []string{
				"application/pdf", "image/png", "image/jpeg",
			},
		},
		Gateway: GatewayConfig{
			BaseURL:          firstNonEmpty(os.Getenv("OLLAMA_BASE_URL"), "http://localhost:11434"),
			LLMModel:         firstNonEmpty(os.Getenv("LLM_MODEL"), "llama3"),
			VisionModel:      firstNonEmpty(os.Getenv("VISION_MODEL"), "llava"),
			EmbeddingModel:   firstNonEmpty(os.Getenv("EMBEDDING_MODEL"), "nomic-embed-text"),
			EmbeddingDim:     intFromEnv("EMBEDDING_DIM", 768),
			GenerateTimeout:  durationFromEnvSeconds("GENERATE_TIMEOUT_SECONDS", 120),
			VisionTimeout:    durationFromEnvSeconds("VISION_TIMEOUT_SECONDS", 60),
			EmbedTimeout:     durationFromEnvSeconds("EMBED_TIMEOUT_SECONDS", 30),
			MaxRetries:       intFromEnv("GATEWAY_MAX_RETRIES", 3),
			RetryBaseDelay:   time.Second,
			MaxConcurrentGen: intFromEnv("MAX_CONCURRENT", 3),
			MaxConcurrentVis: intFromEnv("MAX_CONCURRENT", 3),
			MaxConcurrentEmb: intFromEnv("MAX_CONCURRENT", 3),
		},
		Pipeline: PipelineConfig{
			ExecutionMode:          firstNonEmpty(os.Getenv("EXECUTION_MODE"), "production"),
			MaxConcurrentDocuments: intFromEnv("MAX_CONCURRENT_DOCUMENTS", 3),
			MaxConcurrentChunks:    intFromEnv("MAX_CONCURRENT_CHUNKS", 10),
			BatchSize:              intFromEnv("BATCH_SIZE", 16),
			StageTimeout:           durationFromEnvSeconds("STAGE_TIMEOUT_SECONDS", 600),
			PersistDegraded:        true,
		},
		PatternConfigDir: firstNonEmpty(os.Getenv("PATTERN_CONFIG_DIR"), "./config/patterns"),
		LogLevel:         firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		LogPath:          strings.TrimSpace(os.Getenv("LOG_PATH")),
		DebugMode:        boolFromEnv("DEBUG_MODE", false),
		VerboseLogging:   boolFromEnv("VERBOSE_LOGGING", false),
	}

	if cfg.DB.DSN == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL (or discrete DB_* vars) is required")
	}
	if cfg.S3.Endpoint == "" {
		return Config{}, fmt.Errorf("config: SUPABASE_URL (object store endpoint) is required")
	}

	return cfg, nil
}

func buildDSNFromParts() string {
	host := strings.TrimSpace(os.Getenv("DB_HOST"))
	if host == "" {
		return ""
	}
	user := firstNonEmpty(os.Getenv("DB_USER"), "postgres")
	pass := os.Getenv("DB_PASSWORD")
	name := firstNonEmpty(os.Getenv("DB_NAME"), "postgres")
	port := firstNonEmpty(os.Getenv("DB_PORT"), "5432")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := parseInt(v)
	if err != nil {
		return def
	}
	return n
}

func boolFromEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func durationFromEnvSeconds(key string, defSeconds int) time.Duration {
	return time.Duration(intFromEnv(key, defSeconds)) * time.Second
}
