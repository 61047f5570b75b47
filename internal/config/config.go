package config

import (
	"os"
)

type Config struct {
	Run     RunConfig
	Storage StorageConfig
	Keys    KeysConfig
	Dedup   DedupConfig
	Vocab   VocabConfig
	Logging LoggingConfig
	Metrics MetricsConfig
}

type RunConfig struct {
	// Mode selects the entrypoint: "lambda" consumes SQS deliveries,
	// "local" reads one CSV export by key and runs a single invocation.
	Mode     string
	InputKey string

	// OutputFormat selects the sink encoding: "csv" or "parquet".
	OutputFormat string
}

type StorageConfig struct {
	Backend    string
	LocalDir   string
	GCSBucket  string
	S3Bucket   string
	S3Endpoint string
	S3Region   string
	Prefix     string
}

// KeysConfig names the shared-state blobs. Logical layout, not literal
// paths: one fingerprint set per raw scope, one blob per catalog, one
// counter ledger.
type KeysConfig struct {
	LocationsKey    string
	ProductsKey     string
	CountersKey     string
	HashPrefix      string
	ProcessedPrefix string
	OutputPrefix    string
}

type DedupConfig struct {
	Enabled       bool
	FailOpen      bool
	CompressAudit bool
}

type VocabConfig struct {
	Path string // optional YAML override for size/flavour vocabularies
}

type LoggingConfig struct {
	Format string
	Level  string
}

type MetricsConfig struct {
	Enabled bool
	Address string
}

// MustLoad reads configuration from the environment, applying defaults
// suitable for local development.
func MustLoad() Config {
	return Config{
		Run: RunConfig{
			Mode:         getenvDefault("RUN_MODE", "local"),
			InputKey:     os.Getenv("INPUT_KEY"),
			OutputFormat: getenvDefault("OUTPUT_FORMAT", "csv"),
		},
		Storage: StorageConfig{
			Backend:    getenvDefault("STORAGE_BACKEND", "local"),
			LocalDir:   getenvDefault("LOCAL_DIR", "./data"),
			GCSBucket:  os.Getenv("GCS_BUCKET"),
			S3Bucket:   os.Getenv("S3_BUCKET"),
			S3Endpoint: os.Getenv("S3_ENDPOINT"),
			S3Region:   os.Getenv("S3_REGION"),
			Prefix:     os.Getenv("STORAGE_PREFIX"),
		},
		Keys: KeysConfig{
			LocationsKey:    getenvDefault("LOCATIONS_KEY", "registry/locations.csv"),
			ProductsKey:     getenvDefault("PRODUCTS_KEY", "registry/products.csv"),
			CountersKey:     getenvDefault("COUNTERS_KEY", "registry/id_counters.json"),
			HashPrefix:      getenvDefault("HASH_PREFIX", "hash_registry/"),
			ProcessedPrefix: getenvDefault("PROCESSED_PREFIX", "processed/"),
			OutputPrefix:    getenvDefault("OUTPUT_PREFIX", ""),
		},
		Dedup: DedupConfig{
			Enabled:       getenvDefault("PERFORM_DEDUPLICATION", "true") == "true",
			FailOpen:      os.Getenv("DEDUP_FAIL_OPEN") == "true",
			CompressAudit: os.Getenv("DEDUP_COMPRESS_AUDIT") == "true",
		},
		Vocab: VocabConfig{
			Path: os.Getenv("VOCAB_PATH"),
		},
		Logging: LoggingConfig{
			Format: getenvDefault("LOG_FORMAT", "text"),
			Level:  getenvDefault("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Enabled: os.Getenv("METRICS_ENABLED") == "true",
			Address: getenvDefault("METRICS_ADDRESS", ":9090"),
		},
	}
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
