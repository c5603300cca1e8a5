package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory (blobs, thumbnails, sqlite file)
	Data string
	// DSN points to where keepsake stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the public url of your keepsake instance, used when
	// issuing blob URLs handed to the vision service.
	InstanceURL string
	// Secret signs session tokens.
	Secret string

	// Vision service configuration
	VisionBaseURL       string        // KEEPSAKE_VISION_BASE_URL
	VisionAPIKey        string        // KEEPSAKE_VISION_API_KEY
	VisionTimeout       time.Duration // KEEPSAKE_VISION_TIMEOUT (default: 30s)
	EmbeddingProvider   string        // KEEPSAKE_EMBEDDING_PROVIDER (default: openai)
	EmbeddingAPIKey     string        // KEEPSAKE_EMBEDDING_API_KEY
	EmbeddingBaseURL    string        // KEEPSAKE_EMBEDDING_BASE_URL
	EmbeddingModel      string        // KEEPSAKE_EMBEDDING_MODEL (default: text-embedding-3-small)
	EmbeddingDimensions int           // KEEPSAKE_EMBEDDING_DIMENSIONS (default: 768)

	// Feed reconciliation configuration
	FeedPollInterval time.Duration // KEEPSAKE_FEED_POLL_INTERVAL (default: 4s)
	SearchDebounce   time.Duration // KEEPSAKE_SEARCH_DEBOUNCE (default: 300ms)

	// Enrichment runner configuration
	EnrichInterval  time.Duration // KEEPSAKE_ENRICH_INTERVAL (default: 30s)
	EnrichBatchSize int           // KEEPSAKE_ENRICH_BATCH_SIZE (default: 8)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsVisionEnabled returns true if the captioning service is configured.
func (p *Profile) IsVisionEnabled() bool {
	return p.VisionBaseURL != ""
}

// IsEmbeddingEnabled returns true if text embeddings can be generated.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingAPIKey != "" || p.EmbeddingBaseURL != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

// FromEnv loads configuration from KEEPSAKE_* environment variables.
func (p *Profile) FromEnv() {
	if p.InstanceURL == "" {
		p.InstanceURL = getEnvOrDefault("KEEPSAKE_INSTANCE_URL", fmt.Sprintf("http://localhost:%d", p.Port))
	}
	if p.Secret == "" {
		p.Secret = os.Getenv("KEEPSAKE_SECRET")
	}

	p.VisionBaseURL = os.Getenv("KEEPSAKE_VISION_BASE_URL")
	p.VisionAPIKey = os.Getenv("KEEPSAKE_VISION_API_KEY")
	p.VisionTimeout = getDurationEnv("KEEPSAKE_VISION_TIMEOUT", 30*time.Second)
	p.EmbeddingProvider = getEnvOrDefault("KEEPSAKE_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingAPIKey = os.Getenv("KEEPSAKE_EMBEDDING_API_KEY")
	p.EmbeddingBaseURL = os.Getenv("KEEPSAKE_EMBEDDING_BASE_URL")
	p.EmbeddingModel = getEnvOrDefault("KEEPSAKE_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingDimensions = getIntEnv("KEEPSAKE_EMBEDDING_DIMENSIONS", 768)

	p.FeedPollInterval = getDurationEnv("KEEPSAKE_FEED_POLL_INTERVAL", 4*time.Second)
	p.SearchDebounce = getDurationEnv("KEEPSAKE_SEARCH_DEBOUNCE", 300*time.Millisecond)

	p.EnrichInterval = getDurationEnv("KEEPSAKE_ENRICH_INTERVAL", 30*time.Second)
	p.EnrichBatchSize = getIntEnv("KEEPSAKE_ENRICH_BATCH_SIZE", 8)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("KEEPSAKE_SECRET is required in prod mode")
		}
		p.Secret = "keepsake-dev-secret"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "keepsake")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/keepsake"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("keepsake_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
