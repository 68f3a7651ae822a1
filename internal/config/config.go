package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  int
	VideoSource           string // camera index ("0") or a file/stream URL
	DatabasePath          string
	SnapshotDirectory     string
	SnapshotBufferLimit   int
	SnapshotFlushInterval int // seconds
	LogDirectory          string
	LogLevel              string
	StaticDirectory       string

	KeepMatches      int
	RansacThreshold  float64
	RansacMaxIters   int
	RansacConfidence float64

	TrackLogInterval   int           // write every Nth frame result to the track log
	MaxCaptureFailures int           // consecutive read failures before the loop gives up
	PreviewWidth       int           // viewer frames are scaled down to this width, 0 keeps the size
	ViewerTimeout      time.Duration // a viewer that answers no ping for this long is dropped
	CommandQueueSize   int
	ProcTimeBuckets    []float64 // histogram buckets in ms, nil means prometheus defaults
}

// Load reads .env (if present) and then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnvAsInt("PORT", 8080),
		VideoSource:           getEnv("VIDEO_SOURCE", "0"),
		DatabasePath:          getEnv("DB_PATH", filepath.Join(".", "data", "tracker.db")),
		SnapshotDirectory:     getEnv("SNAPSHOT_DIR", filepath.Join(".", "snapshots")),
		SnapshotBufferLimit:   getEnvAsInt("SNAPSHOT_BUFFER_LIMIT", 7),
		SnapshotFlushInterval: getEnvAsInt("SNAPSHOT_FLUSH_INTERVAL", 30),
		LogDirectory:          getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		StaticDirectory:       getEnv("STATIC_DIR", "static"),
		KeepMatches:           getEnvAsInt("KEEP_MATCHES", 15),
		RansacThreshold:       getEnvAsFloat("RANSAC_THRESHOLD", 3.0),
		RansacMaxIters:        getEnvAsInt("RANSAC_MAX_ITERS", 2000),
		RansacConfidence:      getEnvAsFloat("RANSAC_CONFIDENCE", 0.995),
		TrackLogInterval:      getEnvAsInt("TRACK_LOG_INTERVAL", 10),
		MaxCaptureFailures:    getEnvAsInt("MAX_CAPTURE_FAILURES", 30),
		PreviewWidth:          getEnvAsInt("PREVIEW_WIDTH", 640),
		ViewerTimeout:         getEnvAsDuration("VIEWER_TIMEOUT", 60*time.Second),
		CommandQueueSize:      getEnvAsInt("COMMAND_QUEUE_SIZE", 16),
		ProcTimeBuckets:       getEnvAsFloats("PROC_TIME_BUCKETS", nil),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getEnvAsFloats parses a comma separated list. Any bad entry discards the
// whole value.
func getEnvAsFloats(key string, defaultValue []float64) []float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return defaultValue
		}
		values = append(values, f)
	}
	return values
}
