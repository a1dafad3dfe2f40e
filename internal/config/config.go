package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Model backends understood by the factory
const (
	BackendClassical = "classical"
	BackendRemote    = "remote"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64

	UploadDir string
	OutputDir string

	WorkerCount  int
	QueueSize    int
	JobRetention time.Duration
	MaxJobs      int

	ModelBackend   string
	ModelServerURL string
	ModelTimeout   time.Duration

	OCREnabled     bool
	OCRLanguage    string
	VideoOCRStride int

	FFmpegPath  string
	FFprobePath string

	RateLimitRPS   float64
	RateLimitBurst int

	AzureAccount   string
	AzureKey       string
	AzureContainer string

	TracingEnabled bool
	OTLPEndpoint   string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether artifacts should be published to blob storage
func (c *Config) AzureEnabled() bool {
	return c.AzureAccount != "" && c.AzureKey != "" && c.AzureContainer != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "5000")
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("MAX_REQUEST_BODY_SIZE", int64(512*1024*1024)) // 512MB, videos
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("OUTPUT_DIR", "api_outputs")
	v.SetDefault("WORKER_COUNT", 2)
	v.SetDefault("QUEUE_SIZE", 32)
	v.SetDefault("JOB_RETENTION", 24*time.Hour)
	v.SetDefault("MAX_JOBS", 10000)
	v.SetDefault("MODEL_BACKEND", BackendClassical)
	v.SetDefault("MODEL_SERVER_URL", "")
	v.SetDefault("MODEL_TIMEOUT", 2*time.Minute)
	v.SetDefault("OCR_ENABLED", true)
	v.SetDefault("OCR_LANGUAGE", "eng")
	v.SetDefault("VIDEO_OCR_STRIDE", 6)
	v.SetDefault("FFMPEG_PATH", "ffmpeg")
	v.SetDefault("FFPROBE_PATH", "ffprobe")
	v.SetDefault("RATE_LIMIT_RPS", 2.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("AZURE_STORAGE_ACCOUNT", "")
	v.SetDefault("AZURE_STORAGE_KEY", "")
	v.SetDefault("AZURE_CONTAINER", "")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
}

// LoadFromEnv reads configuration from the environment, optionally layered
// over a config file named by CONFIG_FILE.
func LoadFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", file, err)
		}
	}

	cfg := &Config{
		Host:               v.GetString("HOST"),
		Port:               v.GetString("PORT"),
		RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
		MaxRequestBodySize: v.GetInt64("MAX_REQUEST_BODY_SIZE"),
		UploadDir:          v.GetString("UPLOAD_DIR"),
		OutputDir:          v.GetString("OUTPUT_DIR"),
		WorkerCount:        v.GetInt("WORKER_COUNT"),
		QueueSize:          v.GetInt("QUEUE_SIZE"),
		JobRetention:       v.GetDuration("JOB_RETENTION"),
		MaxJobs:            v.GetInt("MAX_JOBS"),
		ModelBackend:       strings.ToLower(strings.TrimSpace(v.GetString("MODEL_BACKEND"))),
		ModelServerURL:     strings.TrimRight(v.GetString("MODEL_SERVER_URL"), "/"),
		ModelTimeout:       v.GetDuration("MODEL_TIMEOUT"),
		OCREnabled:         v.GetBool("OCR_ENABLED"),
		OCRLanguage:        v.GetString("OCR_LANGUAGE"),
		VideoOCRStride:     v.GetInt("VIDEO_OCR_STRIDE"),
		FFmpegPath:         v.GetString("FFMPEG_PATH"),
		FFprobePath:        v.GetString("FFPROBE_PATH"),
		RateLimitRPS:       v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:     v.GetInt("RATE_LIMIT_BURST"),
		AzureAccount:       v.GetString("AZURE_STORAGE_ACCOUNT"),
		AzureKey:           v.GetString("AZURE_STORAGE_KEY"),
		AzureContainer:     v.GetString("AZURE_CONTAINER"),
		TracingEnabled:     v.GetBool("TRACING_ENABLED"),
		OTLPEndpoint:       v.GetString("OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ModelTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, model=%s)", c.RequestTimeout, c.ModelTimeout)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be >= 1 (got %d)", c.WorkerCount)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be >= 1 (got %d)", c.QueueSize)
	}
	if c.JobRetention < 0 || c.MaxJobs < 0 {
		return fmt.Errorf("JOB_RETENTION and MAX_JOBS must not be negative")
	}
	if c.UploadDir == "" || c.OutputDir == "" {
		return fmt.Errorf("UPLOAD_DIR and OUTPUT_DIR must be set")
	}
	switch c.ModelBackend {
	case BackendClassical:
	case BackendRemote:
		if c.ModelServerURL == "" {
			return fmt.Errorf("MODEL_SERVER_URL is required when MODEL_BACKEND=%s", BackendRemote)
		}
	default:
		return fmt.Errorf("unsupported MODEL_BACKEND: %q", c.ModelBackend)
	}
	if c.VideoOCRStride < 0 {
		return fmt.Errorf("VIDEO_OCR_STRIDE must be >= 0 (got %d)", c.VideoOCRStride)
	}
	if c.TracingEnabled && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP_ENDPOINT is required when TRACING_ENABLED is set")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be positive (got rps=%v, burst=%d)", c.RateLimitRPS, c.RateLimitBurst)
	}
	return nil
}
