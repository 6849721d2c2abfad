// Package config handles application configuration management.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/richardsimms/SpeasyTTS/internal/models"
)

// Config holds all application configuration. Values come from defaults,
// an optional YAML file and SPEASY_* environment variables, in that order.
type Config struct {
	Audio        AudioConfig              `yaml:"audio"`
	Requirements models.AudioRequirements `yaml:"requirements"`
	TTS          TTSConfig                `yaml:"tts"`
	Retry        RetryConfig              `yaml:"retry"`
	Database     DatabaseConfig           `yaml:"database"`
	Storage      StorageConfig            `yaml:"storage"`
	Bus          BusConfig                `yaml:"bus"`
	Worker       WorkerConfig             `yaml:"worker"`
	Telemetry    TelemetryConfig          `yaml:"telemetry"`
	LogLevel     string                   `yaml:"log_level"`
	Environment  Environment              `yaml:"environment"`
}

// AudioConfig holds audio processing and file storage configuration.
type AudioConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
	// TempPath is the scratch area shared by all runs of this process.
	TempPath   string `yaml:"temp_path"`
	OutputPath string `yaml:"output_path"`
	// RepairBitrate is the normalized bitrate (kbps) forced by the repairer.
	RepairBitrate int `yaml:"repair_bitrate"`
}

// TTSConfig holds speech synthesis configuration.
type TTSConfig struct {
	Provider Provider `yaml:"provider"`
	APIKey   string   `yaml:"api_key"`
	BaseURL  string   `yaml:"base_url"`
	Model    string   `yaml:"model"`
	Voice    string   `yaml:"voice"`
	// Command is used by the exec provider, e.g. "piper --model en_US.onnx".
	Command        string        `yaml:"command"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// HardLimit is the provider's maximum input length in characters.
	HardLimit int `yaml:"hard_limit"`
	// Ceiling is the segmenter's per-chunk maximum, kept below HardLimit.
	Ceiling  int `yaml:"ceiling"`
	MinChunk int `yaml:"min_chunk"`
}

// RetryConfig controls per-chunk synthesis retries.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// DatabaseConfig holds conversion record storage parameters.
type DatabaseConfig struct {
	Driver   DatabaseDriver `yaml:"driver"`
	Path     string         `yaml:"path"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	User     string         `yaml:"user"`
	Password string         `yaml:"password"`
	Database string         `yaml:"database"`
}

// StorageConfig selects where finished artifacts are persisted.
type StorageConfig struct {
	Driver    StorageDriver `yaml:"driver"`
	Bucket    string        `yaml:"bucket"`
	Prefix    string        `yaml:"prefix"`
	Region    string        `yaml:"region"`
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
}

// BusConfig holds NATS settings for request intake and completion events.
type BusConfig struct {
	Enabled          bool          `yaml:"enabled"`
	URL              string        `yaml:"url"`
	RequestSubject   string        `yaml:"request_subject"`
	EventSubjectBase string        `yaml:"event_subject_base"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	// Embedded starts an in-process NATS server on EmbeddedPort.
	Embedded     bool `yaml:"embedded"`
	EmbeddedPort int  `yaml:"embedded_port"`
}

// WorkerConfig controls the background executor and the scratch sweeper.
type WorkerConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	QueueSize     int           `yaml:"queue_size"`
	ScratchMaxAge time.Duration `yaml:"scratch_max_age"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// TelemetryConfig holds metrics exposition settings.
type TelemetryConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			FFmpegPath:    "ffmpeg",
			FFprobePath:   "ffprobe",
			TempPath:      "./audio/temp",
			OutputPath:    "./audio/output",
			RepairBitrate: 128,
		},
		Requirements: models.DefaultAudioRequirements(),
		TTS: TTSConfig{
			Provider:       ProviderOpenAI,
			Model:          "tts-1",
			Voice:          "alloy",
			RequestTimeout: 90 * time.Second,
			HardLimit:      4096,
			Ceiling:        3800,
			MinChunk:       100,
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			Path:     "./data/speasy.db",
			Host:     "localhost",
			Port:     3306,
			User:     "speasy",
			Database: "speasy",
		},
		Storage: StorageConfig{
			Driver: StorageLocal,
			Region: "us-east-1",
		},
		Bus: BusConfig{
			URL:              "nats://localhost:4222",
			RequestSubject:   "speasy.conversions.request",
			EventSubjectBase: "speasy.conversions",
			ConnectTimeout:   2 * time.Second,
			EmbeddedPort:     4222,
		},
		Worker: WorkerConfig{
			Concurrency:   2,
			QueueSize:     32,
			ScratchMaxAge: time.Hour,
			SweepInterval: 15 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			MetricsAddress: ":9091",
		},
		LogLevel:    "info",
		Environment: EnvDevelopment,
	}
}

// Load reads configuration from an optional YAML file and the environment.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - path is an operator-supplied flag
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.Requirements = cfg.Requirements.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnsureDirs creates the scratch and output directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Audio.TempPath, c.Audio.OutputPath} {
		// #nosec G301 - 0755 is appropriate for audio directories
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Audio.FFmpegPath, "SPEASY_FFMPEG_PATH")
	overrideString(&cfg.Audio.FFprobePath, "SPEASY_FFPROBE_PATH")
	overrideString(&cfg.Audio.TempPath, "SPEASY_TEMP_PATH")
	overrideString(&cfg.Audio.OutputPath, "SPEASY_OUTPUT_PATH")
	overrideInt(&cfg.Audio.RepairBitrate, "SPEASY_REPAIR_BITRATE")

	overrideInt64(&cfg.Requirements.MaxFileSizeBytes, "SPEASY_MAX_FILE_SIZE_BYTES")
	overrideInt(&cfg.Requirements.MinBitrate, "SPEASY_MIN_BITRATE")
	overrideInt(&cfg.Requirements.MaxBitrate, "SPEASY_MAX_BITRATE")
	overrideIntSlice(&cfg.Requirements.AllowedSampleRates, "SPEASY_ALLOWED_SAMPLE_RATES")
	overrideStringSlice(&cfg.Requirements.AllowedFormats, "SPEASY_ALLOWED_FORMATS")

	overrideString((*string)(&cfg.TTS.Provider), "SPEASY_TTS_PROVIDER")
	overrideString(&cfg.TTS.APIKey, "SPEASY_TTS_API_KEY")
	if cfg.TTS.APIKey == "" && cfg.TTS.Provider == ProviderOpenAI {
		overrideString(&cfg.TTS.APIKey, "OPENAI_API_KEY")
	}
	overrideString(&cfg.TTS.BaseURL, "SPEASY_TTS_BASE_URL")
	overrideString(&cfg.TTS.Model, "SPEASY_TTS_MODEL")
	overrideString(&cfg.TTS.Voice, "SPEASY_TTS_VOICE")
	overrideString(&cfg.TTS.Command, "SPEASY_TTS_COMMAND")
	overrideDuration(&cfg.TTS.RequestTimeout, "SPEASY_TTS_REQUEST_TIMEOUT")
	overrideInt(&cfg.TTS.HardLimit, "SPEASY_TTS_HARD_LIMIT")
	overrideInt(&cfg.TTS.Ceiling, "SPEASY_TTS_CEILING")
	overrideInt(&cfg.TTS.MinChunk, "SPEASY_TTS_MIN_CHUNK")

	overrideInt(&cfg.Retry.MaxAttempts, "SPEASY_RETRY_MAX_ATTEMPTS")
	overrideDuration(&cfg.Retry.InitialInterval, "SPEASY_RETRY_INITIAL_INTERVAL")
	overrideDuration(&cfg.Retry.MaxInterval, "SPEASY_RETRY_MAX_INTERVAL")

	overrideString((*string)(&cfg.Database.Driver), "SPEASY_DB_DRIVER")
	overrideString(&cfg.Database.Path, "SPEASY_DB_PATH")
	overrideString(&cfg.Database.Host, "SPEASY_DB_HOST")
	overrideInt(&cfg.Database.Port, "SPEASY_DB_PORT")
	overrideString(&cfg.Database.User, "SPEASY_DB_USER")
	overrideString(&cfg.Database.Password, "SPEASY_DB_PASSWORD")
	overrideString(&cfg.Database.Database, "SPEASY_DB_NAME")

	overrideString((*string)(&cfg.Storage.Driver), "SPEASY_STORAGE_DRIVER")
	overrideString(&cfg.Storage.Bucket, "SPEASY_S3_BUCKET")
	overrideString(&cfg.Storage.Prefix, "SPEASY_S3_PREFIX")
	overrideString(&cfg.Storage.Region, "SPEASY_S3_REGION")
	overrideString(&cfg.Storage.Endpoint, "SPEASY_S3_ENDPOINT")
	overrideString(&cfg.Storage.AccessKey, "SPEASY_S3_ACCESS_KEY")
	overrideString(&cfg.Storage.SecretKey, "SPEASY_S3_SECRET_KEY")

	overrideBool(&cfg.Bus.Enabled, "SPEASY_BUS_ENABLED")
	overrideString(&cfg.Bus.URL, "SPEASY_BUS_URL")
	overrideString(&cfg.Bus.RequestSubject, "SPEASY_BUS_REQUEST_SUBJECT")
	overrideString(&cfg.Bus.EventSubjectBase, "SPEASY_BUS_EVENT_SUBJECT_BASE")
	overrideDuration(&cfg.Bus.ConnectTimeout, "SPEASY_BUS_CONNECT_TIMEOUT")
	overrideBool(&cfg.Bus.Embedded, "SPEASY_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.EmbeddedPort, "SPEASY_BUS_EMBEDDED_PORT")

	overrideInt(&cfg.Worker.Concurrency, "SPEASY_WORKER_CONCURRENCY")
	overrideInt(&cfg.Worker.QueueSize, "SPEASY_WORKER_QUEUE_SIZE")
	overrideDuration(&cfg.Worker.ScratchMaxAge, "SPEASY_SCRATCH_MAX_AGE")
	overrideDuration(&cfg.Worker.SweepInterval, "SPEASY_SWEEP_INTERVAL")

	overrideString(&cfg.Telemetry.MetricsAddress, "SPEASY_METRICS_ADDRESS")
	overrideString(&cfg.LogLevel, "SPEASY_LOG_LEVEL")
	overrideString((*string)(&cfg.Environment), "SPEASY_ENV")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideInt64(target *int64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideDuration(target *time.Duration, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideIntSlice(target *[]int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var parsed []int
		for _, p := range strings.Split(value, ",") {
			s := strings.TrimSpace(p)
			if s == "" {
				continue
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				return
			}
			parsed = append(parsed, n)
		}
		if len(parsed) > 0 {
			*target = parsed
		}
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Audio.FFmpegPath == "" || c.Audio.FFprobePath == "" {
		return errors.New("audio.ffmpeg_path and audio.ffprobe_path must not be empty")
	}
	if c.Audio.TempPath == "" {
		return errors.New("audio.temp_path must not be empty")
	}
	if c.Audio.RepairBitrate <= 0 {
		return errors.New("audio.repair_bitrate must be positive")
	}
	if err := c.Requirements.Validate(); err != nil {
		return fmt.Errorf("requirements: %w", err)
	}
	if !c.TTS.Provider.IsValid() {
		return fmt.Errorf("tts.provider must be one of openai|elevenlabs|exec, got %q", c.TTS.Provider)
	}
	if c.TTS.Provider == ProviderExec && c.TTS.Command == "" {
		return errors.New("tts.command must be set when provider=exec")
	}
	if c.TTS.HardLimit <= 0 {
		return errors.New("tts.hard_limit must be positive")
	}
	if c.TTS.Ceiling <= 0 || c.TTS.Ceiling > c.TTS.HardLimit {
		return fmt.Errorf("tts.ceiling must be between 1 and tts.hard_limit (%d)", c.TTS.HardLimit)
	}
	if c.TTS.MinChunk < 0 || c.TTS.MinChunk >= c.TTS.Ceiling {
		return errors.New("tts.min_chunk must be >= 0 and below tts.ceiling")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if !c.Database.Driver.IsValid() {
		return fmt.Errorf("database.driver must be one of sqlite|mysql, got %q", c.Database.Driver)
	}
	if !c.Storage.Driver.IsValid() {
		return fmt.Errorf("storage.driver must be one of local|s3, got %q", c.Storage.Driver)
	}
	if c.Storage.Driver == StorageS3 && c.Storage.Bucket == "" {
		return errors.New("storage.bucket must be set when driver=s3")
	}
	if c.Worker.Concurrency < 1 {
		return errors.New("worker.concurrency must be >= 1")
	}
	if !c.Environment.IsValid() {
		return fmt.Errorf("environment must be development or production, got %q", c.Environment)
	}
	return nil
}
