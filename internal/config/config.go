package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	S3       S3Config
	Log      LogConfig
	LLM      LLMConfig
	PDF      PDFConfig
	Pipeline PipelineConfig
	Queue    QueueConfig
}

// QueueConfig holds processing queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
}

// PipelineConfig holds document pipeline settings.
type PipelineConfig struct {
	Model               string `mapstructure:"model"` // empty uses each provider's default
	PageConcurrency     int    `mapstructure:"page_concurrency"`
	DocumentTimeoutSecs int    `mapstructure:"document_timeout_secs"`
}

// DocumentTimeout returns the per-document processing deadline.
func (p *PipelineConfig) DocumentTimeout() time.Duration {
	if p.DocumentTimeoutSecs <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(p.DocumentTimeoutSecs) * time.Second
}

// PDFConfig holds PDF rendering settings.
type PDFConfig struct {
	PdftoppmPath string  `mapstructure:"pdftoppm_path"`
	Zoom         float64 `mapstructure:"zoom"`
}

// LLMProviderConfig holds settings for a single LLM provider.
type LLMProviderConfig struct {
	Provider          string `mapstructure:"provider"`
	APIKey            string `mapstructure:"api_key"`
	DefaultModel      string `mapstructure:"default_model"`
	BaseURL           string `mapstructure:"base_url"`
	MaxRetries        int    `mapstructure:"max_retries"`
	TimeoutSecs       int    `mapstructure:"timeout_secs"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// LLMConfig holds the ordered LLM providers. Secondary and tertiary are
// fallbacks and may be left empty.
type LLMConfig struct {
	Primary   LLMProviderConfig `mapstructure:"primary"`
	Secondary LLMProviderConfig `mapstructure:"secondary"`
	Tertiary  LLMProviderConfig `mapstructure:"tertiary"`
}

// Providers returns the configured providers in fallback order.
func (l *LLMConfig) Providers() []*LLMProviderConfig {
	out := []*LLMProviderConfig{&l.Primary}
	if l.Secondary.Provider != "" {
		out = append(out, &l.Secondary)
	}
	if l.Tertiary.Provider != "" {
		out = append(out, &l.Tertiary)
	}
	return out
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the ACTFLOW_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ACTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "actflow")
	v.SetDefault("db.password", "actflow_secret")
	v.SetDefault("db.name", "actflow_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "actflow-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// LLM defaults
	v.SetDefault("llm.primary.provider", "openai")
	v.SetDefault("llm.primary.default_model", "gpt-4o")
	v.SetDefault("llm.primary.max_retries", 2)
	v.SetDefault("llm.primary.timeout_secs", 120)
	v.SetDefault("llm.primary.requests_per_minute", 60)
	v.SetDefault("llm.secondary.provider", "")
	v.SetDefault("llm.secondary.max_retries", 2)
	v.SetDefault("llm.secondary.timeout_secs", 120)
	v.SetDefault("llm.secondary.requests_per_minute", 60)
	v.SetDefault("llm.tertiary.provider", "")
	v.SetDefault("llm.tertiary.max_retries", 2)
	v.SetDefault("llm.tertiary.timeout_secs", 120)
	v.SetDefault("llm.tertiary.requests_per_minute", 60)

	// PDF defaults
	v.SetDefault("pdf.pdftoppm_path", "pdftoppm")
	v.SetDefault("pdf.zoom", 2.0)

	// Pipeline defaults
	v.SetDefault("pipeline.page_concurrency", 1)
	v.SetDefault("pipeline.document_timeout_secs", 600)

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 5)
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.concurrency", 2)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                    "ACTFLOW_SERVER_PORT",
		"server.read_timeout":            "ACTFLOW_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "ACTFLOW_SERVER_WRITE_TIMEOUT",
		"server.environment":             "ACTFLOW_SERVER_ENVIRONMENT",
		"db.host":                        "ACTFLOW_DB_HOST",
		"db.port":                        "ACTFLOW_DB_PORT",
		"db.user":                        "ACTFLOW_DB_USER",
		"db.password":                    "ACTFLOW_DB_PASSWORD",
		"db.name":                        "ACTFLOW_DB_NAME",
		"db.sslmode":                     "ACTFLOW_DB_SSLMODE",
		"db.max_open":                    "ACTFLOW_DB_MAX_OPEN",
		"db.max_idle":                    "ACTFLOW_DB_MAX_IDLE",
		"s3.region":                      "ACTFLOW_S3_REGION",
		"s3.bucket":                      "ACTFLOW_S3_BUCKET",
		"s3.endpoint":                    "ACTFLOW_S3_ENDPOINT",
		"s3.access_key":                  "ACTFLOW_S3_ACCESS_KEY",
		"s3.secret_key":                  "ACTFLOW_S3_SECRET_KEY",
		"s3.max_file_size_mb":            "ACTFLOW_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":              "ACTFLOW_S3_PRESIGN_EXPIRY",
		"log.level":                      "ACTFLOW_LOG_LEVEL",
		"log.format":                     "ACTFLOW_LOG_FORMAT",
		"pdf.pdftoppm_path":              "ACTFLOW_PDF_PDFTOPPM_PATH",
		"pdf.zoom":                       "ACTFLOW_PDF_ZOOM",
		"pipeline.model":                 "ACTFLOW_PIPELINE_MODEL",
		"pipeline.page_concurrency":      "ACTFLOW_PIPELINE_PAGE_CONCURRENCY",
		"pipeline.document_timeout_secs": "ACTFLOW_PIPELINE_DOCUMENT_TIMEOUT_SECS",
		"queue.poll_interval_secs":       "ACTFLOW_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":              "ACTFLOW_QUEUE_MAX_RETRIES",
		"queue.concurrency":              "ACTFLOW_QUEUE_CONCURRENCY",
	}
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		for _, field := range []string{"provider", "api_key", "default_model", "base_url", "max_retries", "timeout_secs", "requests_per_minute"} {
			key := "llm." + tier + "." + field
			envBindings[key] = "ACTFLOW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if ACTFLOW_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("ACTFLOW_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.LLM = LLMConfig{
		Primary:   loadProvider(v, "primary"),
		Secondary: loadProvider(v, "secondary"),
		Tertiary:  loadProvider(v, "tertiary"),
	}
	cfg.PDF = PDFConfig{
		PdftoppmPath: v.GetString("pdf.pdftoppm_path"),
		Zoom:         v.GetFloat64("pdf.zoom"),
	}
	cfg.Pipeline = PipelineConfig{
		Model:               v.GetString("pipeline.model"),
		PageConcurrency:     v.GetInt("pipeline.page_concurrency"),
		DocumentTimeoutSecs: v.GetInt("pipeline.document_timeout_secs"),
	}
	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
	}

	return cfg, nil
}

func loadProvider(v *viper.Viper, tier string) LLMProviderConfig {
	prefix := "llm." + tier + "."
	return LLMProviderConfig{
		Provider:          v.GetString(prefix + "provider"),
		APIKey:            v.GetString(prefix + "api_key"),
		DefaultModel:      v.GetString(prefix + "default_model"),
		BaseURL:           v.GetString(prefix + "base_url"),
		MaxRetries:        v.GetInt(prefix + "max_retries"),
		TimeoutSecs:       v.GetInt(prefix + "timeout_secs"),
		RequestsPerMinute: v.GetInt(prefix + "requests_per_minute"),
	}
}
