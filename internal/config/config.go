package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Narration NarrationConfig
	Compiler  CompilerConfig
	Assembly  AssemblyConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SessionConfig controls playback session storage and viewer tokens.
// Store is "redis" or "memory".
type SessionConfig struct {
	Store      string
	Secret     string
	TTLMinutes int
}

func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

type RateLimitConfig struct {
	CompilePerHour  int
	SessionsPerHour int
}

// StorageConfig points at an S3-compatible bucket (Cloudflare R2 by default)
type StorageConfig struct {
	AccountID       string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	Region          string
}

type NarrationConfig struct {
	ServiceURL  string
	Timeout     int // seconds
	Voice       string
	Format      string
	Concurrency int
}

// CompilerConfig holds the defaults applied to every compile request
type CompilerConfig struct {
	DefaultLanguage      string
	AvailableLanguages   []string
	TargetWidth          float64
	TargetHeight         float64
	TolerancePx          float64
	MaxAttempts          int
	Points               int
	PenaltyPerWrongClick int
	QuestionWindowMs     int64
	ProjectTTLHours      int
}

type AssemblyConfig struct {
	SourceDir string
	OutputDir string
	Prefix    string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("SESSION_SECRET")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("session.store", "SESSION_STORE")
	_ = viper.BindEnv("session.secret", "SESSION_SECRET")
	_ = viper.BindEnv("session.ttl_minutes", "SESSION_TTL_MINUTES")
	_ = viper.BindEnv("ratelimit.compile_per_hour", "RATELIMIT_COMPILE_PER_HOUR")
	_ = viper.BindEnv("ratelimit.sessions_per_hour", "RATELIMIT_SESSIONS_PER_HOUR")
	_ = viper.BindEnv("storage.account_id", "STORAGE_ACCOUNT_ID")
	_ = viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = viper.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = viper.BindEnv("storage.region", "STORAGE_REGION")
	_ = viper.BindEnv("narration.service_url", "NARRATION_SERVICE_URL")
	_ = viper.BindEnv("narration.timeout", "NARRATION_SERVICE_TIMEOUT")
	_ = viper.BindEnv("narration.voice", "NARRATION_VOICE")
	_ = viper.BindEnv("narration.format", "NARRATION_FORMAT")
	_ = viper.BindEnv("narration.concurrency", "NARRATION_CONCURRENCY")
	_ = viper.BindEnv("compiler.default_language", "COMPILER_DEFAULT_LANGUAGE")
	_ = viper.BindEnv("compiler.available_languages", "COMPILER_AVAILABLE_LANGUAGES")
	_ = viper.BindEnv("compiler.target_width", "COMPILER_TARGET_WIDTH")
	_ = viper.BindEnv("compiler.target_height", "COMPILER_TARGET_HEIGHT")
	_ = viper.BindEnv("compiler.tolerance_px", "COMPILER_TOLERANCE_PX")
	_ = viper.BindEnv("compiler.max_attempts", "COMPILER_MAX_ATTEMPTS")
	_ = viper.BindEnv("compiler.points", "COMPILER_POINTS")
	_ = viper.BindEnv("compiler.penalty_per_wrong_click", "COMPILER_PENALTY_PER_WRONG_CLICK")
	_ = viper.BindEnv("compiler.question_window_ms", "COMPILER_QUESTION_WINDOW_MS")
	_ = viper.BindEnv("compiler.project_ttl_hours", "COMPILER_PROJECT_TTL_HOURS")
	_ = viper.BindEnv("assembly.source_dir", "ASSEMBLY_SOURCE_DIR")
	_ = viper.BindEnv("assembly.output_dir", "ASSEMBLY_OUTPUT_DIR")
	_ = viper.BindEnv("assembly.prefix", "ASSEMBLY_PREFIX")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("session.store", "redis")
	viper.SetDefault("session.secret", "change-me-in-production")
	viper.SetDefault("session.ttl_minutes", 120)
	viper.SetDefault("ratelimit.compile_per_hour", 30)
	viper.SetDefault("ratelimit.sessions_per_hour", 300)
	viper.SetDefault("storage.region", "auto")

	// Narration defaults
	viper.SetDefault("narration.timeout", 60)
	viper.SetDefault("narration.format", "mp3")
	viper.SetDefault("narration.concurrency", 4)

	// Interactive step defaults
	viper.SetDefault("compiler.default_language", "en")
	viper.SetDefault("compiler.available_languages", []string{"en"})
	viper.SetDefault("compiler.target_width", 10)
	viper.SetDefault("compiler.target_height", 8)
	viper.SetDefault("compiler.tolerance_px", 15)
	viper.SetDefault("compiler.max_attempts", 3)
	viper.SetDefault("compiler.points", 10)
	viper.SetDefault("compiler.penalty_per_wrong_click", 2)
	viper.SetDefault("compiler.question_window_ms", 5000)
	viper.SetDefault("compiler.project_ttl_hours", 24)

	viper.SetDefault("assembly.source_dir", "./recordings")
	viper.SetDefault("assembly.output_dir", "./projects")
	viper.SetDefault("assembly.prefix", "projects")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Session: SessionConfig{
			Store:      viper.GetString("session.store"),
			Secret:     viper.GetString("session.secret"),
			TTLMinutes: viper.GetInt("session.ttl_minutes"),
		},
		RateLimit: RateLimitConfig{
			CompilePerHour:  viper.GetInt("ratelimit.compile_per_hour"),
			SessionsPerHour: viper.GetInt("ratelimit.sessions_per_hour"),
		},
		Storage: StorageConfig{
			AccountID:       viper.GetString("storage.account_id"),
			Endpoint:        viper.GetString("storage.endpoint"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			BucketName:      viper.GetString("storage.bucket_name"),
			PublicURL:       viper.GetString("storage.public_url"),
			Region:          viper.GetString("storage.region"),
		},
		Narration: NarrationConfig{
			ServiceURL:  viper.GetString("narration.service_url"),
			Timeout:     viper.GetInt("narration.timeout"),
			Voice:       viper.GetString("narration.voice"),
			Format:      viper.GetString("narration.format"),
			Concurrency: viper.GetInt("narration.concurrency"),
		},
		Compiler: CompilerConfig{
			DefaultLanguage:      viper.GetString("compiler.default_language"),
			AvailableLanguages:   splitList(viper.GetStringSlice("compiler.available_languages")),
			TargetWidth:          viper.GetFloat64("compiler.target_width"),
			TargetHeight:         viper.GetFloat64("compiler.target_height"),
			TolerancePx:          viper.GetFloat64("compiler.tolerance_px"),
			MaxAttempts:          viper.GetInt("compiler.max_attempts"),
			Points:               viper.GetInt("compiler.points"),
			PenaltyPerWrongClick: viper.GetInt("compiler.penalty_per_wrong_click"),
			QuestionWindowMs:     viper.GetInt64("compiler.question_window_ms"),
			ProjectTTLHours:      viper.GetInt("compiler.project_ttl_hours"),
		},
		Assembly: AssemblyConfig{
			SourceDir: viper.GetString("assembly.source_dir"),
			OutputDir: viper.GetString("assembly.output_dir"),
			Prefix:    viper.GetString("assembly.prefix"),
		},
	}

	return cfg, nil
}

// splitList accepts both a YAML list and a comma separated env value
func splitList(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
