// Package config loads veridata configuration from an optional YAML file and
// environment variables. Environment always wins over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider identifies the LLM backend used for statement structuring.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// LLM provider (statement structuring)
	LLMProvider     Provider
	LLMModel        string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	OllamaHost      string
	BedrockModel    string

	// Verification provider (file search / knowledge stores)
	VerifyModel string

	// HTTP server
	ServerPort string

	// Pipeline tuning
	BatchSize     int
	JobTTL        time.Duration
	SweepInterval time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration: defaults, then an optional YAML file
// (VERIDATA_CONFIG or ./veridata.yaml), then environment variables.
// A .env file in the working directory is honored via godotenv.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaults()

	if path := configFilePath(); path != "" {
		if err := cfg.applyFile(path); err != nil {
			slog.Warn("failed to read config file, using env/defaults", "path", path, "error", err)
		}
	}

	cfg.applyEnv()
	return cfg
}

func defaults() Config {
	return Config{
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "veridata",
		SurrealDBDatabase:  "analysis",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		LLMProvider:  ProviderOpenAI,
		LLMModel:     "gpt-4o-mini",
		OllamaHost:   "http://localhost:11434",
		BedrockModel: "anthropic.claude-3-haiku-20240307-v1:0",
		VerifyModel:  "gpt-4o-mini",

		ServerPort: "8585",

		BatchSize:     20,
		JobTTL:        10 * time.Minute,
		SweepInterval: 10 * time.Minute,

		LogFile:  "/tmp/veridata.log",
		LogLevel: slog.LevelInfo,
	}
}

func configFilePath() string {
	if path := os.Getenv("VERIDATA_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("veridata.yaml"); err == nil {
		return "veridata.yaml"
	}
	return ""
}

// fileConfig mirrors the YAML layout. Pointers distinguish "absent" from zero.
type fileConfig struct {
	SurrealDB struct {
		URL       *string `yaml:"url"`
		Namespace *string `yaml:"namespace"`
		Database  *string `yaml:"database"`
		User      *string `yaml:"user"`
		Pass      *string `yaml:"pass"`
		AuthLevel *string `yaml:"auth_level"`
	} `yaml:"surrealdb"`
	LLM struct {
		Provider     *string `yaml:"provider"`
		Model        *string `yaml:"model"`
		OllamaHost   *string `yaml:"ollama_host"`
		BedrockModel *string `yaml:"bedrock_model"`
		VerifyModel  *string `yaml:"verify_model"`
	} `yaml:"llm"`
	Server struct {
		Port *string `yaml:"port"`
	} `yaml:"server"`
	Pipeline struct {
		BatchSize     *int    `yaml:"batch_size"`
		JobTTL        *string `yaml:"job_ttl"`
		SweepInterval *string `yaml:"sweep_interval"`
	} `yaml:"pipeline"`
	Log struct {
		File  *string `yaml:"file"`
		Level *string `yaml:"level"`
	} `yaml:"log"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	setString(&c.SurrealDBURL, fc.SurrealDB.URL)
	setString(&c.SurrealDBNamespace, fc.SurrealDB.Namespace)
	setString(&c.SurrealDBDatabase, fc.SurrealDB.Database)
	setString(&c.SurrealDBUser, fc.SurrealDB.User)
	setString(&c.SurrealDBPass, fc.SurrealDB.Pass)
	setString(&c.SurrealDBAuthLevel, fc.SurrealDB.AuthLevel)

	if fc.LLM.Provider != nil {
		c.LLMProvider = Provider(*fc.LLM.Provider)
	}
	setString(&c.LLMModel, fc.LLM.Model)
	setString(&c.OllamaHost, fc.LLM.OllamaHost)
	setString(&c.BedrockModel, fc.LLM.BedrockModel)
	setString(&c.VerifyModel, fc.LLM.VerifyModel)

	setString(&c.ServerPort, fc.Server.Port)

	if fc.Pipeline.BatchSize != nil {
		c.BatchSize = *fc.Pipeline.BatchSize
	}
	setDuration(&c.JobTTL, fc.Pipeline.JobTTL)
	setDuration(&c.SweepInterval, fc.Pipeline.SweepInterval)

	setString(&c.LogFile, fc.Log.File)
	if fc.Log.Level != nil {
		c.LogLevel = parseLogLevel(*fc.Log.Level)
	}

	return nil
}

func (c *Config) applyEnv() {
	envString(&c.SurrealDBURL, "SURREALDB_URL")
	envString(&c.SurrealDBNamespace, "SURREALDB_NAMESPACE")
	envString(&c.SurrealDBDatabase, "SURREALDB_DATABASE")
	envString(&c.SurrealDBUser, "SURREALDB_USER")
	envString(&c.SurrealDBPass, "SURREALDB_PASS")
	envString(&c.SurrealDBAuthLevel, "SURREALDB_AUTH_LEVEL")

	if v := os.Getenv("VERIDATA_LLM_PROVIDER"); v != "" {
		c.LLMProvider = Provider(v)
	}
	envString(&c.LLMModel, "VERIDATA_LLM_MODEL")
	envString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	envString(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	envString(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envString(&c.OllamaHost, "OLLAMA_HOST")
	envString(&c.BedrockModel, "VERIDATA_BEDROCK_MODEL")
	envString(&c.VerifyModel, "VERIDATA_VERIFY_MODEL")

	envString(&c.ServerPort, "VERIDATA_SERVER_PORT")

	if v := os.Getenv("VERIDATA_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.BatchSize = n
		}
	}
	if v := os.Getenv("VERIDATA_JOB_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.JobTTL = d
		}
	}
	if v := os.Getenv("VERIDATA_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SweepInterval = d
		}
	}

	envString(&c.LogFile, "VERIDATA_LOG_FILE")
	if v := os.Getenv("VERIDATA_LOG_LEVEL"); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) {
	if src == nil {
		return
	}
	if d, err := time.ParseDuration(*src); err == nil {
		*dst = d
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
