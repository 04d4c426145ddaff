package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fluentedge/essaylab/internal/domain"
)

// Config holds the essaylab API configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Redis   RedisConfig   `yaml:"redis"`
	Model   ModelConfig   `yaml:"model"`
	Grading GradingConfig `yaml:"grading"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RedisConfig holds the corpus snapshot store connection. Empty addrs
// disable snapshot persistence.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ModelConfig holds the language-model provider settings shared by the
// embedder and the judge.
type ModelConfig struct {
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	ChatModel       string  `yaml:"chat_model"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	Dimensions      int     `yaml:"dimensions"`
	Temperature     float32 `yaml:"temperature"`
	JudgeTimeoutSec int     `yaml:"judge_timeout_sec"`
	// EmbedInstruction is prepended to every text before vectorization
	// (for instruction-tuned embedding models).
	EmbedInstruction string `yaml:"embed_instruction"`
}

// GradingConfig holds the rubric weights and advisory length bounds.
type GradingConfig struct {
	GrammarWeight    float64 `yaml:"grammar_weight"`
	VocabularyWeight float64 `yaml:"vocabulary_weight"`
	ContentWeight    float64 `yaml:"content_weight"`
	MinWords         int     `yaml:"min_words"`
	MaxWords         int     `yaml:"max_words"`
}

// RubricWeights builds the validated domain rubric from the config.
func (g GradingConfig) RubricWeights() (domain.RubricWeights, error) {
	return domain.NewRubricWeights(
		g.GrammarWeight, g.VocabularyWeight, g.ContentWeight, g.MinWords, g.MaxWords,
	)
}

// StorageConfig holds corpus persistence settings.
type StorageConfig struct {
	SnapshotKey string `yaml:"snapshot_key"`
	SeedFile    string `yaml:"seed_file"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Grading waits on judgment round trips; give writes room.
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Model.ChatModel == "" {
		c.Model.ChatModel = "gpt-4o-mini"
	}
	if c.Model.EmbeddingModel == "" {
		c.Model.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Model.Dimensions <= 0 {
		c.Model.Dimensions = 1536
	}
	if c.Model.Temperature <= 0 {
		c.Model.Temperature = 0.3
	}
	if c.Model.JudgeTimeoutSec <= 0 {
		c.Model.JudgeTimeoutSec = 30
	}
	if c.Grading.GrammarWeight == 0 && c.Grading.VocabularyWeight == 0 && c.Grading.ContentWeight == 0 {
		c.Grading.GrammarWeight = 0.3
		c.Grading.VocabularyWeight = 0.3
		c.Grading.ContentWeight = 0.4
	}
	if c.Grading.MinWords <= 0 {
		c.Grading.MinWords = 20
	}
	if c.Grading.MaxWords <= 0 {
		c.Grading.MaxWords = 500
	}
	if c.Storage.SnapshotKey == "" {
		c.Storage.SnapshotKey = "essaylab:corpus"
	}
}

// Validate checks the configuration for correctness. Malformed rubric
// weights fail here, before any essay is processed.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Model.APIKey == "" {
		return fmt.Errorf("model.api_key is required")
	}
	if _, err := c.Grading.RubricWeights(); err != nil {
		return fmt.Errorf("grading: %w", err)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
