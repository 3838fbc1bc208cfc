// Package config loads and validates agentcore's engine configuration:
// database connection, tool sandboxing limits, executor concurrency, and
// LLM provider credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/joho/godotenv"
)

// Config is the root configuration for one engine process.
type Config struct {
	Database *DatabaseConfig `yaml:"database" validate:"required"`
	Memory   MemoryConfig    `yaml:"memory"`
	Tool     ToolConfig      `yaml:"tool"`
	Executor ExecutorConfig  `yaml:"executor"`
	LLM      LLMConfig       `yaml:"llm" validate:"required"`
}

// DatabaseConfig configures the MemoryStore's PostgreSQL connection.
type DatabaseConfig struct {
	URL           string `yaml:"url" validate:"required"`
	MaxConns      int    `yaml:"max_connections" validate:"omitempty,min=1"`
}

// MemoryConfig configures AgentMemory defaults.
type MemoryConfig struct {
	MaxEntries int `yaml:"max_entries" validate:"omitempty,min=1"`
}

// ToolConfig groups per-tool sandboxing configuration.
type ToolConfig struct {
	FileRead    FileReadConfig    `yaml:"file_read"`
	CodeRunner  CodeRunnerConfig  `yaml:"code_runner"`
	Audio       AudioConfig       `yaml:"audio"`
}

// FileReadConfig configures FileReadTool's security boundary.
type FileReadConfig struct {
	BaseDir        string `yaml:"base_dir" validate:"required"`
	AllowSymlinks  bool   `yaml:"allow_symlinks"`
	MaxSizeBytes   int64  `yaml:"max_size_bytes" validate:"omitempty,min=1"`
	MaxPathLength  int    `yaml:"max_path_length" validate:"omitempty,min=1"`
}

// CodeRunnerConfig configures CommandRunnerTool.
type CodeRunnerConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	AllowedCommands  []string      `yaml:"allowed_commands"`
}

// AudioConfig configures TTSTool's output location.
type AudioConfig struct {
	OutputDir string `yaml:"output_dir" validate:"required"`
}

// ExecutorConfig configures ParallelTaskExecutor.
type ExecutorConfig struct {
	MaxParallelism     int           `yaml:"max_parallelism" validate:"omitempty,min=1"`
	TaskTimeoutSeconds int           `yaml:"task_timeout_seconds" validate:"omitempty,min=1"`
	ShutdownGrace      time.Duration `yaml:"shutdown_grace"`
}

// LLMConfig configures the default LLM provider used by SubAgent.
type LLMConfig struct {
	Provider   string        `yaml:"provider" validate:"required"`
	APIKey     string        `yaml:"api_key" validate:"required"`
	Model      string        `yaml:"model" validate:"required"`
	BaseURL    string        `yaml:"base_url,omitempty"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries" validate:"omitempty,min=0"`
}

// Load reads, env-expands, merges over defaults, and validates the engine
// configuration file at path. A sibling ".env" file (if present in the same
// directory) is loaded first via godotenv, layering it under the YAML
// configuration for local development.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env")) // best-effort; absence of .env is not an error

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoadError(path, err)
	}

	expanded := ExpandEnv(raw)

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	defaults := Default()
	if err := mergo.Merge(&cfg, defaults); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("merging defaults: %w", err))
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration defaults, applied by Load as a
// base layer beneath whatever the YAML file specifies.
func Default() Config {
	return Config{
		Database: &DatabaseConfig{
			MaxConns: 10,
		},
		Memory: MemoryConfig{
			MaxEntries: 50,
		},
		Tool: ToolConfig{
			FileRead: FileReadConfig{
				AllowSymlinks: false,
				MaxSizeBytes:  10 * 1024 * 1024,
				MaxPathLength: 4096,
			},
			CodeRunner: CodeRunnerConfig{
				Timeout: 30 * time.Second,
			},
			Audio: AudioConfig{
				OutputDir: "/tmp/agentcore-audio",
			},
		},
		Executor: ExecutorConfig{
			TaskTimeoutSeconds: 300,
			ShutdownGrace:      30 * time.Second,
		},
		LLM: LLMConfig{
			Timeout:    60 * time.Second,
			MaxRetries: 3,
		},
	}
}
