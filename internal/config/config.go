package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project    string           `yaml:"project"`
	Version    int              `yaml:"version"`
	Store      StoreConfig      `yaml:"store"`
	Generation GenerationConfig `yaml:"generation"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
	Story      StoryConfig      `yaml:"story"`
	Promotion  PromotionConfig  `yaml:"goal_promotion"`
}

type StoreConfig struct {
	// Path is the world document tree, relative to the project directory.
	Path string `yaml:"path"`
}

type GenerationConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   string `yaml:"timeout"`
}

type SearchConfig struct {
	DSN string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Encoding   string `yaml:"encoding"`
	OutputPath string `yaml:"output_path"`
}

type StoryConfig struct {
	Premise       string `yaml:"premise"`
	Protagonist   string `yaml:"protagonist"`
	StoryGoal     string `yaml:"story_goal"`
	SceneMinWords int    `yaml:"scene_min_words"`
}

type PromotionConfig struct {
	WindowStart int `yaml:"window_start"`
	WindowEnd   int `yaml:"window_end"`
	MinMentions int `yaml:"min_mentions"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = "world"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 2000
	}
	if cfg.Generation.Timeout == "" {
		cfg.Generation.Timeout = "90s"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Search.DSN == "" {
		cfg.Search.DSN = "sqlite://worldindex.db"
	}
	if cfg.Story.SceneMinWords == 0 {
		cfg.Story.SceneMinWords = 300
	}
	if cfg.Promotion.WindowStart == 0 {
		cfg.Promotion.WindowStart = 10
	}
	if cfg.Promotion.WindowEnd == 0 {
		cfg.Promotion.WindowEnd = 15
	}
	if cfg.Promotion.MinMentions == 0 {
		cfg.Promotion.MinMentions = 5
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Generation.Model) == "" {
		return fmt.Errorf("generation model is required")
	}
	if _, err := time.ParseDuration(cfg.Generation.Timeout); err != nil {
		return fmt.Errorf("invalid generation timeout %q: %w", cfg.Generation.Timeout, err)
	}
	if !strings.HasPrefix(cfg.Search.DSN, "sqlite://") && !strings.HasPrefix(cfg.Search.DSN, "postgres://") {
		return fmt.Errorf("search dsn must use sqlite:// or postgres:// scheme")
	}
	if cfg.Promotion.WindowStart > cfg.Promotion.WindowEnd {
		return fmt.Errorf("goal promotion window start %d is after end %d", cfg.Promotion.WindowStart, cfg.Promotion.WindowEnd)
	}
	return nil
}

// GenerationTimeout returns the parsed per-call budget for the generation
// service. Validated at load time.
func (cfg *ProjectConfig) GenerationTimeout() time.Duration {
	d, err := time.ParseDuration(cfg.Generation.Timeout)
	if err != nil {
		return 90 * time.Second
	}
	return d
}
