package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"execbrief/internal/core"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App            `mapstructure:"app"`
	Sources   []SourceConfig `mapstructure:"sources"`
	Relevance Relevance      `mapstructure:"relevance"`
	Scoring   Scoring        `mapstructure:"scoring"`
	AI        AI             `mapstructure:"ai"`
	Cache     Cache          `mapstructure:"cache"`
	Server    Server         `mapstructure:"server"`
	Logging   Logging        `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir"`
}

// SourceConfig describes one external feed in the configuration file.
type SourceConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Format   string `mapstructure:"format"`
	MaxItems int    `mapstructure:"max_items"`
	Category string `mapstructure:"category"`
	Research bool   `mapstructure:"research"`
}

// Relevance holds the keyword filtering configuration
type Relevance struct {
	// Terms maps a category to the term list an item must match to stay in
	// the run. Categories with no term list are considered specialized and
	// pass the relevance check unconditionally.
	Terms map[string][]string `mapstructure:"terms"`
}

// Scoring holds the importance scoring model configuration
type Scoring struct {
	BaseScore        int               `mapstructure:"base_score"`
	KeywordIncrement int               `mapstructure:"keyword_increment"`
	CategoryBonus    int               `mapstructure:"category_bonus"`
	RecencyBonus     int               `mapstructure:"recency_bonus"`
	MaxScore         int               `mapstructure:"max_score"`
	MinScore         int               `mapstructure:"min_score"`
	PriorityKeywords []string          `mapstructure:"priority_keywords"`
	BonusCategories  []string          `mapstructure:"bonus_categories"`
	TopicGroups      map[string]string `mapstructure:"topic_groups"`
	UseOracle        bool              `mapstructure:"use_oracle"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     string  `mapstructure:"timeout"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// Cache holds brief cache configuration
type Cache struct {
	Directory string `mapstructure:"directory"`
	TTL       string `mapstructure:"ttl"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	CORS         CORS          `mapstructure:"cors"`
	RateLimit    RateLimit     `mapstructure:"rate_limit"`
}

// CORS holds CORS configuration
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimit holds request throttling configuration
type RateLimit struct {
	Enabled bool `mapstructure:"enabled"`
	Limit   int  `mapstructure:"limit"`
}

// Logging holds logging configuration
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".execbrief")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := Validate(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// Get returns the loaded configuration, loading defaults if necessary.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return cfg
	}
	return globalConfig
}

// Reset clears the loaded configuration (used by tests).
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".execbrief")

	// Default source list. Overridden wholesale by any "sources" entry in
	// the config file.
	viper.SetDefault("sources", []map[string]interface{}{
		{
			"name": "mit-tech-review-ai", "url": "https://www.technologyreview.com/topic/artificial-intelligence/feed",
			"format": "feed", "max_items": 10, "category": "strategic", "research": false,
		},
		{
			"name": "venturebeat-ai", "url": "https://venturebeat.com/category/ai/feed/",
			"format": "feed", "max_items": 10, "category": "operational", "research": false,
		},
		{
			"name": "google-ai-blog", "url": "https://blog.google/technology/ai/rss/",
			"format": "feed", "max_items": 8, "category": "technical", "research": false,
		},
		{
			"name": "arxiv-ai-listing", "url": "https://export.arxiv.org/rss/cs.AI",
			"format": "feed", "max_items": 8, "category": "technical", "research": true,
		},
		{
			"name": "nist-ai-updates", "url": "https://www.nist.gov/news-events/artificial-intelligence/rss.xml",
			"format": "feed", "max_items": 6, "category": "risk", "research": false,
		},
		{
			"name": "hn-frontpage", "url": "https://hnrss.org/frontpage",
			"format": "feed", "max_items": 15, "category": "general", "research": false,
		},
	})

	// Relevance term lists. The general list is the strict one: broad feeds
	// must mention AI to survive filtering.
	viper.SetDefault("relevance.terms", map[string][]string{
		"general": {
			"ai", "artificial intelligence", "machine learning", "llm",
			"large language model", "genai", "generative", "gpt", "chatbot",
			"neural", "deep learning", "foundation model",
		},
		"strategic": {
			"ai", "artificial intelligence", "automation", "adoption",
			"investment", "strategy", "enterprise", "workforce",
		},
		"operational": {
			"ai", "artificial intelligence", "machine learning", "copilot",
			"automation", "productivity", "deployment", "agent",
		},
	})

	// Scoring defaults
	viper.SetDefault("scoring.base_score", 5)
	viper.SetDefault("scoring.keyword_increment", 1)
	viper.SetDefault("scoring.category_bonus", 1)
	viper.SetDefault("scoring.recency_bonus", 1)
	viper.SetDefault("scoring.max_score", 10)
	viper.SetDefault("scoring.min_score", 4)
	viper.SetDefault("scoring.priority_keywords", []string{
		"regulation", "executive order", "safety", "breakthrough", "launch",
		"acquisition", "funding", "open source", "benchmark", "agents",
		"enterprise", "layoffs", "lawsuit", "compliance",
	})
	viper.SetDefault("scoring.bonus_categories", []string{"strategic", "risk"})
	viper.SetDefault("scoring.topic_groups", map[string]string{
		"strategic":   "strategy",
		"operational": "operations",
		"technical":   "technology",
		"risk":        "risk",
		"general":     "operations",
	})
	viper.SetDefault("scoring.use_oracle", false)

	// AI defaults
	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "30s")
	viper.SetDefault("ai.gemini.max_tokens", 1024)
	viper.SetDefault("ai.gemini.temperature", 0.2)

	// Cache defaults
	viper.SetDefault("cache.directory", ".execbrief/cache")
	viper.SetDefault("cache.ttl", "24h")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "90s")
	viper.SetDefault("server.fetch_timeout", "20s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.rate_limit.enabled", true)
	viper.SetDefault("server.rate_limit.limit", 100)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
}

func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"})
	bindEnvKeys("app.debug", []string{"EXECBRIEF_DEBUG"})
	bindEnvKeys("app.data_dir", []string{"EXECBRIEF_DATA_DIR"})
	bindEnvKeys("server.port", []string{"EXECBRIEF_PORT", "PORT"})
	bindEnvKeys("logging.level", []string{"EXECBRIEF_LOG_LEVEL"})
	bindEnvKeys("scoring.use_oracle", []string{"EXECBRIEF_USE_ORACLE"})
}

// bindEnvKeys binds the first set environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

func postProcessConfig(config *Config) error {
	config.App.DataDir = expandPath(config.App.DataDir)
	config.Cache.Directory = expandPath(config.Cache.Directory)

	for i := range config.Sources {
		config.Sources[i].Name = strings.TrimSpace(config.Sources[i].Name)
		if config.Sources[i].MaxItems == 0 {
			config.Sources[i].MaxItems = 10
		}
	}

	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Validate checks the configuration for structural problems that would make
// a pipeline run impossible or non-deterministic.
func Validate(config *Config) error {
	if len(config.Sources) == 0 {
		return fmt.Errorf("config: at least one source must be configured")
	}

	seen := make(map[string]bool)
	for _, src := range config.Sources {
		if src.Name == "" {
			return fmt.Errorf("config: source with URL %q has no name", src.URL)
		}
		if seen[src.Name] {
			return fmt.Errorf("config: duplicate source name %q", src.Name)
		}
		seen[src.Name] = true

		if src.URL == "" {
			return fmt.Errorf("config: source %q has no URL", src.Name)
		}
		if src.MaxItems <= 0 {
			return fmt.Errorf("config: source %q has non-positive max_items", src.Name)
		}
		if f := core.SourceFormat(src.Format); f != core.FormatFeed && f != core.FormatList {
			return fmt.Errorf("config: source %q has unknown format %q", src.Name, src.Format)
		}
		if !validCategory(src.Category) {
			return fmt.Errorf("config: source %q has unknown category %q", src.Name, src.Category)
		}
	}

	s := config.Scoring
	if s.MaxScore <= 0 || s.BaseScore < 0 || s.BaseScore > s.MaxScore {
		return fmt.Errorf("config: scoring bounds are inconsistent (base=%d max=%d)", s.BaseScore, s.MaxScore)
	}
	if s.MinScore < 0 || s.MinScore > s.MaxScore {
		return fmt.Errorf("config: min_score %d outside [0, %d]", s.MinScore, s.MaxScore)
	}

	// The category to topic-group mapping must be total: every valid
	// category resolves to a known group before any item reaches assembly.
	for _, cat := range core.Categories {
		group, ok := s.TopicGroups[string(cat)]
		if !ok {
			return fmt.Errorf("config: category %q has no topic_groups mapping", cat)
		}
		if !core.ValidTopicGroup(core.TopicGroup(group)) {
			return fmt.Errorf("config: category %q maps to unknown topic group %q", cat, group)
		}
	}

	if _, err := time.ParseDuration(config.Cache.TTL); err != nil {
		return fmt.Errorf("config: invalid cache.ttl: %w", err)
	}

	return nil
}

func validCategory(cat string) bool {
	for _, known := range core.Categories {
		if core.Category(cat) == known {
			return true
		}
	}
	return false
}

// SourceList converts the configured sources into runtime source
// descriptors, assigning each its configuration rank.
func (c *Config) SourceList() []core.Source {
	sources := make([]core.Source, 0, len(c.Sources))
	for i, src := range c.Sources {
		sources = append(sources, core.Source{
			Name:     src.Name,
			URL:      src.URL,
			Format:   core.SourceFormat(src.Format),
			MaxItems: src.MaxItems,
			Category: core.Category(src.Category),
			Research: src.Research,
			Rank:     i,
		})
	}
	return sources
}

// TermLists converts the configured relevance terms into category-keyed lists.
func (c *Config) TermLists() map[core.Category][]string {
	terms := make(map[core.Category][]string, len(c.Relevance.Terms))
	for cat, list := range c.Relevance.Terms {
		terms[core.Category(cat)] = list
	}
	return terms
}

// TopicGroupMap converts the configured category mapping into typed form.
// Validate guarantees the result is total over core.Categories.
func (c *Config) TopicGroupMap() map[core.Category]core.TopicGroup {
	mapping := make(map[core.Category]core.TopicGroup, len(c.Scoring.TopicGroups))
	for cat, group := range c.Scoring.TopicGroups {
		mapping[core.Category(cat)] = core.TopicGroup(group)
	}
	return mapping
}

// CacheTTL returns the parsed cache TTL. Validate guarantees it parses.
func (c *Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.TTL)
	return d
}

// Convenience accessors
func GetGeminiAPIKey() string   { return Get().AI.Gemini.APIKey }
func GetGeminiModel() string    { return Get().AI.Gemini.Model }
func GetCacheDirectory() string { return Get().Cache.Directory }
func IsDebugMode() bool         { return Get().App.Debug }
