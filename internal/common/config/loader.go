// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml,
// applies environment overrides and defaults, then validates.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

func envFallback(dst *string, names ...string) {
	if *dst != "" {
		return
	}
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			*dst = val
			return
		}
	}
}

// overrideEmptyConfig fills provider credentials from the conventional
// environment variable names when the YAML leaves them empty.
func overrideEmptyConfig(cfg *Config) {
	envFallback(&cfg.APIs.LLM.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	envFallback(&cfg.APIs.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	envFallback(&cfg.APIs.LLM.OpenAI.BaseURL, "OPENAI_BASE_URL")
	envFallback(&cfg.APIs.WebSearch.CSE.APIKey, "GOOGLE_CSE_KEY")
	envFallback(&cfg.APIs.WebSearch.CSE.EngineID, "GOOGLE_CSE_CX")
	envFallback(&cfg.APIs.WebSearch.Brave.APIKey, "BRAVE_API_KEY")
	envFallback(&cfg.APIs.Places.Geoapify.APIKey, "GEOAPIFY_KEY")
	envFallback(&cfg.Database.Redis.Address, "REDIS_ADDR")
	envFallback(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
	envFallback(&cfg.Database.Postgres.User, "DB_USER")
	envFallback(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	envFallback(&cfg.Notifications.AWS.SNS.FeedbackTopicARN, "FEEDBACK_TOPIC_ARN")
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "wizkid-search"
	}
	if cfg.App.RegistryPath == "" {
		cfg.App.RegistryPath = "configs/activity-registry.json"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "pages"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	applyAPIDefaults(&cfg.APIs)
	applyPipelineDefaults(&cfg.Pipeline)

	if cfg.Signals.Backend == "" {
		cfg.Signals.Backend = "redis"
	}
	if cfg.Signals.Backend == "badger" && cfg.Signals.Path == "" {
		cfg.Signals.Path = "./data/signals"
	}
}

func applyAPIDefaults(a *APIsConfig) {
	if a.UserAgent == "" {
		a.UserAgent = "wizkid-search/1.0"
	}
	if a.Wikipedia.BaseURL == "" {
		a.Wikipedia.BaseURL = "https://en.wikipedia.org"
	}
	if a.Wikipedia.PageviewsURL == "" {
		a.Wikipedia.PageviewsURL = "https://wikimedia.org/api/rest_v1/metrics/pageviews/per-article/en.wikipedia/all-access/user"
	}
	if a.Wikipedia.Timeout == 0 {
		a.Wikipedia.Timeout = 5000
	}
	if a.Wikidata.BaseURL == "" {
		a.Wikidata.BaseURL = "https://www.wikidata.org"
	}
	if a.Wikidata.Timeout == 0 {
		a.Wikidata.Timeout = 5000
	}
	if len(a.WebSearch.Providers) == 0 {
		a.WebSearch.Providers = []string{"cse", "brave"}
	}
	if a.WebSearch.CSE.BaseURL == "" {
		a.WebSearch.CSE.BaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if a.WebSearch.Brave.BaseURL == "" {
		a.WebSearch.Brave.BaseURL = "https://api.search.brave.com/res/v1/web/search"
	}
	if a.WebSearch.Timeout == 0 {
		a.WebSearch.Timeout = 6000
	}
	if len(a.Places.OverpassEndpoints) == 0 {
		a.Places.OverpassEndpoints = []string{
			"https://overpass-api.de/api/interpreter",
			"https://overpass.kumi.systems/api/interpreter",
		}
	}
	if a.Places.Geoapify.BaseURL == "" {
		a.Places.Geoapify.BaseURL = "https://api.geoapify.com/v2/places"
	}
	if a.Places.Timeout == 0 {
		a.Places.Timeout = 8000
	}
	if len(a.GeoIP.Endpoints) == 0 {
		a.GeoIP.Endpoints = []string{"https://ipapi.co/{ip}/json/", "https://ipwho.is/{ip}"}
	}
	if a.GeoIP.Timeout == 0 {
		a.GeoIP.Timeout = 3000
	}
	if len(a.LLM.Gemini.Models) == 0 {
		a.LLM.Gemini.Models = []string{"gemini-1.5-flash-8b", "gemini-1.5-flash"}
	}
	if a.LLM.OpenAI.Model == "" {
		a.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if a.LLM.Timeout == 0 {
		a.LLM.Timeout = 9000
	}
}

func applyPipelineDefaults(p *PipelineConfig) {
	if p.ConfidentMatch == 0 {
		p.ConfidentMatch = 0.85
	}
	if p.MaxAlternates == 0 {
		p.MaxAlternates = 5
	}
	if p.MaxCitations == 0 {
		p.MaxCitations = 10
	}
	if p.MaxPlaces == 0 {
		p.MaxPlaces = 12
	}
	if p.PeopleResultsPerQuery == 0 {
		p.PeopleResultsPerQuery = 3
	}
	if p.TopicResultsPerQuery == 0 {
		p.TopicResultsPerQuery = 4
	}
	if p.EncyclopediaResults == 0 {
		p.EncyclopediaResults = 6
	}
	if p.EnrichmentPoolSize == 0 {
		p.EnrichmentPoolSize = 16
	}
	if p.SearchConcurrency == 0 {
		p.SearchConcurrency = 8
	}
	if p.DefaultRadius == 0 {
		p.DefaultRadius = 6000
	}
	if p.RequestTimeout == 0 {
		p.RequestTimeout = 45000
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	switch cfg.Signals.Backend {
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis signal backend")
		}
	case "badger", "none":
	default:
		return fmt.Errorf("signals.backend must be redis, badger or none, got %q", cfg.Signals.Backend)
	}
	if cfg.Pipeline.ConfidentMatch < 0 || cfg.Pipeline.ConfidentMatch > 1 {
		return fmt.Errorf("pipeline.confident_match must be within [0,1]")
	}
	for _, p := range cfg.APIs.WebSearch.Providers {
		switch p {
		case "cse", "brave", "elastic":
		default:
			return fmt.Errorf("apis.web_search.providers: unknown provider %q", p)
		}
	}
	for _, p := range cfg.APIs.LLM.Order {
		if p != "gemini" && p != "openai" {
			return fmt.Errorf("apis.llm.order: unknown provider %q", p)
		}
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       false,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific job worker is enabled.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return false
}
