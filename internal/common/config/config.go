// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Pipeline      PipelineConfig          `mapstructure:"pipeline"`
	Signals       SignalsConfig           `mapstructure:"signals"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// RegistryPath points at the activity catalog of the job types.
	RegistryPath string `mapstructure:"registry_path"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	// TrustForwardedFor enables X-Forwarded-For for client IP resolution.
	TrustForwardedFor bool `mapstructure:"trust_forwarded_for"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Enabled reports whether a feedback database is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != "" && p.Database != ""
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
	// Index holds crawled pages used as an extra web search source.
	Index string `mapstructure:"index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- External providers ---

type APIsConfig struct {
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	Wikidata  WikidataConfig  `mapstructure:"wikidata"`
	WebSearch WebSearchConfig `mapstructure:"web_search"`
	Places    PlacesConfig    `mapstructure:"places"`
	GeoIP     GeoIPConfig     `mapstructure:"geoip"`
	LLM       LLMConfig       `mapstructure:"llm"`
	UserAgent string          `mapstructure:"user_agent"`
}

type WikipediaConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	PageviewsURL string `mapstructure:"pageviews_url"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
}

type WikidataConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

type WebSearchConfig struct {
	// Providers lists enabled providers in query order: cse, brave, elastic.
	Providers []string `mapstructure:"providers"`
	CSE       struct {
		BaseURL  string `mapstructure:"base_url"`
		APIKey   string `mapstructure:"api_key"`
		EngineID string `mapstructure:"engine_id"`
	} `mapstructure:"cse"`
	Brave struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
	} `mapstructure:"brave"`
	Timeout int `mapstructure:"timeout"`
}

type PlacesConfig struct {
	OverpassEndpoints []string `mapstructure:"overpass_endpoints"`
	Geoapify          struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
	} `mapstructure:"geoapify"`
	Timeout int `mapstructure:"timeout"`
}

type GeoIPConfig struct {
	// Endpoints are URL templates; {ip} is replaced by the client address.
	Endpoints []string `mapstructure:"endpoints"`
	Timeout   int      `mapstructure:"timeout"`
}

type LLMConfig struct {
	// Order overrides the automatic provider order, e.g. ["gemini", "openai"].
	Order  []string `mapstructure:"order"`
	Gemini struct {
		APIKey string   `mapstructure:"api_key"`
		Models []string `mapstructure:"models"`
	} `mapstructure:"gemini"`
	OpenAI struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
		Model   string `mapstructure:"model"`
	} `mapstructure:"openai"`
	Timeout int `mapstructure:"timeout"` // per attempt, milliseconds
}

// PipelineConfig holds the tunables of the answer pipeline.
type PipelineConfig struct {
	ConfidentMatch        float64 `mapstructure:"confident_match"`
	MaxAlternates         int     `mapstructure:"max_alternates"`
	MaxCitations          int     `mapstructure:"max_citations"`
	MaxPlaces             int     `mapstructure:"max_places"`
	PeopleResultsPerQuery int     `mapstructure:"people_results_per_query"`
	TopicResultsPerQuery  int     `mapstructure:"topic_results_per_query"`
	EncyclopediaResults   int     `mapstructure:"encyclopedia_results"`
	EnrichmentPoolSize    int     `mapstructure:"enrichment_pool_size"`
	SearchConcurrency     int     `mapstructure:"search_concurrency"`
	DefaultRadius         int     `mapstructure:"default_radius"` // meters
	LocateByNetwork       bool    `mapstructure:"locate_by_network"`
	RequestTimeout        int     `mapstructure:"request_timeout"` // milliseconds
}

// SignalsConfig selects the bias signal store.
type SignalsConfig struct {
	Backend string `mapstructure:"backend"` // redis | badger | none
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled          bool   `mapstructure:"enabled"`
			FeedbackTopicARN string `mapstructure:"feedback_topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}
