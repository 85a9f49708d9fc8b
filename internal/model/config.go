package model

import "time"

// Config holds the full runtime configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Wikidata WikidataConfig `yaml:"wikidata"`
	Census   CensusConfig   `yaml:"census"`
	Overpass OverpassConfig `yaml:"overpass"`
	Rules    RulesConfig    `yaml:"rules"`
	Output   OutputConfig   `yaml:"output"`
	LLM      LLMConfig      `yaml:"llm"`
}

// HTTPConfig holds shared HTTP client settings.
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"user_agent"`
	HTTPProxy  string        `yaml:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy"`
}

// WikidataConfig holds the Wikidata endpoint settings.
type WikidataConfig struct {
	APIURL            string  `yaml:"api_url"`
	SPARQLURL         string  `yaml:"sparql_url"`
	ChunkSize         int     `yaml:"chunk_size"`          // entity ids per batch call
	RequestsPerSecond float64 `yaml:"requests_per_second"` // shared across endpoints
	Burst             int     `yaml:"burst"`
	MaxRetries        int     `yaml:"max_retries"`
}

// CensusConfig holds the gazetteer download settings.
type CensusConfig struct {
	BaseURL string `yaml:"base_url"`
	Year    int    `yaml:"year"`
}

// OverpassConfig holds the Overpass API settings.
type OverpassConfig struct {
	URL          string `yaml:"url"`
	QueryTimeout int    `yaml:"query_timeout"` // seconds, embedded in the query
}

// RulesConfig points at an optional YAML override of the built-in
// boundary-category rule table.
type RulesConfig struct {
	File string `yaml:"file"`
}

// OutputConfig controls artifact placement and verbosity.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Verbose bool   `yaml:"verbose"`
}

// LLMConfig configures the optional findings summarizer. It never affects
// flag evaluation.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai, ollama, "" (disabled)
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url"`
	Timeout   int    `yaml:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: "wikidata-qa/1.0 (https://github.com/ZeLonewolf/wikidata-qa)",
		},
		Wikidata: WikidataConfig{
			APIURL:            "https://www.wikidata.org/w/api.php",
			SPARQLURL:         "https://query.wikidata.org/sparql",
			ChunkSize:         50,
			RequestsPerSecond: 5,
			Burst:             5,
			MaxRetries:        3,
		},
		Census: CensusConfig{
			BaseURL: "https://www2.census.gov/geo/docs/maps-data/data/gazetteer",
			Year:    2024,
		},
		Overpass: OverpassConfig{
			URL:          "https://overpass-api.de/api/interpreter",
			QueryTimeout: 180,
		},
		Output: OutputConfig{
			Dir: "output",
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 1000,
		},
	}
}
