package cfg

import (
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"harvest_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"harvest_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"newsharvest" description:"Database name"`

	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// External services
	ExtractionURL    string `long:"extraction-url" env:"EXTRACTION_URL" description:"Base URL of the structured content-extraction service"`
	ExtractionAPIKey string `long:"extraction-api-key" env:"EXTRACTION_API_KEY" description:"API key for the content-extraction service"`
	ExtractionMode   string `long:"extraction-mode" env:"EXTRACTION_MODE" default:"sync" choice:"sync" choice:"async" description:"Extraction service invocation mode"`
	CompletionURL    string `long:"completion-url" env:"COMPLETION_URL" description:"Endpoint of the OpenAI-compatible completion service"`
	CompletionAPIKey string `long:"completion-api-key" env:"COMPLETION_API_KEY" description:"API key for the completion service"`
	CompletionModel  string `long:"completion-model" env:"COMPLETION_MODEL" default:"gpt-4o-mini" description:"Model name for completion requests"`

	// Outbound fetch limits
	FetchTimeout     int `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Outbound request timeout in seconds"`
	MaxConcurrent    int `long:"max-concurrent" env:"MAX_CONCURRENT" default:"5" description:"Maximum in-flight outbound requests"`
	MinFetchInterval int `long:"min-fetch-interval" env:"MIN_FETCH_INTERVAL" default:"200" description:"Minimum spacing between outbound requests in milliseconds"`

	// Batch processing
	ChunkSize         int `long:"chunk-size" env:"CHUNK_SIZE" default:"20" description:"URLs per scheduler chunk"`
	ChunkDelay        int `long:"chunk-delay" env:"CHUNK_DELAY" default:"2000" description:"Delay between chunks in milliseconds"`
	ScrapeConcurrency int `long:"scrape-concurrency" env:"SCRAPE_CONCURRENCY" default:"3" description:"Concurrent extractions within a chunk"`

	// Discovery
	DiscoveryLimit int `long:"discovery-limit" env:"DISCOVERY_LIMIT" default:"100" description:"Maximum candidate URLs per discovery run"`

	// Application metadata
	SeedsDir  string `long:"seeds-dir" env:"SEEDS_DIR" default:"./seeds" description:"Directory containing organization seed files"`
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"NewsHarvest/1.0" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		ExtractionURL:     raw.ExtractionURL,
		ExtractionAPIKey:  raw.ExtractionAPIKey,
		ExtractionMode:    raw.ExtractionMode,
		CompletionURL:     raw.CompletionURL,
		CompletionAPIKey:  raw.CompletionAPIKey,
		CompletionModel:   raw.CompletionModel,
		FetchTimeout:      raw.FetchTimeout,
		MaxConcurrent:     raw.MaxConcurrent,
		MinFetchInterval:  raw.MinFetchInterval,
		ChunkSize:         raw.ChunkSize,
		ChunkDelay:        raw.ChunkDelay,
		ScrapeConcurrency: raw.ScrapeConcurrency,
		DiscoveryLimit:    raw.DiscoveryLimit,
		SeedsDir:          raw.SeedsDir,
		UserAgent:         raw.UserAgent,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}
