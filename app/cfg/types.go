package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// HTTP server
	Port         string
	APIAccessKey string

	// External services
	ExtractionURL    string
	ExtractionAPIKey string
	ExtractionMode   string // "sync" or "async"
	CompletionURL    string
	CompletionAPIKey string
	CompletionModel  string

	// Outbound fetch limits
	FetchTimeout     int // seconds
	MaxConcurrent    int
	MinFetchInterval int // milliseconds

	// Batch processing
	ChunkSize         int
	ChunkDelay        int // milliseconds
	ScrapeConcurrency int

	// Discovery
	DiscoveryLimit int

	// Application metadata
	SeedsDir  string
	UserAgent string
	Debug     bool
	Version   string
}
