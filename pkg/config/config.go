package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	BackendPinecone = "pinecone"
	BackendPgvector = "pgvector"

	ModeBrowser = "browser"
	ModeHTTP    = "http"

	SplitterOverlap  = "overlap"
	SplitterMarkdown = "markdown"
)

type Config struct {
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Pinecone    PineconeConfig    `yaml:"pinecone"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database"`
	Scraper     ScraperConfig     `yaml:"scraper"`
	Processor   ProcessorConfig   `yaml:"processor"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

type OpenAIConfig struct {
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url"`
	ChatModel        string  `yaml:"chat_model"`
	EmbeddingModel   string  `yaml:"embedding_model"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	EmbedConcurrency int     `yaml:"embed_concurrency"`
	EmbedBatchSize   int     `yaml:"embed_batch_size"`
}

type PineconeConfig struct {
	APIKey        string `yaml:"api_key"`
	Environment   string `yaml:"environment"`
	Index         string `yaml:"index"`
	Host          string `yaml:"host"`
	Namespace     string `yaml:"namespace"`
	ControllerURL string `yaml:"controller_url"`
}

type VectorStoreConfig struct {
	Backend string `yaml:"backend"`
	TopK    int    `yaml:"top_k"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`
	BatchSize int    `yaml:"batch_size"`
}

type ScraperConfig struct {
	URLs              []string      `yaml:"urls"`
	URLsFile          string        `yaml:"urls_file"`
	Mode              string        `yaml:"mode"`
	BrowserURL        string        `yaml:"browser_url"`
	Selector          string        `yaml:"selector"`
	SelectorTimeout   time.Duration `yaml:"selector_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	Concurrency       int           `yaml:"concurrency"`
	RateLimit         float64       `yaml:"rate_limit"`
}

type ProcessorConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	Splitter     string `yaml:"splitter"`
}

type IngestConfig struct {
	OutputPath string `yaml:"output_path"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Streaming      bool          `yaml:"streaming"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func LoadConfig(path string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/askdocs/config.yaml"),
			"/etc/askdocs/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() *Config {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.OpenAI.ChatModel == "" {
		config.OpenAI.ChatModel = "gpt-3.5-turbo"
	}
	if config.OpenAI.EmbeddingModel == "" {
		config.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if config.OpenAI.Temperature == 0 {
		config.OpenAI.Temperature = 0.9
	}
	if config.OpenAI.EmbedConcurrency == 0 {
		config.OpenAI.EmbedConcurrency = 5
	}
	if config.OpenAI.EmbedBatchSize == 0 {
		config.OpenAI.EmbedBatchSize = 16
	}

	if config.VectorStore.Backend == "" {
		config.VectorStore.Backend = BackendPinecone
	}
	if config.VectorStore.TopK == 0 {
		config.VectorStore.TopK = 5
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Scraper.Mode == "" {
		config.Scraper.Mode = ModeBrowser
	}
	if config.Scraper.Selector == "" {
		config.Scraper.Selector = "#content > div.row > div"
	}
	if config.Scraper.SelectorTimeout == 0 {
		config.Scraper.SelectorTimeout = time.Second
	}
	if config.Scraper.NavigationTimeout == 0 {
		config.Scraper.NavigationTimeout = 30 * time.Second
	}
	if config.Scraper.Concurrency == 0 {
		config.Scraper.Concurrency = 1
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 20
	}
	if config.Processor.Splitter == "" {
		config.Processor.Splitter = SplitterOverlap
	}

	if config.Ingest.OutputPath == "" {
		config.Ingest.OutputPath = "./generated/all.txt"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":3000"
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 60 * time.Second
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
	if config.Log.MaxSizeMB == 0 {
		config.Log.MaxSizeMB = 100
	}
}

func mergeWithEnv(config *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		config.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		config.OpenAI.BaseURL = v
	}
	if v := os.Getenv("PINECONE_API_KEY"); v != "" {
		config.Pinecone.APIKey = v
	}
	if v := os.Getenv("PINECONE_ENVIRONMENT"); v != "" {
		config.Pinecone.Environment = v
	}
	if v := os.Getenv("PINECONE_INDEX"); v != "" {
		config.Pinecone.Index = v
	}
	if v := os.Getenv("PINECONE_HOST"); v != "" {
		config.Pinecone.Host = v
	}
	if v := os.Getenv("VECTOR_STORE"); v != "" {
		config.VectorStore.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.Database.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		config.Server.Addr = ":" + v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
}

// SourceURLs returns the configured URLs followed by the ones listed in
// URLsFile, one per line. Blank lines and lines starting with # are skipped.
func (c *Config) SourceURLs() ([]string, error) {
	urls := append([]string(nil), c.Scraper.URLs...)
	if c.Scraper.URLsFile == "" {
		return urls, nil
	}

	data, err := os.ReadFile(c.Scraper.URLsFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading urls file")
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}
