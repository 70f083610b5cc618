package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		EmbedModel  string  `yaml:"embed_model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	News struct {
		BaseURL           string   `yaml:"base_url"`
		Symbols           []string `yaml:"symbols"`
		MaxPerSymbol      int      `yaml:"max_per_symbol"`
		RequestIntervalMs int      `yaml:"request_interval_ms"`
	} `yaml:"news"`

	Scraper struct {
		NavigationTimeoutSec int    `yaml:"navigation_timeout_sec"`
		SelectorTimeoutSec   int    `yaml:"selector_timeout_sec"`
		ParagraphSelector    string `yaml:"paragraph_selector"`
		Headless             bool   `yaml:"headless"`
	} `yaml:"scraper"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	Rerank struct {
		SemanticWeight float64 `yaml:"semantic_weight"`
		VectorWeight   float64 `yaml:"vector_weight"`
		PositionWeight float64 `yaml:"position_weight"`
	} `yaml:"rerank"`

	Mailer struct {
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		From            string `yaml:"from"`
		AdminEmail      string `yaml:"admin_email"`
		BatchSize       int    `yaml:"batch_size"`
		BatchIntervalMs int    `yaml:"batch_interval_ms"`
	} `yaml:"mailer"`

	Prices struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"prices"`

	Server struct {
		Port         string `yaml:"port"`
		CronSchedule string `yaml:"cron_schedule"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/stocknews/config.yaml"),
			"/etc/stocknews/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 1024
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "news_chunks"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}

	if len(config.News.Symbols) == 0 {
		config.News.Symbols = DemoSymbols()
	}
	if config.News.MaxPerSymbol == 0 {
		config.News.MaxPerSymbol = 5
	}
	if config.News.RequestIntervalMs == 0 {
		config.News.RequestIntervalMs = 1200
	}

	if config.Scraper.NavigationTimeoutSec == 0 {
		config.Scraper.NavigationTimeoutSec = 60
	}
	if config.Scraper.SelectorTimeoutSec == 0 {
		config.Scraper.SelectorTimeoutSec = 5
	}
	if config.Scraper.ParagraphSelector == "" {
		config.Scraper.ParagraphSelector = "p"
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 512
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 50
	}

	if config.Rerank.SemanticWeight == 0 && config.Rerank.VectorWeight == 0 && config.Rerank.PositionWeight == 0 {
		config.Rerank.SemanticWeight = 0.5
		config.Rerank.VectorWeight = 0.3
		config.Rerank.PositionWeight = 0.2
	}

	if config.Mailer.BatchSize == 0 {
		config.Mailer.BatchSize = 20
	}
	if config.Mailer.BatchIntervalMs == 0 {
		config.Mailer.BatchIntervalMs = 1000
	}
	if config.Mailer.From == "" {
		config.Mailer.From = "Daily Stock News <notifications@stocknews.local>"
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.CronSchedule == "" {
		config.Server.CronSchedule = "0 7 * * *"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if key := os.Getenv("RESEND_API_KEY"); key != "" {
		config.Mailer.APIKey = key
	}
	if key := os.Getenv("ALPHA_VANTAGE_API_KEY"); key != "" {
		config.Prices.APIKey = key
	}
	if admin := os.Getenv("ADMIN_EMAIL"); admin != "" {
		config.Mailer.AdminEmail = admin
	}
}

// DemoSymbols is the fixed demo stock universe.
func DemoSymbols() []string {
	return []string{"AAPL", "MSFT", "AMZN", "GOOGL", "META", "TSLA", "NVDA", "JNJ"}
}
