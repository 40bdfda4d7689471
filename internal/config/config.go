package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Host string `koanf:"host"`
		Port int    `koanf:"port"`
	} `koanf:"server"`

	Storage struct {
		ReposDir string `koanf:"repos_dir"`
	} `koanf:"storage"`

	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`

	LLM struct {
		APIKey            string  `koanf:"api_key"`
		BaseURL           string  `koanf:"base_url"`
		Model             string  `koanf:"model"`
		Temperature       float64 `koanf:"temperature"`
		MaxTokens         int     `koanf:"max_tokens"`
		RequestsPerMinute int     `koanf:"requests_per_minute"`
	} `koanf:"llm"`

	Embedding struct {
		ServerURL string `koanf:"server_url"`
		Model     string `koanf:"model"`
	} `koanf:"embedding"`

	Index struct {
		ResetThreshold  float64 `koanf:"reset_threshold"`
		AssessBatchSize int     `koanf:"assess_batch_size"`
		MaxChunkChars   int     `koanf:"max_chunk_chars"`
		TopK            int     `koanf:"top_k"`
	} `koanf:"index"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"server.host":             "0.0.0.0",
		"server.port":             8000,
		"storage.repos_dir":       "./repos",
		"llm.base_url":            "https://api.groq.com/openai/v1",
		"llm.model":               "llama3-8b-8192",
		"llm.temperature":         0.0,
		"llm.max_tokens":          2048,
		"llm.requests_per_minute": 30,
		"embedding.server_url":    "http://localhost:11434",
		"embedding.model":         "nomic-embed-text",
		"index.reset_threshold":   0.6,
		"index.assess_batch_size": 256,
		"index.max_chunk_chars":   1000,
		"index.top_k":             5,
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try to load from default locations
		defaultPaths := []string{"./repoassist.toml", "$HOME/.repoassist.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix REPOASSIST_
	k.Load(env.Provider("REPOASSIST_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "REPOASSIST_")), "_", ".", 1)
	}), nil)

	// Legacy environment names from the original deployment keep working
	// so that existing .env files need no changes.
	loadLegacyEnv(k)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// loadLegacyEnv maps the flat environment names used by earlier deployments
// onto the structured keys.
func loadLegacyEnv(k *koanf.Koanf) {
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		k.Load(confmap.Provider(map[string]interface{}{"llm.api_key": v}, "."), nil)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		k.Load(confmap.Provider(map[string]interface{}{"database.url": v}, "."), nil)
	}
	if v := os.Getenv("HOST"); v != "" {
		k.Load(confmap.Provider(map[string]interface{}{"server.host": v}, "."), nil)
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			k.Load(confmap.Provider(map[string]interface{}{"server.port": port}, "."), nil)
		}
	}
	if v := os.Getenv("RESET_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			k.Load(confmap.Provider(map[string]interface{}{"index.reset_threshold": threshold}, "."), nil)
		}
	}
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	// Create sample configuration
	sampleConfig := `# RepoAssist Configuration

[server]
host = "0.0.0.0"
port = 8000

[storage]
repos_dir = "./repos"

[database]
url = "postgres://localhost/repoassist?sslmode=disable"

[llm]
api_key = "your-groq-api-key"
model = "llama3-8b-8192"
temperature = 0.0
max_tokens = 2048

[embedding]
server_url = "http://localhost:11434"
model = "nomic-embed-text"

[index]
reset_threshold = 0.6
assess_batch_size = 256
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.LLM.APIKey == "" {
		return fmt.Errorf("LLM api_key is required (set GROQ_API_KEY or llm.api_key)")
	}

	if config.Database.URL == "" {
		return fmt.Errorf("database url is required (set DATABASE_URL or database.url)")
	}

	if config.Index.ResetThreshold < 0 || config.Index.ResetThreshold > 1 {
		return fmt.Errorf("index reset_threshold must be between 0 and 1, got %v", config.Index.ResetThreshold)
	}

	if config.Index.AssessBatchSize <= 0 {
		return fmt.Errorf("index assess_batch_size must be positive, got %d", config.Index.AssessBatchSize)
	}

	return nil
}
