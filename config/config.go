// Package config loads process configuration from the environment, an optional .env file
// and an optional YAML map of Jira custom field ids.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	SlackBotToken      string
	SlackSigningSecret string
	SlackClientID      string
	SlackClientSecret  string
	DeploymentBaseURI  string

	DatabaseURL string

	JiraServer     string
	JiraEmail      string
	JiraAPIToken   string
	JiraFieldsFile string
	JiraFields     FieldMap

	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	LLMRPS       float64

	// Interactive resolution and full listings refresh the directory independently.
	DirectoryResolvePolicy string
	DirectoryListPolicy    string

	DirectoryTTL     time.Duration
	AnalysisCooldown time.Duration
	MessageCooldown  time.Duration
	DedupTTL         time.Duration

	Workers        int
	SummaryWorkers int
	MaxRetries     int
	RetryBase      time.Duration
	CallTimeout    time.Duration
}

// FieldMap names the Jira fields that carry customer, root cause and resolution data.
type FieldMap struct {
	Customer   string `yaml:"customer"`
	RootCause  string `yaml:"root_cause"`
	Resolution string `yaml:"resolution"`
}

func DefaultFieldMap() FieldMap {
	return FieldMap{
		Customer:   "customfield_11602",
		RootCause:  "customfield_11554",
		Resolution: "customfield_11596",
	}
}

// Load reads .env when present (existing variables win) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:     getenv("PORT", "8080"),
		AppEnv:   getenv("APP_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		SlackBotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		SlackClientID:      os.Getenv("SLACK_CLIENT_ID"),
		SlackClientSecret:  os.Getenv("SLACK_CLIENT_SECRET"),
		DeploymentBaseURI:  os.Getenv("DEPLOYMENT_BASE_URI"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JiraServer:     strings.TrimRight(os.Getenv("JIRA_SERVER"), "/"),
		JiraEmail:      os.Getenv("JIRA_EMAIL"),
		JiraAPIToken:   os.Getenv("JIRA_API_TOKEN"),
		JiraFieldsFile: os.Getenv("JIRA_FIELDS_FILE"),
		JiraFields:     DefaultFieldMap(),

		LLMProvider:  strings.ToLower(getenv("LLM_PROVIDER", "gemini")),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getenv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMRPS:       floatEnv("LLM_RPS", 5),

		DirectoryResolvePolicy: strings.ToLower(getenv("DIRECTORY_RESOLVE_POLICY", getenv("DIRECTORY_POLICY", "if_empty"))),
		DirectoryListPolicy:    strings.ToLower(getenv("DIRECTORY_LIST_POLICY", getenv("DIRECTORY_POLICY", "ttl"))),

		DirectoryTTL:     durEnv("DIRECTORY_TTL", time.Hour),
		AnalysisCooldown: durEnv("ANALYSIS_COOLDOWN", time.Minute),
		MessageCooldown:  durEnv("MESSAGE_COOLDOWN", 5*time.Second),
		DedupTTL:         durEnv("DEDUP_TTL", time.Hour),

		Workers:        intEnv("WORKERS", 4),
		SummaryWorkers: intEnv("SUMMARY_WORKERS", 8),
		MaxRetries:     intEnv("MAX_RETRIES", 3),
		RetryBase:      durEnv("RETRY_BASE", 2*time.Second),
		CallTimeout:    durEnv("CALL_TIMEOUT", 30*time.Second),
	}

	if cfg.JiraFieldsFile != "" {
		fields, err := LoadFieldMap(cfg.JiraFieldsFile)
		if err != nil {
			return Config{}, err
		}
		cfg.JiraFields = fields
	}
	return cfg, nil
}

// LoadFieldMap reads a YAML field map; keys missing from the file keep their defaults.
func LoadFieldMap(path string) (FieldMap, error) {
	fields := DefaultFieldMap()
	raw, err := os.ReadFile(path)
	if err != nil {
		return fields, fmt.Errorf("read field map: %w", err)
	}
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return fields, fmt.Errorf("parse field map %s: %w", path, err)
	}
	return fields, nil
}

// ValidateServe reports the settings the webhook server cannot run without.
func (c Config) ValidateServe() error {
	if c.SlackBotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required")
	}
	return c.ValidateJira()
}

func (c Config) ValidateJira() error {
	var missing []string
	if c.JiraServer == "" {
		missing = append(missing, "JIRA_SERVER")
	}
	if c.JiraEmail == "" {
		missing = append(missing, "JIRA_EMAIL")
	}
	if c.JiraAPIToken == "" {
		missing = append(missing, "JIRA_API_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func floatEnv(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

// durEnv accepts Go durations ("90s") or a bare number of seconds.
func durEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
