package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultPort              = 3000
	DefaultAIBaseURL         = "https://openrouter.ai/api/v1"
	DefaultAIModel           = "cognitivecomputations/dolphin3.0-mistral-24b:free"
	DefaultHistoryWindow     = 20
	DefaultSummaryInterval   = 20
	DefaultSummaryWorkers    = 2
	DefaultCompletionTimeout = 60 * time.Second
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where confidant stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Completion provider
	AIBaseURL string // CONFIDANT_AI_BASE_URL (default: OpenRouter)
	AIAPIKey  string // CONFIDANT_AI_API_KEY (legacy: OPENROUTER_API_KEY)
	AIModel   string // CONFIDANT_AI_MODEL (legacy: AI_MODEL)

	// PersonaFile holds the system prompt; the built-in persona is used when empty.
	PersonaFile string
	// JWTSecret verifies bearer tokens issued by the identity service.
	JWTSecret string // CONFIDANT_JWT_SECRET (legacy: JWT_SECRET)

	// Conversation pipeline
	HistoryWindow     int
	SummaryInterval   int
	SummaryWorkers    int
	CompletionTimeout time.Duration

	// RateLimit is the sustained number of sends per minute allowed per user; 0 disables it.
	RateLimit int
	RateBurst int

	// RedisAddr enables the L2 preferences cache. Comma separated for cluster.
	RedisAddr string

	LogFormat string // text or json
	LogLevel  string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIConfigured reports whether an API key for the completion provider is present.
func (p *Profile) IsAIConfigured() bool {
	return p.AIAPIKey != ""
}

// FromEnv fills settings still unset from the legacy environment variable
// names used by earlier deployments.
func (p *Profile) FromEnv() {
	setIfEmpty := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}

	setIfEmpty(&p.AIAPIKey, "OPENROUTER_API_KEY")
	setIfEmpty(&p.AIModel, "AI_MODEL")
	setIfEmpty(&p.JWTSecret, "JWT_SECRET")

	if p.Port == 0 {
		if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
			p.Port = port
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and fills defaults.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres")
	}

	if p.Driver == "sqlite" {
		if p.Mode == "prod" && p.Data == "" {
			if runtime.GOOS == "windows" {
				p.Data = filepath.Join(os.Getenv("ProgramData"), "confidant")
			} else {
				p.Data = "/var/opt/confidant"
			}
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
		}
		if p.Data == "" {
			p.Data = "."
		}

		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("confidant_%s.db", p.Mode))
		}
	}

	if p.Port <= 0 {
		p.Port = DefaultPort
	}
	if p.AIBaseURL == "" {
		p.AIBaseURL = DefaultAIBaseURL
	}
	if p.AIModel == "" {
		p.AIModel = DefaultAIModel
	}
	if p.HistoryWindow <= 0 {
		p.HistoryWindow = DefaultHistoryWindow
	}
	if p.SummaryInterval <= 0 {
		p.SummaryInterval = DefaultSummaryInterval
	}
	if p.SummaryWorkers <= 0 {
		p.SummaryWorkers = DefaultSummaryWorkers
	}
	if p.CompletionTimeout <= 0 {
		p.CompletionTimeout = DefaultCompletionTimeout
	}
	if p.RateLimit > 0 && p.RateBurst <= 0 {
		p.RateBurst = p.RateLimit
	}
	if p.LogFormat != "json" {
		p.LogFormat = "text"
	}
	return nil
}
