package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/report"
)

// Config holds the runtime settings shared by the gtm commands.
type Config struct {
	Addr           string        `env:"GTM_ADDR" envDefault:":8080"`
	CatalogFile    string        `env:"GTM_CATALOG_FILE"`
	CatalogDB      string        `env:"GTM_CATALOG_DB"`
	CatalogVersion string        `env:"GTM_CATALOG_VERSION"`
	SessionTTL     time.Duration `env:"GTM_SESSION_TTL" envDefault:"30m"`
	MaxSessions    int           `env:"GTM_MAX_SESSIONS" envDefault:"1000"`
	OTelEndpoint   string        `env:"GTM_OTEL_ENDPOINT"`
	OTelEnabled    bool          `env:"GTM_OTEL_ENABLED" envDefault:"true"`
	ChromePath     string        `env:"GTM_CHROME_PATH"`
	PDFPaper       string        `env:"GTM_PDF_PAPER" envDefault:"letter"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads optional .env files, then the environment. Missing .env files
// are skipped; variables already set in the environment win.
func Load(dotenvPaths ...string) (Config, error) {
	for _, p := range dotenvPaths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("load %s: %w", p, err)
		}
		log.Printf("config loaded dotenv path=%s", p)
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("GTM_ADDR must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("GTM_SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("GTM_MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}
	if c.CatalogFile != "" && c.CatalogDB != "" {
		return errors.New("set at most one of GTM_CATALOG_FILE and GTM_CATALOG_DB")
	}
	if c.CatalogVersion != "" && c.CatalogDB == "" {
		return errors.New("GTM_CATALOG_VERSION requires GTM_CATALOG_DB")
	}
	if _, err := report.ParsePaper(c.PDFPaper); err != nil {
		return fmt.Errorf("GTM_PDF_PAPER: %w", err)
	}
	return nil
}

// TracingEndpoint returns the OTLP endpoint, or "" when tracing is off.
func (c Config) TracingEndpoint() string {
	if !c.OTelEnabled {
		return ""
	}
	return strings.TrimSpace(c.OTelEndpoint)
}

// LoadCatalog resolves the catalog the settings point at: a stored version,
// the latest stored version, a YAML file, or the built-in defaults.
func (c Config) LoadCatalog() (*catalog.Catalog, error) {
	switch {
	case c.CatalogDB != "":
		repo, err := catalog.OpenRepository(c.CatalogDB, nil)
		if err != nil {
			return nil, err
		}
		defer repo.Close()
		if c.CatalogVersion != "" {
			return repo.Load(c.CatalogVersion)
		}
		return repo.Latest()
	case c.CatalogFile != "":
		return catalog.LoadFile(c.CatalogFile)
	default:
		return catalog.Default(), nil
	}
}
