package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the HTTP API
	Addr string
	// Port is the binding port for the HTTP API
	Port int
	// Data is the data directory (rendered artifacts live under it)
	Data string
	// DSN points to where asksage stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the server
	Version string

	// Renderer configuration
	PDFLatexPath  string        // ASKSAGE_RENDER_PDFLATEX_PATH (default: pdflatex)
	PDFToCairo    string        // ASKSAGE_RENDER_PDFTOCAIRO_PATH (default: pdftocairo)
	RenderTimeout time.Duration // ASKSAGE_RENDER_TIMEOUT (default: 30s)
	FastTierSize  int           // ASKSAGE_RENDER_FAST_TIER_SIZE (default: 512)

	// Scheduler policy. These are tunable, not structural: the scoring
	// formula is fixed but its weights are deployment policy.
	WeightDue      float64 // ASKSAGE_SCHED_WEIGHT_DUE (default: 1.0)
	WeightWeakness float64 // ASKSAGE_SCHED_WEIGHT_WEAKNESS (default: 0.8)
	WeightCoverage float64 // ASKSAGE_SCHED_WEIGHT_COVERAGE (default: 0.5)
	WeightJitter   float64 // ASKSAGE_SCHED_WEIGHT_JITTER (default: 0.1)
	MasteryAlpha   float64 // ASKSAGE_SCHED_MASTERY_ALPHA (default: 0.2)

	// SessionIdleTimeout bounds how long an in-progress session may sit
	// between calls before it is abandoned.
	SessionIdleTimeout time.Duration // ASKSAGE_SESSION_IDLE_TIMEOUT (default: 30m)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// FromEnv loads configuration from ASKSAGE_* environment variables.
// Values already set on the profile (e.g. from flags) take precedence.
func (p *Profile) FromEnv() {
	if p.Mode == "" {
		p.Mode = getEnvOrDefault("ASKSAGE_MODE", "dev")
	}
	if p.Addr == "" {
		p.Addr = os.Getenv("ASKSAGE_ADDR")
	}
	if p.Port == 0 {
		p.Port = getIntEnvOrDefault("ASKSAGE_PORT", 8081)
	}
	if p.Data == "" {
		p.Data = os.Getenv("ASKSAGE_DATA")
	}
	if p.DSN == "" {
		p.DSN = os.Getenv("ASKSAGE_DSN")
	}
	if p.Driver == "" {
		p.Driver = getEnvOrDefault("ASKSAGE_DRIVER", "sqlite")
	}

	p.PDFLatexPath = getEnvOrDefault("ASKSAGE_RENDER_PDFLATEX_PATH", "pdflatex")
	p.PDFToCairo = getEnvOrDefault("ASKSAGE_RENDER_PDFTOCAIRO_PATH", "pdftocairo")
	p.RenderTimeout = getDurationEnvOrDefault("ASKSAGE_RENDER_TIMEOUT", 30*time.Second)
	p.FastTierSize = getIntEnvOrDefault("ASKSAGE_RENDER_FAST_TIER_SIZE", 512)

	p.WeightDue = getFloatEnvOrDefault("ASKSAGE_SCHED_WEIGHT_DUE", 1.0)
	p.WeightWeakness = getFloatEnvOrDefault("ASKSAGE_SCHED_WEIGHT_WEAKNESS", 0.8)
	p.WeightCoverage = getFloatEnvOrDefault("ASKSAGE_SCHED_WEIGHT_COVERAGE", 0.5)
	p.WeightJitter = getFloatEnvOrDefault("ASKSAGE_SCHED_WEIGHT_JITTER", 0.1)
	p.MasteryAlpha = getFloatEnvOrDefault("ASKSAGE_SCHED_MASTERY_ALPHA", 0.2)

	p.SessionIdleTimeout = getDurationEnvOrDefault("ASKSAGE_SESSION_IDLE_TIMEOUT", 30*time.Minute)
}

// Validate normalizes and checks the profile.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}

	if p.Data == "" {
		if p.Mode == "prod" {
			p.Data = "/var/opt/asksage"
		} else {
			p.Data = os.TempDir()
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrapf(err, "invalid data directory %q", p.Data)
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			dbFile := fmt.Sprintf("asksage_%s.db", p.Mode)
			p.DSN = filepath.Join(p.Data, dbFile)
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for postgres driver")
		}
	default:
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	if p.MasteryAlpha <= 0 || p.MasteryAlpha >= 1 {
		return errors.Errorf("mastery alpha must be in (0, 1), got %f", p.MasteryAlpha)
	}
	if p.FastTierSize <= 0 {
		return errors.Errorf("fast tier size must be positive, got %d", p.FastTierSize)
	}
	if p.RenderTimeout <= 0 {
		return errors.Errorf("render timeout must be positive, got %s", p.RenderTimeout)
	}

	return nil
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

	// Trim trailing "/" in case the user supplies one.
	dataDir = strings.TrimRight(dataDir, "/")

	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}

	return dataDir, nil
}
