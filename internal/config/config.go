package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// AppConfig is the process-wide configuration, constructed once per
// run of the binary and immutable thereafter.
type AppConfig struct {
	// Portal coordinates.
	BaseURL string `validate:"required,url"`
	MenuCd  string `validate:"required"`

	// Default filter fields for scheduled runs. Empty means "all".
	PageIndex string
	OrgNo     string
	HokiS     string
	HokiE     string

	// Pacing between window requests within one run.
	Pacing time.Duration

	// Persistence.
	OutputDir    string `validate:"required"`
	MasterPath   string `validate:"required"`
	MaxArtifacts int    // raw window files retained (0 = unlimited)

	// Daily schedule ("HH:MM", UTC) and run-level retry policy.
	ScheduleAt string `validate:"required"`
	RunRetries int
	RetryDelay time.Duration

	SlackWebhookURL string

	HTTPTimeout time.Duration
	Port        string
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		BaseURL:   getenvDefault("PORTAL_BASE_URL", "https://www.koenergy.kr"),
		MenuCd:    getenvDefault("PORTAL_MENU_CD", "FN0912020217"),
		PageIndex: getenvDefault("PORTAL_PAGE_INDEX", "1"),
		OrgNo:     os.Getenv("PORTAL_ORG_NO"),
		HokiS:     os.Getenv("PORTAL_HOKI_START"),
		HokiE:     os.Getenv("PORTAL_HOKI_END"),

		OutputDir:    getenvDefault("OUTPUT_DIR", "data"),
		MasterPath:   getenvDefault("MASTER_CSV_PATH", "data/south_pv_all_merged.csv"),
		MaxArtifacts: getenvInt("STORE_MAX_ARTIFACTS", 0),

		ScheduleAt: getenvDefault("SCHEDULE_AT", "01:30"),
		RunRetries: getenvInt("RUN_RETRIES", 3),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),

		Port: getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.Pacing, err = getenvDuration("PACING_INTERVAL", "5s"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = getenvDuration("RETRY_DELAY", "5m"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "2m"); err != nil {
		return nil, err
	}

	if _, err := time.Parse("15:04", cfg.ScheduleAt); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_AT %q: want HH:MM", cfg.ScheduleAt)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
