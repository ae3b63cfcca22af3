package config

import (
	"os"
	"strconv"
	"time"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

const AppName = "tronclass-signin-api"

type Config struct {
	AppName string
	AppPort string
	AppUrl  string

	// Database
	DBUrl string

	// LMS upstream
	LMSBaseURL string
	LMSTimeout time.Duration

	// Numeric-code recovery
	BruteForceBatchSize int
}

const (
	defaultLMSTimeoutSeconds   = 15
	defaultBruteForceBatchSize = 500
)

func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}
	lmsBaseURL := os.Getenv("LMS_BASE_URL")
	if lmsBaseURL == "" {
		utils.Logger.Fatal("LMS_BASE_URL env var is missing")
	}

	appURL := os.Getenv("APP_URL")

	timeoutSeconds := intEnv("LMS_HTTP_TIMEOUT_SECONDS", defaultLMSTimeoutSeconds)
	batchSize := intEnv("BRUTE_FORCE_BATCH_SIZE", defaultBruteForceBatchSize)
	if batchSize < 1 {
		utils.Logger.Fatalf("BRUTE_FORCE_BATCH_SIZE must be positive, got %d", batchSize)
	}

	utils.Logger.Infof("Loaded config for %s (lms=%s, batch=%d)", AppName, lmsBaseURL, batchSize)

	return &Config{
		AppName:             AppName,
		AppPort:             appPort,
		AppUrl:              appURL,
		DBUrl:               dbURL,
		LMSBaseURL:          lmsBaseURL,
		LMSTimeout:          time.Duration(timeoutSeconds) * time.Second,
		BruteForceBatchSize: batchSize,
	}
}

func intEnv(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		utils.Logger.Fatalf("%s must be an integer, got %q", name, raw)
	}
	return n
}

func (c *Config) Close() {}
