package config

import (
	"log"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string

	APIBaseURL        string
	APITimeoutSeconds int
	FeedPageSize      int

	AccessToken string
	JWTSecret   string

	RedisURL    string
	InstanceID  string
	WorkerCount int
}

// JournalEnabled reports whether a database is configured for the mutation
// journal.
func (c *Config) JournalEnabled() bool {
	return c.DBHost != ""
}

// SyncEnabled reports whether Redis is configured for cross-instance sync.
func (c *Config) SyncEnabled() bool {
	return c.RedisURL != ""
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:3000"
	}

	apiTimeoutSeconds, err := strconv.Atoi(os.Getenv("API_TIMEOUT_SECONDS"))
	if err != nil || apiTimeoutSeconds <= 0 {
		apiTimeoutSeconds = 10
	}

	feedPageSize, err := strconv.Atoi(os.Getenv("FEED_PAGE_SIZE"))
	if err != nil || feedPageSize <= 0 {
		feedPageSize = 10
	}

	workerCount, err := strconv.Atoi(os.Getenv("WORKER_COUNT"))
	if err != nil || workerCount <= 0 {
		workerCount = 2
	}

	dbSSLMode := os.Getenv("DB_SSLMODE")
	if dbSSLMode == "" {
		dbSSLMode = "require"
	}

	// A fresh ID per process: each run gets its own consumer group.
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  dbSSLMode,

		ServerPort: serverPort,

		APIBaseURL:        apiBaseURL,
		APITimeoutSeconds: apiTimeoutSeconds,
		FeedPageSize:      feedPageSize,

		AccessToken: os.Getenv("ACCESS_TOKEN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		RedisURL:    os.Getenv("REDIS_URL"),
		InstanceID:  instanceID,
		WorkerCount: workerCount,
	}, nil
}
