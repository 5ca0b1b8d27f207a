package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	StorageDriver string

	// CatalogSeedFile is only read by the memory driver.
	CatalogSeedFile string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SandboxURL          string
	SandboxAuthToken    string
	SandboxTimeoutGrace time.Duration

	EvalFanoutLimit      int
	FinalizeMaxRetries   int
	FinalizeRetryBase    time.Duration
	TestCaseCacheTTL     time.Duration
	SubmissionHistoryN   int
	ReconcileQueueName   string
	ReconcileLockKey     string
	ReconcileLockTTL     time.Duration
	ReconcileWorker      bool
	KafkaBrokers         []string
	KafkaSubmissionTopic string

	LogLevel string
	LogDir   string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:       getEnv("API_PORT", "8080"),
		JWTKey:        []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:        time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		StorageDriver: getEnv("STORAGE_DRIVER", StorageDriverPostgres),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "user"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "codementor"),
		DBSslMode:     getEnv("DB_SSLMODE", "disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		CatalogSeedFile: getEnv("CATALOG_SEED_FILE", ""),

		SandboxURL:          getEnv("SANDBOX_URL", "http://localhost:2358"),
		SandboxAuthToken:    getEnv("SANDBOX_AUTH_TOKEN", ""),
		SandboxTimeoutGrace: getEnvAsDuration("SANDBOX_TIMEOUT_GRACE_MS", 3000*time.Millisecond, time.Millisecond),

		EvalFanoutLimit:      getEnvAsInt("EVAL_FANOUT_LIMIT", 4),
		FinalizeMaxRetries:   getEnvAsInt("FINALIZE_MAX_RETRIES", 5),
		FinalizeRetryBase:    getEnvAsDuration("FINALIZE_RETRY_BASE_MS", 25*time.Millisecond, time.Millisecond),
		TestCaseCacheTTL:     getEnvAsDuration("TESTCASE_CACHE_TTL_SECONDS", 10*time.Minute, time.Second),
		SubmissionHistoryN:   getEnvAsInt("SUBMISSION_HISTORY_LIMIT", 20),
		ReconcileQueueName:   getEnv("RECONCILE_QUEUE_NAME", "finalize_reconcile_queue"),
		ReconcileLockKey:     getEnv("RECONCILE_LOCK_KEY", "finalize_reconcile_lock"),
		ReconcileLockTTL:     getEnvAsDuration("RECONCILE_LOCK_TTL_SECONDS", 60*time.Second, time.Second),
		ReconcileWorker:      getEnvAsBool("RECONCILE_WORKER_ENABLED", true),
		KafkaBrokers:         getEnvAsList("KAFKA_BROKERS"),
		KafkaSubmissionTopic: getEnv("KAFKA_SUBMISSION_TOPIC", "submission.finalized"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDir:   getEnv("LOG_DIR", "logs"),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration reads an integer count of unit.
func getEnvAsDuration(key string, fallback time.Duration, unit time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil && value >= 0 {
		return time.Duration(value) * unit
	}
	return fallback
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
