package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env  string
	Port string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	SessionTTL      time.Duration
	RegistrationTTL time.Duration
	ResetCodeTTL    time.Duration

	PendingStore  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MailSender   string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	AdminUserName string
	AdminEmail    string
	AdminPassword string
}

func Load() Config {
	return Config{
		Env:  getEnv("APP_ENV", "production"),
		Port: getEnv("PORT", "8060"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "postgres"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "program"),
		DBPassword: getEnv("DB_PASSWORD", "test"),
		DBName:     getEnv("DB_NAME", "library"),
		SQLitePath: getEnv("SQLITE_PATH", "library.db"),

		SessionTTL:      getDuration("SESSION_TTL", 24*time.Hour),
		RegistrationTTL: getDuration("REGISTRATION_TTL", time.Hour),
		ResetCodeTTL:    getDuration("RESET_CODE_TTL", 30*time.Minute),

		PendingStore:  getEnv("PENDING_STORE", "db"),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		MailSender:   getEnv("MAIL_SENDER", "log"),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "library@localhost"),

		AdminUserName: getEnv("ADMIN_USERNAME", "superadmin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@library.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

// PostgresDSN builds the keyword/value DSN understood by the pgx driver.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
