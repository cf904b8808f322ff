// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	AI          AIConfig
	WhatsApp    WhatsAppConfig
	Loan        LoanConfig
	Bureau      BureauConfig
	Clicksign   ClicksignConfig
	QITech      QITechConfig
	AWS         AWSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

type AIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	TimeoutSeconds int
}

type WhatsAppConfig struct {
	BaseURL      string
	APIKey       string
	InstanceName string
}

type LoanConfig struct {
	MinAmount       float64
	MaxAmount       float64
	MinInstallments int
	MaxInstallments int
	BaseRate        float64 // monthly, percent
	FloorRate       float64 // monthly, percent; computed rates never go below
}

type BureauConfig struct {
	APIURL  string
	APIKey  string
	Enabled bool
}

type ClicksignConfig struct {
	APIURL        string
	APIKey        string
	Enabled       bool
	WebhookSecret string
}

type QITechConfig struct {
	APIURL        string
	ClientKey     string
	PrivateKey    string // base64-encoded PEM, ECDSA P-521
	Enabled       bool
	WebhookSecret string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "3000"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "zenwallet_loans"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		AI: AIConfig{
			APIKey:         getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:        getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			Model:          getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens:      getEnvAsInt("ANTHROPIC_MAX_TOKENS", 1024),
			TimeoutSeconds: getEnvAsInt("ANTHROPIC_TIMEOUT_SECONDS", 30),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:      getEnv("EVOLUTION_API_URL", "http://localhost:8080"),
			APIKey:       getEnv("EVOLUTION_API_KEY", ""),
			InstanceName: getEnv("EVOLUTION_INSTANCE_NAME", "zenwallet"),
		},
		Loan: LoanConfig{
			MinAmount:       getEnvAsFloat("MIN_LOAN_AMOUNT", 1000),
			MaxAmount:       getEnvAsFloat("MAX_LOAN_AMOUNT", 100000),
			MinInstallments: getEnvAsInt("MIN_INSTALLMENTS", 3),
			MaxInstallments: getEnvAsInt("MAX_INSTALLMENTS", 48),
			BaseRate:        getEnvAsFloat("BASE_INTEREST_RATE", 1.99),
			FloorRate:       getEnvAsFloat("FLOOR_INTEREST_RATE", 1.49),
		},
		Bureau: BureauConfig{
			APIURL:  getEnv("SERASA_API_URL", "https://api.serasa.com.br"),
			APIKey:  getEnv("SERASA_API_KEY", "mock"),
			Enabled: getEnvAsBool("SERASA_ENABLED", false),
		},
		Clicksign: ClicksignConfig{
			APIURL:        getEnv("CLICKSIGN_API_URL", "https://sandbox.clicksign.com/api/v1"),
			APIKey:        getEnv("CLICKSIGN_API_KEY", "mock"),
			Enabled:       getEnvAsBool("CLICKSIGN_ENABLED", false),
			WebhookSecret: getEnv("CLICKSIGN_WEBHOOK_SECRET", ""),
		},
		QITech: QITechConfig{
			APIURL:        getEnv("QITECH_API_URL", "https://api-auth.sandbox.qitech.app"),
			ClientKey:     getEnv("QITECH_CLIENT_KEY", "mock"),
			PrivateKey:    getEnv("QITECH_PRIVATE_KEY", ""),
			Enabled:       getEnvAsBool("QITECH_ENABLED", false),
			WebhookSecret: getEnv("QITECH_WEBHOOK_SECRET", ""),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "zenwallet-loan-documents"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.AI.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database password is required in production")
		}
	}

	if c.Loan.MinAmount <= 0 || c.Loan.MaxAmount < c.Loan.MinAmount {
		return fmt.Errorf("invalid loan amount bounds: min=%.2f max=%.2f", c.Loan.MinAmount, c.Loan.MaxAmount)
	}
	if c.Loan.MinInstallments < 1 || c.Loan.MaxInstallments < c.Loan.MinInstallments {
		return fmt.Errorf("invalid installment bounds: min=%d max=%d", c.Loan.MinInstallments, c.Loan.MaxInstallments)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
