package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// Bank data provider OAuth app credentials and endpoints.
	BankProviderName string
	BankClientID     string `mapstructure:"BANK_CLIENT_ID"`
	BankClientSecret string `mapstructure:"BANK_CLIENT_SECRET"`
	BankRedirectURL  string `mapstructure:"BANK_REDIRECT_URL"`
	BankAPIBaseURL   string `mapstructure:"BANK_API_BASE_URL"`
	BankAuthURL      string `mapstructure:"BANK_AUTH_URL"`
	BankTokenURL     string `mapstructure:"BANK_TOKEN_URL"`

	// BankWebhookSecret is the shared secret embedded in the webhook URL path.
	BankWebhookSecret string `mapstructure:"BANK_WEBHOOK_SECRET"`

	// TokenEncryptionKey is the 32-byte AES key protecting stored bank tokens.
	TokenEncryptionKey string `mapstructure:"TOKEN_ENCRYPTION_KEY"`

	// Time budgets for the two sync shapes. Bulk imports walk the full history
	// and get the longer budget; manual syncs are incremental and short.
	BulkImportTimeout time.Duration
	ManualSyncTimeout time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "property-management-app")
	viper.SetDefault("BANK_PROVIDER_NAME", "openbank")
	viper.SetDefault("BANK_CLIENT_ID", "")
	viper.SetDefault("BANK_CLIENT_SECRET", "")
	viper.SetDefault("BANK_REDIRECT_URL", "")
	viper.SetDefault("BANK_API_BASE_URL", "https://api.openbank.example.com")
	viper.SetDefault("BANK_AUTH_URL", "https://auth.openbank.example.com/authorize")
	viper.SetDefault("BANK_TOKEN_URL", "https://api.openbank.example.com/oauth2/token")
	viper.SetDefault("BANK_WEBHOOK_SECRET", "")
	viper.SetDefault("TOKEN_ENCRYPTION_KEY", "")
	viper.SetDefault("BULK_IMPORT_TIMEOUT", "4m")
	viper.SetDefault("MANUAL_SYNC_TIMEOUT", "30s")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTExpiryDuration = durationOrDefault("JWT_EXPIRY_DURATION", time.Hour)
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.BankProviderName = viper.GetString("BANK_PROVIDER_NAME")
	cfg.BankClientID = viper.GetString("BANK_CLIENT_ID")
	cfg.BankClientSecret = viper.GetString("BANK_CLIENT_SECRET")
	cfg.BankRedirectURL = viper.GetString("BANK_REDIRECT_URL")
	cfg.BankAPIBaseURL = viper.GetString("BANK_API_BASE_URL")
	cfg.BankAuthURL = viper.GetString("BANK_AUTH_URL")
	cfg.BankTokenURL = viper.GetString("BANK_TOKEN_URL")
	if cfg.BankClientID == "" || cfg.BankClientSecret == "" || cfg.BankRedirectURL == "" {
		log.Println("Warning: BANK_CLIENT_ID/BANK_CLIENT_SECRET/BANK_REDIRECT_URL not fully set. Bank connections will not function.")
	}

	cfg.BankWebhookSecret = viper.GetString("BANK_WEBHOOK_SECRET")
	if cfg.BankWebhookSecret == "" {
		log.Println("Warning: BANK_WEBHOOK_SECRET not set. Webhook deliveries will be rejected.")
	}

	cfg.TokenEncryptionKey = viper.GetString("TOKEN_ENCRYPTION_KEY")
	if cfg.TokenEncryptionKey == "" {
		log.Println("Warning: TOKEN_ENCRYPTION_KEY not set. Bank connections will not function.")
	}

	cfg.BulkImportTimeout = durationOrDefault("BULK_IMPORT_TIMEOUT", 4*time.Minute)
	cfg.ManualSyncTimeout = durationOrDefault("MANUAL_SYNC_TIMEOUT", 30*time.Second)

	return cfg, nil
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}
