package config

import (
	"time"

	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SMTPConfig carries everything the outbound mail sender needs.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	SenderEmail string
	SenderName  string
	Encryption  string
	ServerName  string
}

// Config holds all configuration for the service.
type Config struct {
	ServiceName           string        `mapstructure:"SERVICE_NAME"`
	Port                  int           `mapstructure:"PORT"`
	BaseURL               string        `mapstructure:"BASE_URL"`
	MongoURI              string        `mapstructure:"MONGO_URI"`
	MongoDatabase         string        `mapstructure:"MONGO_DATABASE"`
	RedisAddr             string        `mapstructure:"REDIS_ADDR"`
	RedisPassword         string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB               int           `mapstructure:"REDIS_DB"`
	NATSURL               string        `mapstructure:"NATS_URL"`
	JWTSecret             string        `mapstructure:"JWT_SECRET"`
	SessionTTL            time.Duration `mapstructure:"SESSION_TTL"`
	ResetTokenTTL         time.Duration `mapstructure:"RESET_TOKEN_TTL"`
	BcryptCost            int           `mapstructure:"BCRYPT_COST"`
	SecureCookies         bool          `mapstructure:"SECURE_COOKIES"`
	PrometheusMetricsPort string        `mapstructure:"PROMETHEUS_METRICS_PORT"`
	OTLPEndpoint          string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	SMTP SMTPConfig `mapstructure:"-"`
}

// LoadConfig reads configuration from environment variables and/or a config.env file.
func LoadConfig(appLogger *logger.Logger) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("SERVICE_NAME", "auth-service")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "auth")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("JWT_SECRET", "your-secret-key")
	viper.SetDefault("SESSION_TTL", "24h")
	viper.SetDefault("RESET_TOKEN_TTL", "10m")
	viper.SetDefault("BCRYPT_COST", 10)
	viper.SetDefault("SECURE_COOKIES", true)
	viper.SetDefault("PROMETHEUS_METRICS_PORT", "")
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("SMTP_SENDER_EMAIL", "")
	viper.SetDefault("SMTP_SENDER_NAME", "")
	viper.SetDefault("SMTP_ENCRYPTION", "starttls")
	viper.SetDefault("SMTP_SERVER_NAME", "")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		appLogger.Error("Failed to unmarshal configuration", zap.Error(err))
		return nil, err
	}

	cfg.SMTP = SMTPConfig{
		Host:        viper.GetString("SMTP_HOST"),
		Port:        viper.GetInt("SMTP_PORT"),
		Username:    viper.GetString("SMTP_USERNAME"),
		Password:    viper.GetString("SMTP_PASSWORD"),
		SenderEmail: viper.GetString("SMTP_SENDER_EMAIL"),
		SenderName:  viper.GetString("SMTP_SENDER_NAME"),
		Encryption:  viper.GetString("SMTP_ENCRYPTION"),
		ServerName:  viper.GetString("SMTP_SERVER_NAME"),
	}

	if cfg.JWTSecret == "your-secret-key" || cfg.JWTSecret == "" {
		appLogger.Warn("JWT_SECRET is set to its default insecure value or is empty. Please set a strong secret in your environment.")
	}
	if cfg.MongoURI == "" {
		appLogger.Fatal("MONGO_URI is not set. This is required.")
	}
	if cfg.MongoDatabase == "" {
		appLogger.Fatal("MONGO_DATABASE is not set. This is required.")
	}

	appLogger.Debug("Configuration loaded",
		zap.String("service_name", cfg.ServiceName),
		zap.Int("port", cfg.Port),
		zap.Bool("mongo_uri_present", cfg.MongoURI != ""),
		zap.String("mongo_database", cfg.MongoDatabase),
		zap.String("nats_url", cfg.NATSURL),
		zap.Bool("jwt_secret_present", cfg.JWTSecret != ""),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Duration("reset_token_ttl", cfg.ResetTokenTTL),
		zap.String("prometheus_port", cfg.PrometheusMetricsPort),
		zap.String("otel_endpoint", cfg.OTLPEndpoint),
	)

	return &cfg, nil
}
