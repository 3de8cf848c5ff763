package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the API
type Config struct {
	APIPort int    `mapstructure:"apiPort"`
	Env     string `mapstructure:"env"` // "development" or "production"
	AppURL  string `mapstructure:"appUrl"`

	CORSOrigins []string `mapstructure:"corsOrigins"`

	DatabaseType            string `mapstructure:"databaseType"` // "sqlite" or "postgres"
	DatabasePath            string `mapstructure:"databasePath"`
	DatabaseHost            string `mapstructure:"databaseHost"`
	DatabasePort            string `mapstructure:"databasePort"`
	DatabaseName            string `mapstructure:"databaseName"`
	DatabaseUser            string `mapstructure:"databaseUser"`
	DatabasePassword        string `mapstructure:"databasePassword"`
	DatabaseSSLMode         string `mapstructure:"databaseSslMode"`
	DatabaseMaxConns        int    `mapstructure:"databaseMaxConns"`
	DatabaseMaxIdle         int    `mapstructure:"databaseMaxIdle"`
	DatabaseConnMaxLifetime string `mapstructure:"databaseConnMaxLifetime"`

	JWTAccessSecret  string        `mapstructure:"jwtAccessSecret"`
	JWTRefreshSecret string        `mapstructure:"jwtRefreshSecret"`
	AccessTokenTTL   time.Duration `mapstructure:"accessTokenTtl"`
	RefreshTokenTTL  time.Duration `mapstructure:"refreshTokenTtl"`

	RequireVerification bool `mapstructure:"requireVerification"`

	SMTPHost      string `mapstructure:"smtpHost"`
	SMTPPort      int    `mapstructure:"smtpPort"`
	SMTPUser      string `mapstructure:"smtpUser"`
	SMTPPassword  string `mapstructure:"smtpPassword"`
	EmailFrom     string `mapstructure:"emailFrom"`
	EmailFromName string `mapstructure:"emailFromName"`
}

// IsDevelopment reports whether the API runs in development mode.
// Error responses include detail only in development.
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("budgetd")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Missing file is fine, env vars may carry everything; any
			// other read error is not.
			if !strings.Contains(err.Error(), "no such file") {
				return nil, err
			}
		}
		log.Printf("Warning: could not read config file %s: %v. Using defaults and environment variables.", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
		log.Println("apiPort not specified, using default 8080")
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.AppURL == "" {
		cfg.AppURL = fmt.Sprintf("http://localhost:%d", cfg.APIPort)
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = "sqlite"
		log.Println("databaseType not specified, using default sqlite")
	}
	if cfg.DatabaseType == "sqlite" && cfg.DatabasePath == "" {
		cfg.DatabasePath = "data/budgetd.db"
		log.Println("databasePath not specified, using default data/budgetd.db")
	}
	if cfg.DatabaseSSLMode == "" {
		cfg.DatabaseSSLMode = "disable"
	}

	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("jwtAccessSecret and jwtRefreshSecret are required in production")
		}
		// Development fallback so the API starts without a config file.
		if cfg.JWTAccessSecret == "" {
			cfg.JWTAccessSecret = "dev-access-secret"
			log.Println("jwtAccessSecret not specified, using insecure development default")
		}
		if cfg.JWTRefreshSecret == "" {
			cfg.JWTRefreshSecret = "dev-refresh-secret"
			log.Println("jwtRefreshSecret not specified, using insecure development default")
		}
	}
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, fmt.Errorf("jwtAccessSecret and jwtRefreshSecret must differ")
	}

	if cfg.EmailFromName == "" {
		cfg.EmailFromName = "Budgetd"
	}

	return &cfg, nil
}
