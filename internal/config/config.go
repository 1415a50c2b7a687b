package config

import "github.com/spf13/viper"

// Config holds the process-wide configuration. It is built once at startup
// and read-only afterwards; collaborators receive the values they need at
// construction time instead of reading ambient state.
type Config struct {
	AppPort     string
	DatabaseDSN string // PostgreSQL DSN; empty means local SQLite
	SQLitePath  string
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	UploadDir   string
	RabbitMQURL string // empty disables account event publishing
	BcryptCost  int    // 0 means bcrypt's default cost
}

// Load reads configuration from environment variables via Viper, applying
// defaults for everything that can safely have one. The JWT secret has no
// default on purpose: running without one is a fatal misconfiguration.
func Load() *Config {
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("SQLITE_PATH", "practiceapi.db")
	viper.SetDefault("JWT_ISSUER", "PracticeAPI")
	viper.SetDefault("JWT_AUDIENCE", "PracticeAPIUsers")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("BCRYPT_COST", 0)
	viper.AutomaticEnv() // Load environment variables

	return &Config{
		AppPort:     viper.GetString("APP_PORT"),
		DatabaseDSN: viper.GetString("DATABASE_DSN"),
		SQLitePath:  viper.GetString("SQLITE_PATH"),
		JWTSecret:   viper.GetString("JWT_SECRET"),
		JWTIssuer:   viper.GetString("JWT_ISSUER"),
		JWTAudience: viper.GetString("JWT_AUDIENCE"),
		UploadDir:   viper.GetString("UPLOAD_DIR"),
		RabbitMQURL: viper.GetString("RABBITMQ_URL"),
		BcryptCost:  viper.GetInt("BCRYPT_COST"),
	}
}
