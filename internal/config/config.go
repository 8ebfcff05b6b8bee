package config

import (
	"log/slog"

	"github.com/spf13/viper"

	"github.com/nevesb/romc-catalog/internal/db"
)

// ServerConfig holds the HTTP surface configuration.
type ServerConfig struct {
	Addr          string
	AllowedOrigin string
	ExportDir     string
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:          ":8080",
		AllowedOrigin: "http://localhost:3000",
	}
}

// Load reads config.yaml from configPath (optional) and applies environment
// overrides: DB_* for the database block, ROMC_* for the server block.
func Load(configPath string) (db.Config, ServerConfig, error) {
	dbCfg := db.DefaultConfig()
	serverCfg := DefaultServerConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()

	v.SetEnvPrefix("DB")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_DBNAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("server.addr", "ROMC_ADDR")
	v.BindEnv("server.allowed_origin", "ROMC_ALLOWED_ORIGIN")
	v.BindEnv("server.export_dir", "ROMC_EXPORT_DIR")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Use defaults + env.
		slog.Info("no config.yaml found, using defaults and env vars")
	} else {
		slog.Info("loaded config.yaml", "path", v.ConfigFileUsed())
	}

	if v.IsSet("database.host") {
		dbCfg.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		dbCfg.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		dbCfg.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		dbCfg.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		dbCfg.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		dbCfg.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		serverCfg.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origin") {
		serverCfg.AllowedOrigin = v.GetString("server.allowed_origin")
	}
	if v.IsSet("server.export_dir") {
		serverCfg.ExportDir = v.GetString("server.export_dir")
	}

	return dbCfg, serverCfg, nil
}
