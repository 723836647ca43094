package logger

import (
	"io"

	"github.com/spf13/viper"
)

// EnvConfig is the logger configuration read from the environment.
// Keys map to upper-case variables: log_level reads LOG_LEVEL.
type EnvConfig struct {
	Level       string    `mapstructure:"log_level"`  // debug, info, warn, error
	Format      string    `mapstructure:"log_format"` // json, text
	Output      io.Writer `mapstructure:"-"`          // overrides every other destination
	ServiceName string    `mapstructure:"service_name"`
	Environment string    `mapstructure:"app_env"` // local, dev, prod

	// Outside the local environment logs also go to a rotating file.
	LogFile     string `mapstructure:"log_file"`
	LogFileOnly bool   `mapstructure:"log_file_only"`
	MaxSize     int    `mapstructure:"log_max_size"` // MB
	MaxBackups  int    `mapstructure:"log_max_backups"`
	MaxAge      int    `mapstructure:"log_max_age"` // days
	Compress    bool   `mapstructure:"log_compress"`
}

var envDefaults = map[string]any{
	"log_level":       "info",
	"log_format":      "json",
	"service_name":    "dialogbot",
	"app_env":         "local",
	"log_file":        "/var/log/dialogbot/app.log",
	"log_file_only":   false,
	"log_max_size":    100,
	"log_max_backups": 7,
	"log_max_age":     30,
	"log_compress":    true,
}

// LoadFromEnv reads the logger configuration with viper. Unset variables
// keep their defaults; a value that does not parse drops back to all defaults.
func LoadFromEnv() *EnvConfig {
	if cfg, err := decodeEnv(true); err == nil {
		return cfg
	}
	cfg, _ := decodeEnv(false)
	return cfg
}

func decodeEnv(useEnv bool) (*EnvConfig, error) {
	v := viper.New()
	for key, val := range envDefaults {
		v.SetDefault(key, val)
	}
	if useEnv {
		v.AutomaticEnv()
	}
	cfg := &EnvConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
