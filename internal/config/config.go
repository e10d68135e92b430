package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/luhtfiimanal/serialbridge/internal/escape"
)

// Config holds the operator settings that are not positional arguments.
type Config struct {
	// Command sent for Ctrl-C l
	CannedCommand string    `mapstructure:"canned_command"`
	ClearScreen   bool      `mapstructure:"clear_screen"`
	Log           LogConfig `mapstructure:"log"`
}

// LogConfig selects the zerolog level.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Debug bool   `mapstructure:"debug"`
}

// Load reads the config file and SERIALBRIDGE_* environment variables on
// top of the built-in defaults. An empty cfgFile searches ".",
// $HOME/.serialbridge and /etc/serialbridge for an optional config.yaml;
// an explicit cfgFile must exist and parse.
func Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.serialbridge")
		viper.AddConfigPath("/etc/serialbridge/")
	}

	// SERIALBRIDGE_CANNED_COMMAND, SERIALBRIDGE_LOG_LEVEL, ...
	viper.SetEnvPrefix("SERIALBRIDGE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.BindEnv("canned_command")
	viper.BindEnv("clear_screen")
	viper.BindEnv("log.level")
	viper.BindEnv("log.debug")

	viper.SetDefault("canned_command", escape.DefaultCannedCommand)
	viper.SetDefault("clear_screen", true)
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.debug", false)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// ConfigureZerolog sets the global zerolog level from the log configuration.
func (c *LogConfig) ConfigureZerolog() {
	zerolog.SetGlobalLevel(c.ZerologLevel())
}

// ZerologLevel maps the configured level name to a zerolog level.
// Unknown names fall back to warn.
func (c *LogConfig) ZerologLevel() zerolog.Level {
	if c.Debug {
		return zerolog.DebugLevel
	}
	switch strings.ToLower(c.Level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.WarnLevel
	}
}
