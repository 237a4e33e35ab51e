package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Discord    DiscordConfig    `mapstructure:"discord"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Display    DisplayConfig    `mapstructure:"display"`
	WorkerPool WorkerPoolConfig `mapstructure:"worker_pool"`
}

type DiscordConfig struct {
	Token string `mapstructure:"token"`
	// GuildID restricts slash command registration to a single guild.
	// Empty registers commands globally.
	GuildID string `mapstructure:"guild_id"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type DisplayConfig struct {
	// TickMs is the debounce tick period for display refreshes, in milliseconds.
	TickMs int `mapstructure:"tick_ms"`
}

type WorkerPoolConfig struct {
	Size      int `mapstructure:"size"`
	QueueSize int `mapstructure:"queue_size"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.SetDefault("display.tick_ms", 1500)
	v.SetDefault("worker_pool.size", 8)
	v.SetDefault("worker_pool.queue_size", 256)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

// TickPeriod returns the debounce tick as a duration, falling back to the
// default when unset or invalid.
func (c DisplayConfig) TickPeriod() time.Duration {
	if c.TickMs <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.TickMs) * time.Millisecond
}
