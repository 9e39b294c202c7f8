package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/awsl-bot/awsl-bot/internal/capture"
)

// Config is the full startup configuration. Values come from an optional
// YAML file overridden by AWSLBOT_* environment variables; thresholds
// default to values calibrated for a standard chat window layout and can be
// re-tuned with cmd/calibrate.
type Config struct {
	ChatName string
	Keyword  string

	PollInterval time.Duration
	Cooldown     time.Duration

	ConfidenceFloor float64
	OriginThreshold float64
	LineTolerance   float64

	Region capture.Region

	DBPath string

	HTTPPort  int
	HTTPToken string

	VisionAPIKey string

	AssetBaseURL string
	CSEAPIKey    string
	CSEID        string
}

func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("keyword", "awsl")
	v.SetDefault("poll_interval", "2s")
	v.SetDefault("cooldown", "60s")
	v.SetDefault("confidence_floor", 0.6)
	v.SetDefault("origin_threshold", 0.2)
	v.SetDefault("line_tolerance", 0.012)
	v.SetDefault("region.left", 0.25)
	v.SetDefault("region.top", 0.1)
	v.SetDefault("region.width", 0.7)
	v.SetDefault("region.height", 0.75)
	v.SetDefault("db_path", "./awslbot.db")
	v.SetDefault("http.port", 8080)
	v.SetDefault("asset.base_url", "https://awsl.api.moe")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("awslbot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.awslbot")
	}

	v.SetEnvPrefix("AWSLBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		ChatName:        v.GetString("chat_name"),
		Keyword:         v.GetString("keyword"),
		PollInterval:    v.GetDuration("poll_interval"),
		Cooldown:        v.GetDuration("cooldown"),
		ConfidenceFloor: v.GetFloat64("confidence_floor"),
		OriginThreshold: v.GetFloat64("origin_threshold"),
		LineTolerance:   v.GetFloat64("line_tolerance"),
		Region: capture.Region{
			Left:   v.GetFloat64("region.left"),
			Top:    v.GetFloat64("region.top"),
			Width:  v.GetFloat64("region.width"),
			Height: v.GetFloat64("region.height"),
		},
		DBPath:       v.GetString("db_path"),
		HTTPPort:     v.GetInt("http.port"),
		HTTPToken:    v.GetString("http.token"),
		VisionAPIKey: v.GetString("vision.api_key"),
		AssetBaseURL: v.GetString("asset.base_url"),
		CSEAPIKey:    v.GetString("asset.cse_key"),
		CSEID:        v.GetString("asset.cse_id"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ChatName == "" {
		return fmt.Errorf("chat_name is required")
	}
	if c.Keyword == "" {
		return fmt.Errorf("keyword is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive")
	}
	if err := c.Region.Validate(); err != nil {
		return fmt.Errorf("invalid capture region: %w", err)
	}
	return nil
}
