// Package config loads classcore-server's runtime configuration via Viper,
// overlays CLASSCORE_-prefixed environment variables, and supports
// hot-reload of the subset of fields that are safe to change without
// restarting in-flight recording sessions.
package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration for the server process.
type Config struct {
	ListenAddr    string `mapstructure:"listen_addr"`
	MetricsAddr   string `mapstructure:"metrics_addr"`
	RecordingsDir string `mapstructure:"recordings_dir"`
	ContainerExt  string `mapstructure:"container_ext"`

	EncoderPreset string `mapstructure:"encoder_preset"`
	EncoderCRF    int    `mapstructure:"encoder_crf"`

	VideoTickHz int `mapstructure:"video_tick_hz"`
	AudioTickMs int `mapstructure:"audio_tick_ms"`

	NegotiationTimeout  time.Duration `mapstructure:"negotiation_timeout"`
	EncoderFlushTimeout time.Duration `mapstructure:"encoder_flush_timeout"`
	RoomPingInterval    time.Duration `mapstructure:"room_ping_interval"`
	RoomPongTimeout     time.Duration `mapstructure:"room_pong_timeout"`

	PostgresDSN string `mapstructure:"postgres_dsn"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "json" or "console"
}

// Default returns the configuration used when a field is absent from both
// the config file and the environment.
func Default() *Config {
	return &Config{
		ListenAddr:    ":8443",
		MetricsAddr:   ":9090",
		RecordingsDir: "./recordings",
		ContainerExt:  "mkv",

		EncoderPreset: "ultrafast",
		EncoderCRF:    18,

		VideoTickHz: 30,
		AudioTickMs: 20,

		NegotiationTimeout:  30 * time.Second,
		EncoderFlushTimeout: 10 * time.Second,
		RoomPingInterval:    30 * time.Second,
		RoomPongTimeout:     75 * time.Second,

		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load reads cfgFile (if non-empty) or searches ./classcore.yaml and
// /etc/classcore/classcore.yaml, overlays the environment, and validates.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := newViper(cfgFile)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper(cfgFile string) *viper.Viper {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("classcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/classcore")
	}
	v.SetEnvPrefix("CLASSCORE")
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows, so each field is bound
	// to its environment variable explicitly.
	for _, key := range []string{
		"listen_addr", "metrics_addr", "recordings_dir", "container_ext",
		"encoder_preset", "encoder_crf", "video_tick_hz", "audio_tick_ms",
		"negotiation_timeout", "encoder_flush_timeout", "room_ping_interval",
		"room_pong_timeout", "postgres_dsn", "log_level", "log_format",
	} {
		_ = v.BindEnv(key)
	}
	return v
}

// WatchReload re-reads cfgFile on every write and invokes onChange with the
// freshly validated config. Only HotReloadable() fields should be acted on
// by a caller that already has sessions in flight; callers are responsible
// for ignoring the rest.
func WatchReload(cfgFile string, onChange func(*Config)) error {
	if cfgFile == "" {
		return fmt.Errorf("config: WatchReload requires an explicit file path")
	}
	v := newViper(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read: %w", err)
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg := Default()
		if err := v.Unmarshal(cfg); err != nil {
			return
		}
		if err := cfg.Validate(); err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
