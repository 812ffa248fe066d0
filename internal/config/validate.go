package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Validate checks field-level invariants and ensures RecordingsDir exists
// or can be created. It does not reach out to Postgres; that failure
// surfaces at first use instead.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr is required")
	}
	if c.RecordingsDir == "" {
		return fmt.Errorf("config: recordings_dir is required")
	}
	if c.ContainerExt == "" {
		return fmt.Errorf("config: container_ext is required")
	}
	if c.VideoTickHz <= 0 {
		return fmt.Errorf("config: video_tick_hz must be positive")
	}
	if c.AudioTickMs <= 0 || 1000%c.AudioTickMs != 0 {
		return fmt.Errorf("config: audio_tick_ms must divide 1000 evenly")
	}
	if c.NegotiationTimeout <= 0 {
		return fmt.Errorf("config: negotiation_timeout must be positive")
	}
	if c.EncoderFlushTimeout <= 0 {
		return fmt.Errorf("config: encoder_flush_timeout must be positive")
	}
	if c.RoomPingInterval <= 0 || c.RoomPongTimeout <= 0 {
		return fmt.Errorf("config: room ping/pong timeouts must be positive")
	}
	if c.RoomPongTimeout <= c.RoomPingInterval {
		return fmt.Errorf("config: room_pong_timeout must exceed room_ping_interval")
	}

	if err := os.MkdirAll(c.RecordingsDir, 0o755); err != nil {
		return fmt.Errorf("config: recordings_dir %q: %w", c.RecordingsDir, err)
	}
	if abs, err := filepath.Abs(c.RecordingsDir); err == nil {
		c.RecordingsDir = abs
	}
	return nil
}

// HotReloadable lists the mapstructure keys that are safe to apply to
// already-running sessions. Session-affecting fields (tick rates, container
// format) are deliberately excluded — they only take effect for sessions
// created after a reload.
func HotReloadable() []string {
	return []string{"log_level", "room_ping_interval", "room_pong_timeout", "encoder_flush_timeout"}
}
