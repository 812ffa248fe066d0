package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsMissingListenAddr(t *testing.T) {
	cfg := Default()
	cfg.ListenAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty listen_addr")
	}
}

func TestValidateRejectsUnevenAudioTick(t *testing.T) {
	cfg := Default()
	cfg.AudioTickMs = 7
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for audio_tick_ms not dividing 1000")
	}
}

func TestValidateRejectsPongTimeoutBelowPingInterval(t *testing.T) {
	cfg := Default()
	cfg.RoomPingInterval = cfg.RoomPongTimeout
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when pong timeout does not exceed ping interval")
	}
}

func TestValidateResolvesRecordingsDirToAbsolute(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := Default()
	cfg.RecordingsDir = "recordings"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(cfg.RecordingsDir) {
		t.Fatalf("recordings dir %q should be absolute after validation", cfg.RecordingsDir)
	}
}
