// Package logging constructs the process-wide *zap.Logger from config and
// the small per-domain helpers (WithSession, WithRoom) that attach
// session/room/participant identifiers to log lines touching them.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger from the configured level and format. format is
// "json" (production) or "console" (development); anything else defaults
// to json.
func New(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}
	return logger, nil
}

// WithSession returns a logger scoped to a single recording session.
func WithSession(base *zap.Logger, sessionID string) *zap.Logger {
	return base.With(zap.String("session_id", sessionID))
}

// WithRoom returns a logger scoped to a single room.
func WithRoom(base *zap.Logger, roomID string) *zap.Logger {
	return base.With(zap.String("room_id", roomID))
}

// WithParticipant further scopes a room logger to one participant.
func WithParticipant(base *zap.Logger, participantID string) *zap.Logger {
	return base.With(zap.String("participant_id", participantID))
}
