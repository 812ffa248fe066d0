package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classcore/classcore/internal/apperr"
	"github.com/classcore/classcore/internal/clock"
	"github.com/classcore/classcore/internal/compositor"
	"github.com/classcore/classcore/internal/media"
	"github.com/classcore/classcore/internal/metrics"
	"github.com/classcore/classcore/internal/mixer"
)

// Manager owns the live RecordingSession registry and implements the
// begin/end operations the signaling front-end calls. At most one
// Manager exists per server process; all registry mutation goes through
// its mutex, matching the single-writer concurrency model the
// signaling front-end assumes.
type Manager struct {
	authz    Authorizer
	store    MetadataStore
	encoders EncoderFactory
	videoDec VideoDecoderFactory
	audioDec AudioDecoderFactory

	recordingsDir string
	containerExt  string
	videoTickHz   int
	audioTickMs   int
	negotiateTO   time.Duration
	flushTimeout  time.Duration

	log *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// Options configures a Manager's tunables, normally sourced from
// config.Config.
type Options struct {
	RecordingsDir       string
	ContainerExt        string
	VideoTickHz         int
	AudioTickMs         int
	NegotiationTimeout  time.Duration
	EncoderFlushTimeout time.Duration
}

// NewManager builds a Manager over its required collaborators.
func NewManager(
	authz Authorizer,
	store MetadataStore,
	encoders EncoderFactory,
	videoDec VideoDecoderFactory,
	audioDec AudioDecoderFactory,
	opts Options,
	log *zap.Logger,
) *Manager {
	return &Manager{
		authz:         authz,
		store:         store,
		encoders:      encoders,
		videoDec:      videoDec,
		audioDec:      audioDec,
		recordingsDir: opts.RecordingsDir,
		containerExt:  opts.ContainerExt,
		videoTickHz:   opts.VideoTickHz,
		audioTickMs:   opts.AudioTickMs,
		negotiateTO:   opts.NegotiationTimeout,
		flushTimeout:  opts.EncoderFlushTimeout,
		log:           log,
		sessions:      make(map[string]*Session),
	}
}

// Begin authorizes principal to record divisionID, negotiates a new
// RecordingSession over offerSDP, and starts its pipeline. Returns the
// new session's id and the SDP answer to relay back to the caller.
func (m *Manager) Begin(ctx context.Context, principal, divisionID, offerSDP string) (sessionID, answerSDP string, err error) {
	if !m.authz.MayRecord(principal, divisionID) {
		return "", "", apperr.New(apperr.Authorization, "principal may not record this division")
	}

	id := uuid.NewString()
	outputPath := filepath.Join(m.recordingsDir, fmt.Sprintf("%s.%s", id, m.containerExt))

	pc, err := newPeerConnection()
	if err != nil {
		return "", "", apperr.Wrap(apperr.Internal, "create peer connection", err)
	}

	log := m.log.With(zap.String("session_id", id), zap.String("division_id", divisionID))

	s := &Session{
		id:            id,
		principal:     principal,
		divisionID:    divisionID,
		outputPath:    outputPath,
		log:           log,
		pc:            pc,
		compositor:    compositor.New(),
		mixer:         mixer.New(id),
		frameClock:    clock.New(m.videoTickHz, m.audioTickMs),
		videoDecoders: m.videoDec,
		audioDecoders: m.audioDec,
		state:         Negotiating,
		videoSources:  make(map[string]*media.VideoSource),
		audioSources:  make(map[string]*media.AudioSource),
		done:          make(chan struct{}),
	}

	enc, err := m.encoders(outputPath, canvasWidth, canvasHeight, true)
	if err != nil {
		_ = pc.Close()
		return "", "", apperr.Wrap(apperr.EncoderFailure, "create encoder", err)
	}
	s.encoder = enc

	negotiateCtx, cancel := context.WithTimeout(ctx, m.negotiateTO)
	defer cancel()
	answerSDP, err = s.negotiate(negotiateCtx, offerSDP)
	if err != nil {
		_ = enc.FlushAndClose(context.Background())
		_ = os.Remove(outputPath)
		_ = pc.Close()
		return "", "", err
	}

	ticksCtx, cancelTicks := context.WithCancel(context.Background())
	s.cancelTicks = cancelTicks
	s.frameClock.Run(ticksCtx)
	go s.runTicks(ticksCtx)

	s.abandon = func(reason string) { m.reap(id, reason) }
	s.negotiationTimer = time.AfterFunc(m.negotiateTO, func() {
		s.triggerAbandon("negotiation deadline exceeded")
	})

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	log.Info("recording session negotiated")
	return id, answerSDP, nil
}

// claim removes sessionID from the registry and transitions it to
// Stopping, as one operation under m.mu so End and reap can never both
// claim the same session. If onlyIfNegotiating is set the claim only
// succeeds while the session is still Negotiating (used by reap, so a
// session that reaches Recording in the same instant the deadline fires
// is left alone); otherwise it succeeds for a Negotiating or Recording
// session (used by End). A session already Stopping is being finalized by
// its own forceStop and is not claimed. Returns ok=false if the claim could
// not be made.
func (m *Manager) claim(sessionID string, onlyIfNegotiating bool) (s *Session, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, found := m.sessions[sessionID]
	if !found {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if onlyIfNegotiating {
		if s.state != Negotiating {
			return nil, false
		}
	} else if s.state != Negotiating && s.state != Recording {
		return nil, false
	}
	s.state = Stopping

	delete(m.sessions, sessionID)
	metrics.ActiveSessions.Dec()
	return s, true
}

// reap closes a session that is still Negotiating when sessionID's
// negotiation deadline fires or its peer connection fails before
// reaching Connected. No metadata is persisted and the unfinished output
// file is removed, matching the data model's "Negotiating -> Closed, no
// file persisted" transition. A no-op if the session has since left
// Negotiating (reached Recording, or was already stopped/removed).
func (m *Manager) reap(sessionID, reason string) {
	s, ok := m.claim(sessionID, true)
	if !ok {
		return
	}
	if s.negotiationTimer != nil {
		s.negotiationTimer.Stop()
	}

	s.log.Warn("reaping session stuck negotiating", zap.String("reason", reason))

	flushCtx, cancel := context.WithTimeout(context.Background(), m.flushTimeout)
	defer cancel()
	if err := s.finalize(flushCtx); err != nil {
		s.log.Error("reap: finalize failed", zap.Error(err))
	}
	if err := os.Remove(s.outputPath); err != nil && !os.IsNotExist(err) {
		s.log.Warn("reap: failed to remove unfinished output file", zap.Error(err))
	}
}

// End stops a session, finalizes its encoded file, records its metadata,
// and removes it from the registry. Unknown or already-closed ids are
// reported as NotFound, making the operation idempotent from the
// caller's perspective.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	s, ok := m.claim(sessionID, false)
	if !ok {
		return apperr.New(apperr.NotFound, "unknown session id")
	}
	if s.negotiationTimer != nil {
		s.negotiationTimer.Stop()
	}

	s.mu.Lock()
	startedAt := s.startedAt
	s.mu.Unlock()

	flushCtx, cancel := context.WithTimeout(ctx, m.flushTimeout)
	defer cancel()
	if err := s.finalize(flushCtx); err != nil {
		s.log.Error("encoder flush failed", zap.Error(err))
		return apperr.Wrap(apperr.EncoderFailure, "flush recording", err)
	}

	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	if _, err := m.store.RecordVideo(ctx, filepath.Base(s.outputPath), s.divisionID, startedAt); err != nil {
		s.log.Error("record video metadata failed", zap.Error(err))
		return apperr.Wrap(apperr.Internal, "persist recording metadata", err)
	}

	s.log.Info("recording session closed")
	return nil
}

// Lookup reports whether sessionID names a session currently reachable
// in the registry (InRegistry() states only).
func (m *Manager) Lookup(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Shutdown ends every session still in the registry, bounded by ctx. Used
// on process shutdown so a SIGTERM/SIGINT behaves like an explicit
// stop_recording for every in-flight session instead of dropping their
// output mid-cluster.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := m.End(ctx, id); err != nil {
				m.log.Error("shutdown: end session failed", zap.String("session_id", id), zap.Error(err))
			}
		}(id)
	}
	wg.Wait()
}
