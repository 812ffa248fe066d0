package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/classcore/classcore/internal/apperr"
	"github.com/classcore/classcore/internal/clock"
	"github.com/classcore/classcore/internal/compositor"
	"github.com/classcore/classcore/internal/media"
	"github.com/classcore/classcore/internal/metrics"
	"github.com/classcore/classcore/internal/mixer"
)

const (
	canvasWidth  = 1280
	canvasHeight = 720
)

// Session is one RecordingSession: it owns a peer connection, a
// Compositor, a Mixer, a FrameClock, and the output file's MediaEncoder
// from negotiation through encoder finalization.
type Session struct {
	id         string
	principal  string
	divisionID string
	outputPath string

	log *zap.Logger

	pc         *webrtc.PeerConnection
	compositor *compositor.Compositor
	mixer      *mixer.Mixer
	frameClock *clock.FrameClock
	encoder    MediaEncoder

	videoDecoders VideoDecoderFactory
	audioDecoders AudioDecoderFactory

	mu           sync.Mutex
	state        State
	videoSources map[string]*media.VideoSource
	audioSources map[string]*media.AudioSource
	hasAudio     bool

	cancelTicks context.CancelFunc
	startedAt   time.Time
	done        chan struct{}

	// negotiationTimer and abandon implement the Negotiating deadline:
	// a session still Negotiating when the timer fires, or whose peer
	// connection fails before reaching Connected, is closed with no
	// metadata persisted. Both are set by the Manager once the session
	// is registered.
	negotiationTimer *time.Timer
	abandon          func(reason string)
}

// newPeerConnection builds the pion API and PeerConnection used by one
// session, registering the default interceptors (NACK, RTCP reports).
func newPeerConnection() (*webrtc.PeerConnection, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
	)

	return api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	})
}

// negotiate runs the begin() operation against a freshly constructed
// Session: set the remote offer, register track handlers, wait for ICE
// gathering (this core does not expose a separate trickle-ICE signal, so
// gathering completes before the answer is returned), and produce the
// answer SDP.
func (s *Session) negotiate(ctx context.Context, offerSDP string) (answerSDP string, err error) {
	if err := s.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}); err != nil {
		return "", apperr.Wrap(apperr.BadOffer, "set remote description", err)
	}

	if countRecordableTracks(s.pc) == 0 {
		return "", apperr.New(apperr.BadOffer, "offer contains no recordable audio/video m-line")
	}

	s.pc.OnTrack(s.onTrack)
	s.pc.OnConnectionStateChange(s.onConnectionStateChange)

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return "", apperr.Wrap(apperr.BadOffer, "create answer", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(s.pc)
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return "", apperr.Wrap(apperr.Internal, "set local description", err)
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", apperr.Wrap(apperr.Transport, "ICE gathering timed out", ctx.Err())
	}

	return s.pc.LocalDescription().SDP, nil
}

// countRecordableTracks reports how many audio/video m-lines the remote
// offer declared, used to reject an offer with none as BadOffer.
func countRecordableTracks(pc *webrtc.PeerConnection) int {
	n := 0
	for _, t := range pc.GetTransceivers() {
		if t.Kind() == webrtc.RTPCodecTypeAudio || t.Kind() == webrtc.RTPCodecTypeVideo {
			n++
		}
	}
	return n
}

// onTrack wraps a newly arrived remote track in a VideoSource or
// AudioSource and attaches it to the compositor/mixer. Tracks may arrive
// any time during Recording, not just right after negotiation.
func (s *Session) onTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	switch track.Kind() {
	case webrtc.RTPCodecTypeVideo:
		s.attachVideoTrack(track)
	case webrtc.RTPCodecTypeAudio:
		s.attachAudioTrack(track)
	}
	s.maybeTransitionToRecording()
}

func (s *Session) attachVideoTrack(track *webrtc.TrackRemote) {
	decoder, depacketizer, err := s.videoDecoders(track.Codec().MimeType)
	if err != nil {
		s.log.Warn("no decoder for video codec", zap.String("mime_type", track.Codec().MimeType), zap.Error(err))
		return
	}
	src := media.NewVideoSource(track.ID(), depacketizer, decoder)

	s.mu.Lock()
	s.videoSources[track.ID()] = src
	s.mu.Unlock()
	s.compositor.Attach(src)

	go s.drainVideoTrack(track, src)
}

func (s *Session) drainVideoTrack(track *webrtc.TrackRemote, src *media.VideoSource) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			s.detachVideoTrack(track.ID(), src)
			return
		}
		src.IngestRTP(pkt)
	}
}

func (s *Session) detachVideoTrack(trackID string, src *media.VideoSource) {
	src.Detach()
	s.compositor.Detach(trackID)
	s.mu.Lock()
	delete(s.videoSources, trackID)
	s.mu.Unlock()
}

func (s *Session) attachAudioTrack(track *webrtc.TrackRemote) {
	decoder, err := s.audioDecoders(track.Codec().MimeType)
	if err != nil {
		s.log.Warn("no decoder for audio codec", zap.String("mime_type", track.Codec().MimeType), zap.Error(err))
		return
	}
	src := media.NewAudioSource(track.ID(), decoder)

	s.mu.Lock()
	s.audioSources[track.ID()] = src
	s.hasAudio = true
	s.mu.Unlock()
	s.mixer.Attach(src)

	go s.drainAudioTrack(track, src)
}

func (s *Session) drainAudioTrack(track *webrtc.TrackRemote, src *media.AudioSource) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			s.mixer.Detach(track.ID())
			s.mu.Lock()
			delete(s.audioSources, track.ID())
			s.mu.Unlock()
			return
		}
		src.IngestRTP(pkt)
	}
}

func (s *Session) maybeTransitionToRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Negotiating {
		return
	}
	if s.pc.ConnectionState() != webrtc.PeerConnectionStateConnected {
		return
	}
	if len(s.videoSources)+len(s.audioSources) == 0 {
		return
	}
	s.state = Recording
	s.startedAt = time.Now()
	if s.negotiationTimer != nil {
		s.negotiationTimer.Stop()
	}
	s.log.Info("session recording", zap.String("state", s.state.String()))
}

func (s *Session) onConnectionStateChange(state webrtc.PeerConnectionState) {
	s.log.Info("peer connection state changed", zap.String("pc_state", state.String()))
	if state == webrtc.PeerConnectionStateConnected {
		s.maybeTransitionToRecording()
		return
	}
	if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateDisconnected {
		s.mu.Lock()
		wasRecording := s.state == Recording
		wasNegotiating := s.state == Negotiating
		s.mu.Unlock()
		if wasRecording {
			go s.forceStop()
		} else if wasNegotiating {
			go s.triggerAbandon("peer connection " + state.String() + " before recording started")
		}
	}
}

// triggerAbandon invokes abandon if the session is still Negotiating.
// Used both by the negotiation deadline timer and by a pre-Connected
// connection failure.
func (s *Session) triggerAbandon(reason string) {
	s.mu.Lock()
	stillNegotiating := s.state == Negotiating
	s.mu.Unlock()
	if stillNegotiating && s.abandon != nil {
		s.abandon(reason)
	}
}

func (s *Session) forceStop() {
	s.mu.Lock()
	if s.state != Recording {
		s.mu.Unlock()
		return
	}
	s.state = Stopping
	s.mu.Unlock()
	_ = s.finalize(context.Background())
}

// finalize stops the ticking pipeline, detaches any remaining sources,
// flushes the encoder to a finished container file, and records the
// session's terminal state. Safe to call at most once per session; the
// caller (end or forceStop) guards against re-entry via state.
func (s *Session) finalize(ctx context.Context) error {
	if s.cancelTicks != nil {
		s.cancelTicks()
	}
	s.compositor.Stop()
	s.mixer.Stop()
	if s.pc != nil {
		_ = s.pc.Close()
	}

	flushStart := time.Now()
	err := s.encoder.FlushAndClose(ctx)
	metrics.EncoderFlushDuration.Observe(time.Since(flushStart).Seconds())

	s.mu.Lock()
	s.state = Closed
	s.mu.Unlock()

	close(s.done)
	return err
}

// runTicks pulls the FrameClock's video and audio ticks and drives the
// compositor/mixer/encoder pipeline. Runs until the clock's channels
// close (session stop) or the context is cancelled.
func (s *Session) runTicks(ctx context.Context) {
	video := s.frameClock.Video()
	audio := s.frameClock.Audio()
	// Both tick streams start at index 0 with the clock's start instant as
	// deadline, so the first tick received marks pts 0 for video and audio.
	var origin time.Time
	pts := func(tick clock.Tick) time.Duration {
		if origin.IsZero() {
			origin = tick.Deadline
		}
		return tick.Deadline.Sub(origin)
	}
	for video != nil || audio != nil {
		select {
		case tick, ok := <-video:
			if !ok {
				video = nil
				continue
			}
			frame := s.compositor.NextFrame(tick.Deadline)
			metrics.ComposedFrames.WithLabelValues(s.id).Inc()
			if err := s.encoder.WriteVideoFrame(frame, pts(tick)); err != nil {
				s.log.Error("video encode failed", zap.Error(err))
			}
		case tick, ok := <-audio:
			if !ok {
				audio = nil
				continue
			}
			pcm := s.mixer.NextFrame()
			metrics.MixedFrames.WithLabelValues(s.id).Inc()
			if err := s.encoder.WriteAudioFrame(pcm, pts(tick)); err != nil {
				s.log.Error("audio encode failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
