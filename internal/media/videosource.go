package media

import (
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"
)

// staleAfter is how long a VideoSource keeps serving its last frame after
// packets stop arriving, per the Video Compositor's failure semantics.
const staleAfter = time.Second

// VideoSource wraps one inbound video track. It reassembles RTP packets
// into access units with a pion SampleBuilder, decodes each access unit,
// and exposes only the most recently decoded frame — the compositor never
// sees partial or out-of-order frames.
type VideoSource struct {
	trackID    string
	attachedAt time.Time
	decoder    VideoDecoder
	builder    *samplebuilder.SampleBuilder

	mu          sync.Mutex
	lastFrame   *VideoFrame
	lastFrameAt time.Time
	detached    bool
}

// NewVideoSource constructs a VideoSource for a track identified by
// trackID, depacketizing with depacketizer (e.g. codecs.VP8Packet{} or
// codecs.H264Packet{} from github.com/pion/rtp/codecs) and decoding
// reassembled access units with decoder.
func NewVideoSource(trackID string, depacketizer rtp.Depacketizer, decoder VideoDecoder) *VideoSource {
	return &VideoSource{
		trackID:    trackID,
		attachedAt: time.Now(),
		decoder:    decoder,
		builder:    samplebuilder.New(50, depacketizer, 90000),
	}
}

// TrackID returns the identifier used for main-source tie-breaking.
func (v *VideoSource) TrackID() string { return v.trackID }

// AttachedAt returns when this source was created, used to pick the main
// source as "attached earliest and still live".
func (v *VideoSource) AttachedAt() time.Time { return v.attachedAt }

// IngestRTP feeds one RTP packet into the reassembly pipeline. Every
// complete access unit the SampleBuilder yields is decoded immediately;
// decode errors are swallowed here since per-source failures stay local
// — the compositor just keeps the previous frame until one decodes.
func (v *VideoSource) IngestRTP(pkt *rtp.Packet) {
	v.builder.Push(pkt)
	for {
		sample := v.builder.Pop()
		if sample == nil {
			return
		}
		frame, _, err := v.decoder.Decode(sample.Data)
		if err != nil || frame == nil {
			continue
		}
		frame.Timestamp = time.Now()
		v.mu.Lock()
		v.lastFrame = frame
		v.lastFrameAt = frame.Timestamp
		v.mu.Unlock()
	}
}

// Snapshot returns the most recent decoded frame, or ok=false if either no
// frame has ever decoded or the last one is older than staleAfter.
func (v *VideoSource) Snapshot(now time.Time) (frame *VideoFrame, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.lastFrame == nil || v.detached {
		return nil, false
	}
	if now.Sub(v.lastFrameAt) > staleAfter {
		return nil, false
	}
	return v.lastFrame, true
}

// Detach marks the source as permanently gone; future snapshots report not
// ok regardless of a stale cached frame.
func (v *VideoSource) Detach() {
	v.mu.Lock()
	v.detached = true
	v.mu.Unlock()
}
