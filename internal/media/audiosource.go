package media

import (
	"sync"
	"time"

	"github.com/pion/rtp"
)

// ringFrames bounds each source's buffer to 10 output frames (200ms at
// 20ms/frame) before the ring starts dropping the oldest samples.
const ringFrames = 10

// AudioSource wraps one inbound audio track. Incoming RTP payloads are
// decoded to PCM, resampled to 48kHz stereo S16, and queued into a bounded
// ring buffer that the mixer drains on its own schedule.
type AudioSource struct {
	trackID    string
	attachedAt time.Time
	decoder    AudioDecoder
	resampler  *resampler

	mu   sync.Mutex
	ring *stereoRing
}

// NewAudioSource constructs an AudioSource decoding with decoder and
// resampling to the mixer's fixed 48kHz stereo output rate.
func NewAudioSource(trackID string, decoder AudioDecoder) *AudioSource {
	return &AudioSource{
		trackID:    trackID,
		attachedAt: time.Now(),
		decoder:    decoder,
		resampler:  newResampler(48000),
		ring:       newStereoRing(ringFrames * 960),
	}
}

// TrackID returns the source's track identifier.
func (a *AudioSource) TrackID() string { return a.trackID }

// IngestRTP decodes one RTP packet's payload and queues the resulting
// 48kHz stereo samples. A decode failure is local: the packet is
// dropped and the source keeps running.
func (a *AudioSource) IngestRTP(pkt *rtp.Packet) {
	pcm, channels, rate, err := a.decoder.Decode(pkt.Payload)
	if err != nil || len(pcm) == 0 {
		return
	}
	stereo := toStereo(pcm, channels)

	a.mu.Lock()
	defer a.mu.Unlock()
	resampled := a.resampler.Resample(stereo, rate)
	a.ring.Push(resampled)
}

// toStereo duplicates a mono channel to stereo, or passes stereo through
// unchanged. Any other channel count is downmixed by averaging all of a
// frame's channels and writing that average to both sides, rather than
// dropped.
func toStereo(pcm []int16, channels int) []int16 {
	switch channels {
	case 2:
		return pcm
	case 1:
		out := make([]int16, len(pcm)*2)
		for i, s := range pcm {
			out[2*i] = s
			out[2*i+1] = s
		}
		return out
	default:
		frames := len(pcm) / channels
		out := make([]int16, frames*2)
		for f := 0; f < frames; f++ {
			var sum int32
			for c := 0; c < channels; c++ {
				sum += int32(pcm[f*channels+c])
			}
			avg := int16(sum / int32(channels))
			out[2*f] = avg
			out[2*f+1] = avg
		}
		return out
	}
}

// TryTake returns exactly 960 stereo samples if available, leaving any
// smaller buffered amount untouched for the next tick (the underrun
// policy: a source below the threshold contributes zero this tick).
func (a *AudioSource) TryTake(frames int) (samples []int16, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ring.TryTake(frames)
}
