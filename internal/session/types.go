// Package session implements the recording session lifecycle: it owns
// one peer connection, binds its incoming tracks to a Compositor and a
// Mixer, drives a MediaEncoder on the FrameClock's schedule, and exposes
// the begin/end operations the signaling front-end calls.
package session

import (
	"context"
	"time"

	"github.com/pion/rtp"

	"github.com/classcore/classcore/internal/media"
)

// Authorizer answers whether a principal may record or view a division.
// Implemented outside this module; the core only consumes it.
type Authorizer interface {
	MayRecord(principal, divisionID string) bool
	MayView(principal, divisionID string) bool
}

// MetadataStore persists a finished recording's metadata. Implemented
// outside this module.
type MetadataStore interface {
	RecordVideo(ctx context.Context, filename, divisionID string, recordedAt time.Time) (videoID string, err error)
}

// MediaEncoder consumes the compositor's and mixer's tick-scheduled output
// and finalizes a container file. *encoder.Encoder satisfies this.
type MediaEncoder interface {
	WriteVideoFrame(frame *media.VideoFrame, pts time.Duration) error
	WriteAudioFrame(pcm []int16, pts time.Duration) error
	FlushAndClose(ctx context.Context) error
}

// EncoderFactory builds a MediaEncoder for a session once its output path
// and video dimensions are known. Letting the Manager hold a factory
// (rather than a single Encoder) keeps each session's file and encoder
// state exclusively its own, per the data model's ownership rule.
type EncoderFactory func(outputPath string, width, height uint16, withAudio bool) (MediaEncoder, error)

// VideoDecoderFactory builds a decoder and RTP depacketizer for an
// incoming video track's negotiated codec (e.g. "video/VP8",
// "video/H264"). Implemented outside this module — see DESIGN.md.
type VideoDecoderFactory func(mimeType string) (media.VideoDecoder, rtp.Depacketizer, error)

// AudioDecoderFactory builds a decoder for an incoming audio track's
// negotiated codec (e.g. "audio/opus").
type AudioDecoderFactory func(mimeType string) (media.AudioDecoder, error)

// State is the RecordingSession lifecycle state.
type State int

const (
	Negotiating State = iota
	Recording
	Stopping
	Closed
)

func (s State) String() string {
	switch s {
	case Negotiating:
		return "negotiating"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	default:
		return "closed"
	}
}

// InRegistry reports whether a session in this state should still be
// reachable by identifier, per the data model invariant.
func (s State) InRegistry() bool { return s != Closed }
