// Package encoder bridges the compositor's raw YUV420P frames and the
// mixer's raw PCM frames to the container package's MKV writer. The
// actual bitstream compression (H.264, AAC) is delegated to VideoEncoder
// and AudioEncoder — collaborators supplied by the process wiring the
// server up, since no pure-Go H.264/AAC encoder appears anywhere in the
// retrieval pack (see DESIGN.md). Everything upstream of compression
// (reassembly, compositing, mixing) and downstream of it (container
// muxing) is implemented directly in this module.
package encoder

import (
	"context"
	"fmt"
	"time"

	"github.com/classcore/classcore/internal/container"
	"github.com/classcore/classcore/internal/media"
)

// VideoEncoder compresses one composited YUV420P frame into an H.264
// access unit.
type VideoEncoder interface {
	EncodeFrame(frame *media.VideoFrame) (accessUnit []byte, keyframe bool, err error)
	// Config returns the AVCDecoderConfigurationRecord to embed as the
	// track's CodecPrivate.
	Config() []byte
}

// AudioEncoder compresses one 960-sample stereo S16 frame into an AAC
// access unit.
type AudioEncoder interface {
	EncodeFrame(pcm []int16) (accessUnit []byte, err error)
	SampleRate() uint32
	Channels() uint8
	// Config returns the AudioSpecificConfig to embed as the track's
	// CodecPrivate.
	Config() []byte
}

// Encoder implements the RecordingSession's MediaEncoder collaborator: it
// accepts the compositor's and mixer's tick-scheduled output and writes a
// finished MKV file.
type Encoder struct {
	writer   *container.Writer
	video    VideoEncoder
	audio    AudioEncoder
	hasAudio bool
}

// New creates the output file at path and prepares an Encoder for a
// width x height video track, optionally with an audio track if audioEnc
// is non-nil.
func New(path string, width, height uint16, videoEnc VideoEncoder, audioEnc AudioEncoder) (*Encoder, error) {
	w, err := container.New(path, width, height, videoEnc.Config())
	if err != nil {
		return nil, err
	}
	e := &Encoder{writer: w, video: videoEnc, audio: audioEnc}
	if audioEnc != nil {
		w.EnableAudio(audioEnc.SampleRate(), audioEnc.Channels(), audioEnc.Config())
		e.hasAudio = true
	}
	return e, nil
}

// WriteVideoFrame compresses and appends one composited frame at
// presentation time pts (measured from session start).
func (e *Encoder) WriteVideoFrame(frame *media.VideoFrame, pts time.Duration) error {
	au, keyframe, err := e.video.EncodeFrame(frame)
	if err != nil {
		return fmt.Errorf("encoder: video encode: %w", err)
	}
	return e.writer.WriteVideoFrame(pts.Milliseconds(), keyframe, au)
}

// WriteAudioFrame compresses and appends one mixed frame at pts. A no-op
// if the session has no audio track.
func (e *Encoder) WriteAudioFrame(pcm []int16, pts time.Duration) error {
	if !e.hasAudio {
		return nil
	}
	au, err := e.audio.EncodeFrame(pcm)
	if err != nil {
		return fmt.Errorf("encoder: audio encode: %w", err)
	}
	e.writer.WriteAudioFrame(pts.Milliseconds(), au)
	return nil
}

// FlushAndClose finalizes the output file, bounded by ctx's deadline.
func (e *Encoder) FlushAndClose(ctx context.Context) error {
	return e.writer.FlushAndClose(ctx)
}
