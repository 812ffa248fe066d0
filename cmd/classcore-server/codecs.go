package main

import (
	"fmt"

	"github.com/pion/rtp"

	"github.com/classcore/classcore/internal/media"
	"github.com/classcore/classcore/internal/session"
)

// encoderFactory, unsupportedVideoDecoder, and unsupportedAudioDecoder
// are this deployment's integration points for bitstream compression
// and decompression. No pure-Go H.264/AAC encoder or VP8/H.264/Opus
// decoder exists anywhere in this module's dependency graph (see
// DESIGN.md); operators must supply real implementations of
// encoder.VideoEncoder/AudioEncoder and media.VideoDecoder/AudioDecoder
// (e.g. via cgo bindings to libvpx/libx264/libopus) and wire them here
// before deploying. Left unwired, begin_recording fails with
// EncoderFailure (HTTP 502) before negotiation starts, since the encoder
// factory is called first.

func encoderFactory(outputPath string, width, height uint16, withAudio bool) (session.MediaEncoder, error) {
	return nil, fmt.Errorf("encoderFactory: no VideoEncoder/AudioEncoder wired for %s (%dx%d, audio=%v)", outputPath, width, height, withAudio)
}

func unsupportedVideoDecoder(mimeType string) (media.VideoDecoder, rtp.Depacketizer, error) {
	return nil, nil, fmt.Errorf("unsupportedVideoDecoder: no decoder registered for %s", mimeType)
}

func unsupportedAudioDecoder(mimeType string) (media.AudioDecoder, error) {
	return nil, fmt.Errorf("unsupportedAudioDecoder: no decoder registered for %s", mimeType)
}
