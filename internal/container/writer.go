package container

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
)

// audioFrame queues one AAC access unit until the next video cluster
// drains it.
type audioFrame struct {
	relMsFromBase int64
	data          []byte
}

// Writer incrementally muxes one recording session's H.264 video and AAC
// audio access units into an MKV file on disk. One Writer is owned
// exclusively by one RecordingSession's encoder task.
type Writer struct {
	mu   sync.Mutex
	file *os.File

	width, height   uint16
	hasAudio        bool
	audioSampleRate uint32
	audioChannels   uint8
	avcConfig       []byte
	aacConfig       []byte

	wroteInit    bool
	baseVideoSet bool
	baseVideoMs  int64
	baseAudioSet bool
	baseAudioMs  int64

	clusterOpen    bool
	clusterStartMs int64
	clusterBlocks  bytes.Buffer
	audioQ         []audioFrame

	closed bool
}

// New creates (or truncates) the file at path and prepares a Writer for
// it. The video track's codec parameters must be known before the first
// WriteVideoFrame call.
func New(path string, width, height uint16, avcConfig []byte) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("container: create %q: %w", path, err)
	}
	return &Writer{file: f, width: width, height: height, avcConfig: avcConfig}, nil
}

// EnableAudio declares an AAC audio track. Must be called before the first
// WriteVideoFrame if the session has an audio source at negotiation time.
func (w *Writer) EnableAudio(sampleRate uint32, channels uint8, aacConfig []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hasAudio = true
	w.audioSampleRate = sampleRate
	w.audioChannels = channels
	w.aacConfig = aacConfig
}

// WriteVideoFrame appends one H.264 access unit at timecodeMs (the
// session's monotonic clock, not RTP-relative). A new cluster starts at
// every keyframe, matching the webm.go precedent of using keyframes as
// seek points; audio queued since the last cluster flush drains into it.
func (w *Writer) WriteVideoFrame(timecodeMs int64, keyframe bool, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("container: write after close")
	}

	if !w.baseVideoSet {
		w.baseVideoMs = timecodeMs
		w.baseVideoSet = true
	}
	tsMs := timecodeMs - w.baseVideoMs

	if !w.wroteInit {
		if !keyframe {
			return nil // wait for a keyframe to start the file cleanly
		}
		init := initSegment(w.width, w.height, w.hasAudio, w.audioSampleRate, w.audioChannels, w.avcConfig, w.aacConfig)
		if _, err := w.file.Write(init); err != nil {
			return fmt.Errorf("container: write init segment: %w", err)
		}
		w.wroteInit = true
	}

	if keyframe && w.clusterOpen {
		if err := w.flushClusterLocked(); err != nil {
			return err
		}
	}
	if !w.clusterOpen {
		w.clusterStartMs = tsMs
		if len(w.audioQ) > 0 && w.audioQ[0].relMsFromBase < tsMs {
			w.clusterStartMs = w.audioQ[0].relMsFromBase
		}
		w.clusterOpen = true
		w.clusterBlocks.Reset()
		remaining := w.audioQ[:0]
		for _, af := range w.audioQ {
			rel := af.relMsFromBase - w.clusterStartMs
			if rel < -30000 || rel > 30000 {
				continue
			}
			w.clusterBlocks.Write(simpleBlock(trackNumAudio, int16(rel), true, af.data))
		}
		w.audioQ = remaining
	}

	relMs := int16(tsMs - w.clusterStartMs)
	w.clusterBlocks.Write(simpleBlock(trackNumVideo, relMs, keyframe, data))
	return nil
}

// WriteAudioFrame queues one AAC access unit; it is written out as part of
// the next video cluster, so the container always has well-formed
// interleaved clusters.
func (w *Writer) WriteAudioFrame(timecodeMs int64, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if !w.baseAudioSet {
		w.baseAudioMs = timecodeMs
		w.baseAudioSet = true
	}
	w.audioQ = append(w.audioQ, audioFrame{relMsFromBase: timecodeMs - w.baseAudioMs, data: data})
}

// flushClusterLocked writes the accumulated cluster to disk. Caller must
// hold w.mu.
func (w *Writer) flushClusterLocked() error {
	if !w.clusterOpen || w.clusterBlocks.Len() == 0 {
		w.clusterOpen = false
		return nil
	}
	c := cluster(w.clusterStartMs, w.clusterBlocks.Bytes())
	if _, err := w.file.Write(c); err != nil {
		return fmt.Errorf("container: write cluster: %w", err)
	}
	w.clusterOpen = false
	w.clusterBlocks.Reset()
	return nil
}

// FlushAndClose finalizes the open cluster and closes the file, bounded by
// ctx. If ctx is cancelled before the flush completes, the file is closed
// as-is (EncoderFailure territory for the caller) rather than left open.
func (w *Writer) FlushAndClose(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		err := w.flushClusterLocked()
		w.closed = true
		closeErr := w.file.Close()
		if err == nil {
			err = closeErr
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("container: flush timed out: %w", ctx.Err())
	}
}
