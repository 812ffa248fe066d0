// Package mixer implements the Audio Mixer Track: it combines the next
// (oldest buffered) 960-sample window from zero or more AudioSources into one
// averaged, clamped stereo S16 frame per audio tick.
package mixer

import (
	"sync"

	"github.com/classcore/classcore/internal/metrics"
)

const frameSize = 960 // samples per channel per tick, i.e. 20ms at 48kHz

// Source is the subset of *media.AudioSource the mixer needs.
type Source interface {
	TrackID() string
	TryTake(frames int) (samples []int16, ok bool)
}

// Mixer owns the live set of audio sources for one recording session and
// produces one MixedFrame per audio tick.
type Mixer struct {
	sessionID string

	mu      sync.Mutex
	sources map[string]Source
	stopped bool
}

// New constructs an empty Mixer for the named session, used to label the
// underrun counter.
func New(sessionID string) *Mixer {
	return &Mixer{sessionID: sessionID, sources: make(map[string]Source)}
}

// Attach adds an audio source.
func (m *Mixer) Attach(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.sources[src.TrackID()] = src
}

// Detach removes an audio source.
func (m *Mixer) Detach(trackID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, trackID)
}

// Stop marks the mixer as no longer accepting new sources.
func (m *Mixer) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// NextFrame produces exactly 960 stereo S16 samples, averaging every
// source that has a full 960-sample window ready and leaving any
// under-threshold source's partial buffer untouched for the next tick.
// With zero ready sources it returns silence — the pacemaker guarantee
// is upheld by the caller invoking NextFrame exactly once per tick
// regardless of what this returns.
func (m *Mixer) NextFrame() []int16 {
	m.mu.Lock()
	snapshot := make([]Source, 0, len(m.sources))
	for _, s := range m.sources {
		snapshot = append(snapshot, s)
	}
	m.mu.Unlock()

	var sums []int32
	k := 0
	for _, s := range snapshot {
		samples, ok := s.TryTake(frameSize)
		if !ok {
			metrics.MixerUnderruns.WithLabelValues(m.sessionID).Inc()
			continue
		}
		if sums == nil {
			sums = make([]int32, len(samples))
		}
		for i, v := range samples {
			sums[i] += int32(v)
		}
		k++
	}

	out := make([]int16, frameSize*2)
	if k == 0 {
		return out // silence
	}
	for i, sum := range sums {
		out[i] = clampInt16(sum / int32(k))
	}
	return out
}

func clampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
