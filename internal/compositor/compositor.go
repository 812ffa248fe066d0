// Package compositor implements the Video Compositing Track: it merges the
// most recent frame of zero or more VideoSources into a single 1280x720
// YUV420P canvas per video tick, letterboxing a single source and laying
// out additional sources as picture-in-picture tiles stacked bottom-right.
//
// The padding/tile geometry is adapted from the grid_compositor service's
// overlay placement (canvas - overlay - margin, bottom-right anchored);
// the scaling here is done directly on YUV420P planes instead of
// shelling out to ffmpeg.
package compositor

import (
	"sort"
	"sync"
	"time"

	"github.com/classcore/classcore/internal/media"
)

const (
	canvasWidth  = 1280
	canvasHeight = 720

	pipWidth   = 320 // 25% of canvas width
	pipPadding = 10
)

// Source is the subset of *media.VideoSource the compositor needs; kept as
// an interface so tests can supply synthetic sources.
type Source interface {
	TrackID() string
	AttachedAt() time.Time
	Snapshot(now time.Time) (*media.VideoFrame, bool)
}

// Compositor owns the live set of video sources for one recording session
// and produces one ComposedFrame per video tick.
type Compositor struct {
	mu      sync.Mutex
	sources map[string]Source
	stopped bool
}

// New constructs an empty Compositor.
func New() *Compositor {
	return &Compositor{sources: make(map[string]Source)}
}

// Attach adds a video source. Safe to call concurrently with NextFrame.
func (c *Compositor) Attach(src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.sources[src.TrackID()] = src
}

// Detach removes a video source.
func (c *Compositor) Detach(trackID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, trackID)
}

// Stop marks the compositor as no longer accepting new sources. NextFrame
// keeps compositing the sources already attached for any ticks still
// pending, so the encoder's tick cadence is never broken mid-session.
func (c *Compositor) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

// NextFrame renders one ComposedFrame for the given tick deadline. It never
// blocks on source availability — absent or stale sources simply drop out
// of the layout for this tick.
func (c *Compositor) NextFrame(now time.Time) *media.VideoFrame {
	ordered := c.orderedLiveSources(now)

	out := media.NewFrame(canvasWidth, canvasHeight)
	out.FillBlack()
	out.Timestamp = now

	if len(ordered) == 0 {
		return out
	}

	main := ordered[0]
	letterbox(out, main.frame, 0, 0, canvasWidth, canvasHeight)

	pips := ordered[1:]
	placePiPs(out, pips)

	return out
}

type liveSource struct {
	trackID    string
	attachedAt time.Time
	frame      *media.VideoFrame
}

// orderedLiveSources returns sources with a fresh frame, ordered main-first:
// earliest attachedAt first, ties broken by TrackID, stable across ticks.
func (c *Compositor) orderedLiveSources(now time.Time) []liveSource {
	c.mu.Lock()
	snapshot := make([]Source, 0, len(c.sources))
	for _, s := range c.sources {
		snapshot = append(snapshot, s)
	}
	c.mu.Unlock()

	live := make([]liveSource, 0, len(snapshot))
	for _, s := range snapshot {
		frame, ok := s.Snapshot(now)
		if !ok {
			continue
		}
		live = append(live, liveSource{trackID: s.TrackID(), attachedAt: s.AttachedAt(), frame: frame})
	}
	sort.Slice(live, func(i, j int) bool {
		if !live[i].attachedAt.Equal(live[j].attachedAt) {
			return live[i].attachedAt.Before(live[j].attachedAt)
		}
		return live[i].trackID < live[j].trackID
	})
	return live
}

// placePiPs lays out secondary sources as tiles of width pipWidth (height
// preserving source aspect), padded pipPadding px from the canvas edges,
// stacked upward from the bottom-right. Tiles that would overflow the
// canvas's top edge are dropped, lowest source order first (i.e. the
// tiles nearest the bottom-right corner — the highest-priority PiPs — are
// kept).
func placePiPs(out *media.VideoFrame, pips []liveSource) {
	bottomY := canvasHeight - pipPadding
	for _, src := range pips {
		tileH := pipWidth * src.frame.Height / src.frame.Width
		if tileH <= 0 {
			continue
		}
		top := bottomY - tileH
		if top < pipPadding {
			// Drop this tile and every later one, even a shorter later
			// tile that would still fit, so the drop follows source order.
			break
		}
		left := canvasWidth - pipPadding - pipWidth
		scaleInto(out, src.frame, left, top, pipWidth, tileH)
		bottomY = top - pipPadding
	}
}

// letterbox scales src to fit within (dstX,dstY,dstW,dstH) preserving
// aspect ratio, centered, with any remaining area left as the canvas's
// existing (black) content.
func letterbox(dst *media.VideoFrame, src *media.VideoFrame, dstX, dstY, dstW, dstH int) {
	scale := minFloat(float64(dstW)/float64(src.Width), float64(dstH)/float64(src.Height))
	scaledW := int(float64(src.Width) * scale)
	scaledH := int(float64(src.Height) * scale)
	scaledW -= scaledW % 2
	scaledH -= scaledH % 2
	if scaledW <= 0 || scaledH <= 0 {
		return
	}
	offsetX := dstX + (dstW-scaledW)/2
	offsetY := dstY + (dstH-scaledH)/2
	scaleInto(dst, src, offsetX, offsetY, scaledW, scaledH)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
