package compositor

import (
	"testing"
	"time"

	"github.com/classcore/classcore/internal/media"
)

type fakeSource struct {
	trackID    string
	attachedAt time.Time
	frame      *media.VideoFrame
	stale      bool
}

func (f *fakeSource) TrackID() string         { return f.trackID }
func (f *fakeSource) AttachedAt() time.Time   { return f.attachedAt }
func (f *fakeSource) Snapshot(time.Time) (*media.VideoFrame, bool) {
	if f.stale {
		return nil, false
	}
	return f.frame, true
}

func solidFrame(w, h int, y byte) *media.VideoFrame {
	f := media.NewFrame(w, h)
	for i := range f.Y() {
		f.Y()[i] = y
	}
	return f
}

func TestNextFrameZeroSourcesIsBlack(t *testing.T) {
	c := New()
	out := c.NextFrame(time.Now())
	if out.Width != canvasWidth || out.Height != canvasHeight {
		t.Fatalf("dimensions = %dx%d, want %dx%d", out.Width, out.Height, canvasWidth, canvasHeight)
	}
	for _, v := range out.Y() {
		if v != 16 {
			t.Fatalf("expected black frame, found Y=%d", v)
		}
	}
}

func TestNextFrameOneSourceLetterboxes(t *testing.T) {
	c := New()
	c.Attach(&fakeSource{trackID: "a", attachedAt: time.Now(), frame: solidFrame(640, 480, 200)})

	out := c.NextFrame(time.Now())
	// Center pixel should come from the source, not the black fill.
	center := out.Y()[(canvasHeight/2)*canvasWidth+canvasWidth/2]
	if center == 16 {
		t.Fatal("expected letterboxed content at frame center, found black")
	}
	// Corner should remain black (pillarboxed/letterboxed margin).
	corner := out.Y()[0]
	if corner != 16 {
		t.Fatalf("expected black margin at corner, got %d", corner)
	}
}

func TestNextFrameTwoSourcesPlacesPiPBottomRight(t *testing.T) {
	c := New()
	main := &fakeSource{trackID: "main", attachedAt: time.Now(), frame: solidFrame(1280, 720, 100)}
	pip := &fakeSource{trackID: "pip", attachedAt: time.Now().Add(time.Second), frame: solidFrame(320, 180, 220)}
	c.Attach(pip)
	c.Attach(main)

	out := c.NextFrame(time.Now())
	// PiP tile bottom-right corner pixel (inset by padding) should reflect
	// the PiP source's brighter value, not the main source's.
	x := canvasWidth - pipPadding - 1
	y := canvasHeight - pipPadding - 1
	got := out.Y()[y*canvasWidth+x]
	if got != 220 {
		t.Fatalf("PiP tile pixel = %d, want 220 (main was %d)", got, 100)
	}
}

func TestMainSourceOrderingStableByAttachTime(t *testing.T) {
	c := New()
	early := &fakeSource{trackID: "z", attachedAt: time.Unix(1, 0), frame: solidFrame(100, 100, 50)}
	late := &fakeSource{trackID: "a", attachedAt: time.Unix(2, 0), frame: solidFrame(100, 100, 250)}
	c.Attach(late)
	c.Attach(early)

	ordered := c.orderedLiveSources(time.Now())
	if ordered[0].trackID != "z" {
		t.Fatalf("main source = %q, want earliest-attached %q", ordered[0].trackID, "z")
	}
}

func TestStaleSourceDropsOutOfLayout(t *testing.T) {
	c := New()
	c.Attach(&fakeSource{trackID: "gone", attachedAt: time.Now(), stale: true})

	out := c.NextFrame(time.Now())
	for _, v := range out.Y() {
		if v != 16 {
			t.Fatal("stale source should not appear in layout")
		}
	}
}
