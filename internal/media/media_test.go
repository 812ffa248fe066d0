package media

import (
	"testing"
	"time"

	"github.com/pion/rtp"
)

func TestVideoFrameBlackFillsStudioRangeBlack(t *testing.T) {
	f := NewFrame(4, 2)
	f.FillBlack()
	for _, y := range f.Y() {
		if y != 16 {
			t.Fatalf("Y plane not black: got %d", y)
		}
	}
	for _, c := range f.Cb() {
		if c != 128 {
			t.Fatalf("Cb plane not neutral: got %d", c)
		}
	}
}

func TestVideoFramePlaneSizes(t *testing.T) {
	f := NewFrame(1280, 720)
	if got, want := f.YSize(), 1280*720; got != want {
		t.Fatalf("YSize = %d, want %d", got, want)
	}
	if got, want := f.CSize(), 640*360; got != want {
		t.Fatalf("CSize = %d, want %d", got, want)
	}
	if len(f.Pixels) != f.YSize()+2*f.CSize() {
		t.Fatalf("Pixels length mismatch")
	}
}

func TestStereoRingUnderrunLeavesPartialBuffered(t *testing.T) {
	r := newStereoRing(10 * 960)
	r.Push(make([]int16, 480*2)) // 480 frames, below the 960 threshold

	if _, ok := r.TryTake(960); ok {
		t.Fatal("expected underrun: fewer than 960 frames buffered")
	}
	if got := r.Frames(); got != 480 {
		t.Fatalf("partial buffer was consumed: Frames() = %d, want 480", got)
	}
}

func TestStereoRingTryTakeRemovesExactly(t *testing.T) {
	r := newStereoRing(10 * 960)
	r.Push(make([]int16, 1200*2))

	samples, ok := r.TryTake(960)
	if !ok {
		t.Fatal("expected TryTake to succeed with 1200 frames buffered")
	}
	if len(samples) != 960*2 {
		t.Fatalf("got %d samples, want %d", len(samples), 960*2)
	}
	if got := r.Frames(); got != 240 {
		t.Fatalf("remaining frames = %d, want 240", got)
	}
}

func TestStereoRingDropsOldestOnOverflow(t *testing.T) {
	r := newStereoRing(10) // capacity 10 frames
	first := []int16{1, 1}
	for i := 0; i < 15; i++ {
		r.Push([]int16{int16(i), int16(i)})
	}
	_ = first
	if got := r.Frames(); got != 10 {
		t.Fatalf("Frames() = %d, want capacity 10 after overflow", got)
	}
	samples, ok := r.TryTake(1)
	if !ok {
		t.Fatal("expected data after overflow")
	}
	// oldest surviving frame should be index 5 (0..4 dropped)
	if samples[0] != 5 {
		t.Fatalf("oldest surviving sample = %d, want 5 (0-4 should have been dropped)", samples[0])
	}
}

func TestResamplerPassThroughAtSameRate(t *testing.T) {
	r := newResampler(48000)
	input := []int16{100, -100, 200, -200, 300, -300}
	out := r.Resample(input, 48000)
	if len(out) == 0 {
		t.Fatal("expected non-empty output")
	}
	if out[0] != 100 || out[1] != -100 {
		t.Fatalf("first frame changed: got (%d,%d)", out[0], out[1])
	}
}

type fakeAudioDecoder struct {
	channels, rate int
}

func (d fakeAudioDecoder) Decode(payload []byte) ([]int16, int, int, error) {
	pcm := make([]int16, len(payload))
	for i, b := range payload {
		pcm[i] = int16(b)
	}
	return pcm, d.channels, d.rate, nil
}

func TestAudioSourceMonoToStereoDuplication(t *testing.T) {
	src := NewAudioSource("a1", fakeAudioDecoder{channels: 1, rate: 48000})
	src.IngestRTP(&rtp.Packet{Payload: make([]byte, 960)})

	samples, ok := src.TryTake(960)
	if !ok {
		t.Fatal("expected 960 frames after a single 960-sample mono push")
	}
	for i := 0; i < len(samples); i += 2 {
		if samples[i] != samples[i+1] {
			t.Fatalf("mono source should duplicate to both channels at index %d", i)
		}
	}
}

func TestVideoSourceSnapshotStaleness(t *testing.T) {
	v := &VideoSource{trackID: "v1", attachedAt: time.Now()}
	if _, ok := v.Snapshot(time.Now()); ok {
		t.Fatal("expected no frame before any decode")
	}
}
