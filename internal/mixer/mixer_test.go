package mixer

import "testing"

type fakeSource struct {
	trackID string
	samples []int16
	ready   bool
}

func (f *fakeSource) TrackID() string { return f.trackID }
func (f *fakeSource) TryTake(frames int) ([]int16, bool) {
	if !f.ready {
		return nil, false
	}
	return f.samples, true
}

func constSamples(v int16) []int16 {
	s := make([]int16, frameSize*2)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestNextFrameZeroSourcesIsSilence(t *testing.T) {
	m := New("test-session")
	out := m.NextFrame()
	if len(out) != frameSize*2 {
		t.Fatalf("len(out) = %d, want %d", len(out), frameSize*2)
	}
	for _, v := range out {
		if v != 0 {
			t.Fatal("expected silence with zero sources")
		}
	}
}

func TestNextFrameOneSourcePassesThrough(t *testing.T) {
	m := New("test-session")
	m.Attach(&fakeSource{trackID: "a", samples: constSamples(1000), ready: true})
	out := m.NextFrame()
	for _, v := range out {
		if v != 1000 {
			t.Fatalf("single-source mix changed value: got %d, want 1000", v)
		}
	}
}

func TestNextFrameAveragesNotSums(t *testing.T) {
	m := New("test-session")
	m.Attach(&fakeSource{trackID: "a", samples: constSamples(20000), ready: true})
	m.Attach(&fakeSource{trackID: "b", samples: constSamples(20000), ready: true})
	out := m.NextFrame()
	for _, v := range out {
		if v != 20000 {
			t.Fatalf("average of two equal 20000 sources = %d, want 20000 (not summed/clipped)", v)
		}
	}
}

func TestNextFrameClampsToInt16Range(t *testing.T) {
	m := New("test-session")
	m.Attach(&fakeSource{trackID: "a", samples: constSamples(32767), ready: true})
	m.Attach(&fakeSource{trackID: "b", samples: constSamples(32767), ready: true})
	out := m.NextFrame()
	for _, v := range out {
		if v > 32767 || v < -32768 {
			t.Fatalf("value out of int16 range: %d", v)
		}
	}
}

func TestNextFrameUnderrunSourceContributesZero(t *testing.T) {
	m := New("test-session")
	m.Attach(&fakeSource{trackID: "ready", samples: constSamples(960), ready: true})
	m.Attach(&fakeSource{trackID: "underrun", ready: false})
	out := m.NextFrame()
	// Divisor should be 1 (only the ready source counted), so the mix
	// equals the ready source's value unchanged.
	for _, v := range out {
		if v != 960 {
			t.Fatalf("got %d, want 960 (underrun source should not affect the divisor)", v)
		}
	}
}

func TestNextFrameBoundedByMaxSourceMagnitude(t *testing.T) {
	m := New("test-session")
	m.Attach(&fakeSource{trackID: "a", samples: constSamples(100), ready: true})
	m.Attach(&fakeSource{trackID: "b", samples: constSamples(-50), ready: true})
	out := m.NextFrame()
	for _, v := range out {
		if v > 100 || v < -100 {
			t.Fatalf("mixed value %d exceeds max source magnitude 100", v)
		}
	}
}
