package media

// stereoRing is a bounded FIFO of interleaved stereo int16 samples. It
// backs each AudioSource's per-source buffer: bounded to maxFrames
// worth of audio, oldest samples dropped on overflow.
type stereoRing struct {
	buf       []int16 // interleaved L,R,L,R...
	maxFrames int
}

func newStereoRing(maxFrames int) *stereoRing {
	return &stereoRing{maxFrames: maxFrames}
}

// Push appends frames worth of interleaved stereo samples, dropping the
// oldest frames if the buffer would exceed its capacity.
func (r *stereoRing) Push(samples []int16) {
	r.buf = append(r.buf, samples...)
	maxSamples := r.maxFrames * 2
	if len(r.buf) > maxSamples {
		drop := len(r.buf) - maxSamples
		r.buf = r.buf[drop:]
	}
}

// Frames reports how many complete stereo frames are currently buffered.
func (r *stereoRing) Frames() int { return len(r.buf) / 2 }

// TryTake removes and returns exactly n stereo frames if n are available;
// otherwise it leaves the buffer untouched and returns ok=false, upholding
// the underrun policy that a partial buffer is preserved for the next tick.
func (r *stereoRing) TryTake(n int) (samples []int16, ok bool) {
	need := n * 2
	if len(r.buf) < need {
		return nil, false
	}
	out := make([]int16, need)
	copy(out, r.buf[:need])
	r.buf = r.buf[need:]
	return out, true
}
