package media

// resampler performs continuous (stateful) linear-interpolation resampling
// of interleaved stereo int16 PCM from an arbitrary source rate to
// targetRate. Statefulness across calls — carrying the fractional source
// position and the last input frame forward — means a transient source
// rate change does not reset interpolation state, avoiding an audible
// click at the seam.
//
// No resampling library appears anywhere in the retrieval pack's
// dependency graphs (see DESIGN.md), so this is implemented directly.
type resampler struct {
	targetRate int

	srcRate  int
	pos      float64 // fractional read position into the pending input, in source frames
	haveTail bool
	tailL    int16
	tailR    int16
}

func newResampler(targetRate int) *resampler {
	return &resampler{targetRate: targetRate}
}

// Resample converts interleaved stereo int16 input at srcRate into
// interleaved stereo int16 output at r.targetRate. The last frame of the
// previous call is prepended as the interpolation's starting anchor, so
// the output is continuous across chunk boundaries instead of restarting
// cold at each call.
func (r *resampler) Resample(input []int16, srcRate int) []int16 {
	if srcRate <= 0 || len(input) == 0 {
		return nil
	}
	if srcRate != r.srcRate {
		// A different source rate makes the carried tail meaningless as
		// an interpolation anchor for the new rate.
		r.srcRate = srcRate
		r.pos = 0
		r.haveTail = false
	}

	src := input
	if r.haveTail {
		src = make([]int16, 0, len(input)+2)
		src = append(src, r.tailL, r.tailR)
		src = append(src, input...)
	}

	frames := len(src) / 2
	ratio := float64(srcRate) / float64(r.targetRate)

	var out []int16
	pos := r.pos
	for {
		i0 := int(pos)
		if i0 > frames-1 {
			break
		}
		frac := pos - float64(i0)
		if i0 == frames-1 {
			// The last frame has no successor yet: it is emitted only when
			// the read position lands on it exactly.
			if frac > 0 {
				break
			}
			out = append(out, src[2*i0], src[2*i0+1])
			pos += ratio
			continue
		}
		l0, r0 := src[2*i0], src[2*i0+1]
		l1, r1 := src[2*i0+2], src[2*i0+3]
		l := lerp(l0, l1, frac)
		rr := lerp(r0, r1, frac)
		out = append(out, l, rr)
		pos += ratio
	}
	// Carry the read position forward, re-based so that this call's last
	// frame (the next call's anchor at index 0) is position 0, so the next
	// call picks up exactly where this one left off instead of restarting
	// at a source-frame boundary.
	if frames > 0 {
		r.pos = pos - float64(frames-1)
		r.tailL, r.tailR = src[2*(frames-1)], src[2*(frames-1)+1]
		r.haveTail = true
	}
	return out
}

func lerp(a, b int16, frac float64) int16 {
	v := float64(a) + (float64(b)-float64(a))*frac
	if v > 32767 {
		v = 32767
	}
	if v < -32768 {
		v = -32768
	}
	return int16(v)
}
