package compositor

import "github.com/classcore/classcore/internal/media"

// scaleInto bilinearly resamples src into dst's Y/Cb/Cr planes at
// (dstX,dstY) with size (dstW,dstH). Callers keep dstW even, and letterbox
// also keeps dstH even; a PiP tile height or a centering offset can be odd,
// in which case the chroma rectangle is rounded down onto the
// half-resolution grid.
//
// No third-party image-scaling library appears anywhere in the retrieval
// pack's dependency graphs (see DESIGN.md); this is implemented directly
// against YUV420P byte planes, which a general-purpose imaging library
// would not operate on natively anyway.
func scaleInto(dst, src *media.VideoFrame, dstX, dstY, dstW, dstH int) {
	scalePlane(dst.Y(), dst.Width, dst.Height, dstX, dstY, dstW, dstH,
		src.Y(), src.Width, src.Height)

	cdx, cdy, cdw, cdh := dstX/2, dstY/2, dstW/2, dstH/2
	cw, ch := dst.Width/2, dst.Height/2
	scw, sch := src.Width/2, src.Height/2
	scalePlane(dst.Cb(), cw, ch, cdx, cdy, cdw, cdh, src.Cb(), scw, sch)
	scalePlane(dst.Cr(), cw, ch, cdx, cdy, cdw, cdh, src.Cr(), scw, sch)
}

// scalePlane bilinearly resamples one single-byte-per-pixel plane from
// srcW x srcH into a dstW x dstH rect of a dstPlaneW x dstPlaneH plane at
// offset (dstX,dstY).
func scalePlane(dstPlane []byte, dstPlaneW, dstPlaneH, dstX, dstY, dstW, dstH int, srcPlane []byte, srcW, srcH int) {
	if dstW <= 0 || dstH <= 0 || srcW <= 0 || srcH <= 0 {
		return
	}
	xRatio := float64(srcW) / float64(dstW)
	yRatio := float64(srcH) / float64(dstH)

	for y := 0; y < dstH; y++ {
		py := dstY + y
		if py < 0 || py >= dstPlaneH {
			continue
		}
		srcYf := float64(y) * yRatio
		y0 := int(srcYf)
		y1 := clampInt(y0+1, 0, srcH-1)
		fy := srcYf - float64(y0)

		for x := 0; x < dstW; x++ {
			px := dstX + x
			if px < 0 || px >= dstPlaneW {
				continue
			}
			srcXf := float64(x) * xRatio
			x0 := int(srcXf)
			x1 := clampInt(x0+1, 0, srcW-1)
			fx := srcXf - float64(x0)

			p00 := float64(srcPlane[y0*srcW+x0])
			p10 := float64(srcPlane[y0*srcW+x1])
			p01 := float64(srcPlane[y1*srcW+x0])
			p11 := float64(srcPlane[y1*srcW+x1])

			top := p00 + (p10-p00)*fx
			bot := p01 + (p11-p01)*fx
			val := top + (bot-top)*fy

			dstPlane[py*dstPlaneW+px] = byte(val + 0.5)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
