// Package media models the decoded inputs to the compositor and mixer:
// VideoSource and AudioSource wrap one inbound WebRTC track each, owned
// exclusively by the RecordingSession that created them.
package media

import "time"

// PixelFormat identifies the layout of VideoFrame.Pixels. The compositor
// only ever produces and consumes YUV420P.
type PixelFormat int

const (
	// YUV420P: Y plane at full resolution, Cb/Cr planes at half resolution
	// in both dimensions, BT.601 studio-range coefficients.
	YUV420P PixelFormat = iota
)

// VideoFrame is an immutable decoded video image.
type VideoFrame struct {
	Width, Height int
	Format        PixelFormat
	// Pixels holds Y, then Cb, then Cr planes concatenated with no padding.
	Pixels    []byte
	Timestamp time.Time
}

// YSize returns the byte length of the Y plane.
func (f *VideoFrame) YSize() int { return f.Width * f.Height }

// CSize returns the byte length of each chroma plane.
func (f *VideoFrame) CSize() int { return (f.Width / 2) * (f.Height / 2) }

// Y, Cb, Cr return slices into the frame's underlying plane data.
func (f *VideoFrame) Y() []byte  { return f.Pixels[:f.YSize()] }
func (f *VideoFrame) Cb() []byte { return f.Pixels[f.YSize() : f.YSize()+f.CSize()] }
func (f *VideoFrame) Cr() []byte { return f.Pixels[f.YSize()+f.CSize():] }

// NewFrame allocates a zeroed YUV420P frame of the given dimensions. Width
// and height must be even.
func NewFrame(width, height int) *VideoFrame {
	return &VideoFrame{
		Width:  width,
		Height: height,
		Format: YUV420P,
		Pixels: make([]byte, width*height+2*(width/2)*(height/2)),
	}
}

// FillBlack sets every plane to studio-range black (Y=16, Cb=Cr=128), the
// BT.601/709 convention used throughout broadcast and streaming pipelines.
func (f *VideoFrame) FillBlack() {
	y := f.Y()
	for i := range y {
		y[i] = 16
	}
	cb, cr := f.Cb(), f.Cr()
	for i := range cb {
		cb[i] = 128
		cr[i] = 128
	}
}

// VideoDecoder turns one access unit (a complete encoded video frame,
// already reassembled from RTP packets) into a decoded image. Concrete
// decoders (VP8, H.264) are supplied by the process that wires up a
// RecordingSession; none ship in this module — see DESIGN.md.
type VideoDecoder interface {
	Decode(accessUnit []byte) (frame *VideoFrame, keyframe bool, err error)
}

// AudioDecoder turns one RTP payload into interleaved PCM samples at the
// codec's native rate and channel count. The Opus decoder itself is a
// collaborator supplied by the wiring layer — see DESIGN.md.
type AudioDecoder interface {
	Decode(payload []byte) (pcm []int16, channels int, sampleRate int, err error)
}
