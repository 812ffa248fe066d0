// Package clock generates the deadline-based tick streams that drive the
// video compositor and audio mixer. Ticks are scheduled from session start
// plus tick index, never from the previous tick's actual wake time, so
// per-tick scheduling jitter never accumulates into long-run drift.
package clock

import (
	"context"
	"time"
)

// Tick identifies one scheduled output frame.
type Tick struct {
	// Index is the monotonically increasing tick counter, starting at 0.
	Index uint64
	// Deadline is the wall-clock instant this tick was scheduled for.
	Deadline time.Time
}

// FrameClock emits Video ticks at VideoInterval and Audio ticks at
// AudioInterval, both anchored to a single start time.
type FrameClock struct {
	start         time.Time
	videoInterval time.Duration
	audioInterval time.Duration

	videoCh chan Tick
	audioCh chan Tick
}

// New constructs a FrameClock. videoHz is the target video tick rate
// (spec default 30); audioMs is the audio frame duration in milliseconds
// (spec default 20, i.e. 960 samples at 48kHz).
func New(videoHz int, audioMs int) *FrameClock {
	return &FrameClock{
		videoInterval: time.Second / time.Duration(videoHz),
		audioInterval: time.Duration(audioMs) * time.Millisecond,
		videoCh:       make(chan Tick, 1),
		audioCh:       make(chan Tick, 1),
	}
}

// Video returns the channel of video ticks. Exactly one tick is sent per
// interval; a slow consumer causes subsequent ticks to queue up to the
// channel's buffer of 1 before the clock blocks, which is how the
// compositor's "one frame per tick" obligation is enforced upstream.
func (c *FrameClock) Video() <-chan Tick { return c.videoCh }

// Audio returns the channel of audio pacemaker ticks.
func (c *FrameClock) Audio() <-chan Tick { return c.audioCh }

// Run drives both tick streams from ctx's start until ctx is cancelled.
// It must be called exactly once, typically from the session's
// peer-connection task's owning goroutine tree.
func (c *FrameClock) Run(ctx context.Context) {
	c.start = time.Now()
	go c.runStream(ctx, c.videoCh, c.videoInterval)
	go c.runStream(ctx, c.audioCh, c.audioInterval)
}

// runStream sleeps until start+interval*index for each index in turn,
// rather than accumulating interval durations, so a late wakeup on one
// tick does not push every subsequent tick later by the same amount.
func (c *FrameClock) runStream(ctx context.Context, out chan<- Tick, interval time.Duration) {
	defer close(out)
	var index uint64
	for {
		deadline := c.start.Add(interval * time.Duration(index))
		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			select {
			case out <- Tick{Index: index, Deadline: deadline}:
			case <-ctx.Done():
				return
			}
			index++
		}
	}
}
