package pipeline

import (
	"context"
	"time"

	"github.com/gogpu/bloom"
)

// Scheduler paces the frame loop.
type Scheduler interface {
	// Next blocks until the next frame is due and returns its animation
	// time. It returns false when no more frames should be rendered.
	Next(ctx context.Context) (time.Duration, bool)
}

// Run renders frames until the scheduler stops or ctx is cancelled. It
// returns the first frame error, ctx.Err() after cancellation, or nil when
// the scheduler ran out of frames.
func (c *PipelineContext) Run(ctx context.Context, s Scheduler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := s.Next(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			bloom.Logger().Info("pipeline: scheduler finished", "frames", c.frames)
			return nil
		}
		if err := c.RenderFrame(t); err != nil {
			return err
		}
	}
}

// TickerScheduler paces frames with a wall-clock ticker. Animation time is
// the wall time since the first frame.
type TickerScheduler struct {
	ticker *time.Ticker
	limit  int
	count  int
	start  time.Time
}

// NewTickerScheduler ticks every interval. limit > 0 stops after that
// many frames. Call Stop when done.
func NewTickerScheduler(interval time.Duration, limit int) *TickerScheduler {
	return &TickerScheduler{ticker: time.NewTicker(interval), limit: limit}
}

// Next implements Scheduler. The first frame is due immediately.
func (s *TickerScheduler) Next(ctx context.Context) (time.Duration, bool) {
	if s.limit > 0 && s.count >= s.limit {
		return 0, false
	}
	if s.count == 0 {
		s.start = time.Now()
	} else {
		select {
		case <-ctx.Done():
			return 0, false
		case <-s.ticker.C:
		}
	}
	s.count++
	return time.Since(s.start), true
}

// Stop releases the ticker.
func (s *TickerScheduler) Stop() {
	s.ticker.Stop()
}

// StepScheduler yields frames back to back with animation time advancing
// by a fixed step. Headless capture uses it for reproducible frames.
type StepScheduler struct {
	Step   time.Duration
	Frames int
	count  int
}

// Next implements Scheduler.
func (s *StepScheduler) Next(ctx context.Context) (time.Duration, bool) {
	if ctx.Err() != nil || (s.Frames > 0 && s.count >= s.Frames) {
		return 0, false
	}
	t := time.Duration(s.count) * s.Step
	s.count++
	return t, true
}
