package console

import (
	"context"
	"time"
)

// ProbeCount is the number of echo probes every ping sends
const ProbeCount = 4

// DefaultProbeInterval separates successive probes and the final summary
const DefaultProbeInterval = 500 * time.Millisecond

// Sink receives console output. It may be called several times per command.
type Sink func(lines []string)

// Reply is the synchronous result of one command.
// Stream is non-nil for commands that keep producing output over time.
type Reply struct {
	Lines  []string `json:"lines"`
	Clear  bool     `json:"clear,omitempty"`
	Stream *Stream  `json:"-"`
}

func say(l ...string) Reply {
	return Reply{Lines: l}
}

// Stream is a scripted probe sequence whose outcome was fixed when the command ran.
// Each Stream owns its lines, so concurrent runs do not share state.
type Stream struct {
	probes   []string
	summary  []string
	interval time.Duration
	finish   func() []string
}

func newStream(probe string, summary []string, interval time.Duration, finish func() []string) *Stream {
	probes := make([]string, ProbeCount)
	for i := range probes {
		probes[i] = probe
	}
	return &Stream{
		probes:   probes,
		summary:  summary,
		interval: interval,
		finish:   finish,
	}
}

// Probes returns the probe lines the stream will deliver, in order
func (s *Stream) Probes() []string {
	out := make([]string, len(s.probes))
	copy(out, s.probes)
	return out
}

// Run delivers each probe after one interval, then the summary after one more.
// Every sink call completes before the next wait begins. If ctx is cancelled
// Run stops before the next delivery and returns ctx.Err(); lines already
// delivered are never retracted or reordered.
func (s *Stream) Run(ctx context.Context, sink Sink) error {
	for _, probe := range s.probes {
		if err := wait(ctx, s.interval); err != nil {
			return err
		}
		sink([]string{probe})
	}

	if err := wait(ctx, s.interval); err != nil {
		return err
	}
	summary := s.summary
	if s.finish != nil {
		summary = append(append([]string{}, summary...), s.finish()...)
	}
	sink(summary)
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
