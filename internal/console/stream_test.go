package console

import (
	"context"
	"errors"
	"testing"
	"time"
)

// collect runs the reply's stream and returns every streamed batch
func collect(t *testing.T, reply Reply) [][]string {
	t.Helper()
	if reply.Stream == nil {
		t.Fatal("expected a stream")
	}
	var batches [][]string
	if err := reply.Stream.Run(context.Background(), func(l []string) {
		batches = append(batches, l)
	}); err != nil {
		t.Fatalf("stream run: %v", err)
	}
	return batches
}

func TestStreamRunOrder(t *testing.T) {
	finished := 0
	s := newStream("probe", []string{"summary"}, 0, func() []string {
		finished++
		return []string{"extra"}
	})

	batches := collect(t, Reply{Stream: s})
	if len(batches) != ProbeCount+1 {
		t.Fatalf("expected %d batches, got %d", ProbeCount+1, len(batches))
	}
	for i := 0; i < ProbeCount; i++ {
		if len(batches[i]) != 1 || batches[i][0] != "probe" {
			t.Errorf("batch %d = %v, want [probe]", i, batches[i])
		}
	}
	last := batches[ProbeCount]
	if len(last) != 2 || last[0] != "summary" || last[1] != "extra" {
		t.Errorf("summary batch = %v", last)
	}
	if finished != 1 {
		t.Errorf("expected finish to run once, ran %d times", finished)
	}
}

func TestStreamRunTiming(t *testing.T) {
	interval := 5 * time.Millisecond
	s := newStream("probe", []string{"summary"}, interval, nil)

	var stamps []time.Time
	start := time.Now()
	if err := s.Run(context.Background(), func([]string) {
		stamps = append(stamps, time.Now())
	}); err != nil {
		t.Fatalf("stream run: %v", err)
	}

	if len(stamps) != ProbeCount+1 {
		t.Fatalf("expected %d deliveries, got %d", ProbeCount+1, len(stamps))
	}
	for i, ts := range stamps {
		want := time.Duration(i+1) * interval
		if ts.Sub(start) < want {
			t.Errorf("delivery %d after %v, want at least %v", i, ts.Sub(start), want)
		}
	}
}

func TestStreamRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newStream("probe", []string{"summary"}, 0, func() []string {
		t.Error("finish must not run after cancellation")
		return nil
	})

	var got []string
	err := s.Run(ctx, func(l []string) {
		got = append(got, l...)
		if len(got) == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected delivery to stop after 2 probes, got %v", got)
	}
}

func TestStreamProbesIsACopy(t *testing.T) {
	s := newStream("probe", nil, 0, nil)
	p := s.Probes()
	p[0] = "changed"
	if s.Probes()[0] != "probe" {
		t.Error("expected Probes to return a copy")
	}
}
