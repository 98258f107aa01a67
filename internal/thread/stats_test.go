package thread

import (
	"testing"
	"time"
)

func TestComputeStatsEmpty(t *testing.T) {
	s := ComputeStats(0, nil)
	if s.TotalThreads != 0 || s.AverageThreadSize != 0 || s.CompressionRatio != 0 {
		t.Errorf("empty stats should be zero-valued, got %+v", s)
	}
}

func TestComputeStats(t *testing.T) {
	threads := detect(t, DefaultConfig(),
		msg(1, "alice", 0),
		msg(2, "alice", 30*time.Second),
		msg(3, "alice", 1*time.Minute),
		msg(4, "bob", 20*time.Minute),
		msg(5, "carol", 40*time.Minute),
	)
	s := ComputeStats(5, threads)

	if s.TotalThreads != 3 {
		t.Fatalf("expected 3 threads, got %d", s.TotalThreads)
	}
	if s.SingleMessageThreads != 2 {
		t.Errorf("single-message threads = %d, want 2", s.SingleMessageThreads)
	}
	if s.MultiMessageThreads != 1 {
		t.Errorf("multi-message threads = %d, want 1", s.MultiMessageThreads)
	}
	if s.LargestThread != 3 {
		t.Errorf("largest thread = %d, want 3", s.LargestThread)
	}
	if want := 5.0 / 3.0; s.AverageThreadSize != want {
		t.Errorf("average thread size = %f, want %f", s.AverageThreadSize, want)
	}
	if want := 5.0 / 3.0; s.CompressionRatio != want {
		t.Errorf("compression ratio = %f, want %f", s.CompressionRatio, want)
	}
}

func TestThreadDuration(t *testing.T) {
	threads := detect(t, DefaultConfig(),
		msg(1, "alice", 0),
		msg(2, "alice", 90*time.Second),
	)
	if d := threads[0].Duration(); d != 90*time.Second {
		t.Errorf("duration = %v, want 90s", d)
	}
}
