package worker_test

import (
	"sync/atomic"
	"testing"

	"github.com/fengtai-hotel/shuttle-reservation/internal/worker"
)

func TestPoolRunsAllJobs(t *testing.T) {
	p := worker.NewPool(4, 16)
	var n atomic.Int64
	for i := 0; i < 100; i++ {
		p.Submit(func() { n.Add(1) })
	}
	p.Close()
	if n.Load() != 100 {
		t.Errorf("expected 100 jobs run, got %d", n.Load())
	}
}

func TestPoolBoundedConcurrency(t *testing.T) {
	p := worker.NewPool(2, 4)
	var cur, peak atomic.Int64
	for i := 0; i < 20; i++ {
		p.Submit(func() {
			c := cur.Add(1)
			for {
				old := peak.Load()
				if c <= old || peak.CompareAndSwap(old, c) {
					break
				}
			}
			cur.Add(-1)
		})
	}
	p.Close()
	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent jobs, saw %d", peak.Load())
	}
}
