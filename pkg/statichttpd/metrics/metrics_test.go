package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/yourusername/statichttpd/pkg/statichttpd/cache"
)

type fakeSessionCounter struct{ n int }

func (f fakeSessionCounter) SessionCount() int { return f.n }

func collectAll(t *testing.T, c *Collector) map[string]*dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 16)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	out := make(map[string]*dto.Metric)
	for m := range ch {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		out[m.Desc().String()] = &pb
	}
	return out
}

func TestCollectorReportsLiveCacheState(t *testing.T) {
	c := cache.New(1024, cache.WithReadFile(func(string) ([]byte, error) {
		return make([]byte, 100), nil
	}))
	if _, _, err := c.Acquire("/a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	coll := New(c, fakeSessionCounter{n: 2})
	metricsOut := collectAll(t, coll)

	if len(metricsOut) != 5 {
		t.Fatalf("Collect emitted %d metrics, want 5", len(metricsOut))
	}

	var foundSize, foundSessions bool
	for _, m := range metricsOut {
		if m.Gauge != nil && m.Gauge.GetValue() == 100 {
			foundSize = true
		}
		if m.Gauge != nil && m.Gauge.GetValue() == 2 {
			foundSessions = true
		}
	}
	if !foundSize {
		t.Fatal("no gauge reported the 100-byte cache size")
	}
	if !foundSessions {
		t.Fatal("no gauge reported the 2 active sessions")
	}
}

func TestCollectorSkipsNilEngine(t *testing.T) {
	c := cache.New(1024)
	coll := New(c, nil)
	metricsOut := collectAll(t, coll)
	if len(metricsOut) != 4 {
		t.Fatalf("Collect emitted %d metrics with nil engine, want 4", len(metricsOut))
	}
}

func TestDescribeEmitsAllFiveDescs(t *testing.T) {
	coll := New(cache.New(1024), fakeSessionCounter{})
	ch := make(chan *prometheus.Desc, 16)
	go func() {
		coll.Describe(ch)
		close(ch)
	}()
	count := 0
	for range ch {
		count++
	}
	if count != 5 {
		t.Fatalf("Describe emitted %d descs, want 5", count)
	}
}
