package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/acegen/internal/shared"
)

type fakeCache struct {
	entries  map[string]bool
	getCalls int
	records  map[string]bool
	details  map[string]string
}

func (f *fakeCache) GetFresh(infohash string, maxAge time.Duration) (bool, bool, error) {
	f.getCalls++
	alive, ok := f.entries[infohash]
	return alive, ok, nil
}

func (f *fakeCache) Record(infohash string, alive bool, detail string) error {
	if f.records == nil {
		f.records = make(map[string]bool)
		f.details = make(map[string]string)
	}
	f.records[infohash] = alive
	f.details[infohash] = detail
	return nil
}

// nullPackets returns n MPEG-TS null packets (sync byte, PID 0x1fff, payload
// only).
func nullPackets(n int) []byte {
	out := make([]byte, 0, n*tsPacketLen)
	for i := 0; i < n; i++ {
		pkt := make([]byte, tsPacketLen)
		pkt[0] = 0x47
		pkt[1] = 0x1f
		pkt[2] = 0xff
		pkt[3] = 0x10
		for j := 4; j < tsPacketLen; j++ {
			pkt[j] = 0xff
		}
		out = append(out, pkt...)
	}
	return out
}

func TestCheckerIsAvailable(t *testing.T) {
	checker := NewChecker(nil, nil, shared.NewLogger(io.Discard))

	t.Run("Alive Source", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(nullPackets(10))
		}))
		defer server.Close()

		if err := checker.IsAvailable(context.Background(), server.URL, time.Second, false); err != nil {
			t.Errorf("IsAvailable = %v, want nil", err)
		}
	})

	t.Run("HTTP Error Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		err := checker.IsAvailable(context.Background(), server.URL, time.Second, false)
		if err == nil || !strings.Contains(err.Error(), "responded with status") {
			t.Errorf("IsAvailable = %v, want status failure", err)
		}
	})

	t.Run("Empty Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		if err := checker.IsAvailable(context.Background(), server.URL, time.Second, false); err == nil {
			t.Error("IsAvailable = nil, want failure for empty body")
		}
	})

	t.Run("Unreachable Host", func(t *testing.T) {
		err := checker.IsAvailable(context.Background(), "http://127.0.0.1:1", 100*time.Millisecond, false)
		if err == nil || !strings.Contains(err.Error(), "failed to execute request") {
			t.Errorf("IsAvailable = %v, want request failure", err)
		}
	})

	t.Run("MPEG-TS Probe Accepts Transport Stream", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(nullPackets(10))
		}))
		defer server.Close()

		if err := checker.IsAvailable(context.Background(), server.URL, time.Second, true); err != nil {
			t.Errorf("IsAvailable = %v, want nil for valid transport stream", err)
		}
	})

	t.Run("MPEG-TS Probe Rejects Other Content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(strings.Repeat("<html>not a stream</html>", 80)))
		}))
		defer server.Close()

		err := checker.IsAvailable(context.Background(), server.URL, time.Second, true)
		if err == nil || !strings.Contains(err.Error(), "failed to parse MPEG-TS packet") {
			t.Errorf("IsAvailable = %v, want MPEG-TS parse failure", err)
		}
	})
}

func TestCheckerCheckAll(t *testing.T) {
	t.Run("Probes All Links", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if strings.HasSuffix(r.URL.Path, "/dead") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(nullPackets(1))
		}))
		defer server.Close()

		checker := NewChecker(nil, nil, shared.NewLogger(io.Discard))
		links := map[string]string{
			"aaa": server.URL + "/aaa",
			"bbb": server.URL + "/bbb",
			"ccc": server.URL + "/dead",
		}

		outcomes, err := checker.CheckAll(context.Background(), links, CheckOptions{Timeout: time.Second, RateLimit: 1000})
		if err != nil {
			t.Fatalf("CheckAll failed: %v", err)
		}

		if hits.Load() != 3 {
			t.Errorf("expected 3 probes, got %d", hits.Load())
		}
		if outcomes["aaa"] != nil || outcomes["bbb"] != nil {
			t.Errorf("expected live sources, got %v / %v", outcomes["aaa"], outcomes["bbb"])
		}
		if outcomes["ccc"] == nil {
			t.Error("expected dead source outcome for ccc")
		}
	})

	t.Run("Reuses Fresh Cache", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Write(nullPackets(1))
		}))
		defer server.Close()

		cache := &fakeCache{entries: map[string]bool{"aaa": true, "bbb": false}}
		checker := NewChecker(nil, cache, shared.NewLogger(io.Discard))
		links := map[string]string{
			"aaa": server.URL + "/aaa",
			"bbb": server.URL + "/bbb",
		}

		outcomes, err := checker.CheckAll(context.Background(), links, CheckOptions{Timeout: time.Second, MaxAge: time.Hour, RateLimit: 1000})
		if err != nil {
			t.Fatalf("CheckAll failed: %v", err)
		}

		if hits.Load() != 0 {
			t.Errorf("expected no probes with a warm cache, got %d", hits.Load())
		}
		if outcomes["aaa"] != nil {
			t.Errorf("cached live source reported dead: %v", outcomes["aaa"])
		}
		if outcomes["bbb"] == nil || !strings.Contains(outcomes["bbb"].Error(), "cached") {
			t.Errorf("outcome for bbb = %v, want cached unavailability", outcomes["bbb"])
		}
	})

	t.Run("Records Outcomes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/dead") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(nullPackets(1))
		}))
		defer server.Close()

		cache := &fakeCache{}
		checker := NewChecker(nil, cache, shared.NewLogger(io.Discard))
		links := map[string]string{
			"aaa": server.URL + "/aaa",
			"bbb": server.URL + "/dead",
		}

		if _, err := checker.CheckAll(context.Background(), links, CheckOptions{Timeout: time.Second, MaxAge: time.Hour, RateLimit: 1000}); err != nil {
			t.Fatalf("CheckAll failed: %v", err)
		}

		if alive, ok := cache.records["aaa"]; !ok || !alive {
			t.Errorf("expected aaa recorded alive, got %v (present %v)", alive, ok)
		}
		if alive, ok := cache.records["bbb"]; !ok || alive {
			t.Errorf("expected bbb recorded dead, got %v (present %v)", alive, ok)
		}
		if !strings.Contains(cache.details["bbb"], "status") {
			t.Errorf("expected failure detail for bbb, got %q", cache.details["bbb"])
		}
	})

	t.Run("Skips Cache Without MaxAge", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Write(nullPackets(1))
		}))
		defer server.Close()

		cache := &fakeCache{entries: map[string]bool{"aaa": true}}
		checker := NewChecker(nil, cache, shared.NewLogger(io.Discard))
		links := map[string]string{"aaa": server.URL + "/aaa"}

		if _, err := checker.CheckAll(context.Background(), links, CheckOptions{Timeout: time.Second, RateLimit: 1000}); err != nil {
			t.Fatalf("CheckAll failed: %v", err)
		}

		if cache.getCalls != 0 {
			t.Errorf("expected cache to be bypassed, got %d lookups", cache.getCalls)
		}
		if hits.Load() != 1 {
			t.Errorf("expected the source to be probed, got %d probes", hits.Load())
		}
	})

	t.Run("Empty Links", func(t *testing.T) {
		checker := NewChecker(nil, nil, shared.NewLogger(io.Discard))

		outcomes, err := checker.CheckAll(context.Background(), nil, CheckOptions{})
		if err != nil {
			t.Fatalf("CheckAll failed: %v", err)
		}
		if len(outcomes) != 0 {
			t.Errorf("expected no outcomes, got %d", len(outcomes))
		}
	})
}
