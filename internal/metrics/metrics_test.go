package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestSanitizeSite verifies host extraction for metric labels.
func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard https", "https://Imagenes.ElPais.com/x.jpg", "imagenes.elpais.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

// TestSessionLifecycleMetrics verifies session counters and the active gauge.
func TestSessionLifecycleMetrics(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(sessionsTotal.WithLabelValues("safari", "passed"))
	gauge := testutil.ToFloat64(activeSessions)

	SessionStarted()
	if got := testutil.ToFloat64(activeSessions); got != gauge+1 {
		t.Fatalf("expected active sessions %v, got %v", gauge+1, got)
	}
	SessionFinished("safari", "passed", 3, 2*time.Second)

	if got := testutil.ToFloat64(activeSessions); got != gauge {
		t.Fatalf("expected active sessions back to %v, got %v", gauge, got)
	}
	if got := testutil.ToFloat64(sessionsTotal.WithLabelValues("safari", "passed")); got != before+1 {
		t.Fatalf("expected session counter %v, got %v", before+1, got)
	}
}

// TestFieldAndImageCounters verifies fallback and download counters.
func TestFieldAndImageCounters(t *testing.T) {
	Init()

	before := testutil.ToFloat64(fieldFallbacksTotal.WithLabelValues("title"))
	ObserveFieldFallback("title")
	if got := testutil.ToFloat64(fieldFallbacksTotal.WithLabelValues("title")); got != before+1 {
		t.Fatalf("expected fallback counter %v, got %v", before+1, got)
	}

	ObserveImageDownload("https://img.example.com/a.jpg", "ok")
	if got := testutil.ToFloat64(imageDownloadsTotal.WithLabelValues("img.example.com", "ok")); got < 1 {
		t.Fatalf("expected image counter >= 1, got %v", got)
	}
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://elpais.com/opinion/", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
