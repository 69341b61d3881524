package httpds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func noWait(c *Client) *Client {
	c.wait = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c
}

/*
TestGet_RetriesTransientThenSucceeds verifies that 503 and 429 answers are
retried and the body of the first 200 is returned.
*/
func TestGet_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			if r.Header.Get("User-Agent") != "lifeexp" {
				t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
			}
			_, _ = io.WriteString(w, "country,year,value\n")
		}
	}))
	defer srv.Close()

	c := noWait(NewClient(Config{MaxRetries: 3, Header: http.Header{"User-Agent": {"lifeexp"}}}))
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer body.Close()

	b, _ := io.ReadAll(body)
	if string(b) != "country,year,value\n" {
		t.Fatalf("body = %q", b)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestGet_StopsAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := noWait(NewClient(Config{MaxRetries: 2})).Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestGet_NonRetryableStatus(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := noWait(NewClient(Config{MaxRetries: 5})).Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("hits = %d, want 1", got)
	}
}

func TestGet_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(Config{}).Get(ctx, "http://127.0.0.1:1/x.tsv")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	initial, max := 100*time.Millisecond, time.Second
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{40, time.Second},
	}
	for _, tt := range tests {
		if got := backoffDuration(initial, tt.retry, max); got != tt.want {
			t.Errorf("backoffDuration(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestSourceName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://example.org/data/estat_demo.tsv?lang=en", "/data/estat_demo.tsv"},
		{"https://example.org", "https://example.org"},
	}
	for _, tt := range tests {
		if got := NewSource(nil, tt.url).Name(); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	for s, want := range map[string]bool{
		"https://example.org/x.tsv": true,
		"http://localhost:8080/a":   true,
		"data/raw.tsv":              false,
		"file:///tmp/raw.tsv":       false,
		"C:\\data\\raw.tsv":         false,
	} {
		if got := IsURL(s); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", s, got, want)
		}
	}
}
