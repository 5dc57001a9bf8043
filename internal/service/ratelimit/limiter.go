package ratelimit

import (
	"sync"
	"time"

	"github.com/padalah/interviewflow/internal/metrics"
)

// Category separates independently limited kinds of traffic.
type Category string

const (
	// CategoryRequest covers HTTP requests and JSON channel frames.
	CategoryRequest Category = "request"
	// CategoryAudioChunk covers raw binary audio frames on the channel.
	CategoryAudioChunk Category = "audio_chunk"
)

// Window is the sliding admission window.
const Window = time.Minute

type key struct {
	client   string
	category Category
}

// Limiter implements sliding-window admission control. Each (client, category)
// pair holds the timestamps admitted within the last Window; entries are
// pruned lazily on every check. Denial never records a timestamp, so a
// rejected caller does not push its own recovery further out.
type Limiter struct {
	mu      sync.Mutex
	limits  map[Category]int
	windows map[key][]time.Time

	now func() time.Time
}

// NewLimiter creates a limiter with per-minute limits for the two categories.
func NewLimiter(requestLimit, audioChunkLimit int) *Limiter {
	return &Limiter{
		limits: map[Category]int{
			CategoryRequest:    requestLimit,
			CategoryAudioChunk: audioChunkLimit,
		},
		windows: make(map[key][]time.Time),
		now:     time.Now,
	}
}

// Allow decides admission for one event from clientKey under category. An
// admitted event is recorded in the window as a side effect.
func (l *Limiter) Allow(clientKey string, category Category) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[category]
	if !ok || limit <= 0 {
		metrics.RateLimitDenials.WithLabelValues(string(category)).Inc()
		return false
	}

	k := key{client: clientKey, category: category}
	now := l.now()
	window := prune(l.windows[k], now)

	if len(window) >= limit {
		l.setWindow(k, window)
		metrics.RateLimitDenials.WithLabelValues(string(category)).Inc()
		return false
	}

	l.windows[k] = append(window, now)
	return true
}

// WindowSize reports how many admissions are currently recorded for the pair.
func (l *Limiter) WindowSize(clientKey string, category Category) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{client: clientKey, category: category}
	window := prune(l.windows[k], l.now())
	l.setWindow(k, window)
	return len(window)
}

// setWindow stores a pruned window, dropping the map entry entirely when
// nothing is left in it so stale clients do not accumulate.
func (l *Limiter) setWindow(k key, window []time.Time) {
	if len(window) == 0 {
		delete(l.windows, k)
		return
	}
	l.windows[k] = window
}

// prune drops timestamps that fell out of the sliding window. The slice is
// kept in arrival order, so the first still-fresh entry marks the cut.
func prune(window []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-Window)
	i := 0
	for i < len(window) && !window[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return window
	}
	return append(window[:0:0], window[i:]...)
}
