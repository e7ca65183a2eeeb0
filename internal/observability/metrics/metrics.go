package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory metrics counters and gauges for HTTP requests,
// torrent lifecycle events, request fills, peer ban activity, and email
// delivery outcomes. It coordinates concurrent writers via a RWMutex while
// exposing a thread-safe gauge for active session tracking.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	torrentEvents   map[string]uint64
	requestEvents   map[string]uint64
	banEvents       map[string]uint64
	emailEvents     map[string]uint64
	activeSessions  atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers can
// immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		torrentEvents:   make(map[string]uint64),
		requestEvents:   make(map[string]uint64),
		banEvents:       make(map[string]uint64),
		emailEvents:     make(map[string]uint64),
	}
}

// Default returns the singleton Recorder instance shared across helper
// functions for packages that do not require custom instrumentation pipelines.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveTorrentEvent records a torrent lifecycle event such as "upload",
// "approve", "reject", or "delete".
func (r *Recorder) ObserveTorrentEvent(event string) {
	name := normalizeName(event)
	r.mu.Lock()
	r.torrentEvents[name]++
	r.mu.Unlock()
}

// ObserveRequestEvent records a content request transition such as "open",
// "fill", "close", or "reject".
func (r *Recorder) ObserveRequestEvent(event string) {
	name := normalizeName(event)
	r.mu.Lock()
	r.requestEvents[name]++
	r.mu.Unlock()
}

// ObservePeerBanEvent records a peer ban action such as "create" or "remove".
func (r *Recorder) ObservePeerBanEvent(event string) {
	name := normalizeName(event)
	r.mu.Lock()
	r.banEvents[name]++
	r.mu.Unlock()
}

// ObserveEmailEvent records an outbound email outcome such as "queued",
// "delivered", or "failed".
func (r *Recorder) ObserveEmailEvent(event string) {
	name := normalizeName(event)
	r.mu.Lock()
	r.emailEvents[name]++
	r.mu.Unlock()
}

// SessionOpened increments the active session gauge when a login succeeds.
func (r *Recorder) SessionOpened() {
	r.activeSessions.Add(1)
}

// SessionClosed decrements the active session gauge, guarding against negative
// counts when concurrent updates race.
func (r *Recorder) SessionClosed() {
	r.decrementGauge(&r.activeSessions)
}

// ActiveSessions exposes the current gauge of logged-in sessions.
func (r *Recorder) ActiveSessions() int64 {
	return r.activeSessions.Load()
}

// Reset clears all counters and gauges on the recorder. It is intended for
// test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.torrentEvents = make(map[string]uint64)
	r.requestEvents = make(map[string]uint64)
	r.banEvents = make(map[string]uint64)
	r.emailEvents = make(map[string]uint64)
	r.activeSessions.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting label
// sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	torrentEvents := sortedKeys(r.torrentEvents)
	requestEvents := sortedKeys(r.requestEvents)
	banEvents := sortedKeys(r.banEvents)
	emailEvents := sortedKeys(r.emailEvents)

	fmt.Fprintln(w, "# HELP seedvault_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE seedvault_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "seedvault_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP seedvault_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE seedvault_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "seedvault_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP seedvault_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE seedvault_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "seedvault_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP seedvault_torrent_events_total Torrent lifecycle events by type")
	fmt.Fprintln(w, "# TYPE seedvault_torrent_events_total counter")
	for _, event := range torrentEvents {
		fmt.Fprintf(w, "seedvault_torrent_events_total{event=\"%s\"} %d\n", event, r.torrentEvents[event])
	}

	fmt.Fprintln(w, "# HELP seedvault_request_events_total Content request transitions by type")
	fmt.Fprintln(w, "# TYPE seedvault_request_events_total counter")
	for _, event := range requestEvents {
		fmt.Fprintf(w, "seedvault_request_events_total{event=\"%s\"} %d\n", event, r.requestEvents[event])
	}

	fmt.Fprintln(w, "# HELP seedvault_peer_ban_events_total Peer ban actions by type")
	fmt.Fprintln(w, "# TYPE seedvault_peer_ban_events_total counter")
	for _, event := range banEvents {
		fmt.Fprintf(w, "seedvault_peer_ban_events_total{event=\"%s\"} %d\n", event, r.banEvents[event])
	}

	fmt.Fprintln(w, "# HELP seedvault_email_events_total Outbound email outcomes by type")
	fmt.Fprintln(w, "# TYPE seedvault_email_events_total counter")
	for _, event := range emailEvents {
		fmt.Fprintf(w, "seedvault_email_events_total{event=\"%s\"} %d\n", event, r.emailEvents[event])
	}

	fmt.Fprintln(w, "# HELP seedvault_active_sessions Current number of logged-in sessions")
	fmt.Fprintln(w, "# TYPE seedvault_active_sessions gauge")
	fmt.Fprintf(w, "seedvault_active_sessions %d\n", r.activeSessions.Load())
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func sortedKeys(counts map[string]uint64) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
			continue
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 16 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveTorrentEvent records a torrent lifecycle event on the default recorder.
func ObserveTorrentEvent(event string) {
	defaultRecorder.ObserveTorrentEvent(event)
}

// ObserveRequestEvent records a content request transition on the default recorder.
func ObserveRequestEvent(event string) {
	defaultRecorder.ObserveRequestEvent(event)
}

// ObservePeerBanEvent records a peer ban action on the default recorder.
func ObservePeerBanEvent(event string) {
	defaultRecorder.ObservePeerBanEvent(event)
}

// ObserveEmailEvent records an email outcome on the default recorder.
func ObserveEmailEvent(event string) {
	defaultRecorder.ObserveEmailEvent(event)
}

// SessionOpened increments the session gauge on the default recorder.
func SessionOpened() {
	defaultRecorder.SessionOpened()
}

// SessionClosed decrements the session gauge on the default recorder.
func SessionClosed() {
	defaultRecorder.SessionClosed()
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
