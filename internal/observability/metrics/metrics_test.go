package metrics

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestObserveRequestAndNormalizePath(t *testing.T) {
	recorder := New()

	type testCase struct {
		name     string
		method   string
		path     string
		status   int
		duration time.Duration
	}

	cases := []testCase{
		{
			name:     "root path",
			method:   "get",
			path:     "/",
			status:   200,
			duration: 50 * time.Millisecond,
		},
		{
			name:     "empty path",
			method:   "GET",
			path:     "",
			status:   200,
			duration: 25 * time.Millisecond,
		},
		{
			name:     "id segment",
			method:   "post",
			path:     "/users/123",
			status:   201,
			duration: 100 * time.Millisecond,
		},
		{
			name:     "trailing slash and hex id",
			method:   "POST",
			path:     "/users/0123456789abcdef0123456789abcdef/",
			status:   201,
			duration: 50 * time.Millisecond,
		},
		{
			name:     "multi ids",
			method:   "PATCH",
			path:     "torrents/abc/456/extra",
			status:   404,
			duration: 10 * time.Millisecond,
		},
	}

	expectedCounts := make(map[requestLabel]struct {
		count    uint64
		duration time.Duration
	})

	for _, tc := range cases {
		recorder.ObserveRequest(tc.method, tc.path, tc.status, tc.duration)

		label := requestLabel{
			method: strings.ToUpper(tc.method),
			path:   normalizePath(tc.path),
			status: fmt.Sprintf("%d", tc.status),
		}
		current := expectedCounts[label]
		current.count++
		current.duration += tc.duration
		expectedCounts[label] = current
	}

	if len(recorder.requestCount) != len(expectedCounts) {
		t.Fatalf("unexpected number of labels: got %d want %d", len(recorder.requestCount), len(expectedCounts))
	}

	for label, expected := range expectedCounts {
		gotCount := recorder.requestCount[label]
		gotDuration := recorder.requestDuration[label]
		if gotCount != expected.count {
			t.Errorf("count mismatch for %+v: got %d want %d", label, gotCount, expected.count)
		}
		if gotDuration != expected.duration {
			t.Errorf("duration mismatch for %+v: got %s want %s", label, gotDuration, expected.duration)
		}
	}

	labels := recorder.sortedRequestLabels()
	sortedExpected := make([]requestLabel, 0, len(expectedCounts))
	for label := range expectedCounts {
		sortedExpected = append(sortedExpected, label)
	}
	sort.Slice(sortedExpected, func(i, j int) bool {
		if sortedExpected[i].method != sortedExpected[j].method {
			return sortedExpected[i].method < sortedExpected[j].method
		}
		if sortedExpected[i].path != sortedExpected[j].path {
			return sortedExpected[i].path < sortedExpected[j].path
		}
		return sortedExpected[i].status < sortedExpected[j].status
	})

	if len(labels) != len(sortedExpected) {
		t.Fatalf("sorted labels length mismatch: got %d want %d", len(labels), len(sortedExpected))
	}

	for i := range labels {
		if labels[i] != sortedExpected[i] {
			t.Errorf("sorted label %d mismatch: got %+v want %+v", i, labels[i], sortedExpected[i])
		}
	}
}

func TestSessionGaugeConcurrent(t *testing.T) {
	recorder := New()

	var wg sync.WaitGroup
	opens := 100
	closes := 150

	wg.Add(opens + closes)
	for i := 0; i < opens; i++ {
		go func() {
			defer wg.Done()
			recorder.SessionOpened()
		}()
	}
	for i := 0; i < closes; i++ {
		go func() {
			defer wg.Done()
			recorder.SessionClosed()
		}()
	}

	wg.Wait()

	if active := recorder.ActiveSessions(); active != 0 {
		t.Fatalf("active sessions should not go negative; got %d", active)
	}
}

func TestWriteAndHandlerOutput(t *testing.T) {
	recorder := New()

	recorder.ObserveRequest("GET", "/users/0123456789abcdef0123456789abcdef", 200, 150*time.Millisecond)
	recorder.ObserveRequest("get", "/users/456/", 200, 50*time.Millisecond)
	recorder.ObserveRequest("POST", "/users", 201, time.Second)

	recorder.ObserveTorrentEvent("upload")
	recorder.ObserveTorrentEvent("upload")
	recorder.ObserveTorrentEvent("approve")

	recorder.ObserveRequestEvent("fill")

	recorder.ObservePeerBanEvent("create")

	recorder.ObserveEmailEvent("delivered")
	recorder.ObserveEmailEvent("delivered")
	recorder.ObserveEmailEvent("failed")

	recorder.SessionOpened()
	recorder.SessionOpened()
	recorder.SessionClosed()

	var buf bytes.Buffer
	recorder.Write(&buf)

	expected := `# HELP seedvault_http_requests_total Total number of HTTP requests processed by the API
# TYPE seedvault_http_requests_total counter
seedvault_http_requests_total{method="GET",path="/users/:id",status="200"} 2
seedvault_http_requests_total{method="POST",path="/users",status="201"} 1
# HELP seedvault_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds
# TYPE seedvault_http_request_duration_seconds_sum counter
seedvault_http_request_duration_seconds_sum{method="GET",path="/users/:id",status="200"} 0.200000
seedvault_http_request_duration_seconds_sum{method="POST",path="/users",status="201"} 1.000000
# HELP seedvault_http_request_duration_seconds_count Total number of observations for request durations
# TYPE seedvault_http_request_duration_seconds_count counter
seedvault_http_request_duration_seconds_count{method="GET",path="/users/:id",status="200"} 2
seedvault_http_request_duration_seconds_count{method="POST",path="/users",status="201"} 1
# HELP seedvault_torrent_events_total Torrent lifecycle events by type
# TYPE seedvault_torrent_events_total counter
seedvault_torrent_events_total{event="approve"} 1
seedvault_torrent_events_total{event="upload"} 2
# HELP seedvault_request_events_total Content request transitions by type
# TYPE seedvault_request_events_total counter
seedvault_request_events_total{event="fill"} 1
# HELP seedvault_peer_ban_events_total Peer ban actions by type
# TYPE seedvault_peer_ban_events_total counter
seedvault_peer_ban_events_total{event="create"} 1
# HELP seedvault_email_events_total Outbound email outcomes by type
# TYPE seedvault_email_events_total counter
seedvault_email_events_total{event="delivered"} 2
seedvault_email_events_total{event="failed"} 1
# HELP seedvault_active_sessions Current number of logged-in sessions
# TYPE seedvault_active_sessions gauge
seedvault_active_sessions 1`

	if diff := compareLines(buf.String(), expected); diff != "" {
		t.Fatalf("unexpected write output:\n%s", diff)
	}

	res := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(res, httptest.NewRequest("GET", "/metrics", nil))

	if contentType := res.Result().Header.Get("Content-Type"); !strings.HasPrefix(contentType, "text/plain") {
		t.Fatalf("unexpected content type: %s", contentType)
	}

	if diff := compareLines(res.Body.String(), expected); diff != "" {
		t.Fatalf("unexpected handler output:\n%s", diff)
	}
}

func compareLines(actual, expected string) string {
	actualLines := strings.Split(strings.TrimSpace(actual), "\n")
	expectedLines := strings.Split(strings.TrimSpace(expected), "\n")
	if len(actualLines) != len(expectedLines) {
		return formatDiff(actualLines, expectedLines)
	}
	for i := range actualLines {
		if actualLines[i] != expectedLines[i] {
			return formatDiff(actualLines, expectedLines)
		}
	}
	return ""
}

func formatDiff(actual, expected []string) string {
	var b strings.Builder
	b.WriteString("expected\n")
	for _, line := range expected {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("got\n")
	for _, line := range actual {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
