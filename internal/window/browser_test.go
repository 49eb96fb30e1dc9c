package window

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/razvandimescu/markview/internal/testutil"
)

func newTestBrowser(t *testing.T, grace time.Duration) *Browser {
	t.Helper()
	b, err := NewBrowser(Options{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		CloseGrace: grace,
	})
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

// sseLines connects to the events endpoint and streams its lines.
func sseLines(t *testing.T, srv *httptest.Server, lastEventID string) <-chan string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		r := bufio.NewReader(resp.Body)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimRight(line, "\n")
		}
	}()
	return lines
}

// awaitLine reads lines until one equals want.
func awaitLine(t *testing.T, lines <-chan string, want string) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream ended before %q", want)
			}
			if line == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestServeDocument_Placeholder(t *testing.T) {
	b := newTestBrowser(t, time.Second)
	b.SetTitle("Render: notes.md")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	body := w.Body.String()
	testutil.AssertValidHTML(t, body)
	testutil.AssertContains(t, body, "<title>Render: notes.md</title>")
	testutil.AssertContains(t, body, "new EventSource(\"/events\")")
}

func TestServeDocument_InjectsLiveScript(t *testing.T) {
	b := newTestBrowser(t, time.Second)
	b.SetHTML([]byte("<!DOCTYPE html><html><head></head><body><h1>Doc</h1></body></html>"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	testutil.AssertContains(t, body, "<h1>Doc</h1>")
	if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	script := strings.Index(body, "<script>")
	end := strings.LastIndex(body, "</body>")
	if script < 0 || script > end {
		t.Errorf("live script should precede </body>: %s", body)
	}
}

func TestInjectScript(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{name: "before body end", page: "<body>x</body></html>", want: "<body>x<s></body></html>"},
		{name: "last body wins", page: "</body><body></body>", want: "</body><body><s></body>"},
		{name: "no body appends", page: "fragment", want: "fragment<s>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(injectScript([]byte(tt.page), []byte("<s>"))); got != tt.want {
				t.Errorf("injectScript() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetHTML_NotifiesClients(t *testing.T) {
	b := newTestBrowser(t, time.Second)
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)

	lines := sseLines(t, srv, "")
	awaitLine(t, lines, ": connected")

	b.SetHTML([]byte("<p>one</p>"))
	awaitLine(t, lines, "data: reload")
}

func TestSSE_ReplaysMissedEvents(t *testing.T) {
	b := newTestBrowser(t, time.Second)
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)

	b.SetHTML([]byte("<p>one</p>"))
	b.SetHTML([]byte("<p>two</p>"))

	lines := sseLines(t, srv, "1")
	awaitLine(t, lines, "id: 2")
	awaitLine(t, lines, "data: reload")
}

func TestCloseBeacon_WithoutReconnect(t *testing.T) {
	b := newTestBrowser(t, 20*time.Millisecond)
	var calls atomic.Int32
	b.OnCloseRequest(func() { calls.Add(1) })

	req := httptest.NewRequest(http.MethodPost, "/close", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)
	testutil.AssertStatusCode(t, w.Code, http.StatusNoContent)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
}

func TestCloseBeacon_ReconnectCancels(t *testing.T) {
	b := newTestBrowser(t, 300*time.Millisecond)
	var calls atomic.Int32
	b.OnCloseRequest(func() { calls.Add(1) })

	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Post(srv.URL+"/close", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()

	// The reloaded page reconnects within the grace period.
	lines := sseLines(t, srv, "")
	awaitLine(t, lines, ": connected")

	time.Sleep(600 * time.Millisecond)
	require.Equal(t, int32(0), calls.Load())
}

func TestCloseBeacon_RejectsCrossOrigin(t *testing.T) {
	b := newTestBrowser(t, time.Millisecond)
	var calls atomic.Int32
	b.OnCloseRequest(func() { calls.Add(1) })

	req := httptest.NewRequest(http.MethodPost, "/close", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w.Code, http.StatusForbidden)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), calls.Load())
}

func TestHealth(t *testing.T) {
	b := newTestBrowser(t, time.Second)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	testutil.AssertContains(t, w.Body.String(), `"ok"`)
	testutil.AssertContains(t, w.Body.String(), `"clients":0`)
}

func TestHealth_CountsConnectedPages(t *testing.T) {
	b := newTestBrowser(t, time.Second)
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)

	lines := sseLines(t, srv, "")
	awaitLine(t, lines, ": connected")
	require.Equal(t, 1, b.ClientCount())

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	testutil.AssertContains(t, string(body), `"clients":1`)
}

// TestServe_CloseStopsServer verifies Close tells pages to close and Serve returns
func TestServe_CloseStopsServer(t *testing.T) {
	b := newTestBrowser(t, time.Second)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- b.Serve(context.Background(), ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := make(chan string, 16)
	go func() {
		r := bufio.NewReader(resp.Body)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- strings.TrimRight(line, "\n")
		}
	}()
	awaitLine(t, lines, ": connected")

	b.Close()
	b.Close()
	awaitLine(t, lines, "data: close")

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after Close")
	}

	select {
	case <-b.Closed():
	default:
		t.Error("Closed channel should be closed")
	}
}

func TestServe_ContextCancel(t *testing.T) {
	b := newTestBrowser(t, time.Second)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- b.Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

// TestConcurrentSetHTML tests concurrent document replacement and serving
// Run with: go test -race
func TestConcurrentSetHTML(t *testing.T) {
	b := newTestBrowser(t, time.Second)
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.SetHTML([]byte("<body>x</body>"))
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			b.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		}()
	}

	wg.Wait()
}

func TestReplayLog_Since(t *testing.T) {
	l := newReplayLog(3)
	if got := l.since("0"); len(got) != 0 {
		t.Errorf("empty log should replay nothing, got %+v", got)
	}
	for _, msg := range []string{"a", "b", "c", "d"} {
		l.record(msg)
	}

	tests := []struct {
		lastID string
		want   []string
	}{
		{lastID: "2", want: []string{"c", "d"}},
		{lastID: "3", want: []string{"d"}},
		{lastID: "4", want: nil},
		{lastID: "1", want: []string{"b", "c", "d"}},
		{lastID: "0", want: nil},
		{lastID: "x", want: nil},
	}
	for _, tt := range tests {
		var got []string
		for _, evt := range l.since(tt.lastID) {
			got = append(got, evt.data)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("since(%q) = %v, want %v", tt.lastID, got, tt.want)
		}
	}
}

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
	}{
		{goos: "darwin", wantName: "open"},
		{goos: "windows", wantName: "cmd"},
		{goos: "linux", wantName: "xdg-open"},
	}
	for _, tt := range tests {
		name, args := browserCommand(tt.goos, "http://127.0.0.1:1/")
		if name != tt.wantName {
			t.Errorf("%s: command = %q, want %q", tt.goos, name, tt.wantName)
		}
		if args[len(args)-1] != "http://127.0.0.1:1/" {
			t.Errorf("%s: url should be last argument, got %v", tt.goos, args)
		}
	}
}
