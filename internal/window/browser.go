package window

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed assets/*
var assetsFS embed.FS

const (
	msgReload = "reload"
	msgClose  = "close"

	keepaliveInterval = 10 * time.Second
	shutdownTimeout   = 2 * time.Second
)

// Options configures a Browser window.
type Options struct {
	Logger *slog.Logger
	// CloseGrace is how long a close beacon waits for a page to reconnect
	// before it is treated as the user closing the window.
	CloseGrace time.Duration
	// Open launches the default browser once the listener is up.
	Open bool
}

// Browser is a Window rendered by the user's default browser.
type Browser struct {
	logger     *slog.Logger
	closeGrace time.Duration
	open       bool

	docMu sync.RWMutex
	title string
	doc   []byte

	// SSE clients and the pending close request share one lock.
	clientsMu  sync.Mutex
	clients    map[chan string]struct{}
	closeTimer *time.Timer
	onClose    func()

	events      *replayLog
	liveScript  []byte
	placeholder *template.Template
	router      chi.Router

	closeOnce sync.Once
	closed    chan struct{}
}

var _ Window = (*Browser)(nil)

// NewBrowser creates a browser window. Nothing is served until Serve is called.
func NewBrowser(opts Options) (*Browser, error) {
	script, err := assetsFS.ReadFile("assets/live.js")
	if err != nil {
		return nil, fmt.Errorf("load live reload script: %w", err)
	}
	placeholder, err := template.ParseFS(assetsFS, "assets/placeholder.html")
	if err != nil {
		return nil, fmt.Errorf("parse placeholder: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Browser{
		logger:      logger,
		closeGrace:  opts.CloseGrace,
		open:        opts.Open,
		clients:     make(map[chan string]struct{}),
		events:      newReplayLog(50),
		liveScript:  append(append([]byte("<script>"), script...), "</script>\n"...),
		placeholder: placeholder,
		closed:      make(chan struct{}),
	}
	b.router = b.routes()
	return b, nil
}

func (b *Browser) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", b.serveDocument)
	r.Get("/events", b.serveSSE)
	r.Post("/close", withOriginCheck(b.handleCloseBeacon))
	r.Get("/health", b.serveHealth)
	return r
}

// Handler returns the HTTP handler of the window.
func (b *Browser) Handler() http.Handler {
	return b.router
}

// OnCloseRequest registers fn to be called when the user closes the page.
func (b *Browser) OnCloseRequest(fn func()) {
	b.clientsMu.Lock()
	b.onClose = fn
	b.clientsMu.Unlock()
}

// SetTitle implements Window.
func (b *Browser) SetTitle(title string) {
	b.docMu.Lock()
	b.title = title
	b.docMu.Unlock()
}

// SetHTML implements Window. Connected pages are told to reload.
func (b *Browser) SetHTML(doc []byte) {
	b.docMu.Lock()
	b.doc = append([]byte(nil), doc...)
	b.docMu.Unlock()

	b.notifyClients(msgReload)
}

// Close implements Window. Connected pages are told to close and the
// server started by Serve shuts down.
func (b *Browser) Close() {
	b.closeOnce.Do(func() {
		b.notifyClients(msgClose)

		b.clientsMu.Lock()
		if b.closeTimer != nil {
			b.closeTimer.Stop()
			b.closeTimer = nil
		}
		b.clientsMu.Unlock()

		close(b.closed)
	})
}

// Closed is closed once Close has been called.
func (b *Browser) Closed() <-chan struct{} {
	return b.closed
}

// Serve serves the window on ln until Close is called or ctx is done.
func (b *Browser) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           b.router,
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout intentionally omitted for the SSE stream
		IdleTimeout: 60 * time.Second,
	}

	pageURL := "http://" + ln.Addr().String() + "/"
	b.logger.Info("window serving", slog.String("url", pageURL))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if b.open {
		openURL(b.logger, pageURL)
	}

	select {
	case <-ctx.Done():
		b.Close()
	case <-b.closed:
	case err := <-errCh:
		b.Close()
		return fmt.Errorf("window server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		b.logger.Warn("window shutdown", slog.String("error", err.Error()))
	}
	return nil
}

func (b *Browser) serveDocument(w http.ResponseWriter, r *http.Request) {
	b.docMu.RLock()
	doc := b.doc
	title := b.title
	b.docMu.RUnlock()

	var page bytes.Buffer
	if doc == nil {
		if err := b.placeholder.Execute(&page, title); err != nil {
			b.logger.Error("placeholder render", slog.String("error", err.Error()))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	} else {
		page.Write(doc)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(injectScript(page.Bytes(), b.liveScript))
}

// injectScript inserts script before the last </body>, or appends it.
func injectScript(page, script []byte) []byte {
	out := make([]byte, 0, len(page)+len(script))
	idx := bytes.LastIndex(page, []byte("</body>"))
	if idx < 0 {
		out = append(out, page...)
		return append(out, script...)
	}
	out = append(out, page[:idx]...)
	out = append(out, script...)
	return append(out, page[idx:]...)
}

func (b *Browser) serveSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		b.logger.Error("SSE: ResponseWriter doesn't support flushing")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	clientChan := make(chan string, 10)
	b.addClient(clientChan)
	defer b.removeClient(clientChan)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	if lastEventID := r.Header.Get("Last-Event-ID"); lastEventID != "" {
		missed := b.events.since(lastEventID)
		for _, evt := range missed {
			fmt.Fprintf(w, "id: %d\ndata: %s\n\n", evt.id, evt.data)
		}
		if len(missed) > 0 {
			b.logger.Debug("SSE replay", slog.Int("events", len(missed)))
			flusher.Flush()
		}
	}

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-clientChan:
			if _, err := fmt.Fprintf(w, "%s\n\n", message); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-b.closed:
			// Drain the close notification queued by Close.
			for {
				select {
				case message := <-clientChan:
					fmt.Fprintf(w, "%s\n\n", message)
				default:
					flusher.Flush()
					return
				}
			}
		case <-r.Context().Done():
			return
		}
	}
}

// addClient registers an SSE client. A connecting page cancels a pending
// close request: the beacon came from a page that is reloading.
func (b *Browser) addClient(ch chan string) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	b.clients[ch] = struct{}{}
	if b.closeTimer != nil {
		b.closeTimer.Stop()
		b.closeTimer = nil
	}
}

func (b *Browser) removeClient(ch chan string) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	delete(b.clients, ch)
}

func (b *Browser) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": b.ClientCount(),
	})
}

// ClientCount returns the number of connected pages.
func (b *Browser) ClientCount() int {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	return len(b.clients)
}

func (b *Browser) notifyClients(message string) {
	id := b.events.record(message)
	formatted := fmt.Sprintf("id: %d\ndata: %s", id, message)

	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- formatted:
		default:
		}
	}
}

func (b *Browser) handleCloseBeacon(w http.ResponseWriter, _ *http.Request) {
	b.clientsMu.Lock()
	if b.closeTimer != nil {
		b.closeTimer.Stop()
	}
	b.closeTimer = time.AfterFunc(b.closeGrace, b.fireCloseRequest)
	b.clientsMu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (b *Browser) fireCloseRequest() {
	b.clientsMu.Lock()
	b.closeTimer = nil
	connected := len(b.clients)
	fn := b.onClose
	b.clientsMu.Unlock()

	if connected > 0 || fn == nil {
		return
	}
	select {
	case <-b.closed:
		return
	default:
	}
	b.logger.Info("window closed by user")
	fn()
}

// withOriginCheck rejects cross-origin POST requests by validating the Origin header
func withOriginCheck(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			u, err := url.Parse(origin)
			if err != nil || u.Host != r.Host {
				http.Error(w, "Forbidden: cross-origin request", http.StatusForbidden)
				return
			}
		}
		next(w, r)
	}
}
