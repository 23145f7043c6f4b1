package deepgram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nina/internal/domain"
	"nina/internal/ports"
)

func TestRecognizerWithoutAPIKeyIsUnsupported(t *testing.T) {
	t.Parallel()

	r := NewRecognizer(Config{}, &fakeCapture{}, ports.AudioConfig{}, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := r.Start(context.Background(), false)
	if !errors.Is(err, ports.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestRecognizerSingleUtteranceFinishesAfterSpeechFinal(t *testing.T) {
	t.Parallel()

	server := newListenServer(t, []string{
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"open"}]}}`,
		`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"open example.com"}]}}`,
	})
	capture := &fakeCapture{}
	r := newTestRecognizer(server.URL, capture)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx, false); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	events := collectUntilEnded(t, r)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %+v", events)
	}
	if events[0].Kind != domain.ProviderEventStarted {
		t.Fatalf("expected started first, got %+v", events[0])
	}
	if events[1].Kind != domain.ProviderEventResult || events[1].Text != "open" || events[1].IsFinal {
		t.Fatalf("unexpected interim result: %+v", events[1])
	}
	if events[2].Kind != domain.ProviderEventResult || events[2].Text != "open example.com" || !events[2].IsFinal {
		t.Fatalf("unexpected final result: %+v", events[2])
	}
	if events[3].Kind != domain.ProviderEventEnded {
		t.Fatalf("expected ended last, got %+v", events[3])
	}
	if !capture.stopped() {
		t.Fatalf("expected microphone to be stopped")
	}
}

func TestRecognizerContinuousRunsUntilStop(t *testing.T) {
	t.Parallel()

	server := newListenServer(t, []string{
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hello"}]}}`,
	})
	capture := &fakeCapture{}
	r := newTestRecognizer(server.URL, capture)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx, true); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if event := nextEvent(t, r); event.Kind != domain.ProviderEventStarted {
		t.Fatalf("expected started, got %+v", event)
	}
	if event := nextEvent(t, r); event.Kind != domain.ProviderEventResult || event.Text != "hello" {
		t.Fatalf("expected interim result, got %+v", event)
	}

	if err := r.Start(ctx, true); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	for _, event := range collectUntilEnded(t, r) {
		if event.Kind == domain.ProviderEventError {
			t.Fatalf("unexpected error event: %+v", event)
		}
	}
	if capture.startCount() != 1 {
		t.Fatalf("expected one capture start, got %d", capture.startCount())
	}
}

func TestRecognizerRejectedKeyReportsNotAllowed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	r := newTestRecognizer(server.URL, &fakeCapture{})
	if err := r.Start(context.Background(), false); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	events := collectUntilEnded(t, r)
	if len(events) != 2 {
		t.Fatalf("expected error then ended, got %+v", events)
	}
	if events[0].Kind != domain.ProviderEventError || events[0].Error != domain.ProviderErrorNotAllowed {
		t.Fatalf("expected not_allowed error, got %+v", events[0])
	}
}

func TestRecognizerCaptureFailureReportsAudioCapture(t *testing.T) {
	t.Parallel()

	server := newListenServer(t, nil)
	r := newTestRecognizer(server.URL, &fakeCapture{err: errors.New("no device")})
	if err := r.Start(context.Background(), false); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	events := collectUntilEnded(t, r)
	if len(events) != 2 || events[0].Error != domain.ProviderErrorAudioCapture {
		t.Fatalf("expected audio_capture error, got %+v", events)
	}
	if !strings.Contains(events[0].Detail, "no device") {
		t.Fatalf("unexpected detail: %q", events[0].Detail)
	}
}

func TestClassifyDialErr(t *testing.T) {
	t.Parallel()

	if got := classifyDialErr(errUnauthorized); got != domain.ProviderErrorNotAllowed {
		t.Fatalf("unexpected kind for unauthorized: %s", got)
	}
	if got := classifyDialErr(errors.New("refused")); got != domain.ProviderErrorNetwork {
		t.Fatalf("unexpected kind for network: %s", got)
	}
}

func newTestRecognizer(baseURL string, capture ports.AudioCapture) *Recognizer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRecognizer(Config{APIKey: "test-key", APIBaseURL: baseURL}, capture, ports.AudioConfig{}, 512, logger)
}

// newListenServer replays messages and then closes normally once the client
// sends CloseStream.
func newListenServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		closeStream := make(chan struct{})
		go func() {
			defer close(closeStream)
			for {
				kind, payload, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if kind == websocket.TextMessage && strings.Contains(string(payload), "CloseStream") {
					return
				}
			}
		}()

		for _, message := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
				return
			}
		}

		select {
		case <-closeStream:
		case <-time.After(5 * time.Second):
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	t.Cleanup(server.Close)
	return server
}

func nextEvent(t *testing.T, r *Recognizer) domain.ProviderEvent {
	t.Helper()
	select {
	case event := <-r.Events():
		return event
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for recognizer event")
		return domain.ProviderEvent{}
	}
}

func collectUntilEnded(t *testing.T, r *Recognizer) []domain.ProviderEvent {
	t.Helper()
	var events []domain.ProviderEvent
	for {
		event := nextEvent(t, r)
		events = append(events, event)
		if event.Kind == domain.ProviderEventEnded {
			return events
		}
	}
}

type fakeCapture struct {
	err error

	mu     sync.Mutex
	starts int
	mic    *fakeMic
}

func (c *fakeCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	if c.err != nil {
		return nil, c.err
	}
	c.mic = &fakeMic{stop: make(chan struct{})}
	return c.mic, nil
}

func (c *fakeCapture) startCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

func (c *fakeCapture) stopped() bool {
	c.mu.Lock()
	mic := c.mic
	c.mu.Unlock()
	if mic == nil {
		return false
	}
	select {
	case <-mic.stop:
		return true
	default:
		return false
	}
}

// fakeMic produces no audio and reports EOF once stopped.
type fakeMic struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func (m *fakeMic) Read(_ []byte) (int, error) {
	<-m.stop
	return 0, io.EOF
}

func (m *fakeMic) Close() error { return m.Stop() }

func (m *fakeMic) Stop() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}
