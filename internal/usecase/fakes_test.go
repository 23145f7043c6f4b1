package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"nina/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testLoop stands in for the assistant inbox in component tests.
type testLoop struct {
	posted chan func()
}

func newTestLoop() *testLoop {
	return &testLoop{posted: make(chan func(), 16)}
}

func (l *testLoop) post(fn func()) {
	l.posted <- fn
}

func (l *testLoop) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.posted:
		fn()
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for a timer callback")
	}
}

func (l *testLoop) expectQuiet(t *testing.T) {
	t.Helper()
	select {
	case <-l.posted:
		t.Fatalf("unexpected timer callback")
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeRecognizer struct {
	events chan domain.ProviderEvent

	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	lastMode bool
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{events: make(chan domain.ProviderEvent)}
}

func (r *fakeRecognizer) Start(_ context.Context, continuous bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	r.lastMode = continuous
	return r.startErr
}

func (r *fakeRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

func (r *fakeRecognizer) Events() <-chan domain.ProviderEvent {
	return r.events
}

func (r *fakeRecognizer) counts() (starts, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.stops
}

func (r *fakeRecognizer) continuous() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastMode
}

type notice struct {
	code    domain.ErrorCode
	message string
}

type fakeNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []notice
}

func (n *fakeNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

func (n *fakeNotifier) Error(code domain.ErrorCode, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, notice{code: code, message: message})
}

func (n *fakeNotifier) errorCodes() []domain.ErrorCode {
	n.mu.Lock()
	defer n.mu.Unlock()
	codes := make([]domain.ErrorCode, 0, len(n.errors))
	for _, e := range n.errors {
		codes = append(codes, e.code)
	}
	return codes
}

func (n *fakeNotifier) successCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes)
}

type fakeSink struct {
	mu          sync.Mutex
	listening   []bool
	responses   []string
	transcripts []string
}

func (s *fakeSink) ListeningChanged(listening bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = append(s.listening, listening)
}

func (s *fakeSink) ResponseChanged(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response)
}

func (s *fakeSink) TranscriptChanged(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append(s.transcripts, text)
}

func (s *fakeSink) listeningHistory() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.listening...)
}

type fakeActions struct {
	mu      sync.Mutex
	intents []domain.Intent
	err     error
}

func (a *fakeActions) Execute(_ context.Context, intent domain.Intent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.intents = append(a.intents, intent)
	return a.err
}

func (a *fakeActions) executed() []domain.Intent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Intent(nil), a.intents...)
}

// fakeListener records what a TranscriptionSession reports.
type fakeListener struct {
	started int
	updates []domain.TranscriptEvent
	ended   []bool
	errors  []domain.ProviderErrorKind
}

func (l *fakeListener) sessionStarted() { l.started++ }

func (l *fakeListener) transcriptUpdate(event domain.TranscriptEvent) {
	l.updates = append(l.updates, event)
}

func (l *fakeListener) sessionEnded(continuous bool) { l.ended = append(l.ended, continuous) }

func (l *fakeListener) sessionError(kind domain.ProviderErrorKind, _ string) {
	l.errors = append(l.errors, kind)
}

type fakeRules struct {
	replace map[string]string
}

func (r fakeRules) Apply(text string) (string, error) {
	if out, ok := r.replace[text]; ok {
		return out, nil
	}
	return text, nil
}
