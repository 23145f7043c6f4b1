package ports

import (
	"context"
	"errors"
	"io"

	"nina/internal/domain"
)

// ErrUnsupported is returned by a Recognizer that cannot capture speech in
// the current environment.
var ErrUnsupported = errors.New("speech recognition is not supported")

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Recognizer is a streaming speech-to-text provider. Start and Stop are
// requests; their completion is observed through Events as started/ended.
// The events channel lives as long as the recognizer.
type Recognizer interface {
	Start(ctx context.Context, continuous bool) error
	Stop() error
	Events() <-chan domain.ProviderEvent
}

// RulesEngine rewrites transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// ActionExecutor performs the side effects of a recognized intent.
type ActionExecutor interface {
	Execute(ctx context.Context, intent domain.Intent) error
}

// Notifier surfaces short user-facing notifications (toasts).
type Notifier interface {
	Success(message string)
	Error(code domain.ErrorCode, message string)
}

// EventSink emits assistant state to the UI.
type EventSink interface {
	ListeningChanged(listening bool)
	ResponseChanged(response string)
	TranscriptChanged(text string)
}
