package deepgram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nina/internal/domain"
	"nina/internal/ports"
)

const (
	DefaultAPIBaseURL = "https://api.deepgram.com/v1"
	DefaultModel      = "nova-2"

	closeTimeout = 4 * time.Second
)

// Recognizer implements ports.Recognizer with the Deepgram listen API fed
// by a microphone capture. One stream runs at a time.
type Recognizer struct {
	cfg       Config
	capture   ports.AudioCapture
	audio     ports.AudioConfig
	chunkSize int
	dialer    *websocket.Dialer
	log       *slog.Logger

	events chan domain.ProviderEvent

	mu      sync.Mutex
	current *activeStream
}

type activeStream struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func (s *activeStream) requestStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func NewRecognizer(cfg Config, capture ports.AudioCapture, audio ports.AudioConfig, chunkSize int, logger *slog.Logger) *Recognizer {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if chunkSize < 256 {
		chunkSize = 4096
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{
		cfg:       cfg,
		capture:   capture,
		audio:     audio,
		chunkSize: chunkSize,
		dialer:    websocket.DefaultDialer,
		log:       logger.With("component", "deepgram.Recognizer"),
		events:    make(chan domain.ProviderEvent, 64),
	}
}

func (r *Recognizer) Events() <-chan domain.ProviderEvent {
	return r.events
}

// Start opens a listen stream in the background. Progress is reported on
// Events; a stream that is already running makes Start a no-op.
func (r *Recognizer) Start(ctx context.Context, continuous bool) error {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is not configured: %w", ports.ErrUnsupported)
	}
	if r.capture == nil {
		return fmt.Errorf("no microphone capture configured: %w", ports.ErrUnsupported)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return nil
	}
	active := &activeStream{stop: make(chan struct{})}
	r.current = active
	go r.run(ctx, active, continuous)
	return nil
}

// Stop asks the running stream to flush and close.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	active := r.current
	r.mu.Unlock()
	if active != nil {
		active.requestStop()
	}
	return nil
}

func (r *Recognizer) run(ctx context.Context, active *activeStream, continuous bool) {
	defer func() {
		r.mu.Lock()
		if r.current == active {
			r.current = nil
		}
		r.mu.Unlock()
		r.emit(ctx, domain.ProviderEvent{Kind: domain.ProviderEventEnded})
	}()

	stream, err := dialListen(ctx, r.dialer, r.cfg, listenParams{
		SampleRate:     r.audio.SampleRate,
		Channels:       r.audio.Channels,
		Encoding:       "linear16",
		InterimResults: true,
	})
	if err != nil {
		r.fail(ctx, classifyDialErr(err), err)
		return
	}

	mic, err := r.capture.Start(ctx, r.audio)
	if err != nil {
		_ = stream.Close()
		r.fail(ctx, domain.ProviderErrorAudioCapture, err)
		return
	}
	r.emit(ctx, domain.ProviderEvent{Kind: domain.ProviderEventStarted})

	pumpDone := make(chan error, 1)
	go pumpAudio(mic, stream, r.chunkSize, pumpDone)

	var (
		buf      utteranceBuffer
		stopping bool
		deadline <-chan time.Time
	)
	stop := active.stop
	ctxDone := ctx.Done()
	finish := func() {
		if stopping {
			return
		}
		stopping = true
		stop = nil
		_ = mic.Stop()
		_ = stream.CloseSend()
		deadline = time.After(closeTimeout)
	}

	chunks := stream.Chunks()
	for chunks != nil {
		select {
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			text := buf.Add(c)
			if c.SpeechFinal {
				buf.Reset()
			}
			if text != "" {
				r.emit(ctx, domain.ProviderEvent{Kind: domain.ProviderEventResult, Text: text, IsFinal: c.SpeechFinal})
			}
			if c.SpeechFinal && !continuous {
				finish()
			}
		case <-stop:
			finish()
		case err := <-pumpDone:
			pumpDone = nil
			if err != nil && !stopping {
				r.fail(ctx, domain.ProviderErrorAudioCapture, err)
			}
			finish()
		case <-deadline:
			deadline = nil
			stream.abort()
		case <-ctxDone:
			ctxDone = nil
			stopping = true
			_ = mic.Stop()
			stream.abort()
		}
	}

	_ = mic.Stop()
	if err := waitForStream(stream, closeTimeout); err != nil && !stopping {
		kind := domain.ProviderErrorNetwork
		if errors.Is(err, errProvider) {
			kind = domain.ProviderErrorOther
		}
		r.fail(ctx, kind, err)
	}
}

func (r *Recognizer) fail(ctx context.Context, kind domain.ProviderErrorKind, err error) {
	r.log.Warn("listen stream failed", "kind", kind, "error", err)
	r.emit(ctx, domain.ProviderEvent{Kind: domain.ProviderEventError, Error: kind, Detail: err.Error()})
}

func (r *Recognizer) emit(ctx context.Context, event domain.ProviderEvent) {
	select {
	case r.events <- event:
	case <-ctx.Done():
	}
}

func classifyDialErr(err error) domain.ProviderErrorKind {
	if errors.Is(err, errUnauthorized) {
		return domain.ProviderErrorNotAllowed
	}
	return domain.ProviderErrorNetwork
}
