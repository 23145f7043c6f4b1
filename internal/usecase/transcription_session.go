package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"nina/internal/domain"
	"nina/internal/ports"
)

// sessionListener receives the normalized session lifecycle.
type sessionListener interface {
	sessionStarted()
	transcriptUpdate(event domain.TranscriptEvent)
	sessionEnded(continuous bool)
	sessionError(kind domain.ProviderErrorKind, detail string)
}

// TranscriptionSession owns the recognizer and the listening flag. It is not
// safe for concurrent use; the assistant run loop is its only caller.
type TranscriptionSession struct {
	ctx          context.Context
	recognizer   ports.Recognizer
	notifier     ports.Notifier
	listener     sessionListener
	sched        scheduler
	restartDelay time.Duration
	log          *slog.Logger

	state      domain.SessionState
	supported  bool
	continuous bool
	// desired is what the user asked for, state is what the provider did.
	desired bool
	id      string

	restart    clockwork.Timer
	restartGen uint64
}

func newTranscriptionSession(
	recognizer ports.Recognizer,
	notifier ports.Notifier,
	listener sessionListener,
	sched scheduler,
	restartDelay time.Duration,
	logger *slog.Logger,
) *TranscriptionSession {
	return &TranscriptionSession{
		ctx:          context.Background(),
		recognizer:   recognizer,
		notifier:     notifier,
		listener:     listener,
		sched:        sched,
		restartDelay: restartDelay,
		log:          logger,
		state:        domain.SessionStateStopped,
		supported:    recognizer != nil,
	}
}

// Start asks the provider to begin capturing. It is a no-op while a start is
// pending or the session is already listening.
func (s *TranscriptionSession) Start(continuous bool) error {
	if !s.supported {
		return ErrVoiceUnsupported
	}
	if s.state == domain.SessionStateListening || s.state == domain.SessionStateStarting {
		s.desired = true
		return nil
	}

	s.cancelRestart()
	s.desired = true
	s.continuous = continuous
	s.state = domain.SessionStateStarting
	s.id = uuid.NewString()
	s.log.Debug("starting transcription", "session_id", s.id, "continuous", continuous)

	if err := s.recognizer.Start(s.ctx, continuous); err != nil {
		s.desired = false
		if errors.Is(err, ports.ErrUnsupported) {
			s.supported = false
			s.state = domain.SessionStateStopped
			s.notifier.Error(domain.ErrorCodeUnsupported, responseUnsupported)
			return ErrVoiceUnsupported
		}
		s.state = domain.SessionStateErrored
		s.log.Warn("transcription start failed", "session_id", s.id, "error", err)
		s.notifier.Error(domain.ErrorCodeProvider, providerErrorMessage(domain.ProviderErrorOther, err.Error()))
		s.listener.sessionError(domain.ProviderErrorOther, err.Error())
		return fmt.Errorf("start transcription: %w", err)
	}
	return nil
}

// Stop asks the provider to end capture and cancels any pending restart.
func (s *TranscriptionSession) Stop() {
	s.desired = false
	s.cancelRestart()
	if s.state != domain.SessionStateListening && s.state != domain.SessionStateStarting {
		return
	}
	s.log.Debug("stopping transcription", "session_id", s.id)
	if err := s.recognizer.Stop(); err != nil {
		s.log.Warn("transcription stop failed", "session_id", s.id, "error", err)
	}
}

// HandleEvent folds one provider event into the session state.
func (s *TranscriptionSession) HandleEvent(event domain.ProviderEvent) {
	switch event.Kind {
	case domain.ProviderEventStarted:
		if s.state == domain.SessionStateListening {
			return
		}
		s.state = domain.SessionStateListening
		s.log.Info("transcription started", "session_id", s.id)
		s.listener.sessionStarted()

	case domain.ProviderEventResult:
		if s.state != domain.SessionStateListening && s.state != domain.SessionStateStarting {
			return
		}
		s.listener.transcriptUpdate(domain.TranscriptEvent{
			Text:      strings.TrimSpace(event.Text),
			IsFinal:   event.IsFinal,
			Timestamp: s.sched.clock.Now(),
		})

	case domain.ProviderEventEnded:
		if s.state == domain.SessionStateStopped {
			return
		}
		s.state = domain.SessionStateStopped
		s.log.Info("transcription ended", "session_id", s.id, "restart", s.desired)
		s.listener.sessionEnded(s.continuous)
		if s.desired {
			s.scheduleRestart()
		}

	case domain.ProviderEventError:
		kind := event.Error
		if kind == "" {
			kind = domain.ProviderErrorOther
		}
		if kind == domain.ProviderErrorAborted && !s.desired {
			s.log.Debug("transcription aborted after stop", "session_id", s.id)
			return
		}
		if kind == domain.ProviderErrorUnsupported {
			s.supported = false
		}
		s.state = domain.SessionStateErrored
		s.desired = false
		s.cancelRestart()
		s.log.Warn("transcription error", "session_id", s.id, "kind", kind, "detail", event.Detail)
		s.notifier.Error(domain.ErrorCodeProvider, providerErrorMessage(kind, event.Detail))
		s.listener.sessionError(kind, event.Detail)
	}
}

// State reports the provider-observed state.
func (s *TranscriptionSession) State() domain.SessionState { return s.state }

// Listening reports whether the provider is capturing.
func (s *TranscriptionSession) Listening() bool {
	return s.state == domain.SessionStateListening
}

// Desired reports whether the user wants the session to be listening.
func (s *TranscriptionSession) Desired() bool { return s.desired }

func (s *TranscriptionSession) Continuous() bool { return s.continuous }

func (s *TranscriptionSession) Supported() bool { return s.supported }

func (s *TranscriptionSession) scheduleRestart() {
	s.cancelRestart()
	gen := s.restartGen
	s.restart = s.sched.after(s.restartDelay, func() { s.restartDue(gen) })
}

func (s *TranscriptionSession) restartDue(gen uint64) {
	if gen != s.restartGen {
		return
	}
	s.restart = nil
	if !s.desired || s.state != domain.SessionStateStopped {
		return
	}
	s.log.Info("restarting transcription after unexpected end", "previous_session_id", s.id)
	if err := s.Start(s.continuous); err != nil {
		s.log.Warn("transcription restart failed", "error", err)
	}
}

func (s *TranscriptionSession) cancelRestart() {
	stopTimer(s.restart)
	s.restart = nil
	s.restartGen++
}
