package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"nina/internal/command"
	"nina/internal/domain"
	"nina/internal/ports"
)

var (
	ErrVoiceUnsupported = errors.New("voice input is not supported")
	ErrEmergencyStopped = errors.New("assistant was emergency stopped")
	ErrAssistantClosed  = errors.New("assistant is not running")
)

const (
	DefaultKeyword       = "nina"
	DefaultQuietPeriod   = 2000 * time.Millisecond
	DefaultRestartDelay  = 500 * time.Millisecond
	DefaultShutdownGrace = 2000 * time.Millisecond
)

// Config controls activation, segmentation and shutdown behavior.
type Config struct {
	Keyword           string
	DeactivatePhrases []string
	Safety            domain.SafetyConfig
	Continuous        bool
	// ForwardTrailing dispatches text spoken after the keyword in the same
	// utterance instead of discarding it.
	ForwardTrailing bool
	QuietPeriod     time.Duration
	RestartDelay    time.Duration
	ShutdownGrace   time.Duration

	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Assistant wires the transcription session, segmenter, activation gate,
// safety check and dispatcher together. All state is owned by the Run loop;
// exported methods hop onto it.
type Assistant struct {
	recognizer ports.Recognizer
	rules      ports.RulesEngine
	actions    ports.ActionExecutor
	notifier   ports.Notifier
	events     ports.EventSink
	shutdown   func()
	cfg        Config
	clock      clockwork.Clock
	log        *slog.Logger

	inbox chan func()
	done  chan struct{}

	ctx           context.Context
	session       *TranscriptionSession
	segmenter     *UtteranceSegmenter
	gate          *ActivationGate
	stopped       bool
	response      string
	transcript    string
	shutdownTimer clockwork.Timer
}

func NewAssistant(
	recognizer ports.Recognizer,
	rules ports.RulesEngine,
	actions ports.ActionExecutor,
	notifier ports.Notifier,
	events ports.EventSink,
	shutdown func(),
	cfg Config,
) *Assistant {
	if strings.TrimSpace(cfg.Keyword) == "" {
		cfg.Keyword = DefaultKeyword
	}
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = DefaultQuietPeriod
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &Assistant{
		recognizer: recognizer,
		rules:      rules,
		actions:    actions,
		notifier:   notifier,
		events:     events,
		shutdown:   shutdown,
		cfg:        cfg,
		clock:      cfg.Clock,
		log:        cfg.Logger.With("component", "usecase.Assistant"),
		inbox:      make(chan func(), 16),
		done:       make(chan struct{}),
		ctx:        context.Background(),
		response:   responseGreeting,
	}

	sched := scheduler{clock: cfg.Clock, post: a.post}
	a.session = newTranscriptionSession(recognizer, notifier, a, sched, cfg.RestartDelay, a.log)
	a.segmenter = newUtteranceSegmenter(sched, cfg.QuietPeriod, a.session.Listening, a.handleUtterance)
	a.gate = newActivationGate(cfg.Keyword, cfg.DeactivatePhrases, cfg.ForwardTrailing)
	return a
}

// Run processes provider events, timers and UI requests one at a time until
// ctx is cancelled.
func (a *Assistant) Run(ctx context.Context) error {
	defer close(a.done)

	a.ctx = ctx
	a.session.ctx = ctx

	var providerEvents <-chan domain.ProviderEvent
	if a.recognizer != nil {
		providerEvents = a.recognizer.Events()
	} else {
		a.notifier.Error(domain.ErrorCodeUnsupported, responseUnsupported)
	}

	for {
		select {
		case <-ctx.Done():
			a.teardown()
			return ctx.Err()
		case fn := <-a.inbox:
			fn()
		case event, ok := <-providerEvents:
			if !ok {
				providerEvents = nil
				continue
			}
			a.handleProviderEvent(event)
		}
	}
}

// ToggleListening starts capture when idle and stops it otherwise.
func (a *Assistant) ToggleListening() (domain.Status, error) {
	var err error
	status, callErr := a.callStatus(func() { err = a.toggle() })
	if callErr != nil {
		return domain.Status{}, callErr
	}
	return status, err
}

// StartListening requests capture; redundant calls are no-ops.
func (a *Assistant) StartListening() (domain.Status, error) {
	var err error
	status, callErr := a.callStatus(func() { err = a.startListening() })
	if callErr != nil {
		return domain.Status{}, callErr
	}
	return status, err
}

// StopListening ends capture if it is running.
func (a *Assistant) StopListening() (domain.Status, error) {
	return a.callStatus(func() { a.stopListening() })
}

// SubmitTextCommand feeds typed text through the same path as speech.
func (a *Assistant) SubmitTextCommand(text string) (domain.Status, error) {
	var err error
	status, callErr := a.callStatus(func() {
		if a.stopped {
			err = ErrEmergencyStopped
			return
		}
		a.handleUtterance(domain.UtteranceBoundary{
			Text:   text,
			Source: domain.BoundaryTextCommand,
			At:     a.clock.Now(),
		})
	})
	if callErr != nil {
		return domain.Status{}, callErr
	}
	return status, err
}

// Status returns the current assistant status.
func (a *Assistant) Status() (domain.Status, error) {
	return a.callStatus(func() {})
}

func (a *Assistant) callStatus(fn func()) (domain.Status, error) {
	var status domain.Status
	err := a.call(func() {
		fn()
		status = a.status()
	})
	return status, err
}

func (a *Assistant) call(fn func()) error {
	reply := make(chan struct{})
	select {
	case a.inbox <- func() { fn(); close(reply) }:
	case <-a.done:
		return ErrAssistantClosed
	}
	select {
	case <-reply:
		return nil
	case <-a.done:
		return ErrAssistantClosed
	}
}

func (a *Assistant) post(fn func()) {
	select {
	case a.inbox <- fn:
	case <-a.done:
	}
}

func (a *Assistant) toggle() error {
	if a.session.Desired() || a.session.Listening() {
		a.stopListening()
		return nil
	}
	return a.startListening()
}

func (a *Assistant) startListening() error {
	if a.stopped {
		return ErrEmergencyStopped
	}
	if !a.session.Supported() {
		a.setResponse(responseUnsupported)
		return ErrVoiceUnsupported
	}
	if err := a.session.Start(a.cfg.Continuous); err != nil {
		if errors.Is(err, ErrVoiceUnsupported) {
			a.setResponse(responseUnsupported)
		}
		return err
	}
	a.setResponse(responseListening)
	return nil
}

func (a *Assistant) stopListening() {
	a.session.Stop()
	a.segmenter.Clear()
}

func (a *Assistant) handleProviderEvent(event domain.ProviderEvent) {
	// After an emergency stop only the end of capture still matters.
	if a.stopped && event.Kind != domain.ProviderEventEnded {
		return
	}
	a.session.HandleEvent(event)
}

func (a *Assistant) sessionStarted() {
	a.events.ListeningChanged(true)
}

func (a *Assistant) transcriptUpdate(event domain.TranscriptEvent) {
	if event.Text != "" && event.Text != a.transcript {
		a.transcript = event.Text
		a.events.TranscriptChanged(event.Text)
	}
	a.segmenter.Update(event, a.session.Continuous())
}

func (a *Assistant) sessionEnded(continuous bool) {
	a.segmenter.End(continuous)
	a.events.ListeningChanged(false)
}

func (a *Assistant) sessionError(_ domain.ProviderErrorKind, _ string) {
	a.segmenter.Clear()
	a.events.ListeningChanged(false)
}

// handleUtterance runs one utterance through safety, rewrite rules, the
// activation gate and the dispatcher, in that order.
func (a *Assistant) handleUtterance(boundary domain.UtteranceBoundary) {
	if a.stopped {
		return
	}
	text := strings.TrimSpace(boundary.Text)
	if text == "" {
		return
	}
	a.log.Debug("utterance", "text", text, "source", boundary.Source)

	if MatchesSafety(text, a.cfg.Safety) {
		a.emergencyStop()
		return
	}
	rewritten := a.rewrite(text)
	if rewritten != text && MatchesSafety(rewritten, a.cfg.Safety) {
		a.emergencyStop()
		return
	}

	result := a.gate.Evaluate(rewritten)
	switch result.decision {
	case gateRejected:
		a.setResponse(keywordPrompt(a.cfg.Keyword))
	case gateActivated:
		a.setResponse(responseGreeting)
	case gateDeactivated:
		a.setResponse(responseDeactivated)
	case gateCommand:
		a.dispatch(result.command)
	}
}

func (a *Assistant) rewrite(text string) string {
	if a.rules == nil {
		return text
	}
	out, err := a.rules.Apply(text)
	if err != nil {
		a.log.Warn("rewrite rules failed", "error", err)
		return text
	}
	if strings.TrimSpace(out) == "" {
		return text
	}
	return out
}

func (a *Assistant) dispatch(cmd string) {
	intent := command.Parse(cmd)
	a.gate.Complete()
	a.log.Info("dispatching intent", "kind", intent.Kind, "url", intent.URL, "query", intent.Query, "direction", intent.Direction)

	if intent.Kind == domain.IntentClearMemory {
		a.transcript = ""
		a.events.TranscriptChanged("")
	}

	response := intentResponse(intent, a.cfg.Keyword)
	if a.actions != nil {
		if err := a.actions.Execute(a.ctx, intent); err != nil {
			a.log.Warn("action failed", "kind", intent.Kind, "error", err)
			a.notifier.Error(domain.ErrorCodeAction, err.Error())
			response = responseActionFailed
		} else if intent.Kind != domain.IntentUnknown {
			a.notifier.Success(response)
		}
	}
	a.setResponse(response)
}

func (a *Assistant) emergencyStop() {
	a.log.Warn("emergency phrase detected, shutting down")
	a.stopped = true
	a.setResponse(responseEmergency)
	a.notifier.Error(domain.ErrorCodeEmergency, noticeEmergency)
	a.stopListening()
	a.gate.Reset()
	if a.shutdown != nil {
		a.shutdownTimer = a.clock.AfterFunc(a.cfg.ShutdownGrace, a.shutdown)
	}
}

func (a *Assistant) teardown() {
	a.stopListening()
	stopTimer(a.shutdownTimer)
}

func (a *Assistant) setResponse(response string) {
	if response == a.response {
		return
	}
	a.response = response
	a.events.ResponseChanged(response)
}

func (a *Assistant) status() domain.Status {
	state := domain.AssistantAwaitingActivation
	switch {
	case a.stopped:
		state = domain.AssistantEmergencyStopped
	case a.gate.State() == domain.ActivationActive:
		state = domain.AssistantListeningForCommand
	}
	return domain.Status{
		State:          state,
		Session:        a.session.State(),
		Activation:     a.gate.State(),
		Listening:      a.session.Listening(),
		VoiceSupported: a.session.Supported(),
		Response:       a.response,
		Transcript:     a.transcript,
	}
}
