package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"nina/internal/bootstrap"
	"nina/internal/command"
	"nina/internal/config"
	"nina/internal/domain"
	"nina/internal/usecase"
)

const (
	eventListening  = "nina:listening"
	eventResponse   = "nina:response"
	eventTranscript = "nina:transcript"
	eventToast      = "nina:toast"
	eventScroll     = "nina:scroll"
	eventPassword   = "nina:password"
	eventClear      = "nina:clear"
)

// App is the Wails application root. It is also the assistant's event sink,
// notifier and action executor.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	assistant *usecase.Assistant
	cfg       config.Config
	log       *slog.Logger
	bootErr   error

	emit    func(ctx context.Context, name string, data ...interface{})
	openURL func(ctx context.Context, url string)
	quit    func(ctx context.Context)
}

func NewApp() *App {
	return &App{
		emit:    runtime.EventsEmit,
		openURL: runtime.BrowserOpenURL,
		quit:    runtime.Quit,
		log:     slog.Default(),
	}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, a.Shutdown)
	if err != nil {
		a.bootErr = err
		a.Error(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.log = services.Logger
	a.assistant = services.Assistant

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go func() {
		if err := services.Run(runCtx); err != nil && runCtx.Err() == nil {
			a.log.Error("assistant stopped", "error", err)
		}
	}()

	if a.cfg.Assistant.Continuous {
		if _, err := a.assistant.StartListening(); err != nil {
			a.log.Info("voice input not started", "error", err)
		}
	}
}

func (a *App) shutdown(_ context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
}

// ToggleListening starts or stops the microphone.
func (a *App) ToggleListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.assistant.ToggleListening()
}

// SubmitTextCommand runs typed text through the same path as speech.
func (a *App) SubmitTextCommand(text string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.assistant.SubmitTextCommand(text)
}

// GetStatus returns the current assistant status.
func (a *App) GetStatus() domain.Status {
	if a.assistant == nil {
		status := domain.Status{
			State:      domain.AssistantAwaitingActivation,
			Session:    domain.SessionStateStopped,
			Activation: domain.ActivationIdle,
		}
		if a.bootErr != nil {
			status.Session = domain.SessionStateErrored
			status.Response = a.bootErr.Error()
		}
		return status
	}
	status, err := a.assistant.Status()
	if err != nil {
		return domain.Status{State: domain.AssistantAwaitingActivation, Session: domain.SessionStateStopped, Response: err.Error()}
	}
	return status
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"provider":   "Deepgram",
		"model":      a.cfg.Deepgram.Model,
		"language":   a.cfg.Deepgram.Language,
		"keyword":    a.cfg.Assistant.Keyword,
		"rulesFile":  a.cfg.Rules.Path,
		"audioInput": a.cfg.Audio.InputDevice,
		"continuous": fmt.Sprintf("%t", a.cfg.Assistant.Continuous),
	}
}

// Shutdown quits the application. The assistant calls it after an
// emergency stop.
func (a *App) Shutdown() {
	if a.ctx == nil {
		return
	}
	a.quit(a.ctx)
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.assistant == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) ListeningChanged(listening bool) {
	a.send(eventListening, map[string]bool{"listening": listening})
}

func (a *App) ResponseChanged(response string) {
	a.send(eventResponse, map[string]string{"text": response})
}

func (a *App) TranscriptChanged(text string) {
	a.send(eventTranscript, map[string]string{"text": text})
}

// Success shows a confirmation toast.
func (a *App) Success(message string) {
	a.send(eventToast, map[string]string{"kind": "success", "message": message})
}

// Error shows an error toast.
func (a *App) Error(code domain.ErrorCode, detail string) {
	a.send(eventToast, map[string]string{
		"kind":    "error",
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// Execute performs an intent. Browser intents open the system browser;
// page intents are forwarded to the frontend.
func (a *App) Execute(_ context.Context, intent domain.Intent) error {
	if a.ctx == nil {
		return fmt.Errorf("application is not initialized")
	}

	switch intent.Kind {
	case domain.IntentOpenURL:
		a.openURL(a.ctx, intent.URL)
	case domain.IntentSearch:
		a.openURL(a.ctx, command.SearchURL(a.cfg.Assistant.SearchURL, intent.Query))
	case domain.IntentScroll:
		a.send(eventScroll, map[string]string{"direction": string(intent.Direction)})
	case domain.IntentPasswordHint:
		a.send(eventPassword, nil)
	case domain.IntentClearMemory:
		a.send(eventClear, nil)
	case domain.IntentUnknown:
	default:
		return fmt.Errorf("unsupported intent %q", intent.Kind)
	}
	return nil
}

func (a *App) send(name string, payload interface{}) {
	if a.ctx == nil {
		return
	}
	if payload == nil {
		a.emit(a.ctx, name)
		return
	}
	a.emit(a.ctx, name, payload)
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeUnsupported:
		return "Voice input unavailable"
	case domain.ErrorCodeProvider:
		return "Speech recognition error"
	case domain.ErrorCodeAction:
		return "Command failed"
	case domain.ErrorCodeEmergency:
		return "Emergency stop"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
