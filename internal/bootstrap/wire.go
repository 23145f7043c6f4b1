package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"

	"nina/internal/audio"
	"nina/internal/config"
	"nina/internal/domain"
	"nina/internal/ports"
	"nina/internal/providers/deepgram"
	"nina/internal/rules"
	"nina/internal/usecase"
)

// UI is the presentation layer the assistant reports to and acts through.
type UI interface {
	ports.EventSink
	ports.Notifier
	ports.ActionExecutor
}

// Services is the assembled runtime graph.
type Services struct {
	Assistant *usecase.Assistant
	Rules     *rules.Engine
	Watcher   *rules.Watcher
	Config    config.Config
	Logger    *slog.Logger
}

// Options overrides where configuration comes from; the zero value uses the
// real environment.
type Options struct {
	Loader config.Loader
	FS     afero.Fs
	LogOut io.Writer
}

// Build wires all backend dependencies for the current runtime.
func Build(ui UI, shutdown func()) (Services, error) {
	return BuildWith(Options{}, ui, shutdown)
}

func BuildWith(opts Options, ui UI, shutdown func()) (Services, error) {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Loader.FS == nil {
		opts.Loader.FS = opts.FS
	}
	if opts.LogOut == nil {
		opts.LogOut = os.Stderr
	}

	cfg, err := opts.Loader.Load()
	if err != nil {
		return Services{}, err
	}
	logger := config.NewLogger(opts.LogOut, cfg.Log.Level)

	rulesEngine, err := rules.NewEngine(opts.FS, cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}
	var watcher *rules.Watcher
	if cfg.Rules.Watch && cfg.Rules.Path != "" {
		watcher = rules.NewWatcher(rulesEngine, logger)
	}

	assistant := usecase.NewAssistant(
		newRecognizer(cfg, logger),
		rulesEngine,
		ui,
		ui,
		ui,
		shutdown,
		usecase.Config{
			Keyword:           cfg.Assistant.Keyword,
			DeactivatePhrases: cfg.Assistant.DeactivatePhrases,
			Safety: domain.SafetyConfig{
				Safeword:    cfg.Assistant.Safeword,
				Safecommand: cfg.Assistant.Safecommand,
			},
			Continuous:      cfg.Assistant.Continuous,
			ForwardTrailing: cfg.Assistant.ForwardTrailing,
			QuietPeriod:     cfg.Assistant.QuietPeriod,
			RestartDelay:    cfg.Assistant.RestartDelay,
			ShutdownGrace:   cfg.Assistant.ShutdownGrace,
			Logger:          logger,
		},
	)

	return Services{
		Assistant: assistant,
		Rules:     rulesEngine,
		Watcher:   watcher,
		Config:    cfg,
		Logger:    logger,
	}, nil
}

// newRecognizer returns nil when speech cannot work here, so the assistant
// starts in text-only mode.
func newRecognizer(cfg config.Config, logger *slog.Logger) ports.Recognizer {
	if strings.TrimSpace(cfg.Deepgram.APIKey) == "" {
		logger.Warn("DEEPGRAM_API_KEY is not set; voice input disabled")
		return nil
	}
	capture := audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand)
	if err := capture.Available(); err != nil {
		logger.Warn("voice input disabled", "error", err)
		return nil
	}

	return deepgram.NewRecognizer(
		deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
			Endpointing: cfg.Deepgram.EndpointingMS,
		},
		capture,
		ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		cfg.Audio.ChunkSize,
		logger,
	)
}

// Run starts the rules watcher in the background and runs the assistant
// until ctx is done.
func (s Services) Run(ctx context.Context) error {
	if s.Watcher != nil {
		go func() {
			if err := s.Watcher.Run(ctx); err != nil {
				s.Logger.Warn("rules hot reload disabled", "error", err)
			}
		}()
	}
	return s.Assistant.Run(ctx)
}
