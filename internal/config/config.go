package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration for the assistant.
type Config struct {
	Deepgram  DeepgramConfig  `yaml:"deepgram"`
	Audio     AudioConfig     `yaml:"audio"`
	Rules     RulesConfig     `yaml:"rules"`
	Assistant AssistantConfig `yaml:"assistant"`
	Log       LogConfig       `yaml:"log"`
}

type DeepgramConfig struct {
	APIKey      string `yaml:"api_key"`
	APIBaseURL  string `yaml:"api_base"`
	Model       string `yaml:"model"`
	Language    string `yaml:"language"`
	SmartFormat bool   `yaml:"smart_format"`
	// EndpointingMS is the silence Deepgram waits for before speech_final.
	EndpointingMS int `yaml:"endpointing_ms"`
}

// AudioConfig leaves InputFormat/InputDevice empty to use the platform default.
type AudioConfig struct {
	RecorderCommand string `yaml:"ffmpeg_command"`
	InputFormat     string `yaml:"input_format"`
	InputDevice     string `yaml:"input_device"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	ChunkSize       int    `yaml:"chunk_size"`
}

type RulesConfig struct {
	Path           string `yaml:"path"`
	IterationLimit int    `yaml:"iteration_limit"`
	Watch          bool   `yaml:"watch"`
}

type AssistantConfig struct {
	Keyword           string        `yaml:"keyword"`
	Safeword          string        `yaml:"safeword"`
	Safecommand       string        `yaml:"safecommand"`
	DeactivatePhrases []string      `yaml:"deactivate_phrases"`
	Continuous        bool          `yaml:"continuous"`
	ForwardTrailing   bool          `yaml:"forward_trailing"`
	QuietPeriod       time.Duration `yaml:"quiet_period"`
	RestartDelay      time.Duration `yaml:"restart_delay"`
	ShutdownGrace     time.Duration `yaml:"shutdown_grace"`
	SearchURL         string        `yaml:"search_url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	DefaultSearchURL = "https://www.google.com/search?q=%s"

	// DefaultLanguage matches the French-first command phrases.
	DefaultLanguage = "fr"

	defaultSampleRate = 16000
	defaultChunkSize  = 4096
	defaultLoopLimit  = 30
)

// Defaults returns the configuration used when neither a file nor the
// environment says otherwise.
func Defaults(home string) Config {
	return Config{
		Deepgram: DeepgramConfig{
			APIBaseURL:  "https://api.deepgram.com/v1",
			Model:       "nova-2",
			Language:    DefaultLanguage,
			SmartFormat: true,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			SampleRate:      defaultSampleRate,
			Channels:        1,
			ChunkSize:       defaultChunkSize,
		},
		Rules: RulesConfig{
			Path:           filepath.Join(home, ".config", "nina", "substitutions.rules"),
			IterationLimit: defaultLoopLimit,
			Watch:          true,
		},
		Assistant: AssistantConfig{
			Keyword:           "nina",
			DeactivatePhrases: []string{"stop listening", "go to sleep", "arrête"},
			Continuous:        true,
			QuietPeriod:       2000 * time.Millisecond,
			RestartDelay:      500 * time.Millisecond,
			ShutdownGrace:     2000 * time.Millisecond,
			SearchURL:         DefaultSearchURL,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Loader resolves configuration from an optional YAML file and the
// environment, which wins over the file. Tests swap the filesystem and the
// lookup function.
type Loader struct {
	FS     afero.Fs
	Lookup func(string) (string, bool)
	Home   func() (string, error)
}

// Load resolves configuration from the real filesystem and environment.
func Load() (Config, error) {
	return Loader{}.Load()
}

func (l Loader) Load() (Config, error) {
	if l.FS == nil {
		l.FS = afero.NewOsFs()
	}
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.Home == nil {
		l.Home = os.UserHomeDir
	}

	home, err := l.Home()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	cfg := Defaults(home)

	path, explicit := l.string("NINA_CONFIG_FILE")
	if !explicit {
		path = filepath.Join(home, ".config", "nina", "config.yaml")
	}
	if err := l.applyFile(path, explicit, &cfg); err != nil {
		return Config{}, err
	}

	l.applyEnv(&cfg)
	normalize(&cfg)
	return cfg, nil
}

func (l Loader) applyFile(path string, required bool, cfg *Config) error {
	contents, err := afero.ReadFile(l.FS, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return fmt.Errorf("config: decode %q: %w", path, err)
	}
	return nil
}

func (l Loader) applyEnv(cfg *Config) {
	overrideString(l, "DEEPGRAM_API_KEY", &cfg.Deepgram.APIKey)
	overrideString(l, "DEEPGRAM_API_BASE", &cfg.Deepgram.APIBaseURL)
	overrideString(l, "DEEPGRAM_MODEL", &cfg.Deepgram.Model)
	overrideString(l, "DEEPGRAM_LANGUAGE", &cfg.Deepgram.Language)
	overrideBool(l, "DEEPGRAM_SMART_FORMAT", &cfg.Deepgram.SmartFormat)
	overrideInt(l, "DEEPGRAM_ENDPOINTING_MS", &cfg.Deepgram.EndpointingMS)

	overrideString(l, "NINA_FFMPEG_COMMAND", &cfg.Audio.RecorderCommand)
	overrideString(l, "NINA_AUDIO_INPUT_FORMAT", &cfg.Audio.InputFormat)
	overrideString(l, "NINA_AUDIO_INPUT_DEVICE", &cfg.Audio.InputDevice)
	overrideInt(l, "NINA_SAMPLE_RATE", &cfg.Audio.SampleRate)
	overrideInt(l, "NINA_CHANNELS", &cfg.Audio.Channels)
	overrideInt(l, "NINA_AUDIO_CHUNK_SIZE", &cfg.Audio.ChunkSize)

	overrideString(l, "NINA_RULES_FILE", &cfg.Rules.Path)
	overrideInt(l, "NINA_RULE_ITERATION_LIMIT", &cfg.Rules.IterationLimit)
	overrideBool(l, "NINA_RULES_WATCH", &cfg.Rules.Watch)

	overrideString(l, "NINA_KEYWORD", &cfg.Assistant.Keyword)
	overrideString(l, "NINA_SAFEWORD", &cfg.Assistant.Safeword)
	overrideString(l, "NINA_SAFECOMMAND", &cfg.Assistant.Safecommand)
	if raw, ok := l.string("NINA_DEACTIVATE_PHRASES"); ok {
		cfg.Assistant.DeactivatePhrases = splitList(raw)
	}
	overrideBool(l, "NINA_CONTINUOUS", &cfg.Assistant.Continuous)
	overrideBool(l, "NINA_FORWARD_TRAILING", &cfg.Assistant.ForwardTrailing)
	overrideMillis(l, "NINA_QUIET_PERIOD_MS", &cfg.Assistant.QuietPeriod)
	overrideMillis(l, "NINA_RESTART_DELAY_MS", &cfg.Assistant.RestartDelay)
	overrideMillis(l, "NINA_SHUTDOWN_GRACE_MS", &cfg.Assistant.ShutdownGrace)
	overrideString(l, "NINA_SEARCH_URL", &cfg.Assistant.SearchURL)

	overrideString(l, "NINA_LOG_LEVEL", &cfg.Log.Level)
}

// normalize replaces out-of-range values with defaults.
func normalize(cfg *Config) {
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = defaultSampleRate
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = defaultChunkSize
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = defaultLoopLimit
	}
	if strings.TrimSpace(cfg.Assistant.Keyword) == "" {
		cfg.Assistant.Keyword = "nina"
	}
	if strings.TrimSpace(cfg.Assistant.SearchURL) == "" {
		cfg.Assistant.SearchURL = DefaultSearchURL
	}
	if cfg.Deepgram.EndpointingMS < 0 {
		cfg.Deepgram.EndpointingMS = 0
	}
}

func (l Loader) string(key string) (string, bool) {
	value, ok := l.Lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func overrideString(l Loader, key string, target *string) {
	if value, ok := l.string(key); ok {
		*target = value
	}
}

func overrideInt(l Loader, key string, target *int) {
	value, ok := l.string(key)
	if !ok {
		return
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		*target = parsed
	}
}

// overrideMillis accepts non-negative millisecond counts.
func overrideMillis(l Loader, key string, target *time.Duration) {
	value, ok := l.string(key)
	if !ok {
		return
	}
	if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
		*target = time.Duration(parsed) * time.Millisecond
	}
}

func overrideBool(l Loader, key string, target *bool) {
	value, ok := l.string(key)
	if !ok {
		return
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		*target = true
	case "0", "false", "no", "off":
		*target = false
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
