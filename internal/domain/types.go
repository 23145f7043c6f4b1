package domain

import "time"

// SessionState models the transcription capture lifecycle.
type SessionState string

const (
	SessionStateStopped   SessionState = "stopped"
	SessionStateStarting  SessionState = "starting"
	SessionStateListening SessionState = "listening"
	SessionStateErrored   SessionState = "errored"
)

// ActivationState tracks whether the keyword has been heard.
type ActivationState string

const (
	ActivationIdle   ActivationState = "idle"
	ActivationActive ActivationState = "active"
)

// AssistantState is the controller-level state exposed to the UI.
type AssistantState string

const (
	AssistantAwaitingActivation  AssistantState = "awaiting_activation"
	AssistantListeningForCommand AssistantState = "listening_for_command"
	AssistantEmergencyStopped    AssistantState = "emergency_stopped"
)

// ProviderEventKind identifies a raw event from the transcription provider.
type ProviderEventKind string

const (
	ProviderEventStarted ProviderEventKind = "started"
	ProviderEventResult  ProviderEventKind = "result"
	ProviderEventEnded   ProviderEventKind = "ended"
	ProviderEventError   ProviderEventKind = "error"
)

// ProviderErrorKind classifies provider failures.
type ProviderErrorKind string

const (
	ProviderErrorNotAllowed   ProviderErrorKind = "not_allowed"
	ProviderErrorNoSpeech     ProviderErrorKind = "no_speech"
	ProviderErrorNetwork      ProviderErrorKind = "network"
	ProviderErrorAudioCapture ProviderErrorKind = "audio_capture"
	ProviderErrorAborted      ProviderErrorKind = "aborted"
	ProviderErrorUnsupported  ProviderErrorKind = "unsupported"
	ProviderErrorOther        ProviderErrorKind = "other"
)

// ProviderEvent is what a recognizer delivers, in emission order.
type ProviderEvent struct {
	Kind    ProviderEventKind `json:"kind"`
	Text    string            `json:"text,omitempty"`
	IsFinal bool              `json:"isFinal,omitempty"`
	Error   ProviderErrorKind `json:"error,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

// TranscriptEvent is a normalized transcript update.
type TranscriptEvent struct {
	Text      string    `json:"text"`
	IsFinal   bool      `json:"isFinal"`
	Timestamp time.Time `json:"timestamp"`
}

// BoundarySource records which signal closed an utterance.
type BoundarySource string

const (
	BoundaryPause       BoundarySource = "pause"
	BoundaryFinal       BoundarySource = "final"
	BoundarySessionEnd  BoundarySource = "session_end"
	BoundaryTextCommand BoundarySource = "text"
)

// UtteranceBoundary marks the end of one utterance.
type UtteranceBoundary struct {
	Text   string         `json:"text"`
	Source BoundarySource `json:"source"`
	At     time.Time      `json:"at"`
}

// IntentKind identifies the parsed command.
type IntentKind string

const (
	IntentOpenURL      IntentKind = "open_url"
	IntentSearch       IntentKind = "search"
	IntentScroll       IntentKind = "scroll"
	IntentPasswordHint IntentKind = "password_hint"
	IntentClearMemory  IntentKind = "clear_memory"
	IntentUnknown      IntentKind = "unknown"
)

// ScrollDirection is the argument of a scroll intent.
type ScrollDirection string

const (
	ScrollUp   ScrollDirection = "up"
	ScrollDown ScrollDirection = "down"
)

// Intent is the result of parsing one activated utterance. Only the field
// matching Kind is set.
type Intent struct {
	Kind      IntentKind      `json:"kind"`
	URL       string          `json:"url,omitempty"`
	Query     string          `json:"query,omitempty"`
	Direction ScrollDirection `json:"direction,omitempty"`
}

// SafetyConfig holds the emergency phrases chosen by the user.
type SafetyConfig struct {
	Safeword    string `json:"safeword"`
	Safecommand string `json:"safecommand"`
}

// ErrorCode identifies errors surfaced to the user.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeUnsupported ErrorCode = "unsupported"
	ErrorCodeProvider    ErrorCode = "provider"
	ErrorCodeAction      ErrorCode = "action"
	ErrorCodeEmergency   ErrorCode = "emergency"
)

// Status summarizes the assistant for the presentation layer.
type Status struct {
	State          AssistantState  `json:"state"`
	Session        SessionState    `json:"session"`
	Activation     ActivationState `json:"activation"`
	Listening      bool            `json:"listening"`
	VoiceSupported bool            `json:"voiceSupported"`
	Response       string          `json:"response"`
	Transcript     string          `json:"transcript,omitempty"`
}
