package usecase

import (
	"fmt"

	"nina/internal/domain"
)

const (
	responseGreeting     = "What can I do for you?"
	responseListening    = "I'm listening..."
	responseDeactivated  = "Alright, I'll wait until you call me again."
	responseEmergency    = "Emergency command detected. Shutting the assistant down now."
	responseUnsupported  = "Voice recognition is not available here. You can still type your commands."
	responseActionFailed = "I couldn't do that, something went wrong."
	noticeEmergency      = "Emergency stop activated!"
)

func keywordPrompt(keyword string) string {
	return fmt.Sprintf("Say %q first so I know you're talking to me.", keyword)
}

func intentResponse(intent domain.Intent, keyword string) string {
	switch intent.Kind {
	case domain.IntentOpenURL:
		return fmt.Sprintf("Opening %s for you.", intent.URL)
	case domain.IntentSearch:
		return fmt.Sprintf("Searching for %q.", intent.Query)
	case domain.IntentPasswordHint:
		return "Please type your password."
	case domain.IntentScroll:
		if intent.Direction == domain.ScrollUp {
			return "Scrolling the page up."
		}
		return "Scrolling the page down."
	case domain.IntentClearMemory:
		return "Done, I've forgotten what you said."
	default:
		return fmt.Sprintf("I didn't understand that. Repeat it or say %q to wake me again.", keyword)
	}
}

func providerErrorMessage(kind domain.ProviderErrorKind, detail string) string {
	switch kind {
	case domain.ProviderErrorNotAllowed:
		return "Microphone access was denied. Check the microphone permissions."
	case domain.ProviderErrorNoSpeech:
		return "No speech was detected."
	case domain.ProviderErrorNetwork:
		return "Speech recognition lost its network connection."
	case domain.ProviderErrorAudioCapture:
		return "The microphone could not be captured."
	case domain.ProviderErrorAborted:
		return "Speech recognition was interrupted."
	case domain.ProviderErrorUnsupported:
		return responseUnsupported
	default:
		if detail == "" {
			return "Speech recognition error."
		}
		return "Speech recognition error: " + detail
	}
}
