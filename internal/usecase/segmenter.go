package usecase

import (
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"nina/internal/domain"
)

// UtteranceSegmenter turns transcript updates into utterance boundaries. A
// quiet-period timer and provider finals both close an utterance; whichever
// comes first consumes the pending text so the other emits nothing.
type UtteranceSegmenter struct {
	sched     scheduler
	quiet     time.Duration
	listening func() bool
	emit      func(domain.UtteranceBoundary)

	pending string

	// echo is the text a pause just closed. The provider usually settles it
	// with a final shortly after; that final must not open a new utterance.
	echo   string
	echoAt time.Time

	timer clockwork.Timer
	gen   uint64
}

func newUtteranceSegmenter(
	sched scheduler,
	quiet time.Duration,
	listening func() bool,
	emit func(domain.UtteranceBoundary),
) *UtteranceSegmenter {
	return &UtteranceSegmenter{
		sched:     sched,
		quiet:     quiet,
		listening: listening,
		emit:      emit,
	}
}

// Update records a transcript update. In continuous mode every update, even
// an empty interim one, pushes the quiet deadline back.
func (s *UtteranceSegmenter) Update(event domain.TranscriptEvent, continuous bool) {
	text := strings.TrimSpace(event.Text)
	if text != "" {
		if s.isEcho(text) {
			if event.IsFinal {
				s.echo = ""
			}
			return
		}
		s.pending = text
		s.echo = ""
	}

	if continuous {
		s.resetTimer()
	}
	if event.IsFinal {
		s.flush(domain.BoundaryFinal)
	}
}

// End handles the provider closing the session. Push-to-talk sessions close
// their utterance on end; continuous sessions drop what is pending.
func (s *UtteranceSegmenter) End(continuous bool) {
	if !continuous {
		s.flush(domain.BoundarySessionEnd)
	}
	s.Clear()
}

// Clear cancels the quiet timer and forgets pending text.
func (s *UtteranceSegmenter) Clear() {
	s.cancelTimer()
	s.pending = ""
	s.echo = ""
}

// Pending returns the text of the utterance in progress.
func (s *UtteranceSegmenter) Pending() string { return s.pending }

// isEcho reports whether text repeats the utterance a pause closed less than
// one quiet period ago, with nothing said since.
func (s *UtteranceSegmenter) isEcho(text string) bool {
	if s.pending != "" || s.echo == "" || text != s.echo {
		return false
	}
	return s.sched.clock.Since(s.echoAt) < s.quiet
}

func (s *UtteranceSegmenter) resetTimer() {
	s.cancelTimer()
	gen := s.gen
	s.timer = s.sched.after(s.quiet, func() { s.timeout(gen) })
}

func (s *UtteranceSegmenter) timeout(gen uint64) {
	if gen != s.gen {
		return
	}
	s.timer = nil
	if !s.listening() {
		return
	}
	s.flush(domain.BoundaryPause)
}

func (s *UtteranceSegmenter) flush(source domain.BoundarySource) {
	if s.pending == "" {
		return
	}
	boundary := domain.UtteranceBoundary{
		Text:   s.pending,
		Source: source,
		At:     s.sched.clock.Now(),
	}
	if source == domain.BoundaryPause {
		s.echo = s.pending
		s.echoAt = boundary.At
	}
	s.pending = ""
	s.cancelTimer()
	s.emit(boundary)
}

func (s *UtteranceSegmenter) cancelTimer() {
	stopTimer(s.timer)
	s.timer = nil
	s.gen++
}
