package deepgram

import "strings"

// utteranceBuffer rebuilds the running text of one utterance. Deepgram
// finalizes speech in pieces (is_final) and only marks the end of the
// utterance with speech_final, so settled pieces are kept and the live
// partial is appended to them.
type utteranceBuffer struct {
	finals  []string
	partial string
}

func (b *utteranceBuffer) Add(c chunk) string {
	text := strings.TrimSpace(c.Text)
	if c.IsFinal {
		if text != "" {
			b.finals = append(b.finals, text)
		}
		b.partial = ""
	} else {
		b.partial = text
	}
	return b.Text()
}

func (b *utteranceBuffer) Text() string {
	joined := strings.Join(b.finals, " ")
	if b.partial == "" {
		return joined
	}
	if joined == "" {
		return b.partial
	}
	return joined + " " + b.partial
}

func (b *utteranceBuffer) Reset() {
	b.finals = nil
	b.partial = ""
}
