package usecase

import (
	"github.com/samber/lo"

	"nina/internal/command"
	"nina/internal/domain"
)

type gateDecision int

const (
	// gateRejected: idle and no keyword, nothing is dispatched.
	gateRejected gateDecision = iota
	gateActivated
	gateDeactivated
	gateCommand
)

type gateResult struct {
	decision gateDecision
	command  string
}

// ActivationGate lets commands through only after the keyword was heard,
// and for one command at a time.
type ActivationGate struct {
	keyword         string
	deactivate      []string
	forwardTrailing bool

	state domain.ActivationState
}

func newActivationGate(keyword string, deactivate []string, forwardTrailing bool) *ActivationGate {
	return &ActivationGate{
		keyword: command.Normalize(keyword),
		deactivate: lo.FilterMap(deactivate, func(p string, _ int) (string, bool) {
			n := command.Normalize(p)
			return n, n != ""
		}),
		forwardTrailing: forwardTrailing,
		state:           domain.ActivationIdle,
	}
}

// Evaluate decides what one utterance means for the gate. A gateCommand
// result leaves the gate active until Complete is called.
func (g *ActivationGate) Evaluate(text string) gateResult {
	normalized := command.Normalize(text)
	heard := g.keyword != "" && command.ContainsPhrase(normalized, g.keyword)

	if g.state == domain.ActivationIdle {
		if !heard {
			return gateResult{decision: gateRejected}
		}
		g.state = domain.ActivationActive
		if g.forwardTrailing {
			if rest := command.StripPhrase(text, g.keyword); rest != "" {
				return gateResult{decision: gateCommand, command: rest}
			}
		}
		return gateResult{decision: gateActivated}
	}

	if lo.Contains(g.deactivate, normalized) {
		g.state = domain.ActivationIdle
		return gateResult{decision: gateDeactivated}
	}
	if normalized == g.keyword {
		return gateResult{decision: gateActivated}
	}
	if heard {
		text = command.StripPhrase(text, g.keyword)
	}
	return gateResult{decision: gateCommand, command: text}
}

// Complete returns the gate to idle once a command has been dispatched.
func (g *ActivationGate) Complete() { g.state = domain.ActivationIdle }

// Reset forces the gate back to idle.
func (g *ActivationGate) Reset() { g.state = domain.ActivationIdle }

func (g *ActivationGate) State() domain.ActivationState { return g.state }
