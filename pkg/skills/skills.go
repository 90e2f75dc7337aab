// Package skills recognizes natural-language commands in user transcripts
// and answers them from live data sources instead of the language model.
//
// Each skill exposes a fast Matches check used to route a transcript and a
// Handle method that produces speech-ready text. The dispatcher tries skills
// in registration order and falls through to the language model when none
// match.
package skills

import (
	"context"
	"log/slog"
	"strings"

	"github.com/arcnova-labs/arcnova/internal/log"
)

// Skill answers one family of natural-language commands.
type Skill interface {
	// Name identifies the skill in logs.
	Name() string

	// Matches reports whether text looks like a command for this skill.
	Matches(text string) bool

	// Handle executes the command and returns speech-ready text.
	Handle(ctx context.Context, text string) string
}

// Dispatcher routes transcripts to the first matching skill.
type Dispatcher struct {
	skills []Skill
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher trying skills in the given order.
func NewDispatcher(skills ...Skill) *Dispatcher {
	return &Dispatcher{
		skills: skills,
		logger: log.Component("skills"),
	}
}

// Handle runs the first skill whose Matches accepts text. The second return
// is false when no skill claimed the transcript.
func (d *Dispatcher) Handle(ctx context.Context, text string) (string, bool) {
	for _, s := range d.skills {
		if !s.Matches(text) {
			continue
		}
		d.logger.Info("skill matched", "skill", s.Name())
		return s.Handle(ctx, text), true
	}
	return "", false
}

// stripPrefixes removes leading politeness fillers so command patterns can
// anchor at the start of the real request.
func stripPrefixes(text string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(text, p) {
			text = strings.TrimSpace(text[len(p):])
		}
	}
	return text
}
