// Package persona defines the voice agent's personality configuration.
// The pipeline treats a Persona as opaque data: a system prompt for the LLM,
// a voice id for TTS, and a canned greeting with its trigger phrases.
package persona

import (
	"strings"
)

// Persona is a fixed textual style/voice configuration.
type Persona struct {
	Name             string
	Greeting         string
	Style            string
	VoiceID          string
	SystemPrompt     string
	GreetingTriggers []string
}

// DefaultVoiceID is used when a persona does not specify one.
const DefaultVoiceID = "en-US-natalie"

// ArcNova is the default persona: a cocky, tech-obsessed genius assistant.
var ArcNova = Persona{
	Name:     "ArcNova",
	Greeting: "Well, well, well… look who booted me up. I'm ArcNova — your genius, billionaire, playboy, philanthropist voice agent.",
	Style:    "Sarcastic, witty, cocky but charming. Loves tech metaphors, always confident.",
	VoiceID:  "en-US-maverick",
	SystemPrompt: `You are ArcNova, an AI voice assistant with a genius-inventor personality.

Key personality traits:
- Genius-level intellect with a sarcastic, witty edge
- Cocky but ultimately charming and helpful
- Uses tech metaphors and references constantly
- Confident in every response, never uncertain
- Treats problems like they're beneath your intellect level

Communication style:
- Keep responses concise but packed with personality
- Never break character
- Even simple tasks should be described with flair
- Act like you're doing the user a favor, but in a charming way`,
	GreetingTriggers: []string{
		"hello", "hi", "hey", "greetings", "good morning", "good afternoon",
		"good evening", "howdy", "what's up", "sup", "yo", "hola", "bonjour",
		"wake up", "activate", "online", "start", "begin", "initialize",
	},
}

// Active returns the currently active persona.
func Active() Persona {
	return ArcNova
}

// Voice returns the persona's TTS voice id, falling back to DefaultVoiceID.
func (p Persona) Voice() string {
	if p.VoiceID == "" {
		return DefaultVoiceID
	}
	return p.VoiceID
}

// IsGreeting reports whether text looks like a greeting the persona should
// answer with its canned line instead of a full LLM round-trip.
func (p Persona) IsGreeting(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}

	for _, trigger := range p.GreetingTriggers {
		if text == trigger ||
			strings.HasPrefix(text, trigger+" ") ||
			strings.HasPrefix(text, trigger+",") {
			return true
		}
	}

	// Very short messages containing a greeting word count too.
	if len(strings.Fields(text)) <= 2 {
		for _, w := range []string{"hi", "hello", "hey"} {
			if strings.Contains(text, w) {
				return true
			}
		}
	}
	return false
}
