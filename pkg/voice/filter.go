package voice

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/arcnova-labs/arcnova/pkg/textkit"
)

const (
	// debounceWindow suppresses a repeated identical transcript for this long
	// after it was last accepted.
	debounceWindow = 2 * time.Second

	// maxNoiseRunes is the longest normalized transcript still treated as
	// noise rather than an utterance worth answering.
	maxNoiseRunes = 2
)

// turnFilter decides whether a final transcript starts a response run. It is
// stateful per Session: it remembers the last accepted text for duplicate
// suppression and holds the single-flight gate that keeps a second run from
// starting while one is active.
type turnFilter struct {
	logger *slog.Logger
	busy   atomic.Bool

	mu       sync.Mutex
	lastText string
	lastAt   time.Time
}

func newTurnFilter(logger *slog.Logger) *turnFilter {
	return &turnFilter{logger: logger}
}

// shouldProcess reports whether text should start a response run now.
// Check order matters: a duplicate within the debounce window is rejected
// before the busy gate is consulted, and a busy rejection leaves the
// last-accepted state untouched. On acceptance the gate is held until
// release is called.
func (f *turnFilter) shouldProcess(text string, now time.Time) bool {
	norm := textkit.Normalize(text)

	f.mu.Lock()
	duplicate := norm == f.lastText && now.Sub(f.lastAt) < debounceWindow
	f.mu.Unlock()
	if duplicate {
		f.logger.Debug("skipping duplicate transcript", "text", norm)
		return false
	}

	if utf8.RuneCountInString(norm) <= maxNoiseRunes {
		f.logger.Debug("skipping short transcript", "text", norm)
		return false
	}

	if !f.busy.CompareAndSwap(false, true) {
		f.logger.Info("skipping transcript, response in progress", "text", norm)
		return false
	}

	f.mu.Lock()
	f.lastText = norm
	f.lastAt = now
	f.mu.Unlock()
	return true
}

// release clears the single-flight gate. Called unconditionally when a
// response run finishes, successfully or not.
func (f *turnFilter) release() {
	f.busy.Store(false)
}
