package voice

import (
	"context"
	"strings"
	"time"

	"github.com/arcnova-labs/arcnova/pkg/stt"
)

// enqueueEvent is the transcription provider's callback. It runs on the
// provider's read goroutine, so it only hands the event off and returns;
// a full queue drops the event rather than blocking the provider.
func (s *Session) enqueueEvent(ev stt.Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("transcript event dropped, queue full")
	}
}

// routeEvents drains the transcript queue on a Session-owned goroutine until
// teardown begins.
func (s *Session) routeEvents(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.handleEvent(ctx, ev)
		}
	}
}

// handleEvent relays one transcript event to the client and, for end-of-turn
// events that pass the filter, starts a response run. Send failures are
// logged by sendJSON and do not stop routing.
func (s *Session) handleEvent(ctx context.Context, ev stt.Event) {
	if strings.TrimSpace(ev.Text) == "" {
		return
	}

	_ = s.sendJSON(newTranscriptMsg(ev.Text, ev.EndOfTurn))

	if !ev.EndOfTurn {
		return
	}
	if !s.filter.shouldProcess(ev.Text, time.Now()) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.filter.release()
		s.respond(ctx, ev.Text)
	}()
}
