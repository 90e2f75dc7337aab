package voice

import (
	"context"
	"strings"
)

// eofSentinel is the text frame a client sends to end the session gracefully.
const eofSentinel = "EOF"

// readLoop receives client frames and relays binary audio to the
// transcription stream until the client disconnects or asks to stop.
// Frames are forwarded in receipt order; there is no backpressure beyond the
// transport's own flow control.
func (s *Session) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			s.logger.Debug("context cancelled, ending receive loop")
			return
		}

		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Debug("receive loop ended", "error", err)
			return
		}

		switch messageType {
		case TextMessage:
			if strings.EqualFold(strings.TrimSpace(string(data)), eofSentinel) {
				s.logger.Info("client sent EOF")
				return
			}
			// Reserved for future control messages.
			s.logger.Debug("ignoring text frame", "size", len(data))
		case BinaryMessage:
			if err := s.sttSession.SendAudio(data); err != nil {
				s.logger.Warn("audio forward failed", "error", err)
				return
			}
		default:
			s.logger.Debug("ignoring frame", "message_type", messageType)
		}
	}
}
