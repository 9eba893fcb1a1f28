package handlers

import (
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/Asdafers/contenitzer-sub001/internal/progress"
)

// ProgressSocket streams a session's progress events over a websocket.
// The backlog is replayed first, then live events until the session's job
// reaches a terminal state, at which point the stream closes normally.
// GET /api/v1/ws/progress/:sessionId
func ProgressSocket(tracker *progress.Tracker, logger *logrus.Logger) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		sessionID := conn.Params("sessionId")
		log := logger.WithField("session_id", sessionID)

		events, cancel := tracker.Subscribe(sessionID)
		defer cancel()
		defer conn.Close()

		// Drain client frames so close/ping handling works; the read
		// result itself is discarded.
		clientGone := make(chan struct{})
		go func() {
			defer close(clientGone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		log.Info("Progress subscriber connected")
		for {
			select {
			case event, open := <-events:
				if !open {
					log.Info("Progress stream finished")
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session terminal"))
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					log.WithError(err).Warn("Progress subscriber write failed")
					return
				}
			case <-clientGone:
				log.Info("Progress subscriber disconnected")
				return
			}
		}
	}
}
