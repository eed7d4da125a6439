package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/camino-tours/camino/internal/core/domain"
	"github.com/camino-tours/camino/internal/core/usecases"
	"github.com/camino-tours/camino/internal/pkg/metrics"
)

// walkClientMessage is what a walking client sends over the socket.
type walkClientMessage struct {
	Type   string  `json:"type"` // start | position | position_error | media_ended | media_error | skip_forward | skip_back | skip_now | toggle_pause | close
	TourID string  `json:"tour_id,omitempty"`
	Lat    float64 `json:"lat,omitempty"`
	Lon    float64 `json:"lon,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

// wsWriter serializes all writes on a single connection.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

// wsMediaController drives the client's player by sending media commands
// over the socket. The client reports back with media_ended / media_error.
type wsMediaController struct {
	w *wsWriter
}

func (m *wsMediaController) Load(media domain.MediaRef) error {
	return m.w.writeJSON(mediaCommand("load", string(media.Kind), media.URL))
}

func (m *wsMediaController) Play()  { _ = m.w.writeJSON(mediaCommand("play", "", "")) }
func (m *wsMediaController) Pause() { _ = m.w.writeJSON(mediaCommand("pause", "", "")) }
func (m *wsMediaController) Stop()  { _ = m.w.writeJSON(mediaCommand("stop", "", "")) }

func mediaCommand(command, kind, url string) map[string]string {
	msg := map[string]string{"type": "media", "command": command}
	if kind != "" {
		msg["kind"] = kind
	}
	if url != "" {
		msg["url"] = url
	}
	return msg
}

// WalkSocketHandler runs a walking-mode session over a WebSocket. The first
// client message must be {"type":"start","tour_id":"..."}; afterwards the
// client streams position fixes and media/skip events, and the server pushes
// a full state snapshot after every transition.
func WalkSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		w := &wsWriter{conn: c}

		// First message opens the session.
		var start walkClientMessage
		if err := c.ReadJSON(&start); err != nil || start.Type != "start" || start.TourID == "" {
			_ = w.writeJSON(map[string]string{"type": "error", "error": "expected start message with tour_id"})
			return
		}

		handler := func(snap usecases.WalkSnapshot) {
			_ = w.writeJSON(map[string]interface{}{"type": "state", "session": snap})
		}

		session, err := deps.Walks.StartWalk(context.Background(), start.TourID, handler,
			usecases.WithMediaController(&wsMediaController{w: w}),
		)
		if err != nil {
			_ = w.writeJSON(map[string]string{"type": "error", "error": err.Error()})
			return
		}
		defer deps.Walks.EndWalk(context.Background(), session)

		slog.Info("walk session opened", "session_id", session.ID(), "tour_id", start.TourID)

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if w.ping() != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			var m walkClientMessage
			if err := c.ReadJSON(&m); err != nil {
				break
			}

			switch m.Type {
			case "position":
				session.UpdatePosition(m.Lat, m.Lon)
			case "position_error":
				session.PositionUnavailable(m.Reason)
			case "media_ended":
				session.MediaEnded()
			case "media_error":
				session.MediaFailed()
			case "skip_forward":
				session.SkipForward()
			case "skip_back":
				session.SkipBack()
			case "skip_now":
				session.SkipCountdown()
			case "toggle_pause":
				session.TogglePause()
			case "close":
				slog.Info("walk session closed by client", "session_id", session.ID())
				return
			default:
				_ = w.writeJSON(map[string]string{"type": "error", "error": "unknown message type: " + m.Type})
			}
		}
	}
}

// feedMessage is sent from observers to subscribe/unsubscribe to live feeds.
type feedMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Session string `json:"session"` // session ID filter (optional, "" = all)
	Channel string `json:"channel"` // "walks" | "tours" (default: walks)
}

// FeedSocketHandler relays live platform events (walk telemetry, tour
// publications) from NATS to connected observers, e.g. an author dashboard
// watching walkers on their tour.
func FeedSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		w := &wsWriter{conn: c}
		if nc == nil {
			_ = w.writeJSON(map[string]string{"error": "live feed unavailable"})
			return
		}
		subs := make(map[string]*nats.Subscription)

		// Observers get all walk telemetry by default.
		defaultSubject := "walk.session.>"
		sub, err := nc.Subscribe(defaultSubject, func(msg *nats.Msg) {
			_ = w.writeJSON(json.RawMessage(msg.Data))
		})
		if err != nil {
			slog.Warn("feed default subscribe failed", "error", err)
			return
		}
		subs[defaultSubject] = sub

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if w.ping() != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m feedMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = w.writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			channel := m.Channel
			if channel == "" {
				channel = "walks"
			}

			var subject string
			switch channel {
			case "walks":
				if m.Session != "" {
					subject = "walk.session." + m.Session
				} else {
					subject = "walk.session.>"
				}
			case "tours":
				subject = "tour.published"
			default:
				_ = w.writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = w.writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, func(msg *nats.Msg) {
					_ = w.writeJSON(json.RawMessage(msg.Data))
				})
				if err != nil {
					_ = w.writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = w.writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = w.writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = w.writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = w.writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
	}
}
