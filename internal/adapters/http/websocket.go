package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/mirage-hunt/mirage/internal/adapters/nats"
	"github.com/mirage-hunt/mirage/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action   string `json:"action"`   // "subscribe" | "unsubscribe"
	Channel  string `json:"channel"`  // "finds" | "leaderboard"
	Question string `json:"question"` // finds only: restrict to one question
}

// wsSubject maps a client subscription to a NATS subject.
func wsSubject(m wsMessage) (string, bool) {
	switch m.Channel {
	case "", "finds":
		if m.Question != "" {
			return natsadapter.SubjectFoundPrefix + m.Question, true
		}
		return natsadapter.SubjectFoundAll, true
	case "leaderboard":
		return natsadapter.SubjectLeaderboard, true
	}
	return "", false
}

// WebSocketHandler relays live game events from NATS to connected clients.
// Every client starts subscribed to all finds and the leaderboard; it may send
// {"action":"subscribe","channel":"finds","question":"<id>"} and the matching
// unsubscribe to narrow or widen the feed.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Debug("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		type envelope struct {
			Subject string          `json:"subject"`
			Data    json.RawMessage `json:"data"`
		}
		subs := make(map[string]*nats.Subscription)
		subscribe := func(subject string) error {
			s, err := nc.Subscribe(subject, func(msg *nats.Msg) {
				_ = writeJSON(envelope{Subject: msg.Subject, Data: msg.Data})
			})
			if err != nil {
				return err
			}
			subs[subject] = s
			return nil
		}
		defer func() {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			slog.Debug("ws client disconnected", "remote", remoteAddr)
		}()

		for _, subject := range []string{natsadapter.SubjectFoundAll, natsadapter.SubjectLeaderboard} {
			if err := subscribe(subject); err != nil {
				slog.Warn("ws default subscribe failed", "subject", subject, "error", err)
				return
			}
		}

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				return
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			subject, ok := wsSubject(m)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				if err := subscribe(subject); err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})
			case "unsubscribe":
				s, exists := subs[subject]
				if !exists {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
					continue
				}
				_ = s.Unsubscribe()
				delete(subs, subject)
				_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}
	}
}
