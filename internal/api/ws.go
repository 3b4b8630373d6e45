package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tourlab/internal/model"
)

// Run events over WebSocket with a graphql-transport-ws like envelope:
// connection_init/connection_ack, ping/pong, subscribe {runId}, next,
// error and complete.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	RunID string `json:"runId"`
}

// RunEventsWSHandler handles /v1/ws
func (s *Server) RunEventsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	type sub struct {
		runID string
		ch    chan SSEEvent
	}
	var (
		mu   sync.Mutex // guards subs
		subs = map[string]sub{}
	)
	quit := make(chan struct{})
	defer close(quit)

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	// gorilla connections allow one concurrent writer
	var wmu sync.Mutex
	write := func(v wsMessage) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}
	fail := func(id, message string) {
		b, _ := json.Marshal(map[string]string{"message": message})
		_ = write(wsMessage{Type: "error", ID: id, Payload: b})
		_ = write(wsMessage{Type: "complete", ID: id})
	}
	next := func(id string, evt SSEEvent) error {
		b, _ := json.Marshal(evt)
		return write(wsMessage{Type: "next", ID: id, Payload: b})
	}
	unsubscribe := func(id string) {
		mu.Lock()
		s0, ok := subs[id]
		delete(subs, id)
		mu.Unlock()
		if ok {
			s.Broker.Unsubscribe(s0.runID, s0.ch)
		}
	}

	initialized := false
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			if initialized {
				continue
			}
			initialized = true
			_ = write(wsMessage{Type: "connection_ack"})
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-quit:
						return
					case <-ticker.C:
						if err := write(wsMessage{Type: "ping"}); err != nil {
							return
						}
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "pong":
		case "subscribe":
			if !initialized {
				fail(msg.ID, "connection_init required")
				continue
			}
			var pl subscribePayload
			if err := json.Unmarshal(msg.Payload, &pl); err != nil || pl.RunID == "" {
				fail(msg.ID, "runId required")
				continue
			}
			mu.Lock()
			_, dup := subs[msg.ID]
			mu.Unlock()
			if dup {
				fail(msg.ID, "subscription id already in use")
				continue
			}
			done, err := s.Runs.Done(pl.RunID)
			if err != nil {
				fail(msg.ID, err.Error())
				continue
			}
			ch := s.Broker.Subscribe(pl.RunID)
			st, err := s.Runs.Get(pl.RunID)
			if err != nil {
				s.Broker.Unsubscribe(pl.RunID, ch)
				fail(msg.ID, err.Error())
				continue
			}
			if st.State != model.RunRunning {
				s.Broker.Unsubscribe(pl.RunID, ch)
				_ = next(msg.ID, SSEEvent{Type: EventRunFinished, Data: finishedEventData(st)})
				_ = write(wsMessage{Type: "complete", ID: msg.ID})
				continue
			}
			mu.Lock()
			subs[msg.ID] = sub{runID: pl.RunID, ch: ch}
			mu.Unlock()
			go func(id, runID string, c chan SSEEvent) {
				defer func() { _ = write(wsMessage{Type: "complete", ID: id}) }()
				for {
					select {
					case evt, ok := <-c:
						if !ok {
							return
						}
						if next(id, evt) != nil {
							return
						}
						if evt.Type == EventRunFinished {
							unsubscribe(id)
							return
						}
					case <-done:
						defer unsubscribe(id)
						// flush what is queued, then the final status if its event was dropped
						for {
							select {
							case evt, ok := <-c:
								if !ok {
									return
								}
								if next(id, evt) != nil || evt.Type == EventRunFinished {
									return
								}
							default:
								if st, err := s.Runs.Get(runID); err == nil {
									_ = next(id, SSEEvent{Type: EventRunFinished, Data: finishedEventData(st)})
								}
								return
							}
						}
					}
				}
			}(msg.ID, pl.RunID, ch)
		case "complete":
			unsubscribe(msg.ID)
		default:
			// ignore
		}
	}
	mu.Lock()
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	mu.Unlock()
	for _, id := range ids {
		unsubscribe(id)
	}
}
