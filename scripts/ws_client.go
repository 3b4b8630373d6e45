// Package main runs a demo WebSocket client that starts a tour search and
// prints its events until the run finishes.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// 30 random cities for simulated annealing
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	seen := map[point]bool{}
	var pts []point
	for len(pts) < 30 {
		p := point{X: float64(rng.Intn(800)), Y: float64(rng.Intn(600))}
		if !seen[p] {
			seen[p] = true
			pts = append(pts, p)
		}
	}
	body, _ := json.Marshal(map[string]any{
		"algorithm": "simulated-annealing",
		"points":    pts,
		"annealing": map[string]any{
			"initialTemperature":        50,
			"minTemperature":            1e-8,
			"alpha":                     0.9,
			"sameTemperatureIterations": 100,
			"maxIterations":             5000,
		},
	})
	resp, err := http.Post(base+"/v1/runs", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("start run: %s", resp.Status)
	}
	var runResp struct {
		RunID string `json:"runId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&runResp); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s", runResp.RunID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]string{"runId": runResp.RunID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			switch m.Type {
			case "next":
				var evt struct {
					Type string         `json:"type"`
					Data map[string]any `json:"data"`
				}
				_ = json.Unmarshal(m.Payload, &evt)
				log.Printf("WS <- %s distance=%v progress=%v", evt.Type, evt.Data["distance"], evt.Data["progress"])
			case "complete":
				return
			default:
				log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
			}
		}
	}()

	select {
	case <-time.After(30 * time.Second):
		log.Printf("timed out, stopping run")
		_, _ = http.Post(fmt.Sprintf("%s/v1/runs/%s/stop", base, runResp.RunID), "application/json", nil)
		<-done
	case <-done:
	}
}
