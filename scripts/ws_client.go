// Package main runs a demo WebSocket client against a local instance:
// imports two stops, requests a plan, completes one stop and prints the
// events that come back.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
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

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Import two stops
	body := []byte(`{"stops":[
		{"rawAddress":"12 Main St","geo":{"lat":40.71,"lng":-74.00}},
		{"rawAddress":"34 Oak Ave","geo":{"lat":40.72,"lng":-74.01}}
	]}`)
	resp, err := http.Post(base+"/v1/stops", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	var imported struct {
		Stops []struct {
			ID string `json:"id"`
		} `json:"stops"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&imported); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	if len(imported.Stops) == 0 {
		log.Fatal("no stops imported")
	}
	log.Printf("Imported %d stops", len(imported.Stops))

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/route/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1"}); err != nil {
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
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Request a plan, then complete the first stop to trigger a replan
	plan := []byte(`{"origin":{"latitude":40.70,"longitude":-74.00}}`)
	if _, err := http.Post(base+"/v1/route/plan", "application/json", bytes.NewReader(plan)); err != nil {
		log.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	complete := fmt.Sprintf("%s/v1/stops/%s/complete", base, imported.Stops[0].ID)
	if _, err := http.Post(complete, "application/json", bytes.NewReader([]byte(`{"note":"left at door"}`))); err != nil {
		log.Fatal(err)
	}

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
