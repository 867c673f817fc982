// Package main runs a demo client: it opens the simulation event stream,
// triggers a run, and prints the events it receives.
package main

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/simulations/stream"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			if err := c.ReadJSON(&evt); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %v", evt.Type, evt.Data)
		}
	}()

	// Trigger a run
	time.Sleep(500 * time.Millisecond)
	body := []byte(`{"numberOfDrivers":2,"routeStartTime":"09:00","maxHoursPerDriver":8}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/simulations/run", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Role", "manager")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("run -> %s", resp.Status)
	_ = resp.Body.Close()

	select {
	case <-time.After(3 * time.Second):
	case <-done:
	}
}
