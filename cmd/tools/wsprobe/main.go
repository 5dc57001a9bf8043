// Command wsprobe drives a full mock interview against a running API server:
// it starts a session over HTTP, attaches to the streaming channel, sends an
// answer plus binary audio chunks, and prints every envelope it receives.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env, using system environment: %v", err)
	}

	addr := flag.String("addr", "http://localhost:8000", "base URL of the API server")
	interviewType := flag.String("type", "technical", "interview type: technical, behavioral or system-design")
	tier := flag.String("tier", "free", "plan tier: free or premium")
	answer := flag.String("answer", "I would use a hash map and cover the edge cases with tests.", "candidate answer to send")
	chunks := flag.Int("chunks", 16, "number of binary audio chunks to send")
	timeout := flag.Duration("timeout", 30*time.Second, "overall probe timeout")
	flag.Parse()

	started, err := startInterview(*addr, *interviewType, *tier)
	if err != nil {
		log.Fatalf("start_interview failed: %v", err)
	}
	log.Printf("session %s created, greeting: %q", started.SessionID, started.InitialGreeting)

	wsURL := started.WebsocketURL
	if wsURL == "" {
		wsURL = "ws" + strings.TrimPrefix(*addr, "http") + "/ws/" + started.SessionID
	}

	if err := probeChannel(wsURL, *answer, *chunks, *timeout); err != nil {
		log.Fatalf("channel probe failed: %v", err)
	}
	log.Println("probe completed")
}

type startResponse struct {
	SessionID       string `json:"sessionId"`
	InitialGreeting string `json:"initialGreeting"`
	WebsocketURL    string `json:"websocketUrl"`
}

func startInterview(addr, interviewType, tier string) (*startResponse, error) {
	body, err := json.Marshal(map[string]string{
		"interviewType": interviewType,
		"planTier":      tier,
	})
	if err != nil {
		return nil, err
	}

	resp, err := http.Post(addr+"/start_interview", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var started startResponse
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		return nil, err
	}
	if started.SessionID == "" {
		return nil, fmt.Errorf("response missing sessionId")
	}
	return &started, nil
}

func probeChannel(wsURL, answer string, chunks int, timeout time.Duration) error {
	log.Printf("dialing %s", wsURL)
	c, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer c.Close()

	deadline := time.Now().Add(timeout)
	c.SetReadDeadline(deadline)

	// connected control frame
	if err := printEnvelope(c); err != nil {
		return err
	}

	// stream some audio; every 8th chunk yields a simulated partial
	chunk := bytes.Repeat([]byte{0xAB}, 512)
	for i := 0; i < chunks; i++ {
		if err := c.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			return fmt.Errorf("write chunk %d: %w", i, err)
		}
	}
	for i := 0; i < chunks/8; i++ {
		if err := printEnvelope(c); err != nil {
			return err
		}
	}

	if err := c.WriteJSON(map[string]any{
		"type":      "transcript",
		"data":      map[string]string{"text": answer},
		"timestamp": time.Now().UnixMilli(),
	}); err != nil {
		return fmt.Errorf("write answer: %w", err)
	}

	// candidate echo, interviewer reply, feedback
	for i := 0; i < 3; i++ {
		if err := printEnvelope(c); err != nil {
			return err
		}
	}

	if err := c.WriteJSON(map[string]any{
		"type":      "control",
		"data":      map[string]string{"action": "end_interview"},
		"timestamp": time.Now().UnixMilli(),
	}); err != nil {
		return fmt.Errorf("write end_interview: %w", err)
	}
	if err := printEnvelope(c); err != nil {
		return err
	}

	_, _, err = c.ReadMessage()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		return nil
	}
	return err
}

func printEnvelope(c *websocket.Conn) error {
	var envelope struct {
		Type      string          `json:"type"`
		Data      json.RawMessage `json:"data"`
		Timestamp int64           `json:"timestamp"`
	}
	if err := c.ReadJSON(&envelope); err != nil {
		return fmt.Errorf("read envelope: %w", err)
	}
	log.Printf("<- %-10s %s", envelope.Type, string(envelope.Data))
	return nil
}
