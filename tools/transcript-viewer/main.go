// Transcript Viewer - watches mirrored replay records and bridge events.
// Consumes the restream Kafka mirror topics and pushes them to browsers over WebSocket.
package main

import (
	"context"
	"embed"
	"encoding/json"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
)

//go:embed static/*
var staticFiles embed.FS

// ViewerEvent is what the browser receives, whichever topic it came from.
type ViewerEvent struct {
	Source    string `json:"source"` // "replay" or "bridge"
	Key       string `json:"key"`    // session id or transcript id
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	TimeCode  string `json:"timeCode,omitempty"`
	Final     *bool  `json:"isFinal,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type replayEnvelope struct {
	SessionID string `json:"session_id"`
	Body      struct {
		TimeCode string `json:"time_code"`
		Speaker  string `json:"speaker"`
		Sentence string `json:"sentence"`
	} `json:"body"`
}

type bridgeEvent struct {
	Timestamp int64  `json:"timestamp"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	IsFinal   *bool  `json:"is_final"`
}

// decodeFunc turns a Kafka message into a viewer event.
type decodeFunc func(msg kafka.Message) (ViewerEvent, error)

func decodeReplay(msg kafka.Message) (ViewerEvent, error) {
	var env replayEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return ViewerEvent{}, err
	}
	return ViewerEvent{
		Source:    "replay",
		Key:       env.SessionID,
		Speaker:   env.Body.Speaker,
		Text:      env.Body.Sentence,
		TimeCode:  env.Body.TimeCode,
		Timestamp: msg.Time.Unix(),
	}, nil
}

func decodeBridge(msg kafka.Message) (ViewerEvent, error) {
	var ev bridgeEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ViewerEvent{}, err
	}
	return ViewerEvent{
		Source:    "bridge",
		Key:       string(msg.Key),
		Speaker:   ev.Speaker,
		Text:      ev.Text,
		Final:     ev.IsFinal,
		Timestamp: ev.Timestamp,
	}, nil
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan ViewerEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan ViewerEvent, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client connected. Total: %d", n)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client disconnected. Total: %d", n)

		case event := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(event); err != nil {
					log.Printf("Write error: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dev tool
	},
}

func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}
		hub.register <- conn

		go func() {
			defer func() {
				hub.unregister <- conn
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func consumeKafka(ctx context.Context, hub *Hub, brokers, topic string, decode decodeFunc) {
	// Partition reader without a consumer group works better through port-forward
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(brokers, ","),
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour)); err != nil {
		log.Printf("Could not rewind %s: %v", topic, err)
	}
	log.Printf("Consuming from Kafka topic: %s partition 0 (last hour)", topic)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		event, err := decode(msg)
		if err != nil {
			log.Printf("Decode error on %s: %v", topic, err)
			continue
		}

		log.Printf("Received %s %s: %s", event.Source, event.Key, truncate(event.Text, 40))
		select {
		case hub.broadcast <- event:
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicRecords := flag.String("topic-records", "transcript.replay.record", "Mirrored replay record topic")
	topicBridge := flag.String("topic-bridge", "transcript.bridge.event", "Mirrored bridge event topic")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newHub()
	go hub.run(ctx)

	go consumeKafka(ctx, hub, *brokers, *topicRecords, decodeReplay)
	go consumeKafka(ctx, hub, *brokers, *topicBridge, decodeBridge)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("static files: %v", err)
	}
	http.Handle("/", http.FileServer(http.FS(staticFS)))
	http.HandleFunc("/ws", wsHandler(hub))

	log.Printf("Transcript Viewer starting on http://localhost:%s", *port)
	log.Printf("   Kafka brokers: %s", *brokers)
	log.Printf("   Topics: %s, %s", *topicRecords, *topicBridge)

	if err := http.ListenAndServe(":"+*port, nil); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
