// Test client: starts a live-push replay and prints every frame it receives.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"transcript-restream-service/internal/models"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "restream HTTP base url")
	grpcAddr := flag.String("grpc", "localhost:50051", "gRPC admin address for the health check (empty to skip)")
	filename := flag.String("filename", "", "transcript to replay (server default when empty)")
	sessionID := flag.String("session", "", "session id to request (generated when empty)")
	flag.Parse()

	if *grpcAddr != "" {
		checkHealth(*grpcAddr)
	}

	info := startSession(*server, *filename, *sessionID)
	log.Printf("Session %s created, advertised url %s", info.SessionID, info.WebsocketURL)

	// The advertised host may be a bind address; connect through the server we called.
	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(*server, "/"), "http") + "/ws/" + info.SessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("Connected to %s", wsURL)

	start := time.Now()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Println("Server closed the connection")
				return
			}
			log.Fatalf("read failed: %v", err)
		}

		switch string(msg) {
		case models.SessionComplete:
			log.Printf("Replay complete after %s", time.Since(start).Round(time.Millisecond))
			continue
		case models.SessionNotFound:
			log.Fatalf("server reported %s", models.SessionNotFound)
		}

		var env models.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			log.Printf("unexpected frame: %s", msg)
			continue
		}
		log.Printf("[%6s] %s %-10s %s", time.Since(start).Round(time.Second), env.Body.TimeCode, env.Body.Speaker, env.Body.Sentence)
	}
}

func checkHealth(addr string) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to create grpc client: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		log.Fatalf("health check failed: %v", err)
	}
	log.Printf("Server health: %s", resp.GetStatus())
}

func startSession(server, filename, sessionID string) models.WebsocketInfo {
	q := url.Values{}
	if filename != "" {
		q.Set("filename", filename)
	}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}

	resp, err := http.Get(strings.TrimRight(server, "/") + "/api/websocket-broadcast?" + q.Encode())
	if err != nil {
		log.Fatalf("failed to start session: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		log.Fatalf("server rejected session (%d): %s", resp.StatusCode, e.Message)
	}

	var info models.WebsocketInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		log.Fatalf("failed to decode response: %v", err)
	}
	return info
}
