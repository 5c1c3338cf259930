package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/logger"
	"rps_challenge/internal/service"
	"rps_challenge/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

// Plays a full match between two synthetic players through the HTTP API and
// prints every event the websocket feed delivers. Needs a running app with the
// same JWT_SECRET.
func main() {
	base := flag.String("addr", "", "app base url (default http://localhost:$APP_PORT)")
	rounds := flag.Int("rounds", 3, "rounds to play")
	playerA := flag.Int64("a", 3001, "challenger id")
	playerB := flag.Int64("b", 3002, "challenged id")
	flag.Parse()

	_ = godotenv.Load()
	if *base == "" {
		port := os.Getenv("APP_PORT")
		if port == "" {
			port = "8080"
		}
		*base = "http://localhost:" + port
	}
	service.InitJWT(os.Getenv("JWT_SECRET"))

	tokenA, err := service.GenerateJWT(*playerA)
	if err != nil {
		logger.Fatal("token A", "error", err)
	}
	tokenB, err := service.GenerateJWT(*playerB)
	if err != nil {
		logger.Fatal("token B", "error", err)
	}

	var created struct {
		Match domain.Match `json:"match"`
	}
	call(*base+"/api/v1/challenges", tokenA, map[string]any{"opponent_id": *playerB, "rounds": *rounds}, &created)
	id := created.Match.ID
	fmt.Println("created match", id)

	events := watch(*base, id, tokenA)

	call(*base+"/api/v1/challenges/"+id+"/accept", tokenB, nil, nil)
	fmt.Println("accepted")

	moves := []domain.Move{domain.MoveRock, domain.MovePaper, domain.MoveScissor}
	for i := 0; i < *rounds; i++ {
		call(*base+"/api/v1/challenges/"+id+"/move", tokenA, map[string]string{"move": string(moves[i%3])}, nil)
		call(*base+"/api/v1/challenges/"+id+"/move", tokenB, map[string]string{"move": string(moves[(i+1)%3])}, nil)
	}

	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				fmt.Println("feed closed")
				return
			}
			b, _ := json.Marshal(ev)
			fmt.Println("event:", string(b))
		case <-timeout:
			logger.Fatal("timed out waiting for match_completed")
		}
	}
}

func call(endpoint, token string, body any, out any) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			logger.Fatal("encode body", "error", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, &buf)
	if err != nil {
		logger.Fatal("build request", "error", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Fatal("request failed", "url", endpoint, "error", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var e map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&e)
		logger.Fatal("request rejected", "url", endpoint, "status", resp.StatusCode, "body", e)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			logger.Fatal("decode response", "error", err)
		}
	}
}

// watch streams feed events until the server closes the socket.
func watch(base, matchID, token string) <-chan ws.Event {
	u, err := url.Parse(base)
	if err != nil {
		logger.Fatal("bad addr", "error", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws/matches/" + matchID
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatal("ws dial", "error", err)
	}

	out := make(chan ws.Event, 16)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var ev ws.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			out <- ev
		}
	}()
	return out
}
