// Command feedtest load-tests the realtime feed: it opens many websocket
// clients against /ws, creates posts at a fixed rate and counts the events
// each client receives.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the test results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	PostsCreated         int64
	EventsReceived       int64
	Errors               int64
}

var metrics Metrics

func main() {
	host := flag.String("host", "localhost:5000", "API server host")
	username := flag.String("username", "feedtest", "Test user (registered if missing)")
	password := flag.String("password", "password123", "Test user password")
	clients := flag.Int("clients", 50, "Number of concurrent websocket clients")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	postEvery := flag.Duration("post-every", time.Second, "Interval between created posts")
	flag.Parse()

	log.Printf("Starting feed stress test against %s: %d clients for %v", *host, *clients, *duration)

	token, err := ensureLogin(*host, *username, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go runClient(*host, token, stopChan, &wg)
		time.Sleep(10 * time.Millisecond)
	}

	wg.Add(1)
	go runPoster(*host, token, *postEvery, stopChan, &wg)

	select {
	case <-time.After(*duration):
		log.Println("Test duration reached")
	case <-interrupt:
		log.Println("Interrupted")
	}

	close(stopChan)
	wg.Wait()

	printMetrics(*clients)
}

func postJSON(u, token string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	return client.Do(req)
}

// ensureLogin registers the user when needed and returns a session token.
func ensureLogin(host, username, password string) (string, error) {
	creds := map[string]string{"username": username, "password": password}

	resp, err := postJSON(fmt.Sprintf("http://%s/register", host), "", creds)
	if err != nil {
		return "", err
	}
	_ = resp.Body.Close()
	// 400 means the user already exists.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return "", fmt.Errorf("register failed with status %d", resp.StatusCode)
	}

	resp, err = postJSON(fmt.Sprintf("http://%s/login", host), "", creds)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Token == "" {
		return "", errors.New("login returned an empty token")
	}
	return result.Token, nil
}

func runClient(host, token string, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, _, err := c.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&metrics.EventsReceived, 1)
		}
	}()

	select {
	case <-stopChan:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	case <-done:
	}
}

func runPoster(host, token string, every time.Duration, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	n := 0
	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			n++
			resp, err := postJSON(fmt.Sprintf("http://%s/posts", host), token, map[string]any{
				"content": fmt.Sprintf("feed stress post %d", n),
			})
			if err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				continue
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				atomic.AddInt64(&metrics.Errors, 1)
				continue
			}
			atomic.AddInt64(&metrics.PostsCreated, 1)
		}
	}
}

func printMetrics(clients int) {
	posts := atomic.LoadInt64(&metrics.PostsCreated)
	events := atomic.LoadInt64(&metrics.EventsReceived)
	connected := atomic.LoadInt64(&metrics.ConnectionsSuccess)

	log.Println("==================")
	log.Printf("Connections: %d/%d succeeded, %d failed",
		connected, atomic.LoadInt64(&metrics.ConnectionsAttempted), atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Posts created: %d", posts)
	log.Printf("Events received: %d", events)
	if posts > 0 && connected > 0 {
		log.Printf("Delivery ratio: %.2f%%", 100*float64(events)/float64(posts*connected))
	}
	log.Printf("Errors: %d (clients requested: %d)", atomic.LoadInt64(&metrics.Errors), clients)
}
