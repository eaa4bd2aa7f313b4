// Ballotbox Audit Tail Example
//
// Follows the audit event stream live, the way `tail -f` follows a
// file. It reads with plain XREAD rather than a consumer group, so it
// observes events without competing with the ingest workers.
//
// Usage:
//   export REDIS_URL="redis://localhost:6379/0"
//   go run main.go
//
// Optional:
//   AUDIT_STREAM   stream key (default audit:events)
//   FROM_START=1   replay the whole retained stream instead of tailing

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// auditEvent mirrors the compact payload the server publishes.
type auditEvent struct {
	EventID    string `json:"eid"`
	UserID     string `json:"uid"`
	UserEmail  string `json:"em"`
	Action     string `json:"a"`
	Status     string `json:"s"`
	Details    string `json:"d"`
	RequestID  string `json:"rid"`
	OccurredAt int64  `json:"t"` // Unix milliseconds
}

func main() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Fatal("REDIS_URL environment variable is required")
	}

	stream := os.Getenv("AUDIT_STREAM")
	if stream == "" {
		stream = "audit:events"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("parse REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("connect to Redis: %v", err)
	}

	// "$" tails new entries only; "0" replays from the beginning
	lastID := "$"
	if os.Getenv("FROM_START") != "" {
		lastID = "0"
	}

	log.Printf("Tailing %s (from %s)", stream, lastID)

	for {
		streams, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Count:   100,
			Block:   5 * time.Second,
		}).Result()

		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Stopping")
				return
			}
			log.Printf("read error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				lastID = msg.ID
				printEvent(msg)
			}
		}
	}
}

func printEvent(msg redis.XMessage) {
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		log.Printf("%s  <no payload field>", msg.ID)
		return
	}

	var event auditEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		log.Printf("%s  <unparseable: %v>", msg.ID, err)
		return
	}

	occurred := time.UnixMilli(event.OccurredAt).UTC().Format(time.RFC3339)
	log.Printf("%s  %-20s %-7s %s", occurred, event.Action, event.Status, event.UserEmail)
	if event.Details != "" {
		log.Printf("  details: %s", event.Details)
	}
	if event.RequestID != "" {
		log.Printf("  request: %s", event.RequestID)
	}
}
