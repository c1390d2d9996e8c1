package session

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		addr     string
		password string
		db       int
		wantErr  bool
	}{
		{"bare address", "localhost:6379", "localhost:6379", "", 0, false},
		{"url", "redis://cache:6380", "cache:6380", "", 0, false},
		{"password and db", "redis://:secret@cache:6379/2", "cache:6379", "secret", 2, false},
		{"bad db", "redis://cache:6379/x", "", "", 0, true},
		{"missing host", "redis://", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseRedisURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if opts.Addr != tt.addr || opts.Password != tt.password || opts.DB != tt.db {
				t.Errorf("Expected %s/%s/%d, got %s/%s/%d", tt.addr, tt.password, tt.db, opts.Addr, opts.Password, opts.DB)
			}
		})
	}
}

func TestRedisUnindexLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	// nothing listens on port 1
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	rp := NewRedisPersistenceWithClient(rdb, 0)
	defer rp.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rp.unindex(ctx, "stale-id")

	if !strings.Contains(buf.String(), "Warning") || !strings.Contains(buf.String(), "stale-id") {
		t.Errorf("Expected a warning naming the id, got %q", buf.String())
	}
}

// TestRedisPersistence runs against a live server when REDIS_URL is set
func TestRedisPersistence(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	rp, err := NewRedisPersistence(url)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer rp.Close()

	record := createTestRecord("44444444-4444-4444-4444-444444444444")
	defer rp.Delete(record.ID)

	if err := rp.Save(record); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if !rp.Exists(record.ID) {
		t.Error("Expected record to exist")
	}

	loaded, err := rp.Load(record.ID)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded.Winner != record.Winner {
		t.Errorf("Expected winner %v, got %v", record.Winner, loaded.Winner)
	}

	ids, err := rp.ListAll()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	found := false
	for _, id := range ids {
		found = found || id == record.ID
	}
	if !found {
		t.Error("Expected record in index")
	}

	if err := rp.Delete(record.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := rp.Load(record.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}
