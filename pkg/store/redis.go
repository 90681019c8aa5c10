package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const replyKeyPrefix = "reply:"

// RedisStore persists reply documents as JSON values in Redis.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

// Connect parses a Redis URL, opens a client, and verifies the
// connection with a ping.
func Connect(ctx context.Context, url string, log *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log.With("component", "store.redis"),
	}, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func replyKey(seq int64) string {
	return fmt.Sprintf("%s%d", replyKeyPrefix, seq)
}

// SaveReply upserts a document by sequence, merging structured fields
// over any prior version.
func (s *RedisStore) SaveReply(ctx context.Context, doc Document) error {
	key := replyKey(doc.Seq)

	existing, err := s.GetReply(ctx, doc.Seq)
	if err == nil {
		doc = merge(existing, doc)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal reply document: %w", err)
	}

	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("save reply document: %w", err)
	}

	return nil
}

// GetReply fetches the document for a sequence, or ErrNotFound.
func (s *RedisStore) GetReply(ctx context.Context, seq int64) (Document, error) {
	val, err := s.client.Get(ctx, replyKey(seq)).Result()
	if errors.Is(err, redis.Nil) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get reply document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return Document{}, fmt.Errorf("unmarshal reply document: %w", err)
	}

	return doc, nil
}

// LatestTopupSince scans stored replies and returns the most recent
// topup-bearing document at or after cutoff.
func (s *RedisStore) LatestTopupSince(ctx context.Context, cutoff time.Time) (Document, error) {
	var (
		best  Document
		found bool
	)

	iter := s.client.Scan(ctx, 0, replyKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}

		var doc Document
		if err := json.Unmarshal([]byte(val), &doc); err != nil {
			s.log.Debug("Skipping malformed reply document", "key", iter.Val(), "error", err)
			continue
		}
		if doc.Topup == nil || doc.At.Before(cutoff) {
			continue
		}
		if !found || doc.At.After(best.At) || (doc.At.Equal(best.At) && doc.Seq > best.Seq) {
			best = doc
			found = true
		}
	}
	if err := iter.Err(); err != nil {
		return Document{}, fmt.Errorf("scan reply documents: %w", err)
	}

	if !found {
		return Document{}, ErrNotFound
	}

	return best, nil
}
