package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sitegate/models"
)

// RedisStore keeps each event as a hash and indexes it in a sorted set per
// event type and IP, scored by its timestamp in milliseconds. Counting is a
// single ZCOUNT over the index.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

// NewRedisStore returns a store whose keys expire after retention. The
// retention must be longer than the failure window the gate counts over.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention, now: time.Now}
}

func eventKey(id uuid.UUID) string {
	return "audit_event:" + id.String()
}

func indexKey(eventType models.EventType, ip string) string {
	return "audit_index:" + string(eventType) + ":" + ip
}

func (s *RedisStore) Append(ctx context.Context, event models.AuditEvent) error {
	if err := validate(event); err != nil {
		return err
	}
	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	id := uuid.New()
	createdAt := s.now()
	eventMap := map[string]any{
		"event_type": string(event.EventType),
		"ip_address": event.IPAddress,
		"user_agent": event.UserAgent,
		"details":    string(detailsJSON),
		"created_at": createdAt.Format(time.RFC3339Nano),
	}
	index := indexKey(event.EventType, event.IPAddress)
	expired := strconv.FormatInt(createdAt.Add(-s.retention).UnixMilli(), 10)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, eventKey(id), eventMap)
		pipe.Expire(ctx, eventKey(id), s.retention)
		pipe.ZAdd(ctx, index, redis.Z{Score: float64(createdAt.UnixMilli()), Member: id.String()})
		pipe.ZRemRangeByScore(ctx, index, "-inf", "("+expired)
		pipe.Expire(ctx, index, s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store audit event: %w", err)
	}
	return nil
}

func (s *RedisStore) CountSince(ctx context.Context, eventType models.EventType, ip string, cutoff time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	floor := strconv.FormatInt(cutoff.UnixMilli(), 10)
	count, err := s.client.ZCount(ctx, indexKey(eventType, ip), floor, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return int(count), nil
}

func (s *RedisStore) LatestSince(ctx context.Context, eventType models.EventType, ip string, cutoff time.Time) (time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entries, err := s.client.ZRevRangeByScoreWithScores(ctx, indexKey(eventType, ip), &redis.ZRangeBy{
		Min:   strconv.FormatInt(cutoff.UnixMilli(), 10),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest audit event: %w", err)
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(int64(entries[0].Score)), true, nil
}

func (s *RedisStore) Close(context.Context) error {
	return s.client.Close()
}
