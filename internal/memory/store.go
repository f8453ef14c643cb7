package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultTTL = 30 * 24 * time.Hour

// Turn is one persisted caller utterance with its derived labels. Immutable
// once recorded.
type Turn struct {
	Input     string `json:"input"`
	Intent    string `json:"intent"`
	Sentiment string `json:"sentiment"`
}

// Store persists the rolling per-caller interaction history in Redis so it
// survives process restarts. Writes are idempotent upserts keyed by phone;
// concurrent writes for the same caller resolve last-write-wins.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewStore creates a history store backed by Redis.
func NewStore(rdb *redis.Client, ttl time.Duration, tracer trace.Tracer) *Store {
	if rdb == nil {
		panic("memory: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("smartappt.internal.memory")
	}
	return &Store{redis: rdb, ttl: ttl, tracer: tracer}
}

// Save durably persists the rolling history, overwriting any prior value for
// the caller.
func (s *Store) Save(ctx context.Context, phone string, history []Turn) error {
	ctx, span := s.tracer.Start(ctx, "memory.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("memory: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, memoryKey(phone), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("memory: failed to persist history: %w", err)
	}
	return nil
}

// Load returns the stored history, or an empty sequence if the caller has
// none yet.
func (s *Store) Load(ctx context.Context, phone string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "memory.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, memoryKey(phone)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return []Turn{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("memory: failed to load history: %w", err)
	}

	var history []Turn
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: failed to decode history: %w", err)
	}
	return history, nil
}

// Delete removes a caller's stored history.
func (s *Store) Delete(ctx context.Context, phone string) error {
	ctx, span := s.tracer.Start(ctx, "memory.delete_history")
	defer span.End()

	if err := s.redis.Del(ctx, memoryKey(phone)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("memory: failed to delete history: %w", err)
	}
	return nil
}

func memoryKey(phone string) string {
	return fmt.Sprintf("memory:%s", phone)
}
