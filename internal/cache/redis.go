// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/scoresheet/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the historian drains.
const DefaultQueueName = "scoresheet_rounds"

const snapshotPrefix = "scoresheet:game:"

// ErrSnapshotNotFound is returned when no paused game is stored under an id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// RecordType tells the historian what a queue record carries.
type RecordType string

const (
	RecordGameStarted   RecordType = "game_started"
	RecordRoundClosed   RecordType = "round_closed"
	RecordGameCompleted RecordType = "game_completed"
	RecordGameDiscarded RecordType = "game_discarded"
)

// GameStart describes a freshly started scoresheet.
type GameStart struct {
	OwnerID string   `json:"owner_id"`
	Players []string `json:"players"`
}

// QueueRecord is one message on the round queue. Exactly one payload matches Type.
type QueueRecord struct {
	Type      RecordType          `json:"type"`
	GameID    uuid.UUID           `json:"game_id"`
	Start     *GameStart          `json:"start,omitempty"`
	Round     *models.RoundScores `json:"round,omitempty"`
	Outcome   *models.GameOutcome `json:"outcome,omitempty"`
	Timestamp int64               `json:"timestamp"`
}

// Connect opens a Redis client and pings it.
func Connect(addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Store is the Redis side of the service: the round queue and paused-game snapshots.
type Store struct {
	rdb         *redis.Client
	queue       string
	snapshotTTL time.Duration
}

// NewStore wraps rdb. An empty queue name falls back to DefaultQueueName; a zero ttl keeps
// snapshots until deleted.
func NewStore(rdb *redis.Client, queue string, snapshotTTL time.Duration) *Store {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Store{rdb: rdb, queue: queue, snapshotTTL: snapshotTTL}
}

// Publish serializes the record to JSON, then pushes it to the queue.
func (s *Store) Publish(ctx context.Context, rec QueueRecord) error {
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal QueueRecord: %w", err)
	}
	if err := s.rdb.RPush(ctx, s.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", s.queue, err)
	}
	return nil
}

// Pop blocks up to timeout for the next record. ok is false when the wait timed out.
func (s *Store) Pop(ctx context.Context, timeout time.Duration) (rec QueueRecord, ok bool, err error) {
	res, err := s.rdb.BLPop(ctx, timeout, s.queue).Result()
	if errors.Is(err, redis.Nil) {
		return QueueRecord{}, false, nil
	}
	if err != nil {
		return QueueRecord{}, false, fmt.Errorf("BLPop %s: %w", s.queue, err)
	}
	if len(res) < 2 {
		return QueueRecord{}, false, nil
	}
	// res[0] is the queue name and res[1] the payload.
	rec, err = DecodeRecord([]byte(res[1]))
	if err != nil {
		return QueueRecord{}, false, err
	}
	return rec, true, nil
}

// DecodeRecord parses a queue payload and checks it carries the payload its type promises.
func DecodeRecord(data []byte) (QueueRecord, error) {
	var rec QueueRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return QueueRecord{}, fmt.Errorf("invalid queue record: %w", err)
	}
	if rec.GameID == uuid.Nil {
		return QueueRecord{}, fmt.Errorf("invalid queue record: missing game_id")
	}
	switch {
	case rec.Type == RecordGameStarted && rec.Start != nil,
		rec.Type == RecordRoundClosed && rec.Round != nil,
		rec.Type == RecordGameCompleted && rec.Outcome != nil,
		rec.Type == RecordGameDiscarded:
		return rec, nil
	}
	return QueueRecord{}, fmt.Errorf("invalid queue record: type %q without payload", rec.Type)
}

// SaveSnapshot stores a paused game.
func (s *Store) SaveSnapshot(ctx context.Context, snap models.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey(snap.ID), data, s.snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// LoadSnapshot fetches a paused game.
func (s *Store) LoadSnapshot(ctx context.Context, id uuid.UUID) (models.SessionSnapshot, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.SessionSnapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return models.SessionSnapshot{}, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}
	var snap models.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.SessionSnapshot{}, fmt.Errorf("corrupt snapshot %s: %w", id, err)
	}
	return snap, nil
}

// DeleteSnapshot removes a paused game. Deleting a missing snapshot is not an error.
func (s *Store) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	return s.rdb.Del(ctx, snapshotKey(id)).Err()
}

func snapshotKey(id uuid.UUID) string {
	return snapshotPrefix + id.String()
}
