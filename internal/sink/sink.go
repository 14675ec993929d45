// internal/sink/sink.go
package sink

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/scoresheet/internal/cache"
	"github.com/jason-s-yu/scoresheet/internal/game"
	"github.com/jason-s-yu/scoresheet/internal/middleware"
	"github.com/jason-s-yu/scoresheet/internal/models"
	"github.com/sirupsen/logrus"
)

// Publisher pushes records onto the round queue. *cache.Store satisfies it.
type Publisher interface {
	Publish(ctx context.Context, rec cache.QueueRecord) error
}

// QueueSink forwards session events to the historian through the Redis round queue.
// Each publish gets its own deadline so a slow Redis never stalls a scorekeeper for long.
type QueueSink struct {
	pub     Publisher
	timeout time.Duration
	logger  *logrus.Logger
}

// New returns a QueueSink. A zero timeout disables the per-publish deadline.
func New(pub Publisher, timeout time.Duration, logger *logrus.Logger) *QueueSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &QueueSink{pub: pub, timeout: timeout, logger: logger}
}

// Attach wires the session's round and game-end hooks to the queue.
func (q *QueueSink) Attach(s *game.Session) {
	s.OnRoundClosed = q.RoundClosed
	s.OnGameEnd = q.GameEnded
}

// GameStarted announces a new sheet.
func (q *QueueSink) GameStarted(ctx context.Context, snap models.SessionSnapshot) error {
	players := make([]string, len(snap.Players))
	for i, p := range snap.Players {
		players[i] = p.Name
	}
	return q.publish(ctx, cache.QueueRecord{
		Type:   cache.RecordGameStarted,
		GameID: snap.ID,
		Start:  &cache.GameStart{OwnerID: snap.OwnerID, Players: players},
	})
}

// RoundClosed queues a locked round.
func (q *QueueSink) RoundClosed(ctx context.Context, rs models.RoundScores) error {
	return q.publish(ctx, cache.QueueRecord{Type: cache.RecordRoundClosed, GameID: rs.GameID, Round: &rs})
}

// GameEnded queues the final outcome.
func (q *QueueSink) GameEnded(ctx context.Context, out models.GameOutcome) error {
	return q.publish(ctx, cache.QueueRecord{Type: cache.RecordGameCompleted, GameID: out.GameID, Outcome: &out})
}

// GameDiscarded tells the historian a sheet was reset.
func (q *QueueSink) GameDiscarded(ctx context.Context, id uuid.UUID) error {
	return q.publish(ctx, cache.QueueRecord{Type: cache.RecordGameDiscarded, GameID: id})
}

func (q *QueueSink) publish(ctx context.Context, rec cache.QueueRecord) error {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	err := q.pub.Publish(ctx, rec)
	entry := q.logger.WithFields(logrus.Fields{
		"game_id": rec.GameID,
		"type":    rec.Type,
	})
	if id := middleware.RequestID(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	if err != nil {
		entry.WithError(err).Warn("failed to queue record")
		return err
	}
	entry.Debug("queued record")
	return nil
}
