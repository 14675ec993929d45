// internal/historian/historian.go is the queue consumer that persists closed rounds and game
// outcomes from Redis into Postgres.
package historian

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/scoresheet/internal/cache"
	"github.com/jason-s-yu/scoresheet/internal/database"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Queue is the source of records. *cache.Store satisfies it.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (cache.QueueRecord, bool, error)
}

// Writer persists batches. PgWriter is the production implementation.
type Writer interface {
	Write(ctx context.Context, batch []cache.QueueRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Options tunes the service.
type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	// Inactivity marks a game abandoned after this long without records. 0 disables it.
	Inactivity time.Duration
	// PopTimeout bounds each blocking read so shutdown is noticed.
	PopTimeout time.Duration
}

// maxPendingBatches caps how much is retained while the database is failing.
const maxPendingBatches = 10

// Service drains the round queue in batches.
type Service struct {
	queue  Queue
	writer Writer
	opts   Options
	logger *logrus.Logger
	now    func() time.Time

	batchMu sync.Mutex
	batch   []cache.QueueRecord

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time
}

// New builds a Service. Zero options fall back to 20 records, 500ms and a 3s pop timeout.
func New(queue Queue, writer Writer, opts Options, logger *logrus.Logger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		queue:        queue,
		writer:       writer,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
		batch:        make([]cache.QueueRecord, 0, opts.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run consumes until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.flushLoop(gctx) })
	if s.opts.Inactivity > 0 {
		g.Go(func() error { return s.inactivityLoop(gctx) })
	}

	err := g.Wait()

	// final flush on a fresh context; the run context is already done
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ferr := s.Flush(flushCtx); ferr != nil {
		s.logger.WithError(ferr).Error("final flush failed")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) readLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, ok, err := s.queue.Pop(ctx, s.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.WithError(err).Warn("queue pop failed")
			continue
		}
		if !ok {
			continue
		}
		s.track(rec)
		if s.Add(rec) {
			if err := s.Flush(ctx); err != nil {
				s.logger.WithError(err).Error("flush failed")
			}
		}
	}
}

func (s *Service) flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.WithError(err).Error("flush failed")
			}
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepInactive(ctx)
		}
	}
}

// Add appends a record and reports whether the batch is full.
func (s *Service) Add(rec cache.QueueRecord) bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(s.batch, rec)
	return len(s.batch) >= s.opts.BatchSize
}

// Pending returns the number of records waiting to be written.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// Flush writes the current batch in one call. On failure the records are kept for the next
// attempt; every write is an upsert so replaying them is safe.
func (s *Service) Flush(ctx context.Context) error {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return nil
	}
	batch := make([]cache.QueueRecord, len(s.batch))
	copy(batch, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.writer.Write(ctx, batch); err != nil {
		s.requeue(batch)
		return fmt.Errorf("write %d records: %w", len(batch), err)
	}
	s.logger.Debugf("Flushed %d records to DB.", len(batch))
	return nil
}

func (s *Service) requeue(batch []cache.QueueRecord) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(batch, s.batch...)
	if limit := maxPendingBatches * s.opts.BatchSize; len(s.batch) > limit {
		dropped := len(s.batch) - limit
		s.batch = s.batch[dropped:]
		s.logger.Errorf("Dropped %d records after repeated write failures", dropped)
	}
}

func (s *Service) track(rec cache.QueueRecord) {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	switch rec.Type {
	case cache.RecordGameCompleted, cache.RecordGameDiscarded:
		delete(s.lastActivity, rec.GameID)
	default:
		s.lastActivity[rec.GameID] = s.now()
	}
}

// SweepInactive marks every game quiet for longer than the inactivity window as abandoned.
func (s *Service) SweepInactive(ctx context.Context) {
	if s.opts.Inactivity <= 0 {
		return
	}
	now := s.now()
	var stale []uuid.UUID
	s.activityMu.Lock()
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.opts.Inactivity {
			stale = append(stale, id)
			delete(s.lastActivity, id)
		}
	}
	s.activityMu.Unlock()

	for _, id := range stale {
		if err := s.writer.MarkAbandoned(ctx, id); err != nil {
			s.logger.WithField("game_id", id).WithError(err).Warn("failed to mark game abandoned")
			continue
		}
		s.logger.WithField("game_id", id).Info("Marked game abandoned due to inactivity")
	}
}

// Apply writes a single record through db.
func Apply(ctx context.Context, db database.Execer, rec cache.QueueRecord) error {
	switch rec.Type {
	case cache.RecordGameStarted:
		return database.CreateGame(ctx, db, rec.GameID, rec.Start.OwnerID, rec.Start.Players, time.UnixMilli(rec.Timestamp))
	case cache.RecordRoundClosed:
		return database.UpsertRoundScores(ctx, db, *rec.Round)
	case cache.RecordGameCompleted:
		return database.CompleteGame(ctx, db, *rec.Outcome)
	case cache.RecordGameDiscarded:
		return database.DiscardGame(ctx, db, rec.GameID)
	}
	return fmt.Errorf("unknown record type %q", rec.Type)
}

// PgWriter writes batches to Postgres through database.DB, one transaction per batch.
type PgWriter struct{}

func (PgWriter) Write(ctx context.Context, batch []cache.QueueRecord) error {
	return database.WithTx(ctx, func(tx pgx.Tx) error {
		for _, rec := range batch {
			if err := Apply(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (PgWriter) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	return database.WithTx(ctx, func(tx pgx.Tx) error {
		return database.MarkAbandoned(ctx, tx, gameID)
	})
}
