// Package worker drains submitted interactions into the store and keeps
// the social-capital leaderboard current.
package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
	"github.com/okian/matchmaker/pkg/metrics"
)

const (
	defaultProcessTimeout = 10 * time.Second
	userLockStripes       = 64
)

// Queue is where workers read interactions from.
type Queue interface {
	Dequeue(ctx context.Context) (model.InteractionEvent, bool)
	Close() error
}

// Appender persists interactions.
type Appender interface {
	AppendEvent(ctx context.Context, e model.InteractionEvent) error
}

// Calculator computes a user's social capital from stored counts.
type Calculator interface {
	Calculate(ctx context.Context, userID string) (model.SocialCapitalScore, error)
}

// Ranker holds the leaderboard.
type Ranker interface {
	Upsert(ctx context.Context, userID string, score int) bool
}

// Pool runs a fixed number of workers over a queue.
type Pool struct {
	queue    Queue
	appender Appender
	calc     Calculator
	ranker   Ranker

	count          int
	processTimeout time.Duration
	logger         logger.Logger

	onAppendFailure func(ctx context.Context, id string)

	// Recomputations for one user are serialised so the last upsert
	// always reflects every append that preceded it.
	userLocks [userLockStripes]sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
	active atomic.Int64

	processed atomic.Int64
	failed    atomic.Int64
	updates   atomic.Int64
}

// NewPool creates a pool. Workers start on Start.
func NewPool(q Queue, appender Appender, calc Calculator, ranker Ranker, opts ...Option) *Pool {
	p := &Pool{
		queue:          q,
		appender:       appender,
		calc:           calc,
		ranker:         ranker,
		count:          runtime.NumCPU(),
		processTimeout: defaultProcessTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}
	return p
}

// Start launches the workers. They keep running after ctx is cancelled
// until Shutdown drains the queue.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		w := &worker{pool: p, logger: p.logger.Named("worker-" + strconv.Itoa(i))}
		go w.run(runCtx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", p.count))
}

// Shutdown closes the queue and waits for the workers to drain it. If ctx
// expires first the remaining work is abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "closing queue", logger.Error(err))
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if p.cancel != nil {
			p.cancel()
		}
		return nil
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		<-done
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

// Stats reports pool counters.
func (p *Pool) Stats() map[string]interface{} {
	return map[string]interface{}{
		"workers":                p.count,
		"active_workers":         p.active.Load(),
		"processed":              p.processed.Load(),
		"failed":                 p.failed.Load(),
		"social_capital_updates": p.updates.Load(),
	}
}

// Process handles one interaction synchronously.
func (p *Pool) Process(ctx context.Context, e model.InteractionEvent) error {
	start := time.Now()
	defer func() { metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000) }()

	ctx, cancel := context.WithTimeout(ctx, p.processTimeout)
	defer cancel()

	if err := p.appender.AppendEvent(ctx, e); err != nil {
		if p.onAppendFailure != nil {
			p.onAppendFailure(ctx, e.ID)
		}
		p.fail("append_error")
		return fmt.Errorf("append interaction %s: %w", e.ID, err)
	}
	metrics.RecordInteractionIngested(string(e.Kind))

	for _, userID := range affectedUsers(e) {
		if err := p.refresh(ctx, userID); err != nil {
			p.fail("social_capital_error")
			return err
		}
	}
	p.processed.Add(1)
	return nil
}

func (p *Pool) refresh(ctx context.Context, userID string) error {
	mu := &p.userLocks[stripe(userID)]
	mu.Lock()
	defer mu.Unlock()

	score, err := p.calc.Calculate(ctx, userID)
	if err != nil {
		return fmt.Errorf("social capital for %s: %w", userID, err)
	}
	p.ranker.Upsert(ctx, userID, score.Total)
	p.updates.Add(1)
	metrics.RecordSocialCapitalUpdate()
	return nil
}

func (p *Pool) fail(reason string) {
	p.failed.Add(1)
	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", reason)
}

// affectedUsers lists whose social capital e can change. Accepted matches
// count for both sides.
func affectedUsers(e model.InteractionEvent) []string {
	switch e.Kind {
	case model.KindMatchAccepted:
		if e.TargetID != "" {
			return []string{e.SubjectID, e.TargetID}
		}
		return []string{e.SubjectID}
	case model.KindMessageSent, model.KindMeetingScheduled, model.KindMeetingCompleted:
		return []string{e.SubjectID}
	default:
		return nil
	}
}

func stripe(userID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return h.Sum32() % userLockStripes
}

type worker struct {
	pool   *Pool
	logger logger.Logger
}

func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()
	for {
		e, ok := w.pool.queue.Dequeue(ctx)
		if !ok {
			return
		}
		metrics.UpdateWorkerActiveCount(int(w.pool.active.Add(1)))
		if err := w.pool.Process(ctx, e); err != nil {
			w.logger.Error(ctx, "processing interaction",
				logger.String("interaction_id", e.ID),
				logger.String("kind", string(e.Kind)),
				logger.Error(err))
		}
		metrics.UpdateWorkerActiveCount(int(w.pool.active.Add(-1)))
	}
}
