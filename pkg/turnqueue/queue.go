package turnqueue

import (
	"context"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Task represents one turn's work, executed while the user's lane is held
type Task func(ctx context.Context) (interface{}, error)

// taskRecord tracks a queued turn
type taskRecord struct {
	id         string
	task       Task
	ctx        context.Context
	enqueuedAt time.Time
	result     chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

// laneState serializes turns for a single user identity. evicted marks
// a lane the sweeper has removed from the table; no record may land on
// it afterwards.
type laneState struct {
	queue      []*taskRecord
	running    bool
	lastActive time.Time
	evicted    bool
	mu         sync.Mutex
}

// Queue serializes turn execution per user identity. Turns for the same
// user run strictly one at a time in submission order; turns for
// different users run fully in parallel. Lanes are created on first use
// and evicted after sitting idle past the configured TTL, so the lane
// table stays bounded under many distinct users.
type Queue struct {
	lanes   map[string]*laneState
	idleTTL time.Duration
	logger  zerolog.Logger
	mu      sync.RWMutex
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// Config holds queue configuration
type Config struct {
	IdleTTL time.Duration // lane eviction threshold; default 30m
	Logger  zerolog.Logger
}

// New creates a new per-user turn queue
func New(cfg Config) *Queue {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		lanes:   make(map[string]*laneState),
		idleTTL: cfg.IdleTTL,
		logger:  cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	go q.sweepIdleLanes()

	return q
}

// Enqueue submits a turn for the given user and blocks until it has run.
// Acquisition never fails; it only ever waits behind earlier turns for
// the same user.
func (q *Queue) Enqueue(ctx context.Context, userID string, task Task) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	taskID, err := gonanoid.New()
	if err != nil {
		taskID = userID + "-" + time.Now().Format("150405.000")
	}

	record := &taskRecord{
		id:         taskID,
		task:       task,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		result:     make(chan taskResult, 1),
	}

	queueSize := q.appendTo(q.lane(userID), userID, record)

	q.logger.Debug().
		Str("user_id", userID).
		Str("task_id", taskID).
		Int("queue_size", queueSize).
		Msg("Turn enqueued")

	go q.processLane(userID)

	result := <-record.result
	return result.value, result.err
}

// appendTo adds the record to the user's lane. The sweeper may evict
// the lane between the caller's lane() lookup and the append; a record
// appended to an evicted lane would never run and its submitter would
// block forever, so the append re-resolves the lane until it lands on
// a live one.
func (q *Queue) appendTo(ls *laneState, userID string, record *taskRecord) int {
	for {
		ls.mu.Lock()
		if !ls.evicted {
			ls.queue = append(ls.queue, record)
			ls.lastActive = time.Now()
			queueSize := len(ls.queue)
			ls.mu.Unlock()
			return queueSize
		}
		ls.mu.Unlock()
		ls = q.lane(userID)
	}
}

// lane returns the user's lane, creating it if needed
func (q *Queue) lane(userID string) *laneState {
	q.mu.RLock()
	ls, exists := q.lanes[userID]
	q.mu.RUnlock()
	if exists {
		return ls
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if ls, exists = q.lanes[userID]; exists {
		return ls
	}
	ls = &laneState{lastActive: time.Now()}
	q.lanes[userID] = ls
	q.logger.Debug().Str("user_id", userID).Msg("Lane created")
	return ls
}

// processLane starts the next queued turn if the lane is free
func (q *Queue) processLane(userID string) {
	ls := q.lane(userID)

	ls.mu.Lock()
	if ls.running || len(ls.queue) == 0 {
		ls.mu.Unlock()
		return
	}
	record := ls.queue[0]
	ls.queue = ls.queue[1:]
	ls.running = true
	ls.lastActive = time.Now()
	ls.mu.Unlock()

	q.wg.Add(1)
	go q.executeTask(userID, ls, record)
}

func (q *Queue) executeTask(userID string, ls *laneState, record *taskRecord) {
	defer q.wg.Done()

	taskCtx := record.ctx
	runCtx, cancel := context.WithCancel(taskCtx)
	stopCancel := context.AfterFunc(q.ctx, cancel)
	defer func() {
		stopCancel()
		cancel()
	}()

	waited := time.Since(record.enqueuedAt)
	startTime := time.Now()

	value, err := record.task(runCtx)

	duration := time.Since(startTime)

	ls.mu.Lock()
	ls.running = false
	ls.lastActive = time.Now()
	ls.mu.Unlock()

	record.result <- taskResult{value: value, err: err}
	close(record.result)

	if err != nil {
		q.logger.Error().
			Str("user_id", userID).
			Str("task_id", record.id).
			Dur("waited", waited).
			Dur("duration", duration).
			Err(err).
			Msg("Turn failed")
	} else {
		q.logger.Debug().
			Str("user_id", userID).
			Str("task_id", record.id).
			Dur("duration", duration).
			Msg("Turn completed")
	}

	go q.processLane(userID)
}

// sweepIdleLanes periodically evicts lanes with no queued or running work
func (q *Queue) sweepIdleLanes() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.sweepOnce(time.Now())
		}
	}
}

// sweepOnce evicts every lane idle past the TTL. The evicted flag is
// set under the lane lock before the table entry goes away, so a
// concurrent Enqueue that already resolved this lane pointer retries
// instead of appending into the void.
func (q *Queue) sweepOnce(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for userID, ls := range q.lanes {
		ls.mu.Lock()
		idle := !ls.running && len(ls.queue) == 0 && now.Sub(ls.lastActive) > q.idleTTL
		if idle {
			ls.evicted = true
		}
		ls.mu.Unlock()
		if idle {
			delete(q.lanes, userID)
			q.logger.Debug().Str("user_id", userID).Msg("Idle lane evicted")
		}
	}
}

// QueueSize returns the number of queued turns for a user
func (q *Queue) QueueSize(userID string) int {
	q.mu.RLock()
	ls, exists := q.lanes[userID]
	q.mu.RUnlock()
	if !exists {
		return 0
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.queue)
}

// LaneCount returns the number of live lanes
func (q *Queue) LaneCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.lanes)
}

// IsRunning reports whether a turn is currently executing for the user
func (q *Queue) IsRunning(userID string) bool {
	q.mu.RLock()
	ls, exists := q.lanes[userID]
	q.mu.RUnlock()
	if !exists {
		return false
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.running
}

// Close waits for in-flight turns and shuts down the queue
func (q *Queue) Close() error {
	q.cancel()
	q.wg.Wait()
	return nil
}
