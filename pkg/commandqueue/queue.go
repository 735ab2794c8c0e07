package commandqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harun/copydesk/internal/observability"
	"github.com/harun/copydesk/internal/tracing"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrQueueClosed is returned for tasks submitted after Close.
var ErrQueueClosed = errors.New("command queue closed")

// Task is a unit of work executed inside a lane
type Task func(ctx context.Context) error

// Result reports how a task finished
type Result struct {
	TaskID   string
	Err      error
	Duration time.Duration
}

// TaskOptions provides configuration for task execution
type TaskOptions struct {
	// WarnAfter logs a warning (and calls OnWait) when the task is still
	// queued after this long.
	WarnAfter time.Duration
	OnWait    func(wait time.Duration, queuePos int)
}

type taskRecord struct {
	id         string
	task       Task
	ctx        context.Context
	enqueuedAt time.Time
	options    TaskOptions
	result     chan Result
}

// laneState holds the FIFO and busy flag for one lane
type laneState struct {
	mu       sync.Mutex
	queue    []*taskRecord
	busy     bool
	activeID string
}

// CommandQueue provides lane-based task serialization
type CommandQueue struct {
	lanes  map[string]*laneState
	mu     sync.RWMutex
	seq    atomic.Int64
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// LaneForChat returns the lane name used for a chat
func LaneForChat(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

// New creates an empty CommandQueue; lanes are created on first use
func New() *CommandQueue {
	observability.EnsureRegistered()

	ctx, cancel := context.WithCancel(context.Background())
	return &CommandQueue{
		lanes:  make(map[string]*laneState),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue submits a task and waits for it to finish
func (cq *CommandQueue) Enqueue(ctx context.Context, lane string, task Task, options *TaskOptions) error {
	return (<-cq.Submit(ctx, lane, task, options)).Err
}

// Submit appends a task to the lane and returns immediately. The channel
// receives the task's Result once it ran (or was rejected).
func (cq *CommandQueue) Submit(ctx context.Context, lane string, task Task, options *TaskOptions) <-chan Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracing.GetSessionKey(ctx) == "" {
		ctx = tracing.WithSessionKey(ctx, lane)
	}

	record := &taskRecord{
		id:         fmt.Sprintf("%s-%d", lane, cq.seq.Add(1)),
		task:       task,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		result:     make(chan Result, 1),
	}
	if options != nil {
		record.options = *options
	}

	if cq.ctx.Err() != nil {
		record.finish(Result{TaskID: record.id, Err: ErrQueueClosed})
		return record.result
	}

	ls := cq.ensureLane(lane)
	ls.mu.Lock()
	ls.queue = append(ls.queue, record)
	queueSize := len(ls.queue)
	ls.mu.Unlock()

	logger := tracing.LoggerFromContext(ctx, log.Logger)
	logger.Debug().
		Str("lane", lane).
		Str("task_id", record.id).
		Int("queue_size", queueSize).
		Msg("Task enqueued")
	observability.RecordQueueEnqueue(lane, queueSize)

	if record.options.WarnAfter > 0 {
		go cq.startWarnTimer(lane, ls, record)
	}

	cq.processLane(lane, ls)
	return record.result
}

func (r *taskRecord) finish(res Result) {
	r.result <- res
	close(r.result)
}

func (cq *CommandQueue) ensureLane(lane string) *laneState {
	cq.mu.RLock()
	ls, exists := cq.lanes[lane]
	cq.mu.RUnlock()
	if exists {
		return ls
	}

	cq.mu.Lock()
	defer cq.mu.Unlock()
	if ls, exists = cq.lanes[lane]; !exists {
		ls = &laneState{}
		cq.lanes[lane] = ls
		log.Debug().Str("lane", lane).Msg("Lane initialized")
	}
	return ls
}

func (cq *CommandQueue) lookupLane(lane string) (*laneState, bool) {
	cq.mu.RLock()
	defer cq.mu.RUnlock()
	ls, ok := cq.lanes[lane]
	return ls, ok
}

// processLane starts the next queued task if the lane is idle
func (cq *CommandQueue) processLane(lane string, ls *laneState) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if cq.ctx.Err() != nil {
		for _, record := range ls.queue {
			record.finish(Result{TaskID: record.id, Err: ErrQueueClosed})
		}
		ls.queue = nil
		return
	}

	if ls.busy || len(ls.queue) == 0 {
		return
	}

	record := ls.queue[0]
	ls.queue = ls.queue[1:]
	ls.busy = true
	ls.activeID = record.id

	cq.wg.Add(1)
	go cq.executeTask(lane, ls, record)
}

func (cq *CommandQueue) executeTask(lane string, ls *laneState, record *taskRecord) {
	defer cq.wg.Done()

	taskCtx, span := tracing.StartSpan(
		record.ctx,
		"copydesk.commandqueue",
		"commandqueue.execute_task",
		attribute.String("lane", lane),
		attribute.String("task_id", record.id),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(taskCtx, log.Logger)

	runCtx, cancel := context.WithCancel(taskCtx)
	stopCancel := context.AfterFunc(cq.ctx, cancel)

	start := time.Now()
	err := runTask(runCtx, record.task)
	duration := time.Since(start)

	stopCancel()
	cancel()

	ls.mu.Lock()
	ls.busy = false
	ls.activeID = ""
	queueSize := len(ls.queue)
	ls.mu.Unlock()

	record.finish(Result{TaskID: record.id, Err: err, Duration: duration})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().
			Str("lane", lane).
			Str("task_id", record.id).
			Dur("duration", duration).
			Err(err).
			Msg("Task failed")
	} else {
		logger.Debug().
			Str("lane", lane).
			Str("task_id", record.id).
			Dur("duration", duration).
			Msg("Task completed")
	}
	observability.RecordQueueCompletion(lane, duration, err == nil, queueSize)

	cq.processLane(lane, ls)
}

// runTask converts a panicking task into an error so the lane keeps moving
func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}

func (cq *CommandQueue) startWarnTimer(lane string, ls *laneState, record *taskRecord) {
	timer := time.NewTimer(record.options.WarnAfter)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-cq.ctx.Done():
		return
	}

	ls.mu.Lock()
	queuePos := -1
	for i, r := range ls.queue {
		if r.id == record.id {
			queuePos = i
			break
		}
	}
	ls.mu.Unlock()

	if queuePos < 0 {
		return
	}

	wait := time.Since(record.enqueuedAt)
	log.Warn().
		Str("lane", lane).
		Str("task_id", record.id).
		Dur("wait", wait).
		Int("queue_pos", queuePos).
		Msg("Task waiting longer than expected")

	if record.options.OnWait != nil {
		record.options.OnWait(wait, queuePos)
	}
}

// GetQueueSize returns the number of tasks waiting in a lane
func (cq *CommandQueue) GetQueueSize(lane string) int {
	ls, ok := cq.lookupLane(lane)
	if !ok {
		return 0
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.queue)
}

// IsBusy reports whether a task is currently running in the lane
func (cq *CommandQueue) IsBusy(lane string) bool {
	ls, ok := cq.lookupLane(lane)
	if !ok {
		return false
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.busy
}

// GetStats returns queued/running counts for every lane
func (cq *CommandQueue) GetStats() map[string]map[string]int {
	cq.mu.RLock()
	defer cq.mu.RUnlock()

	stats := make(map[string]map[string]int, len(cq.lanes))
	for lane, ls := range cq.lanes {
		ls.mu.Lock()
		running := 0
		if ls.busy {
			running = 1
		}
		stats[lane] = map[string]int{
			"queued":  len(ls.queue),
			"running": running,
		}
		ls.mu.Unlock()
	}
	return stats
}

// WaitForActive waits for running tasks to finish, up to timeout
func (cq *CommandQueue) WaitForActive(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		idle := true
		cq.mu.RLock()
		for _, ls := range cq.lanes {
			ls.mu.Lock()
			if ls.busy {
				idle = false
			}
			ls.mu.Unlock()
		}
		cq.mu.RUnlock()

		if idle {
			return true
		}
		if time.Now().After(deadline) {
			log.Warn().Dur("timeout", timeout).Msg("Timeout waiting for active tasks")
			return false
		}
		<-ticker.C
	}
}

// Close cancels running tasks, rejects queued ones and waits for workers
func (cq *CommandQueue) Close() error {
	cq.cancel()

	cq.mu.RLock()
	lanes := make(map[string]*laneState, len(cq.lanes))
	for name, ls := range cq.lanes {
		lanes[name] = ls
	}
	cq.mu.RUnlock()

	for name, ls := range lanes {
		cq.processLane(name, ls)
		observability.SetQueueSize(name, 0)
	}

	cq.wg.Wait()
	return nil
}
