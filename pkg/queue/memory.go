package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketPulse/pkg/logger"
)

// MemoryQueue is a channel-backed QueueService for single-process
// deployments where Redis is not configured. Same job contract as
// RedisQueue, no durability.
type MemoryQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	jobs      map[string]Job
	ch        chan *Message
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
}

// NewMemoryQueue creates a new in-memory queue.
func NewMemoryQueue(lgr *logger.Logger, config *QueueConfig) *MemoryQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	return &MemoryQueue{
		logger: lgr,
		config: config,
		jobs:   make(map[string]Job),
		ch:     make(chan *Message, config.QueueSize),
	}
}

// RegisterJobs registers multiple jobs.
func (m *MemoryQueue) RegisterJobs(jobs []Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range jobs {
		m.jobs[job.Type()] = job
	}
}

// Start launches the worker pool.
func (m *MemoryQueue) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		return fmt.Errorf("memory queue already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.isRunning = true

	for i := 0; i < m.config.Workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}
	m.logger.Info("memory queue started", logger.Int("workers", m.config.Workers))
	return nil
}

// Stop drains in-flight work and stops the workers.
func (m *MemoryQueue) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	m.mu.Unlock()

	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.logger.Info("memory queue stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishMessage enqueues a message; returns an error when the buffer is
// full rather than blocking the caller.
func (m *MemoryQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	msg := &Message{
		ID:        fmt.Sprintf("%s-%d", msgType, time.Now().UnixNano()),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		return fmt.Errorf("memory queue full (%d)", cap(m.ch))
	}
}

func (m *MemoryQueue) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// drain what is already buffered before exiting
			for {
				select {
				case msg := <-m.ch:
					m.handle(context.Background(), msg)
				default:
					return
				}
			}
		case msg := <-m.ch:
			m.handle(ctx, msg)
		}
	}
}

func (m *MemoryQueue) handle(ctx context.Context, msg *Message) {
	m.mu.RLock()
	job, ok := m.jobs[msg.Type]
	m.mu.RUnlock()
	if !ok {
		m.logger.Warn("no job registered for message type", logger.String("type", msg.Type))
		return
	}

	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		return
	}
	msg.Attempts++
	if msg.Attempts <= m.config.RetryLimit {
		m.logger.Warn("job failed, retrying",
			logger.String("type", msg.Type),
			logger.Int("attempt", msg.Attempts),
			logger.Error(err))
		time.Sleep(m.config.RetryDelay)
		select {
		case m.ch <- msg:
		default:
			m.logger.Error("retry dropped, queue full", logger.String("type", msg.Type))
		}
		return
	}
	m.logger.Error("job failed permanently",
		logger.String("type", msg.Type),
		logger.Int("attempts", msg.Attempts),
		logger.Error(err))
}
