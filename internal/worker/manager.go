package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"aufy/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second

	// DefaultReconcileInterval is how often the counter sweep runs
	DefaultReconcileInterval = 15 * time.Minute
)

// Reconciler is the periodic repair job the manager schedules alongside
// the stream consumers.
type Reconciler interface {
	ReconcileAll(ctx context.Context) error
}

// Manager orchestrates worker goroutines that consume the social stream
// and a ticker goroutine that sweeps counter drift.
type Manager struct {
	consumer    queue.Consumer
	handler     *Handler
	reconciler  Reconciler
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	reconcileIv time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount       int           // Number of worker goroutines
	BatchSize         int64         // Messages per read
	BlockTimeout      time.Duration // Block time for XREADGROUP
	ReconcileInterval time.Duration // Counter sweep period
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:       DefaultWorkerCount,
		BatchSize:         DefaultBatchSize,
		BlockTimeout:      DefaultBlockTimeout,
		ReconcileInterval: DefaultReconcileInterval,
	}
}

// NewManager creates a new worker manager. reconciler may be nil to
// disable the periodic sweep.
func NewManager(consumer queue.Consumer, handler *Handler, reconciler Reconciler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = DefaultReconcileInterval
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		reconciler:  reconciler,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		reconcileIv: cfg.ReconcileInterval,
	}
}

// Start begins the worker goroutines.
// Call Stop() to gracefully shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	// Ensure consumer group exists
	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamSocial, queue.ConsumerGroupNotify); err != nil {
		return err
	}

	log.Printf("[Manager] Starting %d workers for stream=%s group=%s",
		m.workerCount, queue.StreamSocial, queue.ConsumerGroupNotify)

	for i := 0; i < m.workerCount; i++ {
		workerID := i + 1
		consumerName := consumerNameForWorker(workerID)

		m.wg.Add(1)
		go m.runWorker(workerID, consumerName)
	}

	if m.reconciler != nil {
		m.wg.Add(1)
		go m.runReconcileLoop()
	}

	log.Printf("[Manager] All %d workers started", m.workerCount)
	return nil
}

// Stop gracefully shuts down all workers.
// Blocks until all workers have finished.
func (m *Manager) Stop() {
	log.Printf("[Manager] Stopping workers...")
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

// runWorker is the main loop for a single worker goroutine.
func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()

	log.Printf("[Worker-%d] Started (consumer=%s)", workerID, consumerName)

	// First, process any pending messages from previous runs (crash recovery)
	m.processPending(workerID, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			log.Printf("[Worker-%d] Shutting down", workerID)
			return
		default:
			m.processMessages(workerID, consumerName)
		}
	}
}

// processPending handles messages that were delivered but not acknowledged.
func (m *Manager) processPending(workerID int, consumerName string) {
	rc, ok := m.consumer.(*queue.RedisConsumer)
	if !ok {
		return
	}

	for {
		messages, err := rc.ReadPending(m.ctx, queue.StreamSocial, queue.ConsumerGroupNotify, consumerName, m.batchSize)
		if err != nil {
			log.Printf("[Worker-%d] Error reading pending: %v", workerID, err)
			return
		}

		if len(messages) == 0 {
			return
		}

		log.Printf("[Worker-%d] Processing %d pending messages", workerID, len(messages))
		m.handleMessages(workerID, messages)
	}
}

// processMessages reads and handles a batch of messages.
func (m *Manager) processMessages(workerID int, consumerName string) {
	messages, err := m.consumer.Read(
		m.ctx,
		queue.StreamSocial,
		queue.ConsumerGroupNotify,
		consumerName,
		m.batchSize,
		m.blockTime,
	)

	if err != nil {
		log.Printf("[Worker-%d] Error reading: %v", workerID, err)
		time.Sleep(time.Second) // Back off on error
		return
	}

	if len(messages) == 0 {
		return // Timeout, no messages
	}

	m.handleMessages(workerID, messages)
}

// handleMessages processes a batch of messages and acknowledges them.
func (m *Manager) handleMessages(workerID int, messages []queue.Message) {
	for _, msg := range messages {
		err := m.handler.HandleEvent(m.ctx, msg.Event)
		if err != nil {
			log.Printf("[Worker-%d] Handler error msgID=%s: %v", workerID, msg.ID, err)
			// Still ACK to prevent infinite retry loops; notification
			// delivery is best-effort.
		}

		if err := m.consumer.Ack(m.ctx, queue.StreamSocial, queue.ConsumerGroupNotify, msg.ID); err != nil {
			log.Printf("[Worker-%d] ACK error msgID=%s: %v", workerID, msg.ID, err)
		}
	}
}

// runReconcileLoop sweeps counter drift on a fixed interval. Drift is
// expected to be rare; the sweep is the recovery path, not part of any
// request.
func (m *Manager) runReconcileLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.reconcileIv)
	defer ticker.Stop()

	log.Printf("[Reconcile] Sweep scheduled every %v", m.reconcileIv)
	for {
		select {
		case <-m.ctx.Done():
			log.Printf("[Reconcile] Shutting down")
			return
		case <-ticker.C:
			if err := m.reconciler.ReconcileAll(m.ctx); err != nil {
				log.Printf("[Reconcile] Sweep failed: %v", err)
			}
		}
	}
}

// consumerNameForWorker generates a unique consumer name for each worker.
func consumerNameForWorker(workerID int) string {
	return fmt.Sprintf("worker-%d", workerID)
}
