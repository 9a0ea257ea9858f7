package core

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ImportTracker tracks in-flight imports for graceful shutdown
type ImportTracker struct {
	activeCount int64
	wg          sync.WaitGroup
	mu          sync.Mutex
	isShutdown  atomic.Bool
	shutdownCh  chan struct{}
	closeOnce   sync.Once
}

// NewImportTracker creates a new import tracker
func NewImportTracker() *ImportTracker {
	return &ImportTracker{
		shutdownCh: make(chan struct{}),
	}
}

// Add registers an import.
// Returns false once shutdown has started; the import must be rejected
func (t *ImportTracker) Add() bool {
	// mu 保证 Add 与 markShutdown 互斥，wg.Add 不会和 wg.Wait 竞争
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isShutdown.Load() {
		return false
	}
	t.wg.Add(1)
	atomic.AddInt64(&t.activeCount, 1)
	return true
}

// Done marks one import as finished
func (t *ImportTracker) Done() {
	remaining := atomic.AddInt64(&t.activeCount, -1)
	t.wg.Done()
	if t.isShutdown.Load() {
		log.Printf("[ImportTracker] Import completed, %d remaining", remaining)
	}
}

// ActiveCount returns the number of in-flight imports
func (t *ImportTracker) ActiveCount() int64 {
	return atomic.LoadInt64(&t.activeCount)
}

// IsShuttingDown returns true if shutdown has been initiated
func (t *ImportTracker) IsShuttingDown() bool {
	return t.isShutdown.Load()
}

// ShutdownCh returns a channel that is closed when shutdown begins
func (t *ImportTracker) ShutdownCh() <-chan struct{} {
	return t.shutdownCh
}

func (t *ImportTracker) markShutdown() {
	t.mu.Lock()
	t.isShutdown.Store(true)
	t.mu.Unlock()
	t.closeOnce.Do(func() { close(t.shutdownCh) })
}

// WaitWithContext stops accepting imports and waits for the in-flight ones.
// Returns false if ctx ended first
func (t *ImportTracker) WaitWithContext(ctx context.Context) bool {
	t.markShutdown()

	active := t.ActiveCount()
	if active == 0 {
		log.Printf("[ImportTracker] No active imports, shutdown immediate")
		return true
	}
	log.Printf("[ImportTracker] Graceful shutdown initiated, waiting for %d active imports", active)

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("[ImportTracker] All imports completed, shutdown clean")
		return true
	case <-ctx.Done():
		log.Printf("[ImportTracker] Timeout reached, %d imports still active, forcing shutdown", t.ActiveCount())
		return false
	}
}

// GracefulShutdown is WaitWithContext bounded by maxWait
func (t *ImportTracker) GracefulShutdown(maxWait time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), maxWait)
	defer cancel()
	return t.WaitWithContext(ctx)
}
