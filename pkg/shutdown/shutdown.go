package shutdown

import (
	"context"
	"sync"

	"github.com/betbot/transferdesk/pkg/logger"
)

// Handler shutdown callback
type Handler func(ctx context.Context) error

// Manager graceful shutdown manager
type Manager struct {
	callbacks []namedHandler
	mu        sync.Mutex
}

type namedHandler struct {
	name string
	fn   Handler
}

// NewManager creates a shutdown manager
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown registers a callback. Callbacks run concurrently.
func (m *Manager) OnShutdown(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, namedHandler{name: name, fn: handler})
}

// Shutdown runs every callback and blocks until they finish or ctx ends.
// ctx should carry a timeout.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	callbacks := append([]namedHandler(nil), m.callbacks...)
	m.mu.Unlock()

	if len(callbacks) == 0 {
		logger.Info("no shutdown callbacks registered")
		return
	}

	logger.Infof("graceful shutdown, %d callbacks", len(callbacks))

	var wg sync.WaitGroup
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func(h namedHandler) {
			defer wg.Done()
			if err := h.fn(ctx); err != nil {
				logger.Warnf("shutdown %s: %v", h.name, err)
			}
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-ctx.Done():
		logger.Warnf("shutdown timed out: %v", ctx.Err())
	}
}
