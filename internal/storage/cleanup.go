package storage

import (
	"context"
	"time"

	"github.com/atelierline/storefront/internal/log"
)

// CleanupManager periodically sweeps expired handshakes and sessions
type CleanupManager struct {
	storage  Storage
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(storage Storage, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		storage:  storage,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the cleanup loop in a goroutine
func (cm *CleanupManager) Start(ctx context.Context) {
	log.LogInfoWithFields("cleanup", "Starting session cleanup manager", map[string]any{
		"interval": cm.interval.String(),
	})

	go cm.run(ctx)
}

// Stop gracefully stops the cleanup loop
func (cm *CleanupManager) Stop() {
	close(cm.stopChan)
	<-cm.doneChan
}

func (cm *CleanupManager) run(ctx context.Context) {
	defer close(cm.doneChan)

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cm.stopChan:
			return
		case <-ticker.C:
			removed, err := cm.storage.CleanupExpired(ctx)
			if err != nil {
				log.LogWarnWithFields("cleanup", "Cleanup pass failed", map[string]any{
					"error": err.Error(),
				})
				continue
			}
			if removed > 0 {
				log.LogDebugWithFields("cleanup", "Removed expired records", map[string]any{
					"count": removed,
				})
			}
		}
	}
}
