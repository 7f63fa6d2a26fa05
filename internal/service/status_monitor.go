// internal/service/status_monitor.go
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	internalDriver "escpos-service/internal/driver"
	"escpos-service/internal/utils"
)

// StatusMonitor polls the status battery of every connected printer
type StatusMonitor struct {
	registry *internalDriver.Registry
	interval time.Duration
	timeout  time.Duration
	logger   *utils.ServiceLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStatusMonitor creates a monitor. An interval of zero disables polling.
func NewStatusMonitor(registry *internalDriver.Registry, interval, timeout time.Duration, logger *zap.Logger) *StatusMonitor {
	return &StatusMonitor{
		registry: registry,
		interval: interval,
		timeout:  timeout,
		logger:   utils.NewServiceLogger(logger, "status-monitor"),
	}
}

// Start begins polling in the background
func (sm *StatusMonitor) Start(ctx context.Context) {
	if sm.interval <= 0 {
		sm.logger.Info("Status polling disabled")
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.cancel != nil {
		return
	}

	ctx, sm.cancel = context.WithCancel(ctx)
	sm.wg.Add(1)
	go sm.run(ctx)

	sm.logger.Info("Status monitor started", zap.Duration("interval", sm.interval))
}

// Stop stops polling and waits for the current round to finish
func (sm *StatusMonitor) Stop() {
	sm.mu.Lock()
	cancel := sm.cancel
	sm.cancel = nil
	sm.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	sm.wg.Wait()
	sm.logger.Info("Status monitor stopped")
}

func (sm *StatusMonitor) run(ctx context.Context) {
	defer sm.wg.Done()

	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.PollOnce(ctx)
		}
	}
}

// PollOnce runs one status battery on every connected printer
func (sm *StatusMonitor) PollOnce(ctx context.Context) {
	for _, printer := range sm.registry.List() {
		if ctx.Err() != nil {
			return
		}
		if !printer.IsConnected() {
			continue
		}

		info := printer.GetPrinterInfo()
		pollCtx := ctx
		cancel := context.CancelFunc(func() {})
		if sm.timeout > 0 {
			pollCtx, cancel = context.WithTimeout(ctx, sm.timeout)
		}

		values, err := printer.GetStatuses(pollCtx)
		cancel()

		switch {
		case err == nil:
			sm.logger.Debug("Status polled",
				zap.String("printer_id", info.ID),
				zap.Int("reports", len(values)),
			)
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return
		case errors.Is(err, internalDriver.ErrNotConnected):
		case errors.Is(err, context.DeadlineExceeded):
			// a slow printer is still connected; the next round retries
			sm.logger.Warn("Status poll exceeded its deadline",
				zap.String("printer_id", info.ID),
				zap.Duration("timeout", sm.timeout),
				zap.Error(err),
			)
		default:
			sm.logger.Warn("Status poll failed, disconnecting printer",
				zap.String("printer_id", info.ID),
				zap.Error(err),
			)
			if err := printer.Disconnect(ctx); err != nil {
				sm.logger.Error("Failed to disconnect printer", zap.String("printer_id", info.ID), zap.Error(err))
			}
		}
	}
}
