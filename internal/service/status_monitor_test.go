package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"escpos-service/internal/driver/drivertest"
	"escpos-service/pkg/escpos"
)

func TestStatusMonitor_PollOnce(t *testing.T) {
	online := connectedFake(t, "online")
	online.Replies[escpos.StatusKindPrinter] = 0x12
	offline := drivertest.NewFakePrinter("offline")
	broken := connectedFake(t, "broken")
	broken.StatusErr = errors.New("failed to read from TCP connection: EOF")

	_, registry := newTestService(t, online, offline, broken)
	monitor := NewStatusMonitor(registry, time.Second, time.Second, zap.NewNop())

	monitor.PollOnce(context.Background())

	assert.Equal(t, 1, online.StatusRuns())
	assert.True(t, online.IsConnected())

	assert.Equal(t, 0, offline.StatusRuns())

	assert.Equal(t, 1, broken.StatusRuns())
	assert.False(t, broken.IsConnected())
}

func TestStatusMonitor_DeadlineKeepsPrinterConnected(t *testing.T) {
	slow := connectedFake(t, "slow")
	slow.StatusErr = fmt.Errorf("offline_cause status reply: %w", context.DeadlineExceeded)

	_, registry := newTestService(t, slow)
	monitor := NewStatusMonitor(registry, time.Second, time.Second, zap.NewNop())

	monitor.PollOnce(context.Background())

	assert.Equal(t, 1, slow.StatusRuns())
	assert.True(t, slow.IsConnected())

	slow.StatusErr = nil
	slow.Replies[escpos.StatusKindPrinter] = 0x16
	monitor.PollOnce(context.Background())
	assert.Equal(t, 2, slow.StatusRuns())
	assert.True(t, slow.IsConnected())
}

func TestStatusMonitor_StartStop(t *testing.T) {
	fake := connectedFake(t, "front")
	_, registry := newTestService(t, fake)
	monitor := NewStatusMonitor(registry, 10*time.Millisecond, time.Second, zap.NewNop())

	monitor.Start(context.Background())
	require.Eventually(t, func() bool { return fake.StatusRuns() >= 2 }, time.Second, 5*time.Millisecond)
	monitor.Stop()

	runs := fake.StatusRuns()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, runs, fake.StatusRuns())

	monitor.Stop()
}

func TestStatusMonitor_Disabled(t *testing.T) {
	fake := connectedFake(t, "front")
	_, registry := newTestService(t, fake)
	monitor := NewStatusMonitor(registry, 0, time.Second, zap.NewNop())

	monitor.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	monitor.Stop()

	assert.Equal(t, 0, fake.StatusRuns())
}
