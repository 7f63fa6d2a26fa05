package handler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"escpos-service/internal/model"
	"escpos-service/pkg/escpos"
)

func receiveEvent(t *testing.T, events <-chan model.PrinterEvent) model.PrinterEvent {
	t.Helper()
	select {
	case event, ok := <-events:
		require.True(t, ok, "subscriber channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return model.PrinterEvent{}
	}
}

func TestEventBus_DeliversBySubscription(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	connected := bus.Subscribe(model.EventPrinterConnected)
	timeouts := bus.Subscribe(model.EventStatusTimeout)
	go bus.Start()
	defer bus.Stop()

	bus.Publish(model.NewPrinterEvent(model.EventStatusTimeout, "front", "WARNING", nil))
	bus.Publish(model.NewPrinterEvent(model.EventPrinterConnected, "front", "INFO", nil))

	assert.Equal(t, model.EventPrinterConnected, receiveEvent(t, connected).EventType)
	assert.Equal(t, model.EventStatusTimeout, receiveEvent(t, timeouts).EventType)
}

func TestEventBus_StopClosesSubscribers(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	events := bus.Subscribe(model.EventPrinterError)
	done := make(chan struct{})
	go func() {
		defer close(done)
		bus.Start()
	}()

	bus.Stop()
	bus.Stop()
	<-done

	_, ok := <-events
	assert.False(t, ok)

	// publishing after stop is a no-op
	bus.Publish(model.NewPrinterEvent(model.EventPrinterError, "front", "ERROR", nil))
}

func TestPrinterEventHandler_PublishesEvents(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	subscriptions := make(map[model.EventType]<-chan model.PrinterEvent)
	for _, eventType := range PrinterEventTypes {
		subscriptions[eventType] = bus.Subscribe(eventType)
	}
	go bus.Start()
	defer bus.Stop()

	handler := NewPrinterEventHandler(bus, zap.NewNop())

	handler.OnPrinterConnected("front")
	event := receiveEvent(t, subscriptions[model.EventPrinterConnected])
	assert.Equal(t, "front", event.PrinterID)
	assert.Equal(t, "INFO", event.Severity)

	handler.OnPrinterDisconnected("front", "cable pulled")
	event = receiveEvent(t, subscriptions[model.EventPrinterDisconnected])
	assert.Equal(t, "WARNING", event.Severity)
	assert.Equal(t, "cable pulled", event.Data["reason"])

	handler.OnPrinterError("front", errors.New("write failed"))
	event = receiveEvent(t, subscriptions[model.EventPrinterError])
	assert.Equal(t, "ERROR", event.Severity)
	assert.Equal(t, "write failed", event.Data["error"])

	handler.OnStatusTimeout("front", []string{escpos.StatusKindRollPaperSensor})
	event = receiveEvent(t, subscriptions[model.EventStatusTimeout])
	assert.Equal(t, "WARNING", event.Severity)
	assert.Equal(t, []string{escpos.StatusKindRollPaperSensor}, event.Data["kinds"])

	report := escpos.PrinterStatusDescriptor.Decode(0x12).Report()
	handler.OnStatusReport("front", []escpos.StatusReport{report})
	event = receiveEvent(t, subscriptions[model.EventStatusReport])
	assert.Equal(t, reportSeverity([]escpos.StatusReport{report}), event.Severity)
}

func TestReportSeverity(t *testing.T) {
	tests := []struct {
		name     string
		reports  []escpos.StatusReport
		expected string
	}{
		{"empty", nil, "INFO"},
		{"ok only", []escpos.StatusReport{{Valid: true, Statuses: []escpos.StatusBit{{Level: escpos.StatusLevelOK}}}}, "INFO"},
		{"invalid reply", []escpos.StatusReport{{Valid: false}}, "WARNING"},
		{"warning bit", []escpos.StatusReport{{Valid: true, Statuses: []escpos.StatusBit{{Level: escpos.StatusLevelWarning}}}}, "WARNING"},
		{"error wins", []escpos.StatusReport{
			{Valid: true, Statuses: []escpos.StatusBit{{Level: escpos.StatusLevelWarning}}},
			{Valid: true, Statuses: []escpos.StatusBit{{Level: escpos.StatusLevelError}}},
		}, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, reportSeverity(tt.reports))
		})
	}
}
