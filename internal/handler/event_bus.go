// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"escpos-service/internal/model"
	"escpos-service/pkg/escpos"
)

// EventBus manages printer event distribution
type EventBus struct {
	subscribers map[model.EventType][]chan model.PrinterEvent
	events      chan model.PrinterEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
	closed      bool
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[model.EventType][]chan model.PrinterEvent),
		events:      make(chan model.PrinterEvent, 1000),
		logger:      logger,
	}
}

// Start distributes events until Stop is called
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distributeEvent(event)
	}

	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	for eventType, subscribers := range eb.subscribers {
		for _, subscriber := range subscribers {
			close(subscriber)
		}
		delete(eb.subscribers, eventType)
	}
}

// Stop closes the bus; subscriber channels are closed once pending events are delivered
func (eb *EventBus) Stop() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if !eb.closed {
		eb.closed = true
		close(eb.events)
	}
}

// Publish publishes an event
func (eb *EventBus) Publish(event model.PrinterEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	if eb.closed {
		return
	}

	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
			zap.String("printer_id", event.PrinterID),
		)
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType model.EventType) <-chan model.PrinterEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.PrinterEvent, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event model.PrinterEvent) {
	eb.mutex.RLock()
	subscribers := eb.subscribers[event.EventType]
	eb.mutex.RUnlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// slow subscriber
		}
	}
}

// PrinterEventTypes lists every event type published on the bus
var PrinterEventTypes = []model.EventType{
	model.EventPrinterConnected,
	model.EventPrinterDisconnected,
	model.EventPrinterError,
	model.EventStatusReport,
	model.EventStatusTimeout,
}

// PrinterEventHandler turns driver callbacks into printer events on the bus
type PrinterEventHandler struct {
	eventBus *EventBus
	logger   *zap.Logger
}

// NewPrinterEventHandler creates a new printer event handler
func NewPrinterEventHandler(eventBus *EventBus, logger *zap.Logger) *PrinterEventHandler {
	return &PrinterEventHandler{
		eventBus: eventBus,
		logger:   logger,
	}
}

// OnPrinterConnected handles printer connected events
func (peh *PrinterEventHandler) OnPrinterConnected(printerID string) {
	peh.emit(model.NewPrinterEvent(model.EventPrinterConnected, printerID, "INFO", map[string]interface{}{
		"state": model.PrinterStateConnected,
	}))

	peh.logger.Info("Printer connected event published", zap.String("printer_id", printerID))
}

// OnPrinterDisconnected handles printer disconnected events
func (peh *PrinterEventHandler) OnPrinterDisconnected(printerID string, reason string) {
	peh.emit(model.NewPrinterEvent(model.EventPrinterDisconnected, printerID, "WARNING", map[string]interface{}{
		"state":  model.PrinterStateDisconnected,
		"reason": reason,
	}))

	peh.logger.Info("Printer disconnected event published",
		zap.String("printer_id", printerID),
		zap.String("reason", reason),
	)
}

// OnPrinterError handles printer error events
func (peh *PrinterEventHandler) OnPrinterError(printerID string, err error) {
	peh.emit(model.NewPrinterEvent(model.EventPrinterError, printerID, "ERROR", map[string]interface{}{
		"error": err.Error(),
	}))

	peh.logger.Error("Printer error event published",
		zap.String("printer_id", printerID),
		zap.Error(err),
	)
}

// OnStatusReport handles decoded status replies
func (peh *PrinterEventHandler) OnStatusReport(printerID string, reports []escpos.StatusReport) {
	peh.emit(model.NewPrinterEvent(model.EventStatusReport, printerID, reportSeverity(reports), map[string]interface{}{
		"reports": reports,
	}))
}

// OnStatusTimeout handles status kinds the printer did not answer
func (peh *PrinterEventHandler) OnStatusTimeout(printerID string, kinds []string) {
	peh.emit(model.NewPrinterEvent(model.EventStatusTimeout, printerID, "WARNING", map[string]interface{}{
		"kinds": kinds,
	}))

	peh.logger.Debug("Status timeout event published",
		zap.String("printer_id", printerID),
		zap.Strings("kinds", kinds),
	)
}

func (peh *PrinterEventHandler) emit(event model.PrinterEvent) {
	peh.eventBus.Publish(event)
}

// reportSeverity is the worst level among the reported status bits
func reportSeverity(reports []escpos.StatusReport) string {
	severity := "INFO"
	for _, report := range reports {
		if !report.Valid {
			severity = "WARNING"
		}
		for _, status := range report.Statuses {
			switch status.Level {
			case escpos.StatusLevelError:
				return "ERROR"
			case escpos.StatusLevelWarning:
				severity = "WARNING"
			}
		}
	}
	return severity
}
