package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"escpos-service/internal/config"
	internalDriver "escpos-service/internal/driver"
	"escpos-service/internal/driver/drivertest"
	"escpos-service/internal/service"
	"escpos-service/pkg/escpos"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func newTestPrinterService(t *testing.T, printers ...*drivertest.FakePrinter) *service.PrinterService {
	t.Helper()

	registry := internalDriver.NewRegistry(nil, zap.NewNop())
	for _, printer := range printers {
		require.NoError(t, registry.Add(printer.Info.ID, printer))
	}

	cfg := &config.Config{}
	cfg.App.Name = "escpos-service"
	cfg.App.Version = "test"
	cfg.Device.OperationTimeout = time.Second
	return service.NewPrinterService(registry, cfg, zap.NewNop())
}

func newPrinterRouter(svc *service.PrinterService) *gin.Engine {
	router := gin.New()
	NewPrinterHandler(svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp testResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func connectedPrinter(t *testing.T, id string) *drivertest.FakePrinter {
	t.Helper()
	fake := drivertest.NewFakePrinter(id)
	require.NoError(t, fake.Connect(context.Background()))
	return fake
}

func TestPrinterHandler_ListPrinters(t *testing.T) {
	router := newPrinterRouter(newTestPrinterService(t,
		drivertest.NewFakePrinter("back"),
		connectedPrinter(t, "front"),
	))

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/printers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	var printers []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &printers))
	require.Len(t, printers, 2)
	assert.Equal(t, "back", printers[0]["id"])
	assert.Equal(t, "DISCONNECTED", printers[0]["state"])
	assert.Equal(t, "front", printers[1]["id"])
	assert.Equal(t, "CONNECTED", printers[1]["state"])
	assert.Contains(t, printers[1], "health")
}

func TestPrinterHandler_GetPrinterNotFound(t *testing.T) {
	router := newPrinterRouter(newTestPrinterService(t))

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/printers/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestPrinterHandler_ConnectDisconnect(t *testing.T) {
	fake := drivertest.NewFakePrinter("front")
	router := newPrinterRouter(newTestPrinterService(t, fake))

	w, _ := doRequest(t, router, http.MethodPost, "/api/v1/printers/front/connect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, fake.IsConnected())

	w, _ = doRequest(t, router, http.MethodPost, "/api/v1/printers/front/disconnect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, fake.IsConnected())
}

func TestPrinterHandler_ConnectFailure(t *testing.T) {
	fake := drivertest.NewFakePrinter("front")
	fake.ConnectErr = errors.New("connection refused")
	router := newPrinterRouter(newTestPrinterService(t, fake))

	w, resp := doRequest(t, router, http.MethodPost, "/api/v1/printers/front/connect", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Details, "connection refused")
}

func TestPrinterHandler_GetStatus(t *testing.T) {
	fake := connectedPrinter(t, "front")
	fake.Replies[escpos.StatusKindPrinter] = 0x12
	router := newPrinterRouter(newTestPrinterService(t, fake))

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/printers/front/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report escpos.StatusReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, escpos.StatusKindPrinter, report.Kind)
	assert.Equal(t, byte(0x12), report.Byte)
	assert.True(t, report.Valid)
}

func TestPrinterHandler_GetStatusErrors(t *testing.T) {
	fake := connectedPrinter(t, "front")
	idle := drivertest.NewFakePrinter("idle")
	router := newPrinterRouter(newTestPrinterService(t, fake, idle))

	tests := []struct {
		name string
		path string
		code int
	}{
		{"unknown kind", "/api/v1/printers/front/status?kind=bogus", http.StatusBadRequest},
		{"no reply", "/api/v1/printers/front/status?kind=paper", http.StatusGatewayTimeout},
		{"not connected", "/api/v1/printers/idle/status", http.StatusConflict},
		{"unknown printer", "/api/v1/printers/missing/status", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := doRequest(t, router, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.code, w.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestPrinterHandler_GetStatuses(t *testing.T) {
	fake := connectedPrinter(t, "front")
	fake.Replies[escpos.StatusKindPrinter] = 0x12
	fake.Replies[escpos.StatusKindErrorCause] = 0x12
	router := newPrinterRouter(newTestPrinterService(t, fake))

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/printers/front/statuses", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot struct {
		PrinterID string                `json:"printer_id"`
		Reports   []escpos.StatusReport `json:"reports"`
		Missing   []string              `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &snapshot))
	assert.Equal(t, "front", snapshot.PrinterID)
	require.Len(t, snapshot.Reports, 2)
	assert.Equal(t, escpos.StatusKindPrinter, snapshot.Reports[0].Kind)
	assert.Equal(t, escpos.StatusKindErrorCause, snapshot.Reports[1].Kind)
	assert.Equal(t, []string{escpos.StatusKindOfflineCause, escpos.StatusKindRollPaperSensor}, snapshot.Missing)
}

func TestPrinterHandler_PrintBarcode(t *testing.T) {
	fake := connectedPrinter(t, "front")
	router := newPrinterRouter(newTestPrinterService(t, fake))

	w, resp := doRequest(t, router, http.MethodPost, "/api/v1/printers/front/barcode", map[string]interface{}{
		"data": "1234",
	})
	require.Equal(t, http.StatusOK, w.Code, string(resp.Data))
	assert.Equal(t, []string{"1234"}, fake.Barcodes())

	var preview map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &preview))
	assert.Equal(t, "047b430c22", preview["body_hex"])
}

func TestPrinterHandler_PrintBarcodeInvalid(t *testing.T) {
	fake := connectedPrinter(t, "front")
	router := newPrinterRouter(newTestPrinterService(t, fake))

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing data", map[string]interface{}{}},
		{"non ascii", map[string]interface{}{"data": "café"}},
		{"bad hri position", map[string]interface{}{"data": "1234", "hri_position": "left"}},
		{"bad width", map[string]interface{}{"data": "1234", "width": 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doRequest(t, router, http.MethodPost, "/api/v1/printers/front/barcode", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, fake.Barcodes())
}

func TestPrinterHandler_PreviewBarcodeValidation(t *testing.T) {
	router := newPrinterRouter(newTestPrinterService(t))

	w, resp := doRequest(t, router, http.MethodPost, "/api/v1/barcode/code128", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	var data struct {
		ValidationErrors map[string]string `json:"validation_errors"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, map[string]string{"Data": "required"}, data.ValidationErrors)

	w, resp = doRequest(t, router, http.MethodPost, "/api/v1/barcode/code128", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
}

func TestPrinterHandler_PreviewBarcode(t *testing.T) {
	router := newPrinterRouter(newTestPrinterService(t))

	w, resp := doRequest(t, router, http.MethodPost, "/api/v1/barcode/code128", map[string]interface{}{
		"data": "1234",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var preview struct {
		Blocks []struct {
			Mode string `json:"mode"`
			Text string `json:"text"`
		} `json:"blocks"`
		Body   string `json:"body_hex"`
		Length int    `json:"length"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &preview))
	assert.Equal(t, "047b430c22", preview.Body)
	require.Len(t, preview.Blocks, 1)
	assert.Equal(t, "1234", preview.Blocks[0].Text)
	assert.Positive(t, preview.Length)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("lookup: %w", service.ErrPrinterNotFound), http.StatusNotFound},
		{escpos.ErrUnknownStatusKind, http.StatusBadRequest},
		{escpos.ErrEmptyBarcode, http.StatusBadRequest},
		{escpos.ErrInvalidBarcodeData, http.StatusBadRequest},
		{escpos.ErrBarcodeTooLong, http.StatusBadRequest},
		{escpos.ErrInvalidBarcodeOptions, http.StatusBadRequest},
		{internalDriver.ErrNotConnected, http.StatusConflict},
		{internalDriver.ErrStatusTimeout, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, errorStatus(tt.err), tt.err.Error())
	}
}
