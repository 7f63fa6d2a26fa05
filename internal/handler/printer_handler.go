// internal/handler/printer_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"escpos-service/internal/driver"
	"escpos-service/internal/service"
	"escpos-service/internal/utils"
	"escpos-service/pkg/escpos"
)

// PrinterHandler handles printer-related HTTP requests
type PrinterHandler struct {
	printerService *service.PrinterService
	logger         *utils.ServiceLogger
}

// NewPrinterHandler creates a new printer handler
func NewPrinterHandler(printerService *service.PrinterService, logger *zap.Logger) *PrinterHandler {
	return &PrinterHandler{
		printerService: printerService,
		logger:         utils.NewServiceLogger(logger, "printer-handler"),
	}
}

// RegisterRoutes registers printer-related routes
func (h *PrinterHandler) RegisterRoutes(router *gin.RouterGroup) {
	printers := router.Group("/printers")
	{
		printers.GET("", h.ListPrinters)

		printerRoutes := printers.Group("/:printer_id")
		{
			printerRoutes.GET("", h.GetPrinter)
			printerRoutes.POST("/connect", h.ConnectPrinter)
			printerRoutes.POST("/disconnect", h.DisconnectPrinter)
			printerRoutes.GET("/status", h.GetStatus)
			printerRoutes.GET("/statuses", h.GetStatuses)
			printerRoutes.POST("/barcode", h.PrintBarcode)
		}
	}

	router.POST("/barcode/code128", h.PreviewBarcode)
}

// ListPrinters lists configured printers
// @Summary List printers
// @Description Get every configured printer with its connection state and health
// @Tags Printers
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]service.PrinterView} "Printers retrieved successfully"
// @Router /printers [get]
func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers := h.printerService.ListPrinters(c.Request.Context())
	utils.SuccessResponse(c, http.StatusOK, "Printers retrieved successfully", printers)
}

// GetPrinter retrieves one printer
// @Summary Get printer
// @Description Get a configured printer by id
// @Tags Printers
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=service.PrinterView} "Printer retrieved successfully"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Router /printers/{printer_id} [get]
func (h *PrinterHandler) GetPrinter(c *gin.Context) {
	printer, err := h.printerService.GetPrinter(c.Request.Context(), c.Param("printer_id"))
	if err != nil {
		h.respondError(c, "Failed to get printer", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Printer retrieved successfully", printer)
}

// ConnectPrinter opens the printer connection
// @Summary Connect printer
// @Description Open the printer's serial, USB or TCP transport
// @Tags Printers
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=service.PrinterView} "Printer connected successfully"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Failure 500 {object} utils.APIResponse "Connection failed"
// @Router /printers/{printer_id}/connect [post]
func (h *PrinterHandler) ConnectPrinter(c *gin.Context) {
	printerID := c.Param("printer_id")

	printer, err := h.printerService.ConnectPrinter(c.Request.Context(), printerID)
	if err != nil {
		h.respondError(c, "Failed to connect printer", err)
		return
	}

	h.logger.Info("Printer connected", zap.String("printer_id", printerID))
	utils.SuccessResponse(c, http.StatusOK, "Printer connected successfully", printer)
}

// DisconnectPrinter closes the printer connection
// @Summary Disconnect printer
// @Description Close the printer's transport
// @Tags Printers
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=service.PrinterView} "Printer disconnected successfully"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Router /printers/{printer_id}/disconnect [post]
func (h *PrinterHandler) DisconnectPrinter(c *gin.Context) {
	printer, err := h.printerService.DisconnectPrinter(c.Request.Context(), c.Param("printer_id"))
	if err != nil {
		h.respondError(c, "Failed to disconnect printer", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Printer disconnected successfully", printer)
}

// GetStatus performs one status exchange
// @Summary Get printer status
// @Description Send one real-time status request (DLE EOT n) and decode the reply
// @Tags Status
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Param kind query string false "Status kind" Enums(printer, offline, error, paper) default(printer)
// @Success 200 {object} utils.APIResponse{data=escpos.StatusReport} "Status retrieved successfully"
// @Failure 400 {object} utils.APIResponse "Unknown status kind"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Failure 409 {object} utils.APIResponse "Printer not connected"
// @Failure 504 {object} utils.APIResponse "Printer did not answer"
// @Router /printers/{printer_id}/status [get]
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	report, err := h.printerService.GetStatus(c.Request.Context(), c.Param("printer_id"), c.Query("kind"))
	if err != nil {
		h.respondError(c, "Failed to get printer status", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Status retrieved successfully", report)
}

// GetStatuses runs the full status battery
// @Summary Get all printer statuses
// @Description Query printer, offline cause, error cause and roll paper status; kinds that time out are listed as missing
// @Tags Status
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=driver.StatusSnapshot} "Statuses retrieved successfully"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Failure 409 {object} utils.APIResponse "Printer not connected"
// @Router /printers/{printer_id}/statuses [get]
func (h *PrinterHandler) GetStatuses(c *gin.Context) {
	snapshot, err := h.printerService.GetStatuses(c.Request.Context(), c.Param("printer_id"))
	if err != nil {
		h.respondError(c, "Failed to get printer statuses", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Statuses retrieved successfully", snapshot)
}

// PrintBarcode prints a CODE128 barcode
// @Summary Print CODE128 barcode
// @Description Encode data as Xprinter CODE128 and send it to the printer
// @Tags Barcode
// @Accept json
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Param request body service.BarcodeRequest true "Barcode request"
// @Success 200 {object} utils.APIResponse{data=driver.BarcodePreview} "Barcode printed successfully"
// @Failure 400 {object} utils.APIResponse "Invalid barcode"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Failure 409 {object} utils.APIResponse "Printer not connected"
// @Router /printers/{printer_id}/barcode [post]
func (h *PrinterHandler) PrintBarcode(c *gin.Context) {
	req, ok := bindBarcodeRequest(c)
	if !ok {
		return
	}

	preview, err := h.printerService.PrintBarcode(c.Request.Context(), c.Param("printer_id"), req)
	if err != nil {
		h.respondError(c, "Failed to print barcode", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Barcode printed successfully", preview)
}

// PreviewBarcode encodes a barcode without printing
// @Summary Preview CODE128 barcode
// @Description Return the block split and the exact command bytes without touching a printer
// @Tags Barcode
// @Accept json
// @Produce json
// @Param request body service.BarcodeRequest true "Barcode request"
// @Success 200 {object} utils.APIResponse{data=driver.BarcodePreview} "Barcode encoded successfully"
// @Failure 400 {object} utils.APIResponse "Invalid barcode"
// @Router /barcode/code128 [post]
func (h *PrinterHandler) PreviewBarcode(c *gin.Context) {
	req, ok := bindBarcodeRequest(c)
	if !ok {
		return
	}

	preview, err := h.printerService.PreviewBarcode(req)
	if err != nil {
		h.respondError(c, "Failed to encode barcode", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Barcode encoded successfully", preview)
}

// bindBarcodeRequest decodes the request body; failed binding rules are
// reported per field
func bindBarcodeRequest(c *gin.Context) (*service.BarcodeRequest, bool) {
	var req service.BarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make(map[string]string, len(validationErrors))
			for _, fieldErr := range validationErrors {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
			utils.ValidationErrorResponse(c, fields)
			return nil, false
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	return &req, true
}

// respondError maps service errors onto HTTP status codes
func (h *PrinterHandler) respondError(c *gin.Context, message string, err error) {
	statusCode := errorStatus(err)
	if statusCode == http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("printer_id", c.Param("printer_id")),
			zap.Error(err),
		)
	}
	utils.ErrorResponse(c, statusCode, message, err)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrPrinterNotFound):
		return http.StatusNotFound
	case errors.Is(err, escpos.ErrUnknownStatusKind),
		errors.Is(err, escpos.ErrEmptyBarcode),
		errors.Is(err, escpos.ErrInvalidBarcodeData),
		errors.Is(err, escpos.ErrBarcodeTooLong),
		errors.Is(err, escpos.ErrInvalidBarcodeOptions):
		return http.StatusBadRequest
	case errors.Is(err, driver.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, driver.ErrStatusTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
