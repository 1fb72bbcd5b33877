package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/expense-batchpay/internal/application/service"
	"github.com/garyjia/expense-batchpay/internal/domain/payment"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	batchPayments service.BatchPaymentService
	health        HealthFunc
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(batchPayments service.BatchPaymentService, health HealthFunc, logger Logger) *Handlers {
	return &Handlers{
		batchPayments: batchPayments,
		health:        health,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Version    string      `json:"version"`
	Components interface{} `json:"components,omitempty"`
}

// ProcessUTRRequest is the body of POST /process-utr
type ProcessUTRRequest struct {
	ExpenseIDs     []int64 `json:"expenseIds" binding:"required,min=1,max=500"`
	UTRNumber      string  `json:"utrNumber" binding:"required"`
	PaymentRemarks string  `json:"paymentRemarks"`
}

// GenerateOTPRequest is the body of POST /generate-otp
type GenerateOTPRequest struct {
	ExpenseIDs []int64 `json:"expenseIds" binding:"required,min=1,max=500"`
}

// VerifyAndProcessRequest is the body of POST /verify-and-process
type VerifyAndProcessRequest struct {
	OTPID          string `json:"otpId" binding:"required"`
	OTP            string `json:"otp" binding:"required"`
	PaymentRemarks string `json:"paymentRemarks"`
}

// CancelOTPRequest is the body of POST /cancel-otp
type CancelOTPRequest struct {
	OTPID string `json:"otpId" binding:"required"`
}

// HistoryQuery holds GET /history paging parameters
type HistoryQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// field name, or field.tag for a rule-specific message -> message shown
// when its binding rule fails
var bindingMessages = map[string]string{
	"ExpenseIDs":     "Please provide at least one expense ID",
	"ExpenseIDs.max": fmt.Sprintf("A batch can contain at most %d expenses", payment.MaxBatchSize),
	"UTRNumber":  "UTR number is required",
	"OTPID":      "OTP ID is required",
	"OTP":        "OTP ID and OTP are required",
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	status := http.StatusOK
	if h.health != nil {
		healthy, details := h.health(c.Request.Context())
		response.Components = details
		if !healthy {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    response,
	})
}

// ProcessUTR handles POST /api/batch-payments/process-utr
func (h *Handlers) ProcessUTR(c *gin.Context) {
	var req ProcessUTRRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.batchPayments.SettleDirect(c.Request.Context(), service.DirectSettlement{
		Actor:      actorFrom(c),
		ExpenseIDs: req.ExpenseIDs,
		UTRNumber:  req.UTRNumber,
		Remarks:    req.PaymentRemarks,
		Meta:       requestMeta(c),
	})
	if err != nil {
		h.respondError(c, err, "Failed to process batch payment")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "Payment is done",
		Data:    result,
	})
}

// GenerateOTP handles POST /api/batch-payments/generate-otp
func (h *Handlers) GenerateOTP(c *gin.Context) {
	var req GenerateOTPRequest
	if !h.bind(c, &req) {
		return
	}

	actor := actorFrom(c)
	grant, err := h.batchPayments.GenerateOTP(c.Request.Context(), actor, req.ExpenseIDs, requestMeta(c))
	if err != nil {
		h.respondError(c, err, "Failed to generate OTP. Please try again.")
		return
	}

	channels := "email"
	if actor.Phone != "" {
		channels = "email and phone"
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("OTP sent to your %s", channels),
		Data:    grant,
	})
}

// VerifyAndProcess handles POST /api/batch-payments/verify-and-process
func (h *Handlers) VerifyAndProcess(c *gin.Context) {
	var req VerifyAndProcessRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.batchPayments.VerifyAndSettle(c.Request.Context(), service.OTPSettlement{
		Actor:   actorFrom(c),
		OTPID:   req.OTPID,
		Code:    req.OTP,
		Remarks: req.PaymentRemarks,
		Meta:    requestMeta(c),
	})
	if err != nil {
		h.respondError(c, err, "Failed to process batch payment")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("Successfully processed %d out of %d expenses",
			result.TotalProcessed, result.TotalProcessed+result.TotalFailed),
		Data: result,
	})
}

// CancelOTP handles POST /api/batch-payments/cancel-otp
func (h *Handlers) CancelOTP(c *gin.Context) {
	var req CancelOTPRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.batchPayments.CancelOTP(c.Request.Context(), actorFrom(c), req.OTPID); err != nil {
		h.respondError(c, err, "Failed to cancel OTP")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "OTP cancelled successfully",
	})
}

// ActiveOTP handles GET /api/batch-payments/active-otp
func (h *Handlers) ActiveOTP(c *gin.Context) {
	active, err := h.batchPayments.ActiveOTP(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err, "Failed to fetch active OTP")
		return
	}

	if active == nil {
		c.JSON(http.StatusOK, Response{
			Success: true,
			Message: "No active OTP",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    active,
	})
}

// History handles GET /api/batch-payments/history
func (h *Handlers) History(c *gin.Context) {
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Message: "Invalid query parameters",
		})
		return
	}

	page, err := h.batchPayments.History(c.Request.Context(), actorFrom(c), q.Page, q.Limit)
	if err != nil {
		h.respondError(c, err, "Failed to fetch batch payment history")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    page,
	})
}

// ExportHistory handles GET /api/batch-payments/history/export
func (h *Handlers) ExportHistory(c *gin.Context) {
	data, err := h.batchPayments.ExportHistory(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err, "Failed to export batch payment history")
		return
	}

	filename := fmt.Sprintf("batch-payments-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// bind decodes the JSON body and writes a 400 when it fails
func (h *Handlers) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Message: bindingMessage(err),
		})
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if msg, ok := bindingMessages[fe.StructField()+"."+fe.Tag()]; ok {
			return msg
		}
		if msg, ok := bindingMessages[fe.StructField()]; ok {
			return msg
		}
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
	return "Invalid request body"
}

// respondError maps domain error kinds to status codes. Unknown errors are
// logged and answered with fallback.
func (h *Handlers) respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(fallback, "path", c.Request.URL.Path, "error", err)
		c.JSON(status, Response{
			Success: false,
			Message: fallback,
			Error:   "internal server error",
		})
		return
	}

	c.JSON(status, Response{
		Success: false,
		Message: err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, payment.ErrValidation), errors.Is(err, payment.ErrOTPState):
		return http.StatusBadRequest
	case errors.Is(err, payment.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, payment.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
