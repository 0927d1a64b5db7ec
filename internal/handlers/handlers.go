package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"paywallet/internal/escrow"
	paymasterapi "paywallet/pkg/api/paymaster"
	"paywallet/pkg/ctxkeys"
	"paywallet/pkg/logging"
	"paywallet/pkg/middleware"
	"paywallet/pkg/monitoring"
)

var (
	engine    *escrow.Engine
	logger    logging.Logger
	jwtSecret []byte
	metrics   *PaymasterMetrics
)

// PaymasterMetrics holds service-specific Prometheus metrics
type PaymasterMetrics struct {
	Operations *prometheus.CounterVec
	ActiveItem *prometheus.GaugeVec
	OpDuration *prometheus.HistogramVec
}

// NewPaymasterMetrics builds the service metric set from a collector
func NewPaymasterMetrics(mc *monitoring.MetricsCollector) *PaymasterMetrics {
	active, operations, duration := mc.CreateBusinessMetrics()
	return &PaymasterMetrics{
		Operations: operations,
		ActiveItem: active,
		OpDuration: duration,
	}
}

// Init initializes the handlers with the escrow engine and logger
func Init(e *escrow.Engine, log logging.Logger, secret []byte, m *PaymasterMetrics) {
	engine = e
	logger = log
	jwtSecret = secret
	metrics = m
}

// callerWallet returns the authenticated wallet address from the request
// context, or "" when the request authenticated with a service token.
func callerWallet(c middleware.Context) string {
	return c.GetString(string(ctxkeys.KeyWalletAddr))
}

// pathID parses the named int64 path parameter, replying 400 on failure.
func pathID(c middleware.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return id, true
}

// respondEngineError maps escrow errors onto HTTP statuses.
func respondEngineError(c middleware.Context, operation string, err error) {
	if metrics != nil {
		metrics.Operations.WithLabelValues(operation, "error").Inc()
	}

	switch {
	case errors.Is(err, escrow.ErrPayrollNotFound),
		errors.Is(err, escrow.ErrStreamNotFound),
		errors.Is(err, escrow.ErrEmployeeNotFound):
		c.JSON(http.StatusNotFound, paymasterapi.ErrorResponse{Error: err.Error()})
	case errors.Is(err, escrow.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, paymasterapi.ErrorResponse{Error: err.Error()})
	case errors.Is(err, escrow.ErrInvalidAmount),
		errors.Is(err, escrow.ErrInvalidRecipients):
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: err.Error()})
	case errors.Is(err, escrow.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, paymasterapi.ErrorResponse{Error: err.Error()})
	case errors.Is(err, escrow.ErrCircuitBreakerActive):
		c.JSON(http.StatusServiceUnavailable, paymasterapi.ErrorResponse{Error: err.Error()})
	case errors.Is(err, escrow.ErrPayrollAlreadyFunded),
		errors.Is(err, escrow.ErrPayrollNotFunded),
		errors.Is(err, escrow.ErrPayrollCompleted),
		errors.Is(err, escrow.ErrStreamInactive),
		errors.Is(err, escrow.ErrTooEarly),
		errors.Is(err, escrow.ErrAlreadyInitialized):
		c.JSON(http.StatusConflict, paymasterapi.ErrorResponse{Error: err.Error()})
	default:
		logger.WithError(err).WithFields(logging.Fields{
			"operation": operation,
		}).Error("Operation failed")
		c.JSON(http.StatusInternalServerError, paymasterapi.ErrorResponse{Error: "Internal server error"})
	}
}

func recordSuccess(operation string) {
	if metrics != nil {
		metrics.Operations.WithLabelValues(operation, "success").Inc()
	}
}
