package handlers

import (
	"net/http"

	paymasterapi "paywallet/pkg/api/paymaster"
	"paywallet/pkg/logging"
	"paywallet/pkg/middleware"
)

// ToggleCircuitBreaker flips the global breaker. The engine verifies the
// caller against the stored admin identity.
func ToggleCircuitBreaker(c middleware.Context) {
	active, err := engine.ToggleCircuitBreaker(c.Request.Context(), callerWallet(c))
	if err != nil {
		respondEngineError(c, "toggle_circuit_breaker", err)
		return
	}

	recordSuccess("toggle_circuit_breaker")
	logger.WithFields(logging.Fields{
		"admin":  callerWallet(c),
		"active": active,
	}).Info("Circuit breaker toggled")

	c.JSON(http.StatusOK, paymasterapi.CircuitBreakerResponse{Active: active})
}

// GetCircuitBreaker reports the current breaker state
func GetCircuitBreaker(c middleware.Context) {
	active, err := engine.CircuitBreakerActive(c.Request.Context())
	if err != nil {
		respondEngineError(c, "get_circuit_breaker", err)
		return
	}

	c.JSON(http.StatusOK, paymasterapi.CircuitBreakerResponse{Active: active})
}
