package handlers

import (
	"net/http"

	paymasterapi "paywallet/pkg/api/paymaster"
	"paywallet/pkg/middleware"
)

// StartStream opens a payment stream from the authenticated wallet
func StartStream(c middleware.Context) {
	var req paymasterapi.StartStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: "Invalid request body"})
		return
	}

	id, err := engine.StartStream(c.Request.Context(), callerWallet(c), req.To,
		req.RatePerSec, req.Duration, req.TotalAmount)
	if err != nil {
		respondEngineError(c, "start_stream", err)
		return
	}

	recordSuccess("start_stream")
	c.JSON(http.StatusCreated, paymasterapi.StartStreamResponse{StreamID: id})
}

// GetStream returns a stream by id
func GetStream(c middleware.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	stream, err := engine.GetStream(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, "get_stream", err)
		return
	}

	c.JSON(http.StatusOK, paymasterapi.StreamResponse{Stream: stream})
}

// WithdrawStream pays out accrued stream earnings to the receiver
func WithdrawStream(c middleware.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	amount, err := engine.WithdrawStream(c.Request.Context(), id, callerWallet(c))
	if err != nil {
		respondEngineError(c, "withdraw_stream", err)
		return
	}

	recordSuccess("withdraw_stream")
	c.JSON(http.StatusOK, paymasterapi.WithdrawResponse{Amount: amount})
}
