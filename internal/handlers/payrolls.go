package handlers

import (
	"net/http"

	paymasterapi "paywallet/pkg/api/paymaster"
	"paywallet/pkg/middleware"
	"paywallet/pkg/models"
)

// CreatePayroll opens a new escrow for the authenticated employer
func CreatePayroll(c middleware.Context) {
	var req paymasterapi.CreatePayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: "Invalid request body"})
		return
	}

	scheduleType := models.ScheduleType(req.ScheduleType)
	if !scheduleType.Valid() {
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: "Invalid schedule type"})
		return
	}

	recipients := make([]models.Recipient, len(req.Recipients))
	for i, r := range req.Recipients {
		recipients[i] = models.Recipient{Address: r.Address, Amount: r.Amount}
	}

	id, err := engine.CreatePayroll(c.Request.Context(), callerWallet(c), recipients,
		req.Asset, scheduleType, req.ReleaseTime, req.StreamRate)
	if err != nil {
		respondEngineError(c, "create_payroll", err)
		return
	}

	recordSuccess("create_payroll")
	c.JSON(http.StatusCreated, paymasterapi.CreatePayrollResponse{PayrollID: id})
}

// GetPayroll returns a payroll by id
func GetPayroll(c middleware.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	payroll, err := engine.GetPayroll(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, "get_payroll", err)
		return
	}

	c.JSON(http.StatusOK, paymasterapi.PayrollResponse{Payroll: payroll})
}

// Deposit adds escrow funds to a payroll
func Deposit(c middleware.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req paymasterapi.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := engine.Deposit(c.Request.Context(), id, callerWallet(c), req.Amount); err != nil {
		respondEngineError(c, "deposit", err)
		return
	}

	recordSuccess("deposit")
	payroll, err := engine.GetPayroll(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, "deposit", err)
		return
	}
	c.JSON(http.StatusOK, paymasterapi.PayrollResponse{Payroll: payroll})
}

// Release pays all unpaid recipients and completes the payroll
func Release(c middleware.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := engine.Release(c.Request.Context(), id, callerWallet(c)); err != nil {
		respondEngineError(c, "release", err)
		return
	}

	recordSuccess("release")
	payroll, err := engine.GetPayroll(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, "release", err)
		return
	}
	c.JSON(http.StatusOK, paymasterapi.PayrollResponse{Payroll: payroll})
}

// CancelPayroll moves a payroll to the cancelled state
func CancelPayroll(c middleware.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := engine.Cancel(c.Request.Context(), id, callerWallet(c)); err != nil {
		respondEngineError(c, "cancel_payroll", err)
		return
	}

	recordSuccess("cancel_payroll")
	payroll, err := engine.GetPayroll(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, "cancel_payroll", err)
		return
	}
	c.JSON(http.StatusOK, paymasterapi.PayrollResponse{Payroll: payroll})
}
