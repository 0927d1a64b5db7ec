package handlers

import (
	"net/http"

	"paywallet/internal/escrow"
	paymasterapi "paywallet/pkg/api/paymaster"
	"paywallet/pkg/middleware"
	"paywallet/pkg/models"
)

// AddEmployee appends a roster entry for the authenticated employer
func AddEmployee(c middleware.Context) {
	var req paymasterapi.AddEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: "Invalid request body"})
		return
	}

	id, err := engine.AddEmployee(c.Request.Context(), callerWallet(c), escrow.NewEmployee{
		Wallet:          req.Wallet,
		Name:            req.Name,
		Email:           req.Email,
		Position:        req.Position,
		Salary:          req.Salary,
		Currency:        req.Currency,
		PaymentSchedule: req.PaymentSchedule,
	})
	if err != nil {
		respondEngineError(c, "add_employee", err)
		return
	}

	recordSuccess("add_employee")
	c.JSON(http.StatusCreated, paymasterapi.AddEmployeeResponse{EmployeeID: id})
}

// GetEmployee returns a roster entry by id. Entries are visible only to
// their owning employer.
func GetEmployee(c middleware.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	employee, err := engine.GetEmployee(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, "get_employee", err)
		return
	}
	if employee.Employer != callerWallet(c) {
		respondEngineError(c, "get_employee", escrow.ErrNotAuthorized)
		return
	}

	c.JSON(http.StatusOK, paymasterapi.EmployeeResponse{Employee: employee})
}

// ListEmployees returns the employer's full roster in insertion order
func ListEmployees(c middleware.Context) {
	employees, err := engine.EmployerEmployees(c.Request.Context(), callerWallet(c))
	if err != nil {
		respondEngineError(c, "list_employees", err)
		return
	}

	resp := paymasterapi.EmployeeListResponse{
		Employees: make([]*models.Employee, len(employees)),
		Count:     len(employees),
	}
	for i := range employees {
		resp.Employees[i] = &employees[i]
	}
	c.JSON(http.StatusOK, resp)
}

// CountActiveEmployees returns the employer's active headcount
func CountActiveEmployees(c middleware.Context) {
	count, err := engine.CountActiveEmployees(c.Request.Context(), callerWallet(c))
	if err != nil {
		respondEngineError(c, "count_employees", err)
		return
	}

	c.JSON(http.StatusOK, paymasterapi.EmployeeCountResponse{Count: count})
}

// UpdateEmployee applies a partial update to a roster entry
func UpdateEmployee(c middleware.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req paymasterapi.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: "Invalid request body"})
		return
	}

	update := escrow.EmployeeUpdate{
		Position:        req.Position,
		Salary:          req.Salary,
		PaymentSchedule: req.PaymentSchedule,
	}
	if req.Status != nil {
		status := models.EmployeeStatus(*req.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: "Invalid employee status"})
			return
		}
		update.Status = &status
	}

	if err := engine.UpdateEmployee(c.Request.Context(), id, callerWallet(c), update); err != nil {
		respondEngineError(c, "update_employee", err)
		return
	}

	recordSuccess("update_employee")
	employee, err := engine.GetEmployee(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, "update_employee", err)
		return
	}
	c.JSON(http.StatusOK, paymasterapi.EmployeeResponse{Employee: employee})
}

// RemoveEmployee terminates a roster entry
func RemoveEmployee(c middleware.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := engine.RemoveEmployee(c.Request.Context(), id, callerWallet(c)); err != nil {
		respondEngineError(c, "remove_employee", err)
		return
	}

	recordSuccess("remove_employee")
	c.JSON(http.StatusOK, middleware.H{"success": true})
}
