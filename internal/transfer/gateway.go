// Package transfer moves tokens through an external ledger gateway. The
// escrow engines only do bookkeeping; actual balance movement is delegated
// to whatever executor is configured.
package transfer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/go-resty/resty/v2"

	"paywallet/internal/escrow"
	"paywallet/pkg/logging"
)

// shouldRetry marks network errors, 5xx responses, and rate limits as
// retryable. Gateway rejections (4xx, including insufficient funds) are
// definitive and must not be replayed.
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	return resp.StatusCode() >= http.StatusInternalServerError ||
		resp.StatusCode() == http.StatusTooManyRequests
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}

// GatewayExecutor submits transfers to a ledger gateway over HTTP. Requests
// run through a retry policy and a circuit breaker so a struggling gateway
// is backed off instead of hammered mid-release.
type GatewayExecutor struct {
	client  *resty.Client
	exec    failsafe.Executor[*resty.Response]
	baseURL string
	token   string
	logger  logging.Logger
}

// NewGatewayExecutor creates an executor against the given gateway URL.
// The service token is sent as a Bearer credential on every request.
func NewGatewayExecutor(baseURL, token string, logger logging.Logger) *GatewayExecutor {
	client := resty.New().
		SetTimeout(10 * time.Second)

	retry := retrypolicy.NewBuilder[*resty.Response]().
		WithBackoff(100*time.Millisecond, 5*time.Second).
		WithMaxRetries(2).
		WithJitterFactor(0.1).
		HandleIf(shouldRetry).
		Build()

	breaker := circuitbreaker.NewBuilder[*resty.Response]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(15 * time.Second).
		WithSuccessThreshold(1).
		HandleIf(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode() >= http.StatusInternalServerError
		}).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.WithFields(logging.Fields{
				"circuit_breaker": "ledger_gateway",
				"from_state":      stateName(event.OldState),
				"to_state":        stateName(event.NewState),
			}).Warn("Ledger gateway circuit breaker state change")
		}).
		Build()

	return &GatewayExecutor{
		client:  client,
		exec:    failsafe.With(retry, breaker),
		baseURL: baseURL,
		token:   token,
		logger:  logger,
	}
}

type transferRequest struct {
	PayrollID int64  `json:"payroll_id"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Asset     string `json:"asset"`
}

type transferResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Transfer implements escrow.TransferExecutor. A gateway rejection with the
// insufficient_funds code maps to the engine's ErrInsufficientBalance so the
// release loop can surface it unchanged.
func (g *GatewayExecutor) Transfer(ctx context.Context, payrollID int64, recipient string, amount int64, asset string) error {
	var result transferResponse
	resp, err := g.exec.WithContext(ctx).Get(func() (*resty.Response, error) {
		return g.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+g.token).
			SetBody(transferRequest{
				PayrollID: payrollID,
				Recipient: recipient,
				Amount:    amount,
				Asset:     asset,
			}).
			SetResult(&result).
			SetError(&result).
			Post(g.baseURL + "/v1/transfers")
	})

	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}

	if resp.StatusCode() >= 400 || !result.Success {
		if result.Code == "insufficient_funds" {
			return escrow.ErrInsufficientBalance
		}
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode(), result.Error)
	}

	g.logger.WithFields(logging.Fields{
		"payroll_id": payrollID,
		"recipient":  recipient,
		"amount":     amount,
		"asset":      asset,
	}).Info("Transfer executed")

	return nil
}
