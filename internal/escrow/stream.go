package escrow

import (
	"context"
	"fmt"

	"paywallet/pkg/logging"
	"paywallet/pkg/models"
)

// StartStream opens a continuously accruing payment from the caller to the
// receiver. The caller must already be authenticated as from. The deposit
// and rate*duration are independent inputs and are deliberately not checked
// against each other; accrual is capped by the deposit alone.
func (e *Engine) StartStream(
	ctx context.Context,
	from, to string,
	ratePerSec, duration, totalAmount int64,
) (int64, error) {
	if ratePerSec <= 0 || duration <= 0 || totalAmount <= 0 {
		return 0, ErrInvalidAmount
	}

	id, err := e.store.NextID(ctx, CounterStreams)
	if err != nil {
		return 0, fmt.Errorf("allocate stream id: %w", err)
	}

	now := e.clock()
	stream := &models.Stream{
		ID:             id,
		From:           from,
		To:             to,
		RatePerSec:     ratePerSec,
		StartTime:      now,
		EndTime:        now + duration,
		LastWithdrawal: now,
		TotalDeposited: totalAmount,
		TotalWithdrawn: 0,
		Active:         true,
	}
	if err := e.store.PutStream(ctx, stream); err != nil {
		return 0, fmt.Errorf("store stream: %w", err)
	}

	e.emit(ctx, EventStreamStarted, map[string]interface{}{
		"stream_id":    id,
		"from":         from,
		"to":           to,
		"rate_per_sec": ratePerSec,
		"duration":     duration,
	})
	e.log.WithFields(logging.Fields{
		"stream_id":       id,
		"from":            from,
		"to":              to,
		"rate_per_sec":    ratePerSec,
		"total_deposited": totalAmount,
	}).Info("Stream started")

	return id, nil
}

// WithdrawStream pays out whatever has accrued since the last withdrawal,
// capped by the remaining deposit, and returns the amount paid. A zero
// payout (same-instant call, or deposit exhausted) is a valid non-error
// outcome that mutates nothing and emits nothing. When the deposit is fully
// withdrawn the stream deactivates permanently.
//
// The stream's end time is informational only: accrual continues at
// rate_per_sec past it until the deposit cap is exhausted.
func (e *Engine) WithdrawStream(ctx context.Context, streamID int64, caller string) (int64, error) {
	e.locks.lock("stream", streamID)
	defer e.locks.unlock("stream", streamID)

	stream, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return 0, err
	}

	if !stream.Active {
		return 0, ErrStreamInactive
	}
	if caller != stream.To {
		return 0, ErrNotAuthorized
	}

	now := e.clock()
	elapsed := now - stream.LastWithdrawal
	if elapsed < 0 {
		elapsed = 0
	}
	// Accrual is capped by the remaining deposit. The cap comparison is done
	// by division so elapsed*rate never overflows on large rates.
	var payout int64
	if elapsed > 0 {
		remaining := stream.RemainingCap()
		if stream.RatePerSec > remaining/elapsed {
			payout = remaining
		} else {
			payout = elapsed * stream.RatePerSec
		}
	}

	if payout == 0 {
		return 0, nil
	}

	stream.TotalWithdrawn += payout
	stream.LastWithdrawal = now
	if stream.TotalWithdrawn >= stream.TotalDeposited {
		stream.Active = false
	}

	if err := e.store.PutStream(ctx, stream); err != nil {
		return 0, fmt.Errorf("store stream: %w", err)
	}

	e.emit(ctx, EventStreamWithdrawn, map[string]interface{}{
		"stream_id": streamID,
		"to":        caller,
		"amount":    payout,
	})
	return payout, nil
}

// GetStream returns the stream by id.
func (e *Engine) GetStream(ctx context.Context, streamID int64) (*models.Stream, error) {
	return e.store.GetStream(ctx, streamID)
}
