package strategy

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// InitiateWithdrawal queues a two-phase redemption with the staking protocol.
// The requested amount is clamped to the free LST balance and recorded in the
// pending-redemptions ledger before the external queue call, so a failed call
// rolls the increment back and no false invariant survives. The returned
// ticket must be retained by the caller to claim later. Management tier.
func (e *Engine) InitiateWithdrawal(caller common.Address, amount *big.Int) (*WithdrawalTicket, error) {
	if err := e.requireManagement(caller); err != nil {
		return nil, err
	}
	if e.custody == nil || e.queue == nil {
		return nil, ErrNotConfigured
	}
	lst, err := e.custody.LSTBalance()
	if err != nil {
		return nil, fmt.Errorf("strategy: lst balance: %w", err)
	}
	requested := clampAmount(amount, lst)
	if requested.Sign() == 0 {
		return nil, ErrAmountZero
	}

	prev := new(big.Int).Set(e.state.PendingRedemptions)
	e.state.PendingRedemptions = new(big.Int).Add(prev, requested)
	if err := e.persist(); err != nil {
		e.state.PendingRedemptions = prev
		return nil, err
	}

	ids, err := e.queue.Request([]*big.Int{new(big.Int).Set(requested)}, e.owner)
	if err != nil {
		e.state.PendingRedemptions = prev
		if perr := e.persist(); perr != nil {
			return nil, fmt.Errorf("strategy: queue request failed (%v), rollback failed: %w", err, perr)
		}
		return nil, fmt.Errorf("strategy: queue request: %w", err)
	}

	ticket := &WithdrawalTicket{
		ID:         uuid.NewString(),
		Requested:  new(big.Int).Set(requested),
		RequestIDs: ids,
		CreatedAt:  e.nowFn(),
	}
	e.emitter.Emit(WithdrawalInitiated{
		TicketID:   ticket.ID,
		Requested:  new(big.Int).Set(requested),
		RequestIDs: ids,
		Pending:    new(big.Int).Set(e.state.PendingRedemptions),
	})
	return ticket, nil
}

// ClaimWithdrawal settles the requests identified by the ticket. The ledger
// is decremented by the realized amount, which may differ from the requested
// amount through protocol rounding. A realized amount exceeding the
// outstanding total signals bookkeeping corruption and fails with
// ErrPendingUnderflow before any ledger mutation. Management tier.
func (e *Engine) ClaimWithdrawal(caller common.Address, ticket *WithdrawalTicket) (*big.Int, error) {
	if err := e.requireManagement(caller); err != nil {
		return nil, err
	}
	if e.queue == nil {
		return nil, ErrNotConfigured
	}
	if ticket == nil || len(ticket.RequestIDs) == 0 {
		return nil, ErrInvalidTicket
	}

	// Every request is attempted: a failed claim (not yet matured, already
	// settled) must not strand the requests behind it in the ticket.
	realized := big.NewInt(0)
	var claimErrs []error
	for _, id := range ticket.RequestIDs {
		amount, err := e.queue.Claim(id)
		if err != nil {
			claimErrs = append(claimErrs, fmt.Errorf("strategy: queue claim %s: %w", formatAmount(id), err))
			continue
		}
		if amount != nil {
			realized.Add(realized, amount)
		}
	}
	claimErr := errors.Join(claimErrs...)

	if realized.Cmp(e.state.PendingRedemptions) > 0 {
		return nil, ErrPendingUnderflow
	}
	if realized.Sign() > 0 {
		prev := new(big.Int).Set(e.state.PendingRedemptions)
		e.state.PendingRedemptions = new(big.Int).Sub(prev, realized)
		if err := e.persist(); err != nil {
			e.state.PendingRedemptions = prev
			return nil, err
		}
	}
	if claimErr != nil {
		// Settled requests stay settled on the protocol side; the ledger
		// reflects exactly what was realized, and the failed requests can be
		// retried with a ticket carrying just their identifiers.
		return new(big.Int).Set(realized), claimErr
	}

	e.emitter.Emit(WithdrawalClaimed{
		TicketID: ticket.ID,
		Realized: new(big.Int).Set(realized),
		Pending:  new(big.Int).Set(e.state.PendingRedemptions),
	})
	return new(big.Int).Set(realized), nil
}
