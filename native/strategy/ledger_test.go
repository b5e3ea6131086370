package strategy

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"lstvault/storage"
)

func TestInitiateWithdrawalClampsToFreeLST(t *testing.T) {
	h := newHarness(0, 100)
	ticket, err := h.engine.InitiateWithdrawal(managementCaller, big.NewInt(150))
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if ticket.Requested.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("requested = %s, want clamp to 100", ticket.Requested)
	}
	if len(ticket.RequestIDs) != 1 {
		t.Fatalf("request ids = %d, want 1", len(ticket.RequestIDs))
	}
	if ticket.ID == "" {
		t.Fatalf("ticket id empty")
	}
	if pending := h.engine.PendingRedemptions(); pending.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("pending = %s, want 100", pending)
	}
}

func TestInitiateWithdrawalZeroFails(t *testing.T) {
	h := newHarness(0, 0)
	if _, err := h.engine.InitiateWithdrawal(managementCaller, big.NewInt(50)); !errors.Is(err, ErrAmountZero) {
		t.Fatalf("initiate with no LST: %v, want ErrAmountZero", err)
	}
	if len(h.queue.requestCalls) != 0 {
		t.Fatalf("queue called despite zero amount")
	}
}

func TestInitiateWithdrawalRequiresManagement(t *testing.T) {
	h := newHarness(0, 100)
	if _, err := h.engine.InitiateWithdrawal(outsiderCaller, big.NewInt(10)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("initiate as outsider: %v, want ErrUnauthorized", err)
	}
}

func TestInitiateWithdrawalRollsBackOnQueueFailure(t *testing.T) {
	h := newHarness(0, 100)
	store := NewStore(storage.NewMemDB())
	h.engine.SetStore(store)
	boom := errors.New("queue full")
	h.queue.requestFn = func([]*big.Int, common.Address) ([]*big.Int, error) {
		return nil, boom
	}

	if _, err := h.engine.InitiateWithdrawal(managementCaller, big.NewInt(50)); !errors.Is(err, boom) {
		t.Fatalf("initiate: %v, want queue failure", err)
	}
	if pending := h.engine.PendingRedemptions(); pending.Sign() != 0 {
		t.Fatalf("pending = %s after rollback, want 0", pending)
	}
	persisted, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("load persisted state: %v ok=%v", err, ok)
	}
	if persisted.PendingRedemptions.Sign() != 0 {
		t.Fatalf("persisted pending = %s after rollback, want 0", persisted.PendingRedemptions)
	}
}

func TestClaimWithdrawalRealizedMayDifferFromRequested(t *testing.T) {
	h := newHarness(0, 100)
	ticket, err := h.engine.InitiateWithdrawal(managementCaller, big.NewInt(50))
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if pending := h.engine.PendingRedemptions(); pending.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("pending = %s, want 50", pending)
	}

	// Protocol rounding settles 49 of the 50 requested.
	h.queue.claimFn = func(*big.Int) (*big.Int, error) { return big.NewInt(49), nil }
	realized, err := h.engine.ClaimWithdrawal(managementCaller, ticket)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if realized.Cmp(big.NewInt(49)) != 0 {
		t.Fatalf("realized = %s, want 49", realized)
	}
	if pending := h.engine.PendingRedemptions(); pending.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("pending = %s, want 1", pending)
	}

	// The residual keeps the valuation cycle blocked.
	if _, err := h.engine.RunCycle(); !errors.Is(err, ErrRedemptionsPending) {
		t.Fatalf("cycle with residual pending: %v, want ErrRedemptionsPending", err)
	}
}

func TestClaimWithdrawalUnderflowIsFatal(t *testing.T) {
	h := newHarness(0, 100)
	ticket, err := h.engine.InitiateWithdrawal(managementCaller, big.NewInt(50))
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	h.queue.claimFn = func(*big.Int) (*big.Int, error) { return big.NewInt(51), nil }

	if _, err := h.engine.ClaimWithdrawal(managementCaller, ticket); !errors.Is(err, ErrPendingUnderflow) {
		t.Fatalf("claim: %v, want ErrPendingUnderflow", err)
	}
	// The corrupted decrement must not be applied, clamped or otherwise.
	if pending := h.engine.PendingRedemptions(); pending.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("pending = %s after fatal claim, want untouched 50", pending)
	}
}

func TestClaimWithdrawalInvalidTicket(t *testing.T) {
	h := newHarness(0, 100)
	if _, err := h.engine.ClaimWithdrawal(managementCaller, nil); !errors.Is(err, ErrInvalidTicket) {
		t.Fatalf("claim nil ticket: %v, want ErrInvalidTicket", err)
	}
	if _, err := h.engine.ClaimWithdrawal(managementCaller, &WithdrawalTicket{ID: "x"}); !errors.Is(err, ErrInvalidTicket) {
		t.Fatalf("claim empty ticket: %v, want ErrInvalidTicket", err)
	}
}

func TestMultipleOutstandingRequestsAggregate(t *testing.T) {
	h := newHarness(0, 100)
	first, err := h.engine.InitiateWithdrawal(managementCaller, big.NewInt(30))
	if err != nil {
		t.Fatalf("initiate first: %v", err)
	}
	h.custody.lst = big.NewInt(70)
	second, err := h.engine.InitiateWithdrawal(managementCaller, big.NewInt(20))
	if err != nil {
		t.Fatalf("initiate second: %v", err)
	}
	if pending := h.engine.PendingRedemptions(); pending.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("pending = %s, want 50", pending)
	}

	h.queue.claimFn = func(id *big.Int) (*big.Int, error) {
		if id.Cmp(first.RequestIDs[0]) == 0 {
			return big.NewInt(30), nil
		}
		return big.NewInt(20), nil
	}
	if _, err := h.engine.ClaimWithdrawal(managementCaller, second); err != nil {
		t.Fatalf("claim second: %v", err)
	}
	if pending := h.engine.PendingRedemptions(); pending.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("pending = %s, want 30", pending)
	}
	if _, err := h.engine.ClaimWithdrawal(managementCaller, first); err != nil {
		t.Fatalf("claim first: %v", err)
	}
	if pending := h.engine.PendingRedemptions(); pending.Sign() != 0 {
		t.Fatalf("pending = %s, want 0", pending)
	}
}

func TestClaimWithdrawalContinuesPastFailedRequest(t *testing.T) {
	h := newHarness(0, 100)
	first, err := h.engine.InitiateWithdrawal(managementCaller, big.NewInt(30))
	if err != nil {
		t.Fatalf("initiate first: %v", err)
	}
	h.custody.lst = big.NewInt(70)
	second, err := h.engine.InitiateWithdrawal(managementCaller, big.NewInt(20))
	if err != nil {
		t.Fatalf("initiate second: %v", err)
	}

	combined := &WithdrawalTicket{
		ID:         "combined",
		Requested:  big.NewInt(50),
		RequestIDs: []*big.Int{first.RequestIDs[0], second.RequestIDs[0]},
	}
	notMatured := errors.New("request not finalized")
	h.queue.claimFn = func(id *big.Int) (*big.Int, error) {
		if id.Cmp(first.RequestIDs[0]) == 0 {
			return nil, notMatured
		}
		return big.NewInt(20), nil
	}

	realized, err := h.engine.ClaimWithdrawal(managementCaller, combined)
	if !errors.Is(err, notMatured) {
		t.Fatalf("claim: %v, want the per-request failure surfaced", err)
	}
	if realized.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("realized = %s, want the 20 settled past the failure", realized)
	}
	if pending := h.engine.PendingRedemptions(); pending.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("pending = %s, want 30", pending)
	}
	if len(h.queue.claimCalls) != 2 {
		t.Fatalf("claim attempts = %d, want both requests tried", len(h.queue.claimCalls))
	}

	// The failed request stays claimable under a ticket of its own.
	h.queue.claimFn = func(*big.Int) (*big.Int, error) { return big.NewInt(30), nil }
	realized, err = h.engine.ClaimWithdrawal(managementCaller, first)
	if err != nil {
		t.Fatalf("retry claim: %v", err)
	}
	if realized.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("retry realized = %s, want 30", realized)
	}
	if pending := h.engine.PendingRedemptions(); pending.Sign() != 0 {
		t.Fatalf("pending = %s, want 0", pending)
	}
}

func TestPendingSurvivesRestart(t *testing.T) {
	db := storage.NewMemDB()
	h := newHarness(0, 100)
	h.engine.SetStore(NewStore(db))
	if _, err := h.engine.InitiateWithdrawal(managementCaller, big.NewInt(40)); err != nil {
		t.Fatalf("initiate: %v", err)
	}

	restored, ok, err := NewStore(db).Load()
	if err != nil || !ok {
		t.Fatalf("load: %v ok=%v", err, ok)
	}
	h2 := newHarness(0, 100)
	h2.engine.SetState(restored)
	if pending := h2.engine.PendingRedemptions(); pending.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("restored pending = %s, want 40", pending)
	}
	if _, err := h2.engine.RunCycle(); !errors.Is(err, ErrRedemptionsPending) {
		t.Fatalf("cycle after restart: %v, want ErrRedemptionsPending", err)
	}
}
