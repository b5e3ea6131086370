package strategy

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"lstvault/storage"
)

var stateKey = []byte("strategy/state")

// storedState is the RLP wire form of StrategyState. The allowlist is stored
// as a sorted slice so encoding stays deterministic.
type storedState struct {
	StakeOnDeploy      bool
	DepositLimit       *big.Int
	OpenDeposits       bool
	Allowed            []common.Address
	PendingRedemptions *big.Int
	Referral           common.Address
}

// Store persists the strategy's durable state into a key-value backend.
type Store struct {
	db storage.Database
}

// NewStore binds a state store to the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// Load reads the persisted state. The boolean reports whether a state record
// existed; first boots receive (nil, false, nil) and should start from
// NewStrategyState.
func (s *Store) Load() (*StrategyState, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, fmt.Errorf("strategy: state store not configured")
	}
	raw, err := s.db.Get(stateKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("strategy: load state: %w", err)
	}
	var stored storedState
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("strategy: decode state: %w", err)
	}
	state := &StrategyState{
		StakeOnDeploy:      stored.StakeOnDeploy,
		DepositLimit:       stored.DepositLimit,
		OpenDeposits:       stored.OpenDeposits,
		Allowed:            make(map[common.Address]bool, len(stored.Allowed)),
		PendingRedemptions: stored.PendingRedemptions,
		Referral:           stored.Referral,
	}
	if state.DepositLimit == nil {
		state.DepositLimit = big.NewInt(0)
	}
	if state.PendingRedemptions == nil {
		state.PendingRedemptions = big.NewInt(0)
	}
	for _, addr := range stored.Allowed {
		state.Allowed[addr] = true
	}
	return state, true, nil
}

// Save writes the state record, replacing any previous version.
func (s *Store) Save(state *StrategyState) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("strategy: state store not configured")
	}
	if state == nil {
		return fmt.Errorf("strategy: state must not be nil")
	}
	stored := storedState{
		StakeOnDeploy:      state.StakeOnDeploy,
		DepositLimit:       state.DepositLimit,
		OpenDeposits:       state.OpenDeposits,
		PendingRedemptions: state.PendingRedemptions,
		Referral:           state.Referral,
	}
	if stored.DepositLimit == nil {
		stored.DepositLimit = big.NewInt(0)
	}
	if stored.PendingRedemptions == nil {
		stored.PendingRedemptions = big.NewInt(0)
	}
	stored.Allowed = make([]common.Address, 0, len(state.Allowed))
	for addr, ok := range state.Allowed {
		if ok {
			stored.Allowed = append(stored.Allowed, addr)
		}
	}
	sort.Slice(stored.Allowed, func(i, j int) bool {
		return bytes.Compare(stored.Allowed[i][:], stored.Allowed[j][:]) < 0
	})
	encoded, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return fmt.Errorf("strategy: encode state: %w", err)
	}
	if err := s.db.Put(stateKey, encoded); err != nil {
		return fmt.Errorf("strategy: persist state: %w", err)
	}
	return nil
}
