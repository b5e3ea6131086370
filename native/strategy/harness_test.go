package strategy

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	managementCaller = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	emergencyCaller  = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	outsiderCaller   = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	custodyOwner     = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

type mockCustody struct {
	liquid    *big.Int
	lst       *big.Int
	liquidErr error
	lstErr    error
}

func (m *mockCustody) LiquidBalance() (*big.Int, error) {
	if m.liquidErr != nil {
		return nil, m.liquidErr
	}
	return new(big.Int).Set(m.liquid), nil
}

func (m *mockCustody) LSTBalance() (*big.Int, error) {
	if m.lstErr != nil {
		return nil, m.lstErr
	}
	return new(big.Int).Set(m.lst), nil
}

type swapCall struct {
	amount *big.Int
	minOut *big.Int
}

type mockPool struct {
	quoteFn   func(amount *big.Int) (*big.Int, error)
	toLSTFn   func(amount, minOut *big.Int) (*big.Int, error)
	toAssetFn func(amount, minOut *big.Int) (*big.Int, error)

	toLSTCalls   []swapCall
	toAssetCalls []swapCall
}

func (m *mockPool) QuoteToLST(amount *big.Int) (*big.Int, error) {
	if m.quoteFn != nil {
		return m.quoteFn(amount)
	}
	return new(big.Int).Set(amount), nil
}

func (m *mockPool) SwapToLST(amount, minOut *big.Int) (*big.Int, error) {
	m.toLSTCalls = append(m.toLSTCalls, swapCall{amount: new(big.Int).Set(amount), minOut: new(big.Int).Set(minOut)})
	if m.toLSTFn != nil {
		return m.toLSTFn(amount, minOut)
	}
	return new(big.Int).Set(amount), nil
}

func (m *mockPool) SwapToAsset(amount, minOut *big.Int) (*big.Int, error) {
	m.toAssetCalls = append(m.toAssetCalls, swapCall{amount: new(big.Int).Set(amount), minOut: new(big.Int).Set(minOut)})
	if m.toAssetFn != nil {
		return m.toAssetFn(amount, minOut)
	}
	return new(big.Int).Set(amount), nil
}

type mockStaking struct {
	paused    bool
	pausedErr error
	mintFn    func(amount *big.Int, referral common.Address) (*big.Int, error)
	mintCalls []*big.Int
}

func (m *mockStaking) Mint(amount *big.Int, referral common.Address) (*big.Int, error) {
	m.mintCalls = append(m.mintCalls, new(big.Int).Set(amount))
	if m.mintFn != nil {
		return m.mintFn(amount, referral)
	}
	return new(big.Int).Set(amount), nil
}

func (m *mockStaking) Paused() (bool, error) {
	return m.paused, m.pausedErr
}

type mockQueue struct {
	requestFn    func(amounts []*big.Int, owner common.Address) ([]*big.Int, error)
	claimFn      func(requestID *big.Int) (*big.Int, error)
	requestCalls [][]*big.Int
	claimCalls   []*big.Int
	nextID       int64
}

func (m *mockQueue) Request(amounts []*big.Int, owner common.Address) ([]*big.Int, error) {
	copied := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		copied[i] = new(big.Int).Set(a)
	}
	m.requestCalls = append(m.requestCalls, copied)
	if m.requestFn != nil {
		return m.requestFn(amounts, owner)
	}
	ids := make([]*big.Int, len(amounts))
	for i := range amounts {
		m.nextID++
		ids[i] = big.NewInt(m.nextID)
	}
	return ids, nil
}

func (m *mockQueue) Claim(requestID *big.Int) (*big.Int, error) {
	m.claimCalls = append(m.claimCalls, new(big.Int).Set(requestID))
	if m.claimFn != nil {
		return m.claimFn(requestID)
	}
	return big.NewInt(0), nil
}

type harness struct {
	engine  *Engine
	custody *mockCustody
	pool    *mockPool
	staking *mockStaking
	queue   *mockQueue
}

func newHarness(liquid, lst int64) *harness {
	custody := &mockCustody{liquid: big.NewInt(liquid), lst: big.NewInt(lst)}
	pool := &mockPool{}
	staking := &mockStaking{}
	queue := &mockQueue{}
	engine := NewEngine(custody, pool, staking, queue)
	engine.SetOwner(custodyOwner)
	engine.SetDustFloor(big.NewInt(0))
	engine.SetAuthority(NewStaticAuthority(
		[]common.Address{managementCaller},
		[]common.Address{emergencyCaller},
	))
	engine.SetNowFunc(func() int64 { return 1700000000 })
	return &harness{engine: engine, custody: custody, pool: pool, staking: staking, queue: queue}
}
