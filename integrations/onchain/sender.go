package onchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// SignerSender implements TxSender with a locally held operator key. Each
// Send simulates the call first to capture its return data and surface
// reverts before spending gas, then signs, broadcasts, and waits for
// inclusion.
type SignerSender struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// NewSignerSender builds a sender from a hex-encoded operator key.
func NewSignerSender(ctx context.Context, client *ethclient.Client, keyHex string) (*SignerSender, error) {
	key, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("onchain: parse operator key: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("onchain: chain id: %w", err)
	}
	return &SignerSender{
		client:  client,
		key:     key,
		from:    ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// From returns the operator address transactions are sent from.
func (s *SignerSender) From() common.Address {
	if s == nil {
		return common.Address{}
	}
	return s.from
}

// buildTx selects the transaction envelope for the chain head: dynamic fees
// when blocks carry a base fee, legacy gas pricing otherwise (pre-London and
// most dev chains).
func buildTx(chainID *big.Int, nonce, gas uint64, to common.Address, value *big.Int, data []byte, baseFee, tip, gasPrice *big.Int) *ethtypes.Transaction {
	if baseFee != nil {
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))
		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &to,
			Value:     value,
			Data:      data,
		})
	}
	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
}

// Send implements the TxSender interface.
func (s *SignerSender) Send(ctx context.Context, to common.Address, value *big.Int, data []byte) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("onchain: sender not configured")
	}
	msg := ethereum.CallMsg{From: s.from, To: &to, Value: value, Data: data}
	out, err := s.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("onchain: simulate call: %w", err)
	}
	gas, err := s.client.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("onchain: estimate gas: %w", err)
	}
	head, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("onchain: head: %w", err)
	}
	var tip, gasPrice *big.Int
	if head.BaseFee != nil {
		if tip, err = s.client.SuggestGasTipCap(ctx); err != nil {
			return nil, fmt.Errorf("onchain: gas tip: %w", err)
		}
	} else {
		if gasPrice, err = s.client.SuggestGasPrice(ctx); err != nil {
			return nil, fmt.Errorf("onchain: gas price: %w", err)
		}
	}
	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("onchain: nonce: %w", err)
	}
	tx := buildTx(s.chainID, nonce, gas, to, value, data, head.BaseFee, tip, gasPrice)
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("onchain: sign tx: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("onchain: send tx: %w", err)
	}
	receipt, err := bind.WaitMined(ctx, s.client, signed)
	if err != nil {
		return nil, fmt.Errorf("onchain: wait mined: %w", err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("onchain: tx %s reverted", signed.Hash().Hex())
	}
	return out, nil
}
