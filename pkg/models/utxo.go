package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

type UnspentOutput struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Address       string `json:"address"`
	Value         int64  `json:"value"`
	Confirmations int64  `json:"confirmations"`
	Spendable     bool   `json:"spendable"`
}

func (u UnspentOutput) OutPoint() (*wire.OutPoint, error) {
	hash, err := chainhash.NewHashFromStr(u.TxID)
	if err != nil {
		return nil, fmt.Errorf("invalid txid %s: %w", u.TxID, err)
	}
	return wire.NewOutPoint(hash, u.Vout), nil
}

func (u UnspentOutput) String() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.Vout)
}

// ParseOutPoint parses a "txid:vout" reference as used in configuration and
// ord explorer URLs.
func ParseOutPoint(s string) (*wire.OutPoint, error) {
	txid, voutStr, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("invalid outpoint %q: expected txid:vout", s)
	}
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return nil, fmt.Errorf("invalid outpoint %q: %w", s, err)
	}
	vout, err := strconv.ParseUint(voutStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid outpoint %q: %w", s, err)
	}
	return wire.NewOutPoint(hash, uint32(vout)), nil
}

// FeePolicy holds the fixed trade-sizing constants, all in satoshis. The
// overhead values budget typical input/output byte sizes at a low fee rate:
// SeparatorOverhead covers the one-in/two-out dust-creation transaction,
// TransferOverhead covers two signed inputs (180 bytes each), three outputs
// (34 bytes each) and the transaction frame (10 bytes) of the purchase
// transaction.
type FeePolicy struct {
	Price             int64 `json:"price"`
	MarketplaceFee    int64 `json:"marketplace_fee"`
	DummyAllowance    int64 `json:"dummy_allowance"`
	SeparatorValue    int64 `json:"separator_value"`
	SeparatorOverhead int64 `json:"separator_overhead"`
	TransferOverhead  int64 `json:"transfer_overhead"`
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		Price:             1900,
		MarketplaceFee:    1000,
		DummyAllowance:    1000,
		SeparatorValue:    1000,
		SeparatorOverhead: 258,
		TransferOverhead:  180*2 + 3*34 + 10,
	}
}

// RequiredPayment is the value the selected payment inputs must reach before
// coin selection stops.
func (p FeePolicy) RequiredPayment() int64 {
	return p.Price + p.MarketplaceFee + p.DummyAllowance + p.TransferOverhead
}

func (p FeePolicy) Validate() error {
	if p.Price <= 0 {
		return fmt.Errorf("price must be positive, got %d", p.Price)
	}
	if p.MarketplaceFee < 0 || p.DummyAllowance < 0 || p.TransferOverhead < 0 {
		return fmt.Errorf("fee components cannot be negative")
	}
	if p.SeparatorValue <= 0 {
		return fmt.Errorf("separator value must be positive, got %d", p.SeparatorValue)
	}
	if p.SeparatorOverhead < 0 {
		return fmt.Errorf("separator overhead cannot be negative, got %d", p.SeparatorOverhead)
	}
	return nil
}
